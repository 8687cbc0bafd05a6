package notify

import (
	"context"
	"fmt"
	"time"
)

// RecipientKind says which table a recipient id refers to.
type RecipientKind string

const (
	TutorRecipient   RecipientKind = "tutor"
	StudentRecipient RecipientKind = "student"
)

// Categories used by the application
const (
	CategoryAttendance = "attendance"
	CategoryHomework   = "homework"
	CategoryReminder   = "reminder"
)

// Recipient identifies who receives a notification.
type Recipient struct {
	Kind RecipientKind `json:"kind"`
	ID   int64         `json:"id"`
}

// Key is the routing key used by the hub, e.g. "student:12".
func (r Recipient) Key() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

// Notification is one message for one recipient.
type Notification struct {
	Recipient Recipient `json:"recipient"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	URL       string    `json:"url,omitempty"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// Dispatcher delivers notifications. Implementations must be safe for
// concurrent use.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, n Notification) error

func (f DispatcherFunc) Dispatch(ctx context.Context, n Notification) error {
	return f(ctx, n)
}
