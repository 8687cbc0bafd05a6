package notify

import (
	"context"
	"errors"
)

// Multi fans a notification out to several dispatchers. Every dispatcher is
// tried; the errors are joined.
type Multi []Dispatcher

func (m Multi) Dispatch(ctx context.Context, n Notification) error {
	var errs []error
	for _, d := range m {
		if err := d.Dispatch(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
