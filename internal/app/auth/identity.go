package auth

import (
	"fmt"

	"github.com/yigit/tuitiontrack/internal/app/models"
	"github.com/yigit/tuitiontrack/internal/pkg/apperrors"
)

// Authorization errors
var (
	ErrNotSignedIn      = fmt.Errorf("sign in required: %w", apperrors.ErrUnauthorized)
	ErrPermissionDenied = fmt.Errorf("you don't have permission for this action: %w", apperrors.ErrPermissionDenied)
)

// Kind tags who is behind a request.
type Kind int

const (
	Anonymous Kind = iota
	TutorKind
	StudentKind
)

// Role returns the session role string of k.
func (k Kind) Role() string {
	switch k {
	case TutorKind:
		return string(models.RoleTutor)
	case StudentKind:
		return string(models.RoleStudent)
	}
	return ""
}

// KindOf maps a session role string back to a Kind.
func KindOf(role string) Kind {
	switch role {
	case string(models.RoleTutor):
		return TutorKind
	case string(models.RoleStudent):
		return StudentKind
	}
	return Anonymous
}

// Capability is something an identity may be allowed to do.
type Capability int

const (
	// ManageTuition covers every tutor page and mutation
	ManageTuition Capability = iota + 1
	// ViewPortal covers the read-only student pages
	ViewPortal
	// AskHelp covers the help bot
	AskHelp
	// ReadAttachments covers downloading homework files
	ReadAttachments
	// ReceiveNotifications covers the live notification socket
	ReceiveNotifications
)

var capabilities = map[Kind]map[Capability]bool{
	TutorKind: {
		ManageTuition:        true,
		AskHelp:              true,
		ReadAttachments:      true,
		ReceiveNotifications: true,
	},
	StudentKind: {
		ViewPortal:           true,
		AskHelp:              true,
		ReadAttachments:      true,
		ReceiveNotifications: true,
	},
}

// Identity is the signed-in principal. TutorID is the tenant for both kinds:
// a student identity carries the tutor that registered them.
type Identity struct {
	Kind        Kind
	TutorID     int64
	StudentID   int64
	BatchID     int64
	Mobile      string
	DisplayName string
}

// TutorIdentity builds the identity of a signed-in tutor.
func TutorIdentity(t *models.Tutor) Identity {
	return Identity{
		Kind:        TutorKind,
		TutorID:     t.ID,
		Mobile:      t.Mobile,
		DisplayName: t.DisplayName(),
	}
}

// StudentIdentity builds the identity of a signed-in student.
func StudentIdentity(s *models.Student) Identity {
	return Identity{
		Kind:        StudentKind,
		TutorID:     s.UserID,
		StudentID:   s.ID,
		BatchID:     s.BatchID,
		Mobile:      s.Phone,
		DisplayName: s.Name,
	}
}

// SignedIn reports whether the identity is a tutor or a student.
func (i Identity) SignedIn() bool {
	switch i.Kind {
	case TutorKind:
		return i.TutorID > 0
	case StudentKind:
		return i.StudentID > 0 && i.TutorID > 0
	}
	return false
}

// IsTutor reports a signed-in tutor.
func (i Identity) IsTutor() bool { return i.SignedIn() && i.Kind == TutorKind }

// IsStudent reports a signed-in student.
func (i Identity) IsStudent() bool { return i.SignedIn() && i.Kind == StudentKind }

// Can reports whether the identity holds c.
func (i Identity) Can(c Capability) bool {
	return i.SignedIn() && capabilities[i.Kind][c]
}

// Require returns nil when the identity holds c.
func (i Identity) Require(c Capability) error {
	if !i.SignedIn() {
		return ErrNotSignedIn
	}
	if !capabilities[i.Kind][c] {
		return ErrPermissionDenied
	}
	return nil
}

// HomePath is where the identity lands after sign in.
func (i Identity) HomePath() string {
	switch {
	case i.IsTutor():
		return "/dashboard"
	case i.IsStudent():
		return "/student/dashboard"
	}
	return "/welcome"
}
