package middleware

import (
	"encoding/gob"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/yigit/tuitiontrack/internal/app/auth"
)

// Session keys
const (
	SessionUserID      = "user_id"
	SessionRole        = "role"
	SessionMobile      = "mobile"
	SessionStudentID   = "student_id"
	SessionBatchID     = "batch_id"
	SessionDisplayName = "display_name"

	identityKey = "identity"
)

// Flash is a one-shot message shown on the next page.
type Flash struct {
	Category string
	Message  string
}

// Flash categories used by the templates
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

func init() {
	gob.Register(Flash{})
}

// SessionConfig configures the session cookie.
type SessionConfig struct {
	Name   string
	Secret string
	Secure bool
	MaxAge time.Duration
}

// Sessions installs the cookie session store: HTTP only, SameSite Lax.
func Sessions(cfg SessionConfig) gin.HandlerFunc {
	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.MaxAge.Seconds()),
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sessions.Sessions(cfg.Name, store)
}

// LoadIdentity resolves the signed-in identity once per request.
func LoadIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(identityKey, identityFromSession(sessions.Default(c)))
		c.Next()
	}
}

func identityFromSession(s sessions.Session) auth.Identity {
	role, _ := s.Get(SessionRole).(string)
	id := auth.Identity{Kind: auth.KindOf(role)}
	id.TutorID, _ = s.Get(SessionUserID).(int64)
	id.StudentID, _ = s.Get(SessionStudentID).(int64)
	id.BatchID, _ = s.Get(SessionBatchID).(int64)
	id.Mobile, _ = s.Get(SessionMobile).(string)
	id.DisplayName, _ = s.Get(SessionDisplayName).(string)
	if !id.SignedIn() {
		return auth.Identity{}
	}
	return id
}

// CurrentIdentity returns the identity loaded for this request. Requests that
// did not pass LoadIdentity are anonymous.
func CurrentIdentity(c *gin.Context) auth.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(auth.Identity); ok {
			return id
		}
	}
	return auth.Identity{}
}

// SignIn replaces the session content with id.
func SignIn(c *gin.Context, id auth.Identity) error {
	s := sessions.Default(c)
	s.Clear()
	s.Set(SessionUserID, id.TutorID)
	s.Set(SessionRole, id.Kind.Role())
	s.Set(SessionMobile, id.Mobile)
	s.Set(SessionDisplayName, id.DisplayName)
	if id.Kind == auth.StudentKind {
		s.Set(SessionStudentID, id.StudentID)
		s.Set(SessionBatchID, id.BatchID)
	}
	if err := s.Save(); err != nil {
		return err
	}
	c.Set(identityKey, id)
	return nil
}

// SignOut clears the session.
func SignOut(c *gin.Context) error {
	s := sessions.Default(c)
	s.Clear()
	c.Set(identityKey, auth.Identity{})
	return s.Save()
}

// SessionString reads a string value.
func SessionString(c *gin.Context, key string) string {
	v, _ := sessions.Default(c).Get(key).(string)
	return v
}

// SetSessionValues stores values and saves the session.
func SetSessionValues(c *gin.Context, values map[string]interface{}) error {
	s := sessions.Default(c)
	for k, v := range values {
		if v == nil {
			s.Delete(k)
			continue
		}
		s.Set(k, v)
	}
	return s.Save()
}

// AddFlash queues a message for the next rendered page.
func AddFlash(c *gin.Context, category, message string) {
	s := sessions.Default(c)
	s.AddFlash(Flash{Category: category, Message: message})
	_ = s.Save()
}

// Flashes pops the queued messages.
func Flashes(c *gin.Context) []Flash {
	s := sessions.Default(c)
	raw := s.Flashes()
	if len(raw) == 0 {
		return nil
	}
	_ = s.Save()

	out := make([]Flash, 0, len(raw))
	for _, f := range raw {
		if flash, ok := f.(Flash); ok {
			out = append(out, flash)
		}
	}
	return out
}

// RequireCapability stops requests whose identity lacks capability. API
// routes get a JSON error; pages are redirected to a login page or home.
func RequireCapability(capability auth.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := CurrentIdentity(c)
		err := id.Require(capability)
		if err == nil {
			c.Next()
			return
		}

		if IsAPIRequest(c) {
			HandleAPIError(c, err)
			return
		}

		if !id.SignedIn() {
			target := "/login"
			if capability == auth.ViewPortal {
				target = "/student/login"
			}
			AddFlash(c, FlashInfo, "Please log in to continue")
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}

		AddFlash(c, FlashError, "You don't have access to that page")
		c.Redirect(http.StatusFound, id.HomePath())
		c.Abort()
	}
}
