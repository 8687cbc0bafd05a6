package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/tuitiontrack/internal/app/auth"
	"github.com/yigit/tuitiontrack/internal/app/models/dto"
	"github.com/yigit/tuitiontrack/internal/pkg/apperrors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine() *gin.Engine {
	r := gin.New()
	r.SetHTMLTemplate(template.Must(template.New(ErrorTemplate).Parse(`{{.Status}} {{.Message}}`)))
	r.Use(RequestID(), Sessions(SessionConfig{
		Name:   "test_session",
		Secret: "0123456789abcdef0123456789abcdef",
		MaxAge: 24 * time.Hour,
	}), LoadIdentity())
	return r
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *dto.ErrorDetail {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.False(t, resp.Success)
	return resp.Error
}

func TestHandleAPIErrorMapsCategories(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   dto.ErrorCode
	}{
		{apperrors.NewResourceNotFoundError("Batch not found"), 404, dto.ErrorCodeResourceNotFound},
		{fmt.Errorf("dup: %w", apperrors.ErrResourceAlreadyExists), 409, dto.ErrorCodeResourceAlreadyExists},
		{apperrors.NewConflictError("Attendance already marked for this date"), 409, dto.ErrorCodeConflict},
		{apperrors.NewValidationError("phone", "Phone must be a 10-digit number"), 400, dto.ErrorCodeValidationFailed},
		{apperrors.NewBadRequestError("Invalid date"), 400, dto.ErrorCodeBadRequest},
		{auth.ErrNotSignedIn, 401, dto.ErrorCodeUnauthorized},
		{apperrors.ErrInvalidOTP, 401, dto.ErrorCodeInvalidOTP},
		{auth.ErrPermissionDenied, 403, dto.ErrorCodeForbidden},
		{fmt.Errorf("lock: %w", apperrors.ErrTransient), 503, dto.ErrorCodeDatabaseBusy},
		{errors.New("boom"), 500, dto.ErrorCodeInternalServer},
	}

	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			r := gin.New()
			r.GET("/api/x", func(c *gin.Context) { HandleAPIError(c, tc.err) })

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/x", nil))

			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, decodeError(t, w).Code)
		})
	}
}

func TestHandleAPIErrorMessages(t *testing.T) {
	r := gin.New()
	r.GET("/api/conflict", func(c *gin.Context) {
		HandleAPIError(c, apperrors.NewConflictError("Attendance already marked for this date"))
	})
	r.GET("/api/field", func(c *gin.Context) {
		HandleAPIError(c, apperrors.NewValidationError("phone", "Phone must be a 10-digit number"))
	})
	r.GET("/api/internal", func(c *gin.Context) {
		HandleAPIError(c, apperrors.NewCustomError(errors.New("pq: relation missing"), "pq: relation missing"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/conflict", nil))
	assert.Equal(t, "Attendance already marked for this date", decodeError(t, w).Message)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/field", nil))
	detail := decodeError(t, w)
	assert.Equal(t, "phone", detail.Field)
	assert.Equal(t, "Phone must be a 10-digit number", detail.Message)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/internal", nil))
	assert.Equal(t, "Internal server error", decodeError(t, w).Message)
}

func TestHandleErrorRendersPageOutsideAPI(t *testing.T) {
	r := newEngine()
	r.GET("/reports", func(c *gin.Context) { HandleError(c, errors.New("boom")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/reports", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "500 Internal server error", w.Body.String())
}

func TestRequestIDIsEchoedOrGenerated(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, RequestIDFrom(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Body.String(), 36)
}

func TestRecoveryAnswersWithGenericError(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(zerolog.Nop()))
	r.GET("/api/panic", func(c *gin.Context) { panic("nil map") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, dto.ErrorCodeInternalServer, decodeError(t, w).Code)
}

// cookies returns the Cookie header value for the Set-Cookie lines of w.
func cookies(w *httptest.ResponseRecorder) string {
	var parts []string
	for _, c := range w.Result().Cookies() {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

func TestSignInPersistsIdentity(t *testing.T) {
	r := newEngine()
	r.GET("/in", func(c *gin.Context) {
		err := SignIn(c, auth.Identity{Kind: auth.StudentKind, TutorID: 3, StudentID: 12, BatchID: 4, Mobile: "9876543210", DisplayName: "Asha"})
		require.NoError(t, err)
		c.Status(http.StatusNoContent)
	})
	r.GET("/me", func(c *gin.Context) {
		id := CurrentIdentity(c)
		c.JSON(http.StatusOK, gin.H{"kind": id.Kind.Role(), "tutor": id.TutorID, "student": id.StudentID, "batch": id.BatchID, "name": id.DisplayName})
	})
	r.GET("/out", func(c *gin.Context) {
		require.NoError(t, SignOut(c))
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/in", nil))
	jar := cookies(w)
	require.NotEmpty(t, jar)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Cookie", jar)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.JSONEq(t, `{"kind":"student","tutor":3,"student":12,"batch":4,"name":"Asha"}`, w.Body.String())

	setCookie := w.Header().Get("Set-Cookie")
	assert.Empty(t, setCookie)

	req = httptest.NewRequest(http.MethodGet, "/out", nil)
	req.Header.Set("Cookie", jar)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	cleared := cookies(w)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Cookie", cleared)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.JSONEq(t, `{"kind":"","tutor":0,"student":0,"batch":0,"name":""}`, w.Body.String())
}

func TestSessionCookieAttributes(t *testing.T) {
	r := newEngine()
	r.GET("/in", func(c *gin.Context) {
		require.NoError(t, SignIn(c, auth.Identity{Kind: auth.TutorKind, TutorID: 1}))
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/in", nil))

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "test_session" {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, session.SameSite)
	assert.Equal(t, 86400, session.MaxAge)
}

func withIdentity(id auth.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(identityKey, id)
		c.Next()
	}
}

func TestRequireCapability(t *testing.T) {
	tutor := auth.Identity{Kind: auth.TutorKind, TutorID: 1}
	student := auth.Identity{Kind: auth.StudentKind, TutorID: 1, StudentID: 5}

	cases := []struct {
		name       string
		id         auth.Identity
		capability auth.Capability
		path       string
		status     int
		location   string
	}{
		{"tutor manages", tutor, auth.ManageTuition, "/batches", 200, ""},
		{"student portal", student, auth.ViewPortal, "/student/dashboard", 200, ""},
		{"anonymous page", auth.Identity{}, auth.ManageTuition, "/batches", 302, "/login"},
		{"anonymous portal", auth.Identity{}, auth.ViewPortal, "/student/dashboard", 302, "/student/login"},
		{"student on tutor page", student, auth.ManageTuition, "/batches", 302, "/student/dashboard"},
		{"tutor on portal", tutor, auth.ViewPortal, "/student/dashboard", 302, "/dashboard"},
		{"anonymous api", auth.Identity{}, auth.ManageTuition, "/api/attendance/save", 401, ""},
		{"student api", student, auth.ManageTuition, "/api/attendance/save", 403, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newEngine()
			r.GET(tc.path, withIdentity(tc.id), RequireCapability(tc.capability), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))

			assert.Equal(t, tc.status, w.Code)
			if tc.location != "" {
				assert.Equal(t, tc.location, w.Header().Get("Location"))
			}
		})
	}
}

func TestFlashesArePoppedOnce(t *testing.T) {
	r := newEngine()
	r.GET("/set", func(c *gin.Context) {
		AddFlash(c, FlashSuccess, "Batch created successfully")
		c.Status(http.StatusNoContent)
	})
	r.GET("/get", func(c *gin.Context) {
		c.JSON(http.StatusOK, Flashes(c))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/set", nil))

	req := httptest.NewRequest(http.MethodGet, "/get", nil)
	req.Header.Set("Cookie", cookies(w))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.JSONEq(t, `[{"Category":"success","Message":"Batch created successfully"}]`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/get", nil)
	req.Header.Set("Cookie", cookies(w))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "null", w.Body.String())
}

func TestCSRFRequiresToken(t *testing.T) {
	r := newEngine()
	r.Use(CSRF(CSRFConfig{Key: []byte("0123456789abcdef0123456789abcdef")}))
	r.GET("/form", func(c *gin.Context) { c.String(http.StatusOK, CSRFToken(c)) })
	r.POST("/api/attendance/save", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/form", nil))
	require.Equal(t, http.StatusOK, w.Code)
	token := w.Body.String()
	require.NotEmpty(t, token)
	jar := cookies(w)

	req := httptest.NewRequest(http.MethodPost, "/api/attendance/save", nil)
	req.Header.Set("Cookie", jar)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, dto.ErrorCodeForbidden, decodeError(t, w).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/attendance/save", nil)
	req.Header.Set("Cookie", jar)
	req.Header.Set(CSRFHeader, token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

type bindForm struct {
	Phone     string `form:"phone" binding:"required,phone10"`
	StartTime string `form:"start_time" binding:"omitempty,hhmm"`
}

func TestBindErrorNamesField(t *testing.T) {
	require.NoError(t, SetupValidation())

	r := gin.New()
	r.POST("/students", func(c *gin.Context) {
		var form bindForm
		err := BindError(c.ShouldBind(&form))
		c.JSON(StatusOf(err), gin.H{"field": FieldOf(err), "message": UserMessage(err)})
	})

	post := func(body string) string {
		req := httptest.NewRequest(http.MethodPost, "/students", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		return w.Body.String()
	}

	assert.JSONEq(t, `{"field":"phone","message":"Phone must be a 10-digit number"}`, post("phone=12345"))
	assert.JSONEq(t, `{"field":"start_time","message":"Start time must be in HH:MM format"}`, post("phone=9876543210&start_time=9am"))
}
