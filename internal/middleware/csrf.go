package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
	"github.com/yigit/tuitiontrack/internal/app/models/dto"
	"github.com/yigit/tuitiontrack/internal/pkg/logger"
)

// CSRFHeader is read by the JSON endpoints; forms post the csrf_token field.
const CSRFHeader = "X-CSRF-Token"

// CSRFConfig configures the token cookie.
type CSRFConfig struct {
	Key    []byte
	Secure bool
}

// CSRF protects every unsafe method with gorilla/csrf. Without Secure the
// requests are treated as plaintext HTTP so the Referer check is skipped.
func CSRF(cfg CSRFConfig) gin.HandlerFunc {
	protect := csrf.Protect(cfg.Key,
		csrf.Secure(cfg.Secure),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.FieldName("csrf_token"),
		csrf.RequestHeader(CSRFHeader),
		csrf.ErrorHandler(http.HandlerFunc(csrfFailure)),
	)

	return func(c *gin.Context) {
		passed := false
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			c.Next()
		})

		req := c.Request
		if !cfg.Secure {
			req = csrf.PlaintextHTTPRequest(req)
		}
		protect(next).ServeHTTP(c.Writer, req)
		if !passed {
			c.Abort()
		}
	}
}

func csrfFailure(w http.ResponseWriter, r *http.Request) {
	logger.Warn().
		Err(csrf.FailureReason(r)).
		Str("path", r.URL.Path).
		Msg("CSRF check failed")

	detail := dto.NewErrorDetail(dto.ErrorCodeForbidden, "Your session expired. Please reload the page and try again.")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(dto.NewErrorResponse(detail))
}

// CSRFToken returns the token for templates and page scripts.
func CSRFToken(c *gin.Context) string {
	return csrf.Token(c.Request)
}
