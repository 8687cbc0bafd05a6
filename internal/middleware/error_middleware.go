package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yigit/tuitiontrack/internal/app/models/dto"
	"github.com/yigit/tuitiontrack/internal/pkg/apperrors"
	"github.com/yigit/tuitiontrack/internal/pkg/logger"
)

// ErrorTemplate is the page rendered for unexpected errors on page routes.
const ErrorTemplate = "error.html"

// errorClass is the HTTP shape of one apperrors category.
type errorClass struct {
	status   int
	code     dto.ErrorCode
	fallback string
}

var (
	classNotFound      = errorClass{http.StatusNotFound, dto.ErrorCodeResourceNotFound, "Resource not found"}
	classExists        = errorClass{http.StatusConflict, dto.ErrorCodeResourceAlreadyExists, "Resource already exists"}
	classConflict      = errorClass{http.StatusConflict, dto.ErrorCodeConflict, "The request conflicts with existing data"}
	classValidation    = errorClass{http.StatusBadRequest, dto.ErrorCodeValidationFailed, "Validation failed"}
	classBadRequest    = errorClass{http.StatusBadRequest, dto.ErrorCodeBadRequest, "Bad request"}
	classUnauthorized  = errorClass{http.StatusUnauthorized, dto.ErrorCodeUnauthorized, "Authentication required"}
	classInvalidOTP    = errorClass{http.StatusUnauthorized, dto.ErrorCodeInvalidOTP, "Invalid or expired verification code"}
	classForbidden     = errorClass{http.StatusForbidden, dto.ErrorCodeForbidden, "Permission denied"}
	classTransient     = errorClass{http.StatusServiceUnavailable, dto.ErrorCodeDatabaseBusy, "The server is busy. Please try again."}
	classInternalError = errorClass{http.StatusInternalServerError, dto.ErrorCodeInternalServer, "Internal server error"}
)

func classify(err error) errorClass {
	switch {
	case errors.Is(err, apperrors.ErrResourceNotFound):
		return classNotFound
	case errors.Is(err, apperrors.ErrResourceAlreadyExists):
		return classExists
	case errors.Is(err, apperrors.ErrConflict):
		return classConflict
	case errors.Is(err, apperrors.ErrValidationFailed):
		return classValidation
	case errors.Is(err, apperrors.ErrBadRequest):
		return classBadRequest
	case errors.Is(err, apperrors.ErrUnauthorized):
		return classUnauthorized
	case errors.Is(err, apperrors.ErrInvalidOTP):
		return classInvalidOTP
	case errors.Is(err, apperrors.ErrPermissionDenied):
		return classForbidden
	case errors.Is(err, apperrors.ErrTransient):
		return classTransient
	default:
		return classInternalError
	}
}

// StatusOf returns the HTTP status err maps to.
func StatusOf(err error) int {
	return classify(err).status
}

// UserMessage returns the text a user may see for err. Internal errors never
// leak their message.
func UserMessage(err error) string {
	class := classify(err)
	if class.status >= http.StatusInternalServerError {
		return class.fallback
	}
	return apperrors.Message(err, class.fallback)
}

// FieldOf returns the form field a validation error belongs to.
func FieldOf(err error) string {
	var ce *apperrors.CustomError
	if errors.As(err, &ce) && ce.Details != nil {
		if field, ok := ce.Details["field"].(string); ok {
			return field
		}
	}
	return ""
}

// IsAPIRequest reports routes answered with JSON.
func IsAPIRequest(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, "/api/")
}

// HandleAPIError handles common API errors and returns appropriate responses
func HandleAPIError(c *gin.Context, err error) {
	class := classify(err)
	if class.status >= http.StatusInternalServerError {
		logger.Error().
			Err(err).
			Str("requestID", RequestIDFrom(c)).
			Str("path", c.Request.URL.Path).
			Msg("Request failed")
	}

	detail := dto.NewErrorDetail(class.code, UserMessage(err))
	if field := FieldOf(err); field != "" {
		detail = detail.WithField(field)
	}
	c.AbortWithStatusJSON(class.status, dto.NewErrorResponse(detail))
}

// HandlePageError renders the generic error page. Page handlers redirect with
// a flash for expected errors and call this for the rest.
func HandlePageError(c *gin.Context, err error) {
	class := classify(err)
	if class.status >= http.StatusInternalServerError {
		logger.Error().
			Err(err).
			Str("requestID", RequestIDFrom(c)).
			Str("path", c.Request.URL.Path).
			Msg("Page failed")
	}
	c.HTML(class.status, ErrorTemplate, gin.H{
		"Status":    class.status,
		"Message":   UserMessage(err),
		"RequestID": RequestIDFrom(c),
		"Identity":  CurrentIdentity(c),
	})
	c.Abort()
}

// HandleError picks the JSON or the page rendering by route.
func HandleError(c *gin.Context, err error) {
	if IsAPIRequest(c) {
		HandleAPIError(c, err)
		return
	}
	HandlePageError(c, err)
}
