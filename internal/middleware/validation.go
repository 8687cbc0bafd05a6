package middleware

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/yigit/tuitiontrack/internal/pkg/apperrors"
	"github.com/yigit/tuitiontrack/internal/pkg/validation"
)

var (
	setupOnce sync.Once
	setupErr  error
)

// SetupValidation registers the custom form rules on gin's validator and
// reports fields by their form or json name.
func SetupValidation() error {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			setupErr = errors.New("unexpected validator engine")
			return
		}
		v.RegisterTagNameFunc(fieldName)
		setupErr = validation.RegisterRules(v)
	})
	return setupErr
}

func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"form", "json"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

// fieldLabel turns "start_time" into "Start time".
func fieldLabel(field string) string {
	label := strings.ReplaceAll(field, "_", " ")
	if label == "" {
		return "Field"
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

// BindError converts a ShouldBind failure into a validation error naming the
// first failed field. Malformed bodies become bad requests.
func BindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperrors.NewValidationError(fe.Field(), validation.FieldMessage(fieldLabel(fe.Field()), fe))
	}
	return apperrors.NewCustomError(apperrors.ErrBadRequest, "Invalid request format")
}
