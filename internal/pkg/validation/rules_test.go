package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleForm struct {
	Name  string   `validate:"required,personname"`
	Phone string   `validate:"required,phone10"`
	Start string   `validate:"omitempty,hhmm"`
	Days  []string `validate:"omitempty,weekdays"`
}

func TestRegisterRules(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterRules(v))

	ok := sampleForm{Name: "Asha Rao", Phone: "9876543210", Start: "09:00", Days: []string{"mo", "we"}}
	assert.NoError(t, v.Struct(ok))

	tests := []struct {
		name string
		form sampleForm
		tag  string
	}{
		{"digits in name", sampleForm{Name: "Asha1", Phone: "9876543210"}, "personname"},
		{"short phone", sampleForm{Name: "Asha", Phone: "98765"}, "phone10"},
		{"bad time", sampleForm{Name: "Asha", Phone: "9876543210", Start: "9am"}, "hhmm"},
		{"bad weekday", sampleForm{Name: "Asha", Phone: "9876543210", Days: []string{"mo", "xx"}}, "weekdays"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.form)
			require.Error(t, err)
			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, tt.tag, verrs[0].Tag())
			assert.NotEmpty(t, FieldMessage("Field", verrs[0]))
		})
	}
}

func TestIsPersonName_Unicode(t *testing.T) {
	assert.True(t, IsPersonName("आशा राव"))
	assert.True(t, IsPersonName("José"))
	assert.False(t, IsPersonName("   "))
	assert.False(t, IsPersonName("O'Brien"))
}

func TestStringValidation_CountsRunes(t *testing.T) {
	assert.True(t, NewStringValidation("अब").WithMinLength(2).WithMaxLength(2).Validate())
	assert.False(t, NewStringValidation("a").WithMinLength(2).Validate())
	assert.True(t, NewStringValidation("").WithRequired(false).WithMinLength(2).Validate())
}
