package validator

import (
	"testing"

	"gdg-portal/internal/pkg/xerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRules_ArabicName(t *testing.T) {
	r := NewRules("qu.edu.sa")

	assert.True(t, r.IsArabicName("محمد عبدالله"))
	assert.False(t, r.IsArabicName("Mohammed"))
	assert.False(t, r.IsArabicName("محمد Ali"), "任意拉丁字符都应拒绝")
	assert.False(t, r.IsArabicName("   "))
	assert.False(t, r.IsArabicName(""))
}

func TestRules_SaudiMobile(t *testing.T) {
	r := NewRules("qu.edu.sa")

	assert.True(t, r.IsSaudiMobile("0512345678"))
	assert.False(t, r.IsSaudiMobile("1512345678"))
	assert.False(t, r.IsSaudiMobile("051234567"), "9 位")
	assert.False(t, r.IsSaudiMobile("05123456789"), "11 位")
	assert.False(t, r.IsSaudiMobile("05-2345678"))
}

func TestRules_InstitutionalEmail(t *testing.T) {
	r := NewRules("@qu.edu.sa")

	assert.True(t, r.IsInstitutionalEmail("441234567@qu.edu.sa"))
	assert.True(t, r.IsInstitutionalEmail("Someone@QU.EDU.SA"))
	assert.True(t, r.IsInstitutionalEmail("staff@cs.qu.edu.sa"))
	assert.False(t, r.IsInstitutionalEmail("student@gmail.com"))
	assert.False(t, r.IsInstitutionalEmail("student@notqu.edu.sa"))
	assert.Equal(t, "441234567@qu.edu.sa", r.InstitutionalEmail("441234567"))
}

func TestRules_NormalizeIdentifier(t *testing.T) {
	r := NewRules("qu.edu.sa")

	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"学号", "441234567", "441234567@qu.edu.sa", true},
		{"学校邮箱", " 441234567@QU.edu.sa ", "441234567@qu.edu.sa", true},
		{"学号位数不对", "44123456", "", false},
		{"外部邮箱", "441234567@gmail.com", "", false},
		{"学校邮箱但前缀不是学号", "someone@qu.edu.sa", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.NormalizeIdentifier(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

type signUpForm struct {
	UniversityID string `json:"university_id" validate:"required,university_id"`
	Password     string `json:"password" validate:"required,min=8"`
	Email        string `json:"personal_email" validate:"required,email,non_institutional_email"`
}

func TestCustomValidator_FieldErrors(t *testing.T) {
	v := New("qu.edu.sa")

	err := v.Validate(&signUpForm{UniversityID: "12", Password: "short", Email: "x@qu.edu.sa"})
	require.Error(t, err)

	appErr, ok := xerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, xerrors.CodeInvalidParams, appErr.Code)

	fields, ok := appErr.Context.Metadata["fields"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "University ID must be exactly 9 digits", fields["university_id"])
	assert.Equal(t, "password must be at least 8 characters", fields["password"])
	assert.Equal(t, "Personal email cannot be a university address", fields["personal_email"])
}

func TestCustomValidator_Valid(t *testing.T) {
	v := New("qu.edu.sa")
	assert.NoError(t, v.Validate(&signUpForm{UniversityID: "441234567", Password: "longenough", Email: "me@gmail.com"}))
}
