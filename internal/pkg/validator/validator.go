package validator

import (
	"errors"
	"reflect"
	"strings"

	"gdg-portal/internal/pkg/xerrors"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// CustomValidator wraps go-playground validator for Echo
type CustomValidator struct {
	validator *validator.Validate
	rules     *Rules
}

// Validate implements echo.Validator interface.
// Field failures are returned as a single AppError carrying one message per field.
func (cv *CustomValidator) Validate(i any) error {
	err := cv.validator.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return xerrors.NewValidationError("request", err.Error())
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = translateFieldError(fe)
		}
	}
	return xerrors.NewFieldErrors(fields)
}

// Var validates a single value against a tag expression
func (cv *CustomValidator) Var(value any, tag string) error {
	return cv.validator.Var(value, tag)
}

// New creates a validator with the portal rules registered.
// institutionDomain is the university mail domain (e.g. qu.edu.sa).
func New(institutionDomain string) *CustomValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report json names so field errors line up with the request payload
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	rules := NewRules(institutionDomain)
	_ = v.RegisterValidation("arabic_name", rules.validateArabicName)
	_ = v.RegisterValidation("saudi_mobile", rules.validateSaudiMobile)
	_ = v.RegisterValidation("university_id", rules.validateUniversityID)
	_ = v.RegisterValidation("non_institutional_email", rules.validateNonInstitutionalEmail)
	_ = v.RegisterValidation("portal_identifier", rules.validateIdentifier)

	return &CustomValidator{validator: v, rules: rules}
}

// Rules returns the portal rules backing the registered tags
func (cv *CustomValidator) Rules() *Rules {
	return cv.rules
}

var _ echo.Validator = (*CustomValidator)(nil)
