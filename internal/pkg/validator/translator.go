package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// translateFieldError 将单个字段错误转换为面向用户的英文提示
func translateFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Please enter a valid email address"
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "arabic_name":
		return "Name must be in Arabic characters only"
	case "saudi_mobile":
		return "Phone number must start with 05 followed by 8 digits"
	case "university_id":
		return "University ID must be exactly 9 digits"
	case "non_institutional_email":
		return "Personal email cannot be a university address"
	case "portal_identifier":
		return "Enter your 9-digit University ID or university email"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
