package validator

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// 阿拉伯文字符区块 U+0600–U+06FF 加空白
	arabicNamePattern   = regexp.MustCompile(`^[\x{0600}-\x{06FF}\s]+$`)
	saudiMobilePattern  = regexp.MustCompile(`^05\d{8}$`)
	universityIDPattern = regexp.MustCompile(`^\d{9}$`)
)

// Rules 门户的字段规则，同时供 tag 校验与业务代码直接调用
type Rules struct {
	institutionDomain string
}

// NewRules 创建规则集
func NewRules(institutionDomain string) *Rules {
	return &Rules{institutionDomain: strings.ToLower(strings.TrimPrefix(institutionDomain, "@"))}
}

// IsArabicName 只允许阿拉伯文字母和空白，且不能全为空白
func (r *Rules) IsArabicName(name string) bool {
	return strings.TrimSpace(name) != "" && arabicNamePattern.MatchString(name)
}

// IsSaudiMobile 05 开头共 10 位
func (r *Rules) IsSaudiMobile(phone string) bool {
	return saudiMobilePattern.MatchString(phone)
}

// IsUniversityID 9 位数字学号
func (r *Rules) IsUniversityID(id string) bool {
	return universityIDPattern.MatchString(id)
}

// IsInstitutionalEmail 是否为学校邮箱（含子域）
func (r *Rules) IsInstitutionalEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := email[at+1:]
	return domain == r.institutionDomain || strings.HasSuffix(domain, "."+r.institutionDomain)
}

// InstitutionalEmail 由学号拼出学校邮箱
func (r *Rules) InstitutionalEmail(universityID string) string {
	return universityID + "@" + r.institutionDomain
}

// NormalizeIdentifier 登录标识既可以是学号也可以是学校邮箱，统一成学校邮箱。
// 无法识别时返回 false。
func (r *Rules) NormalizeIdentifier(identifier string) (string, bool) {
	identifier = strings.TrimSpace(identifier)
	if r.IsUniversityID(identifier) {
		return r.InstitutionalEmail(identifier), true
	}
	lower := strings.ToLower(identifier)
	if strings.HasSuffix(lower, "@"+r.institutionDomain) && r.IsUniversityID(strings.TrimSuffix(lower, "@"+r.institutionDomain)) {
		return lower, true
	}
	return "", false
}

func (r *Rules) validateArabicName(fl validator.FieldLevel) bool {
	return r.IsArabicName(fl.Field().String())
}

func (r *Rules) validateSaudiMobile(fl validator.FieldLevel) bool {
	return r.IsSaudiMobile(fl.Field().String())
}

func (r *Rules) validateUniversityID(fl validator.FieldLevel) bool {
	return r.IsUniversityID(fl.Field().String())
}

func (r *Rules) validateNonInstitutionalEmail(fl validator.FieldLevel) bool {
	return !r.IsInstitutionalEmail(fl.Field().String())
}

func (r *Rules) validateIdentifier(fl validator.FieldLevel) bool {
	_, ok := r.NormalizeIdentifier(fl.Field().String())
	return ok
}
