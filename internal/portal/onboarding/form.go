package onboarding

import (
	"slices"
	"strings"

	"gdg-portal/internal/portal/identity"
)

// OtherCollege 选择“其他”时必须填写 OtherCollege 文本
const OtherCollege = "other"

// Colleges 卡西姆大学学院列表
var Colleges = []string{
	"كلية الحاسب",
	"كلية الطب",
	"كلية طب الأسنان",
	"كلية الصيدلة",
	"كلية الهندسة",
	"كلية العلوم",
	"كلية العمارة والتخطيط",
	"كلية الزراعة والطب البيطري",
	"كلية الشريعة والدراسات الإسلامية",
	"كلية اللغة العربية والدراسات الاجتماعية",
	"كلية الاقتصاد والإدارة",
	"كلية العلوم الطبية التطبيقية",
	"كلية التمريض",
	"كلية التربية الدينية",
}

// Gender 可选值
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
)

// UniLevels 学年范围
const (
	MinUniLevel = 1
	MaxUniLevel = 10
)

// Form 引导表单
type Form struct {
	FullArabicName string `json:"full_arabic_name" form:"full_arabic_name" validate:"required,arabic_name"`
	SaudiPhone     string `json:"saudi_phone" form:"saudi_phone" validate:"required,saudi_mobile"`
	Gender         string `json:"gender" form:"gender" validate:"required,oneof=Male Female"`
	PersonalEmail  string `json:"personal_email" form:"personal_email" validate:"required,email,non_institutional_email"`
	UniLevel       int    `json:"uni_level" form:"uni_level" validate:"required,min=1,max=10"`
	UniCollege     string `json:"uni_college" form:"uni_college" validate:"required"`
	OtherCollege   string `json:"other_college,omitempty" form:"other_college"`
	RedirectURL    string `json:"redirect_url,omitempty" form:"redirect_url" query:"redirect_url"`
}

// Normalize 去除首尾空白
func (f *Form) Normalize() {
	f.FullArabicName = strings.TrimSpace(f.FullArabicName)
	f.SaudiPhone = strings.TrimSpace(f.SaudiPhone)
	f.PersonalEmail = strings.TrimSpace(f.PersonalEmail)
	f.UniCollege = strings.TrimSpace(f.UniCollege)
	f.OtherCollege = strings.TrimSpace(f.OtherCollege)
}

// College 最终写入的学院名：选择“其他”时取自由文本
func (f *Form) College() string {
	if f.UniCollege == OtherCollege {
		return f.OtherCollege
	}
	return f.UniCollege
}

// collegeErrors tag 无法表达的学院规则
func (f *Form) collegeErrors() map[string]string {
	switch {
	case f.UniCollege == OtherCollege && f.OtherCollege == "":
		return map[string]string{"other_college": "Please enter your college name"}
	case f.UniCollege != "" && f.UniCollege != OtherCollege && !slices.Contains(Colleges, f.UniCollege):
		return map[string]string{"uni_college": "Please select a college from the list"}
	}
	return nil
}

// Metadata 写入身份服务的公开元数据，onboardingComplete 与资料在同一次更新中
func (f *Form) Metadata(universityID string) map[string]any {
	md := map[string]any{
		identity.ClaimOnboardingComplete: true,
		identity.ClaimFullArabicName:     f.FullArabicName,
		identity.ClaimSaudiPhone:         f.SaudiPhone,
		identity.ClaimGender:             f.Gender,
		identity.ClaimPersonalEmail:      f.PersonalEmail,
		identity.ClaimUniLevel:           f.UniLevel,
		identity.ClaimUniCollege:         f.College(),
	}
	if universityID != "" {
		md[identity.ClaimUniversityID] = universityID
	}
	return md
}
