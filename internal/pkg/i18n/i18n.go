// File: internal/pkg/i18n/i18n.go
package i18n

import (
	"context"
	"strings"

	"gdg-portal/internal/pkg/ctxkey"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// 支持的语言
var (
	// 默认语言为英文
	DefaultLanguage = language.English
	// 支持的语言列表（第一个为默认）
	SupportedLanguages = []language.Tag{
		language.English, // en
		language.Arabic,  // ar
	}
	matcher = language.NewMatcher(SupportedLanguages)
)

// WithLanguage 在 context 中设置语言偏好
func WithLanguage(ctx context.Context, lang language.Tag) context.Context {
	return context.WithValue(ctx, ctxkey.Language, lang)
}

// GetLanguage 从 context 中获取语言偏好
func GetLanguage(ctx context.Context) language.Tag {
	if lang, ok := ctx.Value(ctxkey.Language).(language.Tag); ok {
		return lang
	}
	return DefaultLanguage
}

// ParseAcceptLanguage 解析 Accept-Language 头部
// 例如: "ar-SA,ar;q=0.9,en;q=0.8"
func ParseAcceptLanguage(acceptLanguage string) language.Tag {
	if acceptLanguage == "" {
		return DefaultLanguage
	}

	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return DefaultLanguage
	}

	_, index, _ := matcher.Match(tags...)
	return SupportedLanguages[index]
}

// ParseLanguageCode 从语言代码解析 Tag，支持 "en", "ar", "ar-SA" 等
func ParseLanguageCode(code string) language.Tag {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return DefaultLanguage
	}

	tag, err := language.Parse(code)
	if err != nil {
		return DefaultLanguage
	}

	_, index, _ := matcher.Match(tag)
	return SupportedLanguages[index]
}

// T 翻译函数 - 从 context 中获取语言并翻译
func T(ctx context.Context, key message.Reference, args ...any) string {
	return Translate(GetLanguage(ctx), key, args...)
}

// Translate 直接翻译（不依赖 context）
func Translate(lang language.Tag, key message.Reference, args ...any) string {
	p := message.NewPrinter(lang)
	return p.Sprintf(key, args...)
}

// GetLanguageCode 获取语言代码 (en, ar)
func GetLanguageCode(lang language.Tag) string {
	base, _ := lang.Base()
	return base.String()
}
