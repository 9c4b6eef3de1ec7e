// Package redirect 校验调用方传入的 redirect_url，防止开放重定向。
package redirect

import (
	"net/url"
	"strings"
)

// QueryParam 携带跳转目标的查询参数名
const QueryParam = "redirect_url"

// DefaultDomains 默认信任的域名：本地开发、组织主域及活动子域
var DefaultDomains = []string{"localhost", "gdg-q.com", "event.gdg-q.com"}

// Allowlist 固定的可信域名集合
type Allowlist struct {
	domains []string
}

// NewAllowlist 创建白名单，域名统一小写，空项忽略
func NewAllowlist(domains ...string) *Allowlist {
	normalized := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.Trim(strings.ToLower(strings.TrimSpace(d)), ".")
		if d != "" {
			normalized = append(normalized, d)
		}
	}
	return &Allowlist{domains: normalized}
}

var defaultAllowlist = NewAllowlist(DefaultDomains...)

// IsAllowedRedirectURL 使用默认白名单校验
func IsAllowedRedirectURL(raw string) bool {
	return defaultAllowlist.IsAllowed(raw)
}

// IsAllowed 目标主机等于白名单域名或为其子域时返回 true。
// 解析失败、缺少主机、非 http(s) 协议一律拒绝。
func (a *Allowlist) IsAllowed(raw string) bool {
	if a == nil || raw == "" {
		return false
	}

	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return false
	}

	for _, domain := range a.domains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// Sanitize 通过校验时原样返回，否则返回空串。
// 所有跨请求携带的 redirect_url 都应先经过这里。
func (a *Allowlist) Sanitize(raw string) string {
	if a.IsAllowed(raw) {
		return strings.TrimSpace(raw)
	}
	return ""
}

// Resolve 返回可用的跳转目标，不合法时使用 fallback
func (a *Allowlist) Resolve(raw, fallback string) string {
	if target := a.Sanitize(raw); target != "" {
		return target
	}
	return fallback
}

// Domains 白名单副本
func (a *Allowlist) Domains() []string {
	return append([]string(nil), a.domains...)
}
