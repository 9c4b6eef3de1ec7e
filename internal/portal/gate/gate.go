// Package gate 门禁策略：根据请求路径与会话投影决定放行或重定向。
//
// Decide 是 (route, session) 的全函数，没有任何副作用；中间件与页面级守卫
// 共用 Landing 做三分支落地决策，保证两处结果一致。
package gate

import (
	"strings"
)

// 门户路由
const (
	RootPath              = "/"
	SignInPath            = "/sign-in"
	SignUpPath            = "/sign-up"
	SignUpTasksPath       = "/sign-up/tasks"
	ForgotPasswordPath    = "/forgot-password"
	OnboardingPath        = "/onboarding"
	// OnboardingSignOutPath 引导页上的退出登录，未完成引导的用户也能注销
	OnboardingSignOutPath = "/onboarding/sign-out"
	ProfilePath           = "/user-profile"
)

// authRoutes 认证类路由及其子路径对所有人放行
var authRoutes = []string{SignInPath, SignUpPath, ForgotPasswordPath}

// Session 门禁所需的会话投影
type Session struct {
	UserID             string
	OnboardingComplete bool
}

// Authenticated 是否已登录
func (s Session) Authenticated() bool {
	return s.UserID != ""
}

// RouteClass 路由类别
type RouteClass int

const (
	ClassOther RouteClass = iota
	ClassAuth
	ClassOnboarding
	ClassProfile
	ClassRoot
)

func (c RouteClass) String() string {
	switch c {
	case ClassAuth:
		return "auth"
	case ClassOnboarding:
		return "onboarding"
	case ClassProfile:
		return "profile"
	case ClassRoot:
		return "root"
	default:
		return "other"
	}
}

// Outcome 门禁结果，五选一
type Outcome int

const (
	Allow Outcome = iota
	RedirectSignUp
	// RedirectSignIn 当前策略表不会产生，保留给页面级守卫与后续路由
	RedirectSignIn
	RedirectOnboarding
	RedirectProfile
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case RedirectSignUp:
		return "redirect_sign_up"
	case RedirectSignIn:
		return "redirect_sign_in"
	case RedirectOnboarding:
		return "redirect_onboarding"
	case RedirectProfile:
		return "redirect_profile"
	default:
		return "unknown"
	}
}

// Target 重定向目标路径，Allow 返回空串
func (o Outcome) Target() string {
	switch o {
	case RedirectSignUp:
		return SignUpPath
	case RedirectSignIn:
		return SignInPath
	case RedirectOnboarding:
		return OnboardingPath
	case RedirectProfile:
		return ProfilePath
	default:
		return ""
	}
}

// IsRedirect 是否为重定向
func (o Outcome) IsRedirect() bool {
	return o != Allow
}

// Classify 对请求路径分类。末尾斜杠被忽略（根路径除外）。
func Classify(path string) RouteClass {
	path = normalize(path)

	switch path {
	case RootPath:
		return ClassRoot
	case OnboardingPath, OnboardingSignOutPath:
		return ClassOnboarding
	case ProfilePath:
		return ClassProfile
	}

	for _, route := range authRoutes {
		if path == route || strings.HasPrefix(path, route+"/") {
			return ClassAuth
		}
	}
	return ClassOther
}

// Decide 按优先级匹配第一条规则：
//  1. 认证路由：始终放行
//  2. 引导路由：已登录放行，否则去注册
//  3. 个人主页：已登录且完成引导放行，否则去注册或引导
//  4. 根路由与其他路由：落到会话状态对应的页面，从不停留在原路径
func Decide(path string, s Session) Outcome {
	switch Classify(path) {
	case ClassAuth:
		return Allow
	case ClassOnboarding:
		if s.Authenticated() {
			return Allow
		}
		return RedirectSignUp
	case ClassProfile:
		if s.Authenticated() && s.OnboardingComplete {
			return Allow
		}
		return Landing(s)
	default:
		return Landing(s)
	}
}

// Landing 三分支落地决策：未登录去注册，未完成引导去引导，否则去个人主页
func Landing(s Session) Outcome {
	switch {
	case !s.Authenticated():
		return RedirectSignUp
	case !s.OnboardingComplete:
		return RedirectOnboarding
	default:
		return RedirectProfile
	}
}

// SignedInLanding 认证页面的自我重定向：已登录用户离开登录/注册页。
// 未登录时返回 Allow。
func SignedInLanding(s Session) Outcome {
	if !s.Authenticated() {
		return Allow
	}
	return Landing(s)
}

func normalize(path string) string {
	if path == "" {
		return RootPath
	}
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			return RootPath
		}
	}
	return path
}
