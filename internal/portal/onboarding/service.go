// Package onboarding 引导资料提交。
//
// 顺序执行，不并行：校验 -> 写入元数据（含 onboardingComplete）-> 刷新会话 ->
// 后端注册成员（失败只记录）-> 计算跳转目标。
package onboarding

import (
	"context"
	"strings"

	"gdg-portal/internal/pkg/log"
	"gdg-portal/internal/pkg/metrics"
	"gdg-portal/internal/pkg/notify"
	"gdg-portal/internal/pkg/validator"
	"gdg-portal/internal/pkg/xerrors"
	"gdg-portal/internal/portal/gate"
	"gdg-portal/internal/portal/identity"
	"gdg-portal/internal/portal/members"
	"gdg-portal/internal/portal/redirect"
	"gdg-portal/internal/portal/session"
)

// Result 提交结果
type Result struct {
	RedirectTo string
	Session    session.State
	// Member 后端注册失败时为 nil，不影响 RedirectTo
	Member *members.Member
}

// Service 引导服务
type Service struct {
	provider  identity.Provider
	sessions  *session.Reader
	registrar members.Registrar
	publisher notify.Publisher
	allowlist *redirect.Allowlist
	validator *validator.CustomValidator
	metrics   *metrics.PortalMetrics
	logger    log.Logger
}

// Deps 构造参数
type Deps struct {
	Provider  identity.Provider
	Sessions  *session.Reader
	Registrar members.Registrar
	Publisher notify.Publisher
	Allowlist *redirect.Allowlist
	Validator *validator.CustomValidator
	Metrics   *metrics.PortalMetrics
	Logger    log.Logger
}

func NewService(d Deps) *Service {
	if d.Metrics == nil {
		d.Metrics = metrics.DefaultPortalMetrics
	}
	if d.Logger == nil {
		d.Logger = log.GetLogger()
	}
	if d.Publisher == nil {
		d.Publisher = notify.NewNATSPublisher(nil)
	}
	return &Service{
		provider:  d.Provider,
		sessions:  d.Sessions,
		registrar: d.Registrar,
		publisher: d.Publisher,
		allowlist: d.Allowlist,
		validator: d.Validator,
		metrics:   d.Metrics,
		logger:    d.Logger.With("component", "onboarding"),
	}
}

// Validate 本地校验，失败时返回按字段的 AppError，不会发出任何请求
func (s *Service) Validate(form *Form) error {
	form.Normalize()

	fields := map[string]string{}
	if err := s.validator.Validate(form); err != nil {
		appErr, ok := xerrors.As(err)
		if !ok || appErr.Context == nil {
			return err
		}
		existing, _ := appErr.Context.Metadata["fields"].(map[string]string)
		if existing == nil {
			return appErr
		}
		for k, v := range existing {
			fields[k] = v
		}
	}
	for k, v := range form.collegeErrors() {
		if _, seen := fields[k]; !seen {
			fields[k] = v
		}
	}

	if len(fields) > 0 {
		return xerrors.NewFieldErrors(fields)
	}
	return nil
}

// Submit 执行完整的引导提交流程
func (s *Service) Submit(ctx context.Context, current session.State, form Form) (*Result, error) {
	if !current.IsAuthenticated() {
		return nil, xerrors.NewAuthError("not authenticated")
	}

	// 1. 本地校验
	if err := s.Validate(&form); err != nil {
		s.metrics.RecordOnboarding("invalid")
		return nil, err
	}

	// 2. 写入元数据，失败即中止，不自动重试
	metadata := form.Metadata(s.universityID(current))
	if err := s.provider.UpdateUserMetadata(ctx, current.UserID, metadata); err != nil {
		s.metrics.RecordOnboarding("metadata_failed")
		s.logger.ErrorContext(ctx, "写入引导资料失败", err, log.String("identity_id", current.UserID))
		if appErr, ok := xerrors.As(err); ok {
			return nil, appErr
		}
		return nil, xerrors.NewUnexpectedError(err)
	}

	// 3. 强制刷新，让后续请求看到新的 onboardingComplete
	refreshed, err := s.sessions.Refresh(ctx, current.Token)
	if err != nil || !refreshed.IsAuthenticated() {
		s.logger.WarnContext(ctx, "刷新会话失败，使用本地合并的声明", log.Err(err))
		refreshed = current
		refreshed.Claims = mergeClaims(current.Claims, metadata)
		refreshed.OnboardingComplete = true
	}

	result := &Result{
		Session:    refreshed,
		RedirectTo: s.allowlist.Resolve(form.RedirectURL, gate.ProfilePath),
	}

	// 4. 后端注册，尽力而为
	result.Member = s.registerMember(ctx, refreshed)

	s.metrics.RecordOnboarding("completed")
	s.publish(ctx, notify.SubjectOnboardingCompleted, map[string]any{
		"identity_id": refreshed.UserID,
		"profile":     profileClaims(metadata),
	})
	log.LogBusinessEvent(ctx, "onboarding_completed", "identity", refreshed.UserID, map[string]any{
		"member_registered": result.Member != nil,
	})

	// 5. 跳转
	return result, nil
}

func (s *Service) registerMember(ctx context.Context, st session.State) *members.Member {
	if s.registrar == nil {
		return nil
	}

	token, err := s.sessions.BackendToken(ctx, st.Token)
	if err == nil {
		var resp *members.CreateMemberResponse
		resp, err = s.registrar.CreateMember(ctx, token)
		if err == nil {
			s.publish(ctx, notify.SubjectMemberRegistrationSucceeded, map[string]any{
				"identity_id":    st.UserID,
				"member_id":      resp.Member.ID,
				"already_exists": resp.AlreadyExists,
			})
			return &resp.Member
		}
	}

	s.logger.WarnContext(ctx, "后端成员注册失败，已跳过",
		log.String("identity_id", st.UserID),
		log.Err(err))
	s.publish(ctx, notify.SubjectMemberRegistrationFailed, map[string]any{
		"identity_id": st.UserID,
		"reason":      err.Error(),
	})
	return nil
}

func (s *Service) publish(ctx context.Context, subject string, payload any) {
	if err := s.publisher.Publish(ctx, subject, payload); err != nil {
		s.logger.WarnContext(ctx, "发布门户事件失败",
			log.String("subject", subject),
			log.Err(err))
	}
}

// universityID 学号优先取声明，其次取学校邮箱的本地部分
func (s *Service) universityID(st session.State) string {
	if id, ok := st.Claims[identity.ClaimUniversityID].(string); ok && id != "" {
		return id
	}
	rules := s.validator.Rules()
	if rules.IsInstitutionalEmail(st.Email) {
		local, _, _ := strings.Cut(st.Email, "@")
		if rules.IsUniversityID(local) {
			return local
		}
	}
	return ""
}

func mergeClaims(base, update map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(update))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range update {
		out[k] = v
	}
	return out
}

// profileClaims 事件载荷只带资料字段
func profileClaims(metadata map[string]any) map[string]any {
	out := make(map[string]any, len(metadata))
	for k, v := range metadata {
		if k == identity.ClaimOnboardingComplete {
			continue
		}
		out[k] = v
	}
	return out
}
