package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	ory "github.com/ory/kratos-client-go"

	"gdg-portal/internal/pkg/log"
	"gdg-portal/internal/pkg/xerrors"
)

const (
	methodPassword = "password"
	methodCode     = "code"

	aal2 = "aal2"

	stateSentEmail       = "sent_email"
	statePassedChallenge = "passed_challenge"
)

// KratosConfig Kratos 连接配置
type KratosConfig struct {
	PublicURL string
	AdminURL  string
	// TokenizeTemplate 非空时 GetSessionToken 返回按模板签发的 JWT
	TokenizeTemplate string
	// RequireSecondFactor 密码登录后要求邮箱二次验证
	RequireSecondFactor bool
	Timeout             time.Duration
}

// KratosProvider 基于 Ory Kratos Public/Admin API 的 Provider 实现（Native 模式）
type KratosProvider struct {
	cfg          KratosConfig
	publicClient *ory.APIClient
	adminClient  *ory.APIClient
	logger       log.Logger
}

var _ Provider = (*KratosProvider)(nil)

// NewKratosProvider 创建 Kratos 客户端
func NewKratosProvider(cfg KratosConfig, logger log.Logger) *KratosProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = log.GetLogger()
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}

	return &KratosProvider{
		cfg:          cfg,
		publicClient: newAPIClient(cfg.PublicURL, httpClient),
		adminClient:  newAPIClient(cfg.AdminURL, httpClient),
		logger:       logger.With("component", "kratos"),
	}
}

func newAPIClient(url string, httpClient *http.Client) *ory.APIClient {
	conf := ory.NewConfiguration()
	conf.Servers = []ory.ServerConfiguration{{URL: url}}
	conf.HTTPClient = httpClient
	return ory.NewAPIClient(conf)
}

// ==================== 注册 ====================

// CreateSignUp 注册并取得 Kratos 自动发起的邮箱验证流程
func (p *KratosProvider) CreateSignUp(ctx context.Context, email, universityID, password string) (*SignUpResult, error) {
	flow, resp, err := p.publicClient.FrontendAPI.CreateNativeRegistrationFlow(ctx).Execute()
	if err != nil {
		return nil, p.failure(ctx, "CreateNativeRegistrationFlow", resp, err)
	}

	body := ory.UpdateRegistrationFlowBody{
		UpdateRegistrationFlowWithPasswordMethod: &ory.UpdateRegistrationFlowWithPasswordMethod{
			Method:   methodPassword,
			Password: password,
			Traits: map[string]interface{}{
				"email":  email,
				"uni_id": universityID,
			},
		},
	}

	result, resp, err := p.publicClient.FrontendAPI.UpdateRegistrationFlow(ctx).
		Flow(flow.Id).
		UpdateRegistrationFlowBody(body).
		Execute()
	if err != nil {
		return nil, p.failure(ctx, "UpdateRegistrationFlow", resp, err)
	}

	out := &SignUpResult{IdentityID: result.Identity.Id}
	if result.SessionToken != nil {
		out.SessionToken = *result.SessionToken
	}
	for _, item := range result.ContinueWith {
		if v := item.ContinueWithVerificationUi; v != nil && v.Flow.Id != "" {
			out.VerificationFlowID = v.Flow.Id
		}
	}

	p.logger.InfoContext(ctx, "注册成功，等待邮箱验证",
		log.String("identity_id", out.IdentityID),
		log.Bool("verification_flow", out.VerificationFlowID != ""))
	return out, nil
}

// PrepareFirstFactor 发送邮箱验证码；在已有流程上再次提交邮箱即为重发
func (p *KratosProvider) PrepareFirstFactor(ctx context.Context, flowID, email string) (string, error) {
	if flowID == "" {
		flow, resp, err := p.publicClient.FrontendAPI.CreateNativeVerificationFlow(ctx).Execute()
		if err != nil {
			return "", p.failure(ctx, "CreateNativeVerificationFlow", resp, err)
		}
		flowID = flow.Id
	}

	body := ory.UpdateVerificationFlowBody{
		UpdateVerificationFlowWithCodeMethod: &ory.UpdateVerificationFlowWithCodeMethod{
			Method: methodCode,
			Email:  &email,
		},
	}

	flow, resp, err := p.publicClient.FrontendAPI.UpdateVerificationFlow(ctx).
		Flow(flowID).
		UpdateVerificationFlowBody(body).
		Execute()
	if err != nil {
		return "", p.failure(ctx, "UpdateVerificationFlow.send", resp, err)
	}
	if appErr := uiFailure("UpdateVerificationFlow.send", flow.Ui); appErr != nil {
		return "", appErr
	}
	return flowID, nil
}

// AttemptFirstFactor 错误验证码时 Kratos 返回 200 且 UI 中带错误消息
func (p *KratosProvider) AttemptFirstFactor(ctx context.Context, flowID, code string) error {
	body := ory.UpdateVerificationFlowBody{
		UpdateVerificationFlowWithCodeMethod: &ory.UpdateVerificationFlowWithCodeMethod{
			Method: methodCode,
			Code:   &code,
		},
	}

	flow, resp, err := p.publicClient.FrontendAPI.UpdateVerificationFlow(ctx).
		Flow(flowID).
		UpdateVerificationFlowBody(body).
		Execute()
	if err != nil {
		return p.failure(ctx, "UpdateVerificationFlow.verify", resp, err)
	}
	if appErr := uiFailure("UpdateVerificationFlow.verify", flow.Ui); appErr != nil {
		return appErr
	}
	if fmt.Sprint(flow.State) != statePassedChallenge {
		return xerrors.NewIncorrectCodeError().WithService("kratos", "UpdateVerificationFlow.verify")
	}
	return nil
}

// ==================== 登录 ====================

// CreateSignIn 密码登录。identifier 必须已归一化为邮箱。
func (p *KratosProvider) CreateSignIn(ctx context.Context, identifier, password string) (*SignInResult, error) {
	flow, resp, err := p.publicClient.FrontendAPI.CreateNativeLoginFlow(ctx).Execute()
	if err != nil {
		return nil, p.failure(ctx, "CreateNativeLoginFlow", resp, err)
	}

	body := ory.UpdateLoginFlowBody{
		UpdateLoginFlowWithPasswordMethod: &ory.UpdateLoginFlowWithPasswordMethod{
			Method:     methodPassword,
			Identifier: identifier,
			Password:   password,
		},
	}

	result, resp, err := p.publicClient.FrontendAPI.UpdateLoginFlow(ctx).
		Flow(flow.Id).
		UpdateLoginFlowBody(body).
		Execute()
	if err != nil {
		appErr := p.failure(ctx, "UpdateLoginFlow.password", resp, err)
		if appErr.Code == xerrors.CodeInvalidCredentials && !p.identifierExists(ctx, identifier) {
			return nil, xerrors.NewIdentifierNotFoundError().WithService("kratos", "UpdateLoginFlow.password")
		}
		return nil, appErr
	}

	out := &SignInResult{Status: StatusComplete}
	if result.SessionToken != nil {
		out.SessionToken = *result.SessionToken
	}
	if result.Session.Identity != nil {
		out.IdentityID = result.Session.Identity.Id
	}

	aal := ""
	if result.Session.AuthenticatorAssuranceLevel != nil {
		aal = string(*result.Session.AuthenticatorAssuranceLevel)
	}
	if p.cfg.RequireSecondFactor && aal != aal2 {
		out.Status = StatusNeedsSecondFactor
	}

	p.logger.InfoContext(ctx, "密码验证通过",
		log.String("identity_id", out.IdentityID),
		log.String("status", string(out.Status)))
	return out, nil
}

// PrepareSecondFactor 以一级会话创建 aal2 登录流程并发送邮箱验证码。
// Kratos 对“已发送”返回 400 + state=sent_email，这里视为成功。
func (p *KratosProvider) PrepareSecondFactor(ctx context.Context, flowID, sessionToken, email string) (string, error) {
	body := ory.UpdateLoginFlowWithCodeMethod{
		Method:  methodCode,
		Address: &email,
	}

	if flowID == "" {
		flow, resp, err := p.publicClient.FrontendAPI.CreateNativeLoginFlow(ctx).
			Aal(aal2).
			XSessionToken(sessionToken).
			Execute()
		if err != nil {
			return "", p.failure(ctx, "CreateNativeLoginFlow.aal2", resp, err)
		}
		flowID = flow.Id
	} else {
		resend := methodCode
		body.Resend = &resend
	}

	_, resp, err := p.publicClient.FrontendAPI.UpdateLoginFlow(ctx).
		Flow(flowID).
		XSessionToken(sessionToken).
		UpdateLoginFlowBody(ory.UpdateLoginFlowBody{UpdateLoginFlowWithCodeMethod: &body}).
		Execute()
	if err != nil {
		if loginFlowState(err) == stateSentEmail {
			return flowID, nil
		}
		return "", p.failure(ctx, "UpdateLoginFlow.send_code", resp, err)
	}
	return flowID, nil
}

// AttemptSecondFactor 校验二次验证码。Kratos 原地提升会话时可能不返回新令牌。
func (p *KratosProvider) AttemptSecondFactor(ctx context.Context, flowID, sessionToken, code string) (string, error) {
	body := ory.UpdateLoginFlowBody{
		UpdateLoginFlowWithCodeMethod: &ory.UpdateLoginFlowWithCodeMethod{
			Method: methodCode,
			Code:   &code,
		},
	}

	result, resp, err := p.publicClient.FrontendAPI.UpdateLoginFlow(ctx).
		Flow(flowID).
		XSessionToken(sessionToken).
		UpdateLoginFlowBody(body).
		Execute()
	if err != nil {
		return "", p.failure(ctx, "UpdateLoginFlow.verify_code", resp, err)
	}

	if result.SessionToken != nil && *result.SessionToken != "" {
		return *result.SessionToken, nil
	}
	return sessionToken, nil
}

// ==================== 密码重置 ====================

// PrepareReset Kratos 对不存在的邮箱同样回复“已发送”，所以先用 Admin API 确认账号存在
func (p *KratosProvider) PrepareReset(ctx context.Context, flowID, email string) (string, error) {
	if flowID == "" {
		if !p.identifierExists(ctx, email) {
			return "", xerrors.NewIdentifierNotFoundError().WithService("kratos", "PrepareReset")
		}

		flow, resp, err := p.publicClient.FrontendAPI.CreateNativeRecoveryFlow(ctx).Execute()
		if err != nil {
			return "", p.failure(ctx, "CreateNativeRecoveryFlow", resp, err)
		}
		flowID = flow.Id
	}

	body := ory.UpdateRecoveryFlowBody{
		UpdateRecoveryFlowWithCodeMethod: &ory.UpdateRecoveryFlowWithCodeMethod{
			Method: methodCode,
			Email:  &email,
		},
	}

	flow, resp, err := p.publicClient.FrontendAPI.UpdateRecoveryFlow(ctx).
		Flow(flowID).
		UpdateRecoveryFlowBody(body).
		Execute()
	if err != nil {
		return "", p.failure(ctx, "UpdateRecoveryFlow.send", resp, err)
	}
	if appErr := uiFailure("UpdateRecoveryFlow.send", flow.Ui); appErr != nil {
		return "", appErr
	}
	return flowID, nil
}

// AttemptReset 提交验证码取得特权会话与 settings 流程，再用它设置新密码
func (p *KratosProvider) AttemptReset(ctx context.Context, flowID, code, password string) (string, error) {
	body := ory.UpdateRecoveryFlowBody{
		UpdateRecoveryFlowWithCodeMethod: &ory.UpdateRecoveryFlowWithCodeMethod{
			Method: methodCode,
			Code:   &code,
		},
	}

	flow, resp, err := p.publicClient.FrontendAPI.UpdateRecoveryFlow(ctx).
		Flow(flowID).
		UpdateRecoveryFlowBody(body).
		Execute()
	if err != nil {
		return "", p.failure(ctx, "UpdateRecoveryFlow.verify", resp, err)
	}
	if appErr := uiFailure("UpdateRecoveryFlow.verify", flow.Ui); appErr != nil {
		return "", appErr
	}

	// 需要开启 feature_flags.use_continue_with_transitions
	var sessionToken, settingsFlowID string
	for _, item := range flow.ContinueWith {
		if v := item.ContinueWithSetOrySessionToken; v != nil {
			sessionToken = v.OrySessionToken
		}
		if v := item.ContinueWithSettingsUi; v != nil {
			settingsFlowID = v.Flow.Id
		}
	}
	if sessionToken == "" || settingsFlowID == "" {
		p.logger.ErrorContext(ctx, "重置验证码通过但响应缺少 continue_with", nil,
			log.String("flow_id", flowID))
		return "", xerrors.NewKratosError("UpdateRecoveryFlow.verify",
			errors.New("recovery response is missing continue_with items"))
	}

	settings := ory.UpdateSettingsFlowBody{
		UpdateSettingsFlowWithPasswordMethod: &ory.UpdateSettingsFlowWithPasswordMethod{
			Method:   methodPassword,
			Password: password,
		},
	}

	_, resp, err = p.publicClient.FrontendAPI.UpdateSettingsFlow(ctx).
		Flow(settingsFlowID).
		XSessionToken(sessionToken).
		UpdateSettingsFlowBody(settings).
		Execute()
	if err != nil {
		return "", p.failure(ctx, "UpdateSettingsFlow.password", resp, err)
	}

	p.logger.InfoContext(ctx, "密码重置成功", log.String("flow_id", flowID))
	return sessionToken, nil
}

// ==================== 会话 ====================

// GetSession whoami。未登录或会话失效时返回 CodeAuthenticationFailed。
func (p *KratosProvider) GetSession(ctx context.Context, sessionToken string) (*Session, error) {
	s, resp, err := p.publicClient.FrontendAPI.ToSession(ctx).
		XSessionToken(sessionToken).
		Execute()
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, xerrors.NewAuthError("session is not active").WithService("kratos", "ToSession")
		}
		return nil, p.failure(ctx, "ToSession", resp, err)
	}
	return toSession(sessionToken, s), nil
}

// GetSessionToken 每次调用都重新签发，保证声明是最新的
func (p *KratosProvider) GetSessionToken(ctx context.Context, sessionToken string) (string, error) {
	if p.cfg.TokenizeTemplate == "" {
		return sessionToken, nil
	}

	s, resp, err := p.publicClient.FrontendAPI.ToSession(ctx).
		XSessionToken(sessionToken).
		TokenizeAs(p.cfg.TokenizeTemplate).
		Execute()
	if err != nil {
		return "", p.failure(ctx, "ToSession.tokenize", resp, err)
	}
	if s.Tokenized == nil || *s.Tokenized == "" {
		return "", xerrors.NewKratosError("ToSession.tokenize", errors.New("tokenized session is empty"))
	}
	return *s.Tokenized, nil
}

// UpdateUserMetadata 合并后整体替换 metadata_public，保证单次原子写入
func (p *KratosProvider) UpdateUserMetadata(ctx context.Context, identityID string, metadata map[string]any) error {
	current, resp, err := p.adminClient.IdentityAPI.GetIdentity(ctx, identityID).Execute()
	if err != nil {
		return p.failure(ctx, "GetIdentity", resp, err)
	}

	merged := make(map[string]interface{}, len(metadata))
	if existing, ok := current.MetadataPublic.(map[string]interface{}); ok {
		for k, v := range existing {
			merged[k] = v
		}
	}
	for k, v := range metadata {
		merged[k] = v
	}

	patch := []ory.JsonPatch{{
		Op:    "add",
		Path:  "/metadata_public",
		Value: merged,
	}}

	_, resp, err = p.adminClient.IdentityAPI.PatchIdentity(ctx, identityID).
		JsonPatch(patch).
		Execute()
	if err != nil {
		return p.failure(ctx, "PatchIdentity", resp, err)
	}

	p.logger.InfoContext(ctx, "更新身份元数据成功",
		log.String("identity_id", identityID),
		log.Int("fields", len(metadata)))
	return nil
}

// RevokeSession Native 登出
func (p *KratosProvider) RevokeSession(ctx context.Context, sessionToken string) error {
	body := ory.NewPerformNativeLogoutBody(sessionToken)

	resp, err := p.publicClient.FrontendAPI.PerformNativeLogout(ctx).
		PerformNativeLogoutBody(*body).
		Execute()
	if err != nil {
		return p.failure(ctx, "PerformNativeLogout", resp, err)
	}
	return nil
}

// Ready Kratos 就绪检查
func (p *KratosProvider) Ready(ctx context.Context) error {
	_, resp, err := p.publicClient.MetadataAPI.IsReady(ctx).Execute()
	if err != nil {
		return p.failure(ctx, "IsReady", resp, err)
	}
	return nil
}

// identifierExists 通过 Admin API 查询凭证标识。查询失败时按存在处理，避免误报。
func (p *KratosProvider) identifierExists(ctx context.Context, identifier string) bool {
	identities, _, err := p.adminClient.IdentityAPI.ListIdentities(ctx).
		CredentialsIdentifier(identifier).
		Execute()
	if err != nil {
		p.logger.WarnContext(ctx, "查询身份标识失败", log.Err(err))
		return true
	}
	return len(identities) > 0
}

func toSession(token string, s *ory.Session) *Session {
	out := &Session{
		Token:  token,
		ID:     s.Id,
		Claims: map[string]any{},
	}
	if s.Active != nil {
		out.Active = *s.Active
	}
	if s.AuthenticatorAssuranceLevel != nil {
		out.AAL = string(*s.AuthenticatorAssuranceLevel)
	}
	if s.Identity != nil {
		out.IdentityID = s.Identity.Id
		if traits, ok := s.Identity.Traits.(map[string]interface{}); ok {
			out.Email, _ = traits["email"].(string)
		}
		if metadata, ok := s.Identity.MetadataPublic.(map[string]interface{}); ok {
			for k, v := range metadata {
				out.Claims[k] = v
			}
		}
	}
	return out
}
