// Package identitytest 提供内存版身份服务，供处理器与流程测试使用。
package identitytest

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"gdg-portal/internal/pkg/xerrors"
	"gdg-portal/internal/portal/identity"
)

// DefaultCode 所有发送的验证码
const DefaultCode = "123456"

// Account 测试账号
type Account struct {
	IdentityID   string
	Email        string
	UniversityID string
	Password     string
	Verified     bool
	Metadata     map[string]any
}

type session struct {
	identityID string
	aal        string
}

type flow struct {
	email string
}

// Provider 内存实现，线程安全
type Provider struct {
	mu sync.Mutex

	Code                string
	RequireSecondFactor bool
	// 注入失败
	MetadataErr error
	ReadyErr    error

	accounts map[string]*Account // email -> account
	sessions map[string]session
	flows    map[string]flow
	seq      int

	SendCount     int
	MetadataCalls int
}

var _ identity.Provider = (*Provider)(nil)

func New() *Provider {
	return &Provider{
		Code:     DefaultCode,
		accounts: make(map[string]*Account),
		sessions: make(map[string]session),
		flows:    make(map[string]flow),
	}
}

// AddAccount 预置已验证账号
func (p *Provider) AddAccount(email, universityID, password string) *Account {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addAccountLocked(email, universityID, password, true)
}

// SignInAs 直接签发会话，返回令牌
func (p *Provider) SignInAs(email string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	acc := p.accounts[email]
	return p.newSessionLocked(acc.IdentityID, "aal2")
}

// Account 按邮箱返回账号副本
func (p *Provider) Account(email string) (Account, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	acc, ok := p.accounts[email]
	if !ok {
		return Account{}, false
	}
	out := *acc
	out.Metadata = maps.Clone(acc.Metadata)
	return out, true
}

func (p *Provider) addAccountLocked(email, universityID, password string, verified bool) *Account {
	p.seq++
	acc := &Account{
		IdentityID:   fmt.Sprintf("identity-%d", p.seq),
		Email:        email,
		UniversityID: universityID,
		Password:     password,
		Verified:     verified,
		Metadata:     map[string]any{},
	}
	p.accounts[email] = acc
	return acc
}

func (p *Provider) newSessionLocked(identityID, aal string) string {
	p.seq++
	token := fmt.Sprintf("token-%d", p.seq)
	p.sessions[token] = session{identityID: identityID, aal: aal}
	return token
}

func (p *Provider) newFlowLocked(email string) string {
	p.seq++
	id := fmt.Sprintf("flow-%d", p.seq)
	p.flows[id] = flow{email: email}
	return id
}

func (p *Provider) accountByIdentityLocked(identityID string) *Account {
	for _, acc := range p.accounts {
		if acc.IdentityID == identityID {
			return acc
		}
	}
	return nil
}

func (p *Provider) CreateSignUp(_ context.Context, email, universityID, password string) (*identity.SignUpResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.accounts[email]; exists {
		return nil, xerrors.FromCode(xerrors.CodeAccountExists)
	}
	acc := p.addAccountLocked(email, universityID, password, false)
	p.SendCount++

	return &identity.SignUpResult{
		IdentityID:         acc.IdentityID,
		SessionToken:       p.newSessionLocked(acc.IdentityID, "aal1"),
		VerificationFlowID: p.newFlowLocked(email),
	}, nil
}

func (p *Provider) PrepareFirstFactor(_ context.Context, flowID, email string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if flowID == "" {
		flowID = p.newFlowLocked(email)
	} else if _, ok := p.flows[flowID]; !ok {
		return "", xerrors.NewSessionMissingError("sign_up")
	}
	p.SendCount++
	return flowID, nil
}

func (p *Provider) AttemptFirstFactor(_ context.Context, flowID, code string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, ok := p.flows[flowID]
	if !ok {
		return xerrors.NewSessionMissingError("sign_up")
	}
	if code != p.Code {
		return xerrors.NewIncorrectCodeError()
	}
	if acc, ok := p.accounts[f.email]; ok {
		acc.Verified = true
	}
	delete(p.flows, flowID)
	return nil
}

func (p *Provider) CreateSignIn(_ context.Context, identifier, password string) (*identity.SignInResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	acc, ok := p.accounts[identifier]
	if !ok {
		return nil, xerrors.NewIdentifierNotFoundError()
	}
	if acc.Password != password {
		return nil, xerrors.FromCode(xerrors.CodeInvalidCredentials)
	}

	result := &identity.SignInResult{Status: identity.StatusComplete, IdentityID: acc.IdentityID}
	aal := "aal1"
	if p.RequireSecondFactor {
		result.Status = identity.StatusNeedsSecondFactor
	} else {
		aal = "aal2"
	}
	result.SessionToken = p.newSessionLocked(acc.IdentityID, aal)
	return result, nil
}

func (p *Provider) PrepareSecondFactor(_ context.Context, flowID, sessionToken, email string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.sessions[sessionToken]; !ok {
		return "", xerrors.NewSessionMissingError("second_factor")
	}
	if flowID == "" {
		flowID = p.newFlowLocked(email)
	}
	p.SendCount++
	return flowID, nil
}

func (p *Provider) AttemptSecondFactor(_ context.Context, flowID, sessionToken, code string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.sessions[sessionToken]
	if !ok {
		return "", xerrors.NewSessionMissingError("second_factor")
	}
	if _, ok := p.flows[flowID]; !ok {
		return "", xerrors.NewSessionMissingError("second_factor")
	}
	if code != p.Code {
		return "", xerrors.NewIncorrectCodeError()
	}
	s.aal = "aal2"
	p.sessions[sessionToken] = s
	delete(p.flows, flowID)
	return sessionToken, nil
}

func (p *Provider) PrepareReset(_ context.Context, flowID, email string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.accounts[email]; !ok {
		return "", xerrors.NewIdentifierNotFoundError()
	}
	if flowID == "" {
		flowID = p.newFlowLocked(email)
	}
	p.SendCount++
	return flowID, nil
}

func (p *Provider) AttemptReset(_ context.Context, flowID, code, password string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, ok := p.flows[flowID]
	if !ok {
		return "", xerrors.NewSessionMissingError("password_reset")
	}
	if code != p.Code {
		return "", xerrors.NewIncorrectCodeError()
	}
	acc := p.accounts[f.email]
	acc.Password = password
	delete(p.flows, flowID)
	return p.newSessionLocked(acc.IdentityID, "aal1"), nil
}

func (p *Provider) GetSession(_ context.Context, sessionToken string) (*identity.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.sessions[sessionToken]
	if !ok {
		return nil, xerrors.NewAuthError("session is not active")
	}
	acc := p.accountByIdentityLocked(s.identityID)
	if acc == nil {
		return nil, xerrors.NewAuthError("identity deleted")
	}
	return &identity.Session{
		Token:      sessionToken,
		ID:         "session-" + sessionToken,
		IdentityID: acc.IdentityID,
		Email:      acc.Email,
		AAL:        s.aal,
		Active:     true,
		Claims:     maps.Clone(acc.Metadata),
	}, nil
}

func (p *Provider) GetSessionToken(_ context.Context, sessionToken string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.sessions[sessionToken]; !ok {
		return "", xerrors.NewAuthError("session is not active")
	}
	return "jwt." + sessionToken, nil
}

func (p *Provider) UpdateUserMetadata(_ context.Context, identityID string, metadata map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.MetadataCalls++
	if p.MetadataErr != nil {
		return p.MetadataErr
	}
	acc := p.accountByIdentityLocked(identityID)
	if acc == nil {
		return xerrors.FromCode(xerrors.CodeResourceNotFound)
	}
	maps.Copy(acc.Metadata, metadata)
	return nil
}

func (p *Provider) RevokeSession(_ context.Context, sessionToken string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sessions, sessionToken)
	return nil
}

func (p *Provider) Ready(context.Context) error {
	return p.ReadyErr
}
