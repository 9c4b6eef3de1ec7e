// Package members 后端成员服务客户端。
//
// 后端从 Bearer 令牌的声明中读取资料创建成员，请求体为空；接口幂等，
// 重复注册返回 already_exists=true。
package members

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gdg-portal/internal/pkg/log"
	"gdg-portal/internal/pkg/metrics"
	"gdg-portal/internal/pkg/xerrors"
)

// Member 后端返回的成员
type Member struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	UniID       int64  `json:"uni_id"`
	Gender      string `json:"gender"`
	UniLevel    int    `json:"uni_level"`
	UniCollege  string `json:"uni_college"`
}

// CreateMemberResponse POST /members 的 2xx 响应
type CreateMemberResponse struct {
	Member        Member `json:"member"`
	AlreadyExists bool   `json:"already_exists"`
}

// Registrar 成员注册
type Registrar interface {
	CreateMember(ctx context.Context, bearerToken string) (*CreateMemberResponse, error)
}

// Client HTTP 实现
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *metrics.PortalMetrics
	logger     log.Logger
}

var _ Registrar = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration, m *metrics.PortalMetrics, logger log.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if m == nil {
		m = metrics.DefaultPortalMetrics
	}
	if logger == nil {
		logger = log.GetLogger()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		metrics:    m,
		logger:     logger.With("component", "members_client"),
	}
}

// CreateMember 非 2xx 返回 CodeExternalServiceError，由调用方决定是否吞掉
func (c *Client) CreateMember(ctx context.Context, bearerToken string) (*CreateMemberResponse, error) {
	if bearerToken == "" {
		return nil, xerrors.NewAuthError("missing bearer token").WithService("members", "CreateMember")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/members", nil)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeInternalError, "build members request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearerToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordMemberRegistration("error")
		return nil, xerrors.NewExternalServiceError("members", err).
			WithService("members", "CreateMember")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		c.metrics.RecordMemberRegistration("rejected")
		return nil, xerrors.NewExternalServiceError("members",
			fmt.Errorf("members api returned %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))).
			WithService("members", "CreateMember").
			WithMetadata("status_code", resp.StatusCode)
	}

	var out CreateMemberResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.metrics.RecordMemberRegistration("error")
		return nil, xerrors.NewExternalServiceError("members", fmt.Errorf("decode members response: %w", err)).
			WithService("members", "CreateMember")
	}

	outcome := "created"
	if out.AlreadyExists {
		outcome = "already_exists"
	}
	c.metrics.RecordMemberRegistration(outcome)
	c.logger.InfoContext(ctx, "成员注册成功",
		log.Int64("member_id", out.Member.ID),
		log.Bool("already_exists", out.AlreadyExists))
	return &out, nil
}
