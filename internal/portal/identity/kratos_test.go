package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	ory "github.com/ory/kratos-client-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdg-portal/internal/pkg/log"
	"gdg-portal/internal/pkg/xerrors"
)

func loginFlowJSON(id string, messages ...map[string]any) map[string]any {
	if messages == nil {
		messages = []map[string]any{}
	}
	return map[string]any{
		"id":          id,
		"type":        "api",
		"state":       "choose_method",
		"expires_at":  "2030-01-01T00:00:00Z",
		"issued_at":   "2025-01-01T00:00:00Z",
		"request_url": "http://kratos/self-service/login/api",
		"ui": map[string]any{
			"action":   "http://kratos/self-service/login?flow=" + id,
			"method":   "POST",
			"nodes":    []any{},
			"messages": messages,
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newTestProvider(t *testing.T, mux *http.ServeMux, cfg KratosConfig) *KratosProvider {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	cfg.PublicURL = srv.URL
	cfg.AdminURL = srv.URL
	return NewKratosProvider(cfg, log.Discard())
}

func TestKratosProvider_CreateSignIn_IdentifierNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /self-service/login/api", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, loginFlowJSON("flow-1"))
	})
	mux.HandleFunc("POST /self-service/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, loginFlowJSON("flow-1", map[string]any{
			"id":   4000006,
			"text": "The provided credentials are invalid.",
			"type": "error",
		}))
	})
	identities := "[]"
	mux.HandleFunc("GET /admin/identities", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "441234567@qu.edu.sa", r.URL.Query().Get("credentials_identifier"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(identities))
	})

	p := newTestProvider(t, mux, KratosConfig{})

	_, err := p.CreateSignIn(context.Background(), "441234567@qu.edu.sa", "wrong-password")
	assert.True(t, xerrors.HasCode(err, xerrors.CodeIdentifierNotFound))

	identities = `[{"id":"id-1","schema_id":"default","schema_url":"http://kratos/schemas/default","traits":{"email":"441234567@qu.edu.sa"}}]`
	_, err = p.CreateSignIn(context.Background(), "441234567@qu.edu.sa", "wrong-password")
	assert.True(t, xerrors.HasCode(err, xerrors.CodeInvalidCredentials))
}

func TestKratosProvider_GetSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sessions/whoami", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Session-Token") != "good-token" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"error": map[string]any{"code": 401, "message": "No valid session credentials found"},
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":                            "session-1",
			"active":                        true,
			"authenticator_assurance_level": "aal2",
			"identity": map[string]any{
				"id":         "id-1",
				"schema_id":  "default",
				"schema_url": "http://kratos/schemas/default",
				"traits":     map[string]any{"email": "441234567@qu.edu.sa", "uni_id": "441234567"},
				"metadata_public": map[string]any{
					"onboardingComplete": true,
					"uniLevel":           3,
				},
			},
		})
	})

	p := newTestProvider(t, mux, KratosConfig{})

	s, err := p.GetSession(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, "id-1", s.IdentityID)
	assert.Equal(t, "441234567@qu.edu.sa", s.Email)
	assert.Equal(t, "aal2", s.AAL)
	assert.True(t, s.OnboardingComplete())

	_, err = p.GetSession(context.Background(), "expired-token")
	assert.True(t, xerrors.HasCode(err, xerrors.CodeAuthenticationFailed))
}

func TestKratosProvider_GetSessionToken_WithoutTemplate(t *testing.T) {
	p := NewKratosProvider(KratosConfig{PublicURL: "http://127.0.0.1:0"}, log.Discard())

	token, err := p.GetSessionToken(context.Background(), "raw-token")
	require.NoError(t, err)
	assert.Equal(t, "raw-token", token)
}

func TestUIFailure(t *testing.T) {
	tests := []struct {
		name     string
		messages []ory.UiText
		want     xerrors.ErrorCode
		wantNil  bool
	}{
		{
			name:     "验证码错误",
			messages: []ory.UiText{{Id: 4070006, Text: "The verification code is invalid or has already been used.", Type: "error"}},
			want:     xerrors.CodeIncorrectCode,
		},
		{
			name:     "流程过期",
			messages: []ory.UiText{{Id: 4070005, Text: "expired", Type: "error"}},
			want:     xerrors.CodeSessionMissing,
		},
		{
			name:     "仅提示信息",
			messages: []ory.UiText{{Id: 1080003, Text: "An email containing a verification code has been sent.", Type: "info"}},
			wantNil:  true,
		},
		{
			name:     "未映射的错误",
			messages: []ory.UiText{{Id: 4000001, Text: "something", Type: "error"}},
			want:     xerrors.CodeKratosError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := uiFailure("test", ory.UiContainer{Messages: tt.messages})
			if tt.wantNil {
				assert.Nil(t, appErr)
				return
			}
			require.NotNil(t, appErr)
			assert.Equal(t, tt.want, appErr.Code)
		})
	}
}

func TestModelMessages_NodeMessages(t *testing.T) {
	flow := ory.RecoveryFlow{Ui: ory.UiContainer{
		Nodes: []ory.UiNode{{Messages: []ory.UiText{{Id: 4060006, Text: "invalid code", Type: "error"}}}},
	}}

	msgs := modelMessages(flow)
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(4060006), msgs[0].ID)
	assert.Nil(t, modelMessages("not a flow"))
}
