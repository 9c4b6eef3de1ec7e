package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "qu.edu.sa", cfg.InstitutionDomain)
	assert.Equal(t, 60*time.Second, cfg.ResendCooldown)
	assert.Equal(t, 30*time.Minute, cfg.FlowTTL)
	assert.True(t, cfg.RequireSecondFactor)
	assert.Equal(t, []string{"localhost", "gdg-q.com", "event.gdg-q.com"}, cfg.AllowedRedirectDomains())
}

func TestLoad_EnvVarOverride(t *testing.T) {
	t.Setenv("PORTAL_PORT", "9090")
	t.Setenv("RESEND_COOLDOWN", "30s")
	t.Setenv("REDIRECT_ALLOWLIST", " gdg-q.com , ,example.org")
	t.Setenv("REQUIRE_SECOND_FACTOR", "false")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.ResendCooldown)
	assert.False(t, cfg.RequireSecondFactor)
	assert.Equal(t, []string{"gdg-q.com", "example.org"}, cfg.AllowedRedirectDomains())
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MEMBERS_API_BASE_URL=https://api.gdg-q.com\nNATS_URL=nats://nats:4222\n"), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.gdg-q.com", cfg.MembersAPIBaseURL)
	assert.Equal(t, "nats://nats:4222", cfg.NATSURL)
}

func TestLoad_UnreadableEnvFile(t *testing.T) {
	malformed := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(malformed, []byte("NOT A VALID LINE\n"), 0o600))

	tests := []struct {
		name string
		path string
	}{
		{"格式错误的 .env", malformed},
		{"路径是目录", t.TempDir()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFile(tt.path)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), "config: read")
		})
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"冷却时间为零", map[string]string{"RESEND_COOLDOWN": "0s"}},
		{"流程有效期短于冷却时间", map[string]string{"FLOW_TTL": "30s"}},
		{"白名单为空", map[string]string{"REDIRECT_ALLOWLIST": " , "}},
		{"生产环境未开启安全 Cookie", map[string]string{"PORTAL_ENV": "production"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}

func TestConfig_LogValueRedactsPassword(t *testing.T) {
	cfg := &Config{RedisPassword: "s3cret", RedirectAllowlist: "localhost"}
	assert.NotContains(t, cfg.LogValue().String(), "s3cret")
}
