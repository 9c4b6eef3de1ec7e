// Package config 通过 Viper 从环境变量和可选的 .env 文件加载门户配置。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 门户服务配置
type Config struct {
	Port     string `mapstructure:"PORTAL_PORT"`
	Env      string `mapstructure:"PORTAL_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Kratos
	KratosPublicURL        string `mapstructure:"KRATOS_PUBLIC_URL"`
	KratosAdminURL         string `mapstructure:"KRATOS_ADMIN_URL"`
	KratosTokenizeTemplate string `mapstructure:"KRATOS_TOKENIZE_TEMPLATE"`
	// RequireSecondFactor 登录成功（aal1）后是否要求邮箱验证码二次验证
	RequireSecondFactor bool `mapstructure:"REQUIRE_SECOND_FACTOR"`

	// 后端会员 API
	MembersAPIBaseURL string        `mapstructure:"MEMBERS_API_BASE_URL"`
	MembersAPITimeout time.Duration `mapstructure:"MEMBERS_API_TIMEOUT"`

	// Redis 为空时验证流程使用内存存储
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// NATS 为空时不发布事件
	NATSURL string `mapstructure:"NATS_URL"`

	InstitutionDomain   string        `mapstructure:"INSTITUTION_DOMAIN"`
	RedirectAllowlist   string        `mapstructure:"REDIRECT_ALLOWLIST"`
	ResendCooldown      time.Duration `mapstructure:"RESEND_COOLDOWN"`
	FlowTTL             time.Duration `mapstructure:"FLOW_TTL"`
	FlowSweepSchedule   string        `mapstructure:"FLOW_SWEEP_SCHEDULE"`
	SessionCacheTTL     time.Duration `mapstructure:"SESSION_CACHE_TTL"`
	CookieSecure        bool          `mapstructure:"COOKIE_SECURE"`
	CORSAllowedOrigins  string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	ShutdownGracePeriod time.Duration `mapstructure:"SHUTDOWN_GRACE_PERIOD"`
}

// Load 读取 .env（若存在），再由环境变量覆盖，最后校验。
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile 与 Load 相同，但允许指定 .env 路径（测试使用）
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil && !isConfigMissing(err) {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	v.AutomaticEnv()

	v.SetDefault("PORTAL_PORT", "8080")
	v.SetDefault("PORTAL_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("KRATOS_PUBLIC_URL", "http://localhost:4433")
	v.SetDefault("KRATOS_ADMIN_URL", "http://localhost:4434")
	v.SetDefault("KRATOS_TOKENIZE_TEMPLATE", "")
	v.SetDefault("REQUIRE_SECOND_FACTOR", true)
	v.SetDefault("MEMBERS_API_BASE_URL", "http://localhost:8000/api")
	v.SetDefault("MEMBERS_API_TIMEOUT", "10s")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("NATS_URL", "")
	v.SetDefault("INSTITUTION_DOMAIN", "qu.edu.sa")
	v.SetDefault("REDIRECT_ALLOWLIST", "localhost,gdg-q.com,event.gdg-q.com")
	v.SetDefault("RESEND_COOLDOWN", "60s")
	v.SetDefault("FLOW_TTL", "30m")
	v.SetDefault("FLOW_SWEEP_SCHEDULE", "0 */5 * * * *")
	v.SetDefault("SESSION_CACHE_TTL", "30s")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("SHUTDOWN_GRACE_PERIOD", "10s")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// isConfigMissing .env 不存在属于正常情况，其余读取/解析错误都要上报
func isConfigMissing(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

func (c *Config) validate() error {
	if c.Port == "" {
		return errors.New("config: PORTAL_PORT must be set")
	}
	if c.KratosPublicURL == "" || c.KratosAdminURL == "" {
		return errors.New("config: KRATOS_PUBLIC_URL and KRATOS_ADMIN_URL must be set")
	}
	if c.InstitutionDomain == "" {
		return errors.New("config: INSTITUTION_DOMAIN must be set")
	}
	if len(c.AllowedRedirectDomains()) == 0 {
		return errors.New("config: REDIRECT_ALLOWLIST must contain at least one domain")
	}
	if c.ResendCooldown <= 0 {
		return errors.New("config: RESEND_COOLDOWN must be positive")
	}
	if c.FlowTTL <= c.ResendCooldown {
		return errors.New("config: FLOW_TTL must be longer than RESEND_COOLDOWN")
	}
	if !c.CookieSecure && c.IsProduction() {
		return errors.New("config: COOKIE_SECURE must be true when PORTAL_ENV=production")
	}
	return nil
}

// IsProduction 是否生产环境
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// AllowedRedirectDomains 跳转白名单域名列表
func (c *Config) AllowedRedirectDomains() []string {
	return splitList(c.RedirectAllowlist)
}

// CORSOrigins CORS 允许的来源
func (c *Config) CORSOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

// LogValue 输出配置时隐藏敏感字段
func (c *Config) LogValue() slog.Value {
	redisPassword := ""
	if c.RedisPassword != "" {
		redisPassword = "***REDACTED***"
	}
	return slog.GroupValue(
		slog.String("port", c.Port),
		slog.String("env", c.Env),
		slog.String("kratos_public_url", c.KratosPublicURL),
		slog.String("kratos_admin_url", c.KratosAdminURL),
		slog.String("members_api_base_url", c.MembersAPIBaseURL),
		slog.String("redis_addr", c.RedisAddr),
		slog.String("redis_password", redisPassword),
		slog.String("nats_url", c.NATSURL),
		slog.String("institution_domain", c.InstitutionDomain),
		slog.Any("redirect_allowlist", c.AllowedRedirectDomains()),
		slog.Duration("resend_cooldown", c.ResendCooldown),
		slog.Duration("flow_ttl", c.FlowTTL),
		slog.Bool("require_second_factor", c.RequireSecondFactor),
	)
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
