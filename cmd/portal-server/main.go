package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"gdg-portal/internal/middleware"
	"gdg-portal/internal/pkg/config"
	"gdg-portal/internal/pkg/i18n"
	"gdg-portal/internal/pkg/log"
	"gdg-portal/internal/pkg/metrics"
	"gdg-portal/internal/pkg/notify"
	"gdg-portal/internal/pkg/redis"
	"gdg-portal/internal/pkg/response"
	"gdg-portal/internal/pkg/sessioncache"
	"gdg-portal/internal/pkg/validator"
	"gdg-portal/internal/portal/docs"
	"gdg-portal/internal/portal/handler"
	"gdg-portal/internal/portal/identity"
	"gdg-portal/internal/portal/members"
	"gdg-portal/internal/portal/onboarding"
	"gdg-portal/internal/portal/redirect"
	"gdg-portal/internal/portal/session"
	"gdg-portal/internal/portal/tasks"
	"gdg-portal/internal/portal/verification"
)

// @title           GDG Portal API
// @version         1.0
// @description     GDG 学生组织门户：注册、登录、二次验证、找回密码与引导资料
// @BasePath  /

func main() {
	if err := run(); err != nil {
		log.Error("门户服务退出", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log.Init(log.ParseLevel(cfg.LogLevel), cfg.Env)
	logger := log.GetLogger()
	logger.Info("配置加载完成", log.Any("config", cfg))

	metrics.SetServiceName("portal")
	portalMetrics := metrics.DefaultPortalMetrics
	sessionMetrics := metrics.DefaultSessionMetrics

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 验证流程存储：配置了 Redis 时多实例共享，否则使用进程内存储并定时清理
	var (
		flows       verification.Store
		memoryFlows *verification.MemoryStore
		redisClient *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient, err = redis.NewClient(ctx, redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, portalMetrics)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		flows = verification.NewRedisStore(redisClient, cfg.FlowTTL)
		logger.Info("验证流程存储: redis", log.String("addr", cfg.RedisAddr))
	} else {
		memoryFlows = verification.NewMemoryStore(cfg.FlowTTL, portalMetrics)
		flows = memoryFlows
		logger.Info("验证流程存储: memory")
	}

	publisher, err := notify.Connect(cfg.NATSURL)
	if err != nil {
		return err
	}
	defer publisher.Close()
	if !publisher.Connected() {
		logger.Warn("未配置 NATS，门户事件不会发布")
	}

	provider := identity.NewKratosProvider(identity.KratosConfig{
		PublicURL:           cfg.KratosPublicURL,
		AdminURL:            cfg.KratosAdminURL,
		TokenizeTemplate:    cfg.KratosTokenizeTemplate,
		RequireSecondFactor: cfg.RequireSecondFactor,
	}, logger)

	respWriter := response.NewResponseHandler(logger)
	v := validator.New(cfg.InstitutionDomain)
	allowlist := redirect.NewAllowlist(cfg.AllowedRedirectDomains()...)

	cache := sessioncache.New(cfg.SessionCacheTTL, sessionMetrics, logger)
	sessions := session.NewReader(provider, cache, sessionMetrics, logger)

	onboardingService := onboarding.NewService(onboarding.Deps{
		Provider:  provider,
		Sessions:  sessions,
		Registrar: members.NewClient(cfg.MembersAPIBaseURL, cfg.MembersAPITimeout, portalMetrics, logger),
		Publisher: publisher,
		Allowlist: allowlist,
		Validator: v,
		Metrics:   portalMetrics,
		Logger:    logger,
	})

	portal := handler.New(handler.Deps{
		Provider:     provider,
		Sessions:     sessions,
		Onboarding:   onboardingService,
		Machine:      verification.NewMachine(cfg.ResendCooldown, portalMetrics, logger),
		Flows:        flows,
		Guard:        verification.NewGuard(),
		Allowlist:    allowlist,
		Validator:    v,
		RespWriter:   respWriter,
		Logger:       logger,
		CookieSecure: cfg.CookieSecure,
		FlowTTL:      cfg.FlowTTL,
	})

	checks := map[string]handler.ReadyCheck{"kratos": provider.Ready}
	if redisClient != nil {
		checks["redis"] = redisClient.Healthy
	}
	if publisher.Connected() {
		checks["nats"] = publisher.Healthy
	}
	ops := handler.NewOpsHandler(checks, respWriter, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = v
	e.HTTPErrorHandler = middleware.HTTPErrorHandler(respWriter, logger, portalMetrics)

	e.Use(middleware.TraceMiddleware())
	e.Use(middleware.RecoveryMiddleware(respWriter, logger))
	e.Use(middleware.LoggingMiddleware(logger))
	e.Use(metrics.Middleware(metrics.DefaultHTTPMetrics))
	e.Use(middleware.SecurityMiddleware(cfg.IsProduction()))
	e.Use(middleware.CORSMiddleware(cfg.CORSOrigins()))
	e.Use(i18n.Middleware())
	e.Use(middleware.GateMiddleware(middleware.GateConfig{
		Sessions:  sessions,
		Allowlist: allowlist,
		Metrics:   portalMetrics,
		Logger:    logger,
	}))

	portal.Register(e)
	e.GET("/health", ops.Health)
	e.GET("/ready", ops.Ready)
	e.GET("/metrics", metrics.EchoHandler())

	docs.SwaggerInfo.Host = ""
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// 进程内存储需要定时清理被放弃的流程；Redis 由 TTL 过期
	var sweepFlows tasks.FlowSweeper
	if memoryFlows != nil {
		sweepFlows = memoryFlows
	}
	sweeper := tasks.NewSweepTask(sweepFlows, cache, cfg.FlowSweepSchedule, logger)
	if err := sweeper.Start(); err != nil {
		return err
	}
	defer sweeper.Stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("门户服务启动", log.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("收到退出信号，开始优雅关闭")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("门户服务已停止")
	return nil
}
