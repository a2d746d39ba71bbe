package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/antiforge/internal/cache"
	redisx "github.com/dropDatabas3/antiforge/internal/cache/redis"
	"github.com/dropDatabas3/antiforge/internal/config"
	healthctrl "github.com/dropDatabas3/antiforge/internal/http/controllers/health"
	oauthctrl "github.com/dropDatabas3/antiforge/internal/http/controllers/oauth"
	sectrl "github.com/dropDatabas3/antiforge/internal/http/controllers/security"
	sessctrl "github.com/dropDatabas3/antiforge/internal/http/controllers/session"
	securitydto "github.com/dropDatabas3/antiforge/internal/http/dto/security"
	sessiondto "github.com/dropDatabas3/antiforge/internal/http/dto/session"
	"github.com/dropDatabas3/antiforge/internal/http/helpers"
	mw "github.com/dropDatabas3/antiforge/internal/http/middlewares"
	"github.com/dropDatabas3/antiforge/internal/http/router"
	oauthsvc "github.com/dropDatabas3/antiforge/internal/http/services/oauth"
	secsvc "github.com/dropDatabas3/antiforge/internal/http/services/security"
	sesssvc "github.com/dropDatabas3/antiforge/internal/http/services/session"
	"github.com/dropDatabas3/antiforge/internal/infra/cachefactory"
	jwtx "github.com/dropDatabas3/antiforge/internal/jwt"
	"github.com/dropDatabas3/antiforge/internal/metrics"
	"github.com/dropDatabas3/antiforge/internal/observability/logger"
	"github.com/dropDatabas3/antiforge/internal/rate"
	"github.com/dropDatabas3/antiforge/internal/store/pg"
)

// limiterAdapter traduce rate.Result al contrato del middleware.
type limiterAdapter struct{ l rate.Limiter }

func (a limiterAdapter) Allow(ctx context.Context, key string) (mw.RateLimitResult, error) {
	res, err := a.l.Allow(ctx, key)
	if err != nil {
		return mw.RateLimitResult{}, err
	}
	return mw.RateLimitResult{
		Allowed:    res.Allowed,
		Remaining:  res.Remaining,
		RetryAfter: res.RetryAfter,
		WindowTTL:  res.WindowTTL,
	}, nil
}

func main() {
	// .env si existe; si no, variables del sistema.
	_ = godotenv.Load()

	logger.Init(logger.Config{
		Env:         os.Getenv("APP_ENV"),
		Level:       os.Getenv("LOG_LEVEL"),
		ServiceName: "antiforge",
	})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal("config load failed", logger.Err(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ───────── Cache (session store) ─────────
	cacheClient, err := cachefactory.New(cache.Config{
		Driver:   cfg.Cache.Driver,
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Redis.Prefix,
	}, config.MustDuration(cfg.Cache.Memory.DefaultTTL))
	if err != nil {
		log.Fatal("cache init failed", logger.Err(err))
	}
	defer func() { _ = cacheClient.Close() }()

	// ───────── User store ─────────
	if cfg.Storage.DSN == "" {
		log.Fatal("storage.dsn requerido")
	}
	users, err := pg.New(ctx, cfg.Storage.DSN)
	if err != nil {
		log.Fatal("user store init failed", logger.Err(err))
	}
	defer users.Close()

	// ───────── JWT issuer (Bearer / PKCE) ─────────
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = cfg.JWT.Secret
	}
	issuer, err := jwtx.NewIssuer(cfg.JWT.Issuer, jwtSecret, config.MustDuration(cfg.JWT.AccessTTL))
	if err != nil {
		log.Fatal("jwt issuer init failed", logger.Err(err))
	}

	// ───────── Services ─────────
	xsrfService := secsvc.NewXSRFService(secsvc.Deps{
		Cache:  cacheClient,
		Config: securitydto.XSRFConfig{TTL: config.MustDuration(cfg.XSRF.TTL)},
	})

	sessionService := sesssvc.NewService(sesssvc.Deps{
		Cache: cacheClient,
		Users: users,
		Config: sessiondto.SessionConfig{
			CookieName: cfg.Session.CookieName,
			Domain:     cfg.Session.Domain,
			SameSite:   cfg.Session.SameSite,
			Secure:     cfg.Session.Secure,
			TTL:        config.MustDuration(cfg.Session.TTL),
		},
		OnLogout: xsrfService.Invalidate,
	})

	pkceService := oauthsvc.NewPKCEService(oauthsvc.Deps{
		Cache:     cacheClient,
		Issuer:    issuer,
		CodeTTL:   config.MustDuration(cfg.OAuth.CodeTTL),
		AccessTTL: config.MustDuration(cfg.JWT.AccessTTL),
	})

	// ───────── Cookie policies ─────────
	sessionCookie := helpers.CookiePolicy{
		Name:     cfg.Session.CookieName,
		Domain:   cfg.Session.Domain,
		SameSite: cfg.Session.SameSite,
		Secure:   cfg.Session.Secure,
		HTTPOnly: true,
		TTL:      config.MustDuration(cfg.Session.TTL),
	}
	xsrfCookie := helpers.CookiePolicy{
		Name:     cfg.XSRF.CookieName,
		Domain:   cfg.XSRF.Domain,
		SameSite: cfg.XSRF.SameSite,
		Secure:   cfg.XSRF.Secure,
		HTTPOnly: false,
		TTL:      config.MustDuration(cfg.XSRF.TTL),
	}

	// ───────── Rate limiters (solo con backend redis) ─────────
	var loginLimiter, initLimiter mw.RateLimiter
	if cfg.Rate.Enabled {
		if rc, ok := cacheClient.(*redisx.Client); ok {
			loginLimiter = limiterAdapter{rate.NewRedisLimiter(rc.Raw(), "rl:login:",
				cfg.Rate.Login.Limit, config.MustDuration(cfg.Rate.Login.Window))}
			initLimiter = limiterAdapter{rate.NewRedisLimiter(rc.Raw(), "rl:init:",
				cfg.Rate.Init.Limit, config.MustDuration(cfg.Rate.Init.Window))}
		} else {
			log.Warn("rate limiting habilitado pero el cache no es redis; deshabilitado")
		}
	}

	// ───────── Metrics ─────────
	metricsHandler, err := metrics.Register(nil)
	if err != nil {
		log.Fatal("metrics register failed", logger.Err(err))
	}

	// ───────── Router ─────────
	handler := router.New(router.Deps{
		XSRF:    sectrl.NewXSRFController(xsrfService, xsrfCookie),
		Session: sessctrl.NewController(sessionService, sessionCookie, xsrfCookie),
		OAuth:   oauthctrl.NewController(pkceService),
		Health:  healthctrl.NewController(cacheClient),

		SessionAuth: mw.WithSessionAuth(mw.SessionAuthConfig{
			CookieName:  cfg.Session.CookieName,
			AllowBearer: cfg.Session.AllowBearer,
			Sessions:    sessionService,
			Bearer:      issuer,
		}),
		XSRFGuard: mw.WithXSRFGuard(mw.XSRFConfig{
			HeaderName: cfg.XSRF.HeaderName,
			Validator:  xsrfService,
		}),
		CORS: mw.WithCORS(mw.CORSConfig{
			AllowedOrigins: cfg.Server.CORSAllowedOrigins,
			XSRFHeaderName: cfg.XSRF.HeaderName,
		}),

		LoginLimiter:   loginLimiter,
		InitLimiter:    initLimiter,
		MetricsHandler: metricsHandler,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  config.MustDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.MustDuration(cfg.Server.WriteTimeout),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", logger.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		return srv.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		log.Fatal("server failed", logger.Err(err))
	}
}
