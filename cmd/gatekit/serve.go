package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/gatekit/internal/cache"
	"github.com/dropDatabas3/gatekit/internal/config"
	"github.com/dropDatabas3/gatekit/internal/email"
	apikeyctrl "github.com/dropDatabas3/gatekit/internal/http/controllers/apikey"
	cliauthctrl "github.com/dropDatabas3/gatekit/internal/http/controllers/cliauth"
	healthctrl "github.com/dropDatabas3/gatekit/internal/http/controllers/health"
	orgctrl "github.com/dropDatabas3/gatekit/internal/http/controllers/organization"
	sessionctrl "github.com/dropDatabas3/gatekit/internal/http/controllers/session"
	"github.com/dropDatabas3/gatekit/internal/http/router"
	apikeysvc "github.com/dropDatabas3/gatekit/internal/http/services/apikey"
	cliauthsvc "github.com/dropDatabas3/gatekit/internal/http/services/cliauth"
	sessionsvc "github.com/dropDatabas3/gatekit/internal/http/services/session"
	"github.com/dropDatabas3/gatekit/internal/metrics"
	"github.com/dropDatabas3/gatekit/internal/oauth"
	"github.com/dropDatabas3/gatekit/internal/oauth/github"
	"github.com/dropDatabas3/gatekit/internal/oauth/google"
	"github.com/dropDatabas3/gatekit/internal/oauth/microsoft"
	"github.com/dropDatabas3/gatekit/internal/observability/logger"
	"github.com/dropDatabas3/gatekit/internal/rate"
	tokens "github.com/dropDatabas3/gatekit/internal/security/token"
	"github.com/dropDatabas3/gatekit/internal/store"
	_ "github.com/dropDatabas3/gatekit/internal/store/memory"
	_ "github.com/dropDatabas3/gatekit/internal/store/pg"
	"github.com/dropDatabas3/gatekit/internal/sweeper"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP y el sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*configPath)
		},
	}
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       os.Getenv("LOG_LEVEL"),
		ServiceName: "gatekit",
		Version:     Version,
	})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─── Storage ───

	var storeCfg store.Config
	storeCfg.Driver = cfg.Storage.Driver
	storeCfg.DSN = cfg.Storage.DSN
	storeCfg.Postgres.MaxOpenConns = cfg.Storage.Postgres.MaxOpenConns
	storeCfg.Postgres.MaxIdleConns = cfg.Storage.Postgres.MaxIdleConns
	storeCfg.Postgres.ConnMaxLifetime = cfg.Storage.Postgres.ConnMaxLifetime

	st, err := store.Open(ctx, storeCfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	log.Info("store abierto", logger.Component("main"), logger.String("driver", cfg.Storage.Driver))

	// ─── Cache ───

	cacheClient, err := cache.New(cache.Config{
		Driver:   cfg.Cache.Kind,
		Host:     cfg.Cache.Redis.Host,
		Port:     cfg.Cache.Redis.Port,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Redis.Prefix,
	})
	if err != nil {
		return err
	}
	defer func() { _ = cacheClient.Close() }()

	// ─── Providers ───

	var provs []oauth.Provider
	if cfg.Providers.Google.ClientID != "" {
		g := google.New(oauth.Config{
			ClientID:     cfg.Providers.Google.ClientID,
			ClientSecret: cfg.Providers.Google.ClientSecret,
		})
		g.VerifyIDToken = cfg.Providers.Google.VerifyIDToken
		provs = append(provs, g)
	}
	if cfg.Providers.Microsoft.ClientID != "" {
		provs = append(provs, microsoft.New(oauth.Config{
			ClientID:     cfg.Providers.Microsoft.ClientID,
			ClientSecret: cfg.Providers.Microsoft.ClientSecret,
		}))
	}
	if cfg.Providers.GitHub.ClientID != "" {
		provs = append(provs, github.New(oauth.Config{
			ClientID:     cfg.Providers.GitHub.ClientID,
			ClientSecret: cfg.Providers.GitHub.ClientSecret,
		}))
	}
	registry := oauth.NewRegistry(provs...)
	if len(provs) == 0 {
		log.Warn("ningún provider OAuth configurado; los logins van a fallar", logger.Component("main"))
	}

	// ─── Services ───

	hasher := tokens.NewHasher(cfg.Auth.SessionPepper)

	states := cliauthsvc.NewStateService(cliauthsvc.StateDeps{
		States: st.AuthStates(),
		TTL:    config.Duration(cfg.Auth.StateTTL),
	})
	provisioning := cliauthsvc.NewProvisioningService(cliauthsvc.ProvisioningDeps{
		Users:         st.Users(),
		Organizations: st.Organizations(),
		Roles:         st.Roles(),
		Memberships:   st.Memberships(),
	})
	sessions := sessionsvc.New(sessionsvc.Deps{
		Sessions:    st.Sessions(),
		Memberships: st.Memberships(),
		Hasher:      hasher,
		TTL:         config.Duration(cfg.Auth.SessionTTL),
	})

	licensing := apikeysvc.NewCachedLicensing(
		apikeysvc.StaticLicensing{Limit: cfg.Licensing.MaxAPIKeys},
		cacheClient,
		config.Duration(cfg.Licensing.CacheTTL),
	)
	keys := apikeysvc.New(apikeysvc.Deps{
		Keys:         st.APIKeys(),
		Applications: st.Applications(),
		Licensing:    licensing,
		BcryptCost:   cfg.Auth.BcryptCost,
	})

	var notifier cliauthsvc.Notifier
	smtpCfg := email.SMTPConfig{
		Host:      cfg.SMTP.Host,
		Port:      cfg.SMTP.Port,
		Username:  cfg.SMTP.Username,
		Password:  cfg.SMTP.Password,
		FromEmail: cfg.SMTP.From,
		TLSMode:   cfg.SMTP.TLS,
	}
	if smtpCfg.Enabled() {
		notifier = email.NewLoginNotifier(email.FromConfig(smtpCfg))
		log.Info("notificaciones de login habilitadas", logger.Component("main"))
	}

	login := cliauthsvc.NewLoginService(cliauthsvc.LoginDeps{
		States:       states,
		Providers:    registry,
		Provisioning: provisioning,
		Sessions:     sessions,
		BaseURL:      cfg.Server.PublicBaseURL,
		Notifier:     notifier,
	})

	// ─── Rate limiting ───

	var loginLimiter rate.Limiter
	if cfg.Rate.Enabled {
		window := config.Duration(cfg.Rate.Login.Window)
		if rdbClient, ok := cache.Redis(cacheClient); ok {
			loginLimiter = rate.NewRedisLimiter(rdbClient, "gatekit:rl:login", cfg.Rate.Login.Limit, window)
		} else {
			loginLimiter = rate.NewMemoryLimiter(cfg.Rate.Login.Limit, window)
		}
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return err
	}

	// ─── HTTP ───

	handler := router.New(router.Deps{
		Login:        cliauthctrl.NewLoginController(login, states, registry),
		Session:      sessionctrl.NewSessionController(sessions),
		Organization: orgctrl.NewOrganizationController(provisioning),
		APIKey:       apikeyctrl.NewAPIKeyController(keys, st.Memberships()),
		Health:       healthctrl.NewHealthController(st),
		Sessions:     sessions,
		LoginLimiter: loginLimiter,
		CORSOrigins:  cfg.Server.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	sw := sweeper.New(st.AuthStates(), st.Sessions(), config.Duration(cfg.Sweeper.Interval))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("servidor HTTP escuchando", logger.Component("main"), logger.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sw.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("apagando servidor", logger.Component("main"))
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("apagado limpio", logger.Component("main"))
	return nil
}
