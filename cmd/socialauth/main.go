package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dropDatabas3/socialauth/internal/cache"
	"github.com/dropDatabas3/socialauth/internal/config"
	"github.com/dropDatabas3/socialauth/internal/events"
	httpx "github.com/dropDatabas3/socialauth/internal/http"
	authctl "github.com/dropDatabas3/socialauth/internal/http/controllers/auth"
	"github.com/dropDatabas3/socialauth/internal/http/services/session"
	"github.com/dropDatabas3/socialauth/internal/oauth"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"
	tokens "github.com/dropDatabas3/socialauth/internal/security/token"
	"github.com/dropDatabas3/socialauth/internal/store"
	"github.com/dropDatabas3/socialauth/internal/workflow"
	"github.com/dropDatabas3/socialauth/migrations"
)

// version se pisa en build con -ldflags "-X main.version=...".
var version = "dev"

func main() {
	var (
		configPath string
		envFile    string
	)

	root := &cobra.Command{
		Use:   "socialauth",
		Short: "Servicio de social login (OAuth2: google, facebook, github, linkedin, microsoft, twitter)",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "ruta a config.yaml (fallback: $CONFIG_PATH o configs/config.yaml)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "ruta a .env (si existe, se carga)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath, envFile)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Imprime la versión",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	root.AddCommand(serveCmd, versionCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func serve(configPath, envFile string) error {
	if envFile != "" && fileExists(envFile) {
		_ = godotenv.Load(envFile)
	}

	if configPath == "" {
		configPath = os.Getenv("CONFIG_PATH")
	}
	if configPath == "" {
		if fileExists("configs/config.yaml") {
			configPath = "configs/config.yaml"
		} else {
			configPath = "configs/config.example.yaml"
		}
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "socialauth",
		Version:     version,
	})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Cache: nonces de state y login codes.
	cc, err := cache.New(cache.Config{
		Driver:     cfg.Cache.Kind,
		Host:       cfg.Cache.Redis.Host,
		Port:       cfg.Cache.Redis.Port,
		Password:   cfg.Cache.Redis.Password,
		DB:         cfg.Cache.Redis.DB,
		Prefix:     cfg.Cache.Redis.Prefix,
		DefaultTTL: cfg.CacheDefaultTTL(),
	})
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cc.Close()

	// Store: usuarios e identidades sociales.
	repo, err := store.Open(ctx, store.Config{
		Driver: cfg.Storage.Driver,
		DSN:    cfg.Storage.DSN,
		Postgres: struct {
			MaxOpenConns, MaxIdleConns int
			ConnMaxLifetime            string
		}{
			MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Storage.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
		},
	})
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer repo.Close()

	if cfg.Storage.Migrate {
		if m, ok := repo.(interface {
			RunMigrations(context.Context, fs.FS, string) error
		}); ok {
			if err := m.RunMigrations(ctx, migrations.PostgresFS, migrations.PostgresDir); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
		}
	}

	// OAuth: firma de state + registro de providers.
	signer, err := oauth.NewHMACStateSigner([]byte(cfg.JWT.Secret), cfg.JWT.Issuer, cfg.StateTTL())
	if err != nil {
		return fmt.Errorf("state signer: %w", err)
	}
	registry := oauth.NewRegistry(signer, cc, cfg.StateTTL())
	registerProviders(registry, cfg, log)

	if len(registry.Providers()) == 0 {
		log.Warn("no social providers configured; only /auth/providers and health endpoints will respond",
			logger.Component("main"))
	}

	issuer := tokens.NewIssuer([]byte(cfg.JWT.Secret), cfg.JWT.Issuer, cfg.AccessTTL())

	bus := events.NewBus()
	events.RegisterLogging(bus)

	flow := workflow.New(workflow.Deps{
		Registry: registry,
		Users:    repo,
		Issuer:   issuer,
		Bus:      bus,
	})

	codes := session.NewCodes(cc, cfg.LoginCodeTTL())

	controllers := authctl.NewControllers(authctl.Deps{
		Registry:   registry,
		Flow:       flow,
		Codes:      codes,
		SuccessURL: cfg.Redirect.Success,
		FailureURL: cfg.Redirect.Failure,
		Cookie: authctl.CookieConfig{
			Name:     cfg.Auth.Session.CookieName,
			Domain:   cfg.Auth.Session.Domain,
			SameSite: cfg.Auth.Session.SameSite,
			Secure:   cfg.Auth.Session.Secure,
			TTL:      cfg.SessionTTL(),
		},
	})

	metricsHandler, err := httpx.RegisterMetrics(nil)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	router := httpx.NewRouter(httpx.RouterDeps{
		Controllers:        controllers,
		Metrics:            metricsHandler,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		Ready: func(ctx context.Context) error {
			if err := repo.Ping(ctx); err != nil {
				return fmt.Errorf("store: %w", err)
			}
			if err := cc.Ping(ctx); err != nil {
				return fmt.Errorf("cache: %w", err)
			}
			return nil
		},
	})

	srv := httpx.NewServer(cfg.Server.Addr, router)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// registerProviders construye y registra cada strategy configurada.
// Un provider marcado enabled sin credenciales queda afuera con warning.
func registerProviders(registry *oauth.Registry, cfg *config.Config, log *zap.Logger) {
	type build struct {
		name string
		p    config.Provider
		make func(oauth.Credentials, config.Provider) (oauth.Strategy, error)
	}

	builds := []build{
		{"google", cfg.Providers.Google, func(c oauth.Credentials, _ config.Provider) (oauth.Strategy, error) {
			return oauth.NewGoogle(c)
		}},
		{"facebook", cfg.Providers.Facebook, func(c oauth.Credentials, p config.Provider) (oauth.Strategy, error) {
			return oauth.NewFacebook(c, p.GraphAPIVersion)
		}},
		{"github", cfg.Providers.Github, func(c oauth.Credentials, _ config.Provider) (oauth.Strategy, error) {
			return oauth.NewGithub(c)
		}},
		{"linkedin", cfg.Providers.Linkedin, func(c oauth.Credentials, _ config.Provider) (oauth.Strategy, error) {
			return oauth.NewLinkedin(c)
		}},
		{"microsoft", cfg.Providers.Microsoft, func(c oauth.Credentials, p config.Provider) (oauth.Strategy, error) {
			return oauth.NewMicrosoft(c, p.Tenant)
		}},
		{"twitter", cfg.Providers.Twitter, func(c oauth.Credentials, _ config.Provider) (oauth.Strategy, error) {
			return oauth.NewTwitter(c)
		}},
	}

	for _, b := range builds {
		if !b.p.Configured() {
			if b.p.Enabled {
				log.Warn("provider enabled but missing credentials; skipping",
					logger.Component("main"), logger.Provider(b.name))
			}
			continue
		}
		id, secret := b.p.Credentials()
		s, err := b.make(oauth.Credentials{
			ClientID:     id,
			ClientSecret: secret,
			CallbackURL:  b.p.CallbackURL,
			Scopes:       b.p.Scopes,
		}, b.p)
		if err != nil {
			log.Warn("provider configuration invalid; skipping",
				logger.Component("main"), logger.Provider(b.name), logger.Err(err))
			continue
		}
		registry.Register(s)
		log.Info("social provider registered",
			logger.Component("main"), logger.Provider(b.name))
	}
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
