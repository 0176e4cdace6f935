package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	rdb "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/communo/internal/cache"
	"github.com/dropDatabas3/communo/internal/config"
	"github.com/dropDatabas3/communo/internal/domain/repository"
	httpx "github.com/dropDatabas3/communo/internal/http"
	"github.com/dropDatabas3/communo/internal/http/handlers"
	"github.com/dropDatabas3/communo/internal/http/services/auth"
	jwtx "github.com/dropDatabas3/communo/internal/jwt"
	"github.com/dropDatabas3/communo/internal/metrics"
	"github.com/dropDatabas3/communo/internal/oauth"
	"github.com/dropDatabas3/communo/internal/observability/logger"
	"github.com/dropDatabas3/communo/internal/rate"
	"github.com/dropDatabas3/communo/internal/security/password"
	"github.com/dropDatabas3/communo/internal/store/memory"
	"github.com/dropDatabas3/communo/internal/store/pg"
	"github.com/dropDatabas3/communo/migrations"
)

func main() {
	// .env es opcional: en prod todo viene por el entorno real.
	_ = godotenv.Load()

	var cfgPath string

	root := &cobra.Command{
		Use:   "communo",
		Short: "Servidor de cuentas y sesiones de communo",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "ruta del archivo de configuración")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el API HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones pendientes y termina",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			return migrate(cmd.Context(), cfg)
		},
	}

	var seedEmail, seedPassword, seedName, seedRole string
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Crea una cuenta local (email + password) para desarrollo",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			return seed(cmd.Context(), cfg, seedEmail, seedPassword, seedName, seedRole)
		},
	}
	seedCmd.Flags().StringVar(&seedEmail, "email", "", "email de la cuenta")
	seedCmd.Flags().StringVar(&seedPassword, "password", "", "password en claro (se hashea con argon2id)")
	seedCmd.Flags().StringVar(&seedName, "name", "", "nombre visible")
	seedCmd.Flags().StringVar(&seedRole, "role", repository.RoleUser, "rol inicial")
	_ = seedCmd.MarkFlagRequired("email")
	_ = seedCmd.MarkFlagRequired("password")

	root.AddCommand(serveCmd, migrateCmd, seedCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = config.FromEnv(), nil
	}
	if err != nil {
		return nil, err
	}
	// Config inválida corta acá, nunca a mitad de un request.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger.Init(logger.Config{Env: cfg.App.Env, Level: "info", ServiceName: "communo"})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	deps, cleanup, err := buildRouterDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := metrics.Register(nil); err != nil {
		return err
	}

	srv := httpx.NewServer(cfg.Server.Addr, httpx.NewRouter(deps))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", logger.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		return httpx.Shutdown(srv, 10*time.Second)
	})
	return g.Wait()
}

// buildRouterDeps arma store, cache, limiters, servicios y handlers según la
// config. El cleanup devuelto cierra lo que haya que cerrar.
func buildRouterDeps(ctx context.Context, cfg *config.Config) (httpx.RouterDeps, func(), error) {
	log := logger.L()

	var (
		users   repository.UserRepository
		tokens  repository.TokenRepository
		readyz  handlers.Pinger
		closers []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Storage.Driver {
	case "postgres":
		store, err := pg.New(ctx, cfg.Storage.DSN, pgOptions(cfg))
		if err != nil {
			return httpx.RouterDeps{}, cleanup, fmt.Errorf("storage: %w", err)
		}
		closers = append(closers, store.Close)
		users, tokens, readyz = store.Users(), store.Tokens(), store
		log.Info("storage ready", logger.String("driver", "postgres"))
	default:
		store := memory.New()
		users, tokens = store.Users(), store.Tokens()
		log.Warn("storage en memoria: los datos no sobreviven un reinicio")
	}

	var (
		stateCache    cache.Client
		loginLimiter  rate.Limiter
		socialLimiter rate.Limiter
	)
	if cfg.Cache.Kind == "redis" {
		client := rdb.NewClient(&rdb.Options{Addr: cfg.Cache.Redis.Addr, DB: cfg.Cache.Redis.DB})
		closers = append(closers, func() { _ = client.Close() })
		stateCache = cache.NewRedis(client, cfg.Cache.Redis.Prefix)
		if cfg.Rate.Enabled {
			loginLimiter = rate.NewLoginLimiter(client, cfg.Rate.Login.Limit, parseWindow(cfg.Rate.Login.Window))
			socialLimiter = rate.NewSocialLimiter(client, cfg.Rate.Social.Limit, parseWindow(cfg.Rate.Social.Window))
		}
		log.Info("cache ready", logger.String("kind", "redis"))
	} else {
		stateCache = cache.NewMemory("", parseWindow(cfg.Cache.Memory.DefaultTTL))
		if cfg.Rate.Enabled {
			log.Warn("rate limiting requiere redis; se arranca sin límites")
		}
	}

	providers := make(map[string]*oauth.Client, len(cfg.Providers))
	for name, p := range cfg.Providers {
		client, err := oauth.New(name, p.ClientID, p.ClientSecret, p.RedirectURL)
		if err != nil {
			return httpx.RouterDeps{}, cleanup, fmt.Errorf("provider %s: %w", name, err)
		}
		providers[name] = client
		log.Info("oauth provider registered", logger.Provider(name))
	}

	issuer := jwtx.NewIssuer([]byte(cfg.JWT.Secret), cfg.JWT.Issuer)

	deps := auth.Deps{
		Users:                users,
		Tokens:               tokens,
		Issuer:               issuer,
		AccessTTL:            cfg.AccessTTL(),
		RefreshTTL:           cfg.RefreshTTL(),
		SyntheticEmailDomain: cfg.Auth.SyntheticEmailDomain,
	}

	h := &handlers.Handlers{
		Reconcile:   auth.NewReconcileService(deps),
		Session:     auth.NewSessionService(deps),
		Login:       auth.NewLoginService(deps),
		Refresh:     auth.NewRefreshService(deps),
		Logout:      auth.NewLogoutService(deps),
		Deactivate:  auth.NewDeactivateService(deps),
		Providers:   providers,
		State:       stateCache,
		StateTTL:    cfg.StateTTL(),
		RedirectURL: cfg.Auth.RedirectURL,
		Cookie: handlers.CookieSettings{
			Domain:   cfg.Auth.Cookie.Domain,
			SameSite: cfg.Auth.Cookie.SameSite,
			Secure:   cfg.Auth.Cookie.Secure,
			TTL:      cfg.RefreshTTL(),
		},
	}

	return httpx.RouterDeps{
		Handlers:           h,
		Issuer:             issuer,
		Users:              users,
		Readyz:             readyz,
		LoginLimiter:       loginLimiter,
		SocialLimiter:      socialLimiter,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
	}, cleanup, nil
}

func migrate(ctx context.Context, cfg *config.Config) error {
	logger.Init(logger.Config{Env: cfg.App.Env, Level: "info", ServiceName: "communo"})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	if cfg.Storage.Driver != "postgres" {
		return fmt.Errorf("migrate requiere storage.driver=postgres")
	}

	store, err := pg.New(ctx, cfg.Storage.DSN, pgOptions(cfg))
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := store.Migrate(ctx, migrations.FS, migrations.Dir)
	if err != nil {
		return err
	}
	log.Info("migrations done",
		logger.Count(len(res.Applied)),
		logger.String("skipped", fmt.Sprint(res.Skipped)),
		logger.Duration(res.Duration),
	)
	return nil
}

// seed da de alta una cuenta del provider local. Es para entornos de
// desarrollo: en producción las cuentas llegan por el flujo social.
func seed(ctx context.Context, cfg *config.Config, email, plain, name, role string) error {
	logger.Init(logger.Config{Env: cfg.App.Env, Level: "info", ServiceName: "communo"})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	if cfg.Storage.Driver != "postgres" {
		return fmt.Errorf("seed requiere storage.driver=postgres")
	}
	store, err := pg.New(ctx, cfg.Storage.DSN, pgOptions(cfg))
	if err != nil {
		return err
	}
	defer store.Close()

	hash, err := password.Hash(password.Default, plain)
	if err != nil {
		return err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := store.Users().Create(ctx, repository.CreateUserInput{
		Email:        email,
		PasswordHash: &hash,
		Name:         name,
		Role:         role,
		Provider:     repository.ProviderLocal,
		ProviderID:   email,
	})
	if err != nil {
		return err
	}
	if err := store.Users().AddAuthority(ctx, u.ID, role); err != nil {
		return err
	}
	log.Info("local account created", logger.UserID(u.ID), logger.Email(email))
	return nil
}

func pgOptions(cfg *config.Config) pg.Options {
	opts := pg.Options{MaxConns: cfg.Storage.Postgres.MaxConns}
	if d, err := time.ParseDuration(cfg.Storage.Postgres.ConnMaxLifetime); err == nil {
		opts.ConnMaxLifetime = d
	}
	return opts
}

// parseWindow tolera strings inválidos: Validate ya rechazó los importantes.
func parseWindow(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}
