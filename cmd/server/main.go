package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/canonid/canonid/modules/authapi"
	"github.com/canonid/canonid/modules/hooks"
	"github.com/canonid/canonid/pkg/config"
	"github.com/canonid/canonid/pkg/email"
	"github.com/canonid/canonid/pkg/httpserver"
	"github.com/canonid/canonid/pkg/logger"
	"github.com/canonid/canonid/pkg/ratelimit"
	"github.com/canonid/canonid/pkg/redis"
	"github.com/canonid/canonid/svc/directory"
	"github.com/canonid/canonid/svc/reconcile"
	"github.com/canonid/canonid/svc/store"
	"github.com/canonid/canonid/svc/verification"
)

// appConfig selects between production adapters and their in-process
// development stand-ins.
type appConfig struct {
	// DirectoryMode is "admin" for the HTTP admin client or "memory" for
	// the in-process directory used in development.
	DirectoryMode string `env:"DIRECTORY_MODE" envDefault:"admin"`
	// VerificationMode is "redis" or "memory".
	VerificationMode string `env:"VERIFICATION_MODE" envDefault:"redis"`
}

func main() {
	ctx := context.Background()

	var logCfg logger.Config
	config.MustLoad(&logCfg)
	log := logger.NewFromConfig(logCfg)
	logger.SetAsDefault(log)

	var appCfg appConfig
	config.MustLoad(&appCfg)

	var pgCfg store.Config
	config.MustLoad(&pgCfg)
	pool, err := store.Connect(ctx, pgCfg)
	if err != nil {
		log.Error("postgres connection failed", logger.Error(err))
		os.Exit(1)
	}
	defer pool.Close()
	if err := store.Migrate(ctx, pool, pgCfg, log); err != nil {
		log.Error("postgres migration failed", logger.Error(err))
		os.Exit(1)
	}
	metadata := store.NewPostgres(pool)

	dir, err := buildDirectory(appCfg)
	if err != nil {
		log.Error("directory setup failed", logger.Error(err))
		os.Exit(1)
	}

	var verifyCfg verification.Config
	config.MustLoad(&verifyCfg)
	codes, err := buildVerificationStore(ctx, appCfg)
	if err != nil {
		log.Error("verification store setup failed", logger.Error(err))
		os.Exit(1)
	}

	var emailCfg email.Config
	config.MustLoad(&emailCfg)
	sender, err := buildSender(emailCfg)
	if err != nil {
		log.Error("email sender setup failed", logger.Error(err))
		os.Exit(1)
	}

	engine := reconcile.NewEngine(dir, metadata, reconcile.WithLogger(log))

	var limitCfg ratelimit.Config
	config.MustLoad(&limitCfg)
	limiter, err := ratelimit.New(limitCfg)
	if err != nil {
		log.Error("rate limiter setup failed", logger.Error(err))
		os.Exit(1)
	}

	var apiCfg authapi.Config
	config.MustLoad(&apiCfg)
	api := authapi.NewService(apiCfg, dir, metadata, engine, codes, verifyCfg.CodeTTL, sender,
		authapi.WithLogger(log),
		authapi.WithSetupThrottle(ratelimit.Middleware(limiter, ratelimit.ByClientIP())))
	hookSvc := hooks.NewService(engine, hooks.WithLogger(log))

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(30 * time.Second))
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	router.Mount("/auth", api.Handle())
	router.Mount("/hooks", hookSvc.Handle())

	var srvCfg httpserver.Config
	config.MustLoad(&srvCfg)
	server := httpserver.NewFromConfig(srvCfg, httpserver.WithLogger(log))
	if err := server.Run(ctx, router); err != nil {
		log.Error("http server stopped", logger.Error(err))
		os.Exit(1)
	}
}

func buildDirectory(appCfg appConfig) (directory.Directory, error) {
	if appCfg.DirectoryMode == "memory" {
		return directory.NewMemoryDirectory(), nil
	}
	var cfg directory.Config
	config.MustLoad(&cfg)
	return directory.NewAdminClient(cfg)
}

func buildVerificationStore(ctx context.Context, appCfg appConfig) (verification.Store, error) {
	if appCfg.VerificationMode == "memory" {
		return verification.NewMemoryStore(), nil
	}
	var cfg redis.Config
	config.MustLoad(&cfg)
	client, err := redis.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return verification.NewRedisStore(client), nil
}

func buildSender(cfg email.Config) (email.EmailSender, error) {
	if cfg.PostmarkServerToken == "" {
		return email.NewDevSender(cfg.DevOutputDir), nil
	}
	return email.NewPostmarkClient(cfg)
}
