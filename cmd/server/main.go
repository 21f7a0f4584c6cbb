package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/todokit/modules/auth"
	"github.com/dmitrymomot/todokit/modules/session"
	"github.com/dmitrymomot/todokit/modules/todo"
	"github.com/dmitrymomot/todokit/pkg/broadcast"
	"github.com/dmitrymomot/todokit/pkg/config"
	"github.com/dmitrymomot/todokit/pkg/cookie"
	"github.com/dmitrymomot/todokit/pkg/httpserver"
	"github.com/dmitrymomot/todokit/pkg/jwt"
	"github.com/dmitrymomot/todokit/pkg/logger"
	"github.com/dmitrymomot/todokit/pkg/mongo"
	"github.com/dmitrymomot/todokit/pkg/redis"
)

type appConfig struct {
	Env           string   `env:"APP_ENV" envDefault:"development"`
	JWTSigningKey string   `env:"JWT_SIGNING_KEY,required"`
	CookieSecrets []string `env:"COOKIE_SECRETS,required" envSeparator:","`
	SnapshotChan  string   `env:"SNAPSHOT_CHANNEL" envDefault:"todokit:snapshots"`
	GoogleOAuth   bool     `env:"GOOGLE_OAUTH_ENABLED" envDefault:"false"`
	GitHubOAuth   bool     `env:"GITHUB_OAUTH_ENABLED" envDefault:"false"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(logger.WithEnvironment(cfg.Env, "todokit"))
	logger.SetAsDefault(log)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	var mongoCfg mongo.Config
	config.MustLoad(&mongoCfg)

	mongoClient, err := mongo.New(ctx, mongoCfg)
	if err != nil {
		return err
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	db := mongoClient.Database(mongoCfg.Database)

	var redisCfg redis.Config
	config.MustLoad(&redisCfg)

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	defer func() { _ = redisClient.Close() }()

	tokens, err := jwt.NewFromString(cfg.JWTSigningKey)
	if err != nil {
		return err
	}

	cookies, err := cookie.New(cfg.CookieSecrets)
	if err != nil {
		return err
	}

	var sessionCfg session.Config
	config.MustLoad(&sessionCfg)
	sessions := session.NewManager(tokens, cookies, sessionCfg)

	adapter, err := auth.NewMongoAdapter(ctx, db)
	if err != nil {
		return err
	}

	var verifierCfg auth.BearerVerifierConfig
	config.MustLoad(&verifierCfg)
	verifier := auth.NewBearerVerifier(verifierCfg)

	password := auth.NewPasswordService(adapter, adapter,
		auth.WithPasswordLogger(log),
	)

	var bridgeCfg auth.BridgeConfig
	config.MustLoad(&bridgeCfg)
	bridge := auth.NewService(verifier, adapter, password, tokens, bridgeCfg,
		auth.WithBridgeLogger(log),
	)

	var providers []auth.ProviderAdapter
	if cfg.GoogleOAuth {
		var googleCfg auth.GoogleOAuthConfig
		config.MustLoad(&googleCfg)
		providers = append(providers, auth.NewGoogleAdapter(googleCfg))
	}
	if cfg.GitHubOAuth {
		var githubCfg auth.GitHubOAuthConfig
		config.MustLoad(&githubCfg)
		providers = append(providers, auth.NewGitHubAdapter(githubCfg))
	}
	oauth := auth.NewOAuthService(adapter, auth.NewMemoryStateStore(), providers,
		auth.WithOAuthLogger(log),
	)

	catalog, err := auth.LoadMessageCatalog()
	if err != nil {
		return err
	}

	broadcaster, err := broadcast.NewRedisBroadcaster[todo.Snapshot](ctx, redisClient, cfg.SnapshotChan, 64)
	if err != nil {
		return err
	}
	defer func() { _ = broadcaster.Close() }()

	registry := todo.NewRegistry()
	feed := todo.NewFeed(broadcaster, registry)

	repo, err := todo.NewMongoRepository(ctx, db)
	if err != nil {
		return err
	}
	todos := todo.NewService(repo, feed, todo.WithServiceLogger(log))

	authHandler := auth.NewHandler(bridge, oauth, sessions, adapter, catalog, registry, log)
	todoHandler := todo.NewHandler(todos, sessions, log)
	storeHandler := todo.NewStoreHandler(todos, bridge, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", httpserver.HealthCheckHandler(ctx, log,
		mongo.Healthcheck(mongoClient),
		redis.Healthcheck(redisClient),
	))

	r.Mount("/auth", authHandler.Routes())
	r.Mount("/api/todos", todoHandler.Routes())
	r.Mount("/store/todos", storeHandler.Routes())

	var serverCfg httpserver.Config
	config.MustLoad(&serverCfg)

	log.Info("starting server", slog.String("addr", serverCfg.Addr), slog.String("env", cfg.Env))
	return httpserver.NewFromConfig(serverCfg, httpserver.WithLogger(log)).Run(ctx, r)
}
