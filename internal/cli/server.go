package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"trivia-duel-service/internal/app"
	"trivia-duel-service/internal/auth"
	"trivia-duel-service/internal/challenge"
	"trivia-duel-service/internal/config"
	"trivia-duel-service/internal/i18n"
	"trivia-duel-service/internal/infra/gemini"
	"trivia-duel-service/internal/infra/memory"
	"trivia-duel-service/internal/infra/neynar"
	pgstore "trivia-duel-service/internal/infra/postgres"
	redisstore "trivia-duel-service/internal/infra/redis"
	"trivia-duel-service/internal/infra/sqlite"
	"trivia-duel-service/internal/questions"
	transport "trivia-duel-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	catalog, err := i18n.Load()
	if err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.BankLoader = catalog
	if pool != nil {
		loader = pgstore.NewBankLoader(pool, catalog)
	}
	bankTTL := config.TTLDuration(cfg.Bank.TTL, 10*time.Minute)
	var banks questions.BankRepository
	if redisClient != nil {
		banks = redisstore.NewBankRepository(redisClient, loader, bankTTL)
	} else {
		banks = memory.NewBankRepository(loader, bankTTL)
	}

	var kv app.KeyValueStore
	switch {
	case pool != nil:
		kv = pgstore.NewKVStore(pool)
	case redisClient != nil:
		kv = redisstore.NewKVStore(redisClient)
	case cfg.SQLite.Path != "":
		store, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		kv = store
	default:
		log.Printf("no persistent store configured, player progress is kept in memory")
		kv = memory.NewKVStore()
	}

	var challenges challenge.Store = memory.NewChallengeStore()
	var leaderboard app.Leaderboard = memory.NewLeaderboard()
	if redisClient != nil {
		challenges = redisstore.NewChallengeStore(redisClient)
		leaderboard = redisstore.NewLeaderboard(redisClient)
	}

	var generator questions.Generator
	if cfg.Gemini.APIKey != "" {
		g, err := gemini.NewGenerator(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			return err
		}
		defer g.Close()
		generator = g
	} else {
		log.Printf("gemini api key not set, AI games are disabled")
	}

	var identity app.IdentityProvider
	if cfg.Neynar.APIKey != "" {
		identity = neynar.NewClient(cfg.Neynar.BaseURL, cfg.Neynar.APIKey)
	}
	var tokens *auth.TokenService
	if cfg.Auth.JWTSecret != "" {
		tokens = auth.NewTokenService(cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, auth.DefaultTokenTTL))
	}
	if identity == nil || tokens == nil {
		log.Printf("neynar api key or jwt secret not set, sign-in is disabled")
	}

	service := app.NewGameService(app.Deps{
		Banks:         banks,
		Generator:     generator,
		Challenges:    challenges,
		KV:            kv,
		Leaderboard:   leaderboard,
		Identity:      identity,
		Tokens:        tokens,
		Catalog:       catalog,
		ChallengeTTL:  config.TTLDuration(cfg.Challenge.TTL, challenge.DefaultTTL),
		PublicBaseURL: cfg.Server.PublicBaseURL,
	})
	wsHandler := transport.NewWSHandler(service, cfg.GameConfig())

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(service, wsHandler, cfg.Server.AllowedOrigin),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("starting trivia service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
