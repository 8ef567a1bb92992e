package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"quiz-orchestrator/internal/app"
	"quiz-orchestrator/internal/config"
	"quiz-orchestrator/internal/infra/filesystem"
	"quiz-orchestrator/internal/infra/memory"
	"quiz-orchestrator/internal/infra/postgres"
	infraredis "quiz-orchestrator/internal/infra/redis"
	"quiz-orchestrator/internal/telemetry"
	transport "quiz-orchestrator/internal/transport/http"
)

const shutdownTimeout = 5 * time.Second

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), opts)
		},
	}
}

// quizStore is what both quiz caches sit in front of.
type quizStore interface {
	memory.QuizStore
	infraredis.QuizStore
}

func runServer(ctx context.Context, opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	log, err := telemetry.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		telemetry.MonitorRedis(redisClient, log)
	}

	var store quizStore = filesystem.NewQuizStore(cfg.Quiz.Dir, log)
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = postgres.NewQuizStore(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = infraredis.NewQuizRepository(redisClient, store, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(store, quizTTL)
	}

	sessionTimeout := config.TTLDuration(cfg.Session.Timeout, app.DefaultSessionTimeout)
	sweepInterval := config.TTLDuration(cfg.Session.SweepInterval, app.DefaultSweepInterval)

	var sessions app.SessionRepository
	if redisClient != nil {
		claimTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
		if err := checkClaimTTL(claimTTL, sweepInterval); err != nil {
			return err
		}
		sessions = infraredis.NewSessionStore(redisClient, claimTTL, uuid.NewString())
	} else {
		sessions = memory.NewSessionStore()
	}

	router := app.NewRouter(app.RouterConfig{
		Sessions:    sessions,
		Quizzes:     quizRepo,
		DefaultQuiz: cfg.Quiz.Default,
		EnforceHost: cfg.Session.EnforceHost,
		Logger:      log,
	})
	reaper := app.NewReaper(router, sessionTimeout, sweepInterval)

	server := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: transport.NewMux(transport.MuxConfig{
			WS:        transport.NewWSHandler(router, log),
			Quizzes:   quizRepo,
			Sessions:  sessions,
			PublicURL: cfg.Server.PublicURL,
			Logger:    log,
		}),
		ReadHeaderTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return router.Run(gctx) })
	g.Go(func() error { return reaper.Run(gctx) })
	g.Go(func() error {
		log.Info("starting quiz service", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// checkClaimTTL makes sure a session id claim outlives two sweeps, since only
// the sweep refreshes it. A non-positive TTL never expires.
func checkClaimTTL(claimTTL, sweepInterval time.Duration) error {
	if claimTTL <= 0 {
		return nil
	}
	if sweepInterval <= 0 {
		sweepInterval = app.DefaultSweepInterval
	}
	if claimTTL < 2*sweepInterval {
		return fmt.Errorf("redis.ttl %s must be at least twice session.sweep_interval %s", claimTTL, sweepInterval)
	}
	return nil
}
