// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/coachbot/internal/config"
	"github.com/briangreenhill/coachbot/internal/http/routes"
	"github.com/briangreenhill/coachbot/internal/jobs"
	"github.com/briangreenhill/coachbot/internal/logging"
	"github.com/briangreenhill/coachbot/internal/sessionstore"
	"github.com/briangreenhill/coachbot/web"
)

func main() {
	boot := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		boot.Fatal().Err(err).Msg("load config")
	}

	logger, closer, err := logging.New(cfg.Log, "api")
	if err != nil {
		boot.Fatal().Err(err).Msg("init logger")
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Sessions
	sess := scs.New()
	sess.Lifetime = cfg.Session.Lifetime
	sess.Cookie.HttpOnly = true
	sess.Cookie.SameSite = http.SameSiteLaxMode
	sess.Cookie.Secure = cfg.Session.Secure

	var checks []func(context.Context) error

	// DB backed sessions; in-memory otherwise
	if cfg.HasDatabase() {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect database")
		}
		defer pool.Close()

		store := sessionstore.NewPostgres(pool)
		if err := store.Migrate(ctx); err != nil {
			logger.Fatal().Err(err).Msg("migrate sessions table")
		}
		sess.Store = store
		go store.RunCleanup(ctx, 5*time.Minute, logger)
		checks = append(checks, pool.Ping)
	}

	// Reminder queue
	var queue jobs.Enqueuer
	if cfg.HasQueue() {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()

		client := asynq.NewClientFromRedisClient(rdb)
		defer client.Close()
		queue = client
		checks = append(checks, func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	} else {
		logger.Warn().Msg("REDIS_ADDR not set, dose reminders disabled")
	}

	tmpl, err := web.ParseTemplates()
	if err != nil {
		logger.Fatal().Err(err).Msg("parse templates")
	}

	s := routes.New(routes.ServerOptions{
		Sess:         sess,
		Tmpl:         tmpl,
		Logger:       logger,
		Queue:        queue,
		Policy:       cfg.EvaluationPolicy(),
		ReminderLead: cfg.Tracker.ReminderLead,
		Ready:        readiness(checks...),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           sess.LoadAndSave(s.Router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown")
		}
	}()

	logger.Info().
		Str("port", cfg.Port).
		Str("policy", cfg.EvaluationPolicy().String()).
		Bool("durable_sessions", cfg.HasDatabase()).
		Msg("starting api")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("listen")
	}
	logger.Info().Msg("api stopped")
}

// readiness reports the first failing dependency check
func readiness(checks ...func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		for _, check := range checks {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}
