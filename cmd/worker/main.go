package main

import (
	"fmt"
	"os"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/coachbot/internal/config"
	"github.com/briangreenhill/coachbot/internal/email"
	"github.com/briangreenhill/coachbot/internal/jobs"
	"github.com/briangreenhill/coachbot/internal/logging"
)

func main() {
	boot := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		boot.Fatal().Err(err).Msg("load config")
	}

	logger, closer, err := logging.New(cfg.Log, "worker")
	if err != nil {
		boot.Fatal().Err(err).Msg("init logger")
	}
	defer closer.Close()

	if !cfg.HasQueue() {
		logger.Fatal().Msg("REDIS_ADDR is required for the worker")
	}

	sender := email.NewSender(cfg.Mail, logger)

	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
		Queues: map[string]int{
			jobs.QueueReminders: 10,
			"default":           1,
		},
		Logger:   asynqLogger{logger},
		LogLevel: asynq.InfoLevel,
	})
	mux := asynq.NewServeMux()
	mux.Handle(jobs.TaskDoseReminder, &jobs.ReminderHandler{Sender: sender, Logger: logger})

	logger.Info().Int("concurrency", cfg.Worker.Concurrency).Str("mail_driver", cfg.Mail.Driver).Msg("worker running")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped")
	}
}

// asynqLogger routes asynq's internal logging through zerolog
type asynqLogger struct {
	zl zerolog.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.zl.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.zl.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.zl.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.zl.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.zl.Fatal().Msg(fmt.Sprint(args...)) }
