package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/internal/alert"
	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/internal/sentiment"
	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/internal/sink"
	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Stream-Sentiment-Pipeline/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	var mailer alert.Mailer
	if cfg.Alert.Configured() {
		mailer = alert.NewSMTPMailer(cfg.Alert)
	} else {
		slog.Warn("alert email not configured, failures will only be logged")
	}
	notifier := alert.NewNotifier(mailer)

	m := metrics.New()

	// Everything the stream depends on connects up front; a failure here is
	// as fatal as one mid-stream and goes through the same handler.
	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		fatal := apperrors.Newf(apperrors.ErrConnection, "startup", "opening sink: %v", err)
		os.Exit(pipeline.HandleFailure(fatal, notifier, slog.Default()))
	}
	defer db.Close()

	var scorer sentiment.Scorer = sentiment.NewVaderScorer()
	var rdb *pkgredis.Client
	if cfg.Redis.Enabled {
		rdb, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			fatal := apperrors.Newf(apperrors.ErrConnection, "startup", "opening score cache: %v", err)
			os.Exit(pipeline.HandleFailure(fatal, notifier, slog.Default()))
		}
		defer rdb.Close()
		scorer = sentiment.NewCachedScorer(scorer, rdb, cfg.Redis.CacheTTL, m)
	}

	reader := kafka.NewBatchReader(cfg.Kafka, cfg.Pipeline.BatchSize, cfg.Pipeline.BatchWait)
	defer reader.Close()

	orch := pipeline.New(cfg.Pipeline, reader, scorer, sink.NewWriter(db), m)
	if cfg.Tracing.Enabled {
		orch.EnableTracing()
	}

	checker := health.NewChecker()
	checker.SetStateFunc(func() string { return orch.State().String() })
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if err := db.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	if rdb != nil {
		checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
			// The score cache degrades to direct computation, so a dead
			// Redis is not a dead pipeline.
			if err := rdb.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port, checker)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Error("ops server shutdown failed", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("pipeline ready",
		"run_id", orch.RunID(),
		"topic", cfg.Kafka.Topic,
		"group", cfg.Kafka.ConsumerGroup,
		"cache", cfg.Redis.Enabled,
	)

	if err := orch.Run(ctx); err != nil {
		os.Exit(pipeline.HandleFailure(err, notifier, slog.Default()))
	}

	slog.Info("pipeline stopped cleanly")
}
