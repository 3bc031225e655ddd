package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Spok95/academy-tuition/internal/app"
	"github.com/Spok95/academy-tuition/internal/billing"
	"github.com/Spok95/academy-tuition/internal/config"
	"github.com/Spok95/academy-tuition/internal/db"
	"github.com/Spok95/academy-tuition/internal/jobs"
	"github.com/Spok95/academy-tuition/internal/logging"
	"github.com/Spok95/academy-tuition/internal/observability"
	"github.com/Spok95/academy-tuition/internal/tuition"
)

// задаётся при сборке: -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Загрузка переменных окружения
	if err := godotenv.Load(); err != nil {
		log.Println("Не удалось загрузить .env файл, используем переменные окружения")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Closer()
	logger := lg.Base

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, version)
	if err != nil {
		logger.Warn("sentry init failed", zap.Error(err))
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	defer func() { _ = database.Close() }()

	if err := db.Migrate(database); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	svc := billing.New(database, logger.Named("billing"), billing.Options{
		HorizonDays: cfg.HorizonDays,
		Align: tuition.AlignConfig{
			WindowDays:    cfg.AlignWindowDays,
			MaxCandidates: cfg.AlignCandidates,
		},
	})

	app.StartHTTP(ctx, cfg.HTTPAddr, database, app.NewAPI(svc, logger.Named("api"), cfg.Location), logger)

	if cfg.ReconcileInterval > 0 {
		jobs.New(ctx, logger.Named("jobs")).Every(cfg.ReconcileInterval, "reconcile", jobs.ReconcileJob(svc))
	}

	logger.Info("tuitiond started",
		zap.String("version", version),
		zap.String("addr", cfg.HTTPAddr),
		zap.String("env", cfg.Env),
		zap.Duration("reconcile_interval", cfg.ReconcileInterval),
	)
	<-ctx.Done()
	logger.Info("shutting down")
}
