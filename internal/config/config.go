package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL string
	Location    *time.Location
	HTTPAddr    string
	LogLevel    string
	Env         string // dev|prod
	SentryDSN   string

	HorizonDays       int
	AlignWindowDays   int
	AlignCandidates   int
	ReconcileInterval time.Duration // 0 = сверка выключена
}

func Load() (*Config, error) {
	tz := getenv("TZ", "Asia/Seoul")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.Local
	}

	horizon, err := intEnv("HORIZON_DAYS", 100)
	if err != nil {
		return nil, err
	}
	window, err := intEnv("ALIGN_WINDOW_DAYS", 7)
	if err != nil {
		return nil, err
	}
	candidates, err := intEnv("ALIGN_CANDIDATES", 5)
	if err != nil {
		return nil, err
	}
	reconcile, err := time.ParseDuration(getenv("RECONCILE_INTERVAL", "0"))
	if err != nil {
		return nil, fmt.Errorf("RECONCILE_INTERVAL: %w", err)
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return nil, fmt.Errorf("required env DATABASE_URL is empty")
	}

	cfg := &Config{
		DatabaseURL:       dsn,
		Location:          loc,
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		Env:               getenv("ENV", "dev"),
		SentryDSN:         os.Getenv("SENTRY_DSN"),
		HorizonDays:       horizon,
		AlignWindowDays:   window,
		AlignCandidates:   candidates,
		ReconcileInterval: reconcile,
	}
	return cfg, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func intEnv(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: bad int %q: %w", k, v, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s: must not be negative", k)
	}
	return n, nil
}
