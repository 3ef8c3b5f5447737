package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/star/skywatch/internal/api"
	"github.com/star/skywatch/internal/auth"
	"github.com/star/skywatch/internal/orbit"
	"github.com/star/skywatch/internal/resolver"
	"github.com/star/skywatch/internal/tle"
	"github.com/star/skywatch/internal/upstream"
	"github.com/star/skywatch/web"
)

func main() {
	// Optional .env for local development; env vars win.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	upCfg := loadUpstreamConfig(logger)
	apiCfg := loadAPIConfig(logger)

	builder := orbit.NewSGP4Builder()
	fetcher := tle.NewFetcher(upCfg.TLESourceURL, logger)
	cache := tle.NewCache(fetcher, builder, upCfg.CacheTTL, logger)
	res := resolver.New(cache, logger)

	iss := upstream.NewISSClient(upCfg.ISSURL, logger)
	nearby := upstream.NewN2YOClient(upCfg.N2YOBaseURL, upCfg.N2YOAPIKey, logger)
	if upCfg.N2YOAPIKey == "" {
		logger.Warn("SKYWATCH_N2YO_API_KEY not set, nearby-satellite queries will fail")
	}

	srv := api.NewServer(apiCfg, logger, authCfg, iss, nearby, res, web.Static())

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting server", "addr", apiCfg.Addr, "auth_enabled", authCfg.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("SKYWATCH_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("SKYWATCH_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("SKYWATCH_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("SKYWATCH_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

type upstreamConfig struct {
	ISSURL       string
	N2YOBaseURL  string
	N2YOAPIKey   string
	TLESourceURL string
	CacheTTL     time.Duration
}

func loadUpstreamConfig(logger *slog.Logger) upstreamConfig {
	cfg := upstreamConfig{
		ISSURL:       os.Getenv("SKYWATCH_ISS_URL"),
		N2YOBaseURL:  os.Getenv("SKYWATCH_N2YO_URL"),
		N2YOAPIKey:   os.Getenv("SKYWATCH_N2YO_API_KEY"),
		TLESourceURL: os.Getenv("SKYWATCH_TLE_SOURCE_URL"),
		CacheTTL:     tle.DefaultTTL,
	}

	if v := os.Getenv("SKYWATCH_TLE_CACHE_TTL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid SKYWATCH_TLE_CACHE_TTL value, using default", "value", v, "default_seconds", int(tle.DefaultTTL.Seconds()))
		} else {
			cfg.CacheTTL = time.Duration(n) * time.Second
		}
	}

	logger.Info("upstream config",
		"tle_source_url", cfg.TLESourceURL,
		"cache_ttl_seconds", cfg.CacheTTL.Seconds(),
		"n2yo_key_set", cfg.N2YOAPIKey != "",
	)

	return cfg
}

func loadAPIConfig(logger *slog.Logger) api.Config {
	cfg := api.Config{
		Addr:               ":8080",
		MaxConcurrentPerIP: 10,
	}

	if v := os.Getenv("SKYWATCH_HTTP_ADDR"); v != "" {
		cfg.Addr = v
	}

	if v := os.Getenv("SKYWATCH_MAX_CONCURRENT_PER_IP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid SKYWATCH_MAX_CONCURRENT_PER_IP value, using default", "value", v, "default", cfg.MaxConcurrentPerIP)
		} else {
			cfg.MaxConcurrentPerIP = n
		}
	}

	if v := os.Getenv("SKYWATCH_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid SKYWATCH_TRUST_PROXY value, defaulting to false", "value", v)
		} else {
			cfg.TrustProxy = trust
		}
	}

	logger.Info("api config",
		"addr", cfg.Addr,
		"max_concurrent_per_ip", cfg.MaxConcurrentPerIP,
		"trust_proxy", cfg.TrustProxy,
	)

	return cfg
}
