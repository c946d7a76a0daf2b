package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"talespin/internal/app"
	"talespin/internal/config"
	"talespin/internal/ratelimit"
	"talespin/internal/server"
	"talespin/internal/util"
	"talespin/pkg/ai"
	"talespin/pkg/storage"
)

func main() {
	configPath := flag.String("config", config.ConfigPath, "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config failed", "err", err)
		os.Exit(1)
	}
	util.InitLogger(cfg.LogLevel)

	accessTTL, err := config.ParseAccessTTL(cfg.AccessTTL)
	if err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}
	refreshTTL, err := config.ParseRefreshTTL(cfg.RefreshTTL)
	if err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}

	application, err := app.New(app.Config{
		DatabaseURL: cfg.DatabaseURL,
		JWTSecret:   cfg.JWTAccessSecret,
		AccessTTL:   accessTTL,
		RefreshTTL:  refreshTTL,
		OpenAI: ai.Options{
			BaseURL:     cfg.OpenAI.BaseURL,
			APIKey:      cfg.OpenAI.APIKey,
			TextModel:   cfg.OpenAI.TextModel,
			ImageModel:  cfg.OpenAI.ImageModel,
			SpeechModel: cfg.OpenAI.SpeechModel,
			Voice:       cfg.OpenAI.Voice,
		},
		ObjectStore: storage.MinioSettings{
			Endpoint:      cfg.ObjectStore.Endpoint,
			Region:        cfg.ObjectStore.Region,
			AccessKey:     cfg.ObjectStore.AccessKey,
			SecretKey:     cfg.ObjectStore.SecretKey,
			Bucket:        cfg.ObjectStore.Bucket,
			UseSSL:        cfg.ObjectStore.UseSSL,
			PublicBaseURL: cfg.ObjectStore.PublicBaseURL,
		},
	})
	if err != nil {
		slog.Error("init app failed", "err", err)
		os.Exit(1)
	}

	var limiter *ratelimit.FixedWindowLimiter
	if cfg.RedisAddr != "" && cfg.AuthRateLimitPerMinute > 0 {
		limiter, err = ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "", cfg.AuthRateLimitPerMinute, time.Minute)
		if err != nil {
			slog.Error("init rate limiter failed", "err", err)
			os.Exit(1)
		}
	}

	srv := server.New(server.Config{App: application, AuthLimiter: limiter})
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("server starting", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
