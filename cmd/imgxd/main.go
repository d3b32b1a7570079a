// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Command imgxd serves the PDF image extraction API: clients upload a
// PDF, the service lifts out its embedded images and serves them back
// under generated names.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/docpipe/pdf-imgx"
	"github.com/docpipe/pdf-imgx/logger"
)

// AppConfig carries the service configuration, loaded from the
// environment (optionally seeded from a .env file).
type AppConfig struct {
	ListenAddr    string
	UploadDir     string
	OutputDir     string
	MaxUploadSize int64
	LogLevel      string
	ParsingMode   imgx.ParsingMode
}

func loadConfig() AppConfig {
	// Missing .env is fine; the environment alone may be complete.
	_ = godotenv.Load()

	cfg := AppConfig{
		ListenAddr:    envOr("IMGXD_LISTEN_ADDR", ":8080"),
		UploadDir:     envOr("IMGXD_UPLOAD_DIR", "uploads"),
		OutputDir:     envOr("IMGXD_OUTPUT_DIR", "extracted"),
		MaxUploadSize: 2 << 20,
		LogLevel:      envOr("IMGXD_LOG_LEVEL", "info"),
		ParsingMode:   imgx.BestEffort,
	}
	if mode := os.Getenv("IMGXD_PARSING_MODE"); mode != "" {
		cfg.ParsingMode = imgx.ParsingMode(mode)
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	cfg := loadConfig()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", "imgxd").Logger()

	// Route the core library's log output into zerolog.
	logger.SetLogger(func(lv logger.LogLevel, msg string, keyvals ...interface{}) {
		ev := log.Debug()
		if lv == logger.ErrorLevel {
			ev = log.Error()
		}
		for i := 0; i+1 < len(keyvals); i += 2 {
			ev = ev.Interface(fmt.Sprint(keyvals[i]), keyvals[i+1])
		}
		ev.Msg(msg)
	})

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.UploadDir).Msg("creating upload directory")
	}
	store, err := imgx.NewDirStore(cfg.OutputDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.OutputDir).Msg("creating output directory")
	}

	core := imgx.NewDefaultConfig()
	core.ParsingMode = cfg.ParsingMode
	if err := core.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid extraction config")
	}

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      newRouter(newAPI(cfg, log, store, imgx.NewProcessor(core))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
