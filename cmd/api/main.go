package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"genx-compile/internal/api"
	"genx-compile/internal/api/handlers"
	"genx-compile/internal/compile"
	"genx-compile/internal/config"
	"genx-compile/internal/observability/metrics"

	"github.com/gin-gonic/gin"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Get configuration from environment
	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}
	cfg, err := config.Load(os.Getenv("GENX_CONFIG"))
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	if root := os.Getenv("GENX_ROOT"); root != "" {
		cfg.Root = root
	}
	var origins []string
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		origins = strings.Split(raw, ",")
	}

	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics.Init()

	run := func(ctx context.Context, root string) (*compile.Result, error) {
		c := *cfg
		if root != "" {
			c.Root = root
		}
		compiler, err := compile.New(&c, logger)
		if err != nil {
			return nil, err
		}
		return compiler.Run(ctx)
	}
	results := handlers.NewResultHandler(run, cfg.Root, logger)

	// Compile once at startup so the view has something to serve.
	if os.Getenv("COMPILE_ON_START") != "false" {
		res, err := run(context.Background(), "")
		if err != nil {
			logger.Warn("initial compile failed", "root", cfg.Root, "error", err)
		} else {
			results.Set(res)
			logger.Info("initial compile done", "run_id", res.RunID, "periods", res.Years())
		}
	}

	router := api.NewRouter(results, origins, logger)

	addr := fmt.Sprintf(":%s", port)
	logger.Info("starting API server", "addr", addr, "root", cfg.Root)
	if err := router.Run(addr); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
