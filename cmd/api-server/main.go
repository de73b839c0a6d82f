package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/binhbb2204/litverse/internal/server"
	"github.com/binhbb2204/litverse/pkg/config"
	"github.com/binhbb2204/litverse/pkg/logger"
	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// Load environment variables from .env if present (optional)
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	logger.Init(logger.LogLevel(cfg.Logging.Level), cfg.Logging.Format == "json", os.Stdout)
	log := logger.GetLogger().WithContext("component", "api_server")
	if err != nil {
		log.Error("invalid_configuration", "error", err.Error(), "path", *configPath)
		os.Exit(1)
	}

	if cfg.Server.JWTSecret == "" {
		cfg.Server.JWTSecret = "your-secret-key-change-this-in-production"
		log.Warn("using_default_jwt_secret", "message", "Set JWT_SECRET environment variable in production!")
	}
	if !cfg.AI.Enabled() {
		log.Warn("openai_not_configured", "message", "AI recommendations will use the static fallback list")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting_api_server", "port", cfg.Server.Port, "frontend_url", cfg.Server.FrontendURL)
	if err := server.Serve(ctx, cfg); err != nil {
		log.Error("api_server_failed", "error", err.Error())
		os.Exit(1)
	}
	log.Info("api_server_stopped")
}
