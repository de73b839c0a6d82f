package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/binhbb2204/litverse/internal/server"
	appconfig "github.com/binhbb2204/litverse/pkg/config"
	"github.com/binhbb2204/litverse/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	serverConfigPath string
	servePort        string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the LitVerse API server",
	Long:  `Run the HTTP API and real-time channel until interrupted. Settings come from --config, .env and the environment.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		cfg, err := appconfig.Load(serverConfigPath)
		if err != nil {
			printError("Invalid server configuration")
			return err
		}
		if servePort != "" {
			cfg.Server.Port = servePort
		}
		logger.Init(logger.LogLevel(cfg.Logging.Level), cfg.Logging.Format == "json", os.Stdout)
		log := logger.WithContext("component", "cli_serve")
		if cfg.Server.JWTSecret == "" {
			cfg.Server.JWTSecret = "your-secret-key-change-this-in-production"
			log.Warn("using_default_jwt_secret", "message", "Set JWT_SECRET environment variable in production!")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		log.Info("starting_api_server", "port", cfg.Server.Port)
		return server.Serve(ctx, cfg)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverConfigPath, "config", "config.yaml", "Server YAML config file")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Override the listen port")
}
