// Package main provides the entry point for the PII sanitization service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/hannes/pii-sanitizer/config"
	"github.com/hannes/pii-sanitizer/logging"
	"github.com/hannes/pii-sanitizer/server"
	"github.com/hannes/pii-sanitizer/version"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd creates the root command. Without a subcommand it serves HTTP.
func NewRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   config.AppName,
		Short: "PII detection and sanitization service",
		Long: `pii-sanitizer detects personally identifiable information in free text
and replaces it with type placeholders such as <PERSON> or <EMAIL>.

Run without a subcommand to start the HTTP service.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML or JSON config file")

	cmd.AddCommand(newServeCmd(&configPath))
	cmd.AddCommand(newAnalyzeCmd(&configPath))
	cmd.AddCommand(newSanitizeCmd(&configPath))
	cmd.AddCommand(newEntitiesCmd(&configPath))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, *configPath)
		},
	}
}

// loadConfig builds the configuration from defaults, the config file and
// the environment, then installs the default logger.
func loadConfig(configPath string) (*config.Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded .env file from current directory")
	}

	cfg := config.DefaultConfig()

	if path := config.FindConfigFile(configPath); path != "" {
		if err := config.LoadConfigFile(path, cfg); err != nil {
			return nil, err
		}
		log.Printf("Loaded config file %s", path)
	} else if configPath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, configPath)
	}

	loadConfigFromEnv(cfg)

	if err := cfg.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := logging.Setup(os.Stderr, logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			Release:     config.AppName + "@" + version.Version,
		}); err != nil {
			log.Printf("⚠️  Sentry initialization failed: %v", err)
		} else {
			log.Println("Sentry error reporting enabled")
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.NewServer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer func() {
		if err := srv.Close(); err != nil {
			log.Printf("Failed to close server resources: %v", err)
		}
	}()

	if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		sentry.CaptureException(err)
		return err
	}
	log.Println("Server stopped")
	return nil
}
