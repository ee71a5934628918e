package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Veraticus/mileage-audit/internal/cli"
	"github.com/Veraticus/mileage-audit/internal/common"
	"github.com/Veraticus/mileage-audit/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	version   = "dev"
	appConfig *config.Config
	logCloser io.Closer
	rootCmd   = &cobra.Command{
		Use:   "mileage",
		Short: "🚗 Mileage claim anomaly detection",
		Long: `mileage scores business mileage claims from a timesheet export and flags
the unusual ones for review.

Each claim is summarized per employee, scored with an extended isolation
forest, and written to a labelled report next to the input file.`,
		PersistentPreRunE:  initConfig,
		PersistentPostRunE: closeLogging,
		SilenceUsage:       true,
		SilenceErrors:      true,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/mileage/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().String("log-file", "", "also write logs to this rotated file")

	// Bind flags to viper
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("logging.file", rootCmd.PersistentFlags().Lookup("log-file"))

	config.SetDefaults(viper.GetViper())

	// Add commands
	rootCmd.AddCommand(scanCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	// Set up signal handling
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	err := rootCmd.ExecuteContext(ctx)
	cancel() // Always cleanup

	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(describeError(err)))
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	// Set up config file
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		// Search for config in standard locations
		viper.AddConfigPath(fmt.Sprintf("%s/.config/mileage", home))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Environment variables
	viper.SetEnvPrefix("MILEAGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	appConfig = cfg

	if err := setupLogging(cfg); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	slog.Debug("Configuration loaded", "file", viper.ConfigFileUsed())

	return nil
}

func setupLogging(cfg *config.Config) error {
	opts, err := cfg.LogOptions()
	if err != nil {
		return err
	}
	closer, err := common.SetupLogger(opts)
	if err != nil {
		return err
	}
	logCloser = closer
	return nil
}

func closeLogging(_ *cobra.Command, _ []string) error {
	if logCloser == nil {
		return nil
	}
	return logCloser.Close()
}

// describeError prefixes stage failures with the stage that raised them.
func describeError(err error) string {
	var userErr *common.UserError
	if errors.As(err, &userErr) {
		return "Error: " + userErr.Error()
	}
	if stage := common.FailedStage(err); stage != "" {
		return fmt.Sprintf("Error in %s stage: %v", stage, err)
	}
	return "Error: " + err.Error()
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mileage %s\n", version)
		},
	}
}
