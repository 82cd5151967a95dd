package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"docassist/internal/bootstrap"
	"docassist/internal/config"
)

var version = "dev"

var (
	cfgFile string
	noColor bool
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "docassist",
	Short:         "Question answering over uploaded documents via a hosted assistant",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $CONFIG_FILE or configs/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at the configured level instead of warn")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(docsCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		if err := os.Setenv("CONFIG_FILE", cfgFile); err != nil {
			return nil, err
		}
	}
	return config.Load()
}

// openApp wires the application for one-shot commands. Their logs stay quiet
// unless --verbose is given.
func openApp(ctx context.Context) (*bootstrap.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if !verbose {
		cfg.Log.Level = "warn"
	}
	return bootstrap.New(ctx, cfg, bootstrap.Options{})
}
