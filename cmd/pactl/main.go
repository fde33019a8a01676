// Command pactl is the operator CLI for the prior authorization intake system:
// upload forms, run intake locally, review records and reprocess uploads.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kylejryan/healthcopilot/internal/app"
	"github.com/kylejryan/healthcopilot/internal/config"
	"github.com/kylejryan/healthcopilot/internal/logx"

	"github.com/spf13/cobra"
)

var (
	cfgPath  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "pactl",
	Short:         "Operate the prior authorization intake pipeline",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "YAML config file overlaid on the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
}

// loadApp reads configuration and builds the shared App. mutate may adjust the
// configuration before validation-dependent wiring happens.
func loadApp(ctx context.Context, mutate func(*config.Env)) (*app.App, error) {
	env, err := config.LoadFile(cfgPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		env.LogLevel = logLevel
	}
	if mutate != nil {
		mutate(&env)
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return app.New(ctx, env, logx.New(env.LogLevel))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
