package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"utgifter/internal/cli"
	"utgifter/internal/config"
	"utgifter/internal/log"
)

var (
	appConfig *config.Config
	appLogger *log.Logger

	rootCmd = &cobra.Command{
		Use:   "utgifter",
		Short: "Expense tracking API with automatic categorization",
		Long: `utgifter records expenses, categories and budgets behind a JSON API.
Expenses sent without a category are classified by a local language model
and fall back to a default category when the model cannot decide.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
		RunE:              runServe,
	}
)

func init() {
	rootCmd.PersistentFlags().String("port", "", "HTTP listen port (overrides PORT)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	_ = viper.BindPFlag(config.KeyPort, rootCmd.PersistentFlags().Lookup("port"))
	_ = viper.BindPFlag(config.KeyLogLevel, rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(workerCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(classifyCmd())
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	v := viper.GetViper()
	config.SetDefaults(v)

	cfg, err := cli.LoadAndValidateConfig(v)
	if err != nil {
		return err
	}
	appConfig = cfg
	appLogger = cli.SetupLogger(cfg)
	return nil
}
