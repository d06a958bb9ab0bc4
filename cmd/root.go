package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/will-iamxu/CSNews/internal/config"
	"github.com/will-iamxu/CSNews/internal/observability"
	"go.uber.org/zap"
)

// Version is stamped by the release build.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:     "csnews",
	Short:   "CSNews pulls Counter-Strike news, matches and rankings without getting blocked.",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initializeConfig(); err != nil {
			return fmt.Errorf("failed to initialize configuration: %w", err)
		}

		if err := config.Load(viper.GetViper()); err != nil {
			observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "csnews"})
			return err
		}

		cfg := config.Get()
		observability.InitializeLogger(cfg.Logger)
		observability.GetLogger().Debug("Configuration loaded", zap.String("version", Version))
		return nil
	},
}

// Execute runs the root command. The context arrives from main for graceful
// shutdown.
func Execute(ctx context.Context) error {
	rootCmd.AddCommand(newFetchCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if ctx.Err() == nil {
			if logger := observability.GetLogger(); logger != nil {
				logger.Error("Command execution failed", zap.Error(err))
			} else {
				fmt.Fprintln(os.Stderr, "Error:", err)
			}
		}
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
}

// initializeConfig reads the config file and environment variables.
func initializeConfig() error {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CSNEWS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env cover it.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}
