// Package cmd holds the corrbuf command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/corrlab/corrbuf/internal/buildinfo"
	"github.com/corrlab/corrbuf/internal/conf"
	"github.com/corrlab/corrbuf/internal/logger"
)

// Context is shared by every subcommand. Settings is filled in before a
// subcommand runs.
type Context struct {
	Settings *conf.Settings
	Build    *buildinfo.Context

	central *logger.CentralLogger
}

// RootCommand creates and returns the root command.
func RootCommand(ctx *Context) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "corrbuf",
		Short:         "Correlator buffer pool pipeline",
		Version:       ctx.Build.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config.yaml (default: search the standard locations)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		panic(fmt.Sprintf("error binding flags: %v", err))
	}

	rootCmd.AddCommand(
		runCommand(ctx),
		captureCommand(ctx),
		infoCommand(ctx),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			conf.SetConfigFile(configFile)
		}
		settings, err := conf.Load()
		if err != nil {
			return err
		}
		ctx.Settings = settings
		return initialize(ctx)
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if ctx.central == nil {
			return nil
		}
		return ctx.central.Close()
	}

	return rootCmd
}

// initialize replaces the bootstrap logger with one built from the loaded
// settings.
func initialize(ctx *Context) error {
	cfg := ctx.Settings.Logging
	if ctx.Settings.Debug {
		cfg.DefaultLevel = "debug"
		if cfg.Console != nil {
			console := *cfg.Console
			console.Level = "debug"
			cfg.Console = &console
		}
	}
	central, err := logger.NewCentralLogger(&cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)
	ctx.central = central

	GetLogger().Debug("configuration loaded",
		logger.String("version", ctx.Build.Version()),
		logger.String("instance", ctx.Build.ShortID()))
	return nil
}

// bindFlag binds a command flag to a configuration key so the flag wins
// when it is set.
func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("error binding flag %s: %v", flag, err))
	}
}

// GetLogger returns the command line logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("main")
}
