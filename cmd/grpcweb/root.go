package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/yhonda-ohishi/grpcweb-bridge/config"
	"github.com/yhonda-ohishi/grpcweb-bridge/internal/logging"
)

const appName = "grpcweb"

// GlobalFlags are shared by every subcommand.
type GlobalFlags struct {
	ConfigFile string
	Endpoint   string
	Simulate   bool
	Timeout    time.Duration
	LogLevel   string
}

var (
	globalFlags GlobalFlags
	cfg         config.Config
	settings    *config.Switch
	logger      zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "gRPC-Web client and server toolkit",
	Long: `grpcweb speaks the gRPC-Web wire format over HTTP and WebRTC DataChannels.

Settings come from an optional TOML file, then GRPCWEB_* environment
variables, then command line flags.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(globalFlags.ConfigFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		flags := cmd.Flags()
		if flags.Changed("endpoint") {
			cfg.Endpoint = globalFlags.Endpoint
		}
		if flags.Changed("simulate") {
			cfg.Simulate = globalFlags.Simulate
		}
		if flags.Changed("timeout") {
			cfg.Timeout = globalFlags.Timeout
		}
		if flags.Changed("log-level") {
			cfg.LogLevel = globalFlags.LogLevel
		}
		if err := config.Validate(cfg); err != nil {
			return err
		}

		level, err := logging.ParseLevel(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("parse log level: %w", err)
		}
		logger = logging.Init(appName, level)
		settings = config.NewSwitch(cfg)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&globalFlags.ConfigFile, "config", "c", "", "TOML config file")
	rootCmd.PersistentFlags().StringVarP(&globalFlags.Endpoint, "endpoint", "e", "", "base URL of the gRPC-Web server")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.Simulate, "simulate", false, "answer from canned data instead of the network")
	rootCmd.PersistentFlags().DurationVar(&globalFlags.Timeout, "timeout", 0, "per-call timeout (0 means none)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.LogLevel, "log-level", "", "debug|info|warn|error")

	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(loopbackCmd)
}
