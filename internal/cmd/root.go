// Package cmd provides the CLI commands for Halyard.
package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/halyard-dev/halyard/internal/appdir"
	"github.com/halyard-dev/halyard/internal/config"
	"github.com/halyard-dev/halyard/internal/logging"
)

var (
	// Global flags
	configPath    string
	debug         bool
	logLevel      string // --log-level flag (debug, info, warn, error)
	logFile       string
	logComponents string

	// Loaded configuration
	cfg config.Config
	// cfgFile is the resolved configuration file path, for the watcher.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "halyard",
	Short: "Halyard - a terminal client for remote agent sessions",
	Long: `Halyard maintains a live session with a remote coding agent over a
persistent duplex channel.

It keeps the conversation state on this machine, queues outbound
messages while the channel is down, recovers stalled tasks and can
replay shared sessions from their persisted event logs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		return initRuntime()
	},
}

// initRuntime loads the configuration and initializes logging. Flags win
// over file values.
func initRuntime() error {
	var err error
	cfgFile = configPath
	if cfgFile == "" {
		cfgFile, err = appdir.ConfigFile()
		if err != nil {
			return fmt.Errorf("failed to resolve config path: %w", err)
		}
	}

	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Priority: --log-level flag > --debug flag > config > default (info)
	effectiveLevel := cfg.Logging.Level
	if effectiveLevel == "" {
		effectiveLevel = "info"
	}
	if debug {
		effectiveLevel = "debug"
	}
	if logLevel != "" {
		effectiveLevel = logLevel
	}

	components := cfg.Logging.Components
	if logComponents != "" {
		components = nil
		for _, c := range strings.Split(logComponents, ",") {
			if c = strings.TrimSpace(c); c != "" {
				components = append(components, c)
			}
		}
	}

	logCfg := logging.Config{
		Level:      effectiveLevel,
		FileLevel:  cfg.Logging.FileLevel,
		JSON:       cfg.Logging.JSON,
		Components: components,
	}

	effectiveLogFile := logFile
	if effectiveLogFile == "" {
		logsDir, err := appdir.LogsDir()
		if err != nil {
			return fmt.Errorf("failed to resolve logs dir: %w", err)
		}
		effectiveLogFile = filepath.Join(logsDir, "halyard.log")
	}
	logCfg.FileLog = &logging.FileLogConfig{Path: effectiveLogFile}

	return logging.Initialize(logCfg)
}

// Execute runs the root command.
func Execute() error {
	defer logging.Close()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default: app dir config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "log file path (default: app dir logs/halyard.log)")
	rootCmd.PersistentFlags().StringVar(&logComponents, "log-components", "", "comma-separated component filter (e.g. conn,dispatch)")
}
