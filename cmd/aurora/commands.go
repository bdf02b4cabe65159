package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"aurora/internal/app"
	"aurora/internal/config"
	"aurora/internal/logger"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "aurora",
		Short: "Aurora - LLM-assisted trading session runner",
		Long: `Aurora keeps a brokerage session's bars, orders and positions in memory,
asks a chat model for an advise on every snapshot round and dispatches the
orders it is confident about.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", config.DefaultPath, "Configuration file path (ini, yaml, json or toml)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the gateway and run the trading session",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			watch, _ := cmd.Flags().GetBool("watch")
			return runSession(cmd, path, watch)
		},
	}
	cmd.Flags().Bool("watch", true, "Reload hot settings when the config file changes")
	return cmd
}

func runSession(cmd *cobra.Command, path string, watch bool) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logs, err := logger.Setup(logger.Options{
		Level:    cfg.App.LogLevel,
		FilePath: cfg.App.LogPath,
		LLMPath:  cfg.App.LLMLogPath,
	})
	if err != nil {
		return err
	}
	defer logs.Close()
	logger.Infof("✓ config loaded from %s (gateway=%s)", path, cfg.Gateway.Mode)

	ctx := cmd.Context()
	a, err := app.NewApp(ctx, cfg)
	if err != nil {
		logger.Errorf("init app failed: %v", err)
		return err
	}
	if watch {
		w, err := config.Watch(path, cfg)
		if err != nil {
			logger.Warnf("config watch disabled: %v", err)
		} else {
			w.Subscribe(a.ApplyConfig)
		}
	}
	if err := a.Run(ctx); err != nil {
		logger.Errorf("session failed: %v", err)
		return err
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			format, _ := cmd.Flags().GetString("format")
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			return renderConfig(cmd.OutOrStdout(), cfg, format)
		},
	}
	show.Flags().String("format", "yaml", "Output format: yaml or json")
	configCmd.AddCommand(show)

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			if _, err := config.Load(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
			return nil
		},
	})
	return configCmd
}

func renderConfig(w io.Writer, cfg *config.Config, format string) error {
	sections := cfg.Redacted().Sections()
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(sections); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sections)
	default:
		return fmt.Errorf("unsupported format %q (yaml, json)", format)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "aurora %s\n", version)
		},
	}
}
