// Package main is the entry point for the perch CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/perch-panel/perch/internal/access"
	"github.com/perch-panel/perch/internal/audit"
	"github.com/perch-panel/perch/internal/config"
	"github.com/perch-panel/perch/internal/dbhost"
	"github.com/perch-panel/perch/internal/gateway"
	"github.com/perch-panel/perch/internal/mcp"
	"github.com/perch-panel/perch/internal/resolve"
	"github.com/perch-panel/perch/internal/store"
	"github.com/perch-panel/perch/internal/tool"
	"github.com/perch-panel/perch/internal/tools"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "perch",
		Short:         "Assistant tool core for the Perch game server panel",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(versionCmd(), serveCmd(), toolsCmd(), mcpCmd(), configCmd())
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("perch %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}

			logger := newLogger(cfg.Log)

			db, err := store.Open(cfg.Database.Path, logger)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			registry := tool.NewRegistry(logger)
			gw := gateway.New(cfg.Gateway, registry, logger)

			recorder := audit.NewRecorder(db, logger, audit.WithBus(gw.Events()))
			deps := &tools.Deps{
				Store:       db,
				Resolver:    resolve.New(db),
				Gate:        access.NewStoreGate(db),
				Audit:       recorder,
				Provisioner: &dbhost.SQLProvisioner{},
				Logger:      logger,
			}
			if cfg.Daemon.RequestTimeout > 0 {
				deps.Dial = func(node store.Node, timeout time.Duration) tools.Daemon {
					if timeout == 0 {
						timeout = cfg.Daemon.RequestTimeout
					}
					return tools.DialDaemon(node, timeout)
				}
			}
			if err := tools.RegisterAll(registry, deps); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := gw.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return gw.Stop(shutdownCtx)
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	return cmd
}

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tool catalog",
		RunE: func(_ *cobra.Command, _ []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			registry := tool.NewRegistry(logger)
			if err := tools.RegisterAll(registry, &tools.Deps{Logger: logger}); err != nil {
				return err
			}
			for _, t := range registry.Tools() {
				fmt.Printf("%s\n  %s\n", t.Name(), t.Description())
			}
			return nil
		},
	}
}

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the tool catalog over MCP on stdin/stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}

			callerID, _ := cmd.Flags().GetInt64("caller-id")
			callerUUID, _ := cmd.Flags().GetString("caller-uuid")
			if callerID == 0 || callerUUID == "" {
				return fmt.Errorf("--caller-id and --caller-uuid are required: MCP carries no user identity")
			}

			// MCP owns stdout, so logs go to stderr regardless of format.
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: logLevel(cfg.Log.Level),
			}))

			db, err := store.Open(cfg.Database.Path, logger)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			registry := tool.NewRegistry(logger)
			if err := tools.RegisterAll(registry, &tools.Deps{
				Store:       db,
				Resolver:    resolve.New(db),
				Gate:        access.NewStoreGate(db),
				Audit:       audit.NewRecorder(db, logger),
				Provisioner: &dbhost.SQLProvisioner{},
				Logger:      logger,
			}); err != nil {
				return err
			}

			caller := tool.Caller{ID: callerID, UUID: callerUUID}
			return mcp.New(registry, caller, version, logger).ServeStdio()
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	cmd.Flags().Int64("caller-id", 0, "Panel user ID tool calls run as")
	cmd.Flags().String("caller-uuid", "", "Panel user UUID tool calls run as")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <path>",
		Short: "Validate configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			fmt.Println("Configuration OK")
			return nil
		},
	})
	return cmd
}

// loadConfig loads and validates the config from the given path, falling back
// to the standard search locations.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		resolved, err := resolveConfigPath()
		if err != nil {
			return nil, err
		}
		path = resolved
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/perch/perch.yaml → ./perch.yaml
func resolveConfigPath() (string, error) {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		candidates = append(candidates, filepath.Join(xdg, "perch", "perch.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "perch", "perch.yaml"))
	}

	candidates = append(candidates, "perch.yaml")

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: logLevel(cfg.Level)}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
