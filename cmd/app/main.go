package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/rkreels/spendguard/internal"
	"github.com/rkreels/spendguard/internal/mcpserver"
	"github.com/rkreels/spendguard/internal/procurement"
	"github.com/rkreels/spendguard/internal/storage"
	pkgconfig "github.com/rkreels/spendguard/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cmd.IsSet("seed") {
		cfg.Seed.Enabled = cmd.Bool("seed")
	}
	return cfg, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

// runMCP serves the procurement tools over MCP stdio. Logs go to stderr so
// stdout stays clean for the protocol.
func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))

	var provider storage.Provider
	switch cfg.Store.Backend {
	case internal.BackendMemory:
		provider = storage.NewMemory()
	case internal.BackendFile:
		if err := os.MkdirAll(cfg.Store.Path, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		fs, err := storage.NewFile(cfg.Store.Path)
		if err != nil {
			return fmt.Errorf("init file store: %w", err)
		}
		provider = fs
	case internal.BackendSQLite:
		db, err := storage.OpenSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return fmt.Errorf("init sqlite store: %w", err)
		}
		provider = db
	default:
		return fmt.Errorf("unknown store backend: %q", cfg.Store.Backend)
	}
	defer provider.Close()

	svc := procurement.NewService(provider, logger,
		procurement.WithSeedData(cfg.Seed.Enabled),
	)

	return mcpserver.New(svc).ServeStdio()
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}

	seedFlag := &cli.BoolFlag{
		Name:  "seed",
		Usage: "Override the configured demo-data seeding for empty collections",
	}

	cmd := &cli.Command{
		Name:   "spendguard",
		Usage:  "Procurement administration console: requisitions, orders, invoices, suppliers, contracts and supply chain tracking",
		Action: run,
		Flags:  []cli.Flag{configFlag, seedFlag},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve procurement tools over MCP stdio transport",
				Action: runMCP,
				Flags:  []cli.Flag{configFlag, seedFlag},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
