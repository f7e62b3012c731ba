package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"fieldsync-backend/config"
	"fieldsync-backend/internal/db"
	"fieldsync-backend/internal/inspection"
	"fieldsync-backend/internal/refresh"
	"fieldsync-backend/internal/remote"
	"fieldsync-backend/internal/store"
	"fieldsync-backend/internal/syncer"
)

const defaultConfigPath = "./config/config.yaml"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
}

// NewRootCommand creates the root command for the fieldsync agent.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "fieldsyncd",
		Short: "Offline-first inspection sync agent",
		Long: `fieldsyncd keeps a local replica of inspection reports and pending items
and reconciles it with the remote store whenever a refresh runs.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to config.yaml (default $CONFIG_PATH or "+defaultConfigPath+")")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewRefreshCommand(opts))
	cmd.AddCommand(NewPingCommand(opts))

	return cmd
}

// resolveConfigPath picks the flag, then CONFIG_PATH, then the default.
func resolveConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return defaultConfigPath
}

func loadConfig(opts *RootOptions) (*config.Config, error) {
	path := resolveConfigPath(opts.ConfigPath)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", path, err)
	}
	config.SetupLogger(cfg.Log)
	return cfg, nil
}

// app is the wired component graph shared by all commands.
type app struct {
	cfg        *config.Config
	db         *gorm.DB
	store      store.Store
	remote     *remote.Client
	controller *syncer.Controller
	worker     *refresh.Worker
	inspection *inspection.Service
}

func newApp(cfg *config.Config) (*app, error) {
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	a := &app{cfg: cfg, db: gormDB}
	a.store = store.NewGormStore(gormDB)
	a.remote = remote.NewClient(cfg.Remote)
	a.controller = syncer.NewController(a.store, a.remote)
	a.worker = refresh.NewWorker(a.controller, cfg.Sync)

	var requester inspection.Requester
	if cfg.Sync.RefreshOnMutation {
		requester = a.worker
	}
	a.inspection = inspection.NewService(a.store, cfg.Areas, requester)
	return a, nil
}

func (a *app) Close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
