// Package app wires the application components together.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/mandelsoft/vfs/pkg/memoryfs"

	"go.hackfix.me/strata/app/config"
	actx "go.hackfix.me/strata/app/context"
	"go.hackfix.me/strata/cli"
	"go.hackfix.me/strata/db"
)

// App is the application.
type App struct {
	name string
	ctx  *actx.Context
	cli  *cli.CLI
	// the logging level is set via the CLI, if the app was initialized with the
	// WithLogger option.
	logLevel *slog.LevelVar
}

// New initializes a new application.
func New(name string, opts ...Option) (*App, error) {
	version, err := actx.GetVersion()
	if err != nil {
		return nil, err
	}

	defaultCtx := &actx.Context{
		Ctx:     context.Background(),
		FS:      memoryfs.New(),
		Logger:  slog.Default(),
		TimeNow: time.Now,
		Version: version,
	}
	app := &App{name: name, ctx: defaultCtx}

	for _, opt := range opts {
		opt(app)
	}

	configFile := filepath.Join(xdg.ConfigHome, name, "config.json")
	dataDir := filepath.Join(xdg.DataHome, name)
	ver := fmt.Sprintf("%s %s", app.name, app.ctx.Version.String())
	app.cli, err = cli.New(configFile, dataDir, ver)
	if err != nil {
		return nil, err
	}

	return app, nil
}

// Run initializes the application environment and starts execution of the
// application.
func (app *App) Run(args []string) error {
	if err := app.cli.Parse(args); err != nil {
		return err
	}

	if app.logLevel != nil {
		app.logLevel.Set(app.cli.Log.Level)
		slog.SetLogLoggerLevel(app.cli.Log.Level)
	}

	cfg := config.NewConfig(app.ctx.FS, app.cli.ConfigFile)
	if err := cfg.Load(); err != nil {
		return err
	}
	app.ctx.Config = cfg
	app.cli.ApplyConfig(cfg)

	if app.ctx.DB == nil {
		if !strings.Contains(app.cli.Database, "memory") {
			if err := app.ctx.FS.MkdirAll(filepath.Dir(app.cli.Database), 0o755); err != nil {
				return fmt.Errorf("failed creating data directory: %w", err)
			}
		}
		d, err := db.Open(app.ctx.Ctx, app.cli.Database, app.ctx.TimeNow)
		if err != nil {
			return err
		}
		app.ctx.DB = d
	}

	return app.cli.Execute(app.ctx)
}
