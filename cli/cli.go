// Package cli implements the command line interface of strata.
package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"go.hackfix.me/strata/app/config"
	actx "go.hackfix.me/strata/app/context"
	"go.hackfix.me/strata/migrate"
)

// CLI is the command line interface of strata.
type CLI struct {
	Install Install `kong:"cmd,help='Create the migration tracking table and its bootstrap migration file.'"`
	Create  Create  `kong:"cmd,help='Create a new empty migration file.'"`
	Up      Up      `kong:"cmd,help='Apply pending migrations.',aliases='apply,upgrade'"`
	Down    Down    `kong:"cmd,help='Revert applied migrations.',aliases='rollback'"`
	Status  Status  `kong:"cmd,help='Show the state of every migration.',aliases='st'"`
	Show    Show    `kong:"cmd,help='Print migrations in their canonical section format.'"`
	Record  Record  `kong:"cmd,help='Record migrations as applied or reverted without executing them.'"`
	Exec    Exec    `kong:"cmd,help='Execute sections of arbitrary SQL files without recording state.'"`
	Dump    Dump    `kong:"cmd,help='Export existing schema and data as migration files.'"`

	Log struct {
		Level slog.Level `enum:"DEBUG,INFO,WARN,ERROR" default:"INFO" help:"Set the app logging level."`
	} `embed:"" prefix:"log-"`
	// NOTE: I'm deliberately not using kong.ConfigFlag or its support for reading
	// values from configuration files, since I want to manage configuration
	// independently from the CLI.
	ConfigFile string           `kong:"default='${configFile}',help='Path to the strata configuration file.'"`
	Database   string           `kong:"help='Path to the SQLite database file.'"`
	Directory  string           `kong:"short='D',help='Path to the migrations directory.'"`
	Table      string           `kong:"short='t',help='Name of the migration tracking table.'"`
	Template   string           `kong:"help='Path to a template migration whose sections wrap every executed migration.'"`
	DryRun     bool             `kong:"short='n',help='Only show what would be done.'"`
	Version    kong.VersionFlag `kong:"help='Output version and exit.'"`

	kong    *kong.Kong
	kctx    *kong.Context
	dataDir string
}

// New initializes the command-line interface.
func New(configFilePath, dataDir, version string) (*CLI, error) {
	c := &CLI{dataDir: dataDir}
	kparser, err := kong.New(c,
		kong.Name("strata"),
		kong.UsageOnError(),
		kong.DefaultEnvars("STRATA"),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			Summary:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"configFile": configFilePath,
			"version":    version,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed creating the Kong parser: %w", err)
	}

	c.kong = kparser

	return c, nil
}

// Parse the given command line arguments. This method must be called before
// Execute.
func (c *CLI) Parse(args []string) error {
	kctx, err := c.kong.Parse(args)
	if err != nil {
		return fmt.Errorf("failed parsing CLI arguments: %w", err)
	}
	c.kctx = kctx

	return nil
}

// Execute starts the command execution. Parse must be called before this method.
func (c *CLI) Execute(appCtx *actx.Context) error {
	if c.kctx == nil {
		panic("the CLI wasn't initialized properly")
	}
	c.kong.Stdout = appCtx.Stdout
	c.kong.Stderr = appCtx.Stderr

	//nolint:wrapcheck // This is fine.
	return c.kctx.Run(appCtx, c)
}

// Command returns the full path of the executed command.
func (c *CLI) Command() string {
	if c.kctx == nil {
		panic("the CLI wasn't initialized properly")
	}
	cmdPath := []string{}
	for _, p := range c.kctx.Path {
		if p.Command != nil {
			cmdPath = append(cmdPath, p.Command.Name)
		}
	}

	return strings.Join(cmdPath, " ")
}

// ApplyConfig applies configuration values to the CLI, but only if they
// weren't already set, and falls back to built-in defaults.
func (c *CLI) ApplyConfig(cfg *config.Config) {
	if c.Database == "" {
		c.Database = cfg.Database.Path
	}
	if c.Database == "" {
		c.Database = filepath.Join(c.dataDir, "strata.db")
	}
	if c.Directory == "" {
		c.Directory = cfg.Migrations.Directory
	}
	if c.Directory == "" {
		c.Directory = "."
	}
	if c.Table == "" {
		c.Table = cfg.Migrations.Table
	}
	if c.Table == "" {
		c.Table = "_strata"
	}
}

// repository creates the migration repository over the configured directory.
func (c *CLI) repository(appCtx *actx.Context) *migrate.Repository {
	return migrate.NewRepository(appCtx.FS, c.Directory, nil, appCtx.Logger)
}

// store creates the state store over the configured tracking table.
func (c *CLI) store() *migrate.SQLStore {
	return migrate.NewSQLStore(c.Table)
}

// executor creates the plan executor, loading the template migration if one
// was configured.
func (c *CLI) executor(appCtx *actx.Context) (*migrate.Executor, error) {
	var opts []migrate.ExecutorOption
	if c.Template != "" {
		tmpl, err := loadMigrationFile(appCtx, c.Template)
		if err != nil {
			return nil, err
		}
		opts = append(opts, migrate.WithTemplate(tmpl))
	}

	return migrate.NewExecutor(c.store(), appCtx.Logger, opts...), nil
}
