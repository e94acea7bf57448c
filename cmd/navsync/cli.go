package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/torbennehmer/nav-source-control/internal/config"
	"github.com/torbennehmer/nav-source-control/internal/errors"
	"github.com/torbennehmer/nav-source-control/internal/finsql"
	"github.com/torbennehmer/nav-source-control/internal/ops"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, client *finsql.Client, log *slog.Logger) *cli.App {
	app := &cli.App{
		Name:    "navsync",
		Usage:   "Synchronize application objects between database, working copy, and cache",
		Version: Version,
		Commands: []*cli.Command{
			statusCmd(db, cfg, log),
			exportCmd(db, cfg, client, log),
			importCmd(db, cfg, client, log),
			compileCmd(db, cfg, client),
			listCmd(db),
			cacheCmd(db, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// statusCmd creates the status command.
func statusCmd(db *sql.DB, cfg *config.Config, log *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Report drift between database, working copy, and cache",
		Action: func(c *cli.Context) error {
			output, err := ops.Status(db, cfg, log)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(db *sql.DB, cfg *config.Config, client *finsql.Client, log *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export changed objects to the working copy and refresh the cache",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "Export every object, not just changed ones"},
			&cli.BoolFlag{Name: "modified", Aliases: []string{"m"}, Usage: "Export objects with the modified flag set instead of diffing against the cache"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(db, cfg, client, log, ops.ExportInput{
				All:      c.Bool("all"),
				Modified: c.Bool("modified"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(db *sql.DB, cfg *config.Config, client *finsql.Client, log *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import working-copy files into the database (overwrites objects)",
		ArgsUsage: "[paths...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "Import every working-copy file, not just newer ones"},
			&cli.BoolFlag{Name: "compile", Value: true, Usage: "Compile each object after import"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Import(db, cfg, client, log, ops.ImportInput{
				Paths:   c.Args().Slice(),
				All:     c.Bool("all"),
				Compile: c.Bool("compile"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// compileCmd creates the compile command.
func compileCmd(db *sql.DB, cfg *config.Config, client *finsql.Client) *cli.Command {
	return &cli.Command{
		Name:      "compile",
		Usage:     "Compile objects by key (forces schema synchronization)",
		ArgsUsage: "<key> [key...]",
		Action: func(c *cli.Context) error {
			output, err := ops.Compile(db, cfg, client, ops.CompileInput{
				Keys: c.Args().Slice(),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List objects in the database",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Object type filter, e.g. Codeunit"},
			&cli.BoolFlag{Name: "modified", Aliases: []string{"m"}, Usage: "Only objects with the modified flag set"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(db, ops.ListInput{
				Type:     c.String("type"),
				Modified: c.Bool("modified"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// cacheCmd creates the cache command with its subcommands.
func cacheCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or rebuild the cache snapshot",
		Subcommands: []*cli.Command{
			{
				Name:  "rebuild",
				Usage: "Snapshot the current database state and replace the cache",
				Action: func(c *cli.Context) error {
					output, err := ops.CacheRebuild(db, cfg)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "info",
				Usage: "Describe the persisted cache snapshot",
				Action: func(c *cli.Context) error {
					output, err := ops.CacheInfo(cfg)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if sErr, ok := err.(*errors.SyncError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", sErr.Code, sErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
