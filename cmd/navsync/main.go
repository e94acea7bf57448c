package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/torbennehmer/nav-source-control/internal/config"
	"github.com/torbennehmer/nav-source-control/internal/db"
	"github.com/torbennehmer/nav-source-control/internal/finsql"
	"github.com/torbennehmer/nav-source-control/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"status": true, "export": true, "import": true, "compile": true,
	"list": true, "cache": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a short usage hint when run interactively
// without arguments.
func printBanner() {
	fmt.Println(`navsync - application object source synchronization

  Reconciles the application database, the working copy of exported
  object files, and the local cache snapshot, driving the development
  client for export, import, and compile.

  Usage: navsync <command> [options]
         navsync --help

  MCP server mode requires piped input.`)
}

// newLogger builds the process logger from the configured level.
func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before any setup
	if isHelpOrVersion() {
		app := newCLIApp(nil, nil, nil, slog.Default())
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}
	baseDir := filepath.Join(homeDir, ".navsync")

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine working directory: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.CacheFile == "" {
		cfg.CacheFile = filepath.Join(baseDir, "objects.json")
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	var database *sql.DB
	if cfg.Driver == "sqlite" && cfg.DSN == "" {
		// Local snapshot database under the base directory.
		database, err = db.InitLocal(baseDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: failed to open local database: %v\n", err)
			os.Exit(1)
		}
	} else {
		database, err = db.Open(cfg.Driver, cfg.DSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: failed to open database: %v\n", err)
			os.Exit(1)
		}
	}
	defer database.Close()

	runner := finsql.NewRunner(cfg.FinSQLPath, cfg.ServerName, cfg.Database, log)
	client := finsql.NewClient(runner, database, log)

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(database, cfg, client, log)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'navsync --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Warn("ignoring unknown disabled tools", "tools", unknown)
	}
	if err := mcp.Run(database, cfg, log, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
