package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/torbennehmer/nav-source-control/internal/config"
	"github.com/torbennehmer/nav-source-control/internal/db"
	"github.com/torbennehmer/nav-source-control/internal/nav"
	"github.com/torbennehmer/nav-source-control/internal/ops"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	database, err := db.InitLocal(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	cleanup := func() {
		database.Close()
	}
	return database, cleanup
}

// testConfig returns a config wired to temp directories.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	wc := filepath.Join(base, "wc")
	if err := os.MkdirAll(wc, 0755); err != nil {
		t.Fatalf("failed to create working copy: %v", err)
	}
	return &config.Config{
		Driver:      "sqlite",
		ServerName:  "NAVSRV",
		Database:    "NAV_Dev",
		WorkingCopy: wc,
		CacheFile:   filepath.Join(base, "objects.json"),
	}
}

// seedObject inserts one fixture row.
func seedObject(t *testing.T, database *sql.DB, objType nav.ObjectType, id int, name string, modified bool) {
	t.Helper()
	obj := &nav.DatabaseObject{
		ID:       nav.ObjectID{Type: objType, ID: id},
		Name:     name,
		Modified: time.Date(2015, 9, 28, 12, 0, 0, 0, time.Local),
		Version:  "CMNM6.03",
	}
	if err := db.InsertObject(database, obj, modified); err != nil {
		t.Fatalf("failed to seed object: %v", err)
	}
}

// runApp runs the CLI with stdout captured.
func runApp(t *testing.T, app *cli.App, args []string) (string, error) {
	t.Helper()
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := app.Run(args)

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	return buf.String(), err
}

// TestCLIList tests the list command.
func TestCLIList(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	cfg := testConfig(t)

	seedObject(t, database, nav.TypeCodeunit, 99997, "TN_Test", true)
	seedObject(t, database, nav.TypeTable, 50000, "Setup", false)

	app := newCLIApp(database, cfg, nil, nil)

	t.Run("all objects", func(t *testing.T) {
		out, err := runApp(t, app, []string{"navsync", "list"})
		if err != nil {
			t.Fatalf("list command failed: %v", err)
		}

		var output ops.ListOutput
		if err := json.Unmarshal([]byte(out), &output); err != nil {
			t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
		}
		if output.Count != 2 {
			t.Errorf("expected count=2, got %d", output.Count)
		}
	})

	t.Run("type filter", func(t *testing.T) {
		out, err := runApp(t, app, []string{"navsync", "list", "--type=Codeunit"})
		if err != nil {
			t.Fatalf("list command failed: %v", err)
		}

		var output ops.ListOutput
		if err := json.Unmarshal([]byte(out), &output); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}
		if output.Count != 1 || output.Items[0].Key != "5.99997" {
			t.Errorf("expected only 5.99997, got %+v", output.Items)
		}
	})

	t.Run("modified filter", func(t *testing.T) {
		out, err := runApp(t, app, []string{"navsync", "list", "--modified"})
		if err != nil {
			t.Fatalf("list command failed: %v", err)
		}

		var output ops.ListOutput
		if err := json.Unmarshal([]byte(out), &output); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}
		if output.Count != 1 || output.Items[0].Name != "TN_Test" {
			t.Errorf("expected only TN_Test, got %+v", output.Items)
		}
	})
}

// TestCLIStatus tests the status command.
func TestCLIStatus(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	cfg := testConfig(t)

	seedObject(t, database, nav.TypeCodeunit, 99997, "TN_Test", true)

	app := newCLIApp(database, cfg, nil, nil)

	out, err := runApp(t, app, []string{"navsync", "status"})
	if err != nil {
		t.Fatalf("status command failed: %v", err)
	}

	var output ops.StatusOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if len(output.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(output.Items))
	}
	if output.Items[0].State != "database-only" {
		t.Errorf("expected state=database-only, got %s", output.Items[0].State)
	}
}

// TestCLICache tests the cache rebuild and info subcommands.
func TestCLICache(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	cfg := testConfig(t)

	seedObject(t, database, nav.TypeCodeunit, 99997, "TN_Test", true)

	app := newCLIApp(database, cfg, nil, nil)

	t.Run("rebuild", func(t *testing.T) {
		out, err := runApp(t, app, []string{"navsync", "cache", "rebuild"})
		if err != nil {
			t.Fatalf("cache rebuild failed: %v", err)
		}

		var output ops.CacheRebuildOutput
		if err := json.Unmarshal([]byte(out), &output); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}
		if output.Count != 1 {
			t.Errorf("expected count=1, got %d", output.Count)
		}
	})

	t.Run("info", func(t *testing.T) {
		out, err := runApp(t, app, []string{"navsync", "cache", "info"})
		if err != nil {
			t.Fatalf("cache info failed: %v", err)
		}

		var output ops.CacheInfoOutput
		if err := json.Unmarshal([]byte(out), &output); err != nil {
			t.Fatalf("failed to parse output: %v", err)
		}
		if !output.Present || output.Count != 1 {
			t.Errorf("expected present cache with 1 object, got %+v", output)
		}
	})
}

// TestCLIErrorHandling tests error handling in CLI commands.
func TestCLIErrorHandling(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	cfg := testConfig(t)

	app := newCLIApp(database, cfg, nil, nil)

	t.Run("conflicting export flags return error", func(t *testing.T) {
		_, err := runApp(t, app, []string{"navsync", "export", "--all", "--modified"})
		if err == nil {
			t.Error("expected error, got nil")
		}
	})

	t.Run("compile without keys returns error", func(t *testing.T) {
		_, err := runApp(t, app, []string{"navsync", "compile"})
		if err == nil {
			t.Error("expected error, got nil")
		}
	})

	t.Run("unknown type filter returns error", func(t *testing.T) {
		_, err := runApp(t, app, []string{"navsync", "list", "--type=Form"})
		if err == nil {
			t.Error("expected error, got nil")
		}
	})
}

// TestIsCLIMode tests the isCLIMode function.
func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{
			name:     "no args",
			args:     []string{"navsync"},
			expected: false,
		},
		{
			name:     "status command",
			args:     []string{"navsync", "status"},
			expected: true,
		},
		{
			name:     "export command",
			args:     []string{"navsync", "export"},
			expected: true,
		},
		{
			name:     "help flag",
			args:     []string{"navsync", "--help"},
			expected: true,
		},
		{
			name:     "version flag",
			args:     []string{"navsync", "--version"},
			expected: true,
		},
		{
			name:     "unknown arg defaults to MCP",
			args:     []string{"navsync", "--unknown"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			result := isCLIMode()

			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

// TestIsHelpOrVersion tests the isHelpOrVersion function.
func TestIsHelpOrVersion(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{
			name:     "no args",
			args:     []string{"navsync"},
			expected: false,
		},
		{
			name:     "help flag",
			args:     []string{"navsync", "--help"},
			expected: true,
		},
		{
			name:     "help subcommand",
			args:     []string{"navsync", "help"},
			expected: true,
		},
		{
			name:     "status command is not help",
			args:     []string{"navsync", "status"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			result := isHelpOrVersion()

			if result != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}
