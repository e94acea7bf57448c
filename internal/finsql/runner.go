// Package finsql drives the external development client. The client
// never reports failure through its exit code; the only reliable
// failure signal is the presence of the error-log file named on the
// command line. Every invocation therefore runs through a fixed
// Prepare -> Execute -> Classify -> Cleanup sequence with an isolated
// scratch directory that is removed unconditionally.
package finsql

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/torbennehmer/nav-source-control/internal/errors"
)

const (
	// errorLogName is the side-channel failure signal: the tool creates
	// this file in the scratch directory only when the command failed.
	errorLogName = "errorlog.txt"

	// commandResultName is the output artifact the tool always writes
	// into its working directory.
	commandResultName = "navcommandresult.txt"

	// scratchAttempts bounds the retry on scratch directory allocation.
	// A genuine name collision is practically impossible, so repeated
	// failure signals an environment problem worth surfacing loudly.
	scratchAttempts = 3
)

// Result carries the captured output of one tool invocation.
type Result struct {
	// Output is the decoded content of the command result artifact.
	Output string

	// ExitCode is recorded for diagnostics but is not authoritative;
	// the tool reports failure only through the error log.
	ExitCode int
}

// Runner executes development client commands synchronously. Each call
// blocks for the full external-process lifetime; callers needing
// timeouts must wrap the call externally.
type Runner struct {
	// Exe is the development client executable.
	Exe string

	// ServerName and Database identify the target, appended to every
	// command line.
	ServerName string
	Database   string

	// TempDir overrides the scratch directory parent; empty means
	// os.TempDir().
	TempDir string

	log *slog.Logger

	// Seams for tests: process execution and directory creation.
	run   func(dir, exe, command string) (int, error)
	mkdir func(path string) error
}

// NewRunner creates a runner for the given executable and target.
// A nil logger means slog.Default().
func NewRunner(exe, serverName, database string, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		Exe:        exe,
		ServerName: serverName,
		Database:   database,
		log:        log,
		run:        runProcess,
		mkdir: func(path string) error {
			return os.Mkdir(path, 0700)
		},
	}
}

// Execute runs one tool command. The caller supplies the command
// fragment (Command=..., plus command-specific parameters); Execute
// appends the error-log path, server, and database, runs the tool with
// the scratch directory as its working directory, classifies the
// outcome by probing for the error log, and removes the scratch
// directory in every branch.
func (r *Runner) Execute(command string) (*Result, error) {
	scratch, err := r.scratchDir()
	if err != nil {
		return nil, err
	}

	errLog := filepath.Join(scratch, errorLogName)
	full := fmt.Sprintf("%s, LogFile=\"%s\", ServerName=%s, Database=\"%s\"",
		command, errLog, r.ServerName, r.Database)

	r.log.Debug("running development client", "exe", r.Exe, "command", command)
	start := time.Now()
	exitCode, runErr := r.run(scratch, r.Exe, full)
	r.log.Debug("development client finished",
		"exit_code", exitCode, "duration", time.Since(start))

	// Classify before cleanup: both artifacts live in the scratch dir.
	_, statErr := os.Stat(errLog)
	failed := statErr == nil
	var toolMessage string
	if failed {
		toolMessage = readCodePage850(errLog)
	}
	output := readCodePage850(filepath.Join(scratch, commandResultName))

	// Cleanup runs unconditionally. A failure here indicates
	// filesystem-level problems beyond this invocation's control.
	if err := os.RemoveAll(scratch); err != nil {
		return nil, errors.NewEnvironment(fmt.Sprintf("failed to remove scratch directory %s: %v", scratch, err))
	}

	if runErr != nil {
		return nil, errors.NewEnvironment(fmt.Sprintf("failed to start development client %s: %v", r.Exe, runErr))
	}

	result := &Result{Output: output, ExitCode: exitCode}
	if failed {
		return result, errors.NewTool("", "command", toolMessage)
	}
	return result, nil
}

// scratchDir allocates a fresh, exclusively owned scratch directory,
// retrying with a new random name up to scratchAttempts times.
func (r *Runner) scratchDir() (string, error) {
	base := r.TempDir
	if base == "" {
		base = os.TempDir()
	}
	var lastErr error
	for attempt := 1; attempt <= scratchAttempts; attempt++ {
		name, err := scratchName()
		if err != nil {
			return "", errors.NewEnvironment(fmt.Sprintf("failed to generate scratch directory name: %v", err))
		}
		dir := filepath.Join(base, name)
		if err := r.mkdir(dir); err != nil {
			lastErr = err
			r.log.Warn("scratch directory allocation failed", "dir", dir, "attempt", attempt, "error", err)
			continue
		}
		return dir, nil
	}
	return "", errors.NewEnvironment(fmt.Sprintf("scratch directory allocation failed after %d attempts: %v", scratchAttempts, lastErr))
}

// scratchName returns a cryptographically random directory name.
func scratchName() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return "navsync-" + id.String(), nil
}

// runProcess invokes the tool synchronously with dir as its working
// directory. A nonzero exit is not an error: the exit code is recorded
// but classification happens via the error log.
func runProcess(dir, exe, command string) (int, error) {
	cmd := exec.Command(exe, command)
	cmd.Dir = dir
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return 0, err
	}
	return 0, nil
}

// readCodePage850 reads a tool artifact and decodes it with the fixed
// legacy code page the tool writes regardless of system locale.
// Decoding with anything else silently corrupts non-ASCII characters
// in object names. Missing artifacts read as empty.
func readCodePage850(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	decoded, err := charmap.CodePage850.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(decoded)
}
