package finsql

import (
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/torbennehmer/nav-source-control/internal/db"
	"github.com/torbennehmer/nav-source-control/internal/errors"
	"github.com/torbennehmer/nav-source-control/internal/nav"
)

// exportExtensions are the artifact extensions the development client
// recognizes; it infers the export format purely from the extension.
var exportExtensions = map[string]bool{
	".txt": true,
	".fob": true,
}

// Client exposes the object-level operations built on the runner. All
// operations are synchronous and side-effecting against the live data
// source; failures are business-level conditions and are never retried
// automatically.
type Client struct {
	runner   *Runner
	database *sql.DB
	log      *slog.Logger
}

// NewClient creates a client. The database handle is used to re-resolve
// views after import and compile, since both may alter modification
// metadata.
func NewClient(runner *Runner, database *sql.DB, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{runner: runner, database: database, log: log}
}

// Export writes the object's definition to dest, which must carry a
// recognized artifact extension.
func (c *Client) Export(obj nav.Object, dest string) error {
	ext := strings.ToLower(filepath.Ext(dest))
	if !exportExtensions[ext] {
		return errors.NewInvalidRequest(fmt.Sprintf("unrecognized export extension %q for %s", ext, dest))
	}
	id := obj.ObjectID()
	command := fmt.Sprintf("Command=ExportObjects, File=\"%s\", Filter=\"%s\"", dest, id.Filter())
	if _, err := c.runner.Execute(command); err != nil {
		return wrapToolError(err, id, "export")
	}
	c.log.Info("exported object", "object", id.String(), "file", dest)
	return nil
}

// Import loads the object definition at src into the data source,
// overwriting the existing object and forcing schema synchronization
// (an explicit potential-data-loss operation). On success the database
// view is re-resolved and returned; the import may alter modification
// metadata, so the caller must not reuse the pre-import view.
func (c *Client) Import(obj nav.Object, src string) (*nav.DatabaseObject, error) {
	id := obj.ObjectID()
	command := fmt.Sprintf("Command=ImportObjects, File=\"%s\", ImportAction=overwrite, SynchronizeSchemaChanges=force", src)
	if _, err := c.runner.Execute(command); err != nil {
		return nil, wrapToolError(err, id, "import")
	}
	c.log.Info("imported object", "object", id.String(), "file", src)
	return db.ObjectByID(c.database, id)
}

// Compile compiles the object, forcing schema synchronization. On
// success the refreshed database view is returned.
func (c *Client) Compile(obj nav.Object) (*nav.DatabaseObject, error) {
	id := obj.ObjectID()
	command := fmt.Sprintf("Command=CompileObjects, Filter=\"%s\", SynchronizeSchemaChanges=force", id.Filter())
	if _, err := c.runner.Execute(command); err != nil {
		return nil, wrapToolError(err, id, "compile")
	}
	c.log.Info("compiled object", "object", id.String())
	return db.ObjectByID(c.database, id)
}

// wrapToolError rebinds a runner-level tool error to the object and
// operation it belongs to. Environment errors pass through unchanged.
func wrapToolError(err error, id nav.ObjectID, operation string) error {
	sErr, ok := err.(*errors.SyncError)
	if !ok || sErr.Code != errors.ErrTool {
		return err
	}
	message, _ := sErr.Details["tool_message"].(string)
	return errors.NewTool(id.String(), operation, message)
}
