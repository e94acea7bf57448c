package ops

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/torbennehmer/nav-source-control/internal/config"
	"github.com/torbennehmer/nav-source-control/internal/db"
	"github.com/torbennehmer/nav-source-control/internal/nav"
)

// setupEnv creates a local database, a working copy directory, and a
// config pointing a cache file into a temp dir.
func setupEnv(t *testing.T) (*sql.DB, *config.Config) {
	t.Helper()
	database, err := db.InitLocal(t.TempDir())
	if err != nil {
		t.Fatalf("InitLocal() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	base := t.TempDir()
	cfg := &config.Config{
		WorkingCopy: filepath.Join(base, "wc"),
		CacheFile:   filepath.Join(base, "objects.json"),
	}
	if err := os.MkdirAll(cfg.WorkingCopy, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	return database, cfg
}

// insertObject seeds one fixture row.
func insertObject(t *testing.T, database *sql.DB, objType nav.ObjectType, id int, name string, modified time.Time, version string, flag bool) *nav.DatabaseObject {
	t.Helper()
	obj := &nav.DatabaseObject{
		ID:       nav.ObjectID{Type: objType, ID: id},
		Name:     name,
		Modified: modified,
		Version:  version,
	}
	if err := db.InsertObject(database, obj, flag); err != nil {
		t.Fatalf("InsertObject(%s) error = %v", obj.ID, err)
	}
	return obj
}

// exportText renders the artifact format the development client writes,
// so fake exports can be scanned back in.
func exportText(obj nav.Object) string {
	id := obj.ObjectID()
	return fmt.Sprintf("OBJECT %s %d %s\n{\n  OBJECT-PROPERTIES\n  {\n    Date=%s;\n    Time=%s;\n    Version List=%s;\n  }\n}\n",
		id.Type, id.ID, obj.ObjectName(),
		obj.ModifiedAt().Format("02.01.06"),
		obj.ModifiedAt().Format("15:04:05"),
		obj.VersionList())
}

// fakeTool satisfies Tool without spawning the external client. Export
// writes a real parseable artifact; Import and Compile re-resolve the
// database view the way the real client does.
type fakeTool struct {
	database *sql.DB

	exported []string
	imported []string
	compiled []nav.ObjectID

	exportErr  error
	importErr  error
	compileErr error
}

func (f *fakeTool) Export(obj nav.Object, dest string) error {
	if f.exportErr != nil {
		return f.exportErr
	}
	if err := os.WriteFile(dest, []byte(exportText(obj)), 0644); err != nil {
		return err
	}
	f.exported = append(f.exported, dest)
	return nil
}

func (f *fakeTool) Import(obj nav.Object, src string) (*nav.DatabaseObject, error) {
	if f.importErr != nil {
		return nil, f.importErr
	}
	f.imported = append(f.imported, src)
	return db.ObjectByID(f.database, obj.ObjectID())
}

func (f *fakeTool) Compile(obj nav.Object) (*nav.DatabaseObject, error) {
	if f.compileErr != nil {
		return nil, f.compileErr
	}
	f.compiled = append(f.compiled, obj.ObjectID())
	return db.ObjectByID(f.database, obj.ObjectID())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

// writeWorkingCopy places a parseable artifact for obj under the
// configured working copy, optionally shifting its modified instant.
func writeWorkingCopy(t *testing.T, cfg *config.Config, obj *nav.DatabaseObject, shift time.Duration) string {
	t.Helper()
	shifted := *obj
	shifted.Modified = obj.Modified.Add(shift)
	path := filepath.Join(cfg.WorkingCopy, filepath.FromSlash(obj.RelativePath()))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(exportText(&shifted)), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}
