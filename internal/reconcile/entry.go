// Package reconcile pairs the database-backed and file-backed views of
// an object so drift between the data source and the working copy can
// be detected. It only provides consistent, once-loaded views; deciding
// the synchronization direction is the caller's job.
package reconcile

import (
	"database/sql"

	"github.com/torbennehmer/nav-source-control/internal/db"
	"github.com/torbennehmer/nav-source-control/internal/errors"
	"github.com/torbennehmer/nav-source-control/internal/nav"
)

// Entry holds at most one database view and at most one file view for a
// single identity. Both resolutions are memoized explicitly: computed
// on first access, stored, and returned unchanged thereafter. The
// design is single-threaded; entries must not be shared across
// goroutines.
type Entry struct {
	id nav.ObjectID

	loadDatabase func() (*nav.DatabaseObject, error)
	loadFile     func() (*nav.FileObject, error)

	dbObj    *nav.DatabaseObject
	dbErr    error
	dbLoaded bool

	fileObj    *nav.FileObject
	fileErr    error
	fileLoaded bool
}

// NewEntry creates an entry whose database view is resolved from the
// data source and whose file view is parsed from path on first access.
// An empty path means the object has no working-copy artifact.
func NewEntry(id nav.ObjectID, database *sql.DB, path string) *Entry {
	return &Entry{
		id: id,
		loadDatabase: func() (*nav.DatabaseObject, error) {
			return db.ObjectByID(database, id)
		},
		loadFile: func() (*nav.FileObject, error) {
			if path == "" {
				return nil, errors.NewNotFound(id.String() + " (no working-copy file)")
			}
			return nav.ParseFile(path)
		},
	}
}

// newEntryWithLoaders is the seam used by tests and by callers that
// already hold a parsed view.
func newEntryWithLoaders(id nav.ObjectID, loadDatabase func() (*nav.DatabaseObject, error), loadFile func() (*nav.FileObject, error)) *Entry {
	return &Entry{id: id, loadDatabase: loadDatabase, loadFile: loadFile}
}

// ObjectID returns the shared identity of both views.
func (e *Entry) ObjectID() nav.ObjectID { return e.id }

// Database resolves the database view on first call and returns the
// stored result thereafter.
func (e *Entry) Database() (*nav.DatabaseObject, error) {
	if !e.dbLoaded {
		e.dbObj, e.dbErr = e.loadDatabase()
		e.dbLoaded = true
	}
	return e.dbObj, e.dbErr
}

// File resolves the file view on first call and returns the stored
// result thereafter.
func (e *Entry) File() (*nav.FileObject, error) {
	if !e.fileLoaded {
		e.fileObj, e.fileErr = e.loadFile()
		e.fileLoaded = true
	}
	return e.fileObj, e.fileErr
}
