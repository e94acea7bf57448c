package ops

import (
	"database/sql"
	"log/slog"

	"github.com/torbennehmer/nav-source-control/internal/cache"
	"github.com/torbennehmer/nav-source-control/internal/config"
	"github.com/torbennehmer/nav-source-control/internal/db"
	"github.com/torbennehmer/nav-source-control/internal/nav"
	"github.com/torbennehmer/nav-source-control/internal/reconcile"
)

// ImportInput selects which working-copy files to import.
type ImportInput struct {
	// Paths imports exactly these files. Parse errors are fatal here:
	// explicitly named files are expected to be valid.
	Paths []string

	// All imports every parseable working-copy file instead of only
	// the ones newer than their database view.
	All bool

	// Compile recompiles each object after import.
	Compile bool
}

// ImportOutput reports the refreshed database views after import.
type ImportOutput struct {
	Imported []ObjectSummary `json:"imported"`
	Count    int             `json:"count"`
}

// Import loads working-copy files into the data source, overwriting the
// existing objects. Without explicit paths, the working copy is scanned
// and files carrying a later modified instant than their database view
// are selected. Each import re-resolves the database view, and the
// cache snapshot is rebuilt afterwards.
func Import(database *sql.DB, cfg *config.Config, client Tool, log *slog.Logger, input ImportInput) (*ImportOutput, error) {
	if log == nil {
		log = slog.Default()
	}

	var files []*nav.FileObject
	if len(input.Paths) > 0 {
		for _, path := range input.Paths {
			obj, err := nav.ParseFile(path)
			if err != nil {
				return nil, err
			}
			files = append(files, obj)
		}
	} else {
		scan, err := reconcile.ScanWorkingCopy(cfg.WorkingCopy, log)
		if err != nil {
			return nil, err
		}
		objects, err := db.AllObjects(database)
		if err != nil {
			return nil, err
		}
		for _, drift := range reconcile.Diff(objects, scan) {
			if drift.File == nil {
				continue
			}
			if input.All || drift.State == reconcile.DriftWorkingCopyNewer || drift.State == reconcile.DriftWorkingCopyOnly {
				files = append(files, drift.File)
			}
		}
	}

	output := &ImportOutput{}
	for _, file := range files {
		refreshed, err := client.Import(file, file.Path)
		if err != nil {
			return nil, err
		}
		if input.Compile {
			refreshed, err = client.Compile(refreshed)
			if err != nil {
				return nil, err
			}
		}
		output.Imported = append(output.Imported, summarize(refreshed))
	}
	output.Count = len(output.Imported)

	if err := refreshCache(database, cfg); err != nil {
		return nil, err
	}

	return output, nil
}

// refreshCache rebuilds and persists the cache snapshot from the
// current query result.
func refreshCache(database *sql.DB, cfg *config.Config) error {
	path, err := cacheFile(cfg)
	if err != nil {
		return err
	}
	objects, err := db.AllObjects(database)
	if err != nil {
		return err
	}
	store, err := cache.Snapshot(objects)
	if err != nil {
		return err
	}
	return store.Persist(path)
}
