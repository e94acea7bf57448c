package ops

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/torbennehmer/nav-source-control/internal/cache"
	"github.com/torbennehmer/nav-source-control/internal/config"
	"github.com/torbennehmer/nav-source-control/internal/db"
	"github.com/torbennehmer/nav-source-control/internal/errors"
	"github.com/torbennehmer/nav-source-control/internal/nav"
)

// ExportInput selects which objects to export.
type ExportInput struct {
	// All exports every object regardless of cache state.
	All bool

	// Modified exports objects with the data source's modified flag
	// set, instead of diffing against the cache snapshot.
	Modified bool
}

// ExportOutput reports the exported objects and the refreshed cache.
type ExportOutput struct {
	Exported  []ObjectSummary `json:"exported"`
	Count     int             `json:"count"`
	CacheFile string          `json:"cache_file"`
}

// Export writes drifted objects to the working copy and refreshes the
// cache snapshot. By default objects that changed since the last cache
// snapshot are exported; with no cache present, everything is. A tool
// failure aborts the run immediately: exports have real side effects
// and must not be retried blindly.
func Export(database *sql.DB, cfg *config.Config, client Tool, log *slog.Logger, input ExportInput) (*ExportOutput, error) {
	if log == nil {
		log = slog.Default()
	}
	if input.All && input.Modified {
		return nil, errors.NewInvalidRequest("all and modified are mutually exclusive")
	}

	path, err := cacheFile(cfg)
	if err != nil {
		return nil, err
	}

	objects, err := db.AllObjects(database)
	if err != nil {
		return nil, err
	}

	var selected []*nav.DatabaseObject
	switch {
	case input.All:
		selected = objects
	case input.Modified:
		selected, err = db.ModifiedObjects(database)
		if err != nil {
			return nil, err
		}
	default:
		store, err := cache.Load(path)
		switch {
		case errors.Is(err, errors.ErrCacheAbsent):
			log.Info("no cache snapshot, exporting all objects", "cache", path)
			selected = objects
		case err != nil:
			return nil, err
		default:
			selected = store.Changed(objects)
		}
	}

	output := &ExportOutput{CacheFile: path}
	for _, obj := range selected {
		dest := filepath.Join(cfg.WorkingCopy, filepath.FromSlash(obj.RelativePath()))
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return nil, errors.NewEnvironment(fmt.Sprintf("failed to create working-copy directory: %v", err))
		}
		if err := client.Export(obj, dest); err != nil {
			return nil, err
		}
		output.Exported = append(output.Exported, summarize(obj))
	}
	output.Count = len(output.Exported)

	// The cache is a wholesale snapshot: rebuild it from the full query
	// result so the next run diffs against current state.
	store, err := cache.Snapshot(objects)
	if err != nil {
		return nil, err
	}
	if err := store.Persist(path); err != nil {
		return nil, err
	}

	return output, nil
}
