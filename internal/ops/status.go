package ops

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/torbennehmer/nav-source-control/internal/cache"
	"github.com/torbennehmer/nav-source-control/internal/config"
	"github.com/torbennehmer/nav-source-control/internal/db"
	"github.com/torbennehmer/nav-source-control/internal/errors"
	"github.com/torbennehmer/nav-source-control/internal/reconcile"
)

// StatusItem describes one identity's drift state.
type StatusItem struct {
	Key               string     `json:"key"`
	Type              string     `json:"type"`
	ID                int        `json:"id"`
	Name              string     `json:"name"`
	State             string     `json:"state"`
	DatabaseModified  *time.Time `json:"database_modified,omitempty"`
	FileModified      *time.Time `json:"file_modified,omitempty"`
	Path              string     `json:"path,omitempty"`
	ChangedSinceCache bool       `json:"changed_since_cache,omitempty"`
}

// CacheSummary describes the loaded cache snapshot.
type CacheSummary struct {
	Path      string    `json:"path"`
	Count     int       `json:"count"`
	CreatedAt time.Time `json:"created_at"`
}

// StatusOutput is the drift report over database, working copy, and cache.
type StatusOutput struct {
	Items   []StatusItem            `json:"items"`
	Skipped []reconcile.SkippedFile `json:"skipped,omitempty"`
	Cache   *CacheSummary           `json:"cache,omitempty"`
	Counts  map[string]int          `json:"counts"`
}

// Status reconciles the three representations and reports drift per
// identity. An absent cache is a normal first-run condition; a corrupt
// one is surfaced so the caller can rebuild it deliberately.
func Status(database *sql.DB, cfg *config.Config, log *slog.Logger) (*StatusOutput, error) {
	objects, err := db.AllObjects(database)
	if err != nil {
		return nil, err
	}

	scan, err := reconcile.ScanWorkingCopy(cfg.WorkingCopy, log)
	if err != nil {
		return nil, err
	}

	path, err := cacheFile(cfg)
	if err != nil {
		return nil, err
	}
	store, err := cache.Load(path)
	if err != nil && !errors.Is(err, errors.ErrCacheAbsent) {
		return nil, err
	}

	output := &StatusOutput{Skipped: scan.Skipped, Counts: make(map[string]int)}
	if store != nil {
		output.Cache = &CacheSummary{Path: path, Count: store.Len(), CreatedAt: store.CreatedAt}
	}

	for _, drift := range reconcile.Diff(objects, scan) {
		item := StatusItem{
			Key:   drift.ID.Key(),
			Type:  drift.ID.Type.String(),
			ID:    drift.ID.ID,
			State: string(drift.State),
		}
		if drift.Database != nil {
			item.Name = drift.Database.Name
			modified := drift.Database.Modified
			item.DatabaseModified = &modified
			if store != nil {
				cached, ok := store.Get(drift.ID)
				item.ChangedSinceCache = !ok || !cached.Modified.Equal(modified)
			}
		}
		if drift.File != nil {
			if item.Name == "" {
				item.Name = drift.File.Name
			}
			modified := drift.File.Modified
			item.FileModified = &modified
			item.Path = drift.File.Path
		}
		output.Items = append(output.Items, item)
		output.Counts[string(drift.State)]++
	}

	return output, nil
}
