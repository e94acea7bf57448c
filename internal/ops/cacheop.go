package ops

import (
	"database/sql"
	"time"

	"github.com/torbennehmer/nav-source-control/internal/cache"
	"github.com/torbennehmer/nav-source-control/internal/config"
	"github.com/torbennehmer/nav-source-control/internal/db"
	"github.com/torbennehmer/nav-source-control/internal/errors"
)

// CacheRebuildOutput reports the freshly written snapshot.
type CacheRebuildOutput struct {
	Path      string    `json:"path"`
	Count     int       `json:"count"`
	CreatedAt time.Time `json:"created_at"`
}

// CacheRebuild snapshots the current query result and persists it,
// replacing any previous artifact.
func CacheRebuild(database *sql.DB, cfg *config.Config) (*CacheRebuildOutput, error) {
	path, err := cacheFile(cfg)
	if err != nil {
		return nil, err
	}
	objects, err := db.AllObjects(database)
	if err != nil {
		return nil, err
	}
	store, err := cache.Snapshot(objects)
	if err != nil {
		return nil, err
	}
	if err := store.Persist(path); err != nil {
		return nil, err
	}
	return &CacheRebuildOutput{Path: path, Count: store.Len(), CreatedAt: store.CreatedAt}, nil
}

// CacheInfoOutput describes the persisted snapshot, if any.
type CacheInfoOutput struct {
	Present   bool       `json:"present"`
	Path      string     `json:"path"`
	Count     int        `json:"count,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// CacheInfo inspects the persisted snapshot without touching the data
// source. An absent cache is reported, not an error; a corrupt one is.
func CacheInfo(cfg *config.Config) (*CacheInfoOutput, error) {
	path, err := cacheFile(cfg)
	if err != nil {
		return nil, err
	}
	store, err := cache.Load(path)
	if errors.Is(err, errors.ErrCacheAbsent) {
		return &CacheInfoOutput{Present: false, Path: path}, nil
	}
	if err != nil {
		return nil, err
	}
	createdAt := store.CreatedAt
	return &CacheInfoOutput{
		Present:   true,
		Path:      path,
		Count:     store.Len(),
		CreatedAt: &createdAt,
	}, nil
}
