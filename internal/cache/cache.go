// Package cache persists a snapshot of database-view objects between
// runs, so the data source does not have to be re-queried to decide
// which objects changed. The artifact is written and reloaded as a
// unit: a snapshot, not a live index.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/torbennehmer/nav-source-control/internal/errors"
	"github.com/torbennehmer/nav-source-control/internal/nav"
)

// SchemaVersion is the artifact schema version accepted by Load.
const SchemaVersion = 1

// Record is the serialized form of a database view.
type Record struct {
	Type        int       `json:"type"`
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Modified    time.Time `json:"modified"`
	VersionList string    `json:"version_list"`
}

// artifact is the on-disk layout of the cache file.
type artifact struct {
	SchemaVersion int               `json:"schema_version"`
	CreatedAt     time.Time         `json:"created_at"`
	Objects       map[string]Record `json:"objects"`
}

// Store is a keyed snapshot of database-view objects.
type Store struct {
	CreatedAt time.Time

	objects map[string]*nav.DatabaseObject
}

// Snapshot builds a store from a query result. A duplicate key within
// the input is a data-source contract violation and fails construction.
func Snapshot(objects []*nav.DatabaseObject) (*Store, error) {
	s := &Store{
		CreatedAt: time.Now(),
		objects:   make(map[string]*nav.DatabaseObject, len(objects)),
	}
	for _, obj := range objects {
		key := obj.ID.Key()
		if _, exists := s.objects[key]; exists {
			return nil, errors.NewDuplicateObject(key)
		}
		s.objects[key] = obj
	}
	return s, nil
}

// Get returns the cached view for an identity, if present.
func (s *Store) Get(id nav.ObjectID) (*nav.DatabaseObject, bool) {
	obj, ok := s.objects[id.Key()]
	return obj, ok
}

// Len returns the number of cached objects.
func (s *Store) Len() int {
	return len(s.objects)
}

// Objects returns the cached views ordered by identity.
func (s *Store) Objects() []*nav.DatabaseObject {
	objects := make([]*nav.DatabaseObject, 0, len(s.objects))
	for _, obj := range s.objects {
		objects = append(objects, obj)
	}
	sort.Slice(objects, func(i, j int) bool {
		return objects[i].ID.Compare(objects[j].ID) < 0
	})
	return objects
}

// Changed returns the subset of objects that are new or carry a
// different modified instant than this snapshot.
func (s *Store) Changed(objects []*nav.DatabaseObject) []*nav.DatabaseObject {
	var changed []*nav.DatabaseObject
	for _, obj := range objects {
		cached, ok := s.objects[obj.ID.Key()]
		if !ok || !cached.Modified.Equal(obj.Modified) {
			changed = append(changed, obj)
		}
	}
	return changed
}

// Persist serializes the full store to path. The write is atomic: the
// artifact is written to a temporary file in the destination directory
// and renamed into place, so a later Load never sees a partial write.
func (s *Store) Persist(path string) error {
	a := artifact{
		SchemaVersion: SchemaVersion,
		CreatedAt:     s.CreatedAt,
		Objects:       make(map[string]Record, len(s.objects)),
	}
	for key, obj := range s.objects {
		a.Objects[key] = Record{
			Type:        int(obj.ID.Type),
			ID:          obj.ID.ID,
			Name:        obj.Name,
			Modified:    obj.Modified,
			VersionList: obj.Version,
		}
	}

	data, err := json.MarshalIndent(&a, "", "  ")
	if err != nil {
		return errors.NewInternal(err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.NewEnvironment(fmt.Sprintf("failed to create cache directory: %v", err))
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.NewEnvironment(fmt.Sprintf("failed to create temporary cache file: %v", err))
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.NewEnvironment(fmt.Sprintf("failed to write cache file: %v", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.NewEnvironment(fmt.Sprintf("failed to write cache file: %v", err))
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return errors.NewEnvironment(fmt.Sprintf("failed to replace cache file: %v", err))
	}
	return nil
}

// Load reloads a persisted store. A missing artifact reports
// CACHE_ABSENT (normal first-run condition); an artifact that does not
// conform to the schema reports CACHE_INVALID.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewCacheAbsent(path)
		}
		return nil, errors.NewEnvironment(fmt.Sprintf("failed to read cache file %s: %v", path, err))
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, errors.NewCacheInvalid(path, err.Error())
	}
	if a.SchemaVersion != SchemaVersion {
		return nil, errors.NewCacheInvalid(path, fmt.Sprintf("unsupported schema version %d", a.SchemaVersion))
	}

	s := &Store{
		CreatedAt: a.CreatedAt,
		objects:   make(map[string]*nav.DatabaseObject, len(a.Objects)),
	}
	for key, rec := range a.Objects {
		// Rebuild through the validating constructor so derived fields
		// are recomputed identically and bad records are rejected.
		obj, err := nav.NewDatabaseObject(rec.Type, rec.ID, rec.Name, "", rec.Modified, rec.Modified, rec.VersionList)
		if err != nil {
			return nil, errors.NewCacheInvalid(path, fmt.Sprintf("record %q: %v", key, err))
		}
		if obj.ID.Key() != key {
			return nil, errors.NewCacheInvalid(path, fmt.Sprintf("record key %q does not match identity %s", key, obj.ID))
		}
		s.objects[key] = obj
	}
	return s, nil
}
