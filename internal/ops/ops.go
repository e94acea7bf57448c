// Package ops implements the synchronization operations the CLI and
// MCP surfaces expose. Operations are plain functions over injected
// dependencies with typed Input/Output structs; all JSON-facing output
// shapes live here.
package ops

import (
	"time"

	"github.com/torbennehmer/nav-source-control/internal/config"
	"github.com/torbennehmer/nav-source-control/internal/errors"
	"github.com/torbennehmer/nav-source-control/internal/nav"
)

// Tool drives the external development client. Satisfied by
// finsql.Client; operations depend on this interface so tests can
// substitute a fake without spawning processes.
type Tool interface {
	Export(obj nav.Object, dest string) error
	Import(obj nav.Object, src string) (*nav.DatabaseObject, error)
	Compile(obj nav.Object) (*nav.DatabaseObject, error)
}

// ObjectSummary is the JSON shape of one object view.
type ObjectSummary struct {
	Key         string    `json:"key"`
	Type        string    `json:"type"`
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Modified    time.Time `json:"modified"`
	VersionList string    `json:"version_list"`
}

// summarize converts any object view to its JSON shape.
func summarize(obj nav.Object) ObjectSummary {
	id := obj.ObjectID()
	return ObjectSummary{
		Key:         id.Key(),
		Type:        id.Type.String(),
		ID:          id.ID,
		Name:        obj.ObjectName(),
		Modified:    obj.ModifiedAt(),
		VersionList: obj.VersionList(),
	}
}

// cacheFile returns the configured cache artifact path. The CLI
// resolves the default before calling into ops, so an empty value here
// is a programming error on the caller's side.
func cacheFile(cfg *config.Config) (string, error) {
	if cfg.CacheFile == "" {
		return "", errors.NewInvalidRequest("cache_file is not configured")
	}
	return cfg.CacheFile, nil
}
