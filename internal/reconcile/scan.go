package reconcile

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/torbennehmer/nav-source-control/internal/errors"
	"github.com/torbennehmer/nav-source-control/internal/nav"
)

// SkippedFile records a working-copy artifact that could not be parsed.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// ScanResult maps identities to their parsed file views. One bad file
// does not abort the scan: unparseable artifacts are collected in
// Skipped and the walk continues.
type ScanResult struct {
	Objects map[nav.ObjectID]*nav.FileObject
	Skipped []SkippedFile
}

// Get returns the file view for an identity, if the scan found one.
func (r *ScanResult) Get(id nav.ObjectID) (*nav.FileObject, bool) {
	obj, ok := r.Objects[id]
	return obj, ok
}

// ScanWorkingCopy walks dir for exported text artifacts and parses
// their headers. Two files claiming the same identity are a working
// copy defect; the second file is skipped with a reason naming the
// first. A nil logger means slog.Default().
func ScanWorkingCopy(dir string, log *slog.Logger) (*ScanResult, error) {
	if log == nil {
		log = slog.Default()
	}
	result := &ScanResult{Objects: make(map[nav.ObjectID]*nav.FileObject)}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".txt") {
			return nil
		}
		obj, parseErr := nav.ParseFile(path)
		if parseErr != nil {
			log.Warn("skipping unparseable working-copy file", "path", path, "error", parseErr)
			result.Skipped = append(result.Skipped, SkippedFile{Path: path, Reason: parseErr.Error()})
			return nil
		}
		if existing, ok := result.Objects[obj.ID]; ok {
			reason := fmt.Sprintf("duplicate of %s already scanned at %s", obj.ID, existing.Path)
			log.Warn("skipping duplicate working-copy file", "path", path, "object", obj.ID.String())
			result.Skipped = append(result.Skipped, SkippedFile{Path: path, Reason: reason})
			return nil
		}
		result.Objects[obj.ID] = obj
		return nil
	})
	if err != nil {
		return nil, errors.NewEnvironment(fmt.Sprintf("failed to scan working copy %s: %v", dir, err))
	}
	return result, nil
}
