package reconcile

import (
	"sort"

	"github.com/torbennehmer/nav-source-control/internal/nav"
)

// DriftState classifies one identity's database/working-copy pair.
type DriftState string

const (
	// DriftDatabaseOnly means the object exists in the database but has
	// no working-copy artifact.
	DriftDatabaseOnly DriftState = "database-only"

	// DriftWorkingCopyOnly means a working-copy artifact exists but the
	// database has no such object.
	DriftWorkingCopyOnly DriftState = "working-copy-only"

	// DriftDatabaseNewer means the database view was modified after the
	// working-copy artifact.
	DriftDatabaseNewer DriftState = "database-newer"

	// DriftWorkingCopyNewer means the working-copy artifact carries a
	// later modified instant than the database view.
	DriftWorkingCopyNewer DriftState = "working-copy-newer"

	// DriftInSync means both views carry the same modified instant.
	DriftInSync DriftState = "in-sync"
)

// Drift pairs an identity with its two views and their drift state.
type Drift struct {
	ID       nav.ObjectID
	State    DriftState
	Database *nav.DatabaseObject
	File     *nav.FileObject
}

// Diff reconciles a database query result against a working-copy scan.
// The result covers the union of both identity sets, ordered by type
// ordinal then id.
func Diff(dbObjects []*nav.DatabaseObject, scan *ScanResult) []Drift {
	byID := make(map[nav.ObjectID]*Drift, len(dbObjects))
	for _, obj := range dbObjects {
		byID[obj.ID] = &Drift{ID: obj.ID, Database: obj}
	}
	for id, file := range scan.Objects {
		d, ok := byID[id]
		if !ok {
			d = &Drift{ID: id}
			byID[id] = d
		}
		d.File = file
	}

	drifts := make([]Drift, 0, len(byID))
	for _, d := range byID {
		switch {
		case d.File == nil:
			d.State = DriftDatabaseOnly
		case d.Database == nil:
			d.State = DriftWorkingCopyOnly
		case d.Database.Modified.Equal(d.File.Modified):
			d.State = DriftInSync
		case d.Database.Modified.After(d.File.Modified):
			d.State = DriftDatabaseNewer
		default:
			d.State = DriftWorkingCopyNewer
		}
		drifts = append(drifts, *d)
	}
	sort.Slice(drifts, func(i, j int) bool {
		return drifts[i].ID.Compare(drifts[j].ID) < 0
	})
	return drifts
}
