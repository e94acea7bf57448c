package ops

import (
	"database/sql"

	"github.com/torbennehmer/nav-source-control/internal/db"
	"github.com/torbennehmer/nav-source-control/internal/errors"
	"github.com/torbennehmer/nav-source-control/internal/nav"
)

// ListInput filters the object listing.
type ListInput struct {
	// Type restricts the listing to one object type (name, e.g.
	// "Codeunit"). Empty means all types.
	Type string

	// Modified lists only objects with the modified flag set.
	Modified bool
}

// ListOutput is the object listing.
type ListOutput struct {
	Items []ObjectSummary `json:"items"`
	Count int             `json:"count"`
}

// List returns database views ordered by identity.
func List(database *sql.DB, input ListInput) (*ListOutput, error) {
	var typeFilter *nav.ObjectType
	if input.Type != "" {
		t, err := nav.ParseType(input.Type)
		if err != nil {
			return nil, errors.NewInvalidRequest(err.Error())
		}
		typeFilter = &t
	}

	var (
		objects []*nav.DatabaseObject
		err     error
	)
	if input.Modified {
		objects, err = db.ModifiedObjects(database)
	} else {
		objects, err = db.AllObjects(database)
	}
	if err != nil {
		return nil, err
	}

	output := &ListOutput{}
	for _, obj := range objects {
		if typeFilter != nil && obj.ID.Type != *typeFilter {
			continue
		}
		output.Items = append(output.Items, summarize(obj))
	}
	output.Count = len(output.Items)
	return output, nil
}

// GetInput names one object by cache key.
type GetInput struct {
	Key string
}

// GetOutput is the detail view of one object.
type GetOutput struct {
	Object       ObjectSummary `json:"object"`
	RelativePath string        `json:"relative_path"`
	Filter       string        `json:"filter"`
}

// Get returns one database view with its derived fields.
func Get(database *sql.DB, input GetInput) (*GetOutput, error) {
	id, err := nav.ParseKey(input.Key)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	obj, err := db.ObjectByID(database, id)
	if err != nil {
		return nil, err
	}
	return &GetOutput{
		Object:       summarize(obj),
		RelativePath: obj.RelativePath(),
		Filter:       id.Filter(),
	}, nil
}
