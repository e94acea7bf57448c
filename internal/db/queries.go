package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/torbennehmer/nav-source-control/internal/errors"
	"github.com/torbennehmer/nav-source-control/internal/nav"
)

// objectColumns is the column list every object query selects, in the
// order scanObject expects.
const objectColumns = "[Type], [ID], [Name], [Date], [Time], [Version List], [Company Name]"

// AllObjects returns every current object, ordered by type then id.
// TableData rows (type 0) are excluded; rows with an unsupported type
// ordinal or a non-default company scope fail the whole query, since
// they violate the data-source contract.
func AllObjects(database *sql.DB) ([]*nav.DatabaseObject, error) {
	query := `
		SELECT ` + objectColumns + `
		FROM [Object]
		WHERE [Type] > 0
		ORDER BY [Type], [ID]
	`
	return queryObjects(database, query)
}

// ModifiedObjects returns objects with the modified flag set, ordered by
// type then id.
func ModifiedObjects(database *sql.DB) ([]*nav.DatabaseObject, error) {
	query := `
		SELECT ` + objectColumns + `
		FROM [Object]
		WHERE [Modified] = 1 AND [Type] > 0
		ORDER BY [Type], [ID]
	`
	return queryObjects(database, query)
}

// ObjectByID returns the single object with the given identity, or
// NOT_FOUND if no row matches. At most one match is expected; more than
// one indicates a broken data source.
func ObjectByID(database *sql.DB, id nav.ObjectID) (*nav.DatabaseObject, error) {
	query := `
		SELECT ` + objectColumns + `
		FROM [Object]
		WHERE [Type] = @type AND [ID] = @id
	`
	objects, err := queryObjects(database, query,
		sql.Named("type", int(id.Type)),
		sql.Named("id", id.ID),
	)
	if err != nil {
		return nil, err
	}
	switch len(objects) {
	case 0:
		return nil, errors.NewNotFound(id.String())
	case 1:
		return objects[0], nil
	default:
		return nil, errors.NewInternal(fmt.Errorf("multiple rows for object %s", id))
	}
}

// InsertObject writes an object row into a local snapshot database.
// The modified flag mirrors the development environment's dirty flag.
func InsertObject(database *sql.DB, obj *nav.DatabaseObject, modified bool) error {
	query := `
		INSERT INTO [Object] ([Type], [Company Name], [ID], [Name], [Modified], [Compiled], [Date], [Time], [Version List])
		VALUES (@type, '', @id, @name, @modified, 1, @date, @time, @version)
	`
	y, m, d := obj.Modified.Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, obj.Modified.Location())
	modifiedFlag := 0
	if modified {
		modifiedFlag = 1
	}
	_, err := database.Exec(query,
		sql.Named("type", int(obj.ID.Type)),
		sql.Named("id", obj.ID.ID),
		sql.Named("name", obj.Name),
		sql.Named("modified", modifiedFlag),
		sql.Named("date", date),
		sql.Named("time", obj.Modified),
		sql.Named("version", obj.Version),
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// queryObjects runs an object query and scans every row.
func queryObjects(database *sql.DB, query string, args ...any) ([]*nav.DatabaseObject, error) {
	rows, err := database.Query(query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var objects []*nav.DatabaseObject
	for rows.Next() {
		obj, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return objects, nil
}

// scanObject reads one Object row and validates it immediately, so bad
// rows surface when the data source is scanned rather than at first use.
func scanObject(rows *sql.Rows) (*nav.DatabaseObject, error) {
	var (
		objType int
		id      int
		name    string
		date    time.Time
		clock   time.Time
		version string
		company string
	)
	if err := rows.Scan(&objType, &id, &name, &date, &clock, &version, &company); err != nil {
		return nil, errors.NewInternal(err)
	}
	return nav.NewDatabaseObject(objType, id, name, company, date, clock, version)
}
