package db

import (
	"database/sql"
	"testing"
	"time"

	"github.com/torbennehmer/nav-source-control/internal/errors"
	"github.com/torbennehmer/nav-source-control/internal/nav"
)

// setupTestDB creates a temporary local database.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := InitLocal(t.TempDir())
	if err != nil {
		t.Fatalf("InitLocal() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// testObject builds a database view for fixtures.
func testObject(t *testing.T, objType nav.ObjectType, id int, name string, modified time.Time, version string) *nav.DatabaseObject {
	t.Helper()
	return &nav.DatabaseObject{
		ID:       nav.ObjectID{Type: objType, ID: id},
		Name:     name,
		Modified: modified,
		Version:  version,
	}
}

func TestAllObjects(t *testing.T) {
	database := setupTestDB(t)
	modified := time.Date(2015, 9, 28, 12, 0, 0, 0, time.Local)

	// Inserted out of identity order to verify ordering.
	fixtures := []*nav.DatabaseObject{
		testObject(t, nav.TypeCodeunit, 99997, "TN_Test", modified, "CMNM6.03"),
		testObject(t, nav.TypeTable, 50000, "Setup", modified, "V1"),
		testObject(t, nav.TypeCodeunit, 50000, "Mgt.", modified, "V2"),
	}
	for _, obj := range fixtures {
		if err := InsertObject(database, obj, false); err != nil {
			t.Fatalf("InsertObject() error = %v", err)
		}
	}

	objects, err := AllObjects(database)
	if err != nil {
		t.Fatalf("AllObjects() error = %v", err)
	}
	if len(objects) != 3 {
		t.Fatalf("len = %d, want 3", len(objects))
	}

	wantKeys := []string{"1.50000", "5.50000", "5.99997"}
	for i, obj := range objects {
		if obj.ID.Key() != wantKeys[i] {
			t.Errorf("objects[%d].Key() = %q, want %q", i, obj.ID.Key(), wantKeys[i])
		}
	}

	first := objects[2]
	if first.Name != "TN_Test" || first.Version != "CMNM6.03" {
		t.Errorf("scanned object = %+v", first)
	}
	if !first.Modified.Equal(modified) {
		t.Errorf("Modified = %v, want %v", first.Modified, modified)
	}
}

func TestModifiedObjects(t *testing.T) {
	database := setupTestDB(t)
	modified := time.Date(2015, 9, 28, 12, 0, 0, 0, time.Local)

	if err := InsertObject(database, testObject(t, nav.TypeCodeunit, 1, "Clean", modified, ""), false); err != nil {
		t.Fatalf("InsertObject() error = %v", err)
	}
	if err := InsertObject(database, testObject(t, nav.TypeCodeunit, 2, "Dirty", modified, ""), true); err != nil {
		t.Fatalf("InsertObject() error = %v", err)
	}

	objects, err := ModifiedObjects(database)
	if err != nil {
		t.Fatalf("ModifiedObjects() error = %v", err)
	}
	if len(objects) != 1 {
		t.Fatalf("len = %d, want 1", len(objects))
	}
	if objects[0].Name != "Dirty" {
		t.Errorf("Name = %q, want %q", objects[0].Name, "Dirty")
	}
}

func TestObjectByID(t *testing.T) {
	database := setupTestDB(t)
	modified := time.Date(2015, 9, 28, 12, 0, 0, 0, time.Local)

	if err := InsertObject(database, testObject(t, nav.TypeCodeunit, 99997, "TN_Test", modified, "CMNM6.03"), false); err != nil {
		t.Fatalf("InsertObject() error = %v", err)
	}

	obj, err := ObjectByID(database, nav.ObjectID{Type: nav.TypeCodeunit, ID: 99997})
	if err != nil {
		t.Fatalf("ObjectByID() error = %v", err)
	}
	if obj.Name != "TN_Test" {
		t.Errorf("Name = %q, want %q", obj.Name, "TN_Test")
	}

	_, err = ObjectByID(database, nav.ObjectID{Type: nav.TypePage, ID: 1})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}

func TestAllObjects_RejectsBadRows(t *testing.T) {
	insert := func(t *testing.T, database *sql.DB, objType int, company string) {
		t.Helper()
		now := time.Now()
		_, err := database.Exec(`
			INSERT INTO [Object] ([Type], [Company Name], [ID], [Name], [Modified], [Compiled], [Date], [Time], [Version List])
			VALUES (@type, @company, 1, 'Bad', 0, 1, @date, @time, '')
		`,
			sql.Named("type", objType),
			sql.Named("company", company),
			sql.Named("date", now),
			sql.Named("time", now),
		)
		if err != nil {
			t.Fatalf("insert fixture: %v", err)
		}
	}

	t.Run("unsupported type ordinal", func(t *testing.T) {
		database := setupTestDB(t)
		insert(t, database, 4, "")
		_, err := AllObjects(database)
		if !errors.Is(err, errors.ErrUnsupportedType) {
			t.Errorf("error = %v, want UNSUPPORTED_TYPE", err)
		}
	})

	t.Run("tabledata rows excluded", func(t *testing.T) {
		database := setupTestDB(t)
		insert(t, database, 0, "")
		objects, err := AllObjects(database)
		if err != nil {
			t.Fatalf("AllObjects() error = %v", err)
		}
		if len(objects) != 0 {
			t.Errorf("len = %d, want 0", len(objects))
		}
	})

	t.Run("company-scoped row", func(t *testing.T) {
		database := setupTestDB(t)
		insert(t, database, 5, "CRONUS")
		_, err := AllObjects(database)
		if !errors.Is(err, errors.ErrUnsupportedCompany) {
			t.Errorf("error = %v, want UNSUPPORTED_COMPANY", err)
		}
	})
}
