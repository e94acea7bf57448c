package nav

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/torbennehmer/nav-source-control/internal/errors"
)

// ObjectType is the numeric object type ordinal used by the Object table.
// The ordinals are fixed by the application platform; 2 (Form) and
// 4 (Dataport) are legacy values that are rejected wherever a type is
// loaded or parsed.
type ObjectType int

const (
	TypeTableData ObjectType = 0
	TypeTable     ObjectType = 1
	TypeReport    ObjectType = 3
	TypeCodeunit  ObjectType = 5
	TypeXMLport   ObjectType = 6
	TypeMenuSuite ObjectType = 7
	TypePage      ObjectType = 8
	TypeQuery     ObjectType = 9
)

// typeNames maps ordinals to the spelling the development client expects
// in filter expressions and export headers.
var typeNames = map[ObjectType]string{
	TypeTableData: "TableData",
	TypeTable:     "Table",
	TypeReport:    "Report",
	TypeCodeunit:  "Codeunit",
	TypeXMLport:   "XMLport",
	TypeMenuSuite: "MenuSuite",
	TypePage:      "Page",
	TypeQuery:     "Query",
}

// String returns the human-readable type name.
func (t ObjectType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Exportable reports whether objects of this type can be exported and
// imported through the development client. TableData rows exist in the
// Object table but are not exportable objects.
func (t ObjectType) Exportable() bool {
	switch t {
	case TypeTable, TypeReport, TypeCodeunit, TypeXMLport, TypeMenuSuite, TypePage, TypeQuery:
		return true
	}
	return false
}

// ParseType maps a type word from an export header to its ordinal,
// case-insensitively. Only the seven exportable types are accepted.
func ParseType(word string) (ObjectType, error) {
	for t, name := range typeNames {
		if t.Exportable() && strings.EqualFold(word, name) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown object type %q", word)
}

// ObjectID is the canonical identity of an object. Equality and ordering
// deliberately ignore all non-identity metadata: two representations of
// the same object with different modification metadata are still equal.
type ObjectID struct {
	Type ObjectType
	ID   int
}

// Key returns the canonical cache key, "<type-ordinal>.<id>".
func (o ObjectID) Key() string {
	return fmt.Sprintf("%d.%d", int(o.Type), o.ID)
}

// String returns a human-readable identity, e.g. "Codeunit 99997".
func (o ObjectID) String() string {
	return fmt.Sprintf("%s %d", o.Type, o.ID)
}

// Filter returns the record selector the development client understands,
// e.g. "Type=Codeunit;ID=99997".
func (o ObjectID) Filter() string {
	return fmt.Sprintf("Type=%s;ID=%d", o.Type, o.ID)
}

// Compare orders identities by type ordinal, then by id, ascending.
func (o ObjectID) Compare(other ObjectID) int {
	if o.Type != other.Type {
		if o.Type < other.Type {
			return -1
		}
		return 1
	}
	if o.ID != other.ID {
		if o.ID < other.ID {
			return -1
		}
		return 1
	}
	return 0
}

// ParseKey inverts Key.
func ParseKey(key string) (ObjectID, error) {
	dot := strings.IndexByte(key, '.')
	if dot < 0 {
		return ObjectID{}, fmt.Errorf("malformed object key %q", key)
	}
	ordinal, err := strconv.Atoi(key[:dot])
	if err != nil {
		return ObjectID{}, fmt.Errorf("malformed object key %q", key)
	}
	id, err := strconv.Atoi(key[dot+1:])
	if err != nil || id < 0 {
		return ObjectID{}, fmt.Errorf("malformed object key %q", key)
	}
	t := ObjectType(ordinal)
	if !t.Exportable() {
		return ObjectID{}, fmt.Errorf("object key %q has unsupported type ordinal %d", key, ordinal)
	}
	return ObjectID{Type: t, ID: id}, nil
}

// Object is the common view over the three representations of an object:
// database row, working-copy file, and cache snapshot.
type Object interface {
	ObjectID() ObjectID
	ObjectName() string
	ModifiedAt() time.Time
	VersionList() string
}

// DatabaseObject is the database-backed view of an object. The cache
// store serializes and reloads these unchanged.
type DatabaseObject struct {
	ID       ObjectID
	Name     string
	Modified time.Time
	Version  string
}

// NewDatabaseObject validates an Object table row and builds the view.
// Validation happens here, at load time, so invalid rows are caught
// immediately when the data source is scanned: the type ordinal must be
// one of the exportable types and the row must be in the default
// (empty) company scope.
func NewDatabaseObject(ordinal, id int, name, company string, date, clock time.Time, version string) (*DatabaseObject, error) {
	t := ObjectType(ordinal)
	if !t.Exportable() {
		return nil, errors.NewUnsupportedType(ordinal, id)
	}
	if id < 0 {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("negative object id %d for type %s", id, t))
	}
	oid := ObjectID{Type: t, ID: id}
	if company != "" {
		return nil, errors.NewUnsupportedCompany(oid.String(), company)
	}
	return &DatabaseObject{
		ID:       oid,
		Name:     name,
		Modified: CombineDateTime(date, clock),
		Version:  version,
	}, nil
}

// ObjectID implements Object.
func (o *DatabaseObject) ObjectID() ObjectID { return o.ID }

// ObjectName implements Object.
func (o *DatabaseObject) ObjectName() string { return o.Name }

// ModifiedAt implements Object.
func (o *DatabaseObject) ModifiedAt() time.Time { return o.Modified }

// VersionList implements Object.
func (o *DatabaseObject) VersionList() string { return o.Version }

// RelativePath returns the working-copy artifact path for this object:
// a type-named subdirectory plus the sanitized object name with the
// text export extension. The stored Name is never mutated; sanitization
// applies only to this derived path.
func (o *DatabaseObject) RelativePath() string {
	return o.ID.Type.String() + "/" + SanitizeFileName(o.Name) + ".txt"
}

// SanitizeFileName replaces the filesystem-unsafe characters : ? / \
// with underscores.
func SanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ':', '?', '/', '\\':
			return '_'
		}
		return r
	}, name)
}

// CombineDateTime combines a date component and a time-of-day component
// into one instant: the date at midnight plus the time of day.
func CombineDateTime(date, clock time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), clock.Second(), clock.Nanosecond(), date.Location())
}
