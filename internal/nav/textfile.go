package nav

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/torbennehmer/nav-source-control/internal/errors"
)

// FileObject is the file-backed view of an object, populated from the
// header block of an exported text artifact.
type FileObject struct {
	ID       ObjectID
	Name     string
	Modified time.Time
	Version  string
	Path     string
}

// ObjectID implements Object.
func (o *FileObject) ObjectID() ObjectID { return o.ID }

// ObjectName implements Object.
func (o *FileObject) ObjectName() string { return o.Name }

// ModifiedAt implements Object.
func (o *FileObject) ModifiedAt() time.Time { return o.Modified }

// VersionList implements Object.
func (o *FileObject) VersionList() string { return o.Version }

// Export artifact date and time layouts (dd.MM.yy and HH:mm:ss).
const (
	exportDateLayout = "02.01.06"
	exportTimeLayout = "15:04:05"
)

var (
	headerLine   = regexp.MustCompile(`^OBJECT ([A-Za-z]+) (\d+) (.*)$`)
	propertyLine = regexp.MustCompile(`^\s*([^=]+)=(.*);$`)
)

// ParseFile reads the header block of an exported object artifact and
// builds the file-backed view. The parser is strict: the export format
// is exact and downstream import assumes exactness, so any structural
// deviation is a parse error, never a recovered default.
//
// The development client writes its text exports with code page 850
// regardless of system locale, so the file is decoded accordingly.
func ParseFile(path string) (*FileObject, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewParse(path, err.Error())
	}
	defer f.Close()

	scanner := bufio.NewScanner(charmap.CodePage850.NewDecoder().Reader(f))

	// Header line: OBJECT <Type> <id> <name>
	line, err := nextLine(scanner, path)
	if err != nil {
		return nil, err
	}
	m := headerLine.FindStringSubmatch(line)
	if m == nil {
		return nil, errors.NewParse(path, fmt.Sprintf("malformed object header %q", line))
	}
	objType, err := ParseType(m[1])
	if err != nil {
		return nil, errors.NewParse(path, err.Error())
	}
	id, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, errors.NewParse(path, fmt.Sprintf("malformed object id %q", m[2]))
	}
	name := m[3]

	// Fixed structural prelude of the OBJECT-PROPERTIES block.
	for _, want := range []string{"{", "  OBJECT-PROPERTIES", "  {"} {
		line, err := nextLine(scanner, path)
		if err != nil {
			return nil, err
		}
		if line != want {
			return nil, errors.NewParse(path, fmt.Sprintf("expected %q, got %q", want, line))
		}
	}

	// key=value; lines until the closing "  }".
	props := make(map[string]string)
	for {
		line, err := nextLine(scanner, path)
		if err != nil {
			return nil, err
		}
		if line == "  }" {
			break
		}
		m := propertyLine.FindStringSubmatch(line)
		if m == nil {
			return nil, errors.NewParse(path, fmt.Sprintf("malformed property line %q", line))
		}
		props[strings.ToLower(strings.TrimSpace(m[1]))] = m[2]
	}

	date, err := requireProperty(props, "date", path, func(v string) (time.Time, error) {
		return time.ParseInLocation(exportDateLayout, v, time.Local)
	})
	if err != nil {
		return nil, err
	}
	clock, err := requireProperty(props, "time", path, func(v string) (time.Time, error) {
		return time.ParseInLocation(exportTimeLayout, v, time.Local)
	})
	if err != nil {
		return nil, err
	}
	version, ok := props["version list"]
	if !ok {
		return nil, errors.NewParse(path, "missing required property \"version list\"")
	}

	return &FileObject{
		ID:       ObjectID{Type: objType, ID: id},
		Name:     name,
		Modified: CombineDateTime(date, clock),
		Version:  version,
		Path:     path,
	}, nil
}

// nextLine returns the next input line, treating premature end of input
// as a structural parse error.
func nextLine(scanner *bufio.Scanner, path string) (string, error) {
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", errors.NewParse(path, err.Error())
		}
		return "", errors.NewParse(path, "unexpected end of file in object header")
	}
	return strings.TrimRight(scanner.Text(), "\r"), nil
}

// requireProperty looks up and parses a required header property,
// naming the offending key and value on failure.
func requireProperty(props map[string]string, key, path string, parse func(string) (time.Time, error)) (time.Time, error) {
	v, ok := props[key]
	if !ok {
		return time.Time{}, errors.NewParse(path, fmt.Sprintf("missing required property %q", key))
	}
	t, err := parse(v)
	if err != nil {
		return time.Time{}, errors.NewParse(path, fmt.Sprintf("malformed %s value %q", key, v))
	}
	return t, nil
}
