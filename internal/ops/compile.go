package ops

import (
	"database/sql"

	"github.com/torbennehmer/nav-source-control/internal/config"
	"github.com/torbennehmer/nav-source-control/internal/db"
	"github.com/torbennehmer/nav-source-control/internal/errors"
	"github.com/torbennehmer/nav-source-control/internal/nav"
)

// CompileInput names the objects to compile by cache key.
type CompileInput struct {
	Keys []string
}

// CompileOutput reports the refreshed database views after compilation.
type CompileOutput struct {
	Compiled []ObjectSummary `json:"compiled"`
	Count    int             `json:"count"`
}

// Compile compiles the named objects, forcing schema synchronization,
// and reports the refreshed views. The cache snapshot is rebuilt
// afterwards since compilation may alter modification metadata.
func Compile(database *sql.DB, cfg *config.Config, client Tool, input CompileInput) (*CompileOutput, error) {
	if len(input.Keys) == 0 {
		return nil, errors.NewInvalidRequest("at least one object key is required")
	}

	ids := make([]nav.ObjectID, 0, len(input.Keys))
	for _, key := range input.Keys {
		id, err := nav.ParseKey(key)
		if err != nil {
			return nil, errors.NewInvalidRequest(err.Error())
		}
		ids = append(ids, id)
	}

	output := &CompileOutput{}
	for _, id := range ids {
		obj, err := db.ObjectByID(database, id)
		if err != nil {
			return nil, err
		}
		refreshed, err := client.Compile(obj)
		if err != nil {
			return nil, err
		}
		output.Compiled = append(output.Compiled, summarize(refreshed))
	}
	output.Count = len(output.Compiled)

	if err := refreshCache(database, cfg); err != nil {
		return nil, err
	}

	return output, nil
}
