package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Carbonadoks/claudecoderpg/internal/persistence/indexdb"
)

// openRuntimeIndex opens the chunk/event read model. It is telemetry only;
// the world never reads it back.
func openRuntimeIndex(dataDir, backend string) (*indexdb.SQLiteIndex, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "sqlite":
		return indexdb.OpenSQLite(filepath.Join(dataDir, "index", "world.sqlite"))
	case "none", "off", "disabled":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported index backend: %s", backend)
	}
}
