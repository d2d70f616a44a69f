package storage

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"

	logx "alertcast/pkg/logx"
)

// Drivers lists the accepted Config.Driver values.
func Drivers() []string { return []string{"memory", "file", "sqlite"} }

// Open initializes the configured store. An empty driver means "memory".
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "", "memory":
		return NewMemory(cfg.MemoryLimit), nil
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, goerr.New("unknown storage driver", goerr.V("driver", driver))
	}
}
