// Package export writes bar store slots to durable tabular artifacts,
// one artifact per slot.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"aurora/internal/market"
	"aurora/internal/store"
)

const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
	FormatSQLite  = "sqlite"
)

// New returns the exporter for format writing under dir. The sqlite exporter
// keeps a database handle open; callers close it through io.Closer.
func New(format, dir string) (store.Exporter, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "."
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatCSV:
		return CSV{Dir: dir}, nil
	case FormatParquet:
		return Parquet{Dir: dir}, nil
	case FormatSQLite:
		return NewSQLite(filepath.Join(dir, "bars.db"))
	default:
		return nil, fmt.Errorf("export: unsupported bar format %q (csv, parquet, sqlite)", format)
	}
}

func slotPath(dir string, slot market.SlotID, ext string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, slot.String()+"."+ext), nil
}

func floatStr(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
