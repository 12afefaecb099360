package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sheets_obs_sync/internal/cells"

	"github.com/natefinch/atomic"
	"github.com/rs/zerolog/log"
)

type mapping struct {
	key string
	ref string
	row int
	col int
}

// Writer mirrors mapped cells into <dir>/<key>.txt for OBS text sources
// that read from a file.
type Writer struct {
	dir      string
	mappings []mapping
	last     map[string]string
}

// NewWriter parses every cell reference up front so a bad mapping fails at startup.
func NewWriter(dir string, refs map[string]string) (*Writer, error) {
	keys := make([]string, 0, len(refs))
	for k := range refs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := &Writer{dir: dir, last: make(map[string]string)}
	for _, key := range keys {
		if key == "" || strings.ContainsAny(key, `/\`) {
			return nil, fmt.Errorf("invalid file key '%s'", key)
		}
		row, col, err := cells.ParseCell(refs[key])
		if err != nil {
			return nil, fmt.Errorf("failed to parse cell for file key %s: %w", key, err)
		}
		w.mappings = append(w.mappings, mapping{key: key, ref: refs[key], row: row, col: col})
	}
	return w, nil
}

// Path returns the file a key is mirrored into.
func (w *Writer) Path(key string) string {
	return filepath.Join(w.dir, key+".txt")
}

// Write stores every mapped value whose content changed since the previous
// call. It returns how many files were written.
func (w *Writer) Write(data cells.SheetData, dim cells.Dimension) (int, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create directory %s: %w", w.dir, err)
	}

	written := 0
	for _, m := range w.mappings {
		value, ok := cells.Lookup(data, m.row, m.col, dim)
		if !ok {
			log.Warn().
				Str("cell", m.ref).
				Str("key", m.key).
				Msg("Cell is out of bounds in the fetched data, skipping file")
			continue
		}

		if prev, seen := w.last[m.key]; seen && prev == value {
			continue
		}

		path := w.Path(m.key)
		if err := atomic.WriteFile(path, strings.NewReader(value)); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		w.last[m.key] = value
		written++

		log.Debug().Str("path", path).Str("value", value).Msg("Wrote cell file")
	}
	return written, nil
}
