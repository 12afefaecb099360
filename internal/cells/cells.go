package cells

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// Dimension is the major dimension of the values array returned by the Sheets API.
type Dimension string

const (
	Rows    Dimension = "ROWS"
	Columns Dimension = "COLUMNS"
)

// SheetData is the 2-D values array of one fetched range.
type SheetData [][]string

var (
	sourceSuffix = regexp.MustCompile(`\|\s*([A-Za-z])([0-9]+)$`)
	plainCell    = regexp.MustCompile(`^([A-Za-z])([0-9]+)$`)
)

var errorValues = map[string]bool{
	"#N/A":    true,
	"#VALUE!": true,
	"#REF!":   true,
	"#DIV/0!": true,
	"#NUM!":   true,
	"#NAME?":  true,
	"#NULL!":  true,
	"#ERROR!": true,
}

// ParseDimension normalises s to a Dimension.
func ParseDimension(s string) (Dimension, error) {
	switch d := Dimension(strings.ToUpper(strings.TrimSpace(s))); d {
	case Rows, Columns:
		return d, nil
	default:
		return "", fmt.Errorf("dimension must be either 'ROWS' or 'COLUMNS', got '%s'", s)
	}
}

// ParseSourceName extracts the 0-based cell indices from a source name ending
// in "| <Col><Row>", e.g. "Name | A3".
func ParseSourceName(name string) (row, col int, ok bool) {
	m := sourceSuffix.FindStringSubmatch(name)
	if m == nil {
		return 0, 0, false
	}
	row, col, err := coordinates(m[1], m[2])
	if err != nil {
		return 0, 0, false
	}
	return row, col, true
}

// ParseCell parses a plain cell reference such as "B3" into 0-based indices.
func ParseCell(ref string) (row, col int, err error) {
	m := plainCell.FindStringSubmatch(strings.TrimSpace(ref))
	if m == nil {
		return 0, 0, fmt.Errorf("invalid cell format '%s', expected a single column letter and a row like 'A1'", ref)
	}
	return coordinates(m[1], m[2])
}

func coordinates(letter, digits string) (int, int, error) {
	c, r, err := excelize.CellNameToCoordinates(strings.ToUpper(letter) + digits)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to parse cell %s%s: %w", letter, digits, err)
	}
	if r < 1 || c < 1 {
		return 0, 0, fmt.Errorf("cell %s%s is out of range", letter, digits)
	}
	return r - 1, c - 1, nil
}

// CellName renders 0-based indices back into "A1" notation.
func CellName(row, col int) string {
	name, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return fmt.Sprintf("(%d, %d)", row, col)
	}
	return name
}

// Lookup returns the value at (row, col), honouring the major dimension of data.
// Cells outside the fetched range are reported as absent.
func Lookup(data SheetData, row, col int, dim Dimension) (string, bool) {
	if row < 0 || col < 0 {
		return "", false
	}

	var outer, inner int
	switch dim {
	case Rows:
		outer, inner = row, col
	case Columns:
		outer, inner = col, row
	default:
		log.Warn().
			Str("dimension", string(dim)).
			Int("row", row).
			Int("col", col).
			Msg("Invalid dimension, cannot look up cell")
		return "", false
	}

	if outer >= len(data) || inner >= len(data[outer]) {
		return "", false
	}
	return data[outer][inner], true
}

// IsErrorValue reports whether v is one of the spreadsheet formula error markers.
func IsErrorValue(v string) bool {
	return errorValues[v]
}
