package updater

import (
	"context"
	"fmt"
	"strings"

	"sheets_obs_sync/internal/cells"
	"sheets_obs_sync/internal/obs"

	"github.com/rs/zerolog/log"
)

// OBS is the subset of the OBS client the updater drives.
type OBS interface {
	Sources() ([]obs.Source, error)
	InputSettings(name string) (map[string]any, error)
	SetInputSettings(name string, settings map[string]any) error
}

// Binding ties an OBS source to a spreadsheet cell through its "| A1" name suffix.
type Binding struct {
	SourceName string
	InputKind  string
	Row        int
	Col        int
}

// Stats summarises one update pass
type Stats struct {
	Bindings  int
	Updated   int
	Unchanged int
	Skipped   int
	Failed    int
}

// Bindings keeps the sources whose names carry a cell reference.
func Bindings(sources []obs.Source) []Binding {
	var bindings []Binding
	for _, s := range sources {
		row, col, ok := cells.ParseSourceName(s.Name)
		if !ok {
			continue
		}
		bindings = append(bindings, Binding{
			SourceName: s.Name,
			InputKind:  s.InputKind,
			Row:        row,
			Col:        col,
		})
	}
	return bindings
}

// handler translates a cell value into the single settings field of one kind
// of input. convert returns ok=false when the value is unusable.
type handler struct {
	name    string
	field   string
	matches func(kind string) bool
	convert func(value string) (any, bool)
	invalid string
}

func kindIs(kinds ...string) func(string) bool {
	return func(kind string) bool {
		for _, k := range kinds {
			if kind == k {
				return true
			}
		}
		return false
	}
}

func kindHasPrefix(prefix string) func(string) bool {
	return func(kind string) bool {
		return strings.HasPrefix(kind, prefix)
	}
}

func asIs(value string) (any, bool) {
	return value, true
}

var handlers = []handler{
	{
		name:    "image",
		field:   "file",
		matches: kindIs("image_source", "xObsAsyncImageSource"),
		convert: asIs,
	},
	{
		name:    "text",
		field:   "text",
		matches: kindHasPrefix("text_"),
		convert: asIs,
	},
	{
		name:    "color",
		field:   "color",
		matches: kindHasPrefix("color_source"),
		convert: func(value string) (any, bool) {
			c, ok := ParseColor(value)
			return c, ok
		},
		invalid: "Invalid color format, expected hex format like '#RRGGBB' or '#AARRGGBB'",
	},
	{
		name:    "browser",
		field:   "url",
		matches: kindHasPrefix("browser_source"),
		convert: asIs,
	},
	{
		name:    "media",
		field:   "input",
		matches: kindHasPrefix("media_source"),
		convert: func(value string) (any, bool) {
			return value, IsMediaLocation(value)
		},
		invalid: "Invalid media source URL or path, must be a valid URL or absolute file path",
	},
}

func handlerFor(kind string) (handler, bool) {
	for _, h := range handlers {
		if h.matches(kind) {
			return h, true
		}
	}
	return handler{}, false
}

// Updater pushes sheet values into the bound OBS sources.
type Updater struct {
	obs OBS
}

func New(client OBS) *Updater {
	return &Updater{obs: client}
}

// Update runs one pass over the current bindings. Problems with a single
// source are logged and never abort the pass; only listing the sources can fail.
func (u *Updater) Update(ctx context.Context, data cells.SheetData, dim cells.Dimension) (Stats, error) {
	sources, err := u.obs.Sources()
	if err != nil {
		return Stats{}, fmt.Errorf("failed to list sources: %w", err)
	}

	bindings := Bindings(sources)
	stats := Stats{Bindings: len(bindings)}

	for _, b := range bindings {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		switch u.updateSource(b, data, dim) {
		case outcomeUpdated:
			stats.Updated++
		case outcomeUnchanged:
			stats.Unchanged++
		case outcomeFailed:
			stats.Failed++
		default:
			stats.Skipped++
		}
	}

	return stats, nil
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeUnchanged
	outcomeUpdated
	outcomeFailed
)

func (u *Updater) updateSource(b Binding, data cells.SheetData, dim cells.Dimension) outcome {
	logger := log.With().
		Str("source", b.SourceName).
		Str("input_kind", b.InputKind).
		Str("cell", cells.CellName(b.Row, b.Col)).
		Logger()

	value, ok := cells.Lookup(data, b.Row, b.Col, dim)
	if !ok {
		logger.Debug().Msg("No data found for source")
		return outcomeSkipped
	}
	if cells.IsErrorValue(value) {
		logger.Debug().Str("value", value).Msg("Cell holds an error value, skipping source")
		return outcomeSkipped
	}

	h, ok := handlerFor(b.InputKind)
	if !ok {
		logger.Warn().Msg("Unsupported source type, consider opening an issue to request support for it")
		return outcomeSkipped
	}

	newValue, ok := h.convert(value)
	if !ok {
		logger.Warn().Str("value", value).Msg(h.invalid)
		return outcomeSkipped
	}

	current, err := u.obs.InputSettings(b.SourceName)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to read current input settings")
		return outcomeFailed
	}
	if sameValue(current[h.field], newValue) {
		logger.Trace().Str("value", value).Msg("Source already up to date")
		return outcomeUnchanged
	}

	if err := u.obs.SetInputSettings(b.SourceName, map[string]any{h.field: newValue}); err != nil {
		logger.Error().Err(err).Msg("Failed to update source")
		return outcomeFailed
	}

	logger.Debug().Str("value", value).Msgf("Updated %s source", h.name)
	return outcomeUpdated
}

// sameValue compares a decoded OBS setting with the value about to be sent.
// Numbers arrive from the websocket as float64 and are compared numerically.
func sameValue(current, next any) bool {
	if current == nil {
		return false
	}
	if n, ok := next.(uint32); ok {
		switch c := current.(type) {
		case float64:
			return c == float64(n)
		case int64:
			return c == int64(n)
		case int:
			return int64(c) == int64(n)
		case uint32:
			return c == n
		}
		return false
	}
	s, ok := current.(string)
	return ok && s == next
}
