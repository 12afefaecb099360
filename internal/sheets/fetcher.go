package sheets

import (
	"context"
	"errors"

	"sheets_obs_sync/internal/cells"

	"github.com/rs/zerolog/log"
	"google.golang.org/api/googleapi"
)

// Fetcher reads one configured range per poll cycle.
type Fetcher struct {
	client        *Client
	spreadsheetID string
	readRange     string
	dimension     cells.Dimension
}

func NewFetcher(client *Client, spreadsheetID, tabName, range_ string, dim cells.Dimension) *Fetcher {
	return &Fetcher{
		client:        client,
		spreadsheetID: spreadsheetID,
		readRange:     ReadRange(tabName, range_),
		dimension:     dim,
	}
}

// FetchSheetData returns the current values, or nil when the fetch failed.
// Failures are logged; the caller skips the cycle.
func (f *Fetcher) FetchSheetData(ctx context.Context) cells.SheetData {
	log.Debug().
		Str("range", f.readRange).
		Str("dimension", string(f.dimension)).
		Msg("Fetching sheet data")

	data, err := f.client.ReadValues(ctx, f.spreadsheetID, f.readRange, f.dimension)
	if err != nil {
		var apiErr *googleapi.Error
		switch {
		case errors.As(err, &apiErr) && (apiErr.Code == 400 || apiErr.Code == 403):
			log.Error().
				Int("status", apiErr.Code).
				Str("reason", apiErr.Message).
				Msg("Invalid API key or access denied")
		case errors.As(err, &apiErr):
			log.Error().
				Int("status", apiErr.Code).
				Str("reason", apiErr.Message).
				Msg("Failed to fetch sheet data")
		default:
			log.Error().Err(err).Msg("Failed to fetch sheet data")
		}
		return nil
	}

	log.Debug().Int("lines", len(data)).Msg("Sheet data fetched successfully")
	return data
}
