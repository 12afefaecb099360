package sheets

import (
	"context"
	"fmt"

	"sheets_obs_sync/internal/cells"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type Client struct {
	service *sheets.Service
}

// NewClient creates a Sheets client authenticated with an API key. Extra
// options are appended after the key.
func NewClient(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Client{
		service: service,
	}, nil
}

// ReadValues fetches the values of range_ with the given major dimension.
func (c *Client) ReadValues(ctx context.Context, spreadsheetID, range_ string, dim cells.Dimension) (cells.SheetData, error) {
	resp, err := c.service.Spreadsheets.Values.Get(spreadsheetID, range_).
		MajorDimension(string(dim)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}

	data := make(cells.SheetData, len(resp.Values))
	for i, line := range resp.Values {
		data[i] = make([]string, len(line))
		for j, v := range line {
			data[i][j] = extractString(v)
		}
	}
	return data, nil
}

// extractString renders a cell value the way the sheet shows it
func extractString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// ReadRange joins a tab name and an A1 range, e.g. "Scores!A1:Z1000".
func ReadRange(tabName, range_ string) string {
	return fmt.Sprintf("%s!%s", tabName, range_)
}
