package sheets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sheets_obs_sync/internal/cells"

	"google.golang.org/api/option"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), "test-key",
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return client
}

func TestReadValues(t *testing.T) {
	var gotPath, gotDimension string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotDimension = r.URL.Query().Get("majorDimension")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"range":"Scores!A1:B2","majorDimension":"COLUMNS","values":[["Home","3"],["Away"]]}`))
	})

	data, err := client.ReadValues(context.Background(), "sheet-id", ReadRange("Scores", "A1:B2"), cells.Columns)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !strings.HasPrefix(gotPath, "/v4/spreadsheets/sheet-id/values/") {
		t.Errorf("Unexpected request path %s", gotPath)
	}
	if gotDimension != "COLUMNS" {
		t.Errorf("Expected majorDimension COLUMNS, got %s", gotDimension)
	}
	if len(data) != 2 || len(data[0]) != 2 || len(data[1]) != 1 {
		t.Fatalf("Unexpected data shape %v", data)
	}
	if data[0][1] != "3" || data[1][0] != "Away" {
		t.Errorf("Unexpected values %v", data)
	}
}

func TestFetchSheetDataFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"The caller does not have permission","status":"PERMISSION_DENIED"}}`))
	})

	fetcher := NewFetcher(client, "sheet-id", "Scores", "A1:Z1000", cells.Rows)
	if data := fetcher.FetchSheetData(context.Background()); data != nil {
		t.Errorf("Expected nil data on failure, got %v", data)
	}
}

func TestFetchSheetDataEmptyRange(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"range":"Scores!A1:Z1000","majorDimension":"ROWS"}`))
	})

	fetcher := NewFetcher(client, "sheet-id", "Scores", "A1:Z1000", cells.Rows)
	data := fetcher.FetchSheetData(context.Background())
	if data == nil {
		t.Fatal("Expected non-nil data for an empty range")
	}
	if len(data) != 0 {
		t.Errorf("Expected no lines, got %d", len(data))
	}
}

func TestReadRange(t *testing.T) {
	if got := ReadRange("Tab", "A1:C3"); got != "Tab!A1:C3" {
		t.Errorf("Expected 'Tab!A1:C3', got %s", got)
	}
}
