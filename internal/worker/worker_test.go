package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sheets_obs_sync/internal/app"
	"sheets_obs_sync/internal/cells"
	"sheets_obs_sync/internal/config"
	"sheets_obs_sync/internal/obs"
	"sheets_obs_sync/internal/retry"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	data  cells.SheetData
}

func (f *fakeFetcher) FetchSheetData(ctx context.Context) cells.SheetData {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.data
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSession struct {
	mu           sync.Mutex
	settings     map[string]map[string]any
	sets         int
	disconnected bool
}

func (s *fakeSession) Sources() ([]obs.Source, error) {
	return []obs.Source{{Name: "Title | A1", InputKind: "text_gdiplus_v3"}}, nil
}

func (s *fakeSession) InputSettings(name string) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings[name], nil
}

func (s *fakeSession) SetInputSettings(name string, settings map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	s.settings[name] = settings
	return nil
}

func (s *fakeSession) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnected = true
	return nil
}

type fakeFiles struct {
	writes int
}

func (f *fakeFiles) Write(data cells.SheetData, dim cells.Dimension) (int, error) {
	f.writes++
	return 1, nil
}

func testConfig(intervalMs int) app.Config {
	return app.Config{
		UpdateInterval: intervalMs,
		Dimension:      "ROWS",
	}
}

func fastResilience() config.ResilienceConfig {
	return config.ResilienceConfig{
		OBSConnect: retry.Config{
			Operation:  "connect to OBS",
			MaxRetries: 2,
			BaseDelay:  time.Millisecond,
			MaxDelay:   5 * time.Millisecond,
			Timeout:    time.Second,
		},
	}
}

func TestRunUpdatesUntilStopped(t *testing.T) {
	fetcher := &fakeFetcher{data: cells.SheetData{{"Kickoff"}}}
	session := &fakeSession{settings: map[string]map[string]any{}}
	files := &fakeFiles{}
	connect := func(ctx context.Context) (Session, error) { return session, nil }

	w := New(testConfig(10), fetcher, connect, files).WithResilience(fastResilience())

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()

	deadline := time.After(2 * time.Second)
	for fetcher.Calls() < 3 {
		select {
		case <-deadline:
			t.Fatal("Expected at least 3 cycles")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if !w.Running() {
		t.Error("Expected worker to report running")
	}
	w.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected Run to return after Stop")
	}

	if w.Running() {
		t.Error("Expected worker to report stopped")
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.sets != 1 {
		t.Errorf("Expected a single update for an unchanged value, got %d", session.sets)
	}
	if !session.disconnected {
		t.Error("Expected session to be disconnected")
	}
	if files.writes < 3 {
		t.Errorf("Expected files to be written every cycle, got %d", files.writes)
	}
}

func TestRunSkipsCycleWithoutData(t *testing.T) {
	fetcher := &fakeFetcher{}
	session := &fakeSession{settings: map[string]map[string]any{}}
	connect := func(ctx context.Context) (Session, error) { return session, nil }
	w := New(testConfig(5), fetcher, connect, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	for fetcher.Calls() < 2 {
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if session.sets != 0 {
		t.Errorf("Expected no updates without data, got %d", session.sets)
	}
}

func TestRunConnectFailure(t *testing.T) {
	attempts := 0
	connect := func(ctx context.Context) (Session, error) {
		attempts++
		return nil, errors.New("connection refused")
	}
	w := New(testConfig(10), &fakeFetcher{}, connect, nil).WithResilience(fastResilience())

	if err := w.Run(context.Background()); err == nil {
		t.Fatal("Expected error when OBS is unreachable, got nil")
	}
	if attempts != 3 {
		t.Errorf("Expected 3 connection attempts, got %d", attempts)
	}
	if w.Running() {
		t.Error("Expected worker not to be running after failure")
	}
}

func TestRunOnceWithoutOBS(t *testing.T) {
	fetcher := &fakeFetcher{data: cells.SheetData{{"a"}}}
	files := &fakeFiles{}
	w := New(testConfig(1000), fetcher, nil, files)

	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if fetcher.Calls() != 1 || files.writes != 1 {
		t.Errorf("Expected one fetch and one write, got %d and %d", fetcher.Calls(), files.writes)
	}
}
