package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"sheets_obs_sync/internal/app"
	"sheets_obs_sync/internal/cells"
	"sheets_obs_sync/internal/config"
	"sheets_obs_sync/internal/retry"
	"sheets_obs_sync/internal/updater"

	"github.com/rs/zerolog/log"
)

// Fetcher returns the sheet values for one cycle, nil when the fetch failed.
type Fetcher interface {
	FetchSheetData(ctx context.Context) cells.SheetData
}

// Session is an open OBS connection.
type Session interface {
	updater.OBS
	Disconnect() error
}

// Connector opens an OBS session.
type Connector func(ctx context.Context) (Session, error)

// FileWriter mirrors cells into files.
type FileWriter interface {
	Write(data cells.SheetData, dim cells.Dimension) (int, error)
}

// Worker owns the polling loop. Its Config is a snapshot taken at construction.
type Worker struct {
	cfg        app.Config
	fetcher    Fetcher
	connect    Connector
	files      FileWriter
	resilience config.ResilienceConfig

	running atomic.Bool
	session Session
	updater *updater.Updater
}

// New creates a worker. connect may be nil when OBS is disabled, files may be
// nil when file mirroring is disabled.
func New(cfg app.Config, fetcher Fetcher, connect Connector, files FileWriter) *Worker {
	return &Worker{
		cfg:        cfg,
		fetcher:    fetcher,
		connect:    connect,
		files:      files,
		resilience: config.DefaultResilienceConfig,
	}
}

// WithResilience replaces the startup retry policy.
func (w *Worker) WithResilience(r config.ResilienceConfig) *Worker {
	w.resilience = r
	return w
}

func (w *Worker) Running() bool {
	return w.running.Load()
}

// Stop asks the loop to exit. The loop notices after its current sleep.
func (w *Worker) Stop() {
	if w.running.Swap(false) {
		log.Info().Msg("Worker stopping")
	}
}

func (w *Worker) interval() time.Duration {
	return time.Duration(w.cfg.UpdateInterval) * time.Millisecond
}

// Run connects to OBS and polls until Stop is called or ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	w.running.Store(true)
	defer w.running.Store(false)

	if err := w.open(ctx); err != nil {
		return err
	}
	defer w.close()

	log.Info().
		Dur("interval", w.interval()).
		Str("dimension", w.cfg.Dimension).
		Bool("obs", w.session != nil).
		Bool("files", w.files != nil).
		Msg("Worker started")

	for w.running.Load() {
		w.cycle(ctx)

		timer := time.NewTimer(w.interval())
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info().Msg("Worker stopped")
			return nil
		case <-timer.C:
		}
	}

	log.Info().Msg("Worker stopped")
	return nil
}

// RunOnce connects, performs a single cycle and disconnects.
func (w *Worker) RunOnce(ctx context.Context) error {
	if err := w.open(ctx); err != nil {
		return err
	}
	defer w.close()

	w.cycle(ctx)
	return nil
}

func (w *Worker) open(ctx context.Context) error {
	if w.connect == nil {
		return nil
	}

	session, err := retry.WithRetry(ctx, w.resilience.OBSConnect, func(ctx context.Context) (Session, error) {
		return w.connect(ctx)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("failed to open OBS connection: %w", err)
	}

	w.session = session
	w.updater = updater.New(session)
	log.Info().Msg("Connected to OBS WebSocket server")
	return nil
}

func (w *Worker) close() {
	if w.session == nil {
		return
	}
	if err := w.session.Disconnect(); err != nil {
		log.Warn().Err(err).Msg("Failed to disconnect from OBS")
	}
	w.session = nil
	w.updater = nil
}

func (w *Worker) cycle(ctx context.Context) {
	start := time.Now()
	data := w.fetcher.FetchSheetData(ctx)
	if data == nil {
		log.Debug().Msg("No sheet data this cycle, skipping")
		return
	}

	dim := w.cfg.DimensionValue()

	if w.updater != nil {
		stats, err := w.updater.Update(ctx, data, dim)
		if err != nil {
			log.Error().Err(err).Msg("Failed to update OBS sources")
		} else {
			log.Debug().
				Int("bindings", stats.Bindings).
				Int("updated", stats.Updated).
				Int("unchanged", stats.Unchanged).
				Int("skipped", stats.Skipped).
				Int("failed", stats.Failed).
				Dur("took", time.Since(start)).
				Msg("Updated OBS sources")
		}
	}

	if w.files != nil {
		n, err := w.files.Write(data, dim)
		if err != nil {
			log.Error().Err(err).Msg("Failed to write cell files")
		} else if n > 0 {
			log.Debug().Int("written", n).Msg("Wrote cell files")
		}
	}
}
