// Package watcher triggers ingestion when the instrument finishes writing a run folder.
package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"mpc-plus/internal/extraction"
	"mpc-plus/internal/observability/metrics"
)

// DefaultSettleDelay is the wait between a folder event and the readiness check.
const DefaultSettleDelay = 2 * time.Second

// Watcher outcomes reported to metrics.
const (
	eventProcessed = "processed"
	eventSkipped   = "skipped"
	eventNotReady  = "not_ready"
	eventFailed    = "failed"
)

// FolderProcessor ingests one ready run folder.
type FolderProcessor interface {
	ProcessFolder(ctx context.Context, path string) error
}

// Config controls which roots are watched.
type Config struct {
	Paths        []string
	SettleDelay  time.Duration
	ScanExisting bool
}

// Monitor watches root directories for new run folders.
type Monitor struct {
	cfg       Config
	processor FolderProcessor
	store     ProcessedStore
	logger    *zap.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	wg      sync.WaitGroup
}

// NewMonitor constructs a monitor. A nil store falls back to an in-memory one.
func NewMonitor(cfg Config, processor FolderProcessor, store ProcessedStore, logger *zap.Logger) (*Monitor, error) {
	if len(cfg.Paths) == 0 {
		return nil, errors.New("watcher: no paths")
	}
	if processor == nil {
		return nil, errors.New("watcher: nil processor")
	}
	if store == nil {
		store = NewMemoryProcessedStore()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}
	return &Monitor{
		cfg:       cfg,
		processor: processor,
		store:     store,
		logger:    logger,
		pending:   make(map[string]struct{}),
	}, nil
}

// Run watches until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()
	defer m.wg.Wait()

	for _, root := range m.cfg.Paths {
		if err := fsw.Add(root); err != nil {
			return err
		}
		m.logger.Info("watching for run folders", zap.String("path", root))
	}

	if m.cfg.ScanExisting {
		m.ScanExisting(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			m.handleEvent(ctx, fsw, event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			m.logger.Error("watcher error", zap.Error(err))
		}
	}
}

func (m *Monitor) handleEvent(ctx context.Context, fsw *fsnotify.Watcher, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Write) {
		return
	}
	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if event.Has(fsnotify.Write) {
			return
		}
		// Watch the folder itself so results written later trigger a retry.
		if err := fsw.Add(event.Name); err != nil {
			m.logger.Debug("cannot watch run folder", zap.String("path", event.Name), zap.Error(err))
		}
		m.schedule(ctx, event.Name)
		return
	}
	switch filepath.Base(event.Name) {
	case extraction.ResultsXML, extraction.ResultsCSV:
		m.schedule(ctx, filepath.Dir(event.Name))
	}
}

// schedule runs one settle-then-process pass per folder at a time.
func (m *Monitor) schedule(ctx context.Context, dir string) {
	key := filepath.Clean(dir)
	m.mu.Lock()
	if _, ok := m.pending[key]; ok {
		m.mu.Unlock()
		return
	}
	m.pending[key] = struct{}{}
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			m.mu.Lock()
			delete(m.pending, key)
			m.mu.Unlock()
		}()
		if m.cfg.SettleDelay > 0 {
			timer := time.NewTimer(m.cfg.SettleDelay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
		}
		m.process(ctx, key)
	}()
}

// ScanExisting processes run folders already present under the roots.
func (m *Monitor) ScanExisting(ctx context.Context) {
	for _, root := range m.cfg.Paths {
		entries, err := os.ReadDir(root)
		if err != nil {
			m.logger.Warn("scan failed", zap.String("path", root), zap.Error(err))
			continue
		}
		for _, entry := range entries {
			if ctx.Err() != nil {
				return
			}
			if entry.IsDir() {
				m.process(ctx, filepath.Join(root, entry.Name()))
			}
		}
	}
}

func (m *Monitor) process(ctx context.Context, dir string) {
	dir = filepath.Clean(dir)
	if !Ready(dir) {
		metrics.IncWatcherEvent(eventNotReady)
		m.logger.Debug("run folder not ready", zap.String("path", dir))
		return
	}
	claimed, err := m.store.Claim(ctx, dir)
	if err != nil {
		metrics.IncWatcherEvent(eventFailed)
		m.logger.Error("dedup claim failed", zap.String("path", dir), zap.Error(err))
		return
	}
	if !claimed {
		metrics.IncWatcherEvent(eventSkipped)
		return
	}

	if err := m.processor.ProcessFolder(ctx, dir); err != nil {
		metrics.IncWatcherEvent(eventFailed)
		m.logger.Error("run folder ingest failed", zap.String("path", dir), zap.Error(err))
		if releaseErr := m.store.Release(context.WithoutCancel(ctx), dir); releaseErr != nil {
			m.logger.Warn("dedup release failed", zap.String("path", dir), zap.Error(releaseErr))
		}
		return
	}
	metrics.IncWatcherEvent(eventProcessed)
	m.logger.Info("run folder ingested", zap.String("path", dir))
}

// Ready reports whether a folder holds a non-empty results file.
func Ready(dir string) bool {
	for _, name := range []string{extraction.ResultsXML, extraction.ResultsCSV} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err == nil && info.Mode().IsRegular() && info.Size() > 0 {
			return true
		}
	}
	return false
}
