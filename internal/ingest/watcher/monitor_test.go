package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingProcessor struct {
	mu    sync.Mutex
	paths []string
	fail  int
}

func (p *recordingProcessor) ProcessFolder(_ context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths = append(p.paths, path)
	if p.fail > 0 {
		p.fail--
		return errors.New("extract failed")
	}
	return nil
}

func (p *recordingProcessor) calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.paths...)
}

func makeRun(t *testing.T, root, name string, withResults bool) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	if withResults {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "Results.xml"), []byte("<ProcessingSteps/>"), 0o644))
	}
	return dir
}

func TestReady(t *testing.T) {
	root := t.TempDir()
	ready := makeRun(t, root, "ready", true)
	notReady := makeRun(t, root, "pending", false)
	empty := makeRun(t, root, "empty", false)
	require.NoError(t, os.WriteFile(filepath.Join(empty, "Results.csv"), nil, 0o644))

	assert.True(t, Ready(ready))
	assert.False(t, Ready(notReady))
	assert.False(t, Ready(empty))
}

func TestMonitor_ScanExistingDeduplicates(t *testing.T) {
	root := t.TempDir()
	first := makeRun(t, root, "NDS-WKS-SN6543-2025-09-19-07-41-49-0008-BeamCheckTemplate6e", true)
	makeRun(t, root, "NDS-WKS-SN6543-2025-09-19-07-43-00-0009-BeamCheckTemplate9e", false)

	processor := &recordingProcessor{}
	monitor, err := NewMonitor(Config{Paths: []string{root}}, processor, nil, zap.NewNop())
	require.NoError(t, err)

	monitor.ScanExisting(context.Background())
	monitor.ScanExisting(context.Background())
	assert.Equal(t, []string{first}, processor.calls())
}

func TestMonitor_ReleasesOnFailure(t *testing.T) {
	root := t.TempDir()
	run := makeRun(t, root, "run", true)

	processor := &recordingProcessor{fail: 1}
	store := NewMemoryProcessedStore()
	monitor, err := NewMonitor(Config{Paths: []string{root}}, processor, store, nil)
	require.NoError(t, err)

	monitor.process(context.Background(), run)
	monitor.process(context.Background(), run)
	monitor.process(context.Background(), run)
	assert.Len(t, processor.calls(), 2)
}

func TestMonitor_RunPicksUpNewFolders(t *testing.T) {
	root := t.TempDir()
	processor := &recordingProcessor{}
	monitor, err := NewMonitor(Config{Paths: []string{root}, SettleDelay: 20 * time.Millisecond}, processor, nil, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- monitor.Run(ctx) }()

	// Give the watcher time to register the root.
	time.Sleep(100 * time.Millisecond)
	run := makeRun(t, root, "NDS-WKS-SN6543-2025-09-19-07-41-49-0008-BeamCheckTemplate6e", false)
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(run, "Results.xml"), []byte("<ProcessingSteps/>"), 0o644))

	require.Eventually(t, func() bool { return len(processor.calls()) == 1 }, 5*time.Second, 20*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, []string{run}, processor.calls())
}

func TestNewMonitor_Validates(t *testing.T) {
	_, err := NewMonitor(Config{}, &recordingProcessor{}, nil, nil)
	assert.Error(t, err)
	_, err = NewMonitor(Config{Paths: []string{"/tmp"}}, nil, nil, nil)
	assert.Error(t, err)
}
