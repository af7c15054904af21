package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magnetarr/magnetarr/internal/models"
	"github.com/magnetarr/magnetarr/internal/qbittorrent"
	"github.com/magnetarr/magnetarr/pkg/logger"
)

type stubSyncer struct {
	mu        sync.Mutex
	snapshots []*qbittorrent.SyncSnapshot
	calls     int
}

func (s *stubSyncer) Sync() (*qbittorrent.SyncSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.snapshots[min(s.calls, len(s.snapshots)-1)]
	s.calls++
	return snapshot, nil
}

func (s *stubSyncer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubImporter struct {
	mu       sync.Mutex
	imported []string
}

func (s *stubImporter) Import(torrent models.ActiveTorrent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imported = append(s.imported, torrent.Hash)
	return nil
}

func (s *stubImporter) importedHashes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.imported...)
}

func snapshotWith(torrents map[string]map[string]any) *qbittorrent.SyncSnapshot {
	return &qbittorrent.SyncSnapshot{Torrents: torrents}
}

func testOptions() Options {
	return Options{
		Category:        "magnetarr",
		MinTimeout:      time.Millisecond,
		MaxTimeout:      10 * time.Millisecond,
		InactiveTimeout: 5 * time.Millisecond,
	}
}

func TestRunDisabledExitsImmediately(t *testing.T) {
	syncer := &stubSyncer{snapshots: []*qbittorrent.SyncSnapshot{snapshotWith(nil)}}
	options := testOptions()
	options.Disabled = true
	tr := New(syncer, &stubImporter{}, NewState(), options, logger.NewWithLevel(logger.LevelError))

	done := make(chan struct{})
	go func() {
		tr.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled tracker did not exit")
	}
	assert.Equal(t, 0, syncer.callCount())
}

func TestRunImportsCompletedTorrents(t *testing.T) {
	syncer := &stubSyncer{snapshots: []*qbittorrent.SyncSnapshot{
		snapshotWith(map[string]map[string]any{
			"done": {"name": "Finished Movie", "category": "magnetarr", "progress": 1.0, "eta": 0.0},
			"othercat": {"name": "Different category", "category": "tv", "progress": 1.0, "eta": 0.0},
		}),
	}}
	importer := &stubImporter{}
	state := NewState()
	tr := New(syncer, importer, state, testOptions(), logger.NewWithLevel(logger.LevelError))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Run(ctx)

	state.Enable()
	require.Eventually(t, func() bool {
		return len(importer.importedHashes()) > 0
	}, time.Second, time.Millisecond)

	assert.Contains(t, importer.importedHashes(), "done")
	assert.NotContains(t, importer.importedHashes(), "othercat")
}

// With nothing left downloading in the watched category the loop turns the
// flag off and stops syncing.
func TestRunDisablesFlagWhenQueueEmpty(t *testing.T) {
	syncer := &stubSyncer{snapshots: []*qbittorrent.SyncSnapshot{
		snapshotWith(map[string]map[string]any{
			"done": {"name": "Finished", "category": "magnetarr", "progress": 1.0, "eta": 0.0},
		}),
	}}
	state := NewState()
	tr := New(syncer, &stubImporter{}, state, testOptions(), logger.NewWithLevel(logger.LevelError))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Run(ctx)

	state.Enable()
	require.Eventually(t, func() bool { return !state.Enabled() }, time.Second, time.Millisecond)
}

func TestRunKeepsPollingWhileDownloading(t *testing.T) {
	syncer := &stubSyncer{snapshots: []*qbittorrent.SyncSnapshot{
		snapshotWith(map[string]map[string]any{
			"busy": {"name": "Downloading", "category": "magnetarr", "progress": 0.4, "eta": 120.0},
		}),
	}}
	state := NewState()
	tr := New(syncer, &stubImporter{}, state, testOptions(), logger.NewWithLevel(logger.LevelError))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Run(ctx)

	state.Enable()
	require.Eventually(t, func() bool { return syncer.callCount() >= 3 }, time.Second, time.Millisecond)
	assert.True(t, state.Enabled(), "flag stays on while downloads are active")
}

func TestEnableWakesIdleSleeper(t *testing.T) {
	syncer := &stubSyncer{snapshots: []*qbittorrent.SyncSnapshot{snapshotWith(nil)}}
	state := NewState()
	options := testOptions()
	options.InactiveTimeout = time.Hour // only an Enable signal can end the idle wait
	tr := New(syncer, &stubImporter{}, state, options, logger.NewWithLevel(logger.LevelError))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Run(ctx)

	time.Sleep(10 * time.Millisecond)
	state.Enable()
	require.Eventually(t, func() bool { return syncer.callCount() >= 1 }, time.Second, time.Millisecond)
}

func TestStateSignalling(t *testing.T) {
	state := NewState()
	assert.False(t, state.Enabled())

	state.Enable()
	assert.True(t, state.Enabled())
	select {
	case <-state.Wake():
	default:
		t.Fatal("Enable did not signal the wake channel")
	}

	state.Disable()
	assert.False(t, state.Enabled())
	select {
	case <-state.Wake():
		t.Fatal("Disable must not signal")
	default:
	}
}
