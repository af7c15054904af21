// Package tracker runs the background loop that watches tracked downloads
// and hands completed ones to the importer. It polls only while work is
// outstanding and sleeps adaptively by minimum ETA.
package tracker

import (
	"context"
	"time"

	"github.com/magnetarr/magnetarr/internal/models"
	"github.com/magnetarr/magnetarr/internal/qbittorrent"
	"github.com/magnetarr/magnetarr/pkg/logger"
)

// Syncer is the slice of the download client the loop needs.
type Syncer interface {
	Sync() (*qbittorrent.SyncSnapshot, error)
}

// Importer receives torrents whose download completed.
type Importer interface {
	Import(torrent models.ActiveTorrent) error
}

// Options configures one tracking loop.
type Options struct {
	// Disabled turns the loop off entirely.
	Disabled bool
	// Category is the download category the loop watches.
	Category string
	// MinTimeout and MaxTimeout clamp the adaptive sleep while downloads
	// are active.
	MinTimeout time.Duration
	MaxTimeout time.Duration
	// InactiveTimeout is the idle wait while the tracking flag is off.
	InactiveTimeout time.Duration
}

// defaultSleep is used when a poll round saw no ETAs at all.
const defaultSleep = 5 * time.Second

// Tracker is the loop. It owns no torrent state; every round reads the
// latest sync snapshot.
type Tracker struct {
	client   Syncer
	importer Importer
	state    *State
	options  Options
	logger   logger.Logger
}

func New(client Syncer, importer Importer, state *State, options Options, log logger.Logger) *Tracker {
	if options.MinTimeout <= 0 {
		options.MinTimeout = 1 * time.Second
	}
	if options.MaxTimeout <= 0 {
		options.MaxTimeout = 60 * time.Second
	}
	if options.InactiveTimeout <= 0 {
		options.InactiveTimeout = time.Hour
	}

	return &Tracker{
		client:   client,
		importer: importer,
		state:    state,
		options:  options,
		logger:   log,
	}
}

// Run loops until the context is cancelled. If tracking is configured off it
// logs once and returns immediately.
func (t *Tracker) Run(ctx context.Context) {
	if t.options.Disabled {
		t.logger.Info("[tracker] movie tracking is disabled")
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}

		if !t.state.Enabled() {
			t.sleep(ctx, t.options.InactiveTimeout)
			continue
		}

		t.sleep(ctx, t.poll())
	}
}

// poll runs one sync round and returns how long to sleep before the next.
func (t *Tracker) poll() time.Duration {
	snapshot, err := t.client.Sync()
	if err != nil {
		t.logger.Warnf("[tracker] sync failed: %v", err)
		return defaultSleep
	}

	var minETA int64 = -1
	downloading := 0
	for _, torrent := range snapshot.ActiveTorrents(t.options.Category) {
		if torrent.Progress == 1.0 {
			t.logger.Infof("[tracker] %s finished downloading", torrent.Name)
			if err := t.importer.Import(torrent); err != nil {
				t.logger.Errorf("[tracker] import of %s failed: %v", torrent.Name, err)
			}
			continue
		}

		downloading++
		if minETA < 0 || torrent.ETA < minETA {
			minETA = torrent.ETA
		}
	}

	if downloading == 0 {
		t.logger.Debug("[tracker] no active downloads, going idle")
		t.state.Disable()
		return 0
	}

	if minETA < 0 {
		return defaultSleep
	}
	return t.clamp(time.Duration(minETA) * time.Second)
}

// sleep waits for the duration, an enable signal, or cancellation,
// whichever comes first.
func (t *Tracker) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-t.state.Wake():
	case <-ctx.Done():
	}
}

func (t *Tracker) clamp(d time.Duration) time.Duration {
	if d < t.options.MinTimeout {
		return t.options.MinTimeout
	}
	if d > t.options.MaxTimeout {
		return t.options.MaxTimeout
	}
	return d
}
