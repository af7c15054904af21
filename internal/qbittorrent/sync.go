package qbittorrent

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/magnetarr/magnetarr/internal/errors"
	"github.com/magnetarr/magnetarr/internal/models"
)

const (
	syncMainDataPath = "/api/v2/sync/maindata"

	// ETA value qBittorrent reports for a stalled torrent with no estimate.
	etaInfinite = 8_640_000

	minPollInterval = 1 * time.Second
	maxPollInterval = 60 * time.Second
)

// SyncSnapshot mirrors the server's torrents and categories as of the latest
// observed rid. Entries stay as parsed JSON objects because the differential
// protocol merges at the object level; they are decoded into typed records
// only on export.
type SyncSnapshot struct {
	Rid        int64
	Torrents   map[string]map[string]any
	Categories map[string]map[string]any
}

// mainData is the wire form of one sync/maindata response.
type mainData struct {
	Rid               int64                     `json:"rid"`
	FullUpdate        bool                      `json:"full_update"`
	Torrents          map[string]map[string]any `json:"torrents"`
	TorrentsRemoved   []string                  `json:"torrents_removed"`
	Categories        map[string]map[string]any `json:"categories"`
	CategoriesRemoved []string                  `json:"categories_removed"`
}

func newSnapshot() SyncSnapshot {
	return SyncSnapshot{
		Torrents:   make(map[string]map[string]any),
		Categories: make(map[string]map[string]any),
	}
}

// Sync fetches the next differential against the current rid and folds it
// into the stored snapshot. Calls are serialized, so rids advance
// monotonically. The returned snapshot is a clone the caller may keep.
func (c *Client) Sync() (*SyncSnapshot, error) {
	c.syncMu.Lock()
	defer c.syncMu.Unlock()

	body, status, err := c.get(fmt.Sprintf("%s?rid=%d", syncMainDataPath, c.rid))
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, errors.NewRequestError(body)
	}

	var data mainData
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		return nil, errors.NewSerdeError(err)
	}

	if data.FullUpdate {
		c.snapshot = SyncSnapshot{
			Torrents:   cloneObjectMap(data.Torrents),
			Categories: cloneObjectMap(data.Categories),
		}
	} else {
		applyDifferential(c.snapshot.Torrents, data.Torrents, data.TorrentsRemoved)
		applyDifferential(c.snapshot.Categories, data.Categories, data.CategoriesRemoved)
	}

	c.rid = data.Rid
	c.snapshot.Rid = data.Rid

	clone := SyncSnapshot{
		Rid:        c.snapshot.Rid,
		Torrents:   cloneObjectMap(c.snapshot.Torrents),
		Categories: cloneObjectMap(c.snapshot.Categories),
	}
	return &clone, nil
}

// WaitTorrentCompletion polls the sync state until the torrent finishes.
// It returns true on completion, false when the server reports an infinite
// ETA, and TorrentNotFound when the hash disappears from the snapshot.
func (c *Client) WaitTorrentCompletion(hash string) (bool, error) {
	for {
		snapshot, err := c.Sync()
		if err != nil {
			return false, err
		}

		torrent, ok := snapshot.Torrents[hash]
		if !ok {
			return false, errors.NewTorrentNotFound(hash)
		}

		if objectFloat(torrent, "progress") == 1.0 {
			return true, nil
		}

		eta := time.Duration(objectInt(torrent, "eta")) * time.Second
		if eta == etaInfinite*time.Second {
			return false, nil
		}

		c.logger.Debugf("[qbittorrent] %s not done, sleeping %s", hash, clampInterval(eta))
		time.Sleep(clampInterval(eta))
	}
}

// applyDifferential deep-merges incoming objects into the stored map and
// drops every removed key. No removal instruction is ever ignored.
func applyDifferential(stored, incoming map[string]map[string]any, removed []string) {
	for key, obj := range incoming {
		if existing, ok := stored[key]; ok {
			deepMerge(existing, obj)
		} else {
			stored[key] = cloneObject(obj)
		}
	}
	for _, key := range removed {
		delete(stored, key)
	}
}

// deepMerge recurses into overlapping JSON objects and replaces scalars and
// arrays wholesale.
func deepMerge(dst, src map[string]any) {
	for key, incoming := range src {
		if incomingObj, ok := incoming.(map[string]any); ok {
			if existingObj, ok := dst[key].(map[string]any); ok {
				deepMerge(existingObj, incomingObj)
				continue
			}
		}
		dst[key] = incoming
	}
}

func cloneObjectMap(m map[string]map[string]any) map[string]map[string]any {
	cloned := make(map[string]map[string]any, len(m))
	for key, obj := range m {
		cloned[key] = cloneObject(obj)
	}
	return cloned
}

func cloneObject(obj map[string]any) map[string]any {
	cloned := make(map[string]any, len(obj))
	for key, value := range obj {
		if nested, ok := value.(map[string]any); ok {
			cloned[key] = cloneObject(nested)
		} else {
			cloned[key] = value
		}
	}
	return cloned
}

// ActiveTorrents exports the snapshot's torrents in the given category as
// typed records, ordered by hash for deterministic output. An empty category
// exports everything.
func (s *SyncSnapshot) ActiveTorrents(category string) []models.ActiveTorrent {
	hashes := make([]string, 0, len(s.Torrents))
	for hash, obj := range s.Torrents {
		if category != "" && objectString(obj, "category") != category {
			continue
		}
		hashes = append(hashes, hash)
	}
	sort.Strings(hashes)

	torrents := make([]models.ActiveTorrent, 0, len(hashes))
	for _, hash := range hashes {
		obj := s.Torrents[hash]
		torrents = append(torrents, models.ActiveTorrent{
			Hash:     hash,
			Name:     objectString(obj, "name"),
			Category: objectString(obj, "category"),
			Progress: objectFloat(obj, "progress"),
			ETA:      objectInt(obj, "eta"),
			SavePath: objectString(obj, "save_path"),
		})
	}
	return torrents
}

func objectString(obj map[string]any, key string) string {
	if value, ok := obj[key].(string); ok {
		return value
	}
	return ""
}

func objectFloat(obj map[string]any, key string) float64 {
	if value, ok := obj[key].(float64); ok {
		return value
	}
	return 0
}

func objectInt(obj map[string]any, key string) int64 {
	return int64(objectFloat(obj, key))
}

func clampInterval(eta time.Duration) time.Duration {
	if eta < minPollInterval {
		return minPollInterval
	}
	if eta > maxPollInterval {
		return maxPollInterval
	}
	return eta
}
