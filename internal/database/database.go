// Package database provides the persistent, content-addressed HTTP response
// cache backed by BoltDB.
package database

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/timshannon/bolthold"
)

const (
	dbFileMode = 0600
	dbDirMode  = 0755

	defaultDBFile = "cache.db"
)

// CachedResponse is one stored upstream response, addressed by the hash of
// the request URL.
type CachedResponse struct {
	Key       string `boltholdKey:"Key"`
	URL       string
	Body      []byte
	FetchedAt time.Time
}

// Database is the persistence interface used by the movie-info client's
// force-cache.
type Database interface {
	// GetResponse returns a cached response body, or nil when absent.
	GetResponse(url string) ([]byte, error)
	// StoreResponse stores a response body under its request URL.
	StoreResponse(url string, body []byte) error
	// Close closes the underlying store.
	Close() error
}

// BoltDB implements Database on a bolthold store.
type BoltDB struct {
	store *bolthold.Store
}

// NewBolt opens (creating if needed) the cache database at dbPath.
func NewBolt(dbPath string) (*BoltDB, error) {
	if dbPath == "" {
		dbPath = filepath.Join(".", defaultDBFile)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), dbDirMode); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := bolthold.Open(dbPath, dbFileMode, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	return &BoltDB{store: store}, nil
}

func (db *BoltDB) Close() error {
	return db.store.Close()
}

// GetResponse returns the cached body for a URL, or nil without error when
// the URL has never been fetched.
func (db *BoltDB) GetResponse(url string) ([]byte, error) {
	var cached CachedResponse
	err := db.store.Get(cacheKey(url), &cached)
	if err == bolthold.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached response: %w", err)
	}
	return cached.Body, nil
}

// StoreResponse upserts the body under the URL's content address.
func (db *BoltDB) StoreResponse(url string, body []byte) error {
	cached := &CachedResponse{
		Key:       cacheKey(url),
		URL:       url,
		Body:      body,
		FetchedAt: time.Now(),
	}
	if err := db.store.Upsert(cached.Key, cached); err != nil {
		return fmt.Errorf("failed to store cached response: %w", err)
	}
	return nil
}

func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}
