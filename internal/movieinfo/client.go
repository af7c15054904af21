// Package movieinfo queries the external movie metadata service, caching
// every response so repeated lookups within a session stay free.
package movieinfo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/magnetarr/magnetarr/internal/cache"
	"github.com/magnetarr/magnetarr/internal/database"
	"github.com/magnetarr/magnetarr/internal/errors"
	"github.com/magnetarr/magnetarr/internal/models"
	"github.com/magnetarr/magnetarr/pkg/logger"
	"github.com/magnetarr/magnetarr/pkg/ratelimiter"
)

const (
	metadataAPIBase = "https://api.radarr.video/v1"

	cacheCapacity = 2048
	cacheTTL      = 6 * time.Hour
)

// Client fetches movie metadata. Responses are cached in two layers: an
// in-memory TTL LRU for the hot path and a persistent content-addressed
// store so restarts keep the cache warm.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	logger      logger.Logger
	rateLimiter ratelimiter.RateLimiter
	memCache    cache.Cache
	db          database.Database
}

// New builds a metadata client. memCache may be nil to use a default cache,
// db may be nil to run memory-only.
func New(httpClient *http.Client, memCache cache.Cache, db database.Database, log logger.Logger) *Client {
	if memCache == nil {
		memCache = cache.New(cacheCapacity, cacheTTL)
	}
	return &Client{
		baseURL:     metadataAPIBase,
		httpClient:  httpClient,
		logger:      log,
		rateLimiter: ratelimiter.NewTokenBucket(10, 5),
		memCache:    memCache,
		db:          db,
	}
}

// FromTmdb resolves a single movie by TMDB id.
func (c *Client) FromTmdb(tmdbID uint64) (*models.MovieInfo, error) {
	body, err := c.get(fmt.Sprintf("%s/movie/%d", c.baseURL, tmdbID))
	if err != nil {
		return nil, err
	}

	var movie models.MovieInfo
	if err := json.Unmarshal(body, &movie); err != nil {
		return nil, fmt.Errorf("failed to decode movie response: %w", err)
	}
	return &movie, nil
}

// FromImdb resolves a movie by IMDb id, returning the first match or nil
// when the service knows nothing about the id.
func (c *Client) FromImdb(imdbID string) (*models.MovieInfo, error) {
	body, err := c.get(fmt.Sprintf("%s/movie/imdb/%s", c.baseURL, url.PathEscape(imdbID)))
	if err != nil {
		return nil, err
	}

	var movies []models.MovieInfo
	if err := json.Unmarshal(body, &movies); err != nil {
		return nil, fmt.Errorf("failed to decode imdb lookup response: %w", err)
	}
	if len(movies) == 0 {
		return nil, nil
	}
	return &movies[0], nil
}

// Bulk resolves many TMDB ids at once. Records the service could not find
// come back with Year == 0 and are dropped.
func (c *Client) Bulk(tmdbIDs []uint64) ([]models.MovieInfo, error) {
	if len(tmdbIDs) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(tmdbIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode bulk request: %w", err)
	}

	body, err := c.post(c.baseURL+"/movie/bulk", payload)
	if err != nil {
		return nil, err
	}

	var movies []models.MovieInfo
	if err := json.Unmarshal(body, &movies); err != nil {
		return nil, fmt.Errorf("failed to decode bulk response: %w", err)
	}

	found := movies[:0]
	for _, m := range movies {
		if m.Year == 0 {
			continue
		}
		found = append(found, m)
	}
	return found, nil
}

// Search runs a free-text title search. An empty query short-circuits to an
// empty list without an HTTP call.
func (c *Client) Search(query string) ([]models.MovieInfo, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	body, err := c.get(fmt.Sprintf("%s/search?q=%s", c.baseURL, url.QueryEscape(query)))
	if err != nil {
		return nil, err
	}

	var movies []models.MovieInfo
	if err := json.Unmarshal(body, &movies); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return movies, nil
}

// Trending lists currently trending movies, post-filtered per config.
func (c *Client) Trending(filters models.MovieFilters) ([]models.MovieInfo, error) {
	return c.list("/list/tmdb/trending", filters)
}

// Popular lists popular movies, post-filtered per config.
func (c *Client) Popular(filters models.MovieFilters) ([]models.MovieInfo, error) {
	return c.list("/list/tmdb/popular", filters)
}

func (c *Client) list(endpoint string, filters models.MovieFilters) ([]models.MovieInfo, error) {
	body, err := c.get(c.baseURL + endpoint)
	if err != nil {
		return nil, err
	}

	var movies []models.MovieInfo
	if err := json.Unmarshal(body, &movies); err != nil {
		return nil, fmt.Errorf("failed to decode list response: %w", err)
	}
	return filters.Filter(movies), nil
}

// get returns the response body for a URL, consulting the memory cache and
// the persistent store before going to the network.
func (c *Client) get(requestURL string) ([]byte, error) {
	if body, ok := c.cached(requestURL); ok {
		return body, nil
	}

	c.rateLimiter.Wait()
	c.logger.Debugf("[movieinfo] fetching: %s", requestURL)

	resp, err := c.httpClient.Get(requestURL)
	if err != nil {
		return nil, errors.NewHTTPRequestError(err)
	}
	defer resp.Body.Close()

	return c.readAndStore(requestURL, resp)
}

// post caches by URL plus request payload so distinct bulk batches get
// distinct entries.
func (c *Client) post(requestURL string, payload []byte) ([]byte, error) {
	cacheAddress := requestURL + "#" + string(payload)
	if body, ok := c.cached(cacheAddress); ok {
		return body, nil
	}

	c.rateLimiter.Wait()
	c.logger.Debugf("[movieinfo] posting: %s", requestURL)

	resp, err := c.httpClient.Post(requestURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.NewHTTPRequestError(err)
	}
	defer resp.Body.Close()

	return c.readAndStore(cacheAddress, resp)
}

func (c *Client) cached(address string) ([]byte, bool) {
	if value, ok := c.memCache.Get(address); ok {
		return value.([]byte), true
	}

	if c.db == nil {
		return nil, false
	}
	body, err := c.db.GetResponse(address)
	if err != nil {
		c.logger.Warnf("[movieinfo] cache read failed: %v", err)
		return nil, false
	}
	if body == nil {
		return nil, false
	}
	c.memCache.Set(address, body)
	return body, true
}

func (c *Client) readAndStore(address string, resp *http.Response) ([]byte, error) {
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewRequestError(fmt.Sprintf("metadata service returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata response: %w", err)
	}

	c.memCache.Set(address, body)
	if c.db != nil {
		if err := c.db.StoreResponse(address, body); err != nil {
			c.logger.Warnf("[movieinfo] cache write failed: %v", err)
		}
	}
	return body, nil
}
