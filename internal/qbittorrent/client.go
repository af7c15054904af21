// Package qbittorrent wraps the qBittorrent Web API v2: authenticated
// requests, torrent and category management, and the rid-keyed differential
// sync protocol.
package qbittorrent

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/magnetarr/magnetarr/internal/errors"
	"github.com/magnetarr/magnetarr/pkg/httputil"
	"github.com/magnetarr/magnetarr/pkg/logger"
)

const (
	addTorrentsPath    = "/api/v2/torrents/add"
	deleteTorrentsPath = "/api/v2/torrents/delete"
	torrentsInfoPath   = "/api/v2/torrents/info"
	setCategoryPath    = "/api/v2/torrents/setCategory"
	categoriesPath     = "/api/v2/torrents/categories"
	addCategoryPath    = "/api/v2/torrents/createCategory"
	editCategoryPath   = "/api/v2/torrents/editCategory"
	versionPath        = "/api/v2/app/version"

	requestTimeout = 30 * time.Second
)

// Client talks to one qBittorrent instance. All state beyond the HTTP
// session lives in the sync snapshot, guarded by its own mutex.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger

	syncMu   sync.Mutex
	rid      int64
	snapshot SyncSnapshot

	categoryMu sync.Mutex
}

// Category is a qBittorrent download category.
type Category struct {
	Name     string `json:"name"`
	SavePath string `json:"savePath"`
}

// TorrentInfo is one row of the torrents/info listing.
type TorrentInfo struct {
	Hash     string  `json:"hash"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Progress float64 `json:"progress"`
	ETA      int64   `json:"eta"`
	SavePath string  `json:"save_path"`
	State    string  `json:"state"`
}

// TorrentsParams narrows a torrents/info listing. Zero values mean no
// constraint.
type TorrentsParams struct {
	Filter   string
	Category string
	Hashes   []string
}

// New builds a client for the qBittorrent instance at baseURL. Login happens
// lazily on the first request.
func New(baseURL, username, password string, log logger.Logger) *Client {
	transport := newLoginTransport(strings.TrimSuffix(baseURL, "/"), username, password, log)
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httputil.NewHTTPClientWithTransport(transport, requestTimeout),
		logger:     log,
		snapshot:   newSnapshot(),
	}
}

// AddTorrents submits magnet or torrent URLs, newline-joined, plus any set
// option. The server acknowledges with the literal body "Ok."; anything else
// is a failed add.
func (c *Client) AddTorrents(urls []string, options map[string]string) error {
	form := url.Values{}
	form.Set("urls", strings.Join(urls, "\n"))
	for key, value := range options {
		form.Set(key, value)
	}

	body, _, err := c.postForm(addTorrentsPath, form)
	if err != nil {
		return err
	}
	if body != "Ok." {
		return errors.NewTorrentAddError(body)
	}
	return nil
}

// DeleteTorrents removes the torrents, optionally including their files.
func (c *Client) DeleteTorrents(hashes []string, deleteFiles bool) error {
	form := url.Values{}
	form.Set("hashes", strings.Join(hashes, "|"))
	form.Set("deleteFiles", fmt.Sprintf("%t", deleteFiles))

	body, status, err := c.postForm(deleteTorrentsPath, form)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return errors.NewRequestError(body)
	}
	return nil
}

// Torrents lists torrents matching the params.
func (c *Client) Torrents(params TorrentsParams) ([]TorrentInfo, error) {
	query := url.Values{}
	if params.Filter != "" {
		query.Set("filter", params.Filter)
	}
	if params.Category != "" {
		query.Set("category", params.Category)
	}
	if len(params.Hashes) > 0 {
		query.Set("hashes", strings.Join(params.Hashes, "|"))
	}

	body, status, err := c.get(torrentsInfoPath + "?" + query.Encode())
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		if strings.HasSuffix(strings.TrimSpace(body), "parameter is invalid") {
			return nil, errors.NewBadParameters(firstWord(body))
		}
		return nil, errors.NewRequestError(body)
	}

	var torrents []TorrentInfo
	if err := json.Unmarshal([]byte(body), &torrents); err != nil {
		return nil, errors.NewSerdeError(err)
	}
	return torrents, nil
}

// Categories lists the categories known to the server.
func (c *Client) Categories() (map[string]Category, error) {
	body, status, err := c.get(categoriesPath)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, errors.NewRequestError(body)
	}

	var categories map[string]Category
	if err := json.Unmarshal([]byte(body), &categories); err != nil {
		return nil, errors.NewSerdeError(err)
	}
	return categories, nil
}

// AddCategory creates a category.
func (c *Client) AddCategory(name, savePath string) error {
	return c.categoryRequest(addCategoryPath, name, savePath)
}

// EditCategory changes an existing category's save path.
func (c *Client) EditCategory(name, savePath string) error {
	return c.categoryRequest(editCategoryPath, name, savePath)
}

// EnsureCategory is idempotent: create the category if absent, align its
// save path if it differs, otherwise do nothing. Concurrent calls are
// serialized; the last writer's save path wins.
func (c *Client) EnsureCategory(name, savePath string) error {
	if name == "" {
		return errors.NewBadParameters("name")
	}

	c.categoryMu.Lock()
	defer c.categoryMu.Unlock()

	categories, err := c.Categories()
	if err != nil {
		return err
	}

	existing, ok := categories[name]
	switch {
	case !ok:
		return c.AddCategory(name, savePath)
	case existing.SavePath != savePath:
		return c.EditCategory(name, savePath)
	}
	return nil
}

// SetCategory moves torrents into a category. The server answers non-2xx
// when the category does not exist.
func (c *Client) SetCategory(hashes []string, category string) error {
	form := url.Values{}
	form.Set("hashes", strings.Join(hashes, "|"))
	form.Set("category", category)

	_, status, err := c.postForm(setCategoryPath, form)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return errors.NewCategoryDoesNotExist(category)
	}
	return nil
}

// Version returns the server's version string.
func (c *Client) Version() (string, error) {
	body, status, err := c.get(versionPath)
	if err != nil {
		return "", err
	}
	if status < 200 || status > 299 {
		return "", errors.NewRequestError(body)
	}
	return strings.TrimSpace(body), nil
}

func (c *Client) categoryRequest(path, name, savePath string) error {
	if name == "" {
		return errors.NewBadParameters("name")
	}

	form := url.Values{}
	form.Set("category", name)
	form.Set("savePath", savePath)

	body, status, err := c.postForm(path, form)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return errors.NewRequestError(body)
	}
	return nil
}

func (c *Client) postForm(path string, form url.Values) (string, int, error) {
	resp, err := c.httpClient.Post(
		c.baseURL+path,
		"application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, errors.NewHTTPRequestError(err)
	}
	return string(body), resp.StatusCode, nil
}

func (c *Client) get(path string) (string, int, error) {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return "", 0, transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, errors.NewHTTPRequestError(err)
	}
	return string(body), resp.StatusCode, nil
}

// transportError keeps typed errors raised inside the transport (the login
// middleware) intact; http.Client buries them in a *url.Error, which would
// otherwise get re-wrapped and lose the kind.
func transportError(err error) error {
	if se, ok := errors.AsService(err); ok {
		return se
	}
	return errors.NewHTTPRequestError(err)
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return s
	}
	return fields[0]
}
