package qbittorrent

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magnetarr/magnetarr/internal/errors"
	"github.com/magnetarr/magnetarr/pkg/logger"
)

// fakeServer implements just enough of the Web API for the client tests:
// the login endpoint plus whatever the test registers.
func fakeServer(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()

	mux.HandleFunc("/api/v2/auth/login", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("username") != "admin" || r.PostForm.Get("password") != "secret" {
			w.Write([]byte("Fails."))
			return
		}
		assert.NotEmpty(t, r.Header.Get("Origin"))
		w.Header().Set("Set-Cookie", "SID=abc123; path=/; HttpOnly")
		w.Write([]byte("Ok."))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return New(server.URL, "admin", "secret", logger.NewWithLevel(logger.LevelError))
}

func TestLoginInjectsSessionCookie(t *testing.T) {
	mux := http.NewServeMux()
	var gotCookie string
	mux.HandleFunc("/api/v2/app/version", func(w http.ResponseWriter, r *http.Request) {
		gotCookie = r.Header.Get("Cookie")
		w.Write([]byte("v5.0.1\n"))
	})

	c := fakeServer(t, mux)
	version, err := c.Version()
	require.NoError(t, err)
	assert.Equal(t, "v5.0.1", version)
	assert.Equal(t, "SID=abc123", gotCookie)
}

func TestLoginRejectedCredentials(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	mux.HandleFunc("/api/v2/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Fails."))
	})

	c := New(server.URL, "admin", "wrong", logger.NewWithLevel(logger.LevelError))
	_, err := c.Version()
	require.Error(t, err)

	// The login failure happens inside the transport, so http.Client hands
	// it back wrapped in a *url.Error. The typed error must survive that.
	assert.True(t, errors.IsKind(err, errors.KindIncorrectLogin))
	assert.Equal(t, http.StatusUnauthorized, errors.HTTPStatus(err))
}

// A 401 must null the cached session so the next call logs in again.
func TestExpiredSessionTriggersRelogin(t *testing.T) {
	var logins, calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/auth/login", func(w http.ResponseWriter, r *http.Request) {
		logins.Add(1)
		w.Header().Set("Set-Cookie", "SID=abc123; path=/")
		w.Write([]byte("Ok."))
	})
	mux.HandleFunc("/api/v2/app/version", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte("v5.0.1"))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	c := New(server.URL, "admin", "secret", logger.NewWithLevel(logger.LevelError))

	_, err := c.Version()
	assert.Error(t, err, "first call sees the expired session's 401")

	version, err := c.Version()
	require.NoError(t, err)
	assert.Equal(t, "v5.0.1", version)
	assert.Equal(t, int32(2), logins.Load())
}

func TestAddTorrents(t *testing.T) {
	mux := http.NewServeMux()
	var gotURLs, gotCategory string
	mux.HandleFunc("/api/v2/torrents/add", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotURLs = r.PostForm.Get("urls")
		gotCategory = r.PostForm.Get("category")
		w.Write([]byte("Ok."))
	})

	c := fakeServer(t, mux)
	err := c.AddTorrents(
		[]string{"magnet:?xt=urn:btih:aaaa", "magnet:?xt=urn:btih:bbbb"},
		map[string]string{"category": "magnetarr"})
	require.NoError(t, err)
	assert.Equal(t, "magnet:?xt=urn:btih:aaaa\nmagnet:?xt=urn:btih:bbbb", gotURLs)
	assert.Equal(t, "magnetarr", gotCategory)
}

// Success is the literal body "Ok."; anything else is a failed add even with
// a 200 status.
func TestAddTorrentsNonOkBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/torrents/add", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Fails."))
	})

	c := fakeServer(t, mux)
	err := c.AddTorrents([]string{"magnet:?xt=urn:btih:aaaa"}, nil)
	assert.True(t, errors.IsKind(err, errors.KindTorrentAdd))
}

func TestDeleteTorrentsJoinsHashes(t *testing.T) {
	mux := http.NewServeMux()
	var gotHashes, gotDeleteFiles string
	mux.HandleFunc("/api/v2/torrents/delete", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotHashes = r.PostForm.Get("hashes")
		gotDeleteFiles = r.PostForm.Get("deleteFiles")
	})

	c := fakeServer(t, mux)
	require.NoError(t, c.DeleteTorrents([]string{"aaaa", "bbbb"}, true))
	assert.Equal(t, "aaaa|bbbb", gotHashes)
	assert.Equal(t, "true", gotDeleteFiles)
}

func TestTorrentsBadParameters(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/torrents/info", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("filter parameter is invalid"))
	})

	c := fakeServer(t, mux)
	_, err := c.Torrents(TorrentsParams{Filter: "bogus"})
	assert.True(t, errors.IsKind(err, errors.KindBadParameters))
}

func TestTorrentsListing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/torrents/info", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "magnetarr", r.URL.Query().Get("category"))
		assert.Equal(t, "aaaa|bbbb", r.URL.Query().Get("hashes"))
		w.Write([]byte(`[
			{"hash": "aaaa", "name": "Movie One", "category": "magnetarr",
			 "progress": 0.5, "eta": 120, "save_path": "/downloads"},
			{"hash": "bbbb", "name": "Movie Two", "category": "magnetarr",
			 "progress": 1.0, "eta": 0, "save_path": "/downloads"}
		]`))
	})

	c := fakeServer(t, mux)
	torrents, err := c.Torrents(TorrentsParams{Category: "magnetarr", Hashes: []string{"aaaa", "bbbb"}})
	require.NoError(t, err)
	require.Len(t, torrents, 2)
	assert.Equal(t, "Movie One", torrents[0].Name)
	assert.Equal(t, 0.5, torrents[0].Progress)
}

func TestEnsureCategory(t *testing.T) {
	var created, edited atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/torrents/categories", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"magnetarr": {"name": "magnetarr", "savePath": "/downloads"}}`))
	})
	mux.HandleFunc("/api/v2/torrents/createCategory", func(w http.ResponseWriter, r *http.Request) {
		created.Add(1)
	})
	mux.HandleFunc("/api/v2/torrents/editCategory", func(w http.ResponseWriter, r *http.Request) {
		edited.Add(1)
	})
	c := fakeServer(t, mux)

	// Same save path: no-op.
	require.NoError(t, c.EnsureCategory("magnetarr", "/downloads"))
	assert.Equal(t, int32(0), created.Load())
	assert.Equal(t, int32(0), edited.Load())

	// Different save path: edit.
	require.NoError(t, c.EnsureCategory("magnetarr", "/other"))
	assert.Equal(t, int32(1), edited.Load())

	// Absent: create.
	require.NoError(t, c.EnsureCategory("movies-done", "/done"))
	assert.Equal(t, int32(1), created.Load())

	// Empty name rejected before any request.
	err := c.EnsureCategory("", "/x")
	assert.True(t, errors.IsKind(err, errors.KindBadParameters))
}

func TestSetCategoryUnknown(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/torrents/setCategory", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	c := fakeServer(t, mux)
	err := c.SetCategory([]string{"aaaa"}, "missing")
	assert.True(t, errors.IsKind(err, errors.KindCategoryDoesNotExist))
}
