package qbittorrent

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/magnetarr/magnetarr/internal/errors"
	"github.com/magnetarr/magnetarr/pkg/logger"
)

const loginPath = "/api/v2/auth/login"

// loginTransport is an http.RoundTripper that logs in on demand and injects
// the session cookie into every request. A 401 nulls the cached session so
// the next call logs in again.
type loginTransport struct {
	baseURL  string
	username string
	password string
	inner    http.RoundTripper
	logger   logger.Logger

	mu      sync.Mutex
	session string
}

func newLoginTransport(baseURL, username, password string, log logger.Logger) *loginTransport {
	return &loginTransport{
		baseURL:  baseURL,
		username: username,
		password: password,
		inner:    http.DefaultTransport,
		logger:   log,
	}
}

func (t *loginTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	session, err := t.ensureSession()
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cookie", session)

	resp, err := t.inner.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		t.logger.Warn("[qbittorrent] session rejected, will re-login on next call")
		t.clearSession()
	}
	return resp, nil
}

func (t *loginTransport) ensureSession() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session != "" {
		return t.session, nil
	}

	form := url.Values{}
	form.Set("username", t.username)
	form.Set("password", t.password)

	req, err := http.NewRequest(http.MethodPost, t.baseURL+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	// qBittorrent rejects cross-origin logins without a matching Origin.
	req.Header.Set("Origin", t.baseURL)

	resp, err := t.inner.RoundTrip(req)
	if err != nil {
		return "", errors.NewHTTPRequestError(err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || strings.HasPrefix(string(body), "Fails.") {
		return "", errors.NewIncorrectLogin()
	}

	session := sessionFromCookie(resp.Header.Get("Set-Cookie"))
	if session == "" {
		return "", errors.NewIncorrectLogin()
	}

	t.logger.Debug("[qbittorrent] logged in")
	t.session = session
	return session, nil
}

func (t *loginTransport) clearSession() {
	t.mu.Lock()
	t.session = ""
	t.mu.Unlock()
}

// sessionFromCookie keeps the first Set-Cookie value up to the first ';',
// which is the SID pair qBittorrent expects back verbatim.
func sessionFromCookie(setCookie string) string {
	if setCookie == "" {
		return ""
	}
	if i := strings.IndexByte(setCookie, ';'); i >= 0 {
		setCookie = setCookie[:i]
	}
	return strings.TrimSpace(setCookie)
}
