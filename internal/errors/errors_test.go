package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NewInvalidParam("query"), http.StatusBadRequest},
		{NewMissingQuery(), http.StatusBadRequest},
		{NewInvalidOption("sort", "Bogus"), http.StatusBadRequest},
		{NewInvalidMagnet("not a magnet", nil), http.StatusBadRequest},
		{NewImdbNotFound("tt0133093"), http.StatusNotFound},
		{NewTorrentNotFound("aaaa"), http.StatusNotFound},
		{NewMovieFileNotFound("/downloads/x"), http.StatusNotFound},
		{NewIncorrectLogin(), http.StatusUnauthorized},
		{NewTorrentAddError("Fails."), http.StatusInternalServerError},
		{NewRequestError("boom"), http.StatusInternalServerError},
		{fmt.Errorf("plain error"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), "%v", tt.err)
	}
}

func TestHTTPStatusUnwrapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("searching: %w", NewImdbNotFound("tt0133093"))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(wrapped))
}

func TestIsKind(t *testing.T) {
	err := NewBadParameters("hashes")
	assert.True(t, IsKind(err, KindBadParameters))
	assert.False(t, IsKind(err, KindRequest))

	wrapped := fmt.Errorf("listing: %w", err)
	assert.True(t, IsKind(wrapped, KindBadParameters))
}

func TestErrorStringCarriesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewHTTPRequestError(cause)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, cause, err.Unwrap())
}
