// Package errors defines the typed errors surfaced by the service and their
// HTTP status mapping.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a ServiceError for status mapping and callers that need to
// branch on failure cause.
type Kind string

const (
	KindInvalidParam         Kind = "INVALID_PARAM"
	KindMissingQuery         Kind = "MISSING_QUERY"
	KindImdbNotFound         Kind = "IMDB_NOT_FOUND"
	KindInvalidMagnet        Kind = "INVALID_MAGNET"
	KindInvalidOption        Kind = "INVALID_OPTION"
	KindProviderFailure      Kind = "PROVIDER_FAILURE"
	KindTorrentAdd           Kind = "TORRENT_ADD_FAILED"
	KindCategoryDoesNotExist Kind = "CATEGORY_DOES_NOT_EXIST"
	KindTorrentNotFound      Kind = "TORRENT_NOT_FOUND"
	KindIncorrectLogin       Kind = "INCORRECT_LOGIN"
	KindBadParameters        Kind = "BAD_PARAMETERS"
	KindRequest              Kind = "REQUEST_FAILED"
	KindSerde                Kind = "DECODE_FAILED"
	KindHTTPRequest          Kind = "HTTP_REQUEST_FAILED"
	KindMovieFileNotFound    Kind = "MOVIE_FILE_NOT_FOUND"
	KindTorrentIsFile        Kind = "TORRENT_IS_FILE"
)

// ServiceError carries a kind, a human readable message and an optional cause.
type ServiceError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// New creates a ServiceError with an explicit kind.
func New(kind Kind, message string, cause error) *ServiceError {
	return &ServiceError{Kind: kind, Message: message, Cause: cause}
}

// NewInvalidParam reports a wrong or contradictory request field.
func NewInvalidParam(field string) *ServiceError {
	return New(KindInvalidParam, fmt.Sprintf("invalid parameter: %s", field), nil)
}

// NewMissingQuery reports a search request with neither query nor imdb.
func NewMissingQuery() *ServiceError {
	return New(KindMissingQuery, "either query or imdb must be provided", nil)
}

// NewImdbNotFound reports a metadata lookup that returned nothing.
func NewImdbNotFound(id string) *ServiceError {
	return New(KindImdbNotFound, fmt.Sprintf("no movie found for imdb id %s", id), nil)
}

// NewInvalidMagnet reports an unparseable magnet URI.
func NewInvalidMagnet(reason string, cause error) *ServiceError {
	return New(KindInvalidMagnet, reason, cause)
}

// NewInvalidOption reports a bad enumerant from untrusted input.
func NewInvalidOption(option, value string) *ServiceError {
	return New(KindInvalidOption, fmt.Sprintf("invalid %s: %q", option, value), nil)
}

// NewProviderError wraps an indexer failure; it is attached per provider and
// never fatal to a search.
func NewProviderError(provider string, cause error) *ServiceError {
	return New(KindProviderFailure, fmt.Sprintf("provider %s failed", provider), cause)
}

// NewTorrentAddError reports a rejected add on the download client.
func NewTorrentAddError(body string) *ServiceError {
	return New(KindTorrentAdd, fmt.Sprintf("torrent not added: %s", body), nil)
}

// NewCategoryDoesNotExist reports a set_category against an unknown category.
func NewCategoryDoesNotExist(name string) *ServiceError {
	return New(KindCategoryDoesNotExist, fmt.Sprintf("category %q does not exist", name), nil)
}

// NewTorrentNotFound reports a hash absent from the client.
func NewTorrentNotFound(hash string) *ServiceError {
	return New(KindTorrentNotFound, fmt.Sprintf("torrent %s not found", hash), nil)
}

// NewIncorrectLogin reports rejected download client credentials.
func NewIncorrectLogin() *ServiceError {
	return New(KindIncorrectLogin, "qbittorrent rejected the configured credentials", nil)
}

// NewBadParameters reports a request field the download client rejected.
func NewBadParameters(field string) *ServiceError {
	return New(KindBadParameters, fmt.Sprintf("bad parameter: %s", field), nil)
}

// NewRequestError reports a non-2xx download client response.
func NewRequestError(body string) *ServiceError {
	return New(KindRequest, body, nil)
}

// NewSerdeError reports an undecodable response payload.
func NewSerdeError(cause error) *ServiceError {
	return New(KindSerde, "failed to decode response", cause)
}

// NewHTTPRequestError reports a transport level failure.
func NewHTTPRequestError(cause error) *ServiceError {
	return New(KindHTTPRequest, "http request failed", cause)
}

// NewMovieFileNotFound reports an import that found no movie file.
func NewMovieFileNotFound(path string) *ServiceError {
	return New(KindMovieFileNotFound, fmt.Sprintf("no movie file found under %s", path), nil)
}

// NewTorrentIsFile reports an import whose content path is a bare file.
func NewTorrentIsFile(path string) *ServiceError {
	return New(KindTorrentIsFile, fmt.Sprintf("torrent content %s is a single file", path), nil)
}

// AsService returns the first ServiceError in err's chain.
func AsService(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsKind reports whether err is a ServiceError of the given kind.
func IsKind(err error, kind Kind) bool {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}

// HTTPStatus maps an error to the status code exposed on the public surface.
func HTTPStatus(err error) int {
	var se *ServiceError
	if !errors.As(err, &se) {
		return http.StatusInternalServerError
	}

	switch se.Kind {
	case KindInvalidParam, KindMissingQuery, KindInvalidOption, KindInvalidMagnet:
		return http.StatusBadRequest
	case KindImdbNotFound, KindTorrentNotFound, KindMovieFileNotFound:
		return http.StatusNotFound
	case KindIncorrectLogin:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
