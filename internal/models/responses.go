package models

// ProviderResponse is the outcome of a single provider in a fan-out. Exactly
// one of Torrents or Err is meaningful.
type ProviderResponse struct {
	Provider Provider
	Torrents []Torrent
	Err      error
}

// ProviderError is the user-visible form of an isolated provider failure.
type ProviderError struct {
	Provider Provider `json:"provider"`
	Error    string   `json:"error"`
}

// SearchResponse is the fused result of a search: the merged, filtered and
// sorted torrents plus any per-provider failures. A response with only errors
// is still a success.
type SearchResponse struct {
	Torrents []Torrent       `json:"torrents"`
	Errors   []ProviderError `json:"errors"`
}

// ActiveTorrent pairs a download client torrent with the metadata of the
// movie it was tracked for.
type ActiveTorrent struct {
	Hash     string  `json:"hash"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Progress float64 `json:"progress"`
	ETA      int64   `json:"eta"`
	SavePath string  `json:"savePath"`
	TmdbID   uint64  `json:"tmdbId,omitempty"`
}

// SearchFilter describes one filterable dimension and its legal values, for
// the public searchFilters query.
type SearchFilter struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}
