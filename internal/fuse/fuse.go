// Package fuse merges per-provider search results into one deterministic,
// filtered, sorted list keyed by info-hash.
package fuse

import (
	"sort"

	"github.com/magnetarr/magnetarr/internal/models"
	"github.com/magnetarr/magnetarr/pkg/nameparse"
)

// Filters narrows and orders a fused result set. Empty attribute lists mean
// no filtering on that dimension; a non-positive Limit means unlimited.
type Filters struct {
	Sources   []nameparse.Source
	Codecs    []nameparse.Codec
	Qualities []nameparse.Quality
	Sort      models.SortColumn
	Order     models.Order
	Limit     int
}

// Fuse merges the fan-out responses by info-hash, applies the attribute
// filters, sorts, truncates, and collects per-provider failures. The call
// always succeeds; a batch where every provider failed fuses to an empty
// torrent list and a full error list.
func Fuse(responses []models.ProviderResponse, filters Filters) models.SearchResponse {
	merged := mergeByHash(responses)

	torrents := make([]models.Torrent, 0, len(merged))
	for _, t := range merged {
		if matchesFilters(t, filters) {
			torrents = append(torrents, *t)
		}
	}

	sortTorrents(torrents, filters.Sort, filters.Order)

	if filters.Limit > 0 && len(torrents) > filters.Limit {
		torrents = torrents[:filters.Limit]
	}

	return models.SearchResponse{
		Torrents: torrents,
		Errors:   collectErrors(responses),
	}
}

func mergeByHash(responses []models.ProviderResponse) map[string]*models.Torrent {
	merged := make(map[string]*models.Torrent)
	for _, response := range responses {
		if response.Err != nil {
			continue
		}
		for i := range response.Torrents {
			incoming := response.Torrents[i]
			if existing, ok := merged[incoming.InfoHash]; ok {
				existing.Merge(&incoming)
			} else {
				merged[incoming.InfoHash] = &incoming
			}
		}
	}
	return merged
}

// matchesFilters drops torrents with no inferred movie properties, then
// requires membership in every non-empty attribute list.
func matchesFilters(t *models.Torrent, filters Filters) bool {
	if t.MovieProperties == nil {
		return false
	}
	if len(filters.Sources) > 0 && !contains(filters.Sources, t.MovieProperties.Source) {
		return false
	}
	if len(filters.Codecs) > 0 && !contains(filters.Codecs, t.MovieProperties.Codec) {
		return false
	}
	if len(filters.Qualities) > 0 && !contains(filters.Qualities, t.MovieProperties.Quality) {
		return false
	}
	return true
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// sortTorrents orders ascending by the selected column with the info-hash as
// deterministic tie-break, then reverses for Descending.
func sortTorrents(torrents []models.Torrent, column models.SortColumn, order models.Order) {
	sort.SliceStable(torrents, func(i, j int) bool {
		a, b := &torrents[i], &torrents[j]

		var less, equal bool
		switch column {
		case models.SortAdded:
			less, equal = a.Added.Before(b.Added), a.Added.Equal(b.Added)
		case models.SortSize:
			less, equal = a.Size < b.Size, a.Size == b.Size
		case models.SortLeechers:
			less, equal = a.Leechers < b.Leechers, a.Leechers == b.Leechers
		default:
			less, equal = a.Seeders < b.Seeders, a.Seeders == b.Seeders
		}
		if equal {
			return a.InfoHash < b.InfoHash
		}
		return less
	})

	if order == models.OrderDescending {
		for i, j := 0, len(torrents)-1; i < j; i, j = i+1, j-1 {
			torrents[i], torrents[j] = torrents[j], torrents[i]
		}
	}
}

func collectErrors(responses []models.ProviderResponse) []models.ProviderError {
	var errs []models.ProviderError
	for _, response := range responses {
		if response.Err == nil {
			continue
		}
		errs = append(errs, models.ProviderError{
			Provider: response.Provider,
			Error:    response.Err.Error(),
		})
	}
	return errs
}
