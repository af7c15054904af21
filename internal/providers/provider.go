// Package providers implements the per-indexer search adapters and the
// concurrent fan-out across them.
package providers

import (
	"net/http"
	"sync"

	"github.com/magnetarr/magnetarr/internal/models"
	"github.com/magnetarr/magnetarr/pkg/logger"
)

// TorrentProvider is implemented by every indexer adapter. Adapters are
// stateless beyond their HTTP client; failures are returned, never fatal.
type TorrentProvider interface {
	// Provider returns the adapter's identifier.
	Provider() models.Provider
	// Search runs a free-text search.
	Search(options models.SearchOptions) ([]models.Torrent, error)
	// SearchMovie runs an imdb-seeded movie search.
	SearchMovie(options models.MovieOptions) ([]models.Torrent, error)
}

// Registry holds the constant provider set and fans searches out over it.
type Registry struct {
	providers []TorrentProvider
	logger    logger.Logger
}

// NewRegistry builds the full adapter set sharing one HTTP client.
func NewRegistry(httpClient *http.Client, log logger.Logger) *Registry {
	return &Registry{
		providers: []TorrentProvider{
			NewPirateBay(httpClient, log),
			NewX1337(httpClient, log),
			NewYts(httpClient, log),
			NewBitSearch(httpClient, log),
		},
		logger: log,
	}
}

// Providers returns the registered adapters.
func (r *Registry) Providers() []TorrentProvider {
	return r.providers
}

// SearchAll runs a free-text search on every selected provider concurrently.
// The result always has one entry per selected provider; individual failures
// are carried in the entry, never propagated.
func (r *Registry) SearchAll(options models.SearchOptions, only []models.Provider) []models.ProviderResponse {
	return r.fanOut(only, func(p TorrentProvider) ([]models.Torrent, error) {
		return p.Search(options)
	})
}

// SearchMovieAll runs an imdb-seeded search on every selected provider
// concurrently, with the same totality guarantee as SearchAll.
func (r *Registry) SearchMovieAll(options models.MovieOptions, only []models.Provider) []models.ProviderResponse {
	return r.fanOut(only, func(p TorrentProvider) ([]models.Torrent, error) {
		return p.SearchMovie(options)
	})
}

// fanOut spawns one goroutine per selected provider and joins them all. An
// empty selection means every provider.
func (r *Registry) fanOut(only []models.Provider, search func(TorrentProvider) ([]models.Torrent, error)) []models.ProviderResponse {
	selected := r.selectProviders(only)
	responses := make([]models.ProviderResponse, len(selected))

	var wg sync.WaitGroup
	for i, provider := range selected {
		wg.Add(1)
		go func(i int, p TorrentProvider) {
			defer wg.Done()

			torrents, err := search(p)
			if err != nil {
				r.logger.Warnf("[providers] %s search failed: %v", p.Provider(), err)
			}
			responses[i] = models.ProviderResponse{
				Provider: p.Provider(),
				Torrents: torrents,
				Err:      err,
			}
		}(i, provider)
	}
	wg.Wait()

	return responses
}

func (r *Registry) selectProviders(only []models.Provider) []TorrentProvider {
	if len(only) == 0 {
		return r.providers
	}

	wanted := make(map[models.Provider]struct{}, len(only))
	for _, p := range only {
		wanted[p] = struct{}{}
	}

	var selected []TorrentProvider
	for _, p := range r.providers {
		if _, ok := wanted[p.Provider()]; ok {
			selected = append(selected, p)
		}
	}
	return selected
}
