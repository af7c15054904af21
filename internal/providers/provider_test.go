package providers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magnetarr/magnetarr/internal/models"
	"github.com/magnetarr/magnetarr/pkg/logger"
)

type stubProvider struct {
	id       models.Provider
	torrents []models.Torrent
	err      error
}

func (s *stubProvider) Provider() models.Provider { return s.id }

func (s *stubProvider) Search(models.SearchOptions) ([]models.Torrent, error) {
	return s.torrents, s.err
}

func (s *stubProvider) SearchMovie(models.MovieOptions) ([]models.Torrent, error) {
	return s.torrents, s.err
}

func newStubRegistry(providers ...TorrentProvider) *Registry {
	return &Registry{
		providers: providers,
		logger:    logger.NewWithLevel(logger.LevelError),
	}
}

// A provider failure lands in its own response entry; the other providers'
// results are unaffected and every selected provider is accounted for.
func TestSearchAllIsolatesProviderFailures(t *testing.T) {
	good := &stubProvider{
		id:       models.ProviderPirateBay,
		torrents: []models.Torrent{{InfoHash: "aaaa", Name: "good result"}},
	}
	bad := &stubProvider{
		id:  models.ProviderX1337,
		err: errors.New("connection refused"),
	}

	responses := newStubRegistry(good, bad).SearchAll(models.SearchOptions{Query: "x"}, nil)
	require.Len(t, responses, 2)

	byProvider := make(map[models.Provider]models.ProviderResponse, len(responses))
	for _, r := range responses {
		byProvider[r.Provider] = r
	}

	assert.NoError(t, byProvider[models.ProviderPirateBay].Err)
	assert.Len(t, byProvider[models.ProviderPirateBay].Torrents, 1)

	assert.Error(t, byProvider[models.ProviderX1337].Err)
	assert.Empty(t, byProvider[models.ProviderX1337].Torrents)
}

func TestSearchAllProviderSelection(t *testing.T) {
	registry := newStubRegistry(
		&stubProvider{id: models.ProviderPirateBay},
		&stubProvider{id: models.ProviderYts},
		&stubProvider{id: models.ProviderBitSearch},
	)

	responses := registry.SearchAll(models.SearchOptions{Query: "x"}, []models.Provider{models.ProviderYts})
	require.Len(t, responses, 1)
	assert.Equal(t, models.ProviderYts, responses[0].Provider)
}

func TestSearchMovieAllCoversEveryProvider(t *testing.T) {
	registry := newStubRegistry(
		&stubProvider{id: models.ProviderPirateBay, err: errors.New("down")},
		&stubProvider{id: models.ProviderYts, err: errors.New("down")},
	)

	responses := registry.SearchMovieAll(models.MovieOptions{ImdbID: "tt0133093"}, nil)
	require.Len(t, responses, 2)
	for _, r := range responses {
		assert.Error(t, r.Err)
	}
}

func TestNewRegistryBuildsAllAdapters(t *testing.T) {
	registry := NewRegistry(nil, logger.NewWithLevel(logger.LevelError))

	var ids []models.Provider
	for _, p := range registry.Providers() {
		ids = append(ids, p.Provider())
	}
	assert.ElementsMatch(t, models.AllProviders, ids)
}
