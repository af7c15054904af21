package search

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/magnetarr/magnetarr/internal/errors"
	"github.com/magnetarr/magnetarr/internal/models"
	"github.com/magnetarr/magnetarr/pkg/logger"
)

type stubSearcher struct {
	searchOptions *models.SearchOptions
	movieOptions  *models.MovieOptions
	responses     []models.ProviderResponse
}

func (s *stubSearcher) SearchAll(options models.SearchOptions, _ []models.Provider) []models.ProviderResponse {
	s.searchOptions = &options
	return s.responses
}

func (s *stubSearcher) SearchMovieAll(options models.MovieOptions, _ []models.Provider) []models.ProviderResponse {
	s.movieOptions = &options
	return s.responses
}

type stubResolver struct {
	movie *models.MovieInfo
	err   error
}

func (s *stubResolver) FromImdb(string) (*models.MovieInfo, error) {
	return s.movie, s.err
}

func newOrchestrator(searcher *stubSearcher, resolver *stubResolver) *Orchestrator {
	return New(searcher, resolver, logger.NewWithLevel(logger.LevelError))
}

func TestSearchRequiresExactlyOneMode(t *testing.T) {
	o := newOrchestrator(&stubSearcher{}, &stubResolver{})

	_, err := o.Search(Params{})
	assert.True(t, apperrors.IsKind(err, apperrors.KindMissingQuery))

	_, err = o.Search(Params{Query: "matrix", ImdbID: "tt0133093"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidParam))
}

func TestSearchFreeTextMode(t *testing.T) {
	props := models.ParseMovieProperties("The.Matrix.1999.1080p.BluRay.x264")
	searcher := &stubSearcher{responses: []models.ProviderResponse{{
		Provider: models.ProviderPirateBay,
		Torrents: []models.Torrent{{
			InfoHash:        "aaaa",
			Name:            "The.Matrix.1999.1080p.BluRay.x264",
			Seeders:         10,
			MovieProperties: &props,
		}},
	}}}
	o := newOrchestrator(searcher, &stubResolver{})

	response, err := o.Search(Params{
		Query:    "matrix",
		Category: models.CategoryVideo,
		Sort:     models.SortSeeders,
		Order:    models.OrderDescending,
	})
	require.NoError(t, err)
	assert.Len(t, response.Torrents, 1)

	require.NotNil(t, searcher.searchOptions)
	assert.Equal(t, "matrix", searcher.searchOptions.Query)
	assert.Equal(t, models.CategoryVideo, searcher.searchOptions.Category)
	assert.Nil(t, searcher.movieOptions)
}

// An imdb-seeded search resolves the movie first so title-based adapters get
// the "Title (Year)" form.
func TestSearchImdbModeSeedsFormattedTitle(t *testing.T) {
	searcher := &stubSearcher{}
	resolver := &stubResolver{movie: &models.MovieInfo{
		TmdbID: 603,
		ImdbID: "tt0133093",
		Title:  "The Matrix",
		Year:   1999,
	}}
	o := newOrchestrator(searcher, resolver)

	_, err := o.Search(Params{ImdbID: "tt0133093"})
	require.NoError(t, err)

	require.NotNil(t, searcher.movieOptions)
	assert.Equal(t, "tt0133093", searcher.movieOptions.ImdbID)
	assert.Equal(t, "The Matrix (1999)", searcher.movieOptions.Name)
	assert.Nil(t, searcher.searchOptions)
}

func TestSearchUnknownImdb(t *testing.T) {
	o := newOrchestrator(&stubSearcher{}, &stubResolver{movie: nil})

	_, err := o.Search(Params{ImdbID: "tt9999999"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindImdbNotFound))
}

func TestSearchResolverFailurePropagates(t *testing.T) {
	o := newOrchestrator(&stubSearcher{}, &stubResolver{err: errors.New("metadata down")})

	_, err := o.Search(Params{ImdbID: "tt0133093"})
	assert.EqualError(t, err, "metadata down")
}

func TestFiltersEnumerateDimensions(t *testing.T) {
	filters := Filters()
	require.Len(t, filters, 3)

	byName := make(map[string][]string, len(filters))
	for _, f := range filters {
		byName[f.Name] = f.Values
	}
	assert.Contains(t, byName["source"], "BluRay")
	assert.Contains(t, byName["codec"], "x265")
	assert.Contains(t, byName["quality"], "1080p")
	assert.NotContains(t, byName["quality"], "Unknown")
}
