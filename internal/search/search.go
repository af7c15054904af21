// Package search bridges a single client request to the provider fan-out and
// the result fuser, selecting free-text or imdb-seeded mode.
package search

import (
	"github.com/magnetarr/magnetarr/internal/errors"
	"github.com/magnetarr/magnetarr/internal/fuse"
	"github.com/magnetarr/magnetarr/internal/models"
	"github.com/magnetarr/magnetarr/pkg/logger"
	"github.com/magnetarr/magnetarr/pkg/nameparse"
)

// ProviderSearcher is the fan-out surface of the provider registry.
type ProviderSearcher interface {
	SearchAll(options models.SearchOptions, only []models.Provider) []models.ProviderResponse
	SearchMovieAll(options models.MovieOptions, only []models.Provider) []models.ProviderResponse
}

// MovieResolver resolves imdb ids against the metadata service.
type MovieResolver interface {
	FromImdb(imdbID string) (*models.MovieInfo, error)
}

// Params is a validated search request. Exactly one of Query or ImdbID must
// be set.
type Params struct {
	Query     string
	ImdbID    string
	Category  models.Category
	Sort      models.SortColumn
	Order     models.Order
	Providers []models.Provider
	Sources   []nameparse.Source
	Codecs    []nameparse.Codec
	Qualities []nameparse.Quality
	Limit     int
}

// Orchestrator wires the provider registry, the metadata client and the
// fuser together.
type Orchestrator struct {
	providers ProviderSearcher
	movieInfo MovieResolver
	logger    logger.Logger
}

func New(providers ProviderSearcher, movieInfo MovieResolver, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		providers: providers,
		movieInfo: movieInfo,
		logger:    log,
	}
}

// Search runs a full search: dispatch to every selected provider, fuse, and
// return the merged torrents with any per-provider failures.
func (o *Orchestrator) Search(params Params) (*models.SearchResponse, error) {
	responses, err := o.dispatch(params)
	if err != nil {
		return nil, err
	}

	response := fuse.Fuse(responses, fuse.Filters{
		Sources:   params.Sources,
		Codecs:    params.Codecs,
		Qualities: params.Qualities,
		Sort:      params.Sort,
		Order:     params.Order,
		Limit:     params.Limit,
	})
	return &response, nil
}

func (o *Orchestrator) dispatch(params Params) ([]models.ProviderResponse, error) {
	switch {
	case params.Query != "" && params.ImdbID != "":
		return nil, errors.NewInvalidParam("query")
	case params.Query == "" && params.ImdbID == "":
		return nil, errors.NewMissingQuery()
	}

	if params.ImdbID != "" {
		return o.dispatchMovie(params)
	}

	options := models.SearchOptions{
		Query:    params.Query,
		Category: params.Category,
		Sort:     params.Sort,
		Order:    params.Order,
	}
	return o.providers.SearchAll(options, params.Providers), nil
}

// dispatchMovie resolves the imdb id first so adapters that search by title
// can use the "Title (Year)" form.
func (o *Orchestrator) dispatchMovie(params Params) ([]models.ProviderResponse, error) {
	movie, err := o.movieInfo.FromImdb(params.ImdbID)
	if err != nil {
		return nil, err
	}
	if movie == nil {
		return nil, errors.NewImdbNotFound(params.ImdbID)
	}

	options := models.MovieOptions{
		ImdbID: params.ImdbID,
		Name:   movie.FormattedTitle(),
		Sort:   params.Sort,
		Order:  params.Order,
	}
	o.logger.Debugf("[search] imdb %s resolved to %q", params.ImdbID, options.Name)
	return o.providers.SearchMovieAll(options, params.Providers), nil
}

// Filters describes the filterable dimensions and their legal values for the
// public searchFilters query.
func Filters() []models.SearchFilter {
	return []models.SearchFilter{
		{Name: "source", Values: stringValues(nameparse.SourceValues)},
		{Name: "codec", Values: stringValues(nameparse.CodecValues)},
		{Name: "quality", Values: stringValues(nameparse.QualityValues)},
	}
}

func stringValues[T ~string](values []T) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, string(v))
	}
	return out
}
