package handlers

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/magnetarr/magnetarr/internal/errors"
	"github.com/magnetarr/magnetarr/internal/models"
	"github.com/magnetarr/magnetarr/internal/search"
	"github.com/magnetarr/magnetarr/pkg/magnet"
	"github.com/magnetarr/magnetarr/pkg/nameparse"
)

func (h *Handler) resolveSearchTorrents(p graphql.ResolveParams) (interface{}, error) {
	params, err := searchParamsFromArgs(p.Args)
	if err != nil {
		return nil, err
	}
	return h.search.Search(*params)
}

// resolveActiveTorrents lists the download client's torrents in our category
// alongside metadata for any whose names carry a TMDB hint.
func (h *Handler) resolveActiveTorrents(p graphql.ResolveParams) (interface{}, error) {
	snapshot, err := h.torrents.Sync()
	if err != nil {
		return nil, err
	}

	category := h.options.Category
	if override, ok := p.Args["category"].(string); ok && override != "" {
		category = override
	}
	active := snapshot.ActiveTorrents(category)

	var tmdbIDs []uint64
	for _, torrent := range active {
		if id := nameparse.ExtractTmdb(torrent.Name); id != 0 {
			tmdbIDs = append(tmdbIDs, id)
		}
	}

	var movies []models.MovieInfo
	if len(tmdbIDs) > 0 {
		movies, err = h.movies.Bulk(tmdbIDs)
		if err != nil {
			h.logger.Warnf("[handlers] bulk metadata lookup failed: %v", err)
			movies = nil
		}
	}

	return map[string]interface{}{
		"torrents":  active,
		"movieInfo": movies,
	}, nil
}

func (h *Handler) resolveMovieInfo(p graphql.ResolveParams) (interface{}, error) {
	tmdbID, ok := p.Args["tmdb"].(uint64)
	if !ok {
		return nil, errors.NewInvalidParam("tmdb")
	}
	return h.movies.FromTmdb(tmdbID)
}

func (h *Handler) resolveSearchMovies(p graphql.ResolveParams) (interface{}, error) {
	query, _ := p.Args["query"].(string)
	return h.movies.Search(query)
}

func (h *Handler) resolvePopularMovies(graphql.ResolveParams) (interface{}, error) {
	return h.movies.Popular(h.options.MovieFilters)
}

func (h *Handler) resolveTrendingMovies(graphql.ResolveParams) (interface{}, error) {
	return h.movies.Trending(h.options.MovieFilters)
}

func (h *Handler) resolveTmdbBulk(p graphql.ResolveParams) (interface{}, error) {
	rawIDs, ok := p.Args["ids"].([]interface{})
	if !ok {
		return nil, errors.NewInvalidParam("ids")
	}

	ids := make([]uint64, 0, len(rawIDs))
	for _, raw := range rawIDs {
		id, ok := raw.(uint64)
		if !ok {
			return nil, errors.NewInvalidParam("ids")
		}
		ids = append(ids, id)
	}
	return h.movies.Bulk(ids)
}

func (h *Handler) resolveSearchFilters(graphql.ResolveParams) (interface{}, error) {
	return search.Filters(), nil
}

func (h *Handler) resolveAddTorrents(p graphql.ResolveParams) (interface{}, error) {
	urls, err := stringList(p.Args["urls"], "urls")
	if err != nil {
		return nil, err
	}
	for _, u := range urls {
		if _, err := magnet.Parse(u); err != nil {
			return nil, errors.NewInvalidMagnet(u, err)
		}
	}

	category := h.options.Category
	if override, ok := p.Args["category"].(string); ok && override != "" {
		category = override
	}
	if err := h.torrents.EnsureCategory(category, h.options.DownloadPath); err != nil {
		return nil, err
	}
	if err := h.torrents.AddTorrents(urls, map[string]string{"category": category}); err != nil {
		return nil, err
	}
	return true, nil
}

func (h *Handler) resolveDeleteTorrents(p graphql.ResolveParams) (interface{}, error) {
	hashes, err := stringList(p.Args["hashes"], "hashes")
	if err != nil {
		return nil, err
	}
	deleteFiles, _ := p.Args["deleteFiles"].(bool)

	if err := h.torrents.DeleteTorrents(hashes, deleteFiles); err != nil {
		return nil, err
	}
	return true, nil
}

// resolveTrackMovie adds a torrent renamed with its TMDB id so the importer
// can resolve the library title later, then wakes the tracking loop.
func (h *Handler) resolveTrackMovie(p graphql.ResolveParams) (interface{}, error) {
	rawURL, _ := p.Args["url"].(string)
	tmdbID, ok := p.Args["tmdb"].(uint64)
	if !ok {
		return nil, errors.NewInvalidParam("tmdb")
	}

	if _, err := magnet.Parse(rawURL); err != nil {
		return nil, errors.NewInvalidMagnet(rawURL, err)
	}

	movie, err := h.movies.FromTmdb(tmdbID)
	if err != nil {
		return nil, err
	}

	if err := h.torrents.EnsureCategory(h.options.Category, h.options.DownloadPath); err != nil {
		return nil, err
	}

	options := map[string]string{"category": h.options.Category}
	if movie != nil && movie.Title != "" {
		options["rename"] = fmt.Sprintf("%s (%d)", movie.Title, tmdbID)
	}
	if err := h.torrents.AddTorrents([]string{rawURL}, options); err != nil {
		return nil, err
	}

	h.tracking.Enable()
	return true, nil
}

func searchParamsFromArgs(args map[string]interface{}) (*search.Params, error) {
	params := &search.Params{}
	params.Query, _ = args["query"].(string)
	params.ImdbID, _ = args["imdb"].(string)
	if limit, ok := args["limit"].(int); ok {
		params.Limit = limit
	}

	var err error
	rawCategory, _ := args["category"].(string)
	if params.Category, err = models.ParseCategory(rawCategory); err != nil {
		return nil, err
	}
	rawSort, _ := args["sort"].(string)
	if params.Sort, err = models.ParseSortColumn(rawSort); err != nil {
		return nil, err
	}
	rawOrder, _ := args["order"].(string)
	if params.Order, err = models.ParseOrder(rawOrder); err != nil {
		return nil, err
	}

	providers, err := stringListOptional(args["providers"], "providers")
	if err != nil {
		return nil, err
	}
	for _, name := range providers {
		provider, ok := models.ParseProvider(name)
		if !ok {
			return nil, errors.NewInvalidParam("providers")
		}
		params.Providers = append(params.Providers, provider)
	}

	sources, err := stringListOptional(args["sources"], "sources")
	if err != nil {
		return nil, err
	}
	for _, name := range sources {
		source, ok := nameparse.ParseSourceValue(name)
		if !ok {
			return nil, errors.NewInvalidParam("sources")
		}
		params.Sources = append(params.Sources, source)
	}

	codecs, err := stringListOptional(args["codecs"], "codecs")
	if err != nil {
		return nil, err
	}
	for _, name := range codecs {
		codec, ok := nameparse.ParseCodecValue(name)
		if !ok {
			return nil, errors.NewInvalidParam("codecs")
		}
		params.Codecs = append(params.Codecs, codec)
	}

	qualities, err := stringListOptional(args["qualities"], "qualities")
	if err != nil {
		return nil, err
	}
	for _, name := range qualities {
		quality, ok := nameparse.ParseQualityValue(name)
		if !ok {
			return nil, errors.NewInvalidParam("qualities")
		}
		params.Qualities = append(params.Qualities, quality)
	}

	return params, nil
}

func stringList(raw interface{}, field string) ([]string, error) {
	values, err := stringListOptional(raw, field)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errors.NewInvalidParam(field)
	}
	return values, nil
}

func stringListOptional(raw interface{}, field string) ([]string, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, errors.NewInvalidParam(field)
	}

	values := make([]string, 0, len(items))
	for _, item := range items {
		value, ok := item.(string)
		if !ok {
			return nil, errors.NewInvalidParam(field)
		}
		values = append(values, value)
	}
	return values, nil
}
