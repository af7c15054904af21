package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"

	"github.com/magnetarr/magnetarr/internal/models"
)

// bigInt carries 64-bit integers as strings on the wire, since GraphQL's Int
// is 32-bit.
var bigInt = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "BigInt",
	Description: "64-bit integer, string-encoded on the wire",
	Serialize: func(value interface{}) interface{} {
		switch v := value.(type) {
		case uint64:
			return strconv.FormatUint(v, 10)
		case int64:
			return strconv.FormatInt(v, 10)
		case int:
			return strconv.Itoa(v)
		default:
			return fmt.Sprintf("%v", v)
		}
	},
	ParseValue: parseBigInt,
	ParseLiteral: func(valueAST ast.Value) interface{} {
		if v, ok := valueAST.(*ast.StringValue); ok {
			return parseBigInt(v.Value)
		}
		if v, ok := valueAST.(*ast.IntValue); ok {
			return parseBigInt(v.Value)
		}
		return nil
	},
})

func parseBigInt(value interface{}) interface{} {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil
	}
	return n
}

var moviePropertiesType = graphql.NewObject(graphql.ObjectConfig{
	Name: "MovieProperties",
	Fields: graphql.Fields{
		"quality": &graphql.Field{Type: graphql.String},
		"codec":   &graphql.Field{Type: graphql.String},
		"source":  &graphql.Field{Type: graphql.String},
		"imdb":    &graphql.Field{Type: graphql.String},
	},
})

var torrentType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Torrent",
	Fields: graphql.Fields{
		"added": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(models.Torrent).Added.Format(time.RFC3339), nil
			},
		},
		"category":  &graphql.Field{Type: graphql.String},
		"fileCount": &graphql.Field{Type: graphql.Int},
		"id":        &graphql.Field{Type: graphql.String},
		"infoHash":  &graphql.Field{Type: graphql.String},
		"leechers":  &graphql.Field{Type: graphql.Int},
		"seeders":   &graphql.Field{Type: graphql.Int},
		"name":      &graphql.Field{Type: graphql.String},
		"size": &graphql.Field{
			Type: bigInt,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(models.Torrent).Size, nil
			},
		},
		"magnet":          &graphql.Field{Type: graphql.String},
		"providers":       &graphql.Field{Type: graphql.NewList(graphql.String)},
		"movieProperties": &graphql.Field{Type: moviePropertiesType},
	},
})

var providerErrorType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ProviderError",
	Fields: graphql.Fields{
		"provider": &graphql.Field{Type: graphql.String},
		"error":    &graphql.Field{Type: graphql.String},
	},
})

var searchResponseType = graphql.NewObject(graphql.ObjectConfig{
	Name: "SearchResponse",
	Fields: graphql.Fields{
		"torrents": &graphql.Field{Type: graphql.NewList(torrentType)},
		"errors":   &graphql.Field{Type: graphql.NewList(providerErrorType)},
	},
})

var activeTorrentType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ActiveTorrent",
	Fields: graphql.Fields{
		"hash":     &graphql.Field{Type: graphql.String},
		"name":     &graphql.Field{Type: graphql.String},
		"category": &graphql.Field{Type: graphql.String},
		"progress": &graphql.Field{Type: graphql.Float},
		"eta": &graphql.Field{
			Type: bigInt,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(models.ActiveTorrent).ETA, nil
			},
		},
		"savePath": &graphql.Field{Type: graphql.String},
	},
})

var movieInfoType = graphql.NewObject(graphql.ObjectConfig{
	Name: "MovieInfo",
	Fields: graphql.Fields{
		"tmdbId": &graphql.Field{
			Type: bigInt,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return movieInfoSource(p).TmdbID, nil
			},
		},
		"imdbId":   &graphql.Field{Type: graphql.String},
		"title":    &graphql.Field{Type: graphql.String},
		"year":     &graphql.Field{Type: graphql.Int},
		"runtime":  &graphql.Field{Type: graphql.Int},
		"overview": &graphql.Field{Type: graphql.String},
		"genres":   &graphql.Field{Type: graphql.NewList(graphql.String)},
	},
})

func movieInfoSource(p graphql.ResolveParams) models.MovieInfo {
	if m, ok := p.Source.(*models.MovieInfo); ok {
		return *m
	}
	return p.Source.(models.MovieInfo)
}

var activeTorrentsResponseType = graphql.NewObject(graphql.ObjectConfig{
	Name: "ActiveTorrentsResponse",
	Fields: graphql.Fields{
		"torrents":  &graphql.Field{Type: graphql.NewList(activeTorrentType)},
		"movieInfo": &graphql.Field{Type: graphql.NewList(movieInfoType)},
	},
})

var searchFilterType = graphql.NewObject(graphql.ObjectConfig{
	Name: "SearchFilter",
	Fields: graphql.Fields{
		"name":   &graphql.Field{Type: graphql.String},
		"values": &graphql.Field{Type: graphql.NewList(graphql.String)},
	},
})

// buildSchema wires the public queries and mutations to the handler's
// services.
func (h *Handler) buildSchema() (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"searchTorrents": &graphql.Field{
				Type: searchResponseType,
				Args: graphql.FieldConfigArgument{
					"query":     &graphql.ArgumentConfig{Type: graphql.String},
					"imdb":      &graphql.ArgumentConfig{Type: graphql.String},
					"category":  &graphql.ArgumentConfig{Type: graphql.String},
					"sort":      &graphql.ArgumentConfig{Type: graphql.String},
					"order":     &graphql.ArgumentConfig{Type: graphql.String},
					"providers": &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
					"sources":   &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
					"codecs":    &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
					"qualities": &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
					"limit":     &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: h.resolveSearchTorrents,
			},
			"activeTorrents": &graphql.Field{
				Type: activeTorrentsResponseType,
				Args: graphql.FieldConfigArgument{
					"category": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: h.resolveActiveTorrents,
			},
			"movieInfo": &graphql.Field{
				Type: movieInfoType,
				Args: graphql.FieldConfigArgument{
					"tmdb": &graphql.ArgumentConfig{Type: graphql.NewNonNull(bigInt)},
				},
				Resolve: h.resolveMovieInfo,
			},
			"searchMovies": &graphql.Field{
				Type: graphql.NewList(movieInfoType),
				Args: graphql.FieldConfigArgument{
					"query": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: h.resolveSearchMovies,
			},
			"popularMovies": &graphql.Field{
				Type:    graphql.NewList(movieInfoType),
				Resolve: h.resolvePopularMovies,
			},
			"trendingMovies": &graphql.Field{
				Type:    graphql.NewList(movieInfoType),
				Resolve: h.resolveTrendingMovies,
			},
			"tmdbBulk": &graphql.Field{
				Type: graphql.NewList(movieInfoType),
				Args: graphql.FieldConfigArgument{
					"ids": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(bigInt))},
				},
				Resolve: h.resolveTmdbBulk,
			},
			"searchFilters": &graphql.Field{
				Type:    graphql.NewList(searchFilterType),
				Resolve: h.resolveSearchFilters,
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"addTorrents": &graphql.Field{
				Type: graphql.Boolean,
				Args: graphql.FieldConfigArgument{
					"urls":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.String))},
					"category": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: h.resolveAddTorrents,
			},
			"deleteTorrents": &graphql.Field{
				Type: graphql.Boolean,
				Args: graphql.FieldConfigArgument{
					"hashes":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.String))},
					"deleteFiles": &graphql.ArgumentConfig{Type: graphql.Boolean},
				},
				Resolve: h.resolveDeleteTorrents,
			},
			"trackMovie": &graphql.Field{
				Type: graphql.Boolean,
				Args: graphql.FieldConfigArgument{
					"url":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"tmdb": &graphql.ArgumentConfig{Type: graphql.NewNonNull(bigInt)},
				},
				Resolve: h.resolveTrackMovie,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    query,
		Mutation: mutation,
	})
}
