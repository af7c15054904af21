// Package handlers exposes the GraphQL API over gin.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/gqlerrors"
	gqlhandler "github.com/graphql-go/handler"

	"github.com/magnetarr/magnetarr/internal/errors"
	"github.com/magnetarr/magnetarr/internal/models"
	"github.com/magnetarr/magnetarr/internal/qbittorrent"
	"github.com/magnetarr/magnetarr/internal/search"
	"github.com/magnetarr/magnetarr/internal/tracker"
	"github.com/magnetarr/magnetarr/pkg/logger"
)

// SearchService runs fused multi-provider searches.
type SearchService interface {
	Search(params search.Params) (*models.SearchResponse, error)
}

// MovieService is the metadata surface the resolvers use.
type MovieService interface {
	FromTmdb(tmdbID uint64) (*models.MovieInfo, error)
	Bulk(tmdbIDs []uint64) ([]models.MovieInfo, error)
	Search(query string) ([]models.MovieInfo, error)
	Trending(filters models.MovieFilters) ([]models.MovieInfo, error)
	Popular(filters models.MovieFilters) ([]models.MovieInfo, error)
}

// TorrentService is the download client surface the resolvers use.
type TorrentService interface {
	AddTorrents(urls []string, options map[string]string) error
	DeleteTorrents(hashes []string, deleteFiles bool) error
	EnsureCategory(name, savePath string) error
	Sync() (*qbittorrent.SyncSnapshot, error)
}

// Options carries the configuration slice the handlers need.
type Options struct {
	// Category is the download category new torrents land in.
	Category string
	// DownloadPath is the category's save path on the download client.
	DownloadPath string
	// MovieFilters post-filter trending/popular metadata lists.
	MovieFilters models.MovieFilters
}

// Handler serves the GraphQL API.
type Handler struct {
	search   SearchService
	movies   MovieService
	torrents TorrentService
	tracking *tracker.State
	options  Options
	logger   logger.Logger
	schema   graphql.Schema
}

// New builds the handler and its schema.
func New(searchService SearchService, movies MovieService, torrents TorrentService,
	tracking *tracker.State, options Options, log logger.Logger) (*Handler, error) {

	h := &Handler{
		search:   searchService,
		movies:   movies,
		torrents: torrents,
		tracking: tracking,
		options:  options,
		logger:   log,
	}

	schema, err := h.buildSchema()
	if err != nil {
		return nil, err
	}
	h.schema = schema
	return h, nil
}

// RegisterRoutes registers the public routes. GET /graphql serves the
// GraphiQL explorer; queries go through our POST handler so HTTP statuses
// reflect the typed errors.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	graphiql := gqlhandler.New(&gqlhandler.Config{
		Schema:   &h.schema,
		Pretty:   true,
		GraphiQL: true,
	})

	r.GET("/", h.handleHome)
	r.GET("/graphql", gin.WrapH(graphiql))
	r.POST("/graphql", h.handleGraphQL)
	r.GET("/healthz", h.handleHealth)
}

func (h *Handler) handleHome(c *gin.Context) {
	c.String(http.StatusOK, "magnetarr is running. POST GraphQL queries to /graphql.")
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type graphqlRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// handleGraphQL executes one GraphQL request. Resolver errors stay in the
// response body per the GraphQL convention, but the HTTP status reflects the
// first typed error so plain HTTP clients see 4xx/5xx semantics.
func (h *Handler) handleGraphQL(c *gin.Context) {
	var req graphqlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		OperationName:  req.OperationName,
		VariableValues: req.Variables,
	})

	c.JSON(h.statusFor(result), result)
}

func (h *Handler) statusFor(result *graphql.Result) int {
	if !result.HasErrors() {
		return http.StatusOK
	}

	for _, formatted := range result.Errors {
		if original := unwrapGraphQLError(formatted.OriginalError()); original != nil {
			return errors.HTTPStatus(original)
		}
	}
	return http.StatusBadRequest
}

// unwrapGraphQLError digs the resolver's error out of graphql-go's wrappers.
func unwrapGraphQLError(err error) error {
	for {
		gqlErr, ok := err.(*gqlerrors.Error)
		if !ok || gqlErr.OriginalError == nil {
			return err
		}
		err = gqlErr.OriginalError
	}
}
