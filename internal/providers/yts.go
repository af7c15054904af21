package providers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/magnetarr/magnetarr/internal/models"
	"github.com/magnetarr/magnetarr/pkg/logger"
	"github.com/magnetarr/magnetarr/pkg/magnet"
)

const (
	ytsAPIBase             = "https://yts.mx/api/v2"
	ytsListEndpoint        = "/list_movies.json"
	ytsMovieDetailEndpoint = "/movie_details.json"
)

var ytsTrackers = []string{
	"udp://open.demonii.com:1337/announce",
	"udp://tracker.openbittorrent.com:80",
	"udp://tracker.coppersurfer.tk:6969",
	"udp://glotorrents.pw:6969/announce",
	"udp://tracker.opentrackr.org:1337/announce",
	"udp://torrent.gresille.org:80/announce",
	"udp://p4p.arenabg.com:1337",
	"udp://tracker.leechers-paradise.org:6969",
}

// YTS only indexes movies, so any sort the API cannot express is left to the
// fuser downstream.
var ytsSortColumns = map[models.SortColumn]string{
	models.SortAdded:    "date_added",
	models.SortLeechers: "peers",
	models.SortSeeders:  "seeds",
	models.SortSize:     "",
}

// Yts searches the yts.mx JSON API. One movie fans out into one Torrent per
// published quality.
type Yts struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
}

type ytsResponse struct {
	Status string  `json:"status"`
	Data   ytsData `json:"data"`
}

type ytsData struct {
	MovieCount int        `json:"movie_count"`
	Movies     []ytsMovie `json:"movies"`
	Movie      *ytsMovie  `json:"movie"`
}

type ytsMovie struct {
	ID        int          `json:"id"`
	ImdbCode  string       `json:"imdb_code"`
	TitleLong string       `json:"title_long"`
	Torrents  []ytsTorrent `json:"torrents"`
}

type ytsTorrent struct {
	Hash             string `json:"hash"`
	Quality          string `json:"quality"`
	Type             string `json:"type"`
	VideoCodec       string `json:"video_codec"`
	Seeds            int    `json:"seeds"`
	Peers            int    `json:"peers"`
	SizeBytes        uint64 `json:"size_bytes"`
	DateUploadedUnix int64  `json:"date_uploaded_unix"`
}

func NewYts(httpClient *http.Client, log logger.Logger) *Yts {
	return &Yts{
		baseURL:    ytsAPIBase,
		httpClient: httpClient,
		logger:     log,
	}
}

func (y *Yts) Provider() models.Provider {
	return models.ProviderYts
}

// Search lists movies matching the query. Categories other than All and
// Video short-circuit to no results without an HTTP call.
func (y *Yts) Search(options models.SearchOptions) ([]models.Torrent, error) {
	if options.Category != models.CategoryAll && options.Category != models.CategoryVideo {
		return nil, nil
	}

	params := url.Values{}
	params.Set("query_term", options.Query)
	if sort := ytsSortColumns[options.Sort]; sort != "" {
		params.Set("sort_by", sort)
	}
	if options.Order == models.OrderAscending {
		params.Set("order_by", "asc")
	} else {
		params.Set("order_by", "desc")
	}

	resp, err := y.fetch(ytsListEndpoint, params)
	if err != nil {
		return nil, err
	}

	var torrents []models.Torrent
	for _, movie := range resp.Data.Movies {
		torrents = append(torrents, movie.toTorrents()...)
	}
	return torrents, nil
}

// SearchMovie resolves a single movie by imdb id via the details endpoint.
func (y *Yts) SearchMovie(options models.MovieOptions) ([]models.Torrent, error) {
	params := url.Values{}
	params.Set("imdb_id", options.ImdbID)

	resp, err := y.fetch(ytsMovieDetailEndpoint, params)
	if err != nil {
		return nil, err
	}
	if resp.Data.Movie == nil || resp.Data.Movie.ID == 0 {
		return nil, nil
	}
	return resp.Data.Movie.toTorrents(), nil
}

func (y *Yts) fetch(endpoint string, params url.Values) (*ytsResponse, error) {
	apiURL := fmt.Sprintf("%s%s?%s", y.baseURL, endpoint, params.Encode())
	y.logger.Debugf("[yts] searching: %s", apiURL)

	resp, err := y.httpClient.Get(apiURL)
	if err != nil {
		return nil, fmt.Errorf("failed to query yts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yts error: status %d", resp.StatusCode)
	}

	var decoded ytsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode yts response: %w", err)
	}
	return &decoded, nil
}

// toTorrents converts every published quality of a movie into its own
// Torrent with a synthetic release name.
func (m ytsMovie) toTorrents() []models.Torrent {
	torrents := make([]models.Torrent, 0, len(m.Torrents))
	for _, t := range m.Torrents {
		if t.Hash == "" {
			continue
		}

		name := fmt.Sprintf("%s [%s] [%s] %s", m.TitleLong, t.Quality, t.Type, t.VideoCodec)
		hash := strings.ToLower(t.Hash)
		props := models.ParseMovieProperties(name)
		if m.ImdbCode != "" {
			props.Imdb = m.ImdbCode
		}

		torrents = append(torrents, models.Torrent{
			Added:           time.Unix(t.DateUploadedUnix, 0).UTC(),
			Category:        string(models.CategoryVideo),
			FileCount:       1,
			ID:              fmt.Sprintf("%d", m.ID),
			InfoHash:        hash,
			Leechers:        t.Peers,
			Seeders:         t.Seeds,
			Name:            name,
			Size:            t.SizeBytes,
			Magnet:          magnet.New(hash, name, ytsTrackers).String(),
			Providers:       []models.Provider{models.ProviderYts},
			MovieProperties: &props,
		})
	}
	return torrents
}
