package providers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/magnetarr/magnetarr/internal/models"
	"github.com/magnetarr/magnetarr/pkg/logger"
	"github.com/magnetarr/magnetarr/pkg/magnet"
)

const (
	piratebayAPIBase        = "https://apibay.org"
	piratebaySearchEndpoint = "/q.php"
)

// Trackers baked into magnets synthesized from apibay records, which carry
// only the info hash.
var piratebayTrackers = []string{
	"udp://tracker.opentrackr.org:1337",
	"udp://open.stealth.si:80/announce",
	"udp://tracker.torrent.eu.org:451/announce",
	"udp://tracker.bittor.pw:1337/announce",
	"udp://public.popcorn-tracker.org:6969/announce",
	"udp://tracker.dler.org:6969/announce",
	"udp://exodus.desync.com:6969",
	"udp://open.demonii.com:1337/announce",
}

var piratebayCategories = map[models.Category]string{
	models.CategoryAll:          "",
	models.CategoryApplications: "300",
	models.CategoryAudio:        "100",
	models.CategoryVideo:        "200",
	models.CategoryGames:        "400",
	models.CategoryOther:        "600",
}

// PirateBay searches the apibay JSON endpoint.
type PirateBay struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
}

type piratebayTorrent struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	InfoHash string `json:"info_hash"`
	Leechers string `json:"leechers"`
	Seeders  string `json:"seeders"`
	NumFiles string `json:"num_files"`
	Size     string `json:"size"`
	Category string `json:"category"`
	Added    string `json:"added"`
	Imdb     string `json:"imdb"`
}

func NewPirateBay(httpClient *http.Client, log logger.Logger) *PirateBay {
	return &PirateBay{
		baseURL:    piratebayAPIBase,
		httpClient: httpClient,
		logger:     log,
	}
}

func (p *PirateBay) Provider() models.Provider {
	return models.ProviderPirateBay
}

func (p *PirateBay) Search(options models.SearchOptions) ([]models.Torrent, error) {
	return p.search(options.Query, piratebayCategories[options.Category])
}

// SearchMovie queries by imdb id and keeps only records whose own imdb id
// matches the requested one.
func (p *PirateBay) SearchMovie(options models.MovieOptions) ([]models.Torrent, error) {
	torrents, err := p.search(options.ImdbID, piratebayCategories[models.CategoryVideo])
	if err != nil {
		return nil, err
	}

	matching := torrents[:0]
	for _, t := range torrents {
		if t.MovieProperties != nil && t.MovieProperties.Imdb == options.ImdbID {
			matching = append(matching, t)
		}
	}
	return matching, nil
}

func (p *PirateBay) search(query, category string) ([]models.Torrent, error) {
	apiURL := fmt.Sprintf("%s%s?q=%s&cat=%s",
		p.baseURL, piratebaySearchEndpoint, url.QueryEscape(query), category)

	p.logger.Debugf("[piratebay] searching: %s", apiURL)

	resp, err := p.httpClient.Get(apiURL)
	if err != nil {
		return nil, fmt.Errorf("failed to query apibay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("apibay error: status %d", resp.StatusCode)
	}

	var records []piratebayTorrent
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode apibay response: %w", err)
	}

	if isPiratebayEmptyResponse(records) {
		return nil, nil
	}

	torrents := make([]models.Torrent, 0, len(records))
	for _, record := range records {
		torrent, ok := record.toTorrent()
		if !ok {
			continue
		}
		torrents = append(torrents, torrent)
	}
	return torrents, nil
}

// apibay answers a query without hits with a single placeholder record
// instead of an empty array.
func isPiratebayEmptyResponse(records []piratebayTorrent) bool {
	if len(records) != 1 {
		return false
	}
	r := records[0]
	return r.ID == "0" && r.Size == "0" && r.Category == "0" && r.NumFiles == "0" && r.Added == "0"
}

func (r piratebayTorrent) toTorrent() (models.Torrent, bool) {
	if r.InfoHash == "" {
		return models.Torrent{}, false
	}

	hash := strings.ToLower(r.InfoHash)
	props := models.ParseMovieProperties(r.Name)
	if r.Imdb != "" && r.Imdb != "null" {
		props.Imdb = r.Imdb
	}

	return models.Torrent{
		Added:           time.Unix(parseInt64(r.Added), 0).UTC(),
		Category:        r.Category,
		FileCount:       int(parseInt64(r.NumFiles)),
		ID:              r.ID,
		InfoHash:        hash,
		Leechers:        int(parseInt64(r.Leechers)),
		Seeders:         int(parseInt64(r.Seeders)),
		Name:            r.Name,
		Size:            uint64(parseInt64(r.Size)),
		Magnet:          magnet.New(hash, r.Name, piratebayTrackers).String(),
		Providers:       []models.Provider{models.ProviderPirateBay},
		MovieProperties: &props,
	}, true
}

// parseInt64 converts apibay's numeric strings, mapping anything invalid or
// negative to 0.
func parseInt64(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
