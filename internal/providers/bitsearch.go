package providers

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dustin/go-humanize"

	"github.com/magnetarr/magnetarr/internal/models"
	"github.com/magnetarr/magnetarr/pkg/logger"
)

const (
	bitsearchBase           = "https://bitsearch.to"
	bitsearchSearchEndpoint = "/search"
)

// Info hashes are only present inside the magnet link on bitsearch result
// pages.
var bitsearchHashPattern = regexp.MustCompile(`urn:btih:([A-F0-9]+)`)

var bitsearchCategories = map[models.Category]string{
	models.CategoryAll:          "",
	models.CategoryApplications: "3",
	models.CategoryAudio:        "7",
	models.CategoryVideo:        "1",
	models.CategoryGames:        "2",
	models.CategoryOther:        "0",
}

var bitsearchSortColumns = map[models.SortColumn]string{
	models.SortSeeders:  "seeders",
	models.SortLeechers: "leechers",
	models.SortSize:     "size",
	models.SortAdded:    "date",
}

// BitSearch scrapes bitsearch.to result pages.
type BitSearch struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
}

func NewBitSearch(httpClient *http.Client, log logger.Logger) *BitSearch {
	return &BitSearch{
		baseURL:    bitsearchBase,
		httpClient: httpClient,
		logger:     log,
	}
}

func (b *BitSearch) Provider() models.Provider {
	return models.ProviderBitSearch
}

func (b *BitSearch) Search(options models.SearchOptions) ([]models.Torrent, error) {
	return b.search(options.Query, options.Category, options.Sort, options.Order, "")
}

// SearchMovie searches by the formatted movie title, falling back to the raw
// imdb id when no title is known.
func (b *BitSearch) SearchMovie(options models.MovieOptions) ([]models.Torrent, error) {
	query := options.Name
	if query == "" {
		query = options.ImdbID
	}
	return b.search(query, models.CategoryVideo, options.Sort, options.Order, options.ImdbID)
}

func (b *BitSearch) search(query string, category models.Category, sort models.SortColumn, order models.Order, imdbID string) ([]models.Torrent, error) {
	params := url.Values{}
	params.Set("q", query)
	if cat := bitsearchCategories[category]; cat != "" {
		params.Set("category", cat)
	}
	if column := bitsearchSortColumns[sort]; column != "" {
		params.Set("sort", column)
	}
	if order == models.OrderAscending {
		params.Set("order", "asc")
	} else {
		params.Set("order", "desc")
	}

	pageURL := fmt.Sprintf("%s%s?%s", b.baseURL, bitsearchSearchEndpoint, params.Encode())
	b.logger.Debugf("[bitsearch] searching: %s", pageURL)

	resp, err := b.httpClient.Get(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to query bitsearch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bitsearch error: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bitsearch page: %w", err)
	}

	var torrents []models.Torrent
	doc.Find("li.search-result").Each(func(_ int, row *goquery.Selection) {
		torrent, ok := b.parseRow(row, imdbID)
		if !ok {
			return
		}
		torrents = append(torrents, torrent)
	})
	return torrents, nil
}

func (b *BitSearch) parseRow(row *goquery.Selection, imdbID string) (models.Torrent, bool) {
	name := strings.TrimSpace(row.Find(".title a").First().Text())
	magnetURI, _ := row.Find("a.dl-magnet").First().Attr("href")

	hashMatch := bitsearchHashPattern.FindStringSubmatch(magnetURI)
	if len(hashMatch) < 2 {
		return models.Torrent{}, false
	}

	stats := row.Find(".stats div")
	size, _ := humanize.ParseBytes(strings.TrimSpace(stats.Eq(1).Text()))
	seeders := parseCompactNumber(stats.Eq(2).Text())
	leechers := parseCompactNumber(stats.Eq(3).Text())
	added := parseBitsearchDate(strings.TrimSpace(stats.Eq(4).Text()))

	props := models.ParseMovieProperties(name)
	if props.Imdb == "" {
		props.Imdb = imdbID
	}

	return models.Torrent{
		Added:           added,
		Category:        strings.TrimSpace(stats.Eq(0).Text()),
		InfoHash:        strings.ToLower(hashMatch[1]),
		Leechers:        leechers,
		Seeders:         seeders,
		Name:            name,
		Size:            size,
		Magnet:          magnetURI,
		Providers:       []models.Provider{models.ProviderBitSearch},
		MovieProperties: &props,
	}, true
}

// parseCompactNumber converts bitsearch's abbreviated counters ("1.2K",
// "3M") to integers. Invalid input maps to 0.
func parseCompactNumber(s string) int {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}

	multiplier := 1.0
	switch s[len(s)-1] {
	case 'K', 'k':
		multiplier = 1e3
		s = s[:len(s)-1]
	case 'M', 'm':
		multiplier = 1e6
		s = s[:len(s)-1]
	case 'B', 'b':
		multiplier = 1e9
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || n < 0 {
		return 0
	}
	return int(n * multiplier)
}

func parseBitsearchDate(s string) time.Time {
	for _, layout := range []string{"Jan 2, 2006", "Jan 2006", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
