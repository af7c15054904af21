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
	"github.com/magnetarr/magnetarr/pkg/magnet"
)

const x1337Base = "https://1337x.to"

// 1337x date cells carry ordinal day suffixes ("Jan. 17th '19") that must go
// before the cell can be parsed as a timestamp.
var x1337OrdinalPattern = regexp.MustCompile(`(?i)(\d{1,2})(st|nd|rd|th)`)

var x1337SortColumns = map[models.SortColumn]string{
	models.SortSeeders:  "seeders",
	models.SortLeechers: "leechers",
	models.SortSize:     "size",
	models.SortAdded:    "time",
}

// X1337 scrapes 1337x search pages, following each result to its detail page
// for the magnet link.
type X1337 struct {
	baseURL    string
	httpClient *http.Client
	logger     logger.Logger
}

func NewX1337(httpClient *http.Client, log logger.Logger) *X1337 {
	return &X1337{
		baseURL:    x1337Base,
		httpClient: httpClient,
		logger:     log,
	}
}

func (x *X1337) Provider() models.Provider {
	return models.ProviderX1337
}

func (x *X1337) Search(options models.SearchOptions) ([]models.Torrent, error) {
	path := fmt.Sprintf("/sort-search/%s/%s/%s/1/",
		url.PathEscape(options.Query),
		x1337SortColumns[options.Sort],
		x1337Order(options.Order))
	return x.scrape(path, "")
}

// SearchMovie searches the Movies category by formatted title.
func (x *X1337) SearchMovie(options models.MovieOptions) ([]models.Torrent, error) {
	query := options.Name
	if query == "" {
		query = options.ImdbID
	}
	path := fmt.Sprintf("/category-search/%s/Movies/1/", url.PathEscape(query))
	return x.scrape(path, options.ImdbID)
}

func x1337Order(order models.Order) string {
	if order == models.OrderAscending {
		return "asc"
	}
	return "desc"
}

func (x *X1337) scrape(path, imdbID string) ([]models.Torrent, error) {
	doc, err := x.fetchDocument(path)
	if err != nil {
		return nil, err
	}

	var torrents []models.Torrent
	doc.Find("table.table-list tbody tr").Each(func(_ int, row *goquery.Selection) {
		torrent, ok := x.parseRow(row, imdbID)
		if !ok {
			return
		}
		torrents = append(torrents, torrent)
	})
	return torrents, nil
}

func (x *X1337) fetchDocument(path string) (*goquery.Document, error) {
	pageURL := x.baseURL + path
	x.logger.Debugf("[1337x] fetching: %s", pageURL)

	resp, err := x.httpClient.Get(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to query 1337x: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("1337x error: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse 1337x page: %w", err)
	}
	return doc, nil
}

func (x *X1337) parseRow(row *goquery.Selection, imdbID string) (models.Torrent, bool) {
	nameLink := row.Find("td.name a").Eq(1)
	name := strings.TrimSpace(nameLink.Text())
	detailPath, _ := nameLink.Attr("href")

	magnetURI, infoHash, err := x.fetchMagnet(detailPath)
	if err != nil {
		x.logger.Debugf("[1337x] skipping %q: %v", name, err)
		return models.Torrent{}, false
	}

	seeders, _ := strconv.Atoi(strings.TrimSpace(row.Find("td.seeds").Text()))
	leechers, _ := strconv.Atoi(strings.TrimSpace(row.Find("td.leeches").Text()))
	size := parseX1337Size(row.Find("td.size"))
	added := parseX1337Date(row.Find("td.coll-date").Text())

	props := models.ParseMovieProperties(name)
	if props.Imdb == "" {
		props.Imdb = imdbID
	}

	return models.Torrent{
		Added:           added,
		Category:        string(models.CategoryVideo),
		ID:              strings.TrimPrefix(detailPath, "/torrent/"),
		InfoHash:        infoHash,
		Leechers:        max(leechers, 0),
		Seeders:         max(seeders, 0),
		Name:            name,
		Size:            size,
		Magnet:          magnetURI,
		Providers:       []models.Provider{models.ProviderX1337},
		MovieProperties: &props,
	}, true
}

// fetchMagnet follows a result's detail page; list pages carry no magnet
// links.
func (x *X1337) fetchMagnet(detailPath string) (string, string, error) {
	if detailPath == "" {
		return "", "", fmt.Errorf("missing detail link")
	}

	doc, err := x.fetchDocument(detailPath)
	if err != nil {
		return "", "", err
	}

	magnetURI, ok := doc.Find(`a[href^="magnet:"]`).First().Attr("href")
	if !ok {
		return "", "", fmt.Errorf("no magnet link on detail page")
	}

	parsed, err := magnet.Parse(magnetURI)
	if err != nil || parsed.InfoHash == "" {
		return "", "", fmt.Errorf("unparseable magnet on detail page")
	}
	return magnetURI, strings.ToLower(parsed.InfoHash), nil
}

// parseX1337Size reads the size cell's own text, ignoring the nested
// completed-count span.
func parseX1337Size(cell *goquery.Selection) uint64 {
	text := strings.TrimSpace(cell.Contents().Not("span").Text())
	size, err := humanize.ParseBytes(text)
	if err != nil {
		return 0
	}
	return size
}

// parseX1337Date strips ordinal suffixes and parses "Jan. 17 '19 12:30",
// falling back to the date-only form older rows use.
func parseX1337Date(s string) time.Time {
	cleaned := x1337OrdinalPattern.ReplaceAllString(strings.TrimSpace(s), "$1")
	for _, layout := range []string{"Jan. 2 '06 15:04", "Jan. 2 '06"} {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
