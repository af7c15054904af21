package providers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magnetarr/magnetarr/internal/models"
	"github.com/magnetarr/magnetarr/pkg/logger"
)

const x1337ListPage = `<html><body><table class="table-list"><tbody>
<tr>
  <td class="name">
    <a href="/sub/10/0/" class="icon"></a>
    <a href="/torrent/555/Oppenheimer-2023-1080p-BluRay-x264/">Oppenheimer.2023.1080p.BluRay.x264</a>
  </td>
  <td class="seeds">341</td>
  <td class="leeches">27</td>
  <td class="coll-date">Jan. 17th '24 12:30</td>
  <td class="size">2.3 GB<span class="seeds">341</span></td>
</tr>
<tr>
  <td class="name">
    <a href="/sub/10/0/" class="icon"></a>
    <a href="/torrent/556/Dead-Detail-Page/">Dead.Detail.Page</a>
  </td>
  <td class="seeds">1</td>
  <td class="leeches">0</td>
  <td class="coll-date">Feb. 2nd '20</td>
  <td class="size">700 MB<span class="seeds">1</span></td>
</tr>
</tbody></table></body></html>`

const x1337DetailPage = `<html><body>
<a href="magnet:?xt=urn:btih:E3811B9539CACFF680E418124272177C47477157&dn=Oppenheimer">Magnet Download</a>
</body></html>`

func newTestX1337(t *testing.T, handler http.HandlerFunc) *X1337 {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	x := NewX1337(server.Client(), logger.NewWithLevel(logger.LevelError))
	x.baseURL = server.URL
	return x
}

func TestX1337Search(t *testing.T) {
	x := newTestX1337(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sort-search/oppenheimer/seeders/desc/1/":
			w.Write([]byte(x1337ListPage))
		case "/torrent/555/Oppenheimer-2023-1080p-BluRay-x264/":
			w.Write([]byte(x1337DetailPage))
		default:
			// Second row's detail page has no magnet link.
			w.Write([]byte(`<html><body>nothing here</body></html>`))
		}
	})

	torrents, err := x.Search(models.SearchOptions{
		Query: "oppenheimer",
		Sort:  models.SortSeeders,
		Order: models.OrderDescending,
	})
	require.NoError(t, err)

	// The row whose detail page carries no magnet is dropped.
	require.Len(t, torrents, 1)

	got := torrents[0]
	assert.Equal(t, "Oppenheimer.2023.1080p.BluRay.x264", got.Name)
	assert.Equal(t, "e3811b9539cacff680e418124272177c47477157", got.InfoHash)
	assert.Equal(t, 341, got.Seeders)
	assert.Equal(t, 27, got.Leechers)
	assert.Equal(t, uint64(2300000000), got.Size)
	assert.Equal(t, time.Date(2024, 1, 17, 12, 30, 0, 0, time.UTC), got.Added)
	assert.Equal(t, []models.Provider{models.ProviderX1337}, got.Providers)
	assert.Contains(t, got.Magnet, "urn:btih:E3811B9539CACFF680E418124272177C47477157")
}

func TestX1337SearchMovieUsesCategorySearch(t *testing.T) {
	var listPath string
	x := newTestX1337(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/torrent/555/Oppenheimer-2023-1080p-BluRay-x264/":
			w.Write([]byte(x1337DetailPage))
		case "/torrent/556/Dead-Detail-Page/":
			w.Write([]byte(`<html><body>nothing here</body></html>`))
		default:
			listPath = r.URL.EscapedPath()
			w.Write([]byte(x1337ListPage))
		}
	})

	torrents, err := x.SearchMovie(models.MovieOptions{
		ImdbID: "tt15398776",
		Name:   "Oppenheimer (2023)",
	})
	require.NoError(t, err)
	assert.Equal(t, "/category-search/Oppenheimer%20%282023%29/Movies/1/", listPath)

	require.Len(t, torrents, 1)
	require.NotNil(t, torrents[0].MovieProperties)
	assert.Equal(t, "tt15398776", torrents[0].MovieProperties.Imdb)
}

func TestParseX1337Date(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"Jan. 17th '24 12:30", time.Date(2024, 1, 17, 12, 30, 0, 0, time.UTC)},
		{"Feb. 2nd '20", time.Date(2020, 2, 2, 0, 0, 0, 0, time.UTC)},
		{"Mar. 3rd '19 08:05", time.Date(2019, 3, 3, 8, 5, 0, 0, time.UTC)},
		{"Apr. 1st '21", time.Date(2021, 4, 1, 0, 0, 0, 0, time.UTC)},
		{"garbage", time.Time{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseX1337Date(tt.in), "input %q", tt.in)
	}
}
