package models

import (
	"time"

	"github.com/magnetarr/magnetarr/pkg/nameparse"
)

// Provider identifies an upstream torrent indexer.
type Provider string

const (
	ProviderPirateBay Provider = "PirateBay"
	ProviderX1337     Provider = "X1337"
	ProviderYts       Provider = "Yts"
	ProviderBitSearch Provider = "BitSearch"
)

// AllProviders is the constant fan-out set; order only affects dispatch, not
// results.
var AllProviders = []Provider{
	ProviderPirateBay,
	ProviderX1337,
	ProviderYts,
	ProviderBitSearch,
}

// ParseProvider validates an untrusted provider name.
func ParseProvider(s string) (Provider, bool) {
	for _, p := range AllProviders {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// MovieProperties holds the attributes inferred from a release name.
type MovieProperties struct {
	Quality nameparse.Quality `json:"quality"`
	Codec   nameparse.Codec   `json:"codec"`
	Source  nameparse.Source  `json:"source"`
	Imdb    string            `json:"imdb,omitempty"`
}

// ParseMovieProperties infers properties from a free-form release name.
func ParseMovieProperties(name string) MovieProperties {
	return MovieProperties{
		Quality: nameparse.ParseQuality(name),
		Codec:   nameparse.ParseCodec(name),
		Source:  nameparse.ParseSource(name),
		Imdb:    nameparse.ExtractImdb(name),
	}
}

// Merge fills Unknown or empty fields from other. Known values are never
// overwritten (first writer wins).
func (p *MovieProperties) Merge(other MovieProperties) {
	if p.Quality == nameparse.QualityUnknown {
		p.Quality = other.Quality
	}
	if p.Codec == nameparse.CodecUnknown {
		p.Codec = other.Codec
	}
	if p.Source == nameparse.SourceUnknown {
		p.Source = other.Source
	}
	if p.Imdb == "" {
		p.Imdb = other.Imdb
	}
}

// Torrent is the canonical record every provider adapter converts into.
// The info-hash uniquely identifies a torrent within a result set.
type Torrent struct {
	Added           time.Time        `json:"added"`
	Category        string           `json:"category"`
	FileCount       int              `json:"fileCount"`
	ID              string           `json:"id"`
	InfoHash        string           `json:"infoHash"`
	Leechers        int              `json:"leechers"`
	Seeders         int              `json:"seeders"`
	Name            string           `json:"name"`
	Size            uint64           `json:"size"`
	Magnet          string           `json:"magnet"`
	Providers       []Provider       `json:"providers"`
	MovieProperties *MovieProperties `json:"movieProperties,omitempty"`
}

// Merge unions other into t. Unset fields (zero counts, empty strings, epoch
// timestamps) adopt the other record's value; set fields keep their own. The
// provider sets are unioned.
func (t *Torrent) Merge(other *Torrent) {
	if t.Added.IsZero() || t.Added.Unix() == 0 {
		t.Added = other.Added
	}
	if t.Category == "" {
		t.Category = other.Category
	}
	if t.ID == "" {
		t.ID = other.ID
	}
	if t.Name == "" {
		t.Name = other.Name
	}
	if t.Magnet == "" {
		t.Magnet = other.Magnet
	}
	if t.FileCount == 0 {
		t.FileCount = other.FileCount
	}
	if t.Leechers == 0 {
		t.Leechers = other.Leechers
	}
	if t.Seeders == 0 {
		t.Seeders = other.Seeders
	}
	if t.Size == 0 {
		t.Size = other.Size
	}

	t.Providers = unionProviders(t.Providers, other.Providers)

	if t.MovieProperties == nil {
		t.MovieProperties = other.MovieProperties
	} else if other.MovieProperties != nil {
		t.MovieProperties.Merge(*other.MovieProperties)
	}
}

// unionProviders appends the providers of b missing from a, keeping first
// appearance order so merges stay deterministic.
func unionProviders(a, b []Provider) []Provider {
	seen := make(map[Provider]struct{}, len(a))
	for _, p := range a {
		seen[p] = struct{}{}
	}
	for _, p := range b {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			a = append(a, p)
		}
	}
	return a
}
