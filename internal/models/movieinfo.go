package models

import "fmt"

// MovieInfo is a canonical movie metadata record from the external
// metadata service. A zero Year marks a record the service could not
// resolve.
type MovieInfo struct {
	TmdbID         uint64          `json:"tmdbId"`
	ImdbID         string          `json:"imdbId,omitempty"`
	Title          string          `json:"title"`
	Year           uint16          `json:"year"`
	Runtime        uint16          `json:"runtime"`
	Overview       string          `json:"overview,omitempty"`
	Genres         []string        `json:"genres,omitempty"`
	Collection     *Collection     `json:"collection,omitempty"`
	Ratings        *Ratings        `json:"ratings,omitempty"`
	Certifications []Certification `json:"certifications,omitempty"`
}

// Certification is one per-country age rating.
type Certification struct {
	Country       string `json:"country"`
	Certification string `json:"certification"`
}

// Collection groups movies belonging to the same franchise.
type Collection struct {
	TmdbID uint64 `json:"tmdbId"`
	Name   string `json:"name"`
}

// Ratings aggregates external rating sources.
type Ratings struct {
	Imdb *Rating `json:"imdb,omitempty"`
	Tmdb *Rating `json:"tmdb,omitempty"`
}

// Rating is a single vote aggregate.
type Rating struct {
	Count uint64  `json:"count"`
	Value float64 `json:"value"`
}

// FormattedTitle returns the "Title (Year)" form used to seed provider
// queries.
func (m *MovieInfo) FormattedTitle() string {
	return fmt.Sprintf("%s (%d)", m.Title, m.Year)
}

// MovieFilters post-filters metadata results according to configuration.
type MovieFilters struct {
	// HideNoImdb drops movies without an IMDb id.
	HideNoImdb bool
	// MinRuntime drops movies shorter than this many minutes.
	MinRuntime uint16
	// Languages is the certification country allow-list.
	Languages map[string]bool
}

// Filter drops movies failing the configured thresholds and returns the
// remaining list.
func (f MovieFilters) Filter(movies []MovieInfo) []MovieInfo {
	kept := movies[:0]
	for _, m := range movies {
		if m.Runtime < f.MinRuntime {
			continue
		}
		if f.HideNoImdb && m.ImdbID == "" {
			continue
		}
		if !f.languageAllowed(m) {
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

// languageAllowed checks the certification countries against the allow-list.
// Movies carrying no certification at all are kept; an unknown country is not
// evidence of a disallowed one.
func (f MovieFilters) languageAllowed(m MovieInfo) bool {
	if len(f.Languages) == 0 || len(m.Certifications) == 0 {
		return true
	}
	for _, c := range m.Certifications {
		if f.Languages[c.Country] {
			return true
		}
	}
	return false
}
