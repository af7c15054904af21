package models

import (
	"github.com/magnetarr/magnetarr/internal/errors"
)

// Category narrows a search to an indexer content category.
type Category string

const (
	CategoryAll          Category = "All"
	CategoryApplications Category = "Applications"
	CategoryAudio        Category = "Audio"
	CategoryVideo        Category = "Video"
	CategoryGames        Category = "Games"
	CategoryOther        Category = "Other"
)

// SortColumn selects the attribute results are ordered by.
type SortColumn string

const (
	SortSeeders  SortColumn = "Seeders"
	SortAdded    SortColumn = "Added"
	SortSize     SortColumn = "Size"
	SortLeechers SortColumn = "Leechers"
)

// Order is the direction of a sort.
type Order string

const (
	OrderAscending  Order = "Ascending"
	OrderDescending Order = "Descending"
)

// ParseCategory validates an untrusted category string. Empty defaults to All.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case "":
		return CategoryAll, nil
	case CategoryAll, CategoryApplications, CategoryAudio, CategoryVideo, CategoryGames, CategoryOther:
		return Category(s), nil
	}
	return "", errors.NewInvalidOption("category", s)
}

// ParseSortColumn validates an untrusted sort string. Empty defaults to Seeders.
func ParseSortColumn(s string) (SortColumn, error) {
	switch SortColumn(s) {
	case "":
		return SortSeeders, nil
	case SortSeeders, SortAdded, SortSize, SortLeechers:
		return SortColumn(s), nil
	}
	return "", errors.NewInvalidOption("sort", s)
}

// ParseOrder validates an untrusted order string. Empty defaults to Descending.
func ParseOrder(s string) (Order, error) {
	switch Order(s) {
	case "":
		return OrderDescending, nil
	case OrderAscending, OrderDescending:
		return Order(s), nil
	}
	return "", errors.NewInvalidOption("order", s)
}

// SearchOptions describes a free-text search request. Immutable once built.
type SearchOptions struct {
	Query    string
	Category Category
	Sort     SortColumn
	Order    Order
}

// MovieOptions describes an imdb-seeded movie search request. Name carries the
// formatted "Title (Year)" form when known.
type MovieOptions struct {
	ImdbID string
	Name   string
	Sort   SortColumn
	Order  Order
}
