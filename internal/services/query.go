package services

import "github.com/dszwed/wp-blueprints/internal/models"

// Listing page size bounds
const (
	DefaultPerPage = 15
	MaxPerPage     = 100
)

// ListQuery selects one page of blueprints
type ListQuery struct {
	Filter  models.BlueprintFilter
	Page    int
	PerPage int
}

// Normalize clamps the paging parameters into range: perPage to [1,100] with
// 0 meaning the default, page to at least 1
func (q ListQuery) Normalize() ListQuery {
	switch {
	case q.PerPage == 0:
		q.PerPage = DefaultPerPage
	case q.PerPage < 1:
		q.PerPage = 1
	case q.PerPage > MaxPerPage:
		q.PerPage = MaxPerPage
	}
	if q.Page < 1 {
		q.Page = 1
	}
	return q
}

// ListResult is a page of blueprints with the paging that produced it
type ListResult struct {
	Page        *models.BlueprintPage
	CurrentPage int
	PerPage     int
}
