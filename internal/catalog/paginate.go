package catalog

import (
	"github.com/atinyakov/TalentKeeper/internal/apperr"
	"github.com/atinyakov/TalentKeeper/internal/models"
)

const (
	// FirstPageSize is the number of talents shown on page 1, next to the upload slot.
	FirstPageSize = 7
	// DefaultPageSize is the page size of pages 2 and later when none is given.
	DefaultPageSize = 20
)

// Page is one slice of a filtered talent list.
type Page struct {
	Items      []models.Talent
	TotalPages int
	TotalCount int
}

// Paginate slices talents under the asymmetric first-page rule: page 1 holds
// at most FirstPageSize items and every later page holds pageSize items.
// A page past the end yields no items and no error.
func Paginate(talents []models.Talent, page, pageSize int) (Page, error) {
	if pageSize <= 0 {
		return Page{}, apperr.InvalidArgument("page_size must be a positive integer")
	}
	if page < 1 {
		return Page{}, apperr.InvalidArgument("page must be a positive integer")
	}

	total := len(talents)
	res := Page{TotalCount: total, TotalPages: 1, Items: []models.Talent{}}

	// later counts the pages after the first. Bounds are checked against it
	// before any multiplication so huge page or pageSize values cannot overflow.
	later := 0
	if rest := total - FirstPageSize; rest > 0 {
		later = rest / pageSize
		if rest%pageSize != 0 {
			later++
		}
	}
	res.TotalPages += later

	if page == 1 {
		res.Items = talents[:min(FirstPageSize, total)]
		return res, nil
	}
	if page-2 >= later {
		return res, nil
	}

	start := FirstPageSize + (page-2)*pageSize
	res.Items = talents[start : start+min(pageSize, total-start)]
	return res, nil
}
