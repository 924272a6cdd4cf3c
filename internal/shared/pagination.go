package shared

import (
	"net/url"
	"strconv"
)

const (
	defaultPerPage = 20
	maxPerPage     = 200
)

// PageParams parses page/per_page query values into limit and offset.
// Out of range values fall back to page 1 and the default page size.
func PageParams(q url.Values) (page, perPage, limit, offset int) {
	page, _ = strconv.Atoi(q.Get("page"))
	perPage, _ = strconv.Atoi(q.Get("per_page"))
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > maxPerPage {
		perPage = defaultPerPage
	}
	return page, perPage, perPage, (page - 1) * perPage
}
