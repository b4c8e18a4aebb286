package shared

import (
	"net/http"
	"strconv"
)

type Pagination struct {
	Limit  int
	Offset int
}

// ParsePagination reads limit and offset from the query string. Values that
// are absent, malformed, or out of range fall back to the defaults rather
// than failing the request.
func ParsePagination(r *http.Request, defaultLimit, maxLimit int) Pagination {
	q := r.URL.Query()
	return Pagination{
		Limit:  clampInt(q.Get("limit"), defaultLimit, 1, maxLimit),
		Offset: clampInt(q.Get("offset"), 0, 0, 0),
	}
}

func clampInt(raw string, fallback, min, max int) int {
	v, err := strconv.Atoi(raw)
	if err != nil || v < min {
		return fallback
	}
	if max > 0 && v > max {
		return max
	}
	return v
}
