package httpx

import (
	"net/http"
	"net/url"
	"strconv"
)

// queryInt reads an integer query parameter, falling back to def when the
// parameter is missing or not a number.
func queryInt(q url.Values, key string, def int) int {
	n, err := strconv.Atoi(q.Get(key))
	if err != nil {
		return def
	}
	return n
}

// ParseLimitOffset extracts limit and offset pagination parameters from a
// request. The limit is clamped to [1, maxLimit] and the offset to >= 0, so
// handlers can pass the results straight to the repository layer.
func ParseLimitOffset(r *http.Request, defLimit, maxLimit int) (limit, offset int) {
	q := r.URL.Query()
	limit = min(max(queryInt(q, "limit", defLimit), 1), max(maxLimit, 1))
	offset = max(queryInt(q, "offset", 0), 0)
	return limit, offset
}
