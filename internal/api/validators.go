package api

import (
	"errors"
	"net/http"
	"strconv"
)

var errInvalidLimit = errors.New("limit must be a non-negative integer")

// parseLimit parses the limit query parameter. An absent limit means no cap.
func parseLimit(r *http.Request) (int, error) {
	l := r.URL.Query().Get("limit")
	if l == "" {
		return -1, nil
	}
	parsed, err := strconv.Atoi(l)
	if err != nil || parsed < 0 {
		return 0, errInvalidLimit
	}
	return parsed, nil
}

// parseID parses a numeric path parameter
func parseID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}
