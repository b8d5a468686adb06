package handlers

import (
	"net/http"
	"strconv"

	"github.com/vidtube/backend/internal/apperr"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// parsePagination reads page and limit from the query string. Absent
// parameters fall back to defaults; explicitly invalid values are rejected
// rather than silently corrected. Limits above the cap are clamped.
func parsePagination(r *http.Request) (page, limit int, err error) {
	page, err = positiveQueryInt(r, "page", defaultPage)
	if err != nil {
		return 0, 0, err
	}

	limit, err = positiveQueryInt(r, "limit", defaultLimit)
	if err != nil {
		return 0, 0, err
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	return page, limit, nil
}

func positiveQueryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, apperr.New(apperr.InvalidArgument, key+" must be a positive integer")
	}

	return value, nil
}
