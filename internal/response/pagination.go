package response

import (
	"net/http"
	"strconv"

	"thetrek/internal/models"
)

// ParsePagination reads limit/offset query parameters, falling back to
// defaults on missing or malformed values.
func ParsePagination(r *http.Request) models.PaginationParams {
	params := models.PaginationParams{}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			params.Limit = limit
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if offset, err := strconv.Atoi(raw); err == nil {
			params.Offset = offset
		}
	}

	params.Normalize()
	return params
}

// PageNumber converts an offset into a 1-based page number for
// pagination metadata.
func PageNumber(params models.PaginationParams) int {
	if params.Limit <= 0 {
		return 1
	}
	return params.Offset/params.Limit + 1
}
