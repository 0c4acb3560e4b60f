package rest

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dhanki/token-platform/internal/api/shared/constants"
)

// Pagination holds the parsed limit/offset query parameters
type Pagination struct {
	Limit  int
	Offset uint64
}

// ParsePagination parses limit and offset from the query string, applying
// defaults and clamping the limit
func ParsePagination(c *gin.Context) (Pagination, error) {
	p := Pagination{
		Limit:  constants.DEFAULT_PAGE_LIMIT,
		Offset: constants.DEFAULT_OFFSET,
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return p, fmt.Errorf("invalid limit: %s", raw)
		}
		if limit > constants.MAX_PAGE_LIMIT {
			limit = constants.MAX_PAGE_LIMIT
		}
		p.Limit = limit
	}

	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return p, fmt.Errorf("invalid offset: %s", raw)
		}
		p.Offset = offset
	}

	return p, nil
}
