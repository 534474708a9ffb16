package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/coursemart-backend/internal/readmodels"
)

// listParams reads page, limit, query, sortBy and sortType. Unparseable
// numbers fall back to the engine defaults.
func listParams(c *gin.Context, refs map[string]string) readmodels.ListParams {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return readmodels.ListParams{
		Page:     page,
		Limit:    limit,
		Query:    c.Query("query"),
		SortBy:   c.Query("sortBy"),
		SortType: c.Query("sortType"),
		Refs:     refs,
	}
}
