package httpserver

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront-api/internal/domain"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

type handlers struct {
	auth      AuthService
	customers CustomerService
	products  ProductService
	orders    OrderService
}

// pathID parses the :id route parameter.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, domain.InvalidRequest("invalid id %q", c.Param("id")))
		return 0, false
	}
	return id, true
}

// page reads skip/limit query parameters. limit defaults to 10 and is capped
// at 100.
func page(c *gin.Context) (skip, limit int, ok bool) {
	skip, limit = 0, defaultPageLimit
	if raw := c.Query("skip"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(c, domain.InvalidRequest("skip must be a non-negative integer"))
			return 0, 0, false
		}
		skip = v
	}
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			writeError(c, domain.InvalidRequest("limit must be a positive integer"))
			return 0, 0, false
		}
		limit = min(v, maxPageLimit)
	}
	return skip, limit, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, err)
		return false
	}
	return true
}
