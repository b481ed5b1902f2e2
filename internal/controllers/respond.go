package controllers

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	logrus "github.com/sirupsen/logrus"

	"ethiobus/internal/validation"
)

// Pagination is the list-envelope metadata returned by every paginated
// endpoint.
type Pagination struct {
	Current int   `json:"current"`
	Pages   int   `json:"pages"`
	Total   int64 `json:"total"`
	HasNext bool  `json:"hasNext"`
	HasPrev bool  `json:"hasPrev"`
}

func paginate(page, limit int, total int64) Pagination {
	pages := int(math.Ceil(float64(total) / float64(limit)))
	return Pagination{
		Current: page,
		Pages:   pages,
		Total:   total,
		HasNext: page < pages,
		HasPrev: page > 1,
	}
}

// pageParams reads page/limit query params with the documented defaults and
// bounds (page >= 1, limit in [1, 100]).
func pageParams(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

func failValidation(c *gin.Context, errs []validation.FieldError) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "errors": errs})
}

// internalError logs the real cause and returns a generic 500 body.
func internalError(c *gin.Context, scope string, err error) {
	logrus.WithError(err).Error(scope)
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
}
