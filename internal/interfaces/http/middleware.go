package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/sales-insight/internal/domain/entity"
)

const (
	locationHeader = "X-Location-ID"
	locationParam  = "locationId"
	locationKey    = "location_id"
)

// locationMiddleware resolves the location of a request from the header,
// the query string or the form, in that order
func locationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(locationHeader))
		if id == "" {
			id = strings.TrimSpace(c.Query(locationParam))
		}
		if id == "" {
			id = strings.TrimSpace(c.PostForm(locationParam))
		}

		if id == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, Response{
				Success: false,
				Error:   "location id is required",
			})
			return
		}
		if !entity.ValidLocationID(id) {
			c.AbortWithStatusJSON(http.StatusBadRequest, Response{
				Success: false,
				Error:   "invalid location id",
			})
			return
		}

		c.Set(locationKey, id)
		c.Next()
	}
}

func locationID(c *gin.Context) string {
	return c.GetString(locationKey)
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+locationHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
