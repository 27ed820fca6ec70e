package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/palace-events/events-api/internal/middleware"
	"github.com/palace-events/events-api/internal/models"
)

func viewerFromContext(c *gin.Context) models.Viewer {
	return middleware.ViewerFromContext(c)
}

// confirmed reads the confirm query flag required by destructive endpoints.
func confirmed(c *gin.Context) bool {
	ok, err := strconv.ParseBool(c.Query("confirm"))
	return err == nil && ok
}

// baseURL is the public origin of the request, honouring a proxy's forwarded headers.
func baseURL(c *gin.Context) string {
	scheme := c.GetHeader("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
	}
	host := c.GetHeader("X-Forwarded-Host")
	if host == "" {
		host = c.Request.Host
	}
	return scheme + "://" + host
}
