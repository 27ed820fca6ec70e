package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type discoveryRelay interface {
	Forward(ctx context.Context, in url.Values) (json.RawMessage, error)
}

// ProxyHandler relays discovery API queries so the API key never reaches the browser.
type ProxyHandler struct {
	relay  discoveryRelay
	logger *zap.Logger
}

// NewProxyHandler constructs the handler.
func NewProxyHandler(relay discoveryRelay, logger *zap.Logger) *ProxyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProxyHandler{relay: relay, logger: logger}
}

func proxyCORS(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET")
	c.Header("Access-Control-Allow-Headers", "Content-Type")
}

// Preflight answers CORS preflight requests.
func (h *ProxyHandler) Preflight(c *gin.Context) {
	proxyCORS(c)
	c.Status(http.StatusNoContent)
}

// Ticketmaster godoc
// @Summary Discovery API relay
// @Description Forwards keyword, city, startDateTime and endDateTime with the server-held key and returns the upstream JSON unchanged.
// @Tags Functions
// @Produce json
// @Param keyword query string false "Keyword"
// @Param city query string false "City"
// @Param startDateTime query string false "Start (ISO 8601)"
// @Param endDateTime query string false "End (ISO 8601)"
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} map[string]string
// @Router /functions/ticketmaster [get]
func (h *ProxyHandler) Ticketmaster(c *gin.Context) {
	proxyCORS(c)
	body, err := h.relay.Forward(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		h.logger.Error("discovery relay failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch events"})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
