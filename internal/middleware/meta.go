package middleware

import (
	"github.com/gin-gonic/gin"
)

const responseMetaKey = "response_meta"

// Envelope meta keys set by handlers.
const (
	MetaCacheHit = "cache_hit"
	MetaLive     = "live"
)

// WithResponseMeta gives each request an empty annotation map for the response envelope.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, gin.H{})
		c.Next()
	}
}

// SetMeta annotates the envelope of the current response.
func SetMeta(c *gin.Context, key string, value interface{}) {
	metaOf(c)[key] = value
}

// ExtractMeta returns the annotations recorded so far, or nil when there are none.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	meta := metaOf(c)
	if len(meta) == 0 {
		return nil
	}
	return meta
}

func metaOf(c *gin.Context) gin.H {
	if value, ok := c.Get(responseMetaKey); ok {
		if meta, ok := value.(gin.H); ok {
			return meta
		}
	}
	meta := gin.H{}
	c.Set(responseMetaKey, meta)
	return meta
}
