package webhook

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

const contextWebhookKey = "webhook"

// KeyLookup resolves an active webhook by key hash.
type KeyLookup interface {
	GetByHash(ctx context.Context, keyHash string) (Webhook, error)
}

// APIKeyAuthMiddleware validates the X-Webhook-API-Key header
// and sets the resolved webhook on the gin context.
func APIKeyAuthMiddleware(repo KeyLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-Webhook-API-Key")
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			return
		}

		hook, err := repo.GetByHash(c.Request.Context(), HashKey(apiKey))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}

		c.Set(contextWebhookKey, hook)
		c.Next()
	}
}

func webhookFromContext(c *gin.Context) (Webhook, bool) {
	value, ok := c.Get(contextWebhookKey)
	if !ok {
		return Webhook{}, false
	}
	hook, ok := value.(Webhook)
	return hook, ok
}
