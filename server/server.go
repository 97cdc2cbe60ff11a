package server

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/homemade/kempt/sync"
)

// NotionHandler processes Notion webhook deliveries and bulk syncs.
// Satisfied by sync.NotionWebhookHandler.
type NotionHandler interface {
	HandleDelivery(payload []byte, ctx context.Context) sync.Outcome
	SyncAllUsers(ctx context.Context) (sync.SyncSummary, error)
}

// HubSpotHandler processes HubSpot webhook deliveries.
// Satisfied by sync.HubSpotWebhookHandler.
type HubSpotHandler interface {
	HandleDelivery(payload []byte, ctx context.Context) sync.EventReport
}

// NewRouter wires the webhook endpoints.
// Public: /health, /
// Webhooks: /notion-webhook, /crm-webhook (GET for verification, POST for events)
// Admin: /sync-all
func NewRouter(notion NotionHandler, hubspot HubSpotHandler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery(), requestID())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "notion-hubspot-user-sync"})
	})

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "notion-hubspot-user-sync",
			"endpoints": gin.H{
				"/notion-webhook": "POST - webhook endpoint for Notion events",
				"/crm-webhook":    "POST - webhook endpoint for HubSpot events",
				"/health":         "GET - health check",
			},
		})
	})

	r.GET("/notion-webhook", verificationHandler)
	r.POST("/notion-webhook", func(c *gin.Context) {
		payload, ok := eventPayload(c)
		if !ok {
			return
		}
		outcome := notion.HandleDelivery(payload, c.Request.Context())
		c.JSON(statusCode(outcome.Status), outcome)
	})

	r.GET("/crm-webhook", verificationHandler)
	r.POST("/crm-webhook", func(c *gin.Context) {
		payload, ok := eventPayload(c)
		if !ok {
			return
		}
		report := hubspot.HandleDelivery(payload, c.Request.Context())
		c.JSON(statusCode(report.Status), report)
	})

	r.POST("/sync-all", func(c *gin.Context) {
		summary, err := notion.SyncAllUsers(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error(), "summary": summary})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "summary": summary})
	})

	return r
}

// requestID tags each request with an ID for log correlation, keeping a
// caller-supplied one when present.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// verificationHandler answers endpoint verification probes. Both sides
// send these when a webhook subscription is registered; a challenge may
// arrive as a query parameter or a header and must be echoed back.
func verificationHandler(c *gin.Context) {
	if challenge := challengeFromRequest(c); challenge != "" {
		c.JSON(http.StatusOK, gin.H{"challenge": challenge})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"message": "webhook endpoint is ready to receive events",
	})
}

func challengeFromRequest(c *gin.Context) string {
	for _, key := range []string{"challenge", "token", "verification_token"} {
		if value := c.Query(key); value != "" {
			return value
		}
	}
	for _, header := range []string{"X-Challenge", "X-Verification-Token"} {
		if value := c.GetHeader(header); value != "" {
			return value
		}
	}
	return ""
}

// eventPayload reads the delivery body, rejecting empty deliveries and
// short-circuiting verification challenges sent in the body.
func eventPayload(c *gin.Context) ([]byte, bool) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil || len(payload) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "no event data received"})
		return nil, false
	}
	if challenge := challengeFromBody(payload); challenge != "" {
		c.JSON(http.StatusOK, gin.H{"challenge": challenge})
		return nil, false
	}
	return payload, true
}

func challengeFromBody(payload []byte) string {
	if !gjson.ValidBytes(payload) {
		return ""
	}
	parsed := gjson.ParseBytes(payload)
	if !parsed.IsObject() {
		return ""
	}
	for _, key := range []string{"challenge", "token", "verification_token"} {
		if value := parsed.Get(key).String(); value != "" {
			return value
		}
	}
	return ""
}

// statusCode maps a delivery status to an HTTP status. Ignored events are
// still a 200, the delivery itself was handled fine.
func statusCode(status string) int {
	if status == sync.StatusError {
		return http.StatusInternalServerError
	}
	return http.StatusOK
}
