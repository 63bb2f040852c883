package main

import (
	"nexuscrm/internal/auth"
	"nexuscrm/internal/graphqlapi"
	"nexuscrm/internal/httpapi"
	"nexuscrm/internal/realtime"
	"nexuscrm/internal/voice"

	"github.com/gin-gonic/gin"
)

// Route registration stays free of business logic; handlers delegate to the
// internal modules.

func registerPublicRoutes(r *gin.Engine, health *httpapi.Handler, webhook *voice.WebhookHandler, hub *realtime.Hub) {
	r.GET("/health", health.Health)
	r.GET("/health/ready", health.Ready)
	r.GET("/health/live", health.Live)

	// Provider webhooks authenticate via HMAC signature, not bearer tokens.
	r.POST("/webhooks/vapi", webhook.Handle)

	// WebSocket upgrades carry the token in the query string or header; the
	// hub verifies it during the handshake.
	r.GET("/ws", hub.HandleWS)
}

func registerProtectedRoutes(r *gin.Engine, verifier auth.Verifier, gql *graphqlapi.Handler) {
	// The middleware attaches a principal when a valid token is present and
	// otherwise lets the request through unauthenticated. Every tenant-scoped
	// resolver re-checks the principal, so a missing token surfaces as a
	// GraphQL error rather than a transport 401.
	api := r.Group("/")
	api.Use(auth.Middleware(verifier))
	api.POST("/graphql", gql.Handle)
}
