// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/fady17/garagehub-go/internal/application/container"
	"github.com/fady17/garagehub-go/internal/presentation/http/handlers"
	"github.com/fady17/garagehub-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(c *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	// Initialize handlers
	sessionHandlers := handlers.NewSessionHandlers(c.SessionIssueService, c.Logger, c.PerfTracker)
	preferenceHandlers := handlers.NewPreferenceHandlers(c.PreferenceService, c.Logger, c.PerfTracker)
	cartHandlers := handlers.NewCartHandlers(c.CartService, c.Logger, c.PerfTracker)
	mergeHandlers := handlers.NewMergeHandlers(c.MergeService, c.Logger, c.PerfTracker)
	userHandlers := handlers.NewUserHandlers(c.UserAuthService, c.Broadcaster, c.UserCredential, c.Logger, c.PerfTracker)
	statusFeedHandlers := handlers.NewStatusFeedHandlers(c.Broadcaster, c.Logger)

	// The status feed is a websocket and stays outside the JSON groups.
	r.GET("/api/session-status/feed", statusFeedHandlers.Stream)

	// Anonymous session minting requires no credential at all.
	r.POST("/api/anonymous/sessions", sessionHandlers.CreateSession)

	// Anonymous-scoped endpoints authenticate with the session token.
	anonymousAPI := r.Group("/api/anonymous")
	anonymousAPI.Use(middleware.AnonymousTokenMiddleware(c.SessionIssueService))
	{
		anonymousAPI.GET("/preferences/location", preferenceHandlers.GetLocationPreference)
		anonymousAPI.PUT("/preferences/location", preferenceHandlers.PutLocationPreference)
		anonymousAPI.GET("/cart", cartHandlers.GetAnonymousCart)
		anonymousAPI.PUT("/cart/items", cartHandlers.PutAnonymousCartItem)
	}

	// Account endpoints.
	r.POST("/api/users", userHandlers.Register)
	r.POST("/api/users/sessions", userHandlers.Login)
	r.DELETE("/api/users/sessions", userHandlers.Logout)

	// User-scoped endpoints authenticate with the bearer token.
	userAPI := r.Group("/api/users/me")
	userAPI.Use(middleware.UserTokenMiddleware())
	{
		userAPI.POST("/merge-anonymous-data", mergeHandlers.MergeAnonymousData)
		userAPI.GET("/cart", cartHandlers.GetUserCart)
		userAPI.PUT("/cart/items", cartHandlers.PutUserCartItem)
	}

	return r
}
