package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/amanicare/therapy-booking/internal/handler"    // import the handlers that implement business logic
	"github.com/amanicare/therapy-booking/internal/middleware" // import middleware for JWT authentication and role enforcement
	"github.com/amanicare/therapy-booking/internal/model"      // import role constants
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication‑related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.  The optional rate limiter is
// applied to the unauthenticated group, where credential stuffing would
// otherwise be free.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	if limiter != nil {
		g.Use(limiter)
	}
	// Registration creates a client account; the admin account is seeded.
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// /refresh rotates the refresh token; /refresh-access issues a new
	// access token while reusing the existing refresh token.
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout accepts either a bearer token (revoke all sessions) or a
	// refresh_token body (revoke one session), so it is registered
	// outside the JWT middleware.
	g.POST("/logout", a.Logout)
	e.POST("/v1/logout", a.Logout)

	// Profile endpoints require a valid access token of either role.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleUser, model.RoleAdmin))
	auth.GET("/me", a.Me)
	auth.PUT("/me", a.UpdateMe)
	auth.GET("/users/me", a.Me)
	auth.PUT("/users/me", a.UpdateMe)
	auth.GET("/auth/sessions", a.Sessions)
}

// RegisterPublic registers unauthenticated browse endpoints.  Only the blog
// is public; the optional cache middleware serves repeated reads from Redis.
func RegisterPublic(e *echo.Echo, p *handler.PostHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1")
	if cache != nil {
		g.Use(cache)
	}
	g.GET("/posts", p.ListPublic)
	g.GET("/posts/:id", p.GetPublic)
}
