package router

import (
	"github.com/labstack/echo/v4"

	"github.com/amanicare/therapy-booking/internal/handler"
	"github.com/amanicare/therapy-booking/internal/middleware"
	"github.com/amanicare/therapy-booking/internal/model"
)

// RegisterClient registers the client-scoped endpoints under /v1.  All
// routes require a valid JWT; most accept both roles so the admin can act
// on any record, with per-record ownership enforced in the handlers.
func RegisterClient(
	e *echo.Echo,
	b *handler.BookingHandler,
	p *handler.PaymentHandler,
	q *handler.QuestionnaireHandler,
	ch *handler.ChatHandler,
	jwtSecret string,
) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin),
	)

	// Session bookings.  Creating a booking also opens its pending payment.
	g.POST("/bookings", b.Create)
	g.GET("/bookings/me", b.ListMine)
	g.GET("/bookings/upcoming", b.ListUpcoming)
	g.GET("/bookings/:id", b.Get)
	g.PATCH("/bookings/:id/status", b.UpdateStatus)

	// Payment records.  PATCH /payments/:id is the reconciliation
	// write-back; POST /payments/:id/confirm runs the whole charge +
	// poll + write-back flow server-side and blocks until it settles.
	g.POST("/payments", p.Create)
	g.GET("/payments/me", p.ListMine)
	g.GET("/payments/:id", p.Get)
	g.PATCH("/payments/:id", p.WriteBack)
	g.POST("/payments/:id/confirm", p.Confirm)

	// Intake questionnaire (one per user, resubmission overwrites).
	g.POST("/questionnaire", q.Submit)
	g.GET("/questionnaire/me", q.Mine)

	// Messaging provider proxies.
	g.POST("/chat/users", ch.CreateUser)
	g.POST("/chat/auth-token", ch.AuthToken)
}

// RegisterGateway registers the aggregator proxy endpoints.  They sit
// behind JWT auth and, when provided, the Redis rate limiter: every status
// poll is a paid upstream call.
func RegisterGateway(e *echo.Echo, gw *handler.GatewayHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/v1/payments/gateway",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin),
	)
	if limiter != nil {
		g.Use(limiter)
	}
	g.POST("/charge", gw.Charge)
	g.GET("/status", gw.Status)
}
