package router

import (
	"github.com/labstack/echo/v4"

	"github.com/amanicare/therapy-booking/internal/handler"
	"github.com/amanicare/therapy-booking/internal/middleware"
	"github.com/amanicare/therapy-booking/internal/model"
)

// RegisterAdmin registers the therapist's admin endpoints under /v1/admin.
// Everything here requires a valid JWT with the admin role.
func RegisterAdmin(
	e *echo.Echo,
	ad *handler.AdminHandler,
	b *handler.BookingHandler,
	p *handler.PaymentHandler,
	q *handler.QuestionnaireHandler,
	posts *handler.PostHandler,
	jwtSecret string,
) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	// Dashboard counters and the client roster.
	g.GET("/dashboard", ad.Dashboard)
	g.GET("/clients", ad.Clients)

	// Full visibility over bookings and payments.
	g.GET("/bookings", b.ListAll)
	g.GET("/bookings/upcoming", b.ListUpcoming)
	g.GET("/payments", p.ListAll)
	g.PATCH("/payments/:id/status", p.UpdateStatus)

	// Intake questionnaires.
	g.GET("/questionnaires", q.ListAll)
	g.GET("/questionnaires/:id", q.Get)

	// Blog authoring, including drafts.
	g.GET("/posts", posts.ListAll)
	g.POST("/posts", posts.Create)
	g.PATCH("/posts/:id", posts.Update)
	g.DELETE("/posts/:id", posts.Delete)
}
