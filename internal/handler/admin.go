package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/amanicare/therapy-booking/internal/model"
	"github.com/amanicare/therapy-booking/internal/repository"
)

// AdminHandler serves the therapist's dashboard: headline numbers and
// the client roster. Everything here sits behind the admin role guard.
type AdminHandler struct {
	Users    *repository.UserRepo
	Bookings *repository.BookingRepo
	Payments *repository.PaymentRepo
}

func NewAdminHandler(u *repository.UserRepo, b *repository.BookingRepo, p *repository.PaymentRepo) *AdminHandler {
	if u == nil || b == nil || p == nil {
		panic("nil repository passed to NewAdminHandler")
	}
	return &AdminHandler{Users: u, Bookings: b, Payments: p}
}

type dashboardResp struct {
	TotalClients     uint64 `json:"total_clients"`
	TotalBookings    uint64 `json:"total_bookings"`
	UpcomingSessions uint64 `json:"upcoming_sessions"`
	RevenueTZS       int64  `json:"revenue_tzs"`
}

// Dashboard returns the headline counters. Each counter is a single
// aggregate query; a failure in any one fails the whole response rather
// than reporting partial numbers.
func (h *AdminHandler) Dashboard(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	clients, err := h.Users.CountClients(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	bookings, err := h.Bookings.CountAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	upcoming, err := h.Bookings.CountUpcoming(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	revenue, err := h.Payments.SumCompleted(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, dashboardResp{
		TotalClients:     clients,
		TotalBookings:    bookings,
		UpcomingSessions: upcoming,
		RevenueTZS:       revenue,
	})
}

type clientResp struct {
	ID        uint64 `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

// Clients returns the client roster.
func (h *AdminHandler) Clients(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.ListClients(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]clientResp, 0, len(users))
	for _, u := range users {
		out = append(out, toClientResp(u))
	}
	return c.JSON(http.StatusOK, echo.Map{"clients": out})
}

func toClientResp(u model.User) clientResp {
	return clientResp{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}
