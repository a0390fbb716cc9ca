package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/amanicare/therapy-booking/internal/config"
	"github.com/amanicare/therapy-booking/internal/model"
	"github.com/amanicare/therapy-booking/internal/repository"
)

// BookingHandler serves session booking endpoints for clients and the admin.
type BookingHandler struct {
	Cfg      config.Config
	Bookings *repository.BookingRepo
	Payments *repository.PaymentRepo
}

func NewBookingHandler(cfg config.Config, b *repository.BookingRepo, p *repository.PaymentRepo) *BookingHandler {
	if b == nil || p == nil {
		panic("nil repository passed to NewBookingHandler")
	}
	return &BookingHandler{Cfg: cfg, Bookings: b, Payments: p}
}

type createBookingReq struct {
	SessionType string `json:"session_type"`
	SessionDate string `json:"session_date"` // YYYY-MM-DD
	SessionTime string `json:"session_time"` // HH:MM
}

type bookingResp struct {
	ID          string `json:"id"`
	UserID      uint64 `json:"user_id"`
	SessionType string `json:"session_type"`
	SessionDate string `json:"session_date"`
	SessionTime string `json:"session_time"`
	Status      string `json:"status"`
	PaymentID   string `json:"payment_id,omitempty"`
	// PaymentStatus mirrors the payment row; it is never stored on the
	// booking itself.
	PaymentStatus string `json:"payment_status,omitempty"`
	AmountTZS     int64  `json:"amount_tzs,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func toBookingResp(b model.Booking) bookingResp {
	return bookingResp{
		ID:          b.ID,
		UserID:      b.UserID,
		SessionType: b.SessionType,
		SessionDate: b.SessionDate.Format("2006-01-02"),
		SessionTime: b.SessionTime,
		Status:      b.Status,
		CreatedAt:   b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Create books a session and opens a pending payment for it in one
// transaction. The booking id doubles as the payment order id, so a
// booking without its payment row would be unpayable.
func (h *BookingHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.SessionType = strings.ToLower(strings.TrimSpace(req.SessionType))
	if req.SessionType != model.SessionOnline && req.SessionType != model.SessionInPerson {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "session_type must be online or in_person"})
	}
	date, err := time.Parse("2006-01-02", strings.TrimSpace(req.SessionDate))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "session_date must be YYYY-MM-DD"})
	}
	if date.Before(time.Now().Truncate(24 * time.Hour)) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "session_date is in the past"})
	}
	if _, err := time.Parse("15:04", strings.TrimSpace(req.SessionTime)); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "session_time must be HH:MM"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	booking := model.Booking{
		ID:          uuid.NewString(),
		UserID:      userID,
		SessionType: req.SessionType,
		SessionDate: date,
		SessionTime: strings.TrimSpace(req.SessionTime),
		Status:      model.BookingPending,
	}
	payment := model.Payment{
		ID:            uuid.NewString(),
		BookingID:     booking.ID,
		UserID:        userID,
		Status:        model.PaymentPending,
		Amount:        h.Cfg.SessionPriceTZS,
		Currency:      "TZS",
		PaymentMethod: "mobile_money",
	}

	tx, err := h.Bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := h.Bookings.CreateTx(ctx, tx, booking); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create booking failed"})
	}
	if err := h.Payments.CreateTx(ctx, tx, payment); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create payment failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	resp := toBookingResp(booking)
	resp.PaymentID = payment.ID
	resp.PaymentStatus = payment.Status
	resp.AmountTZS = payment.Amount
	return c.JSON(http.StatusCreated, resp)
}

// ListMine returns the caller's bookings, newest first.
func (h *BookingHandler) ListMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Bookings.ListByUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]bookingResp, 0, len(items))
	for _, b := range items {
		out = append(out, toBookingResp(b))
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// Get returns one booking with its payment. Clients only see their own;
// the admin sees everything.
func (h *BookingHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking id required"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrBookingNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if b.UserID != userID && getUserRole(c) != model.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	resp := toBookingResp(b)
	if p, err := h.Payments.GetByBookingID(ctx, b.ID); err == nil {
		resp.PaymentID = p.ID
		resp.PaymentStatus = p.Status
		resp.AmountTZS = p.Amount
	}
	return c.JSON(http.StatusOK, resp)
}

// ListAll returns every booking (admin).
func (h *BookingHandler) ListAll(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Bookings.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]bookingResp, 0, len(items))
	for _, b := range items {
		out = append(out, toBookingResp(b))
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// ListUpcoming returns future non-cancelled bookings across all
// clients, so it is admin-only even where the route is mounted on the
// shared group.
func (h *BookingHandler) ListUpcoming(c echo.Context) error {
	if getUserRole(c) != model.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Bookings.ListUpcoming(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]bookingResp, 0, len(items))
	for _, b := range items {
		out = append(out, toBookingResp(b))
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

type updateBookingStatusReq struct {
	Status string `json:"status"`
}

// UpdateStatus moves a booking between pending/confirmed/cancelled/completed.
// Clients may only cancel their own booking; every other transition is
// the admin's.
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := strings.TrimSpace(c.Param("id"))
	var req updateBookingStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	switch status {
	case model.BookingPending, model.BookingConfirmed, model.BookingCancelled, model.BookingCompleted:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrBookingNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if getUserRole(c) != model.RoleAdmin {
		if b.UserID != userID {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		if status != model.BookingCancelled {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "only cancellation is allowed"})
		}
	}

	if err := h.Bookings.UpdateStatus(ctx, id, status); err != nil {
		if err == repository.ErrBookingNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	b.Status = status
	return c.JSON(http.StatusOK, toBookingResp(b))
}
