package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/amanicare/therapy-booking/internal/aggregator"
	"github.com/amanicare/therapy-booking/internal/config"
	"github.com/amanicare/therapy-booking/internal/model"
	"github.com/amanicare/therapy-booking/internal/queue"
	"github.com/amanicare/therapy-booking/internal/reconcile"
	"github.com/amanicare/therapy-booking/internal/repository"
	qp "github.com/amanicare/therapy-booking/internal/service"
)

// PaymentHandler serves the payment records API: pending-record
// creation, listings, the reconciliation write-back target, and the
// server-driven confirmation flow.
type PaymentHandler struct {
	Cfg      config.Config
	Payments *repository.PaymentRepo
	Bookings *repository.BookingRepo
	Gateway  *aggregator.Client
}

func NewPaymentHandler(cfg config.Config, p *repository.PaymentRepo, b *repository.BookingRepo, gw *aggregator.Client) *PaymentHandler {
	if p == nil || b == nil {
		panic("nil repository passed to NewPaymentHandler")
	}
	return &PaymentHandler{Cfg: cfg, Payments: p, Bookings: b, Gateway: gw}
}

type createPaymentReq struct {
	BookingID     string `json:"booking_id"`
	PaymentMethod string `json:"payment_method"`
}

type paymentResp struct {
	ID            string  `json:"id"`
	BookingID     string  `json:"booking_id"`
	UserID        uint64  `json:"user_id"`
	Status        string  `json:"status"`
	Amount        int64   `json:"amount"`
	Currency      string  `json:"currency"`
	PaymentMethod string  `json:"payment_method"`
	TransactionID *string `json:"transaction_id,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

func toPaymentResp(p model.Payment) paymentResp {
	return paymentResp{
		ID:            p.ID,
		BookingID:     p.BookingID,
		UserID:        p.UserID,
		Status:        p.Status,
		Amount:        p.Amount,
		Currency:      p.Currency,
		PaymentMethod: p.PaymentMethod,
		TransactionID: p.TransactionID,
		CreatedAt:     p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// Create opens a pending payment for a booking. One active payment per
// booking: a duplicate booking_id is a 409.
func (h *PaymentHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createPaymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.BookingID = strings.TrimSpace(req.BookingID)
	if req.BookingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "booking_id required"})
	}
	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		method = "mobile_money"
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Bookings.GetByID(ctx, req.BookingID)
	if err != nil {
		if err == repository.ErrBookingNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if b.UserID != userID && getUserRole(c) != model.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	p := model.Payment{
		ID:            uuid.NewString(),
		BookingID:     b.ID,
		UserID:        b.UserID,
		Status:        model.PaymentPending,
		Amount:        h.Cfg.SessionPriceTZS,
		Currency:      "TZS",
		PaymentMethod: method,
	}
	if err := h.Payments.Create(ctx, p); err != nil {
		if err == repository.ErrConflict {
			return c.JSON(http.StatusConflict, echo.Map{"error": "payment already exists for booking"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create payment failed"})
	}
	return c.JSON(http.StatusCreated, toPaymentResp(p))
}

// ListMine returns the caller's payments.
func (h *PaymentHandler) ListMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Payments.ListByUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]paymentResp, 0, len(items))
	for _, p := range items {
		out = append(out, toPaymentResp(p))
	}
	return c.JSON(http.StatusOK, echo.Map{"payments": out})
}

// ListAll returns every payment (admin).
func (h *PaymentHandler) ListAll(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Payments.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]paymentResp, 0, len(items))
	for _, p := range items {
		out = append(out, toPaymentResp(p))
	}
	return c.JSON(http.StatusOK, echo.Map{"payments": out})
}

// Get returns one payment (owner or admin).
func (h *PaymentHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Payments.GetByID(ctx, strings.TrimSpace(c.Param("id")))
	if err != nil {
		if err == repository.ErrPaymentNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "payment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if p.UserID != userID && getUserRole(c) != model.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, toPaymentResp(p))
}

type updatePaymentStatusReq struct {
	Status string `json:"status"`
}

// UpdateStatus sets a non-terminal payment status (admin). Completed is
// terminal: moving away from it is a 409, and moving into it must go
// through the write-back so the transaction id and audit blob land too.
func (h *PaymentHandler) UpdateStatus(c echo.Context) error {
	var req updatePaymentStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	switch status {
	case model.PaymentPending, model.PaymentFailed:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be pending or failed"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Payments.UpdateStatus(ctx, strings.TrimSpace(c.Param("id")), status); err != nil {
		switch err {
		case repository.ErrPaymentNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "payment not found"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "payment already completed"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

type writeBackReq struct {
	Status             string          `json:"status"`
	Amount             int64           `json:"amount"`
	TransactionID      string          `json:"transactionId"`
	PaymentMethod      string          `json:"paymentMethod"`
	AggregatorResponse json.RawMessage `json:"paymentAggregatorResponse"`
}

// WriteBack is the reconciliation target: it marks a payment completed
// with the transaction id and the raw aggregator payload. The write is
// idempotent, so the reconciler may safely retry it.
func (h *PaymentHandler) WriteBack(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := strings.TrimSpace(c.Param("id"))
	var req writeBackReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if !strings.EqualFold(strings.TrimSpace(req.Status), model.PaymentCompleted) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be completed"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Payments.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrPaymentNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "payment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if p.UserID != userID && getUserRole(c) != model.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	cp := reconcile.CompletedPayment{
		PaymentID:          p.ID,
		Amount:             req.Amount,
		TransactionID:      strings.TrimSpace(req.TransactionID),
		PaymentMethod:      strings.TrimSpace(req.PaymentMethod),
		AggregatorResponse: req.AggregatorResponse,
	}
	if cp.Amount <= 0 {
		cp.Amount = p.Amount
	}
	if cp.TransactionID == "" {
		cp.TransactionID = "txn_" + uuid.NewString()
	}
	if cp.PaymentMethod == "" {
		cp.PaymentMethod = p.PaymentMethod
	}
	if err := h.Complete(ctx, cp); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "write-back failed"})
	}

	p, err = h.Payments.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toPaymentResp(p))
}

// Complete persists the terminal write-back, confirms the booking and
// publishes the payment.completed event. The publish is best-effort:
// the payment record is the source of truth, the event only feeds
// downstream consumers. Satisfies reconcile.PaymentRecorder.
func (h *PaymentHandler) Complete(ctx context.Context, cp reconcile.CompletedPayment) error {
	if err := h.Payments.Complete(ctx, cp.PaymentID, cp.Amount, cp.TransactionID, cp.PaymentMethod, string(cp.AggregatorResponse)); err != nil {
		return err
	}
	p, err := h.Payments.GetByID(ctx, cp.PaymentID)
	if err != nil {
		return err
	}
	b, err := h.Bookings.GetByID(ctx, p.BookingID)
	if err == nil && b.Status == model.BookingPending {
		if err := h.Bookings.UpdateStatus(ctx, b.ID, model.BookingConfirmed); err != nil {
			log.Printf("payment: booking %s confirm failed: %v", b.ID, err)
		}
	}
	evt := queue.PaymentCompletedEvent{
		PaymentID:     p.ID,
		BookingID:     p.BookingID,
		UserID:        p.UserID,
		Amount:        cp.Amount,
		Currency:      p.Currency,
		PaymentMethod: cp.PaymentMethod,
		TransactionID: cp.TransactionID,
		SessionType:   b.SessionType,
		CompletedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if err := qp.PublishPaymentCompleted(ctx, evt); err != nil {
		log.Printf("payment: event publish failed for %s: %v", p.ID, err)
	}
	return nil
}

type confirmReq struct {
	Phone string `json:"phone"`
}

// Confirm runs the whole confirmation flow server-side for one payment:
// charge, poll, write back. It blocks until the flow reaches a terminal
// state (worst case roughly 45 seconds at the production cadence), so
// the client gets the final outcome in one request. Closing the request
// cancels the flow.
func (h *PaymentHandler) Confirm(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if h.Gateway == nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "payment gateway not configured"})
	}
	id := strings.TrimSpace(c.Param("id"))
	var req confirmReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	p, err := h.Payments.GetByID(ctx, id)
	cancel()
	if err != nil {
		if err == repository.ErrPaymentNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "payment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if p.UserID != userID && getUserRole(c) != model.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if p.Status == model.PaymentCompleted {
		return c.JSON(http.StatusOK, echo.Map{"state": "succeeded", "message": "payment already completed"})
	}

	r := reconcile.New(h.Gateway, h, reconcile.Options{FallbackAmount: h.Cfg.SessionPriceTZS})
	out := r.Run(c.Request().Context(), reconcile.Attempt{
		BookingID:     p.BookingID,
		PaymentID:     p.ID,
		Phone:         req.Phone,
		Amount:        p.Amount,
		PaymentMethod: p.PaymentMethod,
		CallbackURL:   h.Cfg.PublicBaseURL + "/v1/payments/gateway/callback",
	})

	body := echo.Map{
		"state":    string(out.State),
		"attempts": out.Attempts,
	}
	if out.Message != "" {
		body["message"] = out.Message
	}
	if out.TransactionID != "" {
		body["transaction_id"] = out.TransactionID
	}
	if out.Amount > 0 {
		body["amount"] = out.Amount
	}

	switch out.Kind {
	case reconcile.KindNone, reconcile.KindReconciliationWrite:
		return c.JSON(http.StatusOK, body)
	case reconcile.KindValidation:
		return c.JSON(http.StatusBadRequest, body)
	case reconcile.KindConfiguration:
		return c.JSON(http.StatusInternalServerError, body)
	case reconcile.KindUserCancelled:
		return c.JSON(http.StatusOK, body)
	default:
		// AggregatorRejection, PollingExhausted
		return c.JSON(http.StatusBadGateway, body)
	}
}
