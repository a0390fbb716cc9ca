package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/amanicare/therapy-booking/internal/aggregator"
	"github.com/amanicare/therapy-booking/internal/config"
	"github.com/amanicare/therapy-booking/internal/utils"
)

// GatewayHandler proxies the mobile-money aggregator so the API key
// never reaches a client. It forwards requests nearly verbatim and
// normalizes responses; it does not touch the database.
type GatewayHandler struct {
	Cfg     config.Config
	Gateway *aggregator.Client
}

func NewGatewayHandler(cfg config.Config, gw *aggregator.Client) *GatewayHandler {
	return &GatewayHandler{Cfg: cfg, Gateway: gw}
}

type chargeReq struct {
	Phone       string `json:"phone"`
	Amount      int64  `json:"amount"`
	OrderID     string `json:"order_id"`
	CallbackURL string `json:"callback_url"`
}

// Charge initiates a push-payment prompt on the payer's phone.
// POST /v1/payments/gateway/charge
func (h *GatewayHandler) Charge(c echo.Context) error {
	var req chargeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}
	req.OrderID = strings.TrimSpace(req.OrderID)
	if req.Phone == "" || req.Amount <= 0 || req.OrderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "phone, amount and order_id are required"})
	}
	phone, ok := utils.NormalizePhone(req.Phone)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "phone must be a valid Tanzanian mobile number"})
	}
	if req.CallbackURL == "" {
		req.CallbackURL = h.Cfg.PublicBaseURL + "/v1/payments/gateway/callback"
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 20*time.Second)
	defer cancel()

	res, err := h.Gateway.CreateCharge(ctx, aggregator.ChargeRequest{
		Phone:       phone,
		Amount:      req.Amount,
		OrderID:     req.OrderID,
		CallbackURL: req.CallbackURL,
	})
	if err != nil {
		return gatewayError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"result":     res.Result,
		"message":    res.Message,
		"reference":  res.Reference,
		"transid":    res.TransID,
		"resultcode": res.ResultCode,
	})
}

// Status checks a charge by order id and returns the canonical status.
// GET /v1/payments/gateway/status?order_id=...
func (h *GatewayHandler) Status(c echo.Context) error {
	orderID := strings.TrimSpace(c.QueryParam("order_id"))
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "order_id is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 20*time.Second)
	defer cancel()

	res, err := h.Gateway.ChargeStatus(ctx, orderID)
	if err != nil {
		return gatewayError(c, err)
	}
	body := echo.Map{
		"order_id":       res.OrderID,
		"payment_status": string(res.Status),
	}
	if res.TransactionID != "" {
		body["transaction_id"] = res.TransactionID
	}
	if amt, ok := res.AmountTZS(); ok {
		body["amount"] = amt
	}
	if res.CreatedAt != "" {
		body["created_at"] = res.CreatedAt
	}
	if res.UpdatedAt != "" {
		body["updated_at"] = res.UpdatedAt
	}
	return c.JSON(http.StatusOK, body)
}

// gatewayError maps aggregator client errors onto proxy responses:
// config problems are ours (500), aggregator rejections keep their
// status and message, anything else is a plain upstream failure.
func gatewayError(c echo.Context, err error) error {
	if errors.Is(err, aggregator.ErrNotConfigured) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "payment gateway not configured"})
	}
	var apiErr *aggregator.APIError
	if errors.As(err, &apiErr) {
		return c.JSON(apiErr.StatusCode, echo.Map{"message": apiErr.Message})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"message": "payment gateway request failed"})
}
