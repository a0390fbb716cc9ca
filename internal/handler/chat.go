package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/amanicare/therapy-booking/internal/chat"
)

// ChatHandler proxies the messaging provider: account provisioning and
// auth-token minting, both keyed to the authenticated user so one
// client can never mint a token for another's chat identity.
type ChatHandler struct {
	Chat *chat.Client
}

func NewChatHandler(ch *chat.Client) *ChatHandler {
	return &ChatHandler{Chat: ch}
}

type chatUserReq struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// CreateUser provisions the caller's chat account. Re-provisioning an
// existing account is a success, so the endpoint is safe to call on
// every login.
func (h *ChatHandler) CreateUser(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if h.Chat == nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "chat is not configured"})
	}
	var req chatUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Name == "" {
		req.Name = "Client " + strconv.FormatUint(userID, 10)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	u, err := h.Chat.CreateUser(ctx, strconv.FormatUint(userID, 10), req.Name, req.Avatar)
	if err != nil {
		return chatError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"uid": u.UID, "name": u.Name})
}

// AuthToken mints a chat auth token for the caller.
func (h *ChatHandler) AuthToken(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if h.Chat == nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "chat is not configured"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	token, err := h.Chat.AuthToken(ctx, strconv.FormatUint(userID, 10))
	if err != nil {
		return chatError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"auth_token": token})
}

func chatError(c echo.Context, err error) error {
	if errors.Is(err, chat.ErrNotConfigured) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "chat is not configured"})
	}
	var apiErr *chat.APIError
	if errors.As(err, &apiErr) {
		return c.JSON(apiErr.StatusCode, echo.Map{"message": apiErr.Message})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"message": "chat request failed"})
}
