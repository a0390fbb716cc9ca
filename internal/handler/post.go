package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/amanicare/therapy-booking/internal/model"
	"github.com/amanicare/therapy-booking/internal/repository"
)

// PostHandler serves the therapist's blog: a public read surface and
// admin-only authoring. The public list goes through the response cache
// middleware, so writes here only become visible when the cache TTL
// rolls over.
type PostHandler struct {
	Posts *repository.PostRepo
}

func NewPostHandler(p *repository.PostRepo) *PostHandler {
	if p == nil {
		panic("nil repository passed to NewPostHandler")
	}
	return &PostHandler{Posts: p}
}

type createPostReq struct {
	Title       string  `json:"title"`
	Body        string  `json:"body"`
	ImageURL    *string `json:"image_url"`
	Published   bool    `json:"published"`
	ScheduledAt *string `json:"scheduled_at"` // YYYY-MM-DD
}

type postResp struct {
	ID          uint64  `json:"id"`
	AuthorID    uint64  `json:"author_id"`
	Title       string  `json:"title"`
	Body        string  `json:"body"`
	ImageURL    *string `json:"image_url,omitempty"`
	Published   bool    `json:"published"`
	ScheduledAt *string `json:"scheduled_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func toPostResp(p model.Post) postResp {
	out := postResp{
		ID:        p.ID,
		AuthorID:  p.AuthorID,
		Title:     p.Title,
		Body:      p.Body,
		ImageURL:  p.ImageURL,
		Published: p.Published,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if p.ScheduledAt != nil {
		s := p.ScheduledAt.Format("2006-01-02")
		out.ScheduledAt = &s
	}
	return out
}

// ListPublic returns published posts, newest first.
func (h *PostHandler) ListPublic(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	published := true
	items, err := h.Posts.List(ctx, &published)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]postResp, 0, len(items))
	for _, p := range items {
		out = append(out, toPostResp(p))
	}
	return c.JSON(http.StatusOK, echo.Map{"posts": out})
}

// GetPublic returns one published post. Unpublished posts 404 here so
// drafts never leak through the public surface.
func (h *PostHandler) GetPublic(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid post id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	p, err := h.Posts.GetByID(ctx, id)
	if err != nil || !p.Published {
		if err != nil && err != repository.ErrPostNotFound {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		return c.JSON(http.StatusNotFound, echo.Map{"error": "post not found"})
	}
	return c.JSON(http.StatusOK, toPostResp(p))
}

// ListAll returns every post including drafts (admin).
func (h *PostHandler) ListAll(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Posts.List(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]postResp, 0, len(items))
	for _, p := range items {
		out = append(out, toPostResp(p))
	}
	return c.JSON(http.StatusOK, echo.Map{"posts": out})
}

// Create adds a post (admin).
func (h *PostHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createPostReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || strings.TrimSpace(req.Body) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and body are required"})
	}
	p := model.Post{
		AuthorID:  userID,
		Title:     req.Title,
		Body:      req.Body,
		ImageURL:  req.ImageURL,
		Published: req.Published,
	}
	if req.ScheduledAt != nil && *req.ScheduledAt != "" {
		t, err := time.Parse("2006-01-02", *req.ScheduledAt)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "scheduled_at must be YYYY-MM-DD"})
		}
		p.ScheduledAt = &t
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id, err := h.Posts.Create(ctx, p)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create post failed"})
	}
	p.ID = id
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	return c.JSON(http.StatusCreated, toPostResp(p))
}

type updatePostReq struct {
	Title       *string `json:"title"`
	Body        *string `json:"body"`
	ImageURL    *string `json:"image_url"`
	Published   *bool   `json:"published"`
	ScheduledAt *string `json:"scheduled_at"`
}

// Update patches a post (admin). Only fields present in the body change.
func (h *PostHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid post id"})
	}
	var req updatePostReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	patch := repository.PostPatch{
		Title:       req.Title,
		Body:        req.Body,
		ImageURL:    req.ImageURL,
		Published:   req.Published,
		ScheduledAt: req.ScheduledAt,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Posts.Update(ctx, id, patch); err != nil {
		if err == repository.ErrPostNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "post not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	p, err := h.Posts.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toPostResp(p))
}

// Delete removes a post (admin).
func (h *PostHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid post id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Posts.Delete(ctx, id); err != nil {
		if err == repository.ErrPostNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "post not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
