package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/amanicare/therapy-booking/internal/model"
)

// ErrPostNotFound is returned when no post matches the given id.
var ErrPostNotFound = errors.New("post not found")

// PostRepo persists blog posts written by the therapist.
type PostRepo struct{ db *sql.DB }

func NewPostRepo(db *sql.DB) *PostRepo { return &PostRepo{db: db} }

const postCols = "id,author_id,title,body,image_url,published,scheduled_at,created_at,updated_at"

func scanPost(row interface{ Scan(...interface{}) error }) (model.Post, error) {
	var p model.Post
	err := row.Scan(&p.ID, &p.AuthorID, &p.Title, &p.Body, &p.ImageURL, &p.Published,
		&p.ScheduledAt, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// Create inserts a post and returns its id.
func (r *PostRepo) Create(ctx context.Context, p model.Post) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO posts (author_id, title, body, image_url, published, scheduled_at) VALUES (?,?,?,?,?,?)",
		p.AuthorID, p.Title, p.Body, p.ImageURL, p.Published, p.ScheduledAt)
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()
	return uint64(id), nil
}

// GetByID fetches a post by id.
func (r *PostRepo) GetByID(ctx context.Context, id uint64) (model.Post, error) {
	p, err := scanPost(r.db.QueryRowContext(ctx,
		"SELECT "+postCols+" FROM posts WHERE id=? LIMIT 1", id))
	if err == sql.ErrNoRows {
		return p, ErrPostNotFound
	}
	return p, err
}

// List returns posts, newest first. When published is non-nil the list
// is filtered by the published flag (public callers only see true).
func (r *PostRepo) List(ctx context.Context, published *bool) ([]model.Post, error) {
	query := "SELECT " + postCols + " FROM posts"
	var args []interface{}
	if published != nil {
		query += " WHERE published=?"
		args = append(args, *published)
	}
	query += " ORDER BY created_at DESC"
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PostPatch carries the optional fields of a partial update; nil
// pointers leave the corresponding column untouched.
type PostPatch struct {
	Title       *string
	Body        *string
	ImageURL    *string
	Published   *bool
	ScheduledAt *string
}

// Update applies a partial update to a post.
func (r *PostRepo) Update(ctx context.Context, id uint64, patch PostPatch) error {
	set := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)
	if patch.Title != nil {
		set = append(set, "title=?")
		args = append(args, *patch.Title)
	}
	if patch.Body != nil {
		set = append(set, "body=?")
		args = append(args, *patch.Body)
	}
	if patch.ImageURL != nil {
		set = append(set, "image_url=?")
		args = append(args, *patch.ImageURL)
	}
	if patch.Published != nil {
		set = append(set, "published=?")
		args = append(args, *patch.Published)
	}
	if patch.ScheduledAt != nil {
		set = append(set, "scheduled_at=?")
		args = append(args, *patch.ScheduledAt)
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.db.ExecContext(ctx,
		"UPDATE posts SET "+strings.Join(set, ", ")+" WHERE id=?", args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a post.
func (r *PostRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM posts WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPostNotFound
	}
	return nil
}
