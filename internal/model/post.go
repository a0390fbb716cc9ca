package model

import "time"

// Post is an article written by the therapist for the public blog.
// Unpublished posts are only visible to admins; the published flag can
// be toggled back and forth without losing the scheduled date.
//
// Fields:
//  ID          – primary key identifier.
//  AuthorID    – admin user who wrote the post.
//  Title       – post title.
//  Body        – post body (markdown/plain text).
//  ImageURL    – optional header image (nullable).
//  Published   – whether the post is publicly visible.
//  ScheduledAt – optional scheduled publish date (nullable).
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Post struct {
    ID          uint64     // posts.id
    AuthorID    uint64     // posts.author_id
    Title       string     // posts.title
    Body        string     // posts.body
    ImageURL    *string    // posts.image_url (nullable)
    Published   bool       // posts.published
    ScheduledAt *time.Time // posts.scheduled_at (nullable)
    CreatedAt   time.Time  // posts.created_at
    UpdatedAt   time.Time  // posts.updated_at
}
