// Package social fans a generated blog post out to a fixed set of social
// networks. Everything in this package is best-effort: failures are recorded
// on the individual post and logged, never surfaced as the execution's
// overall failure.
package social

import (
	"context"
	"time"

	"github.com/quillforge/quill/internal/models"
)

// PublishResult is the outcome of publishing one post to one network.
type PublishResult struct {
	Network     string     `json:"network"`
	PostID      string     `json:"postId"`
	Success     bool       `json:"success"`
	Error       string     `json:"error,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

// Publisher publishes one post to one network.
type Publisher interface {
	Network() string
	Publish(ctx context.Context, post *models.SocialPost) error
}

// CopyWriter produces network-appropriate announcement copy for a blog post.
// Implemented by the content generator.
type CopyWriter interface {
	GenerateSocialCopy(ctx context.Context, blog *models.GeneratedBlog, network string) (string, error)
}
