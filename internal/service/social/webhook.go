package social

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/quillforge/quill/internal/models"
)

// WebhookPublisher posts to a network through a downstream posting service.
// One instance per network, all sharing the same base URL.
type WebhookPublisher struct {
	network string
	baseURL string
	client  *http.Client
}

func NewWebhookPublisher(network, baseURL string) *WebhookPublisher {
	return &WebhookPublisher{
		network: network,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (p *WebhookPublisher) Network() string {
	return p.network
}

func (p *WebhookPublisher) Publish(ctx context.Context, post *models.SocialPost) error {
	payload := map[string]string{
		"network": post.Network,
		"account": post.Account,
		"content": post.Content,
		"blogId":  post.BlogID,
		"portal":  post.Portal,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal post payload: %w", err)
	}

	url := fmt.Sprintf("%s/v1/%s/posts", p.baseURL, p.network)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.network, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("publish to %s failed with status %d: %s", p.network, resp.StatusCode, string(respBody))
	}

	return nil
}
