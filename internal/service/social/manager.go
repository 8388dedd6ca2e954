package social

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/quillforge/quill/internal/models"
)

// Manager holds the registered per-network publishers and the portal→account
// mapping.
type Manager struct {
	publishers map[string]Publisher
	accounts   map[string]string
	writer     CopyWriter
	logger     *zap.Logger
	db         *gorm.DB
}

func NewManager(writer CopyWriter, accounts map[string]string, logger *zap.Logger, db *gorm.DB) *Manager {
	return &Manager{
		publishers: make(map[string]Publisher),
		accounts:   accounts,
		writer:     writer,
		logger:     logger,
		db:         db,
	}
}

func (m *Manager) RegisterPublisher(publisher Publisher) error {
	network := publisher.Network()
	if _, exists := m.publishers[network]; exists {
		return fmt.Errorf("publisher for network %s already registered", network)
	}

	m.publishers[network] = publisher
	m.logger.Info("Social publisher registered", zap.String("network", network))
	return nil
}

// AccountFor normalizes a portal slug to its social account identifier. An
// unmapped portal falls back to the portal slug itself.
func (m *Manager) AccountFor(portal string) string {
	if account, ok := m.accounts[portal]; ok {
		return account
	}
	m.logger.Warn("No social account mapped for portal", zap.String("portal", portal))
	return portal
}

// GenerateAndPublish writes announcement copy for every network in the fixed
// platform set, persists each post, and publishes each one individually.
// One post failing does not block the others.
func (m *Manager) GenerateAndPublish(ctx context.Context, blog *models.GeneratedBlog) []PublishResult {
	account := m.AccountFor(blog.Portal)
	results := make([]PublishResult, 0, len(models.SocialNetworks))

	for _, network := range models.SocialNetworks {
		result := m.publishOne(ctx, blog, network, account)
		results = append(results, result)
	}

	return results
}

func (m *Manager) publishOne(ctx context.Context, blog *models.GeneratedBlog, network, account string) PublishResult {
	post := &models.SocialPost{
		ID:      uuid.New().String(),
		BlogID:  blog.ID,
		Portal:  blog.Portal,
		Network: network,
		Account: account,
		Status:  models.SocialStatusPending,
	}

	content, err := m.writer.GenerateSocialCopy(ctx, blog, network)
	if err != nil {
		m.logger.Warn("Social copy generation failed",
			zap.String("network", network),
			zap.String("blog_id", blog.ID),
			zap.Error(err))
		post.Status = models.SocialStatusFailed
		post.Error = err.Error()
		m.save(post)
		return PublishResult{Network: network, PostID: post.ID, Success: false, Error: err.Error()}
	}
	post.Content = content
	m.save(post)

	publisher, ok := m.publishers[network]
	if !ok {
		err := fmt.Errorf("no publisher registered for network %s", network)
		m.logger.Warn("Social publish skipped", zap.String("network", network), zap.Error(err))
		m.updateStatus(post, models.SocialStatusFailed, err.Error(), nil)
		return PublishResult{Network: network, PostID: post.ID, Success: false, Error: err.Error()}
	}

	if err := publisher.Publish(ctx, post); err != nil {
		m.logger.Warn("Social publish failed",
			zap.String("network", network),
			zap.String("post_id", post.ID),
			zap.Error(err))
		m.updateStatus(post, models.SocialStatusFailed, err.Error(), nil)
		return PublishResult{Network: network, PostID: post.ID, Success: false, Error: err.Error()}
	}

	now := time.Now().UTC()
	m.updateStatus(post, models.SocialStatusPublished, "", &now)

	m.logger.Info("Social post published",
		zap.String("network", network),
		zap.String("post_id", post.ID),
		zap.String("account", account))

	return PublishResult{Network: network, PostID: post.ID, Success: true, PublishedAt: &now}
}

func (m *Manager) save(post *models.SocialPost) {
	if err := m.db.Create(post).Error; err != nil {
		m.logger.Error("Failed to persist social post",
			zap.String("post_id", post.ID), zap.Error(err))
	}
}

func (m *Manager) updateStatus(post *models.SocialPost, status, errMsg string, publishedAt *time.Time) {
	post.Status = status
	post.Error = errMsg
	post.PublishedAt = publishedAt
	if err := m.db.Save(post).Error; err != nil {
		m.logger.Error("Failed to update social post status",
			zap.String("post_id", post.ID), zap.Error(err))
	}
}
