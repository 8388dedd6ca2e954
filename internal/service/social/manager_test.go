package social

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/quillforge/quill/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.SocialPost{}))
	return db
}

type stubWriter struct {
	fail bool
}

func (w *stubWriter) GenerateSocialCopy(_ context.Context, blog *models.GeneratedBlog, network string) (string, error) {
	if w.fail {
		return "", fmt.Errorf("copy generation unavailable")
	}
	return fmt.Sprintf("Read %s on %s", blog.Title, network), nil
}

type stubPublisher struct {
	network string
	failFor map[string]bool
	calls   int
}

func (p *stubPublisher) Network() string {
	return p.network
}

func (p *stubPublisher) Publish(_ context.Context, post *models.SocialPost) error {
	p.calls++
	if p.failFor[p.network] {
		return fmt.Errorf("%s rejected the post", p.network)
	}
	return nil
}

func newTestManager(t *testing.T, writer CopyWriter, failFor map[string]bool) (*Manager, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	manager := NewManager(writer, map[string]string{"demo": "acct-demo"}, zaptest.NewLogger(t), db)
	for _, network := range models.SocialNetworks {
		require.NoError(t, manager.RegisterPublisher(&stubPublisher{network: network, failFor: failFor}))
	}
	return manager, db
}

func testBlog() *models.GeneratedBlog {
	return &models.GeneratedBlog{
		ID:     uuid.New().String(),
		Portal: "demo",
		Title:  "Hello World",
	}
}

func TestManagerPublishesAllNetworks(t *testing.T) {
	manager, db := newTestManager(t, &stubWriter{}, nil)

	results := manager.GenerateAndPublish(context.Background(), testBlog())
	require.Len(t, results, len(models.SocialNetworks))
	for _, result := range results {
		assert.True(t, result.Success, result.Network)
		assert.NotNil(t, result.PublishedAt)
	}

	var count int64
	require.NoError(t, db.Model(&models.SocialPost{}).Where("status = ?", models.SocialStatusPublished).Count(&count).Error)
	assert.EqualValues(t, len(models.SocialNetworks), count)
}

func TestManagerPerPostFailureIsolation(t *testing.T) {
	// One network rejecting its post does not block the others.
	manager, db := newTestManager(t, &stubWriter{}, map[string]bool{"twitter": true})

	results := manager.GenerateAndPublish(context.Background(), testBlog())

	succeeded := 0
	for _, result := range results {
		if result.Network == "twitter" {
			assert.False(t, result.Success)
			assert.NotEmpty(t, result.Error)
		} else if result.Success {
			succeeded++
		}
	}
	assert.Equal(t, len(models.SocialNetworks)-1, succeeded)

	var failed models.SocialPost
	require.NoError(t, db.First(&failed, "network = ?", "twitter").Error)
	assert.Equal(t, models.SocialStatusFailed, failed.Status)
}

func TestManagerCopyFailureRecordsPost(t *testing.T) {
	manager, db := newTestManager(t, &stubWriter{fail: true}, nil)

	results := manager.GenerateAndPublish(context.Background(), testBlog())
	for _, result := range results {
		assert.False(t, result.Success)
	}

	var count int64
	require.NoError(t, db.Model(&models.SocialPost{}).Where("status = ?", models.SocialStatusFailed).Count(&count).Error)
	assert.EqualValues(t, len(models.SocialNetworks), count)
}

func TestManagerAccountFor(t *testing.T) {
	manager, _ := newTestManager(t, &stubWriter{}, nil)

	assert.Equal(t, "acct-demo", manager.AccountFor("demo"))
	// Unmapped portals fall back to the portal slug.
	assert.Equal(t, "unknown", manager.AccountFor("unknown"))
}

func TestManagerRejectsDuplicatePublisher(t *testing.T) {
	manager, _ := newTestManager(t, &stubWriter{}, nil)
	err := manager.RegisterPublisher(&stubPublisher{network: "twitter"})
	assert.Error(t, err)
}
