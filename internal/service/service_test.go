package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/quillforge/quill/internal/models"
)

// newTestDB opens an isolated in-memory database per test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.BlogSchedule{},
		&models.GeneratedBlog{},
		&models.BlogTemplate{},
		&models.SocialPost{},
		&models.ExecutionRecord{},
	))

	return db
}

func newTestStore(t *testing.T) (*ScheduleStore, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return NewScheduleStore(db, zaptest.NewLogger(t)), db
}

// stubGenerator is a ContentGenerator whose behavior tests control.
type stubGenerator struct {
	failBlog   bool
	failSocial bool
	calls      int
}

func (g *stubGenerator) GenerateBlog(_ context.Context, req GenerateRequest) (*models.GeneratedBlog, error) {
	g.calls++
	if g.failBlog {
		return nil, fmt.Errorf("%w: upstream unavailable", ErrGenerationFailed)
	}
	return &models.GeneratedBlog{
		ID:         uuid.New().String(),
		ScheduleID: req.ScheduleID,
		Portal:     req.Portal,
		Title:      req.Template.Title,
		Content:    "generated body",
		Status:     models.BlogStatusPublished,
		WordCount:  2,
	}, nil
}

func (g *stubGenerator) GenerateSocialCopy(_ context.Context, blog *models.GeneratedBlog, network string) (string, error) {
	if g.failSocial {
		return "", fmt.Errorf("copy generation unavailable")
	}
	return fmt.Sprintf("New on the blog: %s (%s)", blog.Title, network), nil
}
