package service

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/quillforge/quill/internal/models"
)

// TemplateStore manages the content templates executions are based on.
type TemplateStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewTemplateStore(db *gorm.DB, logger *zap.Logger) *TemplateStore {
	return &TemplateStore{db: db, logger: logger}
}

func (s *TemplateStore) Create(template *models.BlogTemplate) (*models.BlogTemplate, error) {
	if template.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if template.Portal == "" {
		return nil, fmt.Errorf("%w: portal is required", ErrValidation)
	}
	if template.ID == "" {
		template.ID = uuid.New().String()
	}

	if err := s.db.Create(template).Error; err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}

	s.logger.Info("Template created",
		zap.String("id", template.ID),
		zap.String("portal", template.Portal),
		zap.String("title", template.Title))

	return template, nil
}

// ListByPortal returns templates belonging to one portal, or every template
// when portal is empty.
func (s *TemplateStore) ListByPortal(portal string) ([]models.BlogTemplate, error) {
	var templates []models.BlogTemplate
	query := s.db.Order("created_at DESC")
	if portal != "" {
		query = query.Where("portal = ?", portal)
	}
	err := query.Find(&templates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

// Resolve picks the template an execution should use: the named one when
// present among the portal's templates, else the first template whose title
// is not the unconfigured placeholder.
func (s *TemplateStore) Resolve(portal, templateID string) (*models.BlogTemplate, error) {
	templates, err := s.ListByPortal(portal)
	if err != nil {
		return nil, err
	}

	if templateID != "" {
		for i := range templates {
			if templates[i].ID == templateID {
				return &templates[i], nil
			}
		}
	}

	for i := range templates {
		if templates[i].Title != models.PlaceholderTemplateTitle {
			return &templates[i], nil
		}
	}

	return nil, fmt.Errorf("%w: portal %s", ErrNoTemplate, portal)
}
