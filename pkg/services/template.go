package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/apertura/sessionflow/pkg/models"
	"github.com/apertura/sessionflow/pkg/persistence"
	"github.com/go-playground/validator/v10"
)

// Template serves and validates the canonical task list per session type.
type Template struct {
	persistence persistence.Persistence
	validate    *validator.Validate
}

// NewTemplate creates a new template service.
func NewTemplate(p persistence.Persistence) *Template {
	return &Template{
		persistence: p,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Get returns the template for a session type, or ErrNoTemplate.
func (s *Template) Get(ctx context.Context, sessionType string) (*models.TimelineTemplate, error) {
	template, err := s.persistence.TemplateRepository().BySessionType(ctx, sessionType)
	if err != nil {
		if persistence.IsTemplateNotFound(err) {
			return nil, fmt.Errorf("session type %q: %w", sessionType, ErrNoTemplate)
		}

		return nil, fmt.Errorf("failed to fetch template: %w", err)
	}

	return template, nil
}

// Put validates and stores the template, replacing any prior version for the
// same session type atomically.
func (s *Template) Put(ctx context.Context, template *models.TimelineTemplate) (*models.TimelineTemplate, error) {
	if err := s.validate.Struct(template); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return nil, NewValidationError("PutTemplate", "INVALID_TEMPLATE", validationErrors.Error(), ErrInvalidTemplate)
		}

		return nil, NewValidationError("PutTemplate", "INVALID_TEMPLATE", err.Error(), ErrInvalidTemplate)
	}

	if err := template.Validate(); err != nil {
		return nil, NewValidationError("PutTemplate", "INVALID_TEMPLATE", err.Error(), ErrInvalidTemplate)
	}

	if err := s.persistence.TemplateRepository().Save(ctx, template); err != nil {
		return nil, fmt.Errorf("failed to save template: %w", err)
	}

	return template, nil
}

// List returns every stored template.
func (s *Template) List(ctx context.Context) ([]*models.TimelineTemplate, error) {
	templates, err := s.persistence.TemplateRepository().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	return templates, nil
}

// Delete removes the template for a session type. Deleting an absent template
// is not an error.
func (s *Template) Delete(ctx context.Context, sessionType string) error {
	if err := s.persistence.TemplateRepository().Delete(ctx, sessionType); err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}

	return nil
}

// HealthCheck checks the health of the persistence layer.
func (s *Template) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}
