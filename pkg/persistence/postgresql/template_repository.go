package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/apertura/sessionflow/pkg/models"
	"github.com/apertura/sessionflow/pkg/persistence"
)

// TemplateRepository handles template-related database operations.
type TemplateRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTemplateRepository creates a new template repository.
func NewTemplateRepository(db *sql.DB, logger *slog.Logger) *TemplateRepository {
	return &TemplateRepository{db: db, logger: logger}
}

func (tr *TemplateRepository) BySessionType(ctx context.Context, sessionType string) (*models.TimelineTemplate, error) {
	query := `
		SELECT session_type, tasks, created_at, updated_at
		FROM timeline_templates
		WHERE session_type = $1
	`

	template, err := tr.scanTemplate(tr.db.QueryRowContext(ctx, query, sessionType))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &persistence.TemplateError{Op: "BySessionType", SessionType: sessionType, Err: persistence.ErrTemplateNotFound}
		}

		return nil, &persistence.TemplateError{Op: "BySessionType", SessionType: sessionType, Err: err}
	}

	return template, nil
}

// Save upserts the template in one statement, replacing any prior task list
// atomically.
func (tr *TemplateRepository) Save(ctx context.Context, template *models.TimelineTemplate) error {
	now := time.Now().UTC()
	if template.CreatedAt.IsZero() {
		template.CreatedAt = now
	}

	template.UpdatedAt = now

	tasks, err := json.Marshal(template.Tasks)
	if err != nil {
		return &persistence.TemplateError{Op: "Save", SessionType: template.SessionType, Err: err}
	}

	query := `
		INSERT INTO timeline_templates (session_type, tasks, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_type)
		DO UPDATE SET tasks = EXCLUDED.tasks, updated_at = EXCLUDED.updated_at
	`

	_, err = tr.db.ExecContext(ctx, query, template.SessionType, tasks, template.CreatedAt, template.UpdatedAt)
	if err != nil {
		return &persistence.TemplateError{Op: "Save", SessionType: template.SessionType, Err: err}
	}

	return nil
}

func (tr *TemplateRepository) List(ctx context.Context) ([]*models.TimelineTemplate, error) {
	query := `
		SELECT session_type, tasks, created_at, updated_at
		FROM timeline_templates
		ORDER BY session_type
	`

	rows, err := tr.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			tr.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	var templates []*models.TimelineTemplate

	for rows.Next() {
		template, err := tr.scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}

		templates = append(templates, template)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating templates: %w", err)
	}

	return templates, nil
}

func (tr *TemplateRepository) Delete(ctx context.Context, sessionType string) error {
	_, err := tr.db.ExecContext(ctx, "DELETE FROM timeline_templates WHERE session_type = $1", sessionType)
	if err != nil {
		return &persistence.TemplateError{Op: "Delete", SessionType: sessionType, Err: err}
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (tr *TemplateRepository) scanTemplate(row rowScanner) (*models.TimelineTemplate, error) {
	var (
		template models.TimelineTemplate
		tasks    []byte
	)

	err := row.Scan(&template.SessionType, &tasks, &template.CreatedAt, &template.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(tasks, &template.Tasks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal template tasks: %w", err)
	}

	return &template, nil
}
