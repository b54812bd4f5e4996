package file

import (
	"context"
	"io/fs"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/apertura/sessionflow/pkg/models"
	"github.com/apertura/sessionflow/pkg/persistence"
)

const templatesDir = "templates"

// TemplateRepository stores one JSON file per session type.
type TemplateRepository struct {
	persistence *Persistence
}

// templateFileName escapes the session type so values like "Portrait Session"
// are valid file names.
func templateFileName(sessionType string) string {
	return url.PathEscape(sessionType) + ".json"
}

func (tr *TemplateRepository) BySessionType(ctx context.Context, sessionType string) (*models.TimelineTemplate, error) {
	tr.persistence.mu.Lock()
	defer tr.persistence.mu.Unlock()

	return tr.bySessionTypeLocked(ctx, sessionType)
}

func (tr *TemplateRepository) bySessionTypeLocked(_ context.Context, sessionType string) (*models.TimelineTemplate, error) {
	var template models.TimelineTemplate

	found, err := tr.persistence.readJSON(tr.persistence.dir(templatesDir), templateFileName(sessionType), &template)
	if err != nil {
		return nil, &persistence.TemplateError{Op: "BySessionType", SessionType: sessionType, Err: err}
	}

	if !found {
		return nil, &persistence.TemplateError{Op: "BySessionType", SessionType: sessionType, Err: persistence.ErrTemplateNotFound}
	}

	return &template, nil
}

func (tr *TemplateRepository) Save(_ context.Context, template *models.TimelineTemplate) error {
	tr.persistence.mu.Lock()
	defer tr.persistence.mu.Unlock()

	now := time.Now().UTC()
	if template.CreatedAt.IsZero() {
		template.CreatedAt = now
	}

	template.UpdatedAt = now

	err := tr.persistence.writeJSON(tr.persistence.dir(templatesDir), templateFileName(template.SessionType), template)
	if err != nil {
		return &persistence.TemplateError{Op: "Save", SessionType: template.SessionType, Err: err}
	}

	return nil
}

func (tr *TemplateRepository) List(ctx context.Context) ([]*models.TimelineTemplate, error) {
	tr.persistence.mu.Lock()
	defer tr.persistence.mu.Unlock()

	root := os.DirFS(tr.persistence.dir(templatesDir))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, &persistence.TemplateError{Op: "List", Err: err}
	}

	templates := make([]*models.TimelineTemplate, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		sessionType, err := url.PathUnescape(strings.TrimSuffix(file, ".json"))
		if err != nil {
			continue
		}

		template, err := tr.bySessionTypeLocked(ctx, sessionType)
		if err != nil {
			if persistence.IsTemplateNotFound(err) {
				continue
			}

			return nil, err
		}

		templates = append(templates, template)
	}

	sort.Slice(templates, func(i, j int) bool {
		return templates[i].SessionType < templates[j].SessionType
	})

	return templates, nil
}

func (tr *TemplateRepository) Delete(_ context.Context, sessionType string) error {
	tr.persistence.mu.Lock()
	defer tr.persistence.mu.Unlock()

	path := tr.persistence.dir(templatesDir) + string(os.PathSeparator) + templateFileName(sessionType)

	err := os.Remove(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return &persistence.TemplateError{Op: "Delete", SessionType: sessionType, Err: err}
	}

	return nil
}
