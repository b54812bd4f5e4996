// Package file provides file-based persistence for templates, timelines and
// approvals. Intended for development and tests; a process-wide mutex gives the
// atomicity the engine requires, and writes go through temp-file renames so
// readers never observe a partially-written record.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/apertura/sessionflow/pkg/persistence"
)

// Persistence implements persistence.Persistence on the local file system.
type Persistence struct {
	root string
	mu   sync.Mutex

	templateRepo *TemplateRepository
	taskRepo     *TaskRepository
	approvalRepo *ApprovalRepository
}

// NewPersistence creates a file persistence layer rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	p := &Persistence{root: cleanRoot}
	p.templateRepo = &TemplateRepository{persistence: p}
	p.taskRepo = &TaskRepository{persistence: p}
	p.approvalRepo = &ApprovalRepository{persistence: p}

	return p
}

// Close performs any necessary cleanup. Nothing to do for files.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (p *Persistence) TemplateRepository() persistence.TemplateRepository {
	return p.templateRepo
}

func (p *Persistence) TaskRepository() persistence.TaskRepository {
	return p.taskRepo
}

func (p *Persistence) ApprovalRepository() persistence.ApprovalRepository {
	return p.approvalRepo
}

func (p *Persistence) dir(kind string) string {
	return filepath.Join(p.root, kind)
}

// writeJSON marshals v and atomically replaces the target file.
func (p *Persistence) writeJSON(dir, name string, v any) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to close temp file for %s: %w", name, err)
	}

	return os.Rename(tmp.Name(), filepath.Join(dir, name))
}

// readJSON loads a file into v; reports found=false when the file is absent.
func (p *Persistence) readJSON(dir, name string, v any) (bool, error) {
	body, err := os.ReadFile(filepath.Clean(filepath.Join(dir, name)))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read %s: %w", name, err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", name, err)
	}

	return true, nil
}
