package file

import (
	"context"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/apertura/sessionflow/pkg/models"
	"github.com/apertura/sessionflow/pkg/persistence"
)

const approvalsDir = "approvals"

// ApprovalRepository stores one JSON file per approval request.
type ApprovalRepository struct {
	persistence *Persistence
}

func (ar *ApprovalRepository) Save(_ context.Context, approval *models.ApprovalRequest) error {
	ar.persistence.mu.Lock()
	defer ar.persistence.mu.Unlock()

	err := ar.persistence.writeJSON(ar.persistence.dir(approvalsDir), approval.ID+".json", approval)
	if err != nil {
		return persistence.NewTaskError("SaveApproval", approval.SessionID, approval.TaskInstanceID, err)
	}

	return nil
}

func (ar *ApprovalRepository) ByID(ctx context.Context, approvalID string) (*models.ApprovalRequest, error) {
	ar.persistence.mu.Lock()
	defer ar.persistence.mu.Unlock()

	return ar.byIDLocked(ctx, approvalID)
}

func (ar *ApprovalRepository) byIDLocked(_ context.Context, approvalID string) (*models.ApprovalRequest, error) {
	var approval models.ApprovalRequest

	found, err := ar.persistence.readJSON(ar.persistence.dir(approvalsDir), approvalID+".json", &approval)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.ErrApprovalNotFound
	}

	return &approval, nil
}

func (ar *ApprovalRepository) OpenByTask(ctx context.Context, taskID string) (*models.ApprovalRequest, error) {
	ar.persistence.mu.Lock()
	defer ar.persistence.mu.Unlock()

	approvals, err := ar.allLocked(ctx)
	if err != nil {
		return nil, err
	}

	for _, approval := range approvals {
		if approval.TaskInstanceID == taskID && approval.Open() {
			return approval, nil
		}
	}

	return nil, persistence.ErrApprovalNotFound
}

func (ar *ApprovalRepository) ListPending(ctx context.Context) ([]*models.ApprovalRequest, error) {
	ar.persistence.mu.Lock()
	defer ar.persistence.mu.Unlock()

	approvals, err := ar.allLocked(ctx)
	if err != nil {
		return nil, err
	}

	pending := make([]*models.ApprovalRequest, 0)

	for _, approval := range approvals {
		if approval.Open() {
			pending = append(pending, approval)
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].SubmittedAt.Before(pending[j].SubmittedAt)
	})

	return pending, nil
}

func (ar *ApprovalRepository) allLocked(ctx context.Context) ([]*models.ApprovalRequest, error) {
	root := os.DirFS(ar.persistence.dir(approvalsDir))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, err
	}

	approvals := make([]*models.ApprovalRequest, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		approval, err := ar.byIDLocked(ctx, strings.TrimSuffix(file, ".json"))
		if err != nil {
			if persistence.IsApprovalNotFound(err) {
				continue
			}

			return nil, err
		}

		approvals = append(approvals, approval)
	}

	return approvals, nil
}
