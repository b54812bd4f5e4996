package models

import "time"

// AutomationStatus tracks a task's position in the human/automation handoff.
type AutomationStatus string

const (
	AutomationStatusPending         AutomationStatus = "pending"          // Eligible for automation, nothing in flight
	AutomationStatusPendingApproval AutomationStatus = "pending_approval" // AI content submitted, awaiting human review
	AutomationStatusCompleted       AutomationStatus = "completed"        // Task done, by a human or an approved automation
)

// ActorAIAgentApproved is recorded as CompletedBy when a task completes through
// an approved automation submission.
const ActorAIAgentApproved = "ai_agent_approved"

// TaskInstance is one concrete, dated task belonging to one session, derived
// from a template task definition at generation time.
//
// Invariants: IsCompleted is true iff AutomationStatus is completed, and
// CompletedAt/CompletedBy are set iff IsCompleted.
type TaskInstance struct {
	ID        string `json:"id"         validate:"required"`
	SessionID string `json:"session_id" validate:"required"`
	TaskName  string `json:"task_name"  validate:"required"`

	// CalculatedDate is always session date + OffsetDays. AdjustedDate starts
	// equal to it and may be shifted manually per task; a session reschedule
	// discards the manual shift and resets both.
	CalculatedDate Date `json:"calculated_date"`
	AdjustedDate   Date `json:"adjusted_date"`

	OffsetDays       int     `json:"offset_days"`
	Order            int     `json:"order"`
	CanAutomate      bool    `json:"can_automate"`
	ApprovalRequired bool    `json:"approval_required"`
	EstimatedHours   float64 `json:"estimated_hours"`
	RequiresHuman    bool    `json:"requires_human"`
	CanBatch         bool    `json:"can_batch"`

	IsCompleted      bool             `json:"is_completed"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
	CompletedBy      *string          `json:"completed_by,omitempty"`
	AutomationStatus AutomationStatus `json:"automation_status"`

	// Version is the optimistic concurrency stamp. Writes that target a stale
	// version fail with ErrConcurrentModification and must be retried with
	// fresh state.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Complete marks the task done by the given actor at the given instant.
func (t *TaskInstance) Complete(actor string, at time.Time) {
	t.IsCompleted = true
	t.CompletedAt = &at
	t.CompletedBy = &actor
	t.AutomationStatus = AutomationStatusCompleted
}

// Reopen clears completion state and returns the task to the automatable queue.
func (t *TaskInstance) Reopen() {
	t.IsCompleted = false
	t.CompletedAt = nil
	t.CompletedBy = nil
	t.AutomationStatus = AutomationStatusPending
}

// Automatable reports whether the task belongs in the automation pull queue.
func (t *TaskInstance) Automatable() bool {
	if !t.CanAutomate || t.IsCompleted {
		return false
	}

	return t.AutomationStatus == AutomationStatusPending ||
		t.AutomationStatus == AutomationStatusPendingApproval
}

// ManuallyAdjusted reports whether AdjustedDate has been shifted away from the
// derived date.
func (t *TaskInstance) ManuallyAdjusted() bool {
	return !t.AdjustedDate.Equal(t.CalculatedDate)
}
