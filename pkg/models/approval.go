package models

import "time"

// ApprovalStatus is the review state of AI-submitted content.
type ApprovalStatus string

const (
	ApprovalStatusPendingReview ApprovalStatus = "pending_review"
	ApprovalStatusApproved      ApprovalStatus = "approved"
	ApprovalStatusRejected      ApprovalStatus = "rejected"
)

// ApprovalRequest holds automation-generated content awaiting human sign-off
// before its task may complete. At most one request per task is open at a time;
// a new submission supersedes the prior open request rather than appending.
type ApprovalRequest struct {
	ID               string         `json:"id"               validate:"required"`
	TaskInstanceID   string         `json:"task_instance_id" validate:"required"`
	SessionID        string         `json:"session_id"       validate:"required"`
	GeneratedContent string         `json:"generated_content"`
	ContentType      string         `json:"content_type"     validate:"required"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	ApprovalStatus   ApprovalStatus `json:"approval_status"`
	SubmittedAt      time.Time      `json:"submitted_at"`
	ResolvedAt       *time.Time     `json:"resolved_at,omitempty"`
}

// Open reports whether the request is still awaiting review.
func (a *ApprovalRequest) Open() bool {
	return a.ApprovalStatus == ApprovalStatusPendingReview
}
