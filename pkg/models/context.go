package models

// SessionPhase is the coarse temporal classification of a session relative to
// a reference date.
type SessionPhase string

const (
	SessionPhaseUpcoming    SessionPhase = "upcoming"    // More than a week out
	SessionPhasePreparation SessionPhase = "preparation" // Within a week
	SessionPhaseImminent    SessionPhase = "imminent"    // Within three days
	SessionPhaseCompleted   SessionPhase = "completed"   // Session date has passed
)

// PhaseFor classifies a session by how many whole days remain until it.
func PhaseFor(daysUntilSession int) SessionPhase {
	switch {
	case daysUntilSession < 0:
		return SessionPhaseCompleted
	case daysUntilSession <= 3:
		return SessionPhaseImminent
	case daysUntilSession <= 7:
		return SessionPhasePreparation
	default:
		return SessionPhaseUpcoming
	}
}

// SessionContext is the read-only summary view derived from current task
// state, consumed by dashboards and chat-context assembly.
type SessionContext struct {
	SessionID          string          `json:"session_id"`
	SessionType        string          `json:"session_type"`
	SessionDate        Date            `json:"session_date"`
	ClientName         string          `json:"client_name,omitempty"`
	DaysUntilSession   int             `json:"days_until_session"`
	Phase              SessionPhase    `json:"phase"`
	ProgressPercentage int             `json:"progress_percentage"`
	TotalTasks         int             `json:"total_tasks"`
	CompletedTasks     int             `json:"completed_tasks"`
	NextTask           *TaskInstance   `json:"next_task,omitempty"`
	OverdueTasks       []*TaskInstance `json:"overdue_tasks"`
}
