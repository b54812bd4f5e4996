package models

import (
	"sort"
	"time"
)

// Timeline is the per-session aggregate: the session's identity, type and date
// together with every task instance generated for it. A session owns exactly
// one timeline; the store enforces uniqueness at creation time.
type Timeline struct {
	SessionID   string `json:"session_id"   validate:"required"`
	SessionType string `json:"session_type" validate:"required"`
	SessionDate Date   `json:"session_date"`

	// ClientID is optional and only used for read-through display lookups.
	ClientID string `json:"client_id,omitempty"`

	Tasks []*TaskInstance `json:"tasks"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TaskByID finds a task instance on the timeline, or nil.
func (tl *Timeline) TaskByID(taskID string) *TaskInstance {
	for _, task := range tl.Tasks {
		if task.ID == taskID {
			return task
		}
	}

	return nil
}

// SortTasks orders tasks by execution sequence.
func (tl *Timeline) SortTasks() {
	sort.Slice(tl.Tasks, func(i, j int) bool {
		return tl.Tasks[i].Order < tl.Tasks[j].Order
	})
}

// CompletedCount returns how many tasks are done.
func (tl *Timeline) CompletedCount() int {
	count := 0

	for _, task := range tl.Tasks {
		if task.IsCompleted {
			count++
		}
	}

	return count
}

// SortTasksByDueDate orders tasks ascending by adjusted date, breaking ties by
// execution order. This is the ordering of the automation pull queue.
func SortTasksByDueDate(tasks []*TaskInstance) {
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].AdjustedDate.Equal(tasks[j].AdjustedDate) {
			return tasks[i].AdjustedDate.Before(tasks[j].AdjustedDate)
		}

		return tasks[i].Order < tasks[j].Order
	})
}
