package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskInstance_CompleteAndReopen(t *testing.T) {
	task := &TaskInstance{
		ID:               "task-1",
		SessionID:        "session-1",
		TaskName:         "Send preparation guide",
		AutomationStatus: AutomationStatusPending,
	}

	completedAt := time.Date(2025, time.June, 10, 9, 30, 0, 0, time.UTC)
	task.Complete("studio_owner", completedAt)

	assert.True(t, task.IsCompleted)
	assert.Equal(t, AutomationStatusCompleted, task.AutomationStatus)
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, completedAt, *task.CompletedAt)
	require.NotNil(t, task.CompletedBy)
	assert.Equal(t, "studio_owner", *task.CompletedBy)

	task.Reopen()

	assert.False(t, task.IsCompleted)
	assert.Equal(t, AutomationStatusPending, task.AutomationStatus)
	assert.Nil(t, task.CompletedAt)
	assert.Nil(t, task.CompletedBy)
}

func TestTaskInstance_Automatable(t *testing.T) {
	tests := []struct {
		name     string
		task     TaskInstance
		expected bool
	}{
		{
			"automatable pending task",
			TaskInstance{CanAutomate: true, AutomationStatus: AutomationStatusPending},
			true,
		},
		{
			"awaiting approval stays visible",
			TaskInstance{CanAutomate: true, AutomationStatus: AutomationStatusPendingApproval},
			true,
		},
		{
			"manual task",
			TaskInstance{CanAutomate: false, AutomationStatus: AutomationStatusPending},
			false,
		},
		{
			"completed task",
			TaskInstance{CanAutomate: true, IsCompleted: true, AutomationStatus: AutomationStatusCompleted},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.task.Automatable())
		})
	}
}

func TestTaskInstance_ManuallyAdjusted(t *testing.T) {
	task := &TaskInstance{
		CalculatedDate: NewDate(2025, time.June, 8),
		AdjustedDate:   NewDate(2025, time.June, 8),
	}

	assert.False(t, task.ManuallyAdjusted())

	task.AdjustedDate = NewDate(2025, time.June, 9)

	assert.True(t, task.ManuallyAdjusted())
}

func TestSortTasksByDueDate(t *testing.T) {
	tasks := []*TaskInstance{
		{ID: "c", Order: 3, AdjustedDate: NewDate(2025, time.June, 12)},
		{ID: "b", Order: 2, AdjustedDate: NewDate(2025, time.June, 8)},
		{ID: "a", Order: 1, AdjustedDate: NewDate(2025, time.June, 8)},
		{ID: "d", Order: 4, AdjustedDate: NewDate(2025, time.June, 1)},
	}

	SortTasksByDueDate(tasks)

	ids := []string{tasks[0].ID, tasks[1].ID, tasks[2].ID, tasks[3].ID}
	assert.Equal(t, []string{"d", "a", "b", "c"}, ids)
}
