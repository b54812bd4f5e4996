package file

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apertura/sessionflow/pkg/models"
	"github.com/apertura/sessionflow/pkg/persistence"
)

const timelinesDir = "timelines"

// TaskRepository stores one JSON file per session timeline. Task lookups scan
// the timeline files; acceptable for the dataset sizes this adapter serves.
type TaskRepository struct {
	persistence *Persistence
}

func timelineFileName(sessionID string) string {
	return sessionID + ".json"
}

func (tr *TaskRepository) CreateTimeline(_ context.Context, timeline *models.Timeline) error {
	tr.persistence.mu.Lock()
	defer tr.persistence.mu.Unlock()

	dir := tr.persistence.dir(timelinesDir)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return persistence.NewTimelineError("CreateTimeline", timeline.SessionID, err)
	}

	now := time.Now().UTC()
	timeline.CreatedAt = now
	timeline.UpdatedAt = now

	// O_EXCL makes the existence check and the create one atomic unit, even
	// across processes sharing the same root.
	path := filepath.Join(dir, timelineFileName(timeline.SessionID))

	handle, err := os.OpenFile(filepath.Clean(path), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if os.IsExist(err) {
			return persistence.NewTimelineError("CreateTimeline", timeline.SessionID, persistence.ErrTimelineExists)
		}

		return persistence.NewTimelineError("CreateTimeline", timeline.SessionID, err)
	}

	if err := handle.Close(); err != nil {
		return persistence.NewTimelineError("CreateTimeline", timeline.SessionID, err)
	}

	err = tr.persistence.writeJSON(dir, timelineFileName(timeline.SessionID), timeline)
	if err != nil {
		return persistence.NewTimelineError("CreateTimeline", timeline.SessionID, err)
	}

	return nil
}

func (tr *TaskRepository) TimelineBySession(ctx context.Context, sessionID string) (*models.Timeline, error) {
	tr.persistence.mu.Lock()
	defer tr.persistence.mu.Unlock()

	return tr.timelineBySessionLocked(ctx, sessionID)
}

func (tr *TaskRepository) timelineBySessionLocked(_ context.Context, sessionID string) (*models.Timeline, error) {
	var timeline models.Timeline

	found, err := tr.persistence.readJSON(tr.persistence.dir(timelinesDir), timelineFileName(sessionID), &timeline)
	if err != nil {
		return nil, persistence.NewTimelineError("TimelineBySession", sessionID, err)
	}

	if !found {
		return nil, persistence.NewTimelineError("TimelineBySession", sessionID, persistence.ErrTimelineNotFound)
	}

	timeline.SortTasks()

	return &timeline, nil
}

func (tr *TaskRepository) TaskByID(ctx context.Context, taskID string) (*models.TaskInstance, error) {
	tr.persistence.mu.Lock()
	defer tr.persistence.mu.Unlock()

	_, task, err := tr.findTaskLocked(ctx, taskID)
	if err != nil {
		return nil, err
	}

	return task, nil
}

// findTaskLocked scans every timeline for the task instance.
func (tr *TaskRepository) findTaskLocked(ctx context.Context, taskID string) (*models.Timeline, *models.TaskInstance, error) {
	timelines, err := tr.allTimelinesLocked(ctx)
	if err != nil {
		return nil, nil, err
	}

	for _, timeline := range timelines {
		if task := timeline.TaskByID(taskID); task != nil {
			return timeline, task, nil
		}
	}

	return nil, nil, persistence.NewTaskError("TaskByID", "", taskID, persistence.ErrTaskNotFound)
}

func (tr *TaskRepository) allTimelinesLocked(ctx context.Context) ([]*models.Timeline, error) {
	root := os.DirFS(tr.persistence.dir(timelinesDir))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list timeline files: %w", err)
	}

	timelines := make([]*models.Timeline, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		timeline, err := tr.timelineBySessionLocked(ctx, strings.TrimSuffix(file, ".json"))
		if err != nil {
			if persistence.IsTimelineNotFound(err) {
				continue
			}

			return nil, err
		}

		timelines = append(timelines, timeline)
	}

	return timelines, nil
}

func (tr *TaskRepository) SaveTask(ctx context.Context, task *models.TaskInstance) error {
	tr.persistence.mu.Lock()
	defer tr.persistence.mu.Unlock()

	timeline, err := tr.timelineBySessionLocked(ctx, task.SessionID)
	if err != nil {
		return err
	}

	if err := applyTask(timeline, task); err != nil {
		return err
	}

	timeline.UpdatedAt = time.Now().UTC()

	err = tr.persistence.writeJSON(tr.persistence.dir(timelinesDir), timelineFileName(timeline.SessionID), timeline)
	if err != nil {
		return persistence.NewTaskError("SaveTask", task.SessionID, task.ID, err)
	}

	return nil
}

func (tr *TaskRepository) RescheduleTimeline(ctx context.Context, sessionID string, newDate models.Date, tasks []*models.TaskInstance) error {
	tr.persistence.mu.Lock()
	defer tr.persistence.mu.Unlock()

	timeline, err := tr.timelineBySessionLocked(ctx, sessionID)
	if err != nil {
		return err
	}

	for _, task := range tasks {
		if err := applyTask(timeline, task); err != nil {
			return err
		}
	}

	timeline.SessionDate = newDate
	timeline.UpdatedAt = time.Now().UTC()

	err = tr.persistence.writeJSON(tr.persistence.dir(timelinesDir), timelineFileName(sessionID), timeline)
	if err != nil {
		return persistence.NewTimelineError("RescheduleTimeline", sessionID, err)
	}

	return nil
}

// applyTask replaces the stored task after checking the optimistic version
// stamp, then advances the stamp on both copies.
func applyTask(timeline *models.Timeline, task *models.TaskInstance) error {
	stored := timeline.TaskByID(task.ID)
	if stored == nil {
		return persistence.NewTaskError("SaveTask", timeline.SessionID, task.ID, persistence.ErrTaskNotFound)
	}

	if stored.Version != task.Version {
		return persistence.NewTaskError("SaveTask", timeline.SessionID, task.ID, persistence.ErrConcurrentModification)
	}

	task.Version++
	task.UpdatedAt = time.Now().UTC()
	*stored = *task

	return nil
}

func (tr *TaskRepository) ListAutomatable(ctx context.Context, sessionID string) ([]*models.TaskInstance, error) {
	tr.persistence.mu.Lock()
	defer tr.persistence.mu.Unlock()

	var timelines []*models.Timeline

	if sessionID != "" {
		timeline, err := tr.timelineBySessionLocked(ctx, sessionID)
		if err != nil {
			if persistence.IsTimelineNotFound(err) {
				return []*models.TaskInstance{}, nil
			}

			return nil, err
		}

		timelines = []*models.Timeline{timeline}
	} else {
		all, err := tr.allTimelinesLocked(ctx)
		if err != nil {
			return nil, err
		}

		timelines = all
	}

	automatable := make([]*models.TaskInstance, 0)

	for _, timeline := range timelines {
		for _, task := range timeline.Tasks {
			if task.Automatable() {
				automatable = append(automatable, task)
			}
		}
	}

	models.SortTasksByDueDate(automatable)

	return automatable, nil
}
