package broker

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Concord/internal/hermes"
	"github.com/MikeSquared-Agency/Concord/internal/scoring"
	"github.com/MikeSquared-Agency/Concord/internal/store"
)

type TaskInput struct {
	Title          string
	Description    string
	Priority       string
	RequiredSkills []string
	// Element is a single dominant element; Affinity a full vector.
	Element  string
	Affinity *scoring.Profile
}

// StatusUpdate changes a task's status; Progress and Notes are optional.
type StatusUpdate struct {
	Status   store.TaskStatus
	Progress *int
	Notes    *string
}

func normalizePriority(p string) (string, error) {
	p = strings.ToUpper(strings.TrimSpace(p))
	if p == "" {
		return store.DefaultPriority, nil
	}
	if store.PriorityRank(p) == 0 {
		return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, p)
	}
	return p, nil
}

func (b *Broker) CreateTask(ctx context.Context, in TaskInput) (*store.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	priority, err := normalizePriority(in.Priority)
	if err != nil {
		return nil, err
	}

	var element string
	if strings.TrimSpace(in.Element) != "" {
		e, ok := scoring.ParseElement(in.Element)
		if !ok {
			return nil, fmt.Errorf("%w: unknown element %q", ErrInvalidInput, in.Element)
		}
		element = string(e)
	}

	task := &store.Task{
		Title:          title,
		Description:    strings.TrimSpace(in.Description),
		Priority:       priority,
		RequiredSkills: normalizeSkills(in.RequiredSkills),
		Element:        element,
		Affinity:       clampedProfile(in.Affinity),
		Status:         store.StatusPending,
	}
	if err := b.store.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	b.recordEvent(ctx, task.ID, "created", "", nil)
	b.publish(hermes.SubjectTaskCreated(task.ID.String()), hermes.TaskCreatedEvent{
		TaskID:   task.ID.String(),
		Title:    task.Title,
		Priority: task.Priority,
	})
	b.logger.Info("task created", "task_id", task.ID, "title", task.Title, "priority", task.Priority)
	return task, nil
}

func (b *Broker) GetTask(ctx context.Context, id uuid.UUID) (*store.Task, error) {
	return b.getTask(ctx, id)
}

func (b *Broker) ListTasks(ctx context.Context, status *store.TaskStatus) ([]*store.Task, error) {
	tasks, err := b.allTasks(ctx, store.TaskFilter{Status: status})
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []*store.Task{}
	}
	return tasks, nil
}

func (b *Broker) TaskEvents(ctx context.Context, id uuid.UUID) ([]*store.TaskEvent, error) {
	if _, err := b.getTask(ctx, id); err != nil {
		return nil, err
	}
	events, err := b.store.GetTaskEvents(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get task events: %w", err)
	}
	if events == nil {
		events = []*store.TaskEvent{}
	}
	return events, nil
}

// UpdateTaskStatus records progress on a task. Completing a task stamps
// completed_at; moving it out of completed clears it.
func (b *Broker) UpdateTaskStatus(ctx context.Context, id uuid.UUID, upd StatusUpdate) (*store.Task, error) {
	if !upd.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, upd.Status)
	}
	if upd.Progress != nil && (*upd.Progress < 0 || *upd.Progress > 100) {
		return nil, fmt.Errorf("%w: progress must be between 0 and 100", ErrInvalidInput)
	}

	task, err := b.getTask(ctx, id)
	if err != nil {
		return nil, err
	}

	from := task.Status
	task.Status = upd.Status
	if upd.Progress != nil {
		task.Progress = *upd.Progress
	}
	if upd.Notes != nil && *upd.Notes != "" {
		task.Notes = *upd.Notes
	}
	switch {
	case upd.Status == store.StatusCompleted && task.CompletedAt == nil:
		now := b.now().UTC()
		task.CompletedAt = &now
	case upd.Status != store.StatusCompleted:
		task.CompletedAt = nil
	}

	if err := b.store.UpdateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	member := ""
	if task.AssignedTo != nil {
		member = task.AssignedTo.String()
	}
	b.recordEvent(ctx, task.ID, "status", member, map[string]interface{}{
		"from":     string(from),
		"to":       string(task.Status),
		"progress": task.Progress,
	})
	b.publish(hermes.SubjectTaskStatusChanged(task.ID.String()), hermes.TaskStatusEvent{
		TaskID:   task.ID.String(),
		From:     string(from),
		To:       string(task.Status),
		Progress: task.Progress,
	})
	b.logger.Info("task status updated", "task_id", task.ID, "from", from, "to", task.Status, "progress", task.Progress)
	return task, nil
}

func (b *Broker) Stats(ctx context.Context) (*store.TaskStats, error) {
	return b.store.GetStats(ctx)
}
