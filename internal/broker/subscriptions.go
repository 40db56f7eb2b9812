package broker

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Concord/internal/hermes"
	"github.com/MikeSquared-Agency/Concord/internal/scoring"
	"github.com/MikeSquared-Agency/Concord/internal/store"
)

// SetupSubscriptions registers NATS subscriptions for inbound task requests
// and progress reports.
func (b *Broker) SetupSubscriptions() {
	if b.hermes == nil {
		return
	}

	if err := b.hermes.Subscribe(hermes.SubjectTaskRequest, func(_ string, data []byte) {
		b.handleTaskRequest(context.Background(), data)
	}); err != nil {
		b.logger.Warn("failed to subscribe", "subject", hermes.SubjectTaskRequest, "error", err)
	}

	if err := b.hermes.Subscribe(hermes.SubjectTaskProgress, func(subject string, data []byte) {
		b.handleTaskProgress(context.Background(), subject, data)
	}); err != nil {
		b.logger.Warn("failed to subscribe", "subject", hermes.SubjectTaskProgress, "error", err)
	}
}

func (b *Broker) handleTaskRequest(ctx context.Context, data []byte) {
	var req hermes.TaskRequestEvent
	if err := json.Unmarshal(data, &req); err != nil {
		b.logger.Warn("invalid task request event", "error", err)
		return
	}

	in := TaskInput{
		Title:          req.Title,
		Description:    req.Description,
		Priority:       req.Priority,
		RequiredSkills: req.RequiredSkills,
		Element:        req.Element,
	}
	if len(req.Affinity) > 0 {
		p := scoring.ProfileFromMap(req.Affinity)
		in.Affinity = &p
	}
	task, err := b.CreateTask(ctx, in)
	if err != nil {
		b.logger.Error("failed to create task from NATS request", "error", err)
		return
	}
	b.logger.Info("task created from NATS request", "task_id", task.ID, "skills", task.RequiredSkills)
}

func (b *Broker) handleTaskProgress(ctx context.Context, subject string, data []byte) {
	id, err := uuid.Parse(hermes.TaskIDFromSubject(subject))
	if err != nil {
		b.logger.Warn("progress event with invalid task id", "subject", subject)
		return
	}
	var evt hermes.TaskProgressEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		b.logger.Warn("invalid progress event", "subject", subject, "error", err)
		return
	}

	upd := StatusUpdate{Status: store.TaskStatus(evt.Status), Progress: evt.Progress}
	if evt.Notes != "" {
		upd.Notes = &evt.Notes
	}
	if upd.Status == "" {
		task, err := b.getTask(ctx, id)
		if err != nil {
			b.logger.Warn("progress event for unknown task", "task_id", id, "error", err)
			return
		}
		upd.Status = task.Status
	}
	if _, err := b.UpdateTaskStatus(ctx, id, upd); err != nil {
		b.logger.Warn("failed to apply progress event", "task_id", id, "error", err)
	}
}
