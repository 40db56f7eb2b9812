package broker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Concord/internal/hermes"
	"github.com/MikeSquared-Agency/Concord/internal/store"
)

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestSetupSubscriptions(t *testing.T) {
	f := newFixture(t)
	f.broker.SetupSubscriptions()

	f.hermes.mu.Lock()
	defer f.hermes.mu.Unlock()
	assert.Contains(t, f.hermes.handlers, hermes.SubjectTaskRequest)
	assert.Contains(t, f.hermes.handlers, hermes.SubjectTaskProgress)
}

func TestSetupSubscriptionsWithoutHermes(t *testing.T) {
	f := newFixture(t)
	f.broker.hermes = nil
	f.broker.SetupSubscriptions()
	_, err := f.broker.CreateTask(context.Background(), TaskInput{Title: "offline"})
	assert.NoError(t, err)
}

func TestHandleTaskRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.broker.handleTaskRequest(ctx, mustJSON(t, hermes.TaskRequestEvent{
		Title:          "index docs",
		Priority:       "a",
		RequiredSkills: []string{"search"},
		Affinity:       map[string]float64{"water": 70, "木": 20, "aether": 99},
	}))
	f.broker.handleTaskRequest(ctx, []byte("{not json"))
	f.broker.handleTaskRequest(ctx, mustJSON(t, hermes.TaskRequestEvent{Title: ""}))

	tasks, err := f.broker.ListTasks(ctx, nil)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	task := tasks[0]
	assert.Equal(t, "index docs", task.Title)
	assert.Equal(t, "A", task.Priority)
	require.NotNil(t, task.Affinity)
	assert.Equal(t, 70.0, task.Affinity.Water)
	assert.Equal(t, 20.0, task.Affinity.Wood)
}

func TestHandleTaskProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ada := f.member(t, "ada", nil, nil)
	task := f.task(t, "t", nil, "")
	_, err := f.broker.Assign(ctx, task.ID, &ada.ID)
	require.NoError(t, err)

	subject := "concord.task." + task.ID.String() + ".progress"
	progress := 40
	f.broker.handleTaskProgress(ctx, subject, mustJSON(t, hermes.TaskProgressEvent{Progress: &progress, Notes: "halfway-ish"}))

	got, err := f.broker.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusInProgress, got.Status, "status is kept when omitted")
	assert.Equal(t, 40, got.Progress)
	assert.Equal(t, "halfway-ish", got.Notes)

	f.broker.handleTaskProgress(ctx, subject, mustJSON(t, hermes.TaskProgressEvent{Status: "completed"}))
	got, err = f.broker.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)

	// Bad subjects and payloads are dropped.
	f.broker.handleTaskProgress(ctx, "concord.task.nope.progress", mustJSON(t, hermes.TaskProgressEvent{Status: "blocked"}))
	f.broker.handleTaskProgress(ctx, subject, []byte("{"))
	f.broker.handleTaskProgress(ctx, subject, mustJSON(t, hermes.TaskProgressEvent{Status: "exploded"}))

	got, err = f.broker.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, got.Status)
}

func TestPublishStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.member(t, "ada", nil, nil)
	f.task(t, "fire", nil, "fire")

	f.broker.publishStats(ctx)

	var stats *hermes.StatsEvent
	sawBalance := false
	f.hermes.mu.Lock()
	for _, p := range f.hermes.published {
		switch p.subject {
		case hermes.SubjectTeamStats:
			evt := p.data.(hermes.StatsEvent)
			stats = &evt
		case hermes.SubjectTeamBalance:
			sawBalance = true
		}
	}
	f.hermes.mu.Unlock()

	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.Members)
	assert.Equal(t, 1, stats.Pending)
	assert.False(t, stats.Balanced)
	assert.True(t, sawBalance, "an unbalanced team also publishes the balance report")
}
