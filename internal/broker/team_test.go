package broker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Concord/internal/scoring"
	"github.com/MikeSquared-Agency/Concord/internal/store"
)

func TestRecommendPartners(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ada := f.member(t, "ada", []string{"go"}, &scoring.Profile{Wood: 90})
	f.member(t, "bob", []string{"design"}, &scoring.Profile{Fire: 20})
	f.member(t, "cy", []string{"go"}, &scoring.Profile{Wood: 90})
	f.member(t, "dee", []string{"sql"}, &scoring.Profile{Water: 80})

	partners, err := f.broker.RecommendPartners(ctx, ada.ID, 0)
	require.NoError(t, err)
	require.Len(t, partners, 3)
	for i, p := range partners {
		assert.NotEqual(t, ada.ID.String(), p.MemberID)
		if i > 0 {
			assert.LessOrEqual(t, p.TotalScore, partners[i-1].TotalScore)
		}
	}

	one, err := f.broker.RecommendPartners(ctx, ada.ID, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
	assert.Equal(t, partners[0].MemberID, one[0].MemberID)

	_, err = f.broker.RecommendPartners(ctx, uuid.New(), 0)
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestTeamFit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ada := f.member(t, "ada", nil, &scoring.Profile{Fire: 90})
	f.member(t, "bob", nil, &scoring.Profile{Wood: 80})
	ghost := f.member(t, "ghost", nil, nil)

	fit, err := f.broker.TeamFit(ctx, ada.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, fit.TeamSize)
	assert.True(t, fit.Profiled)
	// bob and ghost average to wood 40; ada's fire fills the weakest gap.
	assert.Equal(t, 40.0, fit.TeamProfile.Wood)
	assert.Equal(t, 40.0, fit.Score)

	fit, err = f.broker.TeamFit(ctx, ghost.ID)
	require.NoError(t, err)
	assert.False(t, fit.Profiled)
	assert.Zero(t, fit.Score)

	_, err = f.broker.TeamFit(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.task(t, "w1", nil, "water")
	f.task(t, "w2", nil, "water")
	f.task(t, "f1", nil, "fire")
	f.task(t, "plain", nil, "")
	done := f.task(t, "wood", nil, "wood")
	_, err := f.broker.UpdateTaskStatus(ctx, done.ID, StatusUpdate{Status: store.StatusCompleted})
	require.NoError(t, err)

	report, err := f.broker.Balance(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "all", report.Timeframe)
	assert.Equal(t, 2, report.Counts["water"])
	assert.Equal(t, 1, report.Counts["fire"])
	assert.Equal(t, 0, report.Counts["wood"], "completed work is ignored")
	assert.Equal(t, 67, report.Percentages["water"])
	assert.False(t, report.Balanced)
	assert.NotEmpty(t, report.Warnings)

	_, err = f.broker.Balance(ctx, "decade")
	assert.ErrorIs(t, err, ErrInvalidInput)

	f.broker.now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	today, err := f.broker.Balance(ctx, "Today")
	require.NoError(t, err)
	assert.Equal(t, "today", today.Timeframe)
	assert.Equal(t, 0, today.Counts["water"])

	week, err := f.broker.Balance(ctx, "week")
	require.NoError(t, err)
	assert.Equal(t, 2, week.Counts["water"])
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ada := f.member(t, "ada", nil, &scoring.Profile{Water: 60})
	bob := f.member(t, "bob", nil, nil)
	_, err := f.broker.DrainMember(ctx, bob.ID)
	require.NoError(t, err)

	urgent, err := f.broker.CreateTask(ctx, TaskInput{Title: "urgent", Priority: "S", Element: "water"})
	require.NoError(t, err)
	stuck := f.task(t, "stuck", nil, "fire")
	f.task(t, "idle", nil, "")

	_, err = f.broker.Assign(ctx, urgent.ID, &ada.ID)
	require.NoError(t, err)
	half := 50
	_, err = f.broker.UpdateTaskStatus(ctx, urgent.ID, StatusUpdate{Status: store.StatusInProgress, Progress: &half})
	require.NoError(t, err)
	_, err = f.broker.Assign(ctx, stuck.ID, &ada.ID)
	require.NoError(t, err)
	_, err = f.broker.UpdateTaskStatus(ctx, stuck.ID, StatusUpdate{Status: store.StatusBlocked})
	require.NoError(t, err)

	t.Run("overview", func(t *testing.T) {
		d, err := f.broker.Dashboard(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, ViewOverview, d.View)
		assert.Equal(t, 2, d.TeamSize)
		assert.Equal(t, 3, d.TotalTasks)
		require.NotNil(t, d.Stats)
		assert.Equal(t, 1, d.Stats.ActiveMembers)
		assert.Equal(t, 1, d.Stats.TasksByStatus["blocked"])
		assert.Equal(t, 1, d.Stats.TasksByStatus["pending"])
		assert.Equal(t, 1, d.Stats.TasksByPriority["S"])
		assert.Equal(t, 0, d.Stats.TasksByPriority["C"])
	})

	t.Run("elements", func(t *testing.T) {
		d, err := f.broker.Dashboard(ctx, "wuxing")
		require.NoError(t, err)
		assert.Equal(t, ViewElements, d.View)
		assert.Equal(t, 1, d.Distribution["water"])
		assert.Equal(t, 1, d.Distribution["fire"])
		require.NotNil(t, d.TeamProfile)
		assert.Equal(t, 30.0, d.TeamProfile.Water)
		assert.Nil(t, d.Stats)
	})

	t.Run("progress", func(t *testing.T) {
		d, err := f.broker.Dashboard(ctx, "progress")
		require.NoError(t, err)
		require.Len(t, d.Progress, 2)
		assert.Equal(t, "ada", d.Progress[0].MemberName)
		assert.Equal(t, 2, d.Progress[0].TotalTasks)
		assert.Equal(t, 25, d.Progress[0].AverageProgress)
		assert.Equal(t, 0, d.Progress[1].TotalTasks)
	})

	t.Run("bottleneck", func(t *testing.T) {
		d, err := f.broker.Dashboard(ctx, "bottleneck")
		require.NoError(t, err)
		require.Len(t, d.Bottlenecks, 1)
		assert.Equal(t, stuck.ID, d.Bottlenecks[0].TaskID)
		assert.Equal(t, "ada", d.Bottlenecks[0].AssignedTo)
	})

	_, err = f.broker.Dashboard(ctx, "heatmap")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
