package broker

import (
	"context"
	"time"

	"github.com/MikeSquared-Agency/Concord/internal/hermes"
	"github.com/MikeSquared-Agency/Concord/internal/store"
)

func (b *Broker) statsLoop(ctx context.Context) {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.StatsInterval())
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.publishStats(ctx)
		}
	}
}

// publishStats refreshes the team gauges and broadcasts a stats snapshot.
func (b *Broker) publishStats(ctx context.Context) {
	stats, err := b.store.GetStats(ctx)
	if err != nil {
		b.logger.Error("failed to get stats", "error", err)
		return
	}
	balance, err := b.Balance(ctx, "all")
	if err != nil {
		b.logger.Error("failed to compute balance", "error", err)
		return
	}

	b.metrics.SetTeamState(stats.ActiveMembers, map[string]int{
		string(store.StatusPending):    stats.TotalPending,
		string(store.StatusInProgress): stats.TotalInProgress,
		string(store.StatusCompleted):  stats.TotalCompleted,
		string(store.StatusBlocked):    stats.TotalBlocked,
	}, balance.Deviations)

	b.publish(hermes.SubjectTeamStats, hermes.StatsEvent{
		Members:    stats.TotalMembers,
		Active:     stats.ActiveMembers,
		Pending:    stats.TotalPending,
		InProgress: stats.TotalInProgress,
		Completed:  stats.TotalCompleted,
		Blocked:    stats.TotalBlocked,
		Balanced:   balance.Balanced,
		Timestamp:  b.now().UTC(),
	})
	if !balance.Balanced {
		b.publish(hermes.SubjectTeamBalance, balance)
		b.logger.Info("team out of balance", "warnings", balance.Warnings)
	}
}
