package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Concord/internal/config"
	"github.com/MikeSquared-Agency/Concord/internal/hermes"
	"github.com/MikeSquared-Agency/Concord/internal/metrics"
	"github.com/MikeSquared-Agency/Concord/internal/scoring"
	"github.com/MikeSquared-Agency/Concord/internal/store"
)

// Broker turns store records into engine snapshots and applies the engine's
// decisions back to the store. It is the single entry point for the HTTP API,
// the MCP tools and the event subscriptions.
type Broker struct {
	store   store.Store
	hermes  hermes.Client
	metrics *metrics.Metrics
	scorer  *scoring.Scorer
	cfg     *config.Config
	logger  *slog.Logger

	defaultStrategy scoring.Strategy
	now             func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New builds a broker. h and m may be nil.
func New(s store.Store, h hermes.Client, m *metrics.Metrics, cfg *config.Config, logger *slog.Logger) *Broker {
	strategy, err := scoring.ParseStrategy(cfg.Matching.DefaultStrategy)
	if err != nil {
		logger.Warn("invalid default strategy, using hybrid", "strategy", cfg.Matching.DefaultStrategy)
		strategy = scoring.StrategyHybrid
	}

	return &Broker{
		store:           s,
		hermes:          h,
		metrics:         m,
		scorer:          scoring.NewScorer(cfg.WeightSet(), cfg.Matching.ExactSkills, logger),
		cfg:             cfg,
		logger:          logger,
		defaultStrategy: strategy,
		now:             time.Now,
		stopCh:          make(chan struct{}),
	}
}

func (b *Broker) Start(ctx context.Context) {
	if b.cfg.Assignment.AutoAssignEnabled {
		b.wg.Add(1)
		go b.assignmentLoop(ctx)
	}
	if b.cfg.Assignment.StatsIntervalMs > 0 {
		b.wg.Add(1)
		go b.statsLoop(ctx)
	}
}

func (b *Broker) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
	b.wg.Wait()
}

func (b *Broker) assignmentLoop(ctx context.Context) {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.processPendingTasks(ctx)
		}
	}
}

// processPendingTasks auto-assigns every pending, unassigned task, most
// urgent priority first.
func (b *Broker) processPendingTasks(ctx context.Context) {
	pending := store.StatusPending
	tasks, err := b.allTasks(ctx, store.TaskFilter{Status: &pending, Unassigned: true})
	if err != nil {
		b.logger.Error("failed to get pending tasks", "error", err)
		return
	}
	if len(tasks) == 0 {
		return
	}

	sort.SliceStable(tasks, func(i, j int) bool {
		return store.PriorityRank(tasks[i].Priority) > store.PriorityRank(tasks[j].Priority)
	})

	b.logger.Info("processing pending tasks", "count", len(tasks))
	for _, task := range tasks {
		_, err := b.Assign(ctx, task.ID, nil)
		switch {
		case err == nil:
		case errors.Is(err, scoring.ErrNoEligibleMember):
			// Nobody can take the rest either.
			return
		case errors.Is(err, ErrTaskNotAssignable):
			b.logger.Debug("task taken before auto-assign", "task_id", task.ID)
		default:
			b.logger.Warn("failed to assign task", "task_id", task.ID, "error", err)
		}
	}
}

// MatchReport is the ranked candidate list for one task.
type MatchReport struct {
	Task         *store.Task           `json:"task"`
	Strategy     scoring.Strategy      `json:"strategy_used"`
	Best         *scoring.MatchResult  `json:"best_match"`
	Candidates   []scoring.MatchResult `json:"all_candidates"`
	NoCandidates bool                  `json:"no_candidates,omitempty"`
}

// FindBestMatch ranks every active member against the task. An empty strategy
// name selects the configured default.
func (b *Broker) FindBestMatch(ctx context.Context, taskID uuid.UUID, strategyName string) (*MatchReport, error) {
	strategy := b.defaultStrategy
	if strategyName != "" {
		s, err := scoring.ParseStrategy(strategyName)
		if err != nil {
			return nil, err
		}
		strategy = s
	}

	task, err := b.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	candidates, err := b.candidates(ctx)
	if err != nil {
		return nil, err
	}

	start := b.now()
	ranking := b.scorer.Rank(taskSnapshot(task), candidates, strategy)
	best, ok := ranking.Best()
	b.metrics.ObserveRanking(string(strategy), best.TotalScore, ok, b.now().Sub(start))

	report := &MatchReport{
		Task:         task,
		Strategy:     strategy,
		Candidates:   ranking.Results,
		NoCandidates: ranking.NoCandidates,
	}
	if report.Candidates == nil {
		report.Candidates = []scoring.MatchResult{}
	}
	if ok {
		report.Best = &best
	}
	return report, nil
}

// Assignment describes the outcome of Assign. Match is nil for explicit
// assignments since no scoring takes place.
type Assignment struct {
	Task   *store.Task          `json:"task"`
	Member *store.Member        `json:"member"`
	Auto   bool                 `json:"auto"`
	Match  *scoring.MatchResult `json:"match,omitempty"`
}

// Assign hands a task to memberID, or to the best hybrid match when memberID
// is nil.
func (b *Broker) Assign(ctx context.Context, taskID uuid.UUID, memberID *uuid.UUID) (*Assignment, error) {
	task, err := b.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	explicitSame := memberID != nil && task.AssignedTo != nil && *task.AssignedTo == *memberID
	if !task.Matchable() && !explicitSame {
		b.metrics.IncAssignError("not_assignable")
		if task.Status == store.StatusCompleted {
			return nil, fmt.Errorf("%w: task is completed", ErrTaskNotAssignable)
		}
		return nil, fmt.Errorf("%w: task is already assigned", ErrTaskNotAssignable)
	}

	result := &Assignment{Auto: memberID == nil}
	if memberID != nil {
		member, err := b.getMember(ctx, *memberID)
		if err != nil {
			return nil, err
		}
		result.Member = member
	} else {
		member, match, err := b.pickMember(ctx, task)
		if err != nil {
			return nil, err
		}
		result.Member = member
		result.Match = match
	}

	assigned, err := b.store.AssignTask(ctx, task.ID, result.Member.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, ErrTaskNotFound
	case errors.Is(err, store.ErrAlreadyAssigned), errors.Is(err, store.ErrTaskCompleted):
		b.metrics.IncAssignError("conflict")
		return nil, fmt.Errorf("%w: %v", ErrTaskNotAssignable, err)
	case err != nil:
		return nil, fmt.Errorf("assign task: %w", err)
	}
	result.Task = assigned

	payload := map[string]interface{}{"auto": result.Auto}
	if result.Match != nil {
		payload["total_score"] = result.Match.TotalScore
	}
	b.recordEvent(ctx, assigned.ID, "assigned", result.Member.ID.String(), payload)
	b.metrics.IncAssignment(result.Auto)

	evt := hermes.TaskAssignedEvent{
		TaskID:     assigned.ID.String(),
		MemberID:   result.Member.ID.String(),
		MemberName: result.Member.Name,
		Auto:       result.Auto,
	}
	if result.Match != nil {
		evt.Score = result.Match.TotalScore
		evt.Strategy = string(scoring.StrategyHybrid)
	}
	b.publish(hermes.SubjectTaskAssigned(assigned.ID.String()), evt)

	b.logger.Info("task assigned", "task_id", assigned.ID, "member_id", result.Member.ID,
		"member", result.Member.Name, "auto", result.Auto, "score", evt.Score)
	return result, nil
}

// pickMember runs the auto-assign decision over the active members.
func (b *Broker) pickMember(ctx context.Context, task *store.Task) (*store.Member, *scoring.MatchResult, error) {
	members, err := b.allMembers(ctx, activeOnly())
	if err != nil {
		return nil, nil, err
	}
	counts, err := b.store.ActiveTaskCounts(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("active task counts: %w", err)
	}

	start := b.now()
	decision, err := b.scorer.AutoAssign(taskSnapshot(task), memberSnapshots(members, counts))
	if errors.Is(err, scoring.ErrNoEligibleMember) {
		b.metrics.ObserveRanking(string(scoring.StrategyHybrid), 0, false, b.now().Sub(start))
		b.metrics.IncUnmatched()
		b.logger.Warn("no candidates for task", "task_id", task.ID)
		b.recordEvent(ctx, task.ID, "unmatched", "", nil)
		b.publish(hermes.SubjectTaskUnmatched(task.ID.String()), hermes.TaskUnmatchedEvent{
			TaskID: task.ID.String(),
			Reason: "no active members",
		})
		return nil, nil, err
	}
	if err != nil {
		return nil, nil, err
	}
	b.metrics.ObserveRanking(string(scoring.StrategyHybrid), decision.Member.TotalScore, true, b.now().Sub(start))

	for _, m := range members {
		if m.ID.String() == decision.Member.MemberID {
			match := decision.Member
			return m, &match, nil
		}
	}
	return nil, nil, fmt.Errorf("winner %s missing from pool", decision.Member.MemberID)
}

// candidates builds engine snapshots of all active members with their
// current workload.
func (b *Broker) candidates(ctx context.Context) ([]scoring.Member, error) {
	members, err := b.allMembers(ctx, activeOnly())
	if err != nil {
		return nil, err
	}
	counts, err := b.store.ActiveTaskCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("active task counts: %w", err)
	}
	return memberSnapshots(members, counts), nil
}

func memberSnapshots(members []*store.Member, counts map[uuid.UUID]int) []scoring.Member {
	out := make([]scoring.Member, 0, len(members))
	for _, m := range members {
		out = append(out, memberSnapshot(m, counts[m.ID]))
	}
	return out
}

func memberSnapshot(m *store.Member, active int) scoring.Member {
	return scoring.Member{
		ID:          m.ID.String(),
		Name:        m.Name,
		Skills:      m.Skills,
		Elements:    m.Elements,
		ActiveTasks: active,
	}
}

func taskSnapshot(t *store.Task) scoring.Task {
	return scoring.Task{
		ID:             t.ID.String(),
		RequiredSkills: t.RequiredSkills,
		Affinity:       t.ElementalAffinity(),
	}
}

func activeOnly() store.MemberFilter {
	active := store.MemberActive
	return store.MemberFilter{Status: &active}
}

const pageSize = 500

// allMembers pages through the store so candidate pools are never truncated.
func (b *Broker) allMembers(ctx context.Context, filter store.MemberFilter) ([]*store.Member, error) {
	var out []*store.Member
	filter.Limit = pageSize
	for offset := 0; ; offset += pageSize {
		filter.Offset = offset
		page, err := b.store.ListMembers(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("list members: %w", err)
		}
		out = append(out, page...)
		if len(page) < pageSize {
			return out, nil
		}
	}
}

func (b *Broker) allTasks(ctx context.Context, filter store.TaskFilter) ([]*store.Task, error) {
	var out []*store.Task
	filter.Limit = pageSize
	for offset := 0; ; offset += pageSize {
		filter.Offset = offset
		page, err := b.store.ListTasks(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		out = append(out, page...)
		if len(page) < pageSize {
			return out, nil
		}
	}
}

func (b *Broker) getTask(ctx context.Context, id uuid.UUID) (*store.Task, error) {
	task, err := b.store.GetTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}
	return task, nil
}

func (b *Broker) getMember(ctx context.Context, id uuid.UUID) (*store.Member, error) {
	member, err := b.store.GetMember(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	return member, nil
}

func (b *Broker) recordEvent(ctx context.Context, taskID uuid.UUID, event, memberID string, payload map[string]interface{}) {
	if err := b.store.CreateTaskEvent(ctx, &store.TaskEvent{
		TaskID:   taskID,
		Event:    event,
		MemberID: memberID,
		Payload:  payload,
	}); err != nil {
		b.logger.Warn("failed to record task event", "task_id", taskID, "event", event, "error", err)
	}
}

func (b *Broker) publish(subject string, data interface{}) {
	if b.hermes == nil {
		return
	}
	if err := b.hermes.Publish(subject, data); err != nil {
		b.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}
