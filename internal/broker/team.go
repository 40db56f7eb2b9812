package broker

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Concord/internal/scoring"
	"github.com/MikeSquared-Agency/Concord/internal/store"
)

// RecommendPartners ranks active members by how well they complement the
// given member. limit <= 0 uses the configured partner limit.
func (b *Broker) RecommendPartners(ctx context.Context, memberID uuid.UUID, limit int) ([]scoring.ComplementResult, error) {
	focal, err := b.getMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = b.cfg.Matching.PartnerLimit
	}

	members, err := b.allMembers(ctx, activeOnly())
	if err != nil {
		return nil, err
	}
	pool := memberSnapshots(members, nil)
	return scoring.RecommendPartners(memberSnapshot(focal, 0), pool, limit), nil
}

// TeamFit reports how well a member fills the gaps in the rest of the team.
type TeamFit struct {
	MemberID    uuid.UUID       `json:"member_id"`
	MemberName  string          `json:"member_name"`
	TeamSize    int             `json:"team_size"`
	TeamProfile scoring.Profile `json:"team_profile"`
	Score       float64         `json:"score"`
	Profiled    bool            `json:"profiled"`
}

func (b *Broker) TeamFit(ctx context.Context, memberID uuid.UUID) (*TeamFit, error) {
	candidate, err := b.getMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	members, err := b.allMembers(ctx, activeOnly())
	if err != nil {
		return nil, err
	}

	var team []scoring.Member
	for _, m := range members {
		if m.ID != candidate.ID {
			team = append(team, memberSnapshot(m, 0))
		}
	}
	teamProfile := scoring.TeamProfile(team)

	fit := &TeamFit{
		MemberID:    candidate.ID,
		MemberName:  candidate.Name,
		TeamSize:    len(team),
		TeamProfile: teamProfile,
		Profiled:    candidate.Elements != nil,
	}
	if candidate.Elements != nil {
		fit.Score = scoring.GapFit(*candidate.Elements, teamProfile)
	}
	return fit, nil
}

// Balance timeframes. "all" applies no window.
var timeframes = map[string]time.Duration{
	"today": 24 * time.Hour,
	"week":  7 * 24 * time.Hour,
	"month": 30 * 24 * time.Hour,
	"all":   0,
}

type BalanceReport struct {
	Timeframe string `json:"timeframe"`
	scoring.BalanceReport
}

// Balance compares the elemental mix of unfinished work touched within the
// timeframe with the ideal distribution.
func (b *Broker) Balance(ctx context.Context, timeframe string) (*BalanceReport, error) {
	timeframe = strings.ToLower(strings.TrimSpace(timeframe))
	if timeframe == "" {
		timeframe = "all"
	}
	window, ok := timeframes[timeframe]
	if !ok {
		return nil, fmt.Errorf("%w: unknown timeframe %q", ErrInvalidInput, timeframe)
	}

	tasks, err := b.allTasks(ctx, store.TaskFilter{})
	if err != nil {
		return nil, err
	}

	cutoff := time.Time{}
	if window > 0 {
		cutoff = b.now().Add(-window)
	}
	var affinities []*scoring.Profile
	for _, t := range tasks {
		if t.Status == store.StatusCompleted || t.UpdatedAt.Before(cutoff) {
			continue
		}
		affinities = append(affinities, t.ElementalAffinity())
	}

	return &BalanceReport{
		Timeframe:     timeframe,
		BalanceReport: scoring.CheckBalance(affinities),
	}, nil
}

// Dashboard views.
const (
	ViewOverview   = "overview"
	ViewElements   = "elements"
	ViewProgress   = "progress"
	ViewBottleneck = "bottleneck"
)

type Dashboard struct {
	View        string    `json:"view"`
	GeneratedAt time.Time `json:"generated_at"`
	TeamSize    int       `json:"team_size"`
	TotalTasks  int       `json:"total_tasks"`

	Stats        *DashboardStats  `json:"stats,omitempty"`
	Distribution map[string]int   `json:"element_distribution,omitempty"`
	TeamProfile  *scoring.Profile `json:"team_profile,omitempty"`
	Progress     []MemberProgress `json:"member_progress,omitempty"`
	Bottlenecks  []BlockedTask    `json:"bottlenecks,omitempty"`
}

type DashboardStats struct {
	TotalMembers    int            `json:"total_members"`
	ActiveMembers   int            `json:"active_members"`
	TasksByStatus   map[string]int `json:"tasks_by_status"`
	TasksByPriority map[string]int `json:"tasks_by_priority"`
}

type MemberProgress struct {
	MemberID        uuid.UUID `json:"member_id"`
	MemberName      string    `json:"member_name"`
	TotalTasks      int       `json:"total_tasks"`
	AverageProgress int       `json:"average_progress"`
	CompletedTasks  int       `json:"completed_tasks"`
}

type BlockedTask struct {
	TaskID       uuid.UUID `json:"task_id"`
	Title        string    `json:"title"`
	AssignedTo   string    `json:"assigned_to"`
	BlockedSince time.Time `json:"blocked_since"`
}

func parseView(view string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(view)) {
	case "", ViewOverview:
		return ViewOverview, nil
	case ViewElements, "wuxing":
		return ViewElements, nil
	case ViewProgress:
		return ViewProgress, nil
	case ViewBottleneck:
		return ViewBottleneck, nil
	}
	return "", fmt.Errorf("%w: unknown dashboard view %q", ErrInvalidInput, view)
}

func (b *Broker) Dashboard(ctx context.Context, view string) (*Dashboard, error) {
	view, err := parseView(view)
	if err != nil {
		return nil, err
	}

	members, err := b.allMembers(ctx, store.MemberFilter{})
	if err != nil {
		return nil, err
	}
	tasks, err := b.allTasks(ctx, store.TaskFilter{})
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		View:        view,
		GeneratedAt: b.now().UTC(),
		TeamSize:    len(members),
		TotalTasks:  len(tasks),
	}

	switch view {
	case ViewOverview:
		d.Stats = overviewStats(members, tasks)
	case ViewElements:
		d.Distribution = elementDistribution(tasks)
		snaps := memberSnapshots(members, nil)
		profile := scoring.TeamProfile(snaps)
		d.TeamProfile = &profile
	case ViewProgress:
		d.Progress = memberProgress(members, tasks)
	case ViewBottleneck:
		d.Bottlenecks = bottlenecks(members, tasks)
	}
	return d, nil
}

func overviewStats(members []*store.Member, tasks []*store.Task) *DashboardStats {
	stats := &DashboardStats{
		TotalMembers:    len(members),
		TasksByStatus:   make(map[string]int),
		TasksByPriority: make(map[string]int),
	}
	for _, s := range []store.TaskStatus{store.StatusPending, store.StatusInProgress, store.StatusCompleted, store.StatusBlocked} {
		stats.TasksByStatus[string(s)] = 0
	}
	for _, p := range store.Priorities {
		stats.TasksByPriority[p] = 0
	}
	for _, m := range members {
		if m.Status == store.MemberActive {
			stats.ActiveMembers++
		}
	}
	for _, t := range tasks {
		stats.TasksByStatus[string(t.Status)]++
		stats.TasksByPriority[t.Priority]++
	}
	return stats
}

// elementDistribution counts tasks by the dominant element of their requirement.
func elementDistribution(tasks []*store.Task) map[string]int {
	dist := make(map[string]int, len(scoring.Elements))
	for _, e := range scoring.Elements {
		dist[string(e)] = 0
	}
	for _, t := range tasks {
		a := t.ElementalAffinity()
		if a == nil {
			continue
		}
		if dom, ok := a.Dominant(); ok {
			dist[string(dom)]++
		}
	}
	return dist
}

func memberProgress(members []*store.Member, tasks []*store.Task) []MemberProgress {
	byMember := make(map[uuid.UUID][]*store.Task)
	for _, t := range tasks {
		if t.AssignedTo != nil {
			byMember[*t.AssignedTo] = append(byMember[*t.AssignedTo], t)
		}
	}

	out := make([]MemberProgress, 0, len(members))
	for _, m := range members {
		mine := byMember[m.ID]
		p := MemberProgress{MemberID: m.ID, MemberName: m.Name, TotalTasks: len(mine)}
		sum := 0
		for _, t := range mine {
			sum += t.Progress
			if t.Status == store.StatusCompleted {
				p.CompletedTasks++
			}
		}
		if len(mine) > 0 {
			p.AverageProgress = int(math.Round(float64(sum) / float64(len(mine))))
		}
		out = append(out, p)
	}
	return out
}

func bottlenecks(members []*store.Member, tasks []*store.Task) []BlockedTask {
	names := make(map[uuid.UUID]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Name
	}

	out := []BlockedTask{}
	for _, t := range tasks {
		if t.Status != store.StatusBlocked {
			continue
		}
		bt := BlockedTask{TaskID: t.ID, Title: t.Title, AssignedTo: "unassigned", BlockedSince: t.UpdatedAt}
		if t.AssignedTo != nil {
			if name, ok := names[*t.AssignedTo]; ok {
				bt.AssignedTo = name
			}
		}
		out = append(out, bt)
	}
	return out
}
