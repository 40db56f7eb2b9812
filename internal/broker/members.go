package broker

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Concord/internal/hermes"
	"github.com/MikeSquared-Agency/Concord/internal/scoring"
	"github.com/MikeSquared-Agency/Concord/internal/store"
)

type MemberInput struct {
	Name     string
	Skills   []string
	Elements *scoring.Profile
}

// MemberPatch holds optional changes; nil fields are left untouched.
type MemberPatch struct {
	Name     *string
	Skills   []string
	Elements *scoring.Profile
	Status   *store.MemberStatus
}

// normalizeSkills trims, drops blanks and removes case-insensitive duplicates,
// keeping the first spelling seen.
func normalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]bool, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func clampedProfile(p *scoring.Profile) *scoring.Profile {
	if p == nil {
		return nil
	}
	c := p.Clamped()
	return &c
}

func (b *Broker) RegisterMember(ctx context.Context, in MemberInput) (*store.Member, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	m := &store.Member{
		Name:     name,
		Skills:   normalizeSkills(in.Skills),
		Elements: clampedProfile(in.Elements),
		Status:   store.MemberActive,
	}
	if err := b.store.CreateMember(ctx, m); err != nil {
		return nil, fmt.Errorf("create member: %w", err)
	}

	b.publish(hermes.SubjectMemberRegistered(m.ID.String()), memberEvent(m))
	b.logger.Info("member registered", "member_id", m.ID, "name", m.Name, "skills", len(m.Skills), "profiled", m.Elements != nil)
	return m, nil
}

func (b *Broker) GetMember(ctx context.Context, id uuid.UUID) (*store.Member, error) {
	return b.getMember(ctx, id)
}

func (b *Broker) ListMembers(ctx context.Context, status *store.MemberStatus) ([]*store.Member, error) {
	members, err := b.allMembers(ctx, store.MemberFilter{Status: status})
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []*store.Member{}
	}
	return members, nil
}

func (b *Broker) UpdateMember(ctx context.Context, id uuid.UUID, patch MemberPatch) (*store.Member, error) {
	m, err := b.getMember(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
		}
		m.Name = name
	}
	if patch.Skills != nil {
		m.Skills = normalizeSkills(patch.Skills)
	}
	if patch.Elements != nil {
		m.Elements = clampedProfile(patch.Elements)
	}
	if patch.Status != nil {
		switch *patch.Status {
		case store.MemberActive, store.MemberInactive:
			m.Status = *patch.Status
		default:
			return nil, fmt.Errorf("%w: unknown member status %q", ErrInvalidInput, *patch.Status)
		}
	}

	if err := b.store.UpdateMember(ctx, m); err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}
	b.publish(hermes.SubjectMemberUpdated(m.ID.String()), memberEvent(m))
	return m, nil
}

// DrainMember takes a member out of every candidate pool. Tasks already
// assigned stay with them.
func (b *Broker) DrainMember(ctx context.Context, id uuid.UUID) (*store.Member, error) {
	inactive := store.MemberInactive
	m, err := b.UpdateMember(ctx, id, MemberPatch{Status: &inactive})
	if err != nil {
		return nil, err
	}
	b.publish(hermes.SubjectMemberDrained(m.ID.String()), memberEvent(m))
	b.logger.Info("member drained", "member_id", m.ID, "name", m.Name)
	return m, nil
}

// MemberTasks is a member's work list, most urgent first.
type MemberTasks struct {
	MemberID   uuid.UUID      `json:"member_id"`
	MemberName string         `json:"member_name"`
	Total      int            `json:"total_tasks"`
	Tasks      []*store.Task  `json:"tasks"`
	Summary    map[string]int `json:"summary"`
}

func (b *Broker) MemberTasks(ctx context.Context, id uuid.UUID, status *store.TaskStatus) (*MemberTasks, error) {
	m, err := b.getMember(ctx, id)
	if err != nil {
		return nil, err
	}
	tasks, err := b.allTasks(ctx, store.TaskFilter{AssignedTo: &m.ID, Status: status})
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []*store.Task{}
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return store.PriorityRank(tasks[i].Priority) > store.PriorityRank(tasks[j].Priority)
	})

	summary := map[string]int{
		string(store.StatusPending):    0,
		string(store.StatusInProgress): 0,
		string(store.StatusCompleted):  0,
		string(store.StatusBlocked):    0,
	}
	for _, t := range tasks {
		summary[string(t.Status)]++
	}
	return &MemberTasks{
		MemberID:   m.ID,
		MemberName: m.Name,
		Total:      len(tasks),
		Tasks:      tasks,
		Summary:    summary,
	}, nil
}

func memberEvent(m *store.Member) hermes.MemberEvent {
	return hermes.MemberEvent{
		MemberID: m.ID.String(),
		Name:     m.Name,
		Skills:   m.Skills,
		Status:   string(m.Status),
	}
}
