package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a process-local Store. Records are copied on the way in and
// out so callers never share state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	members map[uuid.UUID]*Member
	tasks   map[uuid.UUID]*Task
	events  map[uuid.UUID][]*TaskEvent

	// creation order
	memberOrder []uuid.UUID
	taskOrder   []uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		members: make(map[uuid.UUID]*Member),
		tasks:   make(map[uuid.UUID]*Task),
		events:  make(map[uuid.UUID][]*TaskEvent),
	}
}

func (s *MemoryStore) Close() error { return nil }

func copyMember(m *Member) *Member {
	c := *m
	c.Skills = append([]string{}, m.Skills...)
	if m.Elements != nil {
		p := *m.Elements
		c.Elements = &p
	}
	return &c
}

func copyTask(t *Task) *Task {
	c := *t
	c.RequiredSkills = append([]string{}, t.RequiredSkills...)
	if t.Affinity != nil {
		p := *t.Affinity
		c.Affinity = &p
	}
	if t.AssignedTo != nil {
		id := *t.AssignedTo
		c.AssignedTo = &id
	}
	if t.AssignedAt != nil {
		at := *t.AssignedAt
		c.AssignedAt = &at
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if l := listLimit(limit); l < len(items) {
		items = items[:l]
	}
	return items
}

func (s *MemoryStore) CreateMember(_ context.Context, m *Member) error {
	if m.Status == "" {
		m.Status = MemberActive
	}
	m.ID = uuid.New()
	m.Skills = nonNilStrings(m.Skills)
	m.CreatedAt = time.Now().UTC()
	m.UpdatedAt = m.CreatedAt

	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[m.ID] = copyMember(m)
	s.memberOrder = append(s.memberOrder, m.ID)
	return nil
}

func (s *MemoryStore) GetMember(_ context.Context, id uuid.UUID) (*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[id]
	if !ok {
		return nil, nil
	}
	return copyMember(m), nil
}

func (s *MemoryStore) ListMembers(_ context.Context, filter MemberFilter) ([]*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Member
	for _, id := range s.memberOrder {
		m := s.members[id]
		if filter.Status != nil && m.Status != *filter.Status {
			continue
		}
		out = append(out, copyMember(m))
	}
	return page(out, filter.Limit, filter.Offset), nil
}

func (s *MemoryStore) UpdateMember(_ context.Context, m *Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.members[m.ID]
	if !ok {
		return ErrNotFound
	}
	m.Skills = nonNilStrings(m.Skills)
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = time.Now().UTC()
	s.members[m.ID] = copyMember(m)
	return nil
}

func (s *MemoryStore) CreateTask(_ context.Context, t *Task) error {
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.Priority == "" {
		t.Priority = DefaultPriority
	}
	t.ID = uuid.New()
	t.RequiredSkills = nonNilStrings(t.RequiredSkills)
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = copyTask(t)
	s.taskOrder = append(s.taskOrder, t.ID)
	return nil
}

func (s *MemoryStore) GetTask(_ context.Context, id uuid.UUID) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	return copyTask(t), nil
}

func (s *MemoryStore) ListTasks(_ context.Context, filter TaskFilter) ([]*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Task
	for _, id := range s.taskOrder {
		t := s.tasks[id]
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		if filter.AssignedTo != nil && (t.AssignedTo == nil || *t.AssignedTo != *filter.AssignedTo) {
			continue
		}
		if filter.Unassigned && t.AssignedTo != nil {
			continue
		}
		out = append(out, copyTask(t))
	}
	return page(out, filter.Limit, filter.Offset), nil
}

func (s *MemoryStore) UpdateTask(_ context.Context, t *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tasks[t.ID]
	if !ok {
		return ErrNotFound
	}
	t.RequiredSkills = nonNilStrings(t.RequiredSkills)
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	s.tasks[t.ID] = copyTask(t)
	return nil
}

func (s *MemoryStore) AssignTask(_ context.Context, taskID, memberID uuid.UUID) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return nil, ErrNotFound
	}
	if t.Status == StatusCompleted {
		return nil, ErrTaskCompleted
	}
	if t.AssignedTo != nil && *t.AssignedTo != memberID {
		return nil, ErrAlreadyAssigned
	}

	now := time.Now().UTC()
	id := memberID
	t.AssignedTo = &id
	t.Status = StatusInProgress
	if t.AssignedAt == nil {
		t.AssignedAt = &now
	}
	t.UpdatedAt = now
	return copyTask(t), nil
}

func (s *MemoryStore) ActiveTaskCounts(_ context.Context) (map[uuid.UUID]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[uuid.UUID]int)
	for _, t := range s.tasks {
		if t.AssignedTo != nil && t.Status != StatusCompleted {
			counts[*t.AssignedTo]++
		}
	}
	return counts, nil
}

func (s *MemoryStore) CreateTaskEvent(_ context.Context, event *TaskEvent) error {
	event.ID = uuid.New()
	event.CreatedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	e := *event
	s.events[event.TaskID] = append(s.events[event.TaskID], &e)
	return nil
}

func (s *MemoryStore) GetTaskEvents(_ context.Context, taskID uuid.UUID) ([]*TaskEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*TaskEvent
	for _, e := range s.events[taskID] {
		c := *e
		out = append(out, &c)
	}
	return out, nil
}

func (s *MemoryStore) GetStats(_ context.Context) (*TaskStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &TaskStats{
		TotalMembers: len(s.members),
		TotalTasks:   len(s.tasks),
		ByPriority:   make(map[string]int),
	}
	for _, m := range s.members {
		if m.Status == MemberActive {
			stats.ActiveMembers++
		}
	}
	for _, t := range s.tasks {
		stats.ByPriority[t.Priority]++
		switch t.Status {
		case StatusPending:
			stats.TotalPending++
		case StatusInProgress:
			stats.TotalInProgress++
		case StatusCompleted:
			stats.TotalCompleted++
		case StatusBlocked:
			stats.TotalBlocked++
		}
	}
	return stats, nil
}
