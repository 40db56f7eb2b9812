package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Concord/internal/scoring"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyAssigned = errors.New("task already assigned to another member")
	ErrTaskCompleted   = errors.New("task already completed")
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusBlocked    TaskStatus = "blocked"
)

// Valid reports whether s is one of the known task statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusBlocked:
		return true
	}
	return false
}

type MemberStatus string

const (
	MemberActive   MemberStatus = "active"
	MemberInactive MemberStatus = "inactive"
)

// Priorities in descending order of urgency.
var Priorities = []string{"S", "A", "B", "C"}

const DefaultPriority = "B"

// PriorityRank orders priorities for sorting; unknown values sort last.
func PriorityRank(p string) int {
	for i, v := range Priorities {
		if v == p {
			return len(Priorities) - i
		}
	}
	return 0
}

type Member struct {
	ID     uuid.UUID    `json:"member_id"`
	Name   string       `json:"name"`
	Skills []string     `json:"skills"`
	Status MemberStatus `json:"status"`

	// Elements is nil for members who never supplied a profile.
	Elements *scoring.Profile `json:"elements,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Task struct {
	ID             uuid.UUID `json:"task_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Priority       string    `json:"priority"`
	RequiredSkills []string  `json:"required_skills"`

	// Elemental requirement: either a single dominant element (older
	// clients) or a full weight vector. Affinity wins when both are set.
	Element  string           `json:"element,omitempty"`
	Affinity *scoring.Profile `json:"affinity,omitempty"`

	// State
	Status     TaskStatus `json:"status"`
	Progress   int        `json:"progress"`
	Notes      string     `json:"notes,omitempty"`
	AssignedTo *uuid.UUID `json:"assigned_to,omitempty"`

	// Timestamps
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	AssignedAt  *time.Time `json:"assigned_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ElementalAffinity normalizes the task's requirement into a vector. A legacy
// single element becomes a one-hot vector; no requirement yields nil.
func (t *Task) ElementalAffinity() *scoring.Profile {
	if t.Affinity != nil {
		p := t.Affinity.Clamped()
		return &p
	}
	if e, ok := scoring.ParseElement(t.Element); ok {
		return scoring.LegacyAffinity(e)
	}
	return nil
}

// Matchable reports whether the task may be offered to candidates.
func (t *Task) Matchable() bool {
	return t.AssignedTo == nil && t.Status != StatusCompleted
}

type MemberFilter struct {
	Status *MemberStatus
	Limit  int
	Offset int
}

type TaskFilter struct {
	Status     *TaskStatus
	AssignedTo *uuid.UUID
	Unassigned bool
	Limit      int
	Offset     int
}

type TaskEvent struct {
	ID        uuid.UUID              `json:"id"`
	TaskID    uuid.UUID              `json:"task_id"`
	Event     string                 `json:"event"`
	MemberID  string                 `json:"member_id,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

type TaskStats struct {
	TotalMembers    int            `json:"total_members"`
	ActiveMembers   int            `json:"active_members"`
	TotalTasks      int            `json:"total_tasks"`
	TotalPending    int            `json:"total_pending"`
	TotalInProgress int            `json:"total_in_progress"`
	TotalCompleted  int            `json:"total_completed"`
	TotalBlocked    int            `json:"total_blocked"`
	ByPriority      map[string]int `json:"tasks_by_priority"`
}

// Store is the member/task repository. List methods return members and tasks
// in creation order so candidate pools are stable between calls.
type Store interface {
	CreateMember(ctx context.Context, m *Member) error
	GetMember(ctx context.Context, id uuid.UUID) (*Member, error)
	ListMembers(ctx context.Context, filter MemberFilter) ([]*Member, error)
	UpdateMember(ctx context.Context, m *Member) error

	CreateTask(ctx context.Context, t *Task) error
	GetTask(ctx context.Context, id uuid.UUID) (*Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]*Task, error)
	UpdateTask(ctx context.Context, t *Task) error

	// AssignTask atomically hands an unassigned, unfinished task to a member
	// and moves it to in_progress. Re-assigning to the same member is a no-op.
	AssignTask(ctx context.Context, taskID, memberID uuid.UUID) (*Task, error)

	// ActiveTaskCounts returns, per member, the number of assigned tasks
	// that are not completed.
	ActiveTaskCounts(ctx context.Context) (map[uuid.UUID]int, error)

	CreateTaskEvent(ctx context.Context, event *TaskEvent) error
	GetTaskEvents(ctx context.Context, taskID uuid.UUID) ([]*TaskEvent, error)

	GetStats(ctx context.Context) (*TaskStats, error)

	Close() error
}

const defaultListLimit = 100

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}
