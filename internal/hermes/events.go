package hermes

import "time"

// TaskRequestEvent asks Concord to create a task.
type TaskRequestEvent struct {
	Title          string             `json:"title"`
	Description    string             `json:"description,omitempty"`
	Priority       string             `json:"priority,omitempty"`
	RequiredSkills []string           `json:"required_skills,omitempty"`
	Element        string             `json:"element,omitempty"`
	Affinity       map[string]float64 `json:"affinity,omitempty"`
}

// TaskProgressEvent reports work on an assigned task.
type TaskProgressEvent struct {
	Status   string `json:"status,omitempty"`
	Progress *int   `json:"progress,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

type TaskCreatedEvent struct {
	TaskID   string `json:"task_id"`
	Title    string `json:"title"`
	Priority string `json:"priority"`
}

type TaskAssignedEvent struct {
	TaskID     string `json:"task_id"`
	MemberID   string `json:"member_id"`
	MemberName string `json:"member_name,omitempty"`
	Score      int    `json:"total_score"`
	Strategy   string `json:"strategy"`
	Auto       bool   `json:"auto"`
}

type TaskUnmatchedEvent struct {
	TaskID string `json:"task_id"`
	Reason string `json:"reason"`
}

type TaskStatusEvent struct {
	TaskID   string `json:"task_id"`
	From     string `json:"from"`
	To       string `json:"to"`
	Progress int    `json:"progress"`
}

type MemberEvent struct {
	MemberID string   `json:"member_id"`
	Name     string   `json:"name"`
	Skills   []string `json:"skills,omitempty"`
	Status   string   `json:"status"`
}

type StatsEvent struct {
	Members    int       `json:"members"`
	Active     int       `json:"active_members"`
	Pending    int       `json:"pending"`
	InProgress int       `json:"in_progress"`
	Completed  int       `json:"completed"`
	Blocked    int       `json:"blocked"`
	Balanced   bool      `json:"is_balanced"`
	Timestamp  time.Time `json:"timestamp"`
}
