package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/Concord/internal/scoring"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS concord_members (
	member_id  UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	name       TEXT NOT NULL,
	skills     TEXT[] NOT NULL DEFAULT '{}',
	elements   JSONB,
	status     TEXT NOT NULL DEFAULT 'active',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS concord_tasks (
	task_id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	title           TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	priority        TEXT NOT NULL DEFAULT 'B',
	required_skills TEXT[] NOT NULL DEFAULT '{}',
	element         TEXT NOT NULL DEFAULT '',
	affinity        JSONB,
	status          TEXT NOT NULL DEFAULT 'pending',
	progress        INT NOT NULL DEFAULT 0,
	notes           TEXT NOT NULL DEFAULT '',
	assigned_to     UUID REFERENCES concord_members (member_id),
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	assigned_at     TIMESTAMPTZ,
	completed_at    TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS concord_tasks_active_idx
	ON concord_tasks (assigned_to) WHERE status <> 'completed';

CREATE TABLE IF NOT EXISTS concord_task_events (
	id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	task_id    UUID NOT NULL REFERENCES concord_tasks (task_id) ON DELETE CASCADE,
	event      TEXT NOT NULL,
	member_id  TEXT NOT NULL DEFAULT '',
	payload    JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// Migrate creates the Concord tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const memberColumns = `member_id, name, skills, elements, status, created_at, updated_at`

const taskColumns = `task_id, title, description, priority, required_skills,
	element, affinity,
	status, progress, notes, assigned_to,
	created_at, updated_at, assigned_at, completed_at`

// profileJSON encodes a profile for a JSONB column; nil stays SQL NULL.
func profileJSON(p *scoring.Profile) []byte {
	if p == nil {
		return nil
	}
	b, _ := json.Marshal(p)
	return b
}

func decodeProfile(b []byte) *scoring.Profile {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	p := &scoring.Profile{}
	if err := json.Unmarshal(b, p); err != nil {
		return nil
	}
	return p
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (s *PostgresStore) CreateMember(ctx context.Context, m *Member) error {
	if m.Status == "" {
		m.Status = MemberActive
	}
	m.Skills = nonNilStrings(m.Skills)
	return s.pool.QueryRow(ctx, `
		INSERT INTO concord_members (name, skills, elements, status)
		VALUES ($1, $2, $3, $4)
		RETURNING member_id, created_at, updated_at`,
		m.Name, m.Skills, profileJSON(m.Elements), m.Status,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
}

func (s *PostgresStore) GetMember(ctx context.Context, id uuid.UUID) (*Member, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+memberColumns+` FROM concord_members WHERE member_id = $1`, id)
	m, err := scanMember(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func (s *PostgresStore) ListMembers(ctx context.Context, filter MemberFilter) ([]*Member, error) {
	query := `SELECT ` + memberColumns + ` FROM concord_members WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.Status != nil {
		n++
		query += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, string(*filter.Status))
	}

	query += " ORDER BY created_at ASC, member_id ASC"

	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, listLimit(filter.Limit))

	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *PostgresStore) UpdateMember(ctx context.Context, m *Member) error {
	m.Skills = nonNilStrings(m.Skills)
	tag, err := s.pool.Exec(ctx, `
		UPDATE concord_members SET
			name = $2, skills = $3, elements = $4, status = $5, updated_at = now()
		WHERE member_id = $1`,
		m.ID, m.Name, m.Skills, profileJSON(m.Elements), m.Status,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateTask(ctx context.Context, t *Task) error {
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.Priority == "" {
		t.Priority = DefaultPriority
	}
	t.RequiredSkills = nonNilStrings(t.RequiredSkills)
	return s.pool.QueryRow(ctx, `
		INSERT INTO concord_tasks (title, description, priority, required_skills,
			element, affinity, status, progress, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING task_id, created_at, updated_at`,
		t.Title, t.Description, t.Priority, t.RequiredSkills,
		t.Element, profileJSON(t.Affinity), t.Status, t.Progress, t.Notes,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (s *PostgresStore) GetTask(ctx context.Context, id uuid.UUID) (*Task, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM concord_tasks WHERE task_id = $1`, id)
	t, err := scanTask(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func (s *PostgresStore) ListTasks(ctx context.Context, filter TaskFilter) ([]*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM concord_tasks WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.Status != nil {
		n++
		query += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, string(*filter.Status))
	}
	if filter.AssignedTo != nil {
		n++
		query += fmt.Sprintf(" AND assigned_to = $%d", n)
		args = append(args, *filter.AssignedTo)
	}
	if filter.Unassigned {
		query += " AND assigned_to IS NULL"
	}

	query += " ORDER BY created_at ASC, task_id ASC"

	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, listLimit(filter.Limit))

	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *PostgresStore) UpdateTask(ctx context.Context, t *Task) error {
	t.RequiredSkills = nonNilStrings(t.RequiredSkills)
	tag, err := s.pool.Exec(ctx, `
		UPDATE concord_tasks SET
			title = $2, description = $3, priority = $4, required_skills = $5,
			element = $6, affinity = $7,
			status = $8, progress = $9, notes = $10, assigned_to = $11,
			assigned_at = $12, completed_at = $13, updated_at = now()
		WHERE task_id = $1`,
		t.ID, t.Title, t.Description, t.Priority, t.RequiredSkills,
		t.Element, profileJSON(t.Affinity),
		t.Status, t.Progress, t.Notes, t.AssignedTo,
		t.AssignedAt, t.CompletedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AssignTask(ctx context.Context, taskID, memberID uuid.UUID) (*Task, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE concord_tasks SET
			assigned_to = $2,
			status = 'in_progress',
			assigned_at = COALESCE(assigned_at, now()),
			updated_at = now()
		WHERE task_id = $1
			AND status <> 'completed'
			AND (assigned_to IS NULL OR assigned_to = $2)
		RETURNING `+taskColumns,
		taskID, memberID,
	)
	t, err := scanTask(row)
	if err == nil {
		return t, nil
	}
	if err != pgx.ErrNoRows {
		return nil, err
	}

	// The conditional update matched nothing; find out why.
	current, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return nil, assignConflict(current)
}

// assignConflict explains why a task could not be assigned.
func assignConflict(current *Task) error {
	switch {
	case current == nil:
		return ErrNotFound
	case current.Status == StatusCompleted:
		return ErrTaskCompleted
	default:
		return ErrAlreadyAssigned
	}
}

func (s *PostgresStore) ActiveTaskCounts(ctx context.Context) (map[uuid.UUID]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT assigned_to, COUNT(*)
		FROM concord_tasks
		WHERE assigned_to IS NOT NULL AND status <> 'completed'
		GROUP BY assigned_to`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var id uuid.UUID
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

func (s *PostgresStore) CreateTaskEvent(ctx context.Context, event *TaskEvent) error {
	payloadJSON, _ := json.Marshal(event.Payload)
	return s.pool.QueryRow(ctx, `
		INSERT INTO concord_task_events (task_id, event, member_id, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		event.TaskID, event.Event, event.MemberID, payloadJSON,
	).Scan(&event.ID, &event.CreatedAt)
}

func (s *PostgresStore) GetTaskEvents(ctx context.Context, taskID uuid.UUID) ([]*TaskEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, task_id, event, member_id, payload, created_at
		FROM concord_task_events WHERE task_id = $1
		ORDER BY created_at ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*TaskEvent
	for rows.Next() {
		e := &TaskEvent{}
		var payloadJSON []byte
		if err := rows.Scan(&e.ID, &e.TaskID, &e.Event, &e.MemberID, &payloadJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		if payloadJSON != nil {
			_ = json.Unmarshal(payloadJSON, &e.Payload)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *PostgresStore) GetStats(ctx context.Context) (*TaskStats, error) {
	stats := &TaskStats{ByPriority: make(map[string]int)}
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM concord_members),
			(SELECT COUNT(*) FROM concord_members WHERE status = 'active'),
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'in_progress' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'blocked' THEN 1 ELSE 0 END), 0)
		FROM concord_tasks`,
	).Scan(&stats.TotalMembers, &stats.ActiveMembers, &stats.TotalTasks,
		&stats.TotalPending, &stats.TotalInProgress, &stats.TotalCompleted, &stats.TotalBlocked)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `SELECT priority, COUNT(*) FROM concord_tasks GROUP BY priority`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p string
		var n int
		if err := rows.Scan(&p, &n); err != nil {
			return nil, err
		}
		stats.ByPriority[p] = n
	}
	return stats, rows.Err()
}

func scanMember(row pgx.Row) (*Member, error) {
	m := &Member{}
	var elementsJSON []byte
	if err := row.Scan(&m.ID, &m.Name, &m.Skills, &elementsJSON, &m.Status, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Elements = decodeProfile(elementsJSON)
	return m, nil
}

func scanTask(row pgx.Row) (*Task, error) {
	t := &Task{}
	var affinityJSON []byte
	if err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Priority, &t.RequiredSkills,
		&t.Element, &affinityJSON,
		&t.Status, &t.Progress, &t.Notes, &t.AssignedTo,
		&t.CreatedAt, &t.UpdatedAt, &t.AssignedAt, &t.CompletedAt,
	); err != nil {
		return nil, err
	}
	t.Affinity = decodeProfile(affinityJSON)
	return t, nil
}
