package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps members and tasks in a single embedded database file.
// It is meant for single-node deployments and local development.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS members (
	member_id  TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	skills     TEXT NOT NULL DEFAULT '[]',
	elements   TEXT,
	status     TEXT NOT NULL DEFAULT 'active',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	task_id         TEXT PRIMARY KEY,
	title           TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	priority        TEXT NOT NULL DEFAULT 'B',
	required_skills TEXT NOT NULL DEFAULT '[]',
	element         TEXT NOT NULL DEFAULT '',
	affinity        TEXT,
	status          TEXT NOT NULL DEFAULT 'pending',
	progress        INTEGER NOT NULL DEFAULT 0,
	notes           TEXT NOT NULL DEFAULT '',
	assigned_to     TEXT REFERENCES members (member_id),
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL,
	assigned_at     TEXT,
	completed_at    TEXT
);

CREATE INDEX IF NOT EXISTS idx_tasks_assigned ON tasks (assigned_to, status);

CREATE TABLE IF NOT EXISTS task_events (
	id         TEXT PRIMARY KEY,
	task_id    TEXT NOT NULL REFERENCES tasks (task_id) ON DELETE CASCADE,
	event      TEXT NOT NULL,
	member_id  TEXT NOT NULL DEFAULT '',
	payload    TEXT,
	created_at TEXT NOT NULL
);`

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	// One connection keeps the pragmas in effect and serialises writers,
	// which is what makes AssignTask's conditional update atomic.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migration: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func sqliteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func sqliteNullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return sqliteTime(*t)
}

func parseSQLiteTime(v string) time.Time {
	t, err := time.Parse(sqliteTimeLayout, v)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, v)
	}
	return t
}

func parseSQLiteNullTime(v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	t := parseSQLiteTime(v.String)
	return &t
}

func stringsJSON(s []string) string {
	b, _ := json.Marshal(nonNilStrings(s))
	return string(b)
}

func decodeStrings(v string) []string {
	out := []string{}
	_ = json.Unmarshal([]byte(v), &out)
	return out
}

func nullableJSON(b []byte) interface{} {
	if b == nil {
		return nil
	}
	return string(b)
}

const sqliteMemberColumns = `member_id, name, skills, elements, status, created_at, updated_at`

const sqliteTaskColumns = `task_id, title, description, priority, required_skills,
	element, affinity,
	status, progress, notes, assigned_to,
	created_at, updated_at, assigned_at, completed_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSQLiteMember(row scanner) (*Member, error) {
	m := &Member{}
	var skills, created, updated string
	var elements sql.NullString
	if err := row.Scan(&m.ID, &m.Name, &skills, &elements, &m.Status, &created, &updated); err != nil {
		return nil, err
	}
	m.Skills = decodeStrings(skills)
	if elements.Valid {
		m.Elements = decodeProfile([]byte(elements.String))
	}
	m.CreatedAt = parseSQLiteTime(created)
	m.UpdatedAt = parseSQLiteTime(updated)
	return m, nil
}

func scanSQLiteTask(row scanner) (*Task, error) {
	t := &Task{}
	var skills, created, updated string
	var affinity, assignedTo, assignedAt, completedAt sql.NullString
	if err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Priority, &skills,
		&t.Element, &affinity,
		&t.Status, &t.Progress, &t.Notes, &assignedTo,
		&created, &updated, &assignedAt, &completedAt,
	); err != nil {
		return nil, err
	}
	t.RequiredSkills = decodeStrings(skills)
	if affinity.Valid {
		t.Affinity = decodeProfile([]byte(affinity.String))
	}
	if assignedTo.Valid {
		id, err := uuid.Parse(assignedTo.String)
		if err != nil {
			return nil, fmt.Errorf("parse assigned_to: %w", err)
		}
		t.AssignedTo = &id
	}
	t.CreatedAt = parseSQLiteTime(created)
	t.UpdatedAt = parseSQLiteTime(updated)
	t.AssignedAt = parseSQLiteNullTime(assignedAt)
	t.CompletedAt = parseSQLiteNullTime(completedAt)
	return t, nil
}

func (s *SQLiteStore) CreateMember(ctx context.Context, m *Member) error {
	if m.Status == "" {
		m.Status = MemberActive
	}
	m.ID = uuid.New()
	m.Skills = nonNilStrings(m.Skills)
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO members (member_id, name, skills, elements, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID.String(), m.Name, stringsJSON(m.Skills), nullableJSON(profileJSON(m.Elements)),
		string(m.Status), sqliteTime(now), sqliteTime(now),
	)
	if err != nil {
		return err
	}
	m.CreatedAt, m.UpdatedAt = now, now
	return nil
}

func (s *SQLiteStore) GetMember(ctx context.Context, id uuid.UUID) (*Member, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteMemberColumns+` FROM members WHERE member_id = ?`, id.String())
	m, err := scanSQLiteMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func (s *SQLiteStore) ListMembers(ctx context.Context, filter MemberFilter) ([]*Member, error) {
	query := `SELECT ` + sqliteMemberColumns + ` FROM members WHERE 1=1`
	args := []interface{}{}
	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*filter.Status))
	}
	query += " ORDER BY rowid ASC LIMIT ? OFFSET ?"
	args = append(args, listLimit(filter.Limit), filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*Member
	for rows.Next() {
		m, err := scanSQLiteMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *SQLiteStore) UpdateMember(ctx context.Context, m *Member) error {
	m.Skills = nonNilStrings(m.Skills)
	m.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE members SET name = ?, skills = ?, elements = ?, status = ?, updated_at = ?
		WHERE member_id = ?`,
		m.Name, stringsJSON(m.Skills), nullableJSON(profileJSON(m.Elements)), string(m.Status),
		sqliteTime(m.UpdatedAt), m.ID.String(),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) CreateTask(ctx context.Context, t *Task) error {
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.Priority == "" {
		t.Priority = DefaultPriority
	}
	t.ID = uuid.New()
	t.RequiredSkills = nonNilStrings(t.RequiredSkills)
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (task_id, title, description, priority, required_skills,
			element, affinity, status, progress, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID.String(), t.Title, t.Description, t.Priority, stringsJSON(t.RequiredSkills),
		t.Element, nullableJSON(profileJSON(t.Affinity)), string(t.Status), t.Progress, t.Notes,
		sqliteTime(now), sqliteTime(now),
	)
	if err != nil {
		return err
	}
	t.CreatedAt, t.UpdatedAt = now, now
	return nil
}

func (s *SQLiteStore) GetTask(ctx context.Context, id uuid.UUID) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteTaskColumns+` FROM tasks WHERE task_id = ?`, id.String())
	t, err := scanSQLiteTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func (s *SQLiteStore) ListTasks(ctx context.Context, filter TaskFilter) ([]*Task, error) {
	query := `SELECT ` + sqliteTaskColumns + ` FROM tasks WHERE 1=1`
	args := []interface{}{}
	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*filter.Status))
	}
	if filter.AssignedTo != nil {
		query += " AND assigned_to = ?"
		args = append(args, filter.AssignedTo.String())
	}
	if filter.Unassigned {
		query += " AND assigned_to IS NULL"
	}
	query += " ORDER BY rowid ASC LIMIT ? OFFSET ?"
	args = append(args, listLimit(filter.Limit), filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanSQLiteTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *SQLiteStore) UpdateTask(ctx context.Context, t *Task) error {
	t.RequiredSkills = nonNilStrings(t.RequiredSkills)
	t.UpdatedAt = time.Now().UTC()
	var assignedTo interface{}
	if t.AssignedTo != nil {
		assignedTo = t.AssignedTo.String()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET
			title = ?, description = ?, priority = ?, required_skills = ?,
			element = ?, affinity = ?,
			status = ?, progress = ?, notes = ?, assigned_to = ?,
			assigned_at = ?, completed_at = ?, updated_at = ?
		WHERE task_id = ?`,
		t.Title, t.Description, t.Priority, stringsJSON(t.RequiredSkills),
		t.Element, nullableJSON(profileJSON(t.Affinity)),
		string(t.Status), t.Progress, t.Notes, assignedTo,
		sqliteNullTime(t.AssignedAt), sqliteNullTime(t.CompletedAt), sqliteTime(t.UpdatedAt),
		t.ID.String(),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) AssignTask(ctx context.Context, taskID, memberID uuid.UUID) (*Task, error) {
	now := sqliteTime(time.Now())
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET
			assigned_to = ?,
			status = 'in_progress',
			assigned_at = COALESCE(assigned_at, ?),
			updated_at = ?
		WHERE task_id = ?
			AND status <> 'completed'
			AND (assigned_to IS NULL OR assigned_to = ?)`,
		memberID.String(), now, now, taskID.String(), memberID.String(),
	)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}

	current, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, assignConflict(current)
	}
	return current, nil
}

func (s *SQLiteStore) ActiveTaskCounts(ctx context.Context) (map[uuid.UUID]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT assigned_to, COUNT(*) FROM tasks
		WHERE assigned_to IS NOT NULL AND status <> 'completed'
		GROUP BY assigned_to`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var raw string
		var n int
		if err := rows.Scan(&raw, &n); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse assigned_to: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) CreateTaskEvent(ctx context.Context, event *TaskEvent) error {
	payloadJSON, _ := json.Marshal(event.Payload)
	event.ID = uuid.New()
	event.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_events (id, task_id, event, member_id, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID.String(), event.TaskID.String(), event.Event, event.MemberID,
		string(payloadJSON), sqliteTime(event.CreatedAt),
	)
	return err
}

func (s *SQLiteStore) GetTaskEvents(ctx context.Context, taskID uuid.UUID) ([]*TaskEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, event, member_id, payload, created_at
		FROM task_events WHERE task_id = ?
		ORDER BY rowid ASC`, taskID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*TaskEvent
	for rows.Next() {
		e := &TaskEvent{}
		var payload sql.NullString
		var created string
		if err := rows.Scan(&e.ID, &e.TaskID, &e.Event, &e.MemberID, &payload, &created); err != nil {
			return nil, err
		}
		if payload.Valid {
			_ = json.Unmarshal([]byte(payload.String), &e.Payload)
		}
		e.CreatedAt = parseSQLiteTime(created)
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *SQLiteStore) GetStats(ctx context.Context) (*TaskStats, error) {
	stats := &TaskStats{ByPriority: make(map[string]int)}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM members),
			(SELECT COUNT(*) FROM members WHERE status = 'active'),
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'in_progress' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'blocked' THEN 1 ELSE 0 END), 0)
		FROM tasks`,
	).Scan(&stats.TotalMembers, &stats.ActiveMembers, &stats.TotalTasks,
		&stats.TotalPending, &stats.TotalInProgress, &stats.TotalCompleted, &stats.TotalBlocked)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT priority, COUNT(*) FROM tasks GROUP BY priority`)
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
