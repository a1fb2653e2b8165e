package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// fixed width so that text ordering matches time ordering
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepo struct {
	db *sql.DB
}

func NewSQLiteRepo(dsn string) (*SQLiteRepo, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// Reasonable pragmas for an app server
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
		PRAGMA foreign_keys=ON;
	`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteRepo{db: db}, nil
}

func (r *SQLiteRepo) Close() error { return r.db.Close() }

// ApplyMigrations ensures schema exists
func (r *SQLiteRepo) ApplyMigrations(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS task_lists (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created TEXT NOT NULL,
	updated TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	task_list_id TEXT NOT NULL REFERENCES task_lists(id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	due_date TEXT,
	priority TEXT NOT NULL,
	status TEXT NOT NULL,
	created TEXT NOT NULL,
	updated TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tasks_task_list_id ON tasks(task_list_id);
	`)
	return err
}

func (r *SQLiteRepo) ListTaskLists(ctx context.Context) ([]TaskList, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, description, created, updated
		FROM task_lists
		ORDER BY created ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]TaskList, 0)
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		l, err := scanTaskList(rows)
		if err != nil {
			return nil, err
		}
		l.Tasks = make([]Task, 0)
		index[l.ID] = len(out)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	all, err := r.queryTasks(ctx, `
		SELECT id, task_list_id, title, description, due_date, priority, status, created, updated
		FROM tasks
		ORDER BY created ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	for _, t := range all {
		if i, ok := index[t.TaskListID]; ok {
			out[i].Tasks = append(out[i].Tasks, t)
		}
	}
	return out, nil
}

func (r *SQLiteRepo) GetTaskList(ctx context.Context, id uuid.UUID) (TaskList, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, description, created, updated
		FROM task_lists
		WHERE id = ?
	`, id)
	l, err := scanTaskList(row)
	if errors.Is(err, sql.ErrNoRows) {
		return TaskList{}, ErrNotFound
	}
	if err != nil {
		return TaskList{}, err
	}
	l.Tasks, err = r.tasksOf(ctx, id)
	if err != nil {
		return TaskList{}, err
	}
	return l, nil
}

func (r *SQLiteRepo) SaveTaskList(ctx context.Context, list TaskList) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO task_lists (id, title, description, created, updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			updated = excluded.updated
	`, list.ID, list.Title, list.Description, formatTime(list.Created), formatTime(list.Updated))
	return err
}

func (r *SQLiteRepo) DeleteTaskList(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE task_list_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_lists WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepo) ListTasks(ctx context.Context, listID uuid.UUID) ([]Task, error) {
	if err := r.listExists(ctx, listID); err != nil {
		return nil, err
	}
	return r.tasksOf(ctx, listID)
}

func (r *SQLiteRepo) GetTask(ctx context.Context, listID, taskID uuid.UUID) (Task, error) {
	found, err := r.queryTasks(ctx, `
		SELECT id, task_list_id, title, description, due_date, priority, status, created, updated
		FROM tasks
		WHERE id = ? AND task_list_id = ?
	`, taskID, listID)
	if err != nil {
		return Task{}, err
	}
	if len(found) == 0 {
		return Task{}, ErrNotFound
	}
	return found[0], nil
}

func (r *SQLiteRepo) SaveTask(ctx context.Context, task Task) error {
	if err := r.listExists(ctx, task.TaskListID); err != nil {
		return err
	}
	var due sql.NullString
	if task.DueDate != nil {
		due = sql.NullString{String: formatTime(*task.DueDate), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (id, task_list_id, title, description, due_date, priority, status, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			due_date = excluded.due_date,
			priority = excluded.priority,
			status = excluded.status,
			updated = excluded.updated
	`, task.ID, task.TaskListID, task.Title, task.Description, due,
		string(task.Priority), string(task.Status), formatTime(task.Created), formatTime(task.Updated))
	return err
}

func (r *SQLiteRepo) DeleteTask(ctx context.Context, listID, taskID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND task_list_id = ?`, taskID, listID)
	return err
}

func (r *SQLiteRepo) listExists(ctx context.Context, id uuid.UUID) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM task_lists WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *SQLiteRepo) tasksOf(ctx context.Context, listID uuid.UUID) ([]Task, error) {
	return r.queryTasks(ctx, `
		SELECT id, task_list_id, title, description, due_date, priority, status, created, updated
		FROM tasks
		WHERE task_list_id = ?
		ORDER BY created ASC, id ASC
	`, listID)
}

func (r *SQLiteRepo) queryTasks(ctx context.Context, query string, args ...any) ([]Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Task, 0)
	for rows.Next() {
		var (
			t                Task
			due              sql.NullString
			priority, status string
			created, updated string
		)
		if err := rows.Scan(&t.ID, &t.TaskListID, &t.Title, &t.Description, &due, &priority, &status, &created, &updated); err != nil {
			return nil, err
		}
		t.Priority = Priority(priority)
		t.Status = Status(status)
		if due.Valid {
			d, err := parseTime(due.String)
			if err != nil {
				return nil, err
			}
			t.DueDate = &d
		}
		if t.Created, err = parseTime(created); err != nil {
			return nil, err
		}
		if t.Updated, err = parseTime(updated); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTaskList(s rowScanner) (TaskList, error) {
	var (
		l                TaskList
		created, updated string
	)
	if err := s.Scan(&l.ID, &l.Title, &l.Description, &created, &updated); err != nil {
		return TaskList{}, err
	}
	var err error
	if l.Created, err = parseTime(created); err != nil {
		return TaskList{}, err
	}
	if l.Updated, err = parseTime(updated); err != nil {
		return TaskList{}, err
	}
	return l, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

// Helper to build DSN like: file:/absolute/path?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)
func SQLiteFileDSN(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return "file:" + filepath.ToSlash(abs) + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", nil
}
