package devserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "modernc.org/sqlite" // register sqlite driver

	"github.com/dohr-michael/taskpilot/internal/tasks"
)

const taskSchema = `
CREATE TABLE IF NOT EXISTS tasks (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	title       TEXT    NOT NULL,
	description TEXT    NOT NULL DEFAULT '',
	status      TEXT    NOT NULL DEFAULT 'pending',
	priority    TEXT    NOT NULL DEFAULT 'medium',
	due_date    TEXT
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
`

const taskColumns = `id, title, description, status, priority, due_date`

// SQLiteStore keeps tasks in a sqlite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and runs the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(taskSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run task schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) List(ctx context.Context, q Query) ([]tasks.Task, error) {
	q = q.normalized()

	var conditions []string
	var args []any
	if q.Filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(q.Filter.Status))
	}
	if q.Filter.Priority != "" {
		conditions = append(conditions, "priority = ? COLLATE NOCASE")
		args = append(args, q.Filter.Priority)
	}
	if q.Filter.DueDate != nil {
		conditions = append(conditions, "due_date = ?")
		args = append(args, q.Filter.DueDate.String())
	}

	stmt := "SELECT " + taskColumns + " FROM tasks"
	if len(conditions) > 0 {
		stmt += " WHERE " + strings.Join(conditions, " AND ")
	}
	stmt += " ORDER BY id LIMIT ? OFFSET ?"
	args = append(args, q.PageSize, q.offset())

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	list := []tasks.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (s *SQLiteStore) Create(ctx context.Context, nt tasks.NewTask) (tasks.Task, error) {
	t := newTaskRecord("", nt)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (title, description, status, priority, due_date) VALUES (?, ?, ?, ?, ?)`,
		t.Title, t.Description, string(t.Status), t.Priority, dateValue(t.DueDate),
	)
	if err != nil {
		return tasks.Task{}, fmt.Errorf("insert task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return tasks.Task{}, fmt.Errorf("insert task: %w", err)
	}
	t.ID = tasks.ID(strconv.FormatInt(id, 10))
	return t, nil
}

func (s *SQLiteStore) Update(ctx context.Context, id tasks.ID, p Patch) (tasks.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return tasks.Task{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	t, err := scanTask(tx.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", string(id)))
	if err != nil {
		return tasks.Task{}, err
	}
	p.apply(&t)

	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?, due_date = ? WHERE id = ?`,
		t.Title, t.Description, string(t.Status), t.Priority, dateValue(t.DueDate), string(id),
	)
	if err != nil {
		return tasks.Task{}, fmt.Errorf("update task %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return tasks.Task{}, fmt.Errorf("commit update: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id tasks.ID) (tasks.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", string(id)))
	if err != nil {
		return tasks.Task{}, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, string(id)); err != nil {
		return tasks.Task{}, fmt.Errorf("delete task %s: %w", id, err)
	}
	return t, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (tasks.Task, error) {
	var (
		t      tasks.Task
		id     int64
		status string
		due    sql.NullString
	)
	if err := row.Scan(&id, &t.Title, &t.Description, &status, &t.Priority, &due); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tasks.Task{}, ErrTaskNotFound
		}
		return tasks.Task{}, fmt.Errorf("scan task: %w", err)
	}
	t.ID = tasks.ID(strconv.FormatInt(id, 10))
	t.Status = tasks.Status(status)
	if due.Valid && due.String != "" {
		d, err := tasks.ParseDate(due.String)
		if err != nil {
			return tasks.Task{}, fmt.Errorf("task %d: %w", id, err)
		}
		t.DueDate = &d
	}
	return t, nil
}

func dateValue(d *tasks.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}
