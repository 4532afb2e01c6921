// Package store holds the backend's todo collection.
//
// Todos live in a private in-memory SQLite database, so the collection
// disappears with the process and ids restart at 1 on the next start.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fentz26/sockdo/internal/models"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no todo has the requested id.
var ErrNotFound = errors.New("todo not found")

// Store provides serialized access to the todo collection.
type Store struct {
	mu  sync.Mutex
	db  *sql.DB
	now func() time.Time
}

// New opens an empty in-memory collection.
func New() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Every connection to :memory: is a separate database, so the pool must
	// hold exactly one connection for the lifetime of the store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close releases the database. The collection is lost.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	// AUTOINCREMENT keeps ids strictly increasing even after deletes.
	schema := `
	CREATE TABLE IF NOT EXISTS todos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Patch lists the fields of an update. Nil fields are left unchanged.
type Patch struct {
	Title     *string
	Completed *bool
}

// ListTodos returns every todo in insertion order. The result is never nil.
func (s *Store) ListTodos(ctx context.Context) ([]models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, title, completed, created_at FROM todos ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query todos: %w", err)
	}
	defer rows.Close()

	todos := []models.Todo{}
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		todos = append(todos, *todo)
	}
	return todos, rows.Err()
}

// CountTodos returns the size of the collection.
func (s *Store) CountTodos(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM todos`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count todos: %w", err)
	}
	return n, nil
}

// CreateTodo appends a new, incomplete todo stamped with the current time.
func (s *Store) CreateTodo(ctx context.Context, title string) (*models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := models.NewTimestamp(s.now())
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO todos (title, completed, created_at) VALUES (?, 0, ?)`,
		title, created.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert todo: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert todo: %w", err)
	}

	return &models.Todo{
		ID:        id,
		Title:     title,
		Completed: false,
		CreatedAt: created,
	}, nil
}

// GetTodo retrieves a todo by id.
func (s *Store) GetTodo(ctx context.Context, id int64) (*models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getTodo(ctx, s.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) getTodo(ctx context.Context, q queryRower, id int64) (*models.Todo, error) {
	row := q.QueryRowContext(ctx, `SELECT id, title, completed, created_at FROM todos WHERE id = ?`, id)
	todo, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return todo, err
}

// UpdateTodo overwrites the fields set in p and returns the result.
func (s *Store) UpdateTodo(ctx context.Context, id int64, p Patch) (*models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	todo, err := s.getTodo(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if p.Title != nil {
		todo.Title = *p.Title
	}
	if p.Completed != nil {
		todo.Completed = *p.Completed
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE todos SET title = ?, completed = ? WHERE id = ?`,
		todo.Title, todo.Completed, todo.ID,
	); err != nil {
		return nil, fmt.Errorf("update todo: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return todo, nil
}

// DeleteTodo removes a todo by id.
func (s *Store) DeleteTodo(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTodo(row scanner) (*models.Todo, error) {
	var (
		todo      models.Todo
		completed int64
		createdMs int64
	)
	if err := row.Scan(&todo.ID, &todo.Title, &completed, &createdMs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan todo: %w", err)
	}
	todo.Completed = completed != 0
	todo.CreatedAt = models.NewTimestamp(time.UnixMilli(createdMs))
	return &todo, nil
}
