// Package sqlite provides a SQLite-backed implementation of roster.Store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"tzgrid/internal/model"
	"tzgrid/internal/roster"
)

var _ roster.Store = (*SQLiteStore)(nil)

const (
	settingBaseTimezone = "base_timezone"
	settingBaseLabel    = "base_label"
)

// SQLiteStore implements roster.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens (creating if needed) the database at dbPath and runs migrations.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps position assignment and settings writes
	// serialized; the roster is tiny.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreatePerson appends a person to the end of the roster.
func (s *SQLiteStore) CreatePerson(ctx context.Context, p *model.Person) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(position), -1) + 1 FROM people",
	).Scan(&p.Position); err != nil {
		return fmt.Errorf("failed to compute position: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO people (id, name, timezone, position, created_at) VALUES (?, ?, ?, ?, ?)",
		p.ID, p.Name, p.Timezone, p.Position, p.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert person: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetPerson retrieves a person by ID.
func (s *SQLiteStore) GetPerson(ctx context.Context, id string) (*model.Person, error) {
	var (
		p       model.Person
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, timezone, position, created_at FROM people WHERE id = ?",
		id,
	).Scan(&p.ID, &p.Name, &p.Timezone, &p.Position, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", roster.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	p.CreatedAt = time.UnixMilli(created).UTC()
	return &p, nil
}

// ListPeople returns the roster ordered by position.
func (s *SQLiteStore) ListPeople(ctx context.Context) ([]model.Person, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, timezone, position, created_at FROM people ORDER BY position",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list people: %w", err)
	}
	defer rows.Close()

	people := make([]model.Person, 0)
	for rows.Next() {
		var (
			p       model.Person
			created int64
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Timezone, &p.Position, &created); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		p.CreatedAt = time.UnixMilli(created).UTC()
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate people: %w", err)
	}
	return people, nil
}

// RenamePerson updates a person's display name. The timezone column is never
// written after insert.
func (s *SQLiteStore) RenamePerson(ctx context.Context, id, name string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE people SET name = ? WHERE id = ?", name, id)
	if err != nil {
		return fmt.Errorf("failed to rename person: %w", err)
	}
	return requireAffected(res, id)
}

// DeletePerson removes a person from the roster.
func (s *SQLiteStore) DeletePerson(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM people WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete person: %w", err)
	}
	return requireAffected(res, id)
}

// GetBase returns the stored base context, if any.
func (s *SQLiteStore) GetBase(ctx context.Context) (model.BaseContext, bool, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key, value FROM settings WHERE key IN (?, ?)",
		settingBaseTimezone, settingBaseLabel,
	)
	if err != nil {
		return model.BaseContext{}, false, fmt.Errorf("failed to get base: %w", err)
	}
	defer rows.Close()

	var (
		base  model.BaseContext
		found bool
	)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return model.BaseContext{}, false, fmt.Errorf("failed to scan setting: %w", err)
		}
		switch key {
		case settingBaseTimezone:
			base.Timezone = value
			found = true
		case settingBaseLabel:
			base.Label = value
		}
	}
	if err := rows.Err(); err != nil {
		return model.BaseContext{}, false, fmt.Errorf("failed to iterate settings: %w", err)
	}
	return base, found, nil
}

// SetBase stores the base timezone and label together.
func (s *SQLiteStore) SetBase(ctx context.Context, base model.BaseContext) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	const upsert = "INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value"
	if _, err := tx.ExecContext(ctx, upsert, settingBaseTimezone, base.Timezone); err != nil {
		return fmt.Errorf("failed to store base timezone: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsert, settingBaseLabel, base.Label); err != nil {
		return fmt.Errorf("failed to store base label: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", roster.ErrNotFound, id)
	}
	return nil
}
