// Package roster manages the tracked people and the base timezone context.
package roster

import (
	"context"
	"errors"

	"tzgrid/internal/model"
)

var (
	// ErrNotFound is returned when a person id does not exist.
	ErrNotFound = errors.New("person not found")
	// ErrEmptyName is returned when a name is blank after trimming.
	ErrEmptyName = errors.New("name is required")
)

// Store defines persistence for the roster. Implementations must return
// ErrNotFound (possibly wrapped) for unknown ids.
type Store interface {
	// CreatePerson persists p, assigning ID, Position and CreatedAt when unset.
	CreatePerson(ctx context.Context, p *model.Person) error

	GetPerson(ctx context.Context, id string) (*model.Person, error)

	// ListPeople returns everyone in roster order.
	ListPeople(ctx context.Context) ([]model.Person, error)

	RenamePerson(ctx context.Context, id, name string) error

	DeletePerson(ctx context.Context, id string) error

	// GetBase returns the stored base context; ok is false when none is stored.
	GetBase(ctx context.Context) (base model.BaseContext, ok bool, err error)

	SetBase(ctx context.Context, base model.BaseContext) error

	// Close releases any resources held by the store.
	Close() error
}
