// Package store persists the development backend's accounts, access tokens
// and tasks.
package store

import (
	"context"
	"errors"
	"time"

	"task-console/pkg/session"
	"task-console/pkg/task"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrExists is returned when an account's email is already registered.
	ErrExists = errors.New("already exists")
)

// Account is a registered user with its password hash.
type Account struct {
	ID           int64
	FirstName    string
	LastName     string
	Email        string
	PhoneNumber  string
	Address      string
	Gender       string
	Role         session.Role
	PasswordHash []byte
	CreatedAt    time.Time
}

// Store is the contract for backend persistence.
type Store interface {
	CreateAccount(ctx context.Context, a *Account) (*Account, error)
	AccountByEmail(ctx context.Context, email string) (*Account, error)
	// AccountByName matches first and last name case-insensitively.
	AccountByName(ctx context.Context, firstName, lastName string) (*Account, error)
	Accounts(ctx context.Context, pageNum, pageSize int) ([]Account, int64, error)

	SaveToken(ctx context.Context, token, email string) error
	TokenOwner(ctx context.Context, token string) (string, error)

	CreateTask(ctx context.Context, t *task.Task) (*task.Task, error)
	GetTask(ctx context.Context, id int64) (*task.Task, error)
	UpdateTask(ctx context.Context, t *task.Task) (*task.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	// Tasks pages through tasks in creation order. An empty assignee lists all.
	Tasks(ctx context.Context, assignee string, pageNum, pageSize int) ([]task.Task, int64, error)
}
