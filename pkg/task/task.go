package task

import (
	"context"
	"fmt"
	"strings"
	"time"

	"task-console/pkg/page"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusBlocked    Status = "BLOCKED"
	StatusDone       Status = "DONE"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusBlocked, StatusDone}

// ParseStatus accepts a status name in any case, with spaces or underscores.
func ParseStatus(s string) (Status, error) {
	norm := Status(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", "_")))
	if norm.Valid() {
		return norm, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusBlocked, StatusDone:
		return true
	}
	return false
}

// Label is the human form, e.g. "IN PROGRESS".
func (s Status) Label() string { return strings.ReplaceAll(string(s), "_", " ") }

// Next cycles through Statuses.
func (s Status) Next() Status {
	for i, st := range Statuses {
		if st == s {
			return Statuses[(i+1)%len(Statuses)]
		}
	}
	return StatusTodo
}

// Task represents a unit of work. The server owns the canonical record; a
// Task held by the client is a possibly stale copy from the last page fetched.
type Task struct {
	ID           int64      `json:"id"`
	Title        string     `json:"taskTitle"`
	Details      string     `json:"taskDetails,omitempty"`
	Status       Status     `json:"status"`
	Email        string     `json:"email"`     // assignee, empty until assigned
	FirstName    string     `json:"firstName"` // assignee
	LastName     string     `json:"lastName"`  // assignee
	PeriodInDays int        `json:"periodInDays"`
	StartDate    Date       `json:"startDate"`
	DateCreated  *time.Time `json:"dateCreated,omitempty"`
	DateModified *time.Time `json:"dateModified,omitempty"`
}

// Assignee returns the assignee's full name, or "" when unassigned.
func (t Task) Assignee() string {
	return strings.TrimSpace(t.FirstName + " " + t.LastName)
}

// Modified formats DateModified, or "N/A" for a task never modified.
func (t Task) Modified() string {
	if t.DateModified == nil || t.DateModified.IsZero() {
		return "N/A"
	}
	return t.DateModified.Format(time.DateOnly)
}

// Draft returns the mutable fields of t.
func (t Task) Draft() Draft {
	return Draft{
		Title:        t.Title,
		Details:      t.Details,
		Status:       t.Status,
		PeriodInDays: t.PeriodInDays,
		StartDate:    t.StartDate,
	}
}

// Apply returns a copy of t with d's fields written over it. Identity,
// assignee and server timestamps are carried through unchanged.
func (t Task) Apply(d Draft) Task {
	t.Title = d.Title
	t.Details = d.Details
	t.Status = d.Status
	t.PeriodInDays = d.PeriodInDays
	t.StartDate = d.StartDate
	return t
}

// Draft is the subset of a task a user may edit, and the body of a create.
type Draft struct {
	Title        string `json:"taskTitle"`
	Details      string `json:"taskDetails,omitempty"`
	Status       Status `json:"status"`
	PeriodInDays int    `json:"periodInDays"`
	StartDate    Date   `json:"startDate"`
}

// ValidationMessage is shown when a create or update lacks a title or period.
const ValidationMessage = "Please enter a title and period for the task!"

// ValidationError is a client-side precondition failure. No request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validate checks the client-side preconditions for create and update: a
// non-empty title and a positive period. The server remains authoritative.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return &ValidationError{Field: "taskTitle", Message: ValidationMessage}
	}
	if d.PeriodInDays <= 0 {
		return &ValidationError{Field: "periodInDays", Message: ValidationMessage}
	}
	if d.Status != "" && !d.Status.Valid() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("Unknown task status %q", d.Status)}
	}
	return nil
}

// Scope selects which task collection a listing reads.
type Scope int

const (
	// ScopeOwn lists only tasks assigned to the caller.
	ScopeOwn Scope = iota
	// ScopeAll lists every task; admin only.
	ScopeAll
)

// ScopeFor picks the listing scope for a role: admins see everything.
func ScopeFor(admin bool) Scope {
	if admin {
		return ScopeAll
	}
	return ScopeOwn
}

// Store is the contract for task operations against the task service.
type Store interface {
	Page(ctx context.Context, scope Scope, pageNum, pageSize int) (*page.Page[Task], error)
	Create(ctx context.Context, d Draft) (*Task, error)
	Update(ctx context.Context, t Task) (*Task, error)
	SetStatus(ctx context.Context, id int64, status Status) (*Task, error)
	Delete(ctx context.Context, id int64) error
	Assign(ctx context.Context, id int64, email string) error
}
