package console

import (
	"context"
	"sync"

	"task-console/pkg/task"
	"task-console/pkg/user"
)

// Assigner is the assignment sub-flow for one task: pick a user by email
// from the first page of candidates and submit.
type Assigner struct {
	tasks task.Store
	users user.Service
	list  Refresher
	bus   *Bus

	mu         sync.Mutex
	active     bool
	task       task.Task
	candidates []user.User
	selected   string
	fieldErr   string
	message    string
	notice     string
}

// NewAssigner creates an Assigner that refreshes list after submit or cancel.
func NewAssigner(tasks task.Store, users user.Service, list Refresher, bus *Bus) *Assigner {
	return &Assigner{tasks: tasks, users: users, list: list, bus: bus}
}

// Begin enters assign mode for t and loads the candidate users. If loading
// fails the flow stays open with the error shown, so the user can cancel.
func (a *Assigner) Begin(ctx context.Context, t task.Task) error {
	a.mu.Lock()
	a.active = true
	a.task = t
	a.candidates = nil
	a.selected = ""
	a.fieldErr = ""
	a.message = ""
	a.notice = ""
	a.mu.Unlock()

	users, err := a.users.Candidates(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.active || a.task.ID != t.ID {
		return ErrSuperseded
	}
	if err != nil {
		a.message = Describe(err, SessionExpired)
		a.bus.Publish(Change{Source: "assigner", Message: a.message})
		return err
	}
	a.candidates = users
	a.bus.Publish(Change{Source: "assigner"})
	return nil
}

// Assigning returns the id of the task being assigned.
func (a *Assigner) Assigning() (int64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.task.ID, a.active
}

// Candidates returns the users offered for selection.
func (a *Assigner) Candidates() []user.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]user.User, len(a.candidates))
	copy(out, a.candidates)
	return out
}

// Select chooses the assignee by email.
func (a *Assigner) Select(email string) {
	a.mu.Lock()
	a.selected = email
	a.fieldErr = ""
	a.mu.Unlock()
}

// Selected returns the chosen email.
func (a *Assigner) Selected() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selected
}

// FieldError is the selection error, if any.
func (a *Assigner) FieldError() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fieldErr
}

// Message is the inline error from the last failed submit.
func (a *Assigner) Message() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.message
}

// Notice is the confirmation from the last successful submit.
func (a *Assigner) Notice() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.notice
}

// Submit assigns the task to the selected user. An empty selection fails
// without a request.
func (a *Assigner) Submit(ctx context.Context) error {
	a.mu.Lock()
	if !a.active {
		a.mu.Unlock()
		return ErrNotActive
	}
	if a.selected == "" {
		a.fieldErr = ErrSelectionRequired.Message
		a.mu.Unlock()
		a.bus.Publish(Change{Source: "assigner", Message: ErrSelectionRequired.Message})
		return ErrSelectionRequired
	}
	id, email := a.task.ID, a.selected
	a.message = ""
	a.mu.Unlock()

	if err := a.tasks.Assign(ctx, id, email); err != nil {
		msg := Describe(err, SessionExpired)
		a.mu.Lock()
		if a.active && a.task.ID == id {
			a.message = msg
		}
		a.mu.Unlock()
		a.bus.Publish(Change{Source: "assigner", Message: msg})
		return err
	}

	a.mu.Lock()
	if a.task.ID == id {
		a.active = false
		a.selected = ""
		a.candidates = nil
	}
	a.notice = "Task assigned successfully!"
	a.mu.Unlock()
	a.bus.Publish(Change{Source: "assigner", Notice: "Task assigned successfully!"})
	refreshAfter(ctx, a.list, "assign")
	return nil
}

// Cancel leaves assign mode and re-reads the list.
func (a *Assigner) Cancel(ctx context.Context) error {
	a.mu.Lock()
	a.active = false
	a.task = task.Task{}
	a.candidates = nil
	a.selected = ""
	a.fieldErr = ""
	a.message = ""
	a.mu.Unlock()
	a.bus.Publish(Change{Source: "assigner"})
	return a.list.Refresh(ctx)
}
