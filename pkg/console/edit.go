package console

import (
	"context"
	"sync"

	"task-console/pkg/task"
)

// Editor holds the shadow copy of the one row being edited. Nothing reaches
// the server until Save.
type Editor struct {
	tasks task.Store
	list  Refresher
	bus   *Bus

	mu      sync.Mutex
	active  bool
	orig    task.Task
	draft   task.Draft
	message string
	notice  string
}

// NewEditor creates an Editor that refreshes list after every save or cancel.
func NewEditor(tasks task.Store, list Refresher, bus *Bus) *Editor {
	return &Editor{tasks: tasks, list: list, bus: bus}
}

// Begin puts t into edit mode, replacing any row already being edited.
func (e *Editor) Begin(t task.Task) {
	e.mu.Lock()
	e.active = true
	e.orig = t
	e.draft = t.Draft()
	e.message = ""
	e.notice = ""
	e.mu.Unlock()
	e.bus.Publish(Change{Source: "editor"})
}

// Editing returns the id of the row in edit mode.
func (e *Editor) Editing() (int64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.orig.ID, e.active
}

// Draft returns the shadow copy.
func (e *Editor) Draft() task.Draft {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft
}

// Change mutates the shadow copy in place.
func (e *Editor) Change(fn func(d *task.Draft)) {
	e.mu.Lock()
	if e.active {
		fn(&e.draft)
	}
	e.mu.Unlock()
}

// Message is the inline error from the last failed save.
func (e *Editor) Message() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.message
}

// Notice is the confirmation from the last successful save.
func (e *Editor) Notice() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.notice
}

// Save validates the shadow copy and writes the full entity. On failure the
// row stays in edit mode so the user can retry or cancel.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return ErrNotActive
	}
	updated := e.orig.Apply(e.draft)
	if err := e.draft.Validate(); err != nil {
		e.message = Describe(err, SessionExpired)
		e.mu.Unlock()
		e.bus.Publish(Change{Source: "editor", Message: Describe(err, SessionExpired)})
		return err
	}
	e.message = ""
	e.mu.Unlock()

	if _, err := e.tasks.Update(ctx, updated); err != nil {
		msg := Describe(err, SessionExpired)
		e.mu.Lock()
		if e.active && e.orig.ID == updated.ID {
			e.message = msg
		}
		e.mu.Unlock()
		e.bus.Publish(Change{Source: "editor", Message: msg})
		return err
	}

	e.mu.Lock()
	if e.orig.ID == updated.ID {
		e.active = false
		e.draft = task.Draft{}
	}
	e.notice = "Task updated successfully!"
	e.mu.Unlock()
	e.bus.Publish(Change{Source: "editor", Notice: "Task updated successfully!"})
	refreshAfter(ctx, e.list, "update")
	return nil
}

// Cancel discards the shadow copy, leaves edit mode and re-reads the list.
func (e *Editor) Cancel(ctx context.Context) error {
	e.mu.Lock()
	e.active = false
	e.orig = task.Task{}
	e.draft = task.Draft{}
	e.message = ""
	e.mu.Unlock()
	e.bus.Publish(Change{Source: "editor"})
	return e.list.Refresh(ctx)
}
