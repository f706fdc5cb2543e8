package console

import (
	"context"
	"sync"

	"task-console/pkg/apiclient"
	"task-console/pkg/page"
	"task-console/pkg/session"
	"task-console/pkg/task"
	"task-console/pkg/user"
)

// Capabilities are the task actions a role may take.
type Capabilities struct {
	Create bool
	Edit   bool
	Delete bool
	Assign bool
}

// CapabilitiesFor maps a role to its capabilities. Standard users may only
// edit tasks assigned to them.
func CapabilitiesFor(admin bool) Capabilities {
	if admin {
		return Capabilities{Create: true, Edit: true, Delete: true, Assign: true}
	}
	return Capabilities{Edit: true}
}

// Board is the task list screen: a paged list scoped by role plus the edit,
// assign, delete and create actions on it.
type Board struct {
	sess  *session.Manager
	tasks task.Store
	bus   *Bus

	List     *List[task.Task]
	Editor   *Editor
	Assigner *Assigner

	mu      sync.Mutex
	message string
	notice  string
}

// NewBoard wires a Board. The listing scope is read from the session on
// every fetch, so it follows whoever is logged in.
func NewBoard(sess *session.Manager, tasks task.Store, users user.Service, pageSize int, bus *Bus) *Board {
	b := &Board{sess: sess, tasks: tasks, bus: bus}
	b.List = NewList(func(ctx context.Context, pageNum, size int) (*page.Page[task.Task], error) {
		return tasks.Page(ctx, task.ScopeFor(sess.IsAdmin()), pageNum, size)
	}, pageSize, bus)
	b.Editor = NewEditor(tasks, b.List, bus)
	b.Assigner = NewAssigner(tasks, users, b.List, bus)
	return b
}

// Can returns the current session's capabilities.
func (b *Board) Can() Capabilities { return CapabilitiesFor(b.sess.IsAdmin()) }

// Title is the heading: "User Tasks" for admins, the user's name otherwise.
func (b *Board) Title() string {
	if b.sess.IsAdmin() {
		return "User Tasks"
	}
	return b.sess.Current().FullName()
}

// Message is the board-level error text.
func (b *Board) Message() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.message
}

// Notice is the board-level confirmation text.
func (b *Board) Notice() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.notice
}

func (b *Board) report(err error, notice string) {
	msg := Describe(err, SessionExpired)
	b.mu.Lock()
	b.message = msg
	b.notice = notice
	b.mu.Unlock()
	b.bus.Publish(Change{Source: "board", Message: msg, Notice: notice})
}

// Edit opens the inline editor on t.
func (b *Board) Edit(t task.Task) error {
	if !b.Can().Edit {
		return ErrNotPermitted
	}
	b.Editor.Begin(t)
	return nil
}

// Assign opens the assignment flow on t.
func (b *Board) Assign(ctx context.Context, t task.Task) error {
	if !b.Can().Assign {
		return ErrNotPermitted
	}
	return b.Assigner.Begin(ctx, t)
}

// Delete removes a task and re-reads the current page.
func (b *Board) Delete(ctx context.Context, id int64) error {
	if !b.Can().Delete {
		b.report(ErrNotPermitted, "")
		return ErrNotPermitted
	}
	if err := b.tasks.Delete(ctx, id); err != nil {
		b.report(err, "")
		return err
	}
	b.report(nil, "Task deleted successfully!")
	refreshAfter(ctx, b.List, "delete")
	return nil
}

// Create validates and posts a new task, then re-reads the current page.
func (b *Board) Create(ctx context.Context, d task.Draft) (*task.Task, error) {
	if !b.Can().Create {
		b.report(ErrNotPermitted, "")
		return nil, ErrNotPermitted
	}
	if err := d.Validate(); err != nil {
		b.report(err, "")
		return nil, err
	}
	t, err := b.tasks.Create(ctx, d)
	if err != nil {
		b.report(err, "")
		return nil, err
	}
	b.report(nil, "Task created successfully!")
	refreshAfter(ctx, b.List, "create")
	return t, nil
}

// ExpiryHook returns an apiclient hook that raises the session-expired signal
// on bus when a request made under a stored session is rejected. A rejected
// login has no session to expire and stays with the auth flow's message. The
// session is left in place for the user to end.
func ExpiryHook(bus *Bus, sess *session.Manager) func(*apiclient.APIError) {
	return func(*apiclient.APIError) {
		if !sess.LoggedIn() {
			return
		}
		bus.Publish(Change{Source: "session", Message: SessionExpired})
	}
}
