package task

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"task-console/pkg/apiclient"
	"task-console/pkg/page"
)

// Remote is the task Store backed by the task management API.
type Remote struct {
	api *apiclient.Client
}

// NewRemote creates a Remote over api.
func NewRemote(api *apiclient.Client) *Remote {
	return &Remote{api: api}
}

// Page fetches one window of tasks. ScopeAll reads every task; ScopeOwn reads
// the caller's assigned tasks.
func (r *Remote) Page(ctx context.Context, scope Scope, pageNum, pageSize int) (*page.Page[Task], error) {
	path := "/task-mgmt/tasks/users"
	if scope == ScopeAll {
		path = "/task-mgmt/tasks"
	}
	q := url.Values{
		"pageNum":  {strconv.Itoa(page.Clamp(pageNum))},
		"pageSize": {strconv.Itoa(pageSize)},
	}
	var p page.Page[Task]
	if err := r.api.Get(ctx, path, q, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create validates d and posts it as a new task. Status defaults to TODO and
// the start date to today.
func (r *Remote) Create(ctx context.Context, d Draft) (*Task, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if d.Status == "" {
		d.Status = StatusTodo
	}
	if d.StartDate.IsZero() {
		d.StartDate = Today()
	}
	var t Task
	if err := r.api.Post(ctx, "/task-mgmt/tasks", d, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Update validates t and replaces the server's record with it.
func (r *Remote) Update(ctx context.Context, t Task) (*Task, error) {
	if err := t.Draft().Validate(); err != nil {
		return nil, err
	}
	var out Task
	if err := r.api.Put(ctx, "/task-mgmt/tasks", idQuery(t.ID), t, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetStatus changes only the status of a task.
func (r *Remote) SetStatus(ctx context.Context, id int64, status Status) (*Task, error) {
	if !status.Valid() {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("Unknown task status %q", status)}
	}
	q := idQuery(id)
	q.Set("status", string(status))
	var out Task
	if err := r.api.Put(ctx, "/task-mgmt/task_status", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a task.
func (r *Remote) Delete(ctx context.Context, id int64) error {
	return r.api.Delete(ctx, "/task-mgmt/tasks", idQuery(id), nil)
}

// Assign associates a task with the user identified by email.
func (r *Remote) Assign(ctx context.Context, id int64, email string) error {
	body := struct {
		TaskID int64  `json:"taskId"`
		Email  string `json:"email"`
	}{id, email}
	return r.api.Put(ctx, "/task-mgmt/assign", nil, body, nil)
}

func idQuery(id int64) url.Values {
	return url.Values{"taskId": {strconv.FormatInt(id, 10)}}
}
