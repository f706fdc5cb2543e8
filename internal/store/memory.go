package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"task-console/pkg/task"
)

// Memory is an in-process Store. Assignee names are resolved on read, as the
// Postgres store does with a join.
type Memory struct {
	mu       sync.RWMutex
	accounts []Account
	tokens   map[string]string
	tasks    []task.Task
	nextAcct int64
	nextTask int64
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{tokens: make(map[string]string)}
}

func (m *Memory) CreateAccount(_ context.Context, a *Account) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.accounts {
		if strings.EqualFold(existing.Email, a.Email) {
			return nil, ErrExists
		}
	}
	m.nextAcct++
	out := *a
	out.ID = m.nextAcct
	out.CreatedAt = time.Now().Truncate(time.Microsecond)
	m.accounts = append(m.accounts, out)
	return &out, nil
}

func (m *Memory) AccountByEmail(_ context.Context, email string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accountLocked(email)
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *Memory) AccountByName(_ context.Context, firstName, lastName string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.accounts {
		if strings.EqualFold(a.FirstName, firstName) && strings.EqualFold(a.LastName, lastName) {
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) accountLocked(email string) (Account, bool) {
	for _, a := range m.accounts {
		if strings.EqualFold(a.Email, email) {
			return a, true
		}
	}
	return Account{}, false
}

func (m *Memory) Accounts(_ context.Context, pageNum, pageSize int) ([]Account, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lo, hi := window(len(m.accounts), pageNum, pageSize)
	out := make([]Account, hi-lo)
	copy(out, m.accounts[lo:hi])
	return out, int64(len(m.accounts)), nil
}

func (m *Memory) SaveToken(_ context.Context, token, email string) error {
	m.mu.Lock()
	m.tokens[token] = email
	m.mu.Unlock()
	return nil
}

func (m *Memory) TokenOwner(_ context.Context, token string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	email, ok := m.tokens[token]
	if !ok {
		return "", ErrNotFound
	}
	return email, nil
}

func (m *Memory) CreateTask(_ context.Context, t *task.Task) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextTask++
	now := time.Now().Truncate(time.Microsecond)
	out := *t
	out.ID = m.nextTask
	out.DateCreated = &now
	out.DateModified = nil
	m.tasks = append(m.tasks, out)
	return m.resolveLocked(out), nil
}

func (m *Memory) GetTask(_ context.Context, id int64) (*task.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := m.indexLocked(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	return m.resolveLocked(m.tasks[i]), nil
}

func (m *Memory) UpdateTask(_ context.Context, t *task.Task) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexLocked(t.ID)
	if i < 0 {
		return nil, ErrNotFound
	}
	now := time.Now().Truncate(time.Microsecond)
	out := *t
	out.DateCreated = m.tasks[i].DateCreated
	out.DateModified = &now
	m.tasks[i] = out
	return m.resolveLocked(out), nil
}

func (m *Memory) DeleteTask(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexLocked(id)
	if i < 0 {
		return ErrNotFound
	}
	m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
	return nil
}

func (m *Memory) Tasks(_ context.Context, assignee string, pageNum, pageSize int) ([]task.Task, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []task.Task
	for _, t := range m.tasks {
		if assignee == "" || strings.EqualFold(t.Email, assignee) {
			matched = append(matched, t)
		}
	}
	lo, hi := window(len(matched), pageNum, pageSize)
	out := make([]task.Task, 0, hi-lo)
	for _, t := range matched[lo:hi] {
		out = append(out, *m.resolveLocked(t))
	}
	return out, int64(len(matched)), nil
}

func (m *Memory) indexLocked(id int64) int {
	for i, t := range m.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// resolveLocked fills the assignee's names from the account table.
func (m *Memory) resolveLocked(t task.Task) *task.Task {
	t.FirstName, t.LastName = "", ""
	if a, ok := m.accountLocked(t.Email); ok {
		t.FirstName, t.LastName = a.FirstName, a.LastName
	}
	return &t
}

// window returns the slice bounds of one page over n items. Pages past the
// end, including ones whose offset would overflow, are empty.
func window(n, pageNum, pageSize int) (int, int) {
	if pageNum < 0 {
		pageNum = 0
	}
	if pageSize <= 0 || pageNum > n/pageSize {
		return n, n
	}
	lo := pageNum * pageSize
	hi := n
	if pageSize < n-lo {
		hi = lo + pageSize
	}
	return lo, hi
}
