// Package console holds the screen controllers of the task console: the paged
// list, the inline editor, the assignment picker and the auth flows. Views
// (CLI, desktop) drive them and redraw from their snapshots.
package console

import (
	"context"
	"errors"
	"log"
	"sync"

	"task-console/pkg/page"
)

// State is the lifecycle of a list controller.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateError:
		return "error"
	}
	return "unknown"
}

// DefaultPageSize matches the page size the task screens request.
const DefaultPageSize = 5

// ErrSuperseded is returned to a caller whose fetch was overtaken by a newer one.
var ErrSuperseded = errors.New("superseded by a newer request")

// FetchFunc reads one page of a collection.
type FetchFunc[T any] func(ctx context.Context, pageNum, pageSize int) (*page.Page[T], error)

// Refresher re-reads the current page. Sub-controllers call it after a mutation.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// refreshAfter re-reads list once a mutation has succeeded. The mutation's
// outcome stands either way; a failed read is carried by the list's snapshot.
func refreshAfter(ctx context.Context, list Refresher, what string) {
	err := list.Refresh(ctx)
	if err == nil || errors.Is(err, ErrSuperseded) || superseded(err) {
		return
	}
	log.Printf("console: refresh after %s: %v", what, err)
}

// View is an immutable snapshot of a List.
type View[T any] struct {
	State    State
	PageNum  int
	PageSize int
	Last     bool
	Items    []T
	Message  string
	Err      error
	Refresh  bool
	CanPrev  bool
	CanNext  bool
}

// List tracks one paged collection. Every move into Loading issues exactly
// one fetch; a newer fetch cancels the one in flight and the older result is
// dropped even if it resolves later.
type List[T any] struct {
	fetch   FetchFunc[T]
	bus     *Bus
	expired string

	mu       sync.Mutex
	state    State
	pageNum  int
	pageSize int
	last     bool
	items    []T
	err      error
	refresh  bool
	gen      uint64
	cancel   context.CancelFunc
}

// NewList creates an Idle list. Next stays disabled until a page reports
// that more follow.
func NewList[T any](fetch FetchFunc[T], pageSize int, bus *Bus) *List[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &List[T]{
		fetch:    fetch,
		bus:      bus,
		expired:  SessionExpired,
		pageSize: pageSize,
		last:     true,
	}
}

type request struct {
	ctx      context.Context
	cancel   context.CancelFunc
	gen      uint64
	pageNum  int
	pageSize int
	prev     State
}

// Mount loads the current page.
func (l *List[T]) Mount(ctx context.Context) error {
	l.mu.Lock()
	req := l.beginLocked(ctx)
	l.mu.Unlock()
	return l.run(req)
}

// Prev moves one page back. At page zero it does nothing and reports false.
func (l *List[T]) Prev(ctx context.Context) (bool, error) {
	l.mu.Lock()
	if l.pageNum <= 0 {
		l.pageNum = 0
		l.mu.Unlock()
		return false, nil
	}
	l.pageNum--
	req := l.beginLocked(ctx)
	l.mu.Unlock()
	return true, l.run(req)
}

// Next moves one page forward. When the last loaded page was the final one
// it does nothing and reports false.
func (l *List[T]) Next(ctx context.Context) (bool, error) {
	l.mu.Lock()
	if l.last {
		l.mu.Unlock()
		return false, nil
	}
	l.pageNum++
	req := l.beginLocked(ctx)
	l.mu.Unlock()
	return true, l.run(req)
}

// Refresh flips the refresh flag and re-reads the current page.
func (l *List[T]) Refresh(ctx context.Context) error {
	l.mu.Lock()
	l.refresh = !l.refresh
	req := l.beginLocked(ctx)
	l.mu.Unlock()
	return l.run(req)
}

// Snapshot returns the current view.
func (l *List[T]) Snapshot() View[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := make([]T, len(l.items))
	copy(items, l.items)
	v := View[T]{
		State:    l.state,
		PageNum:  l.pageNum,
		PageSize: l.pageSize,
		Last:     l.last,
		Items:    items,
		Err:      l.err,
		Refresh:  l.refresh,
		CanPrev:  l.pageNum > 0,
		CanNext:  !l.last,
	}
	if l.state == StateError {
		v.Message = Describe(l.err, l.expired)
	}
	return v
}

func (l *List[T]) beginLocked(parent context.Context) request {
	if l.cancel != nil {
		l.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	l.gen++
	l.cancel = cancel
	req := request{
		ctx:      ctx,
		cancel:   cancel,
		gen:      l.gen,
		pageNum:  l.pageNum,
		pageSize: l.pageSize,
		prev:     l.state,
	}
	l.state = StateLoading
	return req
}

func (l *List[T]) run(req request) error {
	defer req.cancel()
	l.bus.Publish(Change{Source: "list"})

	p, err := l.fetch(req.ctx, req.pageNum, req.pageSize)

	l.mu.Lock()
	if req.gen != l.gen {
		l.mu.Unlock()
		return ErrSuperseded
	}
	l.cancel = nil

	if err != nil {
		if superseded(err) {
			// The caller gave up; nothing newer replaced this request.
			l.state = req.prev
			l.mu.Unlock()
			return err
		}
		l.state = StateError
		l.err = err
		msg := Describe(err, l.expired)
		l.mu.Unlock()
		l.bus.Publish(Change{Source: "list", Message: msg})
		return err
	}

	l.pageNum = page.Clamp(p.PageNum)
	if p.PageSize > 0 {
		l.pageSize = p.PageSize
	}
	l.last = p.Last
	l.items = p.Content
	l.err = nil
	l.state = StateLoaded
	l.mu.Unlock()
	l.bus.Publish(Change{Source: "list"})
	return nil
}
