package console

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"task-console/pkg/apiclient"
	"task-console/pkg/page"
	"task-console/pkg/session"
	"task-console/pkg/task"
	"task-console/pkg/user"
)

// mockTasks is an in-memory task.Store that records every call.
type mockTasks struct {
	mu       sync.Mutex
	pages    []pageCall
	created  []task.Draft
	updated  []task.Task
	deleted  []int64
	assigned []string
	items    []task.Task
	err      error // returned by every mutating call when set
	pageErr  error // returned by Page when set
}

func seeded(n int) *mockTasks {
	m := &mockTasks{}
	for i := 1; i <= n; i++ {
		m.items = append(m.items, task.Task{ID: int64(i), Title: "task", PeriodInDays: 1, Status: task.StatusTodo})
	}
	return m
}

type pageCall struct {
	scope    task.Scope
	pageNum  int
	pageSize int
}

func (m *mockTasks) Page(_ context.Context, scope task.Scope, pageNum, pageSize int) (*page.Page[task.Task], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = append(m.pages, pageCall{scope, pageNum, pageSize})
	if m.pageErr != nil {
		return nil, m.pageErr
	}
	total := int64(len(m.items))
	var items []task.Task
	for i := pageNum * pageSize; i < (pageNum+1)*pageSize && i < len(m.items); i++ {
		items = append(items, m.items[i])
	}
	return &page.Page[task.Task]{
		PageNum:      pageNum,
		PageSize:     pageSize,
		TotalElement: total,
		Last:         page.IsLast(pageNum, pageSize, total),
		Content:      items,
	}, nil
}

func (m *mockTasks) Create(_ context.Context, d task.Draft) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.created = append(m.created, d)
	t := task.Task{ID: int64(len(m.items) + 1)}.Apply(d)
	m.items = append(m.items, t)
	return &t, nil
}

func (m *mockTasks) Update(_ context.Context, t task.Task) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.updated = append(m.updated, t)
	return &t, nil
}

func (m *mockTasks) SetStatus(_ context.Context, id int64, s task.Status) (*task.Task, error) {
	return &task.Task{ID: id, Status: s}, nil
}

func (m *mockTasks) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockTasks) Assign(_ context.Context, id int64, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.assigned = append(m.assigned, email)
	return nil
}

func (m *mockTasks) pageCalls() []pageCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]pageCall(nil), m.pages...)
}

// mockUsers is a user.Service with canned responses.
type mockUsers struct {
	mu         sync.Mutex
	login      *user.LoginResult
	loginErr   error
	signups    []user.Signup
	candidates []user.User
	calls      int
}

func (m *mockUsers) Login(_ context.Context, c user.Credentials) (*user.LoginResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return m.login, nil
}

func (m *mockUsers) Signup(_ context.Context, _ user.Audience, s user.Signup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.signups = append(m.signups, s)
	return nil
}

func (m *mockUsers) Candidates(_ context.Context) ([]user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.candidates, nil
}

func newSession(t *testing.T, role session.Role) *session.Manager {
	t.Helper()
	m := session.NewManager(session.NewMemoryStore())
	if err := m.Begin(context.Background(), session.Session{
		AccessToken: "tok", Role: role, FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
	}); err != nil {
		t.Fatal(err)
	}
	return m
}

var expiredErr = &apiclient.APIError{Status: http.StatusUnauthorized, Code: "401", Description: "JWT expired"}

func TestListStartsIdleWithNextDisabled(t *testing.T) {
	l := NewList(func(context.Context, int, int) (*page.Page[int], error) {
		t.Fatal("fetch before mount")
		return nil, nil
	}, 0, nil)
	v := l.Snapshot()
	if v.State != StateIdle || v.PageNum != 0 || v.PageSize != DefaultPageSize || !v.Last || v.CanNext {
		t.Errorf("unexpected initial view %+v", v)
	}
}

func TestListPrevAtZeroDoesNotFetch(t *testing.T) {
	calls := 0
	l := NewList(func(_ context.Context, n, size int) (*page.Page[int], error) {
		calls++
		return &page.Page[int]{PageNum: n, PageSize: size, Last: false}, nil
	}, 5, nil)
	moved, err := l.Prev(context.Background())
	if moved || err != nil {
		t.Fatalf("Prev at 0: moved=%v err=%v", moved, err)
	}
	if calls != 0 {
		t.Errorf("expected no fetch, got %d", calls)
	}
	if l.Snapshot().PageNum != 0 {
		t.Error("page went below zero")
	}
}

func TestListNextAtLastDoesNotFetch(t *testing.T) {
	tasks := seeded(3)
	b := NewBoard(newSession(t, session.RoleAdmin), tasks, &mockUsers{}, 5, nil)
	if err := b.List.Mount(context.Background()); err != nil {
		t.Fatal(err)
	}
	moved, err := b.List.Next(context.Background())
	if moved || err != nil {
		t.Fatalf("Next at last: moved=%v err=%v", moved, err)
	}
	if got := len(tasks.pageCalls()); got != 1 {
		t.Errorf("expected 1 fetch, got %d", got)
	}
}

func TestListMountThenNext(t *testing.T) {
	tasks := seeded(12)
	b := NewBoard(newSession(t, session.RoleAdmin), tasks, &mockUsers{}, 5, nil)
	ctx := context.Background()

	if err := b.List.Mount(ctx); err != nil {
		t.Fatal(err)
	}
	v := b.List.Snapshot()
	if v.State != StateLoaded || len(v.Items) != 5 || v.Last {
		t.Fatalf("after mount: %+v", v)
	}

	moved, err := b.List.Next(ctx)
	if !moved || err != nil {
		t.Fatalf("Next: moved=%v err=%v", moved, err)
	}
	calls := tasks.pageCalls()
	if len(calls) != 2 || calls[1].pageNum != 1 || calls[1].pageSize != 5 {
		t.Fatalf("unexpected calls %+v", calls)
	}

	if _, err := b.List.Next(ctx); err != nil {
		t.Fatal(err)
	}
	v = b.List.Snapshot()
	if v.PageNum != 2 || !v.Last || len(v.Items) != 2 {
		t.Errorf("last page: %+v", v)
	}
	if !v.CanPrev || v.CanNext {
		t.Errorf("controls: prev=%v next=%v", v.CanPrev, v.CanNext)
	}
}

func TestListSupersededResultIsDropped(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	n := 0
	l := NewList(func(_ context.Context, pageNum, size int) (*page.Page[string], error) {
		mu.Lock()
		n++
		call := n
		mu.Unlock()
		if call == 1 {
			close(started)
			<-release
			return &page.Page[string]{PageNum: pageNum, PageSize: size, Last: true, Content: []string{"stale"}}, nil
		}
		return &page.Page[string]{PageNum: pageNum, PageSize: size, Last: true, Content: []string{"fresh"}}, nil
	}, 5, nil)

	done := make(chan error, 1)
	go func() { done <- l.Mount(context.Background()) }()
	<-started

	if err := l.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	close(release)
	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Errorf("first fetch: got %v, want ErrSuperseded", err)
	}
	v := l.Snapshot()
	if len(v.Items) != 1 || v.Items[0] != "fresh" || v.State != StateLoaded {
		t.Errorf("stale result applied: %+v", v)
	}
}

func TestListErrorKeepsLastContent(t *testing.T) {
	fail := false
	l := NewList(func(_ context.Context, pageNum, size int) (*page.Page[int], error) {
		if fail {
			return nil, expiredErr
		}
		return &page.Page[int]{PageNum: pageNum, PageSize: size, Last: true, Content: []int{1, 2}}, nil
	}, 5, nil)
	ctx := context.Background()
	if err := l.Mount(ctx); err != nil {
		t.Fatal(err)
	}
	fail = true
	if err := l.Refresh(ctx); err == nil {
		t.Fatal("expected error")
	}
	v := l.Snapshot()
	if v.State != StateError || len(v.Items) != 2 {
		t.Errorf("error view: %+v", v)
	}
	if v.Message != SessionExpired {
		t.Errorf("message: got %q", v.Message)
	}
	if !v.Refresh {
		t.Error("refresh flag not toggled")
	}
}

func TestBoardScopeFollowsRole(t *testing.T) {
	for _, c := range []struct {
		role  session.Role
		scope task.Scope
		title string
	}{
		{session.RoleAdmin, task.ScopeAll, "User Tasks"},
		{"USER", task.ScopeOwn, "Ada Lovelace"},
	} {
		tasks := &mockTasks{}
		b := NewBoard(newSession(t, c.role), tasks, &mockUsers{}, 5, nil)
		if err := b.List.Mount(context.Background()); err != nil {
			t.Fatal(err)
		}
		if got := tasks.pageCalls()[0].scope; got != c.scope {
			t.Errorf("%s: scope %v, want %v", c.role, got, c.scope)
		}
		if b.Title() != c.title {
			t.Errorf("%s: title %q", c.role, b.Title())
		}
	}
}

func TestBoardCreateRejectsEmptyTitle(t *testing.T) {
	tasks := &mockTasks{}
	b := NewBoard(newSession(t, session.RoleAdmin), tasks, &mockUsers{}, 5, nil)
	_, err := b.Create(context.Background(), task.Draft{PeriodInDays: 3})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(tasks.created) != 0 || len(tasks.pageCalls()) != 0 {
		t.Error("request issued for invalid draft")
	}
	if b.Message() != task.ValidationMessage {
		t.Errorf("message: %q", b.Message())
	}
}

func TestBoardCreateThenRefetch(t *testing.T) {
	tasks := &mockTasks{}
	b := NewBoard(newSession(t, session.RoleAdmin), tasks, &mockUsers{}, 5, nil)
	created, err := b.Create(context.Background(), task.Draft{Title: "T", PeriodInDays: 5, Status: task.StatusTodo})
	if err != nil {
		t.Fatal(err)
	}
	if created.Title != "T" || created.PeriodInDays != 5 || created.Status != task.StatusTodo {
		t.Errorf("created %+v", created)
	}
	v := b.List.Snapshot()
	if len(v.Items) != 1 || v.Items[0].Title != "T" {
		t.Errorf("list after create: %+v", v.Items)
	}
}

func TestBoardDeleteRefetchesWithNotice(t *testing.T) {
	tasks := seeded(3)
	b := NewBoard(newSession(t, session.RoleAdmin), tasks, &mockUsers{}, 5, nil)
	ctx := context.Background()
	if err := b.List.Mount(ctx); err != nil {
		t.Fatal(err)
	}
	if err := b.Delete(ctx, 42); err != nil {
		t.Fatal(err)
	}
	if len(tasks.deleted) != 1 || tasks.deleted[0] != 42 {
		t.Errorf("deleted %v", tasks.deleted)
	}
	if got := len(tasks.pageCalls()); got != 2 {
		t.Errorf("expected refetch, got %d fetches", got)
	}
	if b.Notice() != "Task deleted successfully!" {
		t.Errorf("notice %q", b.Notice())
	}
}

func TestBoardDeleteSucceedsWhenRefetchFails(t *testing.T) {
	tasks := seeded(3)
	b := NewBoard(newSession(t, session.RoleAdmin), tasks, &mockUsers{}, 5, nil)
	ctx := context.Background()
	if err := b.List.Mount(ctx); err != nil {
		t.Fatal(err)
	}
	tasks.mu.Lock()
	tasks.pageErr = errors.New("connection reset")
	tasks.mu.Unlock()

	if err := b.Delete(ctx, 2); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if b.Notice() != "Task deleted successfully!" {
		t.Errorf("notice %q", b.Notice())
	}
	v := b.List.Snapshot()
	if v.State != StateError || v.Message != "connection reset" || len(v.Items) != 3 {
		t.Errorf("view after failed refetch: %+v", v)
	}
}

func TestBoardStandardUserCannotDeleteOrAssign(t *testing.T) {
	tasks := &mockTasks{}
	users := &mockUsers{}
	b := NewBoard(newSession(t, "USER"), tasks, users, 5, nil)
	ctx := context.Background()
	if err := b.Delete(ctx, 1); !errors.Is(err, ErrNotPermitted) {
		t.Errorf("delete: %v", err)
	}
	if err := b.Assign(ctx, task.Task{ID: 1}); !errors.Is(err, ErrNotPermitted) {
		t.Errorf("assign: %v", err)
	}
	if _, err := b.Create(ctx, task.Draft{Title: "x", PeriodInDays: 1}); !errors.Is(err, ErrNotPermitted) {
		t.Errorf("create: %v", err)
	}
	if len(tasks.deleted) != 0 || users.calls != 0 {
		t.Error("request issued without capability")
	}
	if err := b.Edit(task.Task{ID: 1}); err != nil {
		t.Errorf("edit: %v", err)
	}
}

func TestEditorSaveValidationStaysInEditMode(t *testing.T) {
	tasks := &mockTasks{}
	b := NewBoard(newSession(t, session.RoleAdmin), tasks, &mockUsers{}, 5, nil)
	if err := b.Edit(task.Task{ID: 7, Title: "old", PeriodInDays: 2}); err != nil {
		t.Fatal(err)
	}
	b.Editor.Change(func(d *task.Draft) { d.Title = "" })
	if err := b.Editor.Save(context.Background()); err == nil {
		t.Fatal("expected validation error")
	}
	if id, ok := b.Editor.Editing(); !ok || id != 7 {
		t.Error("left edit mode after invalid save")
	}
	if len(tasks.updated) != 0 {
		t.Error("update issued for invalid draft")
	}
	if b.Editor.Message() != task.ValidationMessage {
		t.Errorf("message %q", b.Editor.Message())
	}
}

func TestEditorSaveSendsFullEntityAndRefreshes(t *testing.T) {
	tasks := &mockTasks{}
	b := NewBoard(newSession(t, session.RoleAdmin), tasks, &mockUsers{}, 5, nil)
	orig := task.Task{ID: 7, Title: "old", PeriodInDays: 2, Status: task.StatusTodo, Email: "bob@example.com"}
	b.Editor.Begin(orig)
	b.Editor.Change(func(d *task.Draft) {
		d.Title = "new"
		d.Status = task.StatusDone
	})
	if err := b.Editor.Save(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(tasks.updated) != 1 {
		t.Fatalf("updates %d", len(tasks.updated))
	}
	got := tasks.updated[0]
	if got.ID != 7 || got.Title != "new" || got.Status != task.StatusDone || got.Email != "bob@example.com" {
		t.Errorf("update body %+v", got)
	}
	if _, ok := b.Editor.Editing(); ok {
		t.Error("still editing after save")
	}
	if b.Editor.Notice() != "Task updated successfully!" {
		t.Errorf("notice %q", b.Editor.Notice())
	}
	if len(tasks.pageCalls()) != 1 {
		t.Error("list not refreshed")
	}
}

func TestEditorSaveUnauthorizedShowsSessionExpired(t *testing.T) {
	tasks := &mockTasks{err: expiredErr}
	b := NewBoard(newSession(t, session.RoleAdmin), tasks, &mockUsers{}, 5, nil)
	b.Editor.Begin(task.Task{ID: 3, Title: "a", PeriodInDays: 1})
	if err := b.Editor.Save(context.Background()); !errors.Is(err, apiclient.ErrUnauthenticated) {
		t.Fatalf("got %v", err)
	}
	if b.Editor.Message() != SessionExpired {
		t.Errorf("message %q", b.Editor.Message())
	}
	if _, ok := b.Editor.Editing(); !ok {
		t.Error("left edit mode after failed save")
	}
}

func TestEditorCancelRefreshes(t *testing.T) {
	tasks := &mockTasks{}
	b := NewBoard(newSession(t, session.RoleAdmin), tasks, &mockUsers{}, 5, nil)
	b.Editor.Begin(task.Task{ID: 3, Title: "a", PeriodInDays: 1})
	if err := b.Editor.Cancel(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := b.Editor.Editing(); ok {
		t.Error("still editing")
	}
	if len(tasks.updated) != 0 || len(tasks.pageCalls()) != 1 {
		t.Error("cancel should refetch without writing")
	}
}

func TestAssignerRequiresSelection(t *testing.T) {
	tasks := &mockTasks{}
	users := &mockUsers{candidates: []user.User{{Email: "bob@example.com"}}}
	b := NewBoard(newSession(t, session.RoleAdmin), tasks, users, 5, nil)
	ctx := context.Background()
	if err := b.Assign(ctx, task.Task{ID: 9}); err != nil {
		t.Fatal(err)
	}
	if len(b.Assigner.Candidates()) != 1 {
		t.Fatal("candidates not loaded")
	}
	if err := b.Assigner.Submit(ctx); !errors.Is(err, ErrSelectionRequired) {
		t.Fatalf("got %v", err)
	}
	if len(tasks.assigned) != 0 {
		t.Error("assign issued without selection")
	}
	if b.Assigner.FieldError() == "" {
		t.Error("no field error")
	}

	b.Assigner.Select("bob@example.com")
	if err := b.Assigner.Submit(ctx); err != nil {
		t.Fatal(err)
	}
	if len(tasks.assigned) != 1 || tasks.assigned[0] != "bob@example.com" {
		t.Errorf("assigned %v", tasks.assigned)
	}
	if _, ok := b.Assigner.Assigning(); ok {
		t.Error("still assigning")
	}
	if b.Assigner.Notice() != "Task assigned successfully!" {
		t.Errorf("notice %q", b.Assigner.Notice())
	}
	if len(tasks.pageCalls()) != 1 {
		t.Error("list not refreshed")
	}
}

func TestAssignerFailureStaysOpen(t *testing.T) {
	tasks := &mockTasks{err: &apiclient.APIError{Status: http.StatusBadRequest, Description: "User not found"}}
	b := NewBoard(newSession(t, session.RoleAdmin), tasks, &mockUsers{}, 5, nil)
	ctx := context.Background()
	if err := b.Assign(ctx, task.Task{ID: 9}); err != nil {
		t.Fatal(err)
	}
	b.Assigner.Select("ghost@example.com")
	if err := b.Assigner.Submit(ctx); err == nil {
		t.Fatal("expected error")
	}
	if b.Assigner.Message() != "User not found" {
		t.Errorf("message %q", b.Assigner.Message())
	}
	if _, ok := b.Assigner.Assigning(); !ok {
		t.Error("closed after failure")
	}
}

func TestAuthSignupValidation(t *testing.T) {
	users := &mockUsers{}
	a := NewAuth(users, session.NewManager(session.NewMemoryStore()), nil)
	ctx := context.Background()
	form := SignupForm{Signup: user.Signup{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
		Password: "secret", ConfirmPassword: "secret",
	}}

	if err := a.Signup(ctx, user.AudienceAdmin, form); err == nil {
		t.Fatal("expected agreement error")
	}
	if a.Message() != "Agreement box has not been checked" {
		t.Errorf("message %q", a.Message())
	}

	form.Agreement = true
	form.ConfirmPassword = "other"
	if err := a.Signup(ctx, user.AudienceAdmin, form); err == nil {
		t.Fatal("expected mismatch error")
	}
	form.ConfirmPassword = "secret"
	form.Email = "not-an-email"
	if err := a.Signup(ctx, user.AudienceAdmin, form); err == nil {
		t.Fatal("expected email error")
	}
	if users.calls != 0 {
		t.Errorf("signup issued %d calls for invalid forms", users.calls)
	}

	form.Email = "ada@example.com"
	if err := a.Signup(ctx, user.AudienceAdmin, form); err != nil {
		t.Fatal(err)
	}
	if len(users.signups) != 1 || a.Message() != "" {
		t.Errorf("signups %d message %q", len(users.signups), a.Message())
	}
}

func TestAuthLogin(t *testing.T) {
	ctx := context.Background()
	sess := session.NewManager(session.NewMemoryStore())

	bad := NewAuth(&mockUsers{loginErr: &apiclient.APIError{Status: http.StatusUnauthorized, Description: "Bad credentials"}}, sess, nil)
	if err := bad.Login(ctx, "ada@example.com", "nope"); err == nil {
		t.Fatal("expected error")
	}
	if bad.Message() != UnauthorizedUser {
		t.Errorf("message %q", bad.Message())
	}
	if sess.LoggedIn() {
		t.Error("logged in after failure")
	}

	res := &user.LoginResult{
		User:         user.User{FirstName: "Ada", LastName: "Lovelace", Role: session.RoleAdmin},
		AuthResponse: user.Tokens{AccessToken: "a", RefreshToken: "r"},
	}
	good := NewAuth(&mockUsers{login: res}, sess, nil)
	if err := good.Login(ctx, "ada@example.com", "pw"); err != nil {
		t.Fatal(err)
	}
	cur := sess.Current()
	if cur.AccessToken != "a" || cur.Email != "ada@example.com" || !sess.IsAdmin() {
		t.Errorf("session %+v", cur)
	}

	if err := good.Logout(ctx); err != nil {
		t.Fatal(err)
	}
	if sess.LoggedIn() {
		t.Error("still logged in after logout")
	}
}

func TestExpiryHookPublishes(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)
	sess := newSession(t, session.RoleAdmin)
	ExpiryHook(bus, sess)(expiredErr)
	c := <-ch
	if c.Source != "session" || c.Message != SessionExpired {
		t.Errorf("change %+v", c)
	}
	if !sess.LoggedIn() {
		t.Error("hook ended the session")
	}
}

func TestExpiryHookIgnoresRejectedLogin(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)
	sess := session.NewManager(session.NewMemoryStore())
	ExpiryHook(bus, sess)(expiredErr)
	if len(ch) != 0 {
		t.Errorf("published %+v while logged out", <-ch)
	}
}

func TestDescribe(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{expiredErr, SessionExpired},
		{&apiclient.APIError{Status: 400, Description: "Task not found"}, "Task not found"},
		{&task.ValidationError{Message: task.ValidationMessage}, task.ValidationMessage},
		{ErrSelectionRequired, "Please select a user"},
		{errors.New("boom"), "boom"},
	}
	for _, c := range cases {
		if got := Describe(c.err, SessionExpired); got != c.want {
			t.Errorf("Describe(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}
