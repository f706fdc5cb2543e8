package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"task-console/internal/db"
	"task-console/pkg/apiclient"
	"task-console/pkg/console"
	"task-console/pkg/session"
	"task-console/pkg/task"
	"task-console/pkg/user"
)

type app struct {
	sess  *session.Manager
	auth  *console.Auth
	board *console.Board
	tasks *task.Remote
	users *user.Remote
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	_ = godotenv.Load()

	ctx := context.Background()
	flags := parseFlags(os.Args[2:])

	store, closeStore := openSessionStore(ctx, flags)
	defer closeStore()

	sess := session.NewManager(store)
	if err := sess.Restore(ctx); err != nil {
		fatal("restore session: %v", err)
	}

	base := flags["api"]
	if base == "" {
		base = os.Getenv("TASKCONSOLE_API")
	}
	client := apiclient.New(base, sess)
	a := &app{
		sess:  sess,
		tasks: task.NewRemote(client),
		users: user.NewRemote(client),
	}
	a.auth = console.NewAuth(a.users, sess, nil)
	a.board = console.NewBoard(sess, a.tasks, a.users, intFlag(flags, "size", console.DefaultPageSize), nil)

	switch os.Args[1] {
	case "login":
		a.login(ctx, flags)
	case "signup":
		a.signup(ctx, flags)
	case "logout":
		if err := a.auth.Logout(ctx); err != nil {
			fatal("logout: %v", err)
		}
		fmt.Println("Logged out")
	case "whoami":
		a.whoami()
	case "list":
		a.list(ctx, flags)
	case "create":
		a.create(ctx, flags)
	case "edit":
		a.edit(ctx, flags)
	case "status":
		a.status(ctx, flags)
	case "delete":
		a.remove(ctx, flags)
	case "assign":
		a.assign(ctx, flags)
	case "users":
		a.candidates(ctx)
	default:
		usage()
		os.Exit(1)
	}
}

// openSessionStore picks the session backend from flags or environment.
func openSessionStore(ctx context.Context, flags map[string]string) (session.Store, func()) {
	kind := flags["session-store"]
	if kind == "" {
		kind = os.Getenv("TASKCONSOLE_SESSION_STORE")
	}
	switch kind {
	case "", "file":
		path := flags["session"]
		if path == "" {
			path = os.Getenv("TASKCONSOLE_SESSION")
		}
		if path == "" {
			p, err := session.DefaultPath()
			if err != nil {
				fatal("session path: %v", err)
			}
			path = p
		}
		return session.NewFileStore(path), func() {}
	case "postgres":
		pool, err := db.Connect(ctx)
		if err != nil {
			fatal("connect: %v", err)
		}
		profile := flags["profile"]
		if profile == "" {
			profile = os.Getenv("TASKCONSOLE_PROFILE")
		}
		pg := session.NewPgStore(pool, profile)
		if err := pg.EnsureTable(ctx); err != nil {
			pool.Close()
			fatal("ensure session table: %v", err)
		}
		return pg, pool.Close
	default:
		fatal("unknown session store %q (want file or postgres)", kind)
		return nil, nil
	}
}

func (a *app) login(ctx context.Context, flags map[string]string) {
	email, password := flags["email"], flags["password"]
	if email == "" || password == "" {
		fatal("Usage: taskctl login --email=<email> --password=<password>")
	}
	if err := a.auth.Login(ctx, email, password); err != nil {
		fatal("%s", a.auth.Message())
	}
	cur := a.sess.Current()
	fmt.Printf("Logged in as %s (%s)\n", cur.FullName(), cur.Role)
}

func (a *app) signup(ctx context.Context, flags map[string]string) {
	aud := user.Audience(flags["audience"])
	if aud == "" {
		aud = user.AudienceUser
	}
	if aud != user.AudienceAdmin && aud != user.AudienceUser {
		fatal("--audience must be admin or user")
	}
	_, agreed := flags["agree"]
	form := console.SignupForm{
		Agreement: agreed,
		Signup: user.Signup{
			FirstName:       flags["first"],
			LastName:        flags["last"],
			Email:           flags["email"],
			Password:        flags["password"],
			ConfirmPassword: flags["confirm"],
			PhoneNumber:     flags["phone"],
			Address:         flags["address"],
			Gender:          flags["gender"],
		},
	}
	if err := a.auth.Signup(ctx, aud, form); err != nil {
		fatal("%s", a.auth.Message())
	}
	fmt.Println("Registered. Log in with: taskctl login --email=" + form.Email)
}

func (a *app) whoami() {
	if !a.sess.LoggedIn() {
		fatal("not logged in")
	}
	cur := a.sess.Current()
	fmt.Printf("%s <%s> %s\n", cur.FullName(), cur.Email, cur.Role)
}

func (a *app) requireLogin() {
	if !a.sess.LoggedIn() {
		fatal("not logged in; run taskctl login")
	}
}

// list walks forward to the requested page the way the console does: one Next
// at a time, stopping at the last page.
func (a *app) list(ctx context.Context, flags map[string]string) {
	a.requireLogin()
	if err := a.board.List.Mount(ctx); err != nil {
		fatal("%s", console.Describe(err, console.SessionExpired))
	}
	for i := 0; i < intFlag(flags, "page", 0); i++ {
		moved, err := a.board.List.Next(ctx)
		if err != nil {
			fatal("%s", console.Describe(err, console.SessionExpired))
		}
		if !moved {
			break
		}
	}
	v := a.board.List.Snapshot()
	if flags["format"] == "json" {
		printJSON(v.Items)
		return
	}
	fmt.Printf("%s (page %d)\n", a.board.Title(), v.PageNum)
	printShortTasks(v.Items)
	if !v.Last {
		fmt.Printf("more: taskctl list --page=%d\n", v.PageNum+1)
	}
}

func (a *app) create(ctx context.Context, flags map[string]string) {
	a.requireLogin()
	d := task.Draft{
		Title:        flags["title"],
		Details:      flags["details"],
		PeriodInDays: intFlag(flags, "period", 0),
	}
	applyStatusAndDate(&d, flags)
	t, err := a.board.Create(ctx, d)
	if err != nil {
		fatal("%s", a.board.Message())
	}
	fmt.Println(a.board.Notice())
	printJSON(t)
}

func (a *app) edit(ctx context.Context, flags map[string]string) {
	a.requireLogin()
	t := a.find(ctx, flags)
	if err := a.board.Edit(*t); err != nil {
		fatal("%v", err)
	}
	a.board.Editor.Change(func(d *task.Draft) {
		if v, ok := flags["title"]; ok {
			d.Title = v
		}
		if v, ok := flags["details"]; ok {
			d.Details = v
		}
		if _, ok := flags["period"]; ok {
			d.PeriodInDays = intFlag(flags, "period", d.PeriodInDays)
		}
		applyStatusAndDate(d, flags)
	})
	if err := a.board.Editor.Save(ctx); err != nil {
		fatal("%s", a.board.Editor.Message())
	}
	fmt.Println(a.board.Editor.Notice())
}

func (a *app) status(ctx context.Context, flags map[string]string) {
	a.requireLogin()
	id := idFlag(flags)
	s, err := task.ParseStatus(flags["status"])
	if err != nil {
		fatal("%v", err)
	}
	t, err := a.tasks.SetStatus(ctx, id, s)
	if err != nil {
		fatal("%s", console.Describe(err, console.SessionExpired))
	}
	fmt.Printf("Task %d is now %s\n", t.ID, t.Status.Label())
}

func (a *app) remove(ctx context.Context, flags map[string]string) {
	a.requireLogin()
	if err := a.board.Delete(ctx, idFlag(flags)); err != nil {
		fatal("%s", a.board.Message())
	}
	fmt.Println(a.board.Notice())
}

func (a *app) assign(ctx context.Context, flags map[string]string) {
	a.requireLogin()
	t := a.find(ctx, flags)
	if err := a.board.Assign(ctx, *t); err != nil {
		fatal("%s", console.Describe(err, console.SessionExpired))
	}
	a.board.Assigner.Select(flags["email"])
	if err := a.board.Assigner.Submit(ctx); err != nil {
		msg := a.board.Assigner.FieldError()
		if msg == "" {
			msg = a.board.Assigner.Message()
		}
		fatal("%s", msg)
	}
	fmt.Println(a.board.Assigner.Notice())
}

func (a *app) candidates(ctx context.Context) {
	a.requireLogin()
	users, err := a.users.Candidates(ctx)
	if err != nil {
		fatal("%s", console.Describe(err, console.SessionExpired))
	}
	for _, u := range users {
		fmt.Printf("%-30s  %-25s  %s\n", u.Email, u.FullName(), u.Role)
	}
}

// find pages through the caller's tasks until it meets the requested id.
func (a *app) find(ctx context.Context, flags map[string]string) *task.Task {
	id := idFlag(flags)
	if err := a.board.List.Mount(ctx); err != nil {
		fatal("%s", console.Describe(err, console.SessionExpired))
	}
	for {
		v := a.board.List.Snapshot()
		for _, t := range v.Items {
			if t.ID == id {
				return &t
			}
		}
		moved, err := a.board.List.Next(ctx)
		if err != nil {
			fatal("%s", console.Describe(err, console.SessionExpired))
		}
		if !moved {
			fatal("task %d not found", id)
		}
	}
}

func applyStatusAndDate(d *task.Draft, flags map[string]string) {
	if v := flags["status"]; v != "" {
		s, err := task.ParseStatus(v)
		if err != nil {
			fatal("%v", err)
		}
		d.Status = s
	}
	if v := flags["start"]; v != "" {
		date, err := task.ParseDate(v)
		if err != nil {
			fatal("%v", err)
		}
		d.StartDate = date
	}
}

func idFlag(flags map[string]string) int64 {
	id, err := strconv.ParseInt(flags["id"], 10, 64)
	if err != nil {
		fatal("--id is required")
	}
	return id
}

func printShortTasks(tasks []task.Task) {
	if len(tasks) == 0 {
		fmt.Println("  (no tasks)")
		return
	}
	for _, t := range tasks {
		assignee := t.Assignee()
		if assignee == "" {
			assignee = "-"
		}
		fmt.Printf("%-6d  %-30s  %-12s  %3dd  %-10s  %-20s  %s\n",
			t.ID, truncStr(t.Title, 30), t.Status.Label(), t.PeriodInDays, t.StartDate, truncStr(assignee, 20), t.Modified())
	}
}

func parseFlags(args []string) map[string]string {
	flags := make(map[string]string)
	for _, arg := range args {
		if !strings.HasPrefix(arg, "--") {
			continue
		}
		arg = strings.TrimPrefix(arg, "--")
		if idx := strings.Index(arg, "="); idx >= 0 {
			flags[arg[:idx]] = arg[idx+1:]
		} else {
			flags[arg] = ""
		}
	}
	return flags
}

func intFlag(flags map[string]string, key string, defaultVal int) int {
	if v, ok := flags[key]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal("encode JSON: %v", err)
	}
}

func truncStr(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "taskctl: "+format+"\n", args...)
	os.Exit(1)
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: taskctl <command> [--flag=value ...]

Commands:
  login     Log in (--email, --password)
  signup    Register (--audience=admin|user, --first, --last, --email, --password, --confirm, --phone, --address, --gender, --agree)
  logout    Forget the stored session
  whoami    Show the stored identity
  list      List tasks (--page, --size, --format=json)
  create    Create a task (--title, --period, --details, --status, --start=YYYY-MM-DD)
  edit      Edit a task (--id plus any of --title, --details, --period, --status, --start)
  status    Change only the status (--id, --status)
  delete    Delete a task (--id)
  assign    Assign a task (--id, --email)
  users     List users available for assignment

Global flags:
  --api=URL               API base (TASKCONSOLE_API)
  --session=PATH          session file (TASKCONSOLE_SESSION)
  --session-store=KIND    file or postgres (TASKCONSOLE_SESSION_STORE)
  --profile=NAME          session row key for postgres (TASKCONSOLE_PROFILE)`)
}
