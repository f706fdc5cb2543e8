package main

import (
	"context"
	"fmt"
	"image/color"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"

	"gioui.org/app"
	"gioui.org/font"
	"gioui.org/font/gofont"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
	"github.com/joho/godotenv"

	"task-console/pkg/apiclient"
	"task-console/pkg/console"
	"task-console/pkg/session"
	"task-console/pkg/task"
	"task-console/pkg/user"
)

var theme *material.Theme

var (
	grey  = color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF}
	red   = color.NRGBA{R: 0xFF, G: 0x50, B: 0x50, A: 0xFF}
	green = color.NRGBA{R: 0x00, G: 0xC0, B: 0x00, A: 0xFF}
)

type UI struct {
	sess  *session.Manager
	auth  *console.Auth
	board *console.Board
	bus   *console.Bus

	w       *app.Window
	mu      sync.Mutex
	banner  string
	pending []func()

	// Login / signup
	signupMode     bool
	toggleBtn      widget.Clickable
	emailEditor    widget.Editor
	passwordEditor widget.Editor
	loginBtn       widget.Clickable
	firstEditor    widget.Editor
	lastEditor     widget.Editor
	confirmEditor  widget.Editor
	phoneEditor    widget.Editor
	addressEditor  widget.Editor
	genderEditor   widget.Editor
	agree          widget.Bool
	asAdmin        widget.Bool
	signupBtn      widget.Clickable

	// Board
	logoutBtn  widget.Clickable
	prevBtn    widget.Clickable
	nextBtn    widget.Clickable
	refreshBtn widget.Clickable
	taskList   widget.List
	editBtn    []widget.Clickable
	deleteBtn  []widget.Clickable
	assignBtn  []widget.Clickable

	// Create
	newTitle  widget.Editor
	newPeriod widget.Editor
	createBtn widget.Clickable

	// Inline edit
	editTitle     widget.Editor
	editDetails   widget.Editor
	editPeriod    widget.Editor
	statusBtn     widget.Clickable
	saveBtn       widget.Clickable
	cancelEditBtn widget.Clickable

	// Assign
	candidateList   widget.List
	candidateBtn    []widget.Clickable
	submitAssignBtn widget.Clickable
	cancelAssignBtn widget.Clickable
}

func main() {
	_ = godotenv.Load()

	path := os.Getenv("TASKCONSOLE_SESSION")
	if path == "" {
		p, err := session.DefaultPath()
		if err != nil {
			log.Fatalf("session path: %v", err)
		}
		path = p
	}
	sess := session.NewManager(session.NewFileStore(path))
	if err := sess.Restore(context.Background()); err != nil {
		log.Printf("ui: restore session: %v", err)
	}

	bus := console.NewBus()
	client := apiclient.New(os.Getenv("TASKCONSOLE_API"), sess, apiclient.OnUnauthenticated(console.ExpiryHook(bus, sess)))
	users := user.NewRemote(client)

	theme = material.NewTheme()
	theme.Shaper = text.NewShaper(text.WithCollection(gofont.Collection()))
	theme.Palette.Bg = color.NRGBA{R: 0x12, G: 0x12, B: 0x12, A: 0xFF}
	theme.Palette.Fg = color.NRGBA{R: 0xE0, G: 0xE0, B: 0xE0, A: 0xFF}
	theme.Palette.ContrastBg = color.NRGBA{R: 0x30, G: 0x60, B: 0xA0, A: 0xFF}
	theme.Palette.ContrastFg = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}

	ui := &UI{
		sess:  sess,
		bus:   bus,
		auth:  console.NewAuth(users, sess, bus),
		board: console.NewBoard(sess, task.NewRemote(client), users, console.DefaultPageSize, bus),
	}
	ui.taskList.Axis = layout.Vertical
	ui.candidateList.Axis = layout.Vertical
	for _, ed := range []*widget.Editor{
		&ui.emailEditor, &ui.passwordEditor, &ui.firstEditor, &ui.lastEditor, &ui.confirmEditor,
		&ui.phoneEditor, &ui.addressEditor, &ui.genderEditor, &ui.newTitle, &ui.newPeriod,
		&ui.editTitle, &ui.editDetails, &ui.editPeriod,
	} {
		ed.SingleLine = true
	}
	ui.passwordEditor.Mask = '•'
	ui.confirmEditor.Mask = '•'

	if sess.LoggedIn() {
		go ui.board.List.Mount(context.Background())
	}

	go func() {
		w := new(app.Window)
		w.Option(app.Title("Task Console"))
		w.Option(app.Size(unit.Dp(1200), unit.Dp(800)))
		if err := ui.run(w); err != nil {
			log.Fatal(err)
		}
		os.Exit(0)
	}()
	app.Main()
}

func (ui *UI) run(w *app.Window) error {
	ui.w = w
	changes := ui.bus.Subscribe()
	defer ui.bus.Unsubscribe(changes)
	go func() {
		for c := range changes {
			ui.observe(c)
			w.Invalidate()
		}
	}()

	var ops op.Ops
	for {
		switch e := w.Event().(type) {
		case app.DestroyEvent:
			return e.Err
		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)
			ui.drain()
			ui.handleClicks(gtx)
			ui.layout(gtx)
			e.Frame(gtx.Ops)
		}
	}
}

// observe shows session expiry on the board. The user logs out from there.
func (ui *UI) observe(c console.Change) {
	if c.Source == "session" && c.Message == console.SessionExpired && ui.sess.LoggedIn() {
		ui.setBanner(console.SessionExpired)
	}
}

func (ui *UI) setBanner(msg string) {
	ui.mu.Lock()
	ui.banner = msg
	ui.mu.Unlock()
}

// post queues fn to run on the frame loop, where widget state lives.
func (ui *UI) post(fn func()) {
	ui.mu.Lock()
	ui.pending = append(ui.pending, fn)
	ui.mu.Unlock()
	ui.w.Invalidate()
}

func (ui *UI) drain() {
	ui.mu.Lock()
	fns := ui.pending
	ui.pending = nil
	ui.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (ui *UI) getBanner() string {
	ui.mu.Lock()
	defer ui.mu.Unlock()
	return ui.banner
}

func (ui *UI) handleClicks(gtx layout.Context) {
	ctx := context.Background()
	if !ui.sess.LoggedIn() {
		ui.handleAuthClicks(gtx, ctx)
		return
	}

	if ui.logoutBtn.Clicked(gtx) {
		if err := ui.auth.Logout(ctx); err != nil {
			log.Printf("ui: logout: %v", err)
		}
		ui.setBanner("")
	}
	if ui.prevBtn.Clicked(gtx) {
		go ui.board.List.Prev(ctx)
	}
	if ui.nextBtn.Clicked(gtx) {
		go ui.board.List.Next(ctx)
	}
	if ui.refreshBtn.Clicked(gtx) {
		go ui.board.List.Refresh(ctx)
	}
	if ui.createBtn.Clicked(gtx) {
		d := task.Draft{Title: ui.newTitle.Text(), PeriodInDays: atoi(ui.newPeriod.Text())}
		go func() {
			if _, err := ui.board.Create(ctx, d); err == nil {
				ui.post(func() {
					ui.newTitle.SetText("")
					ui.newPeriod.SetText("")
				})
			}
		}()
	}

	items := ui.board.List.Snapshot().Items
	for i := range ui.editBtn {
		if i >= len(items) {
			break
		}
		t := items[i]
		if ui.editBtn[i].Clicked(gtx) && ui.board.Edit(t) == nil {
			ui.editTitle.SetText(t.Title)
			ui.editDetails.SetText(t.Details)
			ui.editPeriod.SetText(strconv.Itoa(t.PeriodInDays))
		}
		if ui.deleteBtn[i].Clicked(gtx) {
			go ui.board.Delete(ctx, t.ID)
		}
		if ui.assignBtn[i].Clicked(gtx) {
			go ui.board.Assign(ctx, t)
		}
	}

	if ui.statusBtn.Clicked(gtx) {
		ui.board.Editor.Change(func(d *task.Draft) { d.Status = d.Status.Next() })
	}
	if ui.saveBtn.Clicked(gtx) {
		ui.board.Editor.Change(func(d *task.Draft) {
			d.Title = ui.editTitle.Text()
			d.Details = ui.editDetails.Text()
			d.PeriodInDays = atoi(ui.editPeriod.Text())
		})
		go ui.board.Editor.Save(ctx)
	}
	if ui.cancelEditBtn.Clicked(gtx) {
		go ui.board.Editor.Cancel(ctx)
	}

	candidates := ui.board.Assigner.Candidates()
	for i := range ui.candidateBtn {
		if i < len(candidates) && ui.candidateBtn[i].Clicked(gtx) {
			ui.board.Assigner.Select(candidates[i].Email)
		}
	}
	if ui.submitAssignBtn.Clicked(gtx) {
		go ui.board.Assigner.Submit(ctx)
	}
	if ui.cancelAssignBtn.Clicked(gtx) {
		go ui.board.Assigner.Cancel(ctx)
	}
}

func (ui *UI) handleAuthClicks(gtx layout.Context, ctx context.Context) {
	if ui.toggleBtn.Clicked(gtx) {
		ui.signupMode = !ui.signupMode
	}
	if ui.loginBtn.Clicked(gtx) {
		email, password := ui.emailEditor.Text(), ui.passwordEditor.Text()
		go func() {
			if err := ui.auth.Login(ctx, email, password); err != nil {
				return
			}
			ui.setBanner("")
			ui.board.List.Mount(ctx)
		}()
	}
	if ui.signupBtn.Clicked(gtx) {
		aud := user.AudienceUser
		if ui.asAdmin.Value {
			aud = user.AudienceAdmin
		}
		form := console.SignupForm{
			Agreement: ui.agree.Value,
			Signup: user.Signup{
				FirstName:       ui.firstEditor.Text(),
				LastName:        ui.lastEditor.Text(),
				Email:           ui.emailEditor.Text(),
				Password:        ui.passwordEditor.Text(),
				ConfirmPassword: ui.confirmEditor.Text(),
				PhoneNumber:     ui.phoneEditor.Text(),
				Address:         ui.addressEditor.Text(),
				Gender:          ui.genderEditor.Text(),
			},
		}
		go func() {
			if err := ui.auth.Signup(ctx, aud, form); err == nil {
				ui.setBanner("Registration successful, please log in")
				ui.post(func() { ui.signupMode = false })
			}
		}()
	}
}

func (ui *UI) layout(gtx layout.Context) layout.Dimensions {
	return layout.Inset{Top: unit.Dp(16), Right: unit.Dp(16), Bottom: unit.Dp(16), Left: unit.Dp(16)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		if !ui.sess.LoggedIn() {
			return ui.layoutAuth(gtx)
		}
		return ui.layoutBoard(gtx)
	})
}

func (ui *UI) layoutAuth(gtx layout.Context) layout.Dimensions {
	title, toggle := "Login", "Create an account"
	if ui.signupMode {
		title, toggle = "Sign up", "Back to login"
	}
	children := []layout.FlexChild{
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return material.H5(theme, title).Layout(gtx)
		}),
		layout.Rigid(ui.message(ui.getBanner(), grey)),
		layout.Rigid(ui.message(ui.auth.Message(), red)),
		layout.Rigid(layout.Spacer{Height: unit.Dp(8)}.Layout),
	}
	if ui.signupMode {
		children = append(children,
			layout.Rigid(field(&ui.firstEditor, "First name")),
			layout.Rigid(field(&ui.lastEditor, "Last name")),
		)
	}
	children = append(children,
		layout.Rigid(field(&ui.emailEditor, "E-mail")),
		layout.Rigid(field(&ui.passwordEditor, "Password")),
	)
	if ui.signupMode {
		children = append(children,
			layout.Rigid(field(&ui.confirmEditor, "Confirm password")),
			layout.Rigid(field(&ui.phoneEditor, "Phone number")),
			layout.Rigid(field(&ui.addressEditor, "Address")),
			layout.Rigid(field(&ui.genderEditor, "Gender")),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return material.CheckBox(theme, &ui.asAdmin, "Register as admin").Layout(gtx)
			}),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return material.CheckBox(theme, &ui.agree, "I have read the agreement").Layout(gtx)
			}),
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return material.Button(theme, &ui.signupBtn, "Register").Layout(gtx)
			}),
		)
	} else {
		children = append(children, layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return material.Button(theme, &ui.loginBtn, "Log in").Layout(gtx)
		}))
	}
	children = append(children,
		layout.Rigid(layout.Spacer{Height: unit.Dp(8)}.Layout),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			b := material.Button(theme, &ui.toggleBtn, toggle)
			b.Background = color.NRGBA{A: 0}
			return b.Layout(gtx)
		}),
	)
	gtx.Constraints.Max.X = gtx.Dp(unit.Dp(420))
	return layout.Flex{Axis: layout.Vertical}.Layout(gtx, children...)
}

func (ui *UI) layoutBoard(gtx layout.Context) layout.Dimensions {
	v := ui.board.List.Snapshot()
	can := ui.board.Can()
	for len(ui.editBtn) < len(v.Items) {
		ui.editBtn = append(ui.editBtn, widget.Clickable{})
		ui.deleteBtn = append(ui.deleteBtn, widget.Clickable{})
		ui.assignBtn = append(ui.assignBtn, widget.Clickable{})
	}

	children := []layout.FlexChild{
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return layout.Flex{Alignment: layout.Middle}.Layout(gtx,
				layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
					return material.H5(theme, ui.board.Title()).Layout(gtx)
				}),
				layout.Rigid(func(gtx layout.Context) layout.Dimensions {
					return material.Button(theme, &ui.logoutBtn, "Log out").Layout(gtx)
				}),
			)
		}),
		layout.Rigid(ui.message(ui.getBanner(), red)),
		layout.Rigid(ui.message(v.Message, red)),
		layout.Rigid(ui.message(ui.board.Message(), red)),
		layout.Rigid(ui.message(ui.board.Notice(), green)),
		layout.Rigid(ui.message(ui.board.Editor.Notice(), green)),
		layout.Rigid(ui.message(ui.board.Assigner.Notice(), green)),
	}
	if can.Create {
		children = append(children, layout.Rigid(ui.layoutCreate))
	}
	if _, ok := ui.board.Assigner.Assigning(); ok {
		children = append(children, layout.Rigid(ui.layoutAssign))
	}
	children = append(children,
		layout.Rigid(layout.Spacer{Height: unit.Dp(8)}.Layout),
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			if v.State == console.StateLoading && len(v.Items) == 0 {
				return material.Body1(theme, "Loading...").Layout(gtx)
			}
			return material.List(theme, &ui.taskList).Layout(gtx, len(v.Items), func(gtx layout.Context, i int) layout.Dimensions {
				return ui.layoutRow(gtx, i, v.Items[i], can)
			})
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return layout.Flex{Alignment: layout.Middle}.Layout(gtx,
				layout.Rigid(pagerBtn(&ui.prevBtn, "Prev", v.CanPrev)),
				layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
				layout.Rigid(func(gtx layout.Context) layout.Dimensions {
					return material.Body2(theme, fmt.Sprintf("Page %d (%s)", v.PageNum+1, v.State)).Layout(gtx)
				}),
				layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
				layout.Rigid(pagerBtn(&ui.nextBtn, "Next", v.CanNext)),
				layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
				layout.Rigid(func(gtx layout.Context) layout.Dimensions {
					return material.Button(theme, &ui.refreshBtn, "Refresh").Layout(gtx)
				}),
			)
		}),
	)
	return layout.Flex{Axis: layout.Vertical}.Layout(gtx, children...)
}

func (ui *UI) layoutCreate(gtx layout.Context) layout.Dimensions {
	return layout.Flex{Alignment: layout.Middle}.Layout(gtx,
		layout.Flexed(3, field(&ui.newTitle, "New task title...")),
		layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
		layout.Flexed(1, field(&ui.newPeriod, "Period (days)")),
		layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return material.Button(theme, &ui.createBtn, "Create").Layout(gtx)
		}),
	)
}

func (ui *UI) layoutRow(gtx layout.Context, i int, t task.Task, can console.Capabilities) layout.Dimensions {
	if id, ok := ui.board.Editor.Editing(); ok && id == t.ID {
		return ui.layoutEditRow(gtx)
	}
	assignee := t.Assignee()
	if assignee == "" {
		assignee = "unassigned"
	}
	return layout.Inset{Bottom: unit.Dp(6)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Alignment: layout.Middle}.Layout(gtx,
			layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
				return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
					layout.Rigid(func(gtx layout.Context) layout.Dimensions {
						label := material.Body2(theme, t.Title)
						label.Font.Weight = font.Bold
						return label.Layout(gtx)
					}),
					layout.Rigid(func(gtx layout.Context) layout.Dimensions {
						label := material.Caption(theme, fmt.Sprintf("[%s] %d days from %s, %s, modified %s",
							t.Status.Label(), t.PeriodInDays, t.StartDate, assignee, t.Modified()))
						label.Color = statusColor(t.Status)
						return label.Layout(gtx)
					}),
				)
			}),
			layout.Rigid(rowBtn(&ui.editBtn[i], "Edit", can.Edit)),
			layout.Rigid(rowBtn(&ui.assignBtn[i], "Assign", can.Assign)),
			layout.Rigid(rowBtn(&ui.deleteBtn[i], "Delete", can.Delete)),
		)
	})
}

func (ui *UI) layoutEditRow(gtx layout.Context) layout.Dimensions {
	d := ui.board.Editor.Draft()
	return layout.Inset{Bottom: unit.Dp(6)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				return layout.Flex{Alignment: layout.Middle}.Layout(gtx,
					layout.Flexed(2, field(&ui.editTitle, "Title")),
					layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
					layout.Flexed(3, field(&ui.editDetails, "Details")),
					layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
					layout.Flexed(1, field(&ui.editPeriod, "Days")),
					layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
					layout.Rigid(func(gtx layout.Context) layout.Dimensions {
						return material.Button(theme, &ui.statusBtn, d.Status.Label()).Layout(gtx)
					}),
					layout.Rigid(rowBtn(&ui.saveBtn, "Save", true)),
					layout.Rigid(rowBtn(&ui.cancelEditBtn, "Cancel", true)),
				)
			}),
			layout.Rigid(ui.message(ui.board.Editor.Message(), red)),
		)
	})
}

func (ui *UI) layoutAssign(gtx layout.Context) layout.Dimensions {
	candidates := ui.board.Assigner.Candidates()
	selected := ui.board.Assigner.Selected()
	for len(ui.candidateBtn) < len(candidates) {
		ui.candidateBtn = append(ui.candidateBtn, widget.Clickable{})
	}
	gtx.Constraints.Max.Y = gtx.Dp(unit.Dp(260))
	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return material.Body1(theme, "Assign task to:").Layout(gtx)
		}),
		layout.Rigid(ui.message(ui.board.Assigner.FieldError(), red)),
		layout.Rigid(ui.message(ui.board.Assigner.Message(), red)),
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			return material.List(theme, &ui.candidateList).Layout(gtx, len(candidates), func(gtx layout.Context, i int) layout.Dimensions {
				u := candidates[i]
				b := material.Button(theme, &ui.candidateBtn[i], fmt.Sprintf("%s <%s>", u.FullName(), u.Email))
				if u.Email != selected {
					b.Background = color.NRGBA{A: 0}
				}
				return b.Layout(gtx)
			})
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return layout.Flex{}.Layout(gtx,
				layout.Rigid(rowBtn(&ui.submitAssignBtn, "Assign", true)),
				layout.Rigid(rowBtn(&ui.cancelAssignBtn, "Cancel", true)),
			)
		}),
	)
}

func (ui *UI) message(msg string, c color.NRGBA) layout.Widget {
	return func(gtx layout.Context) layout.Dimensions {
		if msg == "" {
			return layout.Dimensions{}
		}
		label := material.Body2(theme, msg)
		label.Color = c
		return label.Layout(gtx)
	}
}

func field(ed *widget.Editor, hint string) layout.Widget {
	return func(gtx layout.Context) layout.Dimensions {
		return layout.Inset{Top: unit.Dp(4), Bottom: unit.Dp(4)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
			return material.Editor(theme, ed, hint).Layout(gtx)
		})
	}
}

func rowBtn(btn *widget.Clickable, label string, visible bool) layout.Widget {
	return func(gtx layout.Context) layout.Dimensions {
		if !visible {
			return layout.Dimensions{}
		}
		return layout.Inset{Left: unit.Dp(4)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
			return material.Button(theme, btn, label).Layout(gtx)
		})
	}
}

func pagerBtn(btn *widget.Clickable, label string, enabled bool) layout.Widget {
	return func(gtx layout.Context) layout.Dimensions {
		b := material.Button(theme, btn, label)
		if !enabled {
			b.Background = grey
			gtx = gtx.Disabled()
		}
		return b.Layout(gtx)
	}
}

func statusColor(s task.Status) color.NRGBA {
	switch s {
	case task.StatusTodo:
		return color.NRGBA{R: 0xFF, G: 0xA0, B: 0x00, A: 0xFF}
	case task.StatusInProgress:
		return color.NRGBA{R: 0x00, G: 0xA0, B: 0xFF, A: 0xFF}
	case task.StatusDone:
		return green
	case task.StatusBlocked:
		return red
	}
	return grey
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
