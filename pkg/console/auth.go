package console

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"task-console/pkg/session"
	"task-console/pkg/user"
)

// SignupForm is a registration as entered, including the agreement checkbox.
type SignupForm struct {
	user.Signup
	Agreement bool
}

// Validate enforces the form's hard stops. The agreement check comes first
// and short-circuits everything else.
func (f SignupForm) Validate() error {
	if !f.Agreement {
		return &ValidationError{Field: "agreement", Message: "Agreement box has not been checked"}
	}
	required := []struct{ field, label, value string }{
		{"firstName", "First name", f.FirstName},
		{"lastName", "Last name", f.LastName},
		{"email", "E-mail", f.Email},
		{"password", "Password", f.Password},
		{"confirmPassword", "Password confirmation", f.ConfirmPassword},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field, Message: fmt.Sprintf("Please input your %s!", r.label)}
		}
	}
	if !user.ValidEmail(f.Email) {
		return &ValidationError{Field: "email", Message: "The input is not valid E-mail!"}
	}
	if f.Password != f.ConfirmPassword {
		return &ValidationError{Field: "confirmPassword", Message: "The two passwords that you entered do not match!"}
	}
	return nil
}

// Auth drives login, signup and logout against a session.
type Auth struct {
	users user.Service
	sess  *session.Manager
	bus   *Bus

	mu      sync.Mutex
	message string
}

// NewAuth creates an Auth.
func NewAuth(users user.Service, sess *session.Manager, bus *Bus) *Auth {
	return &Auth{users: users, sess: sess, bus: bus}
}

// Message is the error text from the last failed attempt.
func (a *Auth) Message() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.message
}

func (a *Auth) setMessage(msg string) {
	a.mu.Lock()
	a.message = msg
	a.mu.Unlock()
	a.bus.Publish(Change{Source: "auth", Message: msg})
}

// Login exchanges credentials for tokens and persists the session. A 401
// shows as "Unauthorized user"; other failures show the server description.
func (a *Auth) Login(ctx context.Context, email, password string) error {
	a.setMessage("")
	res, err := a.users.Login(ctx, user.Credentials{Email: email, Password: password})
	if err != nil {
		a.setMessage(Describe(err, UnauthorizedUser))
		return err
	}
	if err := a.sess.Begin(ctx, res.Session(email)); err != nil {
		err = fmt.Errorf("persist session: %w", err)
		a.setMessage(err.Error())
		return err
	}
	return nil
}

// Signup validates the form and registers the account. On success the
// caller moves on to login.
func (a *Auth) Signup(ctx context.Context, aud user.Audience, form SignupForm) error {
	a.setMessage("")
	if err := form.Validate(); err != nil {
		a.setMessage(Describe(err, UnauthorizedUser))
		return err
	}
	if err := a.users.Signup(ctx, aud, form.Signup); err != nil {
		a.setMessage(Describe(err, UnauthorizedUser))
		return err
	}
	return nil
}

// Logout forgets the stored session.
func (a *Auth) Logout(ctx context.Context) error {
	return a.sess.End(ctx)
}
