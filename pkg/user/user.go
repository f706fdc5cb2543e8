package user

import (
	"context"
	"net/mail"
	"strings"

	"task-console/pkg/session"
)

// User is an identity known to the task service.
type User struct {
	FirstName   string       `json:"firstName"`
	LastName    string       `json:"lastName"`
	Email       string       `json:"email"`
	PhoneNumber string       `json:"phoneNumber,omitempty"`
	Address     string       `json:"address,omitempty"`
	Role        session.Role `json:"role,omitempty"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Tokens is the credential pair issued at login.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoginResult is the payload of a successful login.
type LoginResult struct {
	User
	AuthResponse Tokens `json:"authResponse"`
}

// Session builds the session to persist from a login result. The server
// doesn't always echo the email, so the one used to log in is the fallback.
func (r LoginResult) Session(email string) session.Session {
	if r.Email != "" {
		email = r.Email
	}
	return session.Session{
		AccessToken:  r.AuthResponse.AccessToken,
		RefreshToken: r.AuthResponse.RefreshToken,
		Role:         r.Role,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Email:        email,
	}
}

// Audience selects which signup endpoint a registration goes to.
type Audience string

const (
	AudienceAdmin Audience = "admin"
	AudienceUser  Audience = "user"
)

// Signup is the registration request body.
type Signup struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	PhoneNumber     string `json:"phoneNumber"`
	Address         string `json:"address"`
	Gender          string `json:"gender"`
}

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ValidEmail reports whether s parses as a bare address.
func ValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// CandidatePageSize bounds the assignee picker; only the first page is read.
const CandidatePageSize = 20

// Service is the contract for identity operations against the user service.
type Service interface {
	Login(ctx context.Context, c Credentials) (*LoginResult, error)
	Signup(ctx context.Context, aud Audience, s Signup) error
	Candidates(ctx context.Context) ([]User, error)
}
