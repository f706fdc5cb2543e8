package api

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"task-console/internal/store"
	"task-console/pkg/page"
	"task-console/pkg/session"
	"task-console/pkg/user"
)

const (
	adminRole session.Role = session.RoleAdmin
	userRole  session.Role = "USER"
)

func toUser(a store.Account) user.User {
	return user.User{
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		Email:       a.Email,
		PhoneNumber: a.PhoneNumber,
		Address:     a.Address,
		Role:        a.Role,
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var c user.Credentials
	if !decode(w, r, &c) {
		return
	}
	acct, err := s.store.AccountByEmail(r.Context(), strings.TrimSpace(c.Email))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusBadRequest, "Invalid Email address.")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(c.Password)); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid password!")
		return
	}

	res := user.LoginResult{
		User: toUser(*acct),
		AuthResponse: user.Tokens{
			AccessToken:  uuid.Must(uuid.NewV7()).String(),
			RefreshToken: uuid.NewString(),
		},
	}
	if err := s.store.SaveToken(r.Context(), res.AuthResponse.AccessToken, acct.Email); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	log.Printf("api: login %s (%s)", acct.Email, acct.Role)
	writeOK(w, http.StatusOK, res)
}

// handleSignup registers an account with the given role.
func (s *Server) handleSignup(role session.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in user.Signup
		if !decode(w, r, &in) {
			return
		}
		if msg := validateSignup(in); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "An error occurred while registering user.")
			return
		}
		acct, err := s.store.CreateAccount(r.Context(), &store.Account{
			FirstName:    strings.TrimSpace(in.FirstName),
			LastName:     strings.TrimSpace(in.LastName),
			Email:        strings.ToLower(strings.TrimSpace(in.Email)),
			PhoneNumber:  in.PhoneNumber,
			Address:      in.Address,
			Gender:       in.Gender,
			Role:         role,
			PasswordHash: hash,
		})
		if errors.Is(err, store.ErrExists) {
			writeError(w, http.StatusBadRequest, "Email already exist!")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "An error occurred while registering user.")
			return
		}
		log.Printf("api: registered %s as %s", acct.Email, acct.Role)
		writeOK(w, http.StatusCreated, "Registration successful")
	}
}

func validateSignup(in user.Signup) string {
	required := []struct{ value, msg string }{
		{in.FirstName, "First name can not be blank!"},
		{in.LastName, "Last name can not be blank!"},
		{in.Email, "Email can not be blank!"},
		{in.Password, "Password can not be blank!"},
		{in.ConfirmPassword, "Confirm password can not be blank!"},
		{in.PhoneNumber, "Phone number can not be blank!"},
		{in.Address, "Address can not be blank!"},
		{in.Gender, "Gender can not be blank!"},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return f.msg
		}
	}
	if !user.ValidEmail(strings.TrimSpace(in.Email)) {
		return "Email is invalid!"
	}
	if in.Password != in.ConfirmPassword {
		return "Password mismatch."
	}
	return ""
}

func (s *Server) handleUserList(w http.ResponseWriter, r *http.Request) {
	pageNum, pageSize, ok := pageParams(w, r, user.CandidatePageSize)
	if !ok {
		return
	}
	accts, total, err := s.store.Accounts(r.Context(), pageNum, pageSize)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	users := make([]user.User, 0, len(accts))
	for _, a := range accts {
		users = append(users, toUser(a))
	}
	writeOK(w, http.StatusOK, page.Page[user.User]{
		PageNum:      pageNum,
		PageSize:     pageSize,
		TotalElement: total,
		Last:         page.IsLast(pageNum, pageSize, total),
		Content:      users,
	})
}
