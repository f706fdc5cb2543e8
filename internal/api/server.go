// Package api is a development backend for the task console. It speaks the
// task management REST contract under /api/v1 so the client can run locally
// and be tested end to end.
package api

import (
	"encoding/json"
	"io"
	"log"
	"math"
	"net/http"
	"strconv"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"task-console/internal/store"
	"task-console/pkg/page"
)

// Prefix is the versioned path every route lives under.
const Prefix = "/api/v1"

// Server is the HTTP API server.
type Server struct {
	store  store.Store
	router *mux.Router
}

// New creates a new Server.
func New(st store.Store) *Server {
	s := &Server{
		store:  st,
		router: mux.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler wraps the server with CORS and an access log written to logOut.
// Credentials are allowed so browsers forward the session cookie.
func (s *Server) Handler(origins []string, logOut io.Writer) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := gorillahandlers.CORS(
		gorillahandlers.AllowedHeaders([]string{"X-Requested-With", "X-Request-ID", "Content-Type", "Authorization"}),
		gorillahandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillahandlers.AllowedOrigins(origins),
		gorillahandlers.AllowCredentials(),
	)
	return gorillahandlers.CombinedLoggingHandler(logOut, cors(s))
}

func (s *Server) routes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	v1 := s.router.PathPrefix(Prefix).Subrouter()

	// Users
	v1.HandleFunc("/user-mgmt/login", s.handleLogin).Methods(http.MethodPost)
	v1.HandleFunc("/user-mgmt/admin/signup", s.handleSignup(adminRole)).Methods(http.MethodPost)
	v1.HandleFunc("/user-mgmt/user/signup", s.handleSignup(userRole)).Methods(http.MethodPost)

	authed := v1.NewRoute().Subrouter()
	authed.Use(s.requireAuth)
	authed.HandleFunc("/user-mgmt/users", s.adminOnly(s.handleUserList)).Methods(http.MethodGet)

	// Tasks
	authed.HandleFunc("/task-mgmt/tasks", s.handleTaskList).Methods(http.MethodGet)
	authed.HandleFunc("/task-mgmt/tasks", s.adminOnly(s.handleTaskCreate)).Methods(http.MethodPost)
	authed.HandleFunc("/task-mgmt/tasks_assign", s.adminOnly(s.handleTaskCreateAssign)).Methods(http.MethodPost)
	authed.HandleFunc("/task-mgmt/tasks", s.handleTaskUpdate).Methods(http.MethodPut)
	authed.HandleFunc("/task-mgmt/tasks", s.adminOnly(s.handleTaskDelete)).Methods(http.MethodDelete)
	authed.HandleFunc("/task-mgmt/tasks/users", s.handleOwnTaskList).Methods(http.MethodGet)
	authed.HandleFunc("/task-mgmt/assign", s.adminOnly(s.handleAssign)).Methods(http.MethodPut)
	authed.HandleFunc("/task-mgmt/task_status", s.handleTaskStatus).Methods(http.MethodPut)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "No handler for "+r.Method+" "+r.URL.Path)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// envelope is the uniform response body.
type envelope struct {
	Code         string `json:"code"`
	Description  string `json:"description"`
	ResponseData any    `json:"responseData"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json: %v", err)
	}
}

func writeOK(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Code: strconv.Itoa(status), Description: "Successful", ResponseData: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Code: strconv.Itoa(status), Description: msg})
}

func queryInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}

const (
	maxPageNum  = math.MaxInt32
	maxPageSize = 1000
)

// pageParams reads pageNum and pageSize. A negative page number reads the
// first page and a pageSize below one reads one item; values past the limits
// are rejected.
func pageParams(w http.ResponseWriter, r *http.Request, defaultSize int) (int, int, bool) {
	pageNum := page.Clamp(queryInt(r, "pageNum", 0))
	pageSize := max(queryInt(r, "pageSize", defaultSize), 1)
	if pageNum > maxPageNum || pageSize > maxPageSize {
		writeError(w, http.StatusBadRequest, "Invalid page request")
		return 0, 0, false
	}
	return pageNum, pageSize, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}
