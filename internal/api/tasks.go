package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"task-console/internal/store"
	"task-console/pkg/page"
	"task-console/pkg/task"
)

// taskRequest is the create/update body. Pointers distinguish absent fields.
type taskRequest struct {
	Title        string      `json:"taskTitle"`
	Details      string      `json:"taskDetails"`
	Status       task.Status `json:"status"`
	PeriodInDays *int        `json:"periodInDays"`
	StartDate    *task.Date  `json:"startDate"`
}

func (req taskRequest) validate() string {
	switch {
	case req.PeriodInDays == nil:
		return "Period should not be empty"
	case *req.PeriodInDays < 1:
		return "Period should be greater than 1 day"
	case *req.PeriodInDays > 7:
		return "Period should be less than 7 days"
	case req.StartDate == nil || req.StartDate.IsZero():
		return "Start date should not be empty"
	case req.Status == "":
		return "Status should not be empty!"
	case !req.Status.Valid():
		return "Unknown status " + string(req.Status)
	case strings.TrimSpace(req.Title) == "":
		return "Task title should not be empty!"
	}
	return ""
}

func (req taskRequest) apply(t *task.Task) {
	t.Title = req.Title
	t.Details = req.Details
	t.Status = req.Status
	t.PeriodInDays = *req.PeriodInDays
	t.StartDate = *req.StartDate
}

func taskID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get("taskId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid task id")
		return 0, false
	}
	return id, true
}

// loadTask fetches a task the caller may modify. Standard users may only touch
// tasks assigned to them.
func (s *Server) loadTask(w http.ResponseWriter, r *http.Request, id int64) (*task.Task, bool) {
	t, err := s.store.GetTask(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusBadRequest, "Invalid task id")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	a := caller(r.Context())
	if !a.Role.IsAdmin() && !strings.EqualFold(t.Email, a.Email) {
		writeError(w, http.StatusForbidden, "Access denied")
		return nil, false
	}
	return t, true
}

func (s *Server) writeTaskPage(w http.ResponseWriter, r *http.Request, assignee string) {
	pageNum, pageSize, ok := pageParams(w, r, 5)
	if !ok {
		return
	}
	tasks, total, err := s.store.Tasks(r.Context(), assignee, pageNum, pageSize)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	writeOK(w, http.StatusOK, page.Page[task.Task]{
		PageNum:      pageNum,
		PageSize:     pageSize,
		TotalElement: total,
		Last:         page.IsLast(pageNum, pageSize, total),
		Content:      tasks,
	})
}

func (s *Server) handleTaskList(w http.ResponseWriter, r *http.Request) {
	s.writeTaskPage(w, r, "")
}

func (s *Server) handleOwnTaskList(w http.ResponseWriter, r *http.Request) {
	s.writeTaskPage(w, r, caller(r.Context()).Email)
}

func (s *Server) handleTaskCreate(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if !decode(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	var t task.Task
	req.apply(&t)
	created, err := s.store.CreateTask(r.Context(), &t)
	if err != nil {
		log.Printf("api: create task: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create task")
		return
	}
	writeOK(w, http.StatusCreated, created)
}

func (s *Server) handleTaskUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	var req taskRequest
	if !decode(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	t, ok := s.loadTask(w, r, id)
	if !ok {
		return
	}
	req.apply(t)
	updated, err := s.store.UpdateTask(r.Context(), t)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeOK(w, http.StatusOK, updated)
}

func (s *Server) handleTaskDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	err := s.store.DeleteTask(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusBadRequest, "Invalid task id")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeOK(w, http.StatusAccepted, nil)
}

// handleTaskCreateAssign creates a task already assigned to the account
// named by firstName and lastName.
func (s *Server) handleTaskCreateAssign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		taskRequest
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if !decode(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		writeError(w, http.StatusBadRequest, "First name and last name are required")
		return
	}
	acct, err := s.store.AccountByName(r.Context(), req.FirstName, req.LastName)
	if err != nil {
		writeError(w, http.StatusBadRequest, "User does not exist!")
		return
	}
	var t task.Task
	req.apply(&t)
	t.Email = acct.Email
	created, err := s.store.CreateTask(r.Context(), &t)
	if err != nil {
		log.Printf("api: create and assign task: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to create task")
		return
	}
	writeOK(w, http.StatusCreated, created)
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskID int64  `json:"taskId"`
		Email  string `json:"email"`
	}
	if !decode(w, r, &req) {
		return
	}
	acct, err := s.store.AccountByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, http.StatusBadRequest, "User does not exist!")
		return
	}
	t, ok := s.loadTask(w, r, req.TaskID)
	if !ok {
		return
	}
	t.Email = acct.Email
	updated, err := s.store.UpdateTask(r.Context(), t)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeOK(w, http.StatusOK, updated)
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	status, err := task.ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid task status")
		return
	}
	t, ok := s.loadTask(w, r, id)
	if !ok {
		return
	}
	t.Status = status
	updated, err := s.store.UpdateTask(r.Context(), t)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeOK(w, http.StatusOK, updated)
}
