package apiclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestClientSendsBearerAndJSONHeaders(t *testing.T) {
	var gotAuth, gotType, gotReqID, gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotReqID = r.Header.Get("X-Request-ID")
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		io.WriteString(w, `{"code":"200","description":"ok","responseData":{"name":"x"}}`)
	}))
	defer srv.Close()

	c := New(srv.URL+"/api/v1/", StaticToken("tok-1"))
	var out struct {
		Name string `json:"name"`
	}
	err := c.Get(context.Background(), "/task-mgmt/tasks", url.Values{"pageNum": {"0"}}, &out)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("authorization: want %q, got %q", "Bearer tok-1", gotAuth)
	}
	if gotType != "application/json" {
		t.Errorf("content-type: want application/json, got %q", gotType)
	}
	if gotReqID == "" {
		t.Error("expected X-Request-ID header")
	}
	if gotPath != "/api/v1/task-mgmt/tasks" {
		t.Errorf("path: got %q", gotPath)
	}
	if gotQuery != "pageNum=0" {
		t.Errorf("query: got %q", gotQuery)
	}
	if out.Name != "x" {
		t.Errorf("responseData not decoded: %+v", out)
	}
}

func TestClientAbsentTokenStillSendsBearerHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		io.WriteString(w, `{"code":"200"}`)
	}))
	defer srv.Close()

	if err := New(srv.URL, nil).Delete(context.Background(), "x", nil, nil); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// net/http trims trailing whitespace from header values on the wire.
	if gotAuth != "Bearer" && gotAuth != "Bearer " {
		t.Errorf("authorization: got %q", gotAuth)
	}
}

func TestClientUnauthenticatedIsInterceptedOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"code":"401","description":"Token expired"}`)
	}))
	defer srv.Close()

	hits := 0
	c := New(srv.URL, StaticToken("old"), OnUnauthenticated(func(e *APIError) { hits++ }))
	err := c.Put(context.Background(), "/task-mgmt/tasks", url.Values{"taskId": {"1"}}, map[string]string{}, nil)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Description != "Token expired" {
		t.Errorf("description: got %q", apiErr.Description)
	}
	if hits != 1 {
		t.Errorf("hook hits: want 1, got %d", hits)
	}
}

func TestClientUnauthenticatedCodeInsideSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"code":"401","description":"Session expired"}`)
	}))
	defer srv.Close()

	err := New(srv.URL, StaticToken("x")).Get(context.Background(), "/", nil, nil)
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestClientServerDescriptionSurvives(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"code":"400","description":"Task title should not be empty!"}`)
	}))
	defer srv.Close()

	err := New(srv.URL, StaticToken("x")).Post(context.Background(), "/task-mgmt/tasks", map[string]any{}, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if errors.Is(err, ErrUnauthenticated) {
		t.Error("400 must not match ErrUnauthenticated")
	}
	if apiErr.Status != 400 || apiErr.Description != "Task title should not be empty!" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestClientNonEnvelopeErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway down", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := New(srv.URL, nil).Get(context.Background(), "/", nil, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadGateway || apiErr.Description != "" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}

func TestClientForwardsCookies(t *testing.T) {
	calls := 0
	var second string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.SetCookie(w, &http.Cookie{Name: "XSRF", Value: "abc", Path: "/"})
		} else if ck, err := r.Cookie("XSRF"); err == nil {
			second = ck.Value
		}
		io.WriteString(w, `{"code":"200"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	ctx := context.Background()
	if err := c.Get(ctx, "/a", nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := c.Get(ctx, "/b", nil, nil); err != nil {
		t.Fatal(err)
	}
	if second != "abc" {
		t.Errorf("cookie not forwarded, got %q", second)
	}
}
