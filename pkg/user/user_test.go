package user

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"task-console/pkg/apiclient"
)

func TestLoginDecodesNestedTokens(t *testing.T) {
	var gotBody Credentials
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user-mgmt/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		io.WriteString(w, `{"code":"200","description":"Login successful","responseData":{
			"firstName":"Ada","lastName":"Lovelace","role":"ADMIN",
			"authResponse":{"accessToken":"acc","refreshToken":"ref"}}}`)
	}))
	defer srv.Close()

	res, err := NewRemote(apiclient.New(srv.URL, nil)).Login(context.Background(), Credentials{Email: "ada@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if gotBody.Email != "ada@example.com" || gotBody.Password != "pw" {
		t.Errorf("body: %+v", gotBody)
	}
	s := res.Session("ada@example.com")
	if s.AccessToken != "acc" || s.RefreshToken != "ref" || !s.Role.IsAdmin() {
		t.Errorf("session: %+v", s)
	}
	if s.Email != "ada@example.com" || s.FirstName != "Ada" || s.LastName != "Lovelace" {
		t.Errorf("identity: %+v", s)
	}
}

func TestSignupPathsAndCandidates(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path+"?"+r.URL.RawQuery)
		if r.URL.Path == "/user-mgmt/users" {
			io.WriteString(w, `{"code":"200","responseData":{"pageNum":0,"pageSize":20,"last":true,"content":[{"firstName":"B","lastName":"C","email":"b@c.d"}]}}`)
			return
		}
		io.WriteString(w, `{"code":"201","description":"Signup successful"}`)
	}))
	defer srv.Close()

	r := NewRemote(apiclient.New(srv.URL, nil))
	ctx := context.Background()
	if err := r.Signup(ctx, AudienceAdmin, Signup{Email: "a@b.c"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Signup(ctx, AudienceUser, Signup{Email: "a@b.c"}); err != nil {
		t.Fatal(err)
	}
	users, err := r.Candidates(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 1 || users[0].FullName() != "B C" {
		t.Errorf("candidates: %+v", users)
	}

	want := []string{
		"POST /user-mgmt/admin/signup?",
		"POST /user-mgmt/user/signup?",
		"GET /user-mgmt/users?pageNum=0&pageSize=20",
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("call %d: want %q, got %q", i, want[i], paths[i])
		}
	}
}

func TestValidEmail(t *testing.T) {
	if !ValidEmail("a@example.com") {
		t.Error("plain address should be valid")
	}
	for _, bad := range []string{"", "nope", "Ada <a@example.com>"} {
		if ValidEmail(bad) {
			t.Errorf("%q should be invalid", bad)
		}
	}
}
