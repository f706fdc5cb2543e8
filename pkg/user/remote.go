package user

import (
	"context"
	"net/url"
	"strconv"

	"task-console/pkg/apiclient"
	"task-console/pkg/page"
)

// Remote is the user Service backed by the user management API.
type Remote struct {
	api *apiclient.Client
}

// NewRemote creates a Remote over api.
func NewRemote(api *apiclient.Client) *Remote {
	return &Remote{api: api}
}

// Login exchanges credentials for tokens and identity.
func (r *Remote) Login(ctx context.Context, c Credentials) (*LoginResult, error) {
	var res LoginResult
	if err := r.api.Post(ctx, "/user-mgmt/login", c, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Signup registers a new account on the admin or end-user path.
func (r *Remote) Signup(ctx context.Context, aud Audience, s Signup) error {
	path := "/user-mgmt/user/signup"
	if aud == AudienceAdmin {
		path = "/user-mgmt/admin/signup"
	}
	return r.api.Post(ctx, path, s, nil)
}

// Candidates returns the first page of users eligible for assignment.
func (r *Remote) Candidates(ctx context.Context) ([]User, error) {
	q := url.Values{
		"pageNum":  {"0"},
		"pageSize": {strconv.Itoa(CandidatePageSize)},
	}
	var p page.Page[User]
	if err := r.api.Get(ctx, "/user-mgmt/users", q, &p); err != nil {
		return nil, err
	}
	return p.Content, nil
}
