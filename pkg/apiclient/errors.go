package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnauthenticated matches any APIError the server issued because the
// bearer credential was missing, expired or rejected.
var ErrUnauthenticated = errors.New("unauthenticated")

// CodeUnauthenticated is the envelope code the server uses for session expiry.
const CodeUnauthenticated = "401"

// APIError is a non-2xx response. Description carries the server's
// human-readable explanation when the body was an envelope.
type APIError struct {
	Status      int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Description)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, http.StatusText(e.Status))
}

// Unauthenticated reports whether the server rejected the credential.
func (e *APIError) Unauthenticated() bool {
	return e.Status == http.StatusUnauthorized || e.Code == CodeUnauthenticated
}

// Is lets errors.Is(err, ErrUnauthenticated) see through an APIError.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthenticated && e.Unauthenticated()
}

// intercept is the single place responses are inspected. It decodes the
// envelope, turns failures into *APIError and raises the unauthenticated hook.
func (c *Client) intercept(status int, raw []byte) (*Envelope, error) {
	var env Envelope
	decodeErr := json.Unmarshal(raw, &env)

	if status >= 200 && status < 300 {
		if decodeErr != nil && len(strings.TrimSpace(string(raw))) > 0 {
			return nil, fmt.Errorf("decode envelope: %w", decodeErr)
		}
		// Some backends report failures inside a 200 envelope.
		if env.Code == CodeUnauthenticated {
			return nil, c.fail(&APIError{Status: http.StatusUnauthorized, Code: env.Code, Description: env.Description})
		}
		return &env, nil
	}

	apiErr := &APIError{Status: status}
	if decodeErr == nil {
		apiErr.Code = env.Code
		apiErr.Description = env.Description
	}
	return nil, c.fail(apiErr)
}

func (c *Client) fail(e *APIError) error {
	if e.Unauthenticated() && c.onUnauthenticated != nil {
		c.onUnauthenticated(e)
	}
	return e
}
