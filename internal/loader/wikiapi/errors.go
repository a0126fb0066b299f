package wikiapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// HTTPError is a non-2xx response from the API.
type HTTPError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "http error"
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if msg == "" {
		msg = "http error"
	}
	return fmt.Sprintf("genealogy api http error: status=%d message=%s", e.StatusCode, msg)
}

// APIError is a 2xx response whose payload reports a failure.
type APIError struct {
	Key    string
	Status string
}

func (e *APIError) Error() string {
	if e == nil {
		return "genealogy api error"
	}
	return fmt.Sprintf("genealogy api error: key=%s status=%s", e.Key, e.Status)
}

func parseHTTPError(status int, raw []byte) error {
	body := strings.TrimSpace(string(raw))
	var env struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &env); err == nil {
		msg := strings.TrimSpace(env.Message)
		if msg == "" {
			msg = strings.TrimSpace(env.Error)
		}
		return &HTTPError{StatusCode: status, Message: msg, Body: body}
	}
	return &HTTPError{StatusCode: status, Body: body}
}
