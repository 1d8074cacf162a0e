package sankhya

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrNoToken is returned when a successful login response has no bearer token.
var ErrNoToken = errors.New("login response carried no bearer token")

// APIError is returned for non-2xx HTTP responses. Details holds the response
// body, re-indented when it is JSON and verbatim otherwise.
type APIError struct {
	Op         string
	StatusCode int
	Details    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
}

// LogValue exposes the status code and response body to log handlers.
func (e *APIError) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("msg", e.Error()),
		slog.Int("status_code", e.StatusCode),
	}
	if e.Details != "" {
		attrs = append(attrs, slog.String("details", e.Details))
	}
	return slog.GroupValue(attrs...)
}

// StatusError is returned when the HTTP call succeeded but the service
// envelope reported a status other than "1".
type StatusError struct {
	Op      string
	Status  string
	Message string
	Details string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: unexpected status %q: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: unexpected status %q", e.Op, e.Status)
}

func (e *StatusError) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("msg", e.Error())}
	if e.Details != "" {
		attrs = append(attrs, slog.String("details", e.Details))
	}
	return slog.GroupValue(attrs...)
}

// formatDetails pretty-prints a JSON body and falls back to trimmed raw text.
func formatDetails(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}
	if json.Valid(trimmed) {
		var buf bytes.Buffer
		if err := json.Indent(&buf, trimmed, "", "    "); err == nil {
			return buf.String()
		}
	}
	return strings.TrimSpace(string(trimmed))
}
