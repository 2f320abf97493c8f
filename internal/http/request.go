package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"fintrack/internal/core"
)

const (
	maxJSONBody      = 1 << 20  // request bodies for the JSON endpoints
	maxStatementBody = 10 << 20 // uploaded CSV statements
)

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return core.NewError(core.CodeMissingField, "request body is empty")
		}
		return core.WrapError(core.CodeValidationFailed, err, "decoding request body")
	}
	return nil
}

// userIDFrom resolves the acting user from the query string or the
// X-User-ID header.
func userIDFrom(r *http.Request) string {
	if v := strings.TrimSpace(r.URL.Query().Get("userId")); v != "" {
		return v
	}
	return strings.TrimSpace(r.Header.Get("X-User-ID"))
}

// dateParam parses an optional YYYY-MM-DD query parameter. A missing
// parameter yields the zero date.
func dateParam(r *http.Request, name string) (core.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return core.Date{}, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return core.Date{}, core.WrapError(core.CodeValidationFailed, err, "parameter %q", name)
	}
	return core.NewDate(t.Year(), t.Month(), t.Day()), nil
}

func boolParam(r *http.Request, name string) bool {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get(name))) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// statementBody extracts the uploaded CSV: either a multipart form with a
// "statement" file field or the raw request body.
func statementBody(w http.ResponseWriter, r *http.Request) (io.ReadCloser, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxStatementBody)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("statement")
		if err != nil {
			return nil, core.WrapError(core.CodeMissingField, err, "statement file field")
		}
		return file, nil
	}
	return r.Body, nil
}
