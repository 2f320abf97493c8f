package http

import (
	"encoding/json"
	"net/http"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code  core.ErrorCode `json:"code"`
	Error string         `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error's numeric code to an HTTP status and emits the
// {code, error} body. Server-side failures are logged with request context.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := core.CodeOf(err)
	status := statusFromCode(code)

	if status >= http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldError, err.Error(),
			applog.FieldErrorCode, int(code),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
	}

	writeJSON(w, status, errorBody{Code: code, Error: err.Error()})
}

func statusFromCode(code core.ErrorCode) int {
	switch code {
	case core.CodeUserNotFound, core.CodeAccountNotFound, core.CodeTransactionNotFound,
		core.CodeCategoryNotFound, core.CodeBusinessNotFound:
		return http.StatusNotFound
	case core.CodeDuplicateName:
		return http.StatusConflict
	case core.CodeValidationFailed, core.CodeMissingField, core.CodeInvalidPattern,
		core.CodeMalformedStatement:
		return http.StatusUnprocessableEntity
	case core.CodeSessionInvalid:
		return http.StatusUnauthorized
	case core.CodeServiceUnavailable:
		return http.StatusTooManyRequests
	case core.CodeDatabaseFailure, core.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
