// Package respond writes the JSON envelopes of the HTTP API.
//
// Success bodies are {"ok":true,"data":...} plus optional extra keys; errors
// are {"ok":false,"error":"..."} with the status derived from the apperr kind.
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/kilianp07/freightmarket/core/apperr"
	coremon "github.com/kilianp07/freightmarket/core/monitoring"
)

// MaxBodyBytes bounds decoded request bodies.
const MaxBodyBytes = 1 << 20

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes {"ok":true,"data":data}.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, map[string]any{"ok": true, "data": data})
}

// Created writes {"ok":true,"data":data} with status 201.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, map[string]any{"ok": true, "data": data})
}

// With writes a success envelope carrying extra top level keys. A nil data
// omits the data key.
func With(w http.ResponseWriter, data any, extra map[string]any) {
	body := make(map[string]any, len(extra)+2)
	for k, v := range extra {
		body[k] = v
	}
	body["ok"] = true
	if data != nil {
		body["data"] = data
	}
	JSON(w, http.StatusOK, body)
}

// Status maps an error to its HTTP status.
func Status(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// Error writes the error envelope. Unexpected errors are reported to the
// monitor and hidden behind a generic message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := Status(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		coremon.CaptureException(err, map[string]string{"method": r.Method, "path": r.URL.Path})
		msg = "internal error"
	}
	JSON(w, status, map[string]any{"ok": false, "error": msg})
}

// Decode reads a JSON body into v. An empty body leaves v untouched.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.Validation("request body too large")
		}
		return apperr.Validation("invalid JSON body")
	}
	return nil
}

// IntParam parses an optional integer query parameter.
func IntParam(r *http.Request, name string) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, apperr.Validation("%s must be an integer", name)
	}
	return n, nil
}

// BoolParam parses an optional boolean query parameter.
func BoolParam(r *http.Request, name string) (*bool, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, apperr.Validation("%s must be a boolean", name)
	}
	return &b, nil
}
