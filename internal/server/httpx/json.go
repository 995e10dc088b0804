// Package httpx holds the JSON response and request helpers shared by the
// middleware and the HTTP handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// DefaultMaxBodyBytes caps request bodies when the caller has no limit.
const DefaultMaxBodyBytes int64 = 1 << 20

// ErrEmptyBody is returned by DecodeJSON for a request without a body.
var ErrEmptyBody = errors.New("empty body")

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error apiError `json:"error"`
}

// MessageResponse is the body of requests that only confirm an action.
type MessageResponse struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: apiError{Code: code, Message: msg}})
}

func WriteMessage(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, MessageResponse{Message: msg})
}

// DecodeJSON reads exactly one JSON value of at most maxBytes into dst.
// Unknown fields and trailing data are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	return decodeJSON(w, r, maxBytes, dst, true)
}

// DecodeJSONLax is DecodeJSON without the unknown-field check. The session
// endpoints use it so clients may send extra fields alongside credentials.
func DecodeJSONLax(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	return decodeJSON(w, r, maxBytes, dst, false)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any, strict bool) error {
	if r.Body == nil || r.Body == http.NoBody {
		return ErrEmptyBody
	}
	defer func() { _ = r.Body.Close() }()

	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	body := http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(body)
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after JSON object")
	}
	return nil
}
