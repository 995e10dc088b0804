package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/authcrud/internal/common"
	"github.com/dmitrijs2005/authcrud/internal/server/httpx"
	"github.com/dmitrijs2005/authcrud/internal/server/middleware"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// decode reads the JSON body into dst. An empty body leaves dst untouched so
// the service reports the missing fields.
func (a *api) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	return a.decodeWith(httpx.DecodeJSON, w, r, dst)
}

// decodeLax is decode for the session endpoints, which ignore unknown fields.
func (a *api) decodeLax(w http.ResponseWriter, r *http.Request, dst any) bool {
	return a.decodeWith(httpx.DecodeJSONLax, w, r, dst)
}

func (a *api) decodeWith(decode func(http.ResponseWriter, *http.Request, int64, any) error, w http.ResponseWriter, r *http.Request, dst any) bool {
	err := decode(w, r, a.MaxBodyBytes, dst)
	if err == nil || errors.Is(err, httpx.ErrEmptyBody) {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		httpx.WriteError(w, http.StatusRequestEntityTooLarge, "body_too_large", "Request body too large")
		return false
	}
	httpx.WriteError(w, http.StatusBadRequest, "invalid_body", "Invalid request body")
	return false
}

// fail renders err. Server-side failures are logged with the request id;
// the client only sees a generic message.
func (a *api) fail(w http.ResponseWriter, r *http.Request, err error) {
	p := httpx.WriteProblem(w, err)
	if p.Status >= http.StatusInternalServerError {
		a.Log.Error(r.Context(), "http.handler.error",
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
}

// pagination reads limit and skip from the query string.
func pagination(r *http.Request) (limit, skip int, err error) {
	q := r.URL.Query()
	limit = defaultListLimit
	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			return 0, 0, common.NewValidationError("limit", "must be a non-negative integer")
		}
		if limit == 0 || limit > maxListLimit {
			limit = maxListLimit
		}
	}
	if v := q.Get("skip"); v != "" {
		skip, err = strconv.Atoi(v)
		if err != nil || skip < 0 {
			return 0, 0, common.NewValidationError("skip", "must be a non-negative integer")
		}
	}
	return limit, skip, nil
}

func principal(r *http.Request) middleware.Principal {
	p, _ := middleware.PrincipalFromContext(r.Context())
	return p
}
