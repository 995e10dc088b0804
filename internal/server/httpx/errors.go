package httpx

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/authcrud/internal/common"
)

// Problem is the HTTP rendering of an error.
type Problem struct {
	Status  int
	Code    string
	Message string
}

var problems = []struct {
	err error
	p   Problem
}{
	{common.ErrMissingCredentials, Problem{http.StatusBadRequest, "missing_credentials", "Email and password are required"}},
	{common.ErrInvalidCredentials, Problem{http.StatusUnauthorized, "invalid_credentials", "Invalid credentials"}},
	{common.ErrAccountDisabled, Problem{http.StatusUnauthorized, "account_disabled", "Account is deactivated"}},
	{common.ErrMissingToken, Problem{http.StatusBadRequest, "missing_token", "Refresh token is required"}},
	{common.ErrInvalidRefreshToken, Problem{http.StatusUnauthorized, "invalid_refresh_token", "Invalid refresh token"}},
	{common.ErrTokenRevoked, Problem{http.StatusUnauthorized, "token_revoked", "Refresh token has been revoked"}},
	{common.ErrUserNotFound, Problem{http.StatusUnauthorized, "user_not_found", "User not found"}},
	{common.ErrTokenExpired, Problem{http.StatusUnauthorized, "token_expired", "Token expired"}},
	{common.ErrInvalidToken, Problem{http.StatusForbidden, "invalid_token", "Invalid token"}},
	{common.ErrInsufficientPrivilege, Problem{http.StatusForbidden, "insufficient_privilege", "Admin access required"}},
	{common.ErrorNotFound, Problem{http.StatusNotFound, "not_found", "Not Found"}},
	{common.ErrorAlreadyExists, Problem{http.StatusConflict, "already_exists", "Resource already exists"}},
	{common.ErrVersionConflict, Problem{http.StatusConflict, "version_conflict", "Resource was modified concurrently"}},
}

var internalProblem = Problem{http.StatusInternalServerError, "internal_error", "Internal server error"}

// ProblemFor maps err to a status, code and client-safe message. Validation
// errors keep their own message; unknown errors become a 500 that reveals
// nothing.
func ProblemFor(err error) Problem {
	var ve *common.ValidationError
	if errors.As(err, &ve) {
		return Problem{http.StatusBadRequest, "validation_error", ve.Error()}
	}
	if errors.Is(err, common.ErrorValidation) {
		return Problem{http.StatusBadRequest, "validation_error", "Validation failed"}
	}
	for _, e := range problems {
		if errors.Is(err, e.err) {
			return e.p
		}
	}
	return internalProblem
}

// WriteProblem writes the rendering of err and returns it.
func WriteProblem(w http.ResponseWriter, err error) Problem {
	p := ProblemFor(err)
	WriteError(w, p.Status, p.Code, p.Message)
	return p
}
