package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/authcrud/internal/common"
	"github.com/dmitrijs2005/authcrud/internal/server/httpx"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (a *api) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !a.decodeLax(w, r, &req) {
		return
	}

	res, err := a.Sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (a *api) refreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshTokenRequest
	if !a.decodeLax(w, r, &req) {
		return
	}

	res, err := a.Sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (a *api) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshTokenRequest
	if !a.decodeLax(w, r, &req) {
		return
	}

	if err := a.Sessions.Logout(r.Context(), req.RefreshToken); err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "Logged out successfully")
}

// me returns the caller's record. A valid token whose user was deleted is a
// 404, not an authentication failure.
func (a *api) me(w http.ResponseWriter, r *http.Request) {
	u, err := a.Users.Get(r.Context(), principal(r).UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "user_not_found", "User not found")
			return
		}
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}
