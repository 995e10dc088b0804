package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/authcrud/internal/common"
	"github.com/dmitrijs2005/authcrud/internal/server/httpx"
	"github.com/dmitrijs2005/authcrud/internal/server/middleware"
	"github.com/dmitrijs2005/authcrud/internal/server/models"
	"github.com/dmitrijs2005/authcrud/internal/server/services"
	"github.com/gorilla/mux"
)

const deletedMessage = "Deleted successfully"

// collection registers both "/x" and "/x/" for h.
func collection(r *mux.Router, h http.Handler, methods ...string) {
	r.Handle("", h).Methods(methods...)
	r.Handle("/", h).Methods(methods...)
}

type userRequest struct {
	Name     *string      `json:"name"`
	Email    *string      `json:"email"`
	Password *string      `json:"password"`
	Phone    *string      `json:"phone"`
	Role     *models.Role `json:"role"`
	IsActive *bool        `json:"isActive"`
}

func (req userRequest) input() services.UserInput {
	return services.UserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Role:     req.Role,
		IsActive: req.IsActive,
	}
}

// registerUsers mounts user CRUD. Reads need any principal, writes need an
// admin.
func (a *api) registerUsers(r *mux.Router) {
	admin := middleware.RequireAdmin

	collection(r, admin(http.HandlerFunc(a.createUser)), http.MethodPost)
	collection(r, http.HandlerFunc(a.listUsers), http.MethodGet)
	r.HandleFunc("/{id}", a.getUser).Methods(http.MethodGet)
	r.Handle("/{id}", admin(http.HandlerFunc(a.updateUser))).Methods(http.MethodPut)
	r.Handle("/{id}", admin(http.HandlerFunc(a.deleteUser))).Methods(http.MethodDelete)
}

func (a *api) createUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !a.decode(w, r, &req) {
		return
	}
	if req.Name == nil || req.Email == nil || req.Password == nil {
		a.fail(w, r, common.NewValidationError("", "name, email and password are required"))
		return
	}

	u, err := a.Users.Create(r.Context(), req.input())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, u)
}

func (a *api) listUsers(w http.ResponseWriter, r *http.Request) {
	limit, skip, err := pagination(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	list, err := a.Users.List(r.Context(), limit, skip)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (a *api) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := a.Users.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}

func (a *api) updateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !a.decode(w, r, &req) {
		return
	}
	u, err := a.Users.Update(r.Context(), mux.Vars(r)["id"], req.input())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, u)
}

func (a *api) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := a.Users.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, deletedMessage)
}

type personRequest struct {
	FullName string `json:"full_name"`
	DOB      string `json:"dob"`
	Phone    string `json:"phone"`
	Photo    string `json:"photo"`
}

// person accepts the date of birth as YYYY-MM-DD or RFC 3339.
func (req personRequest) person() (*models.Person, error) {
	p := &models.Person{
		FullName: req.FullName,
		Phone:    req.Phone,
		Photo:    req.Photo,
	}
	dob := strings.TrimSpace(req.DOB)
	if dob == "" {
		return p, nil
	}
	t, err := time.Parse(time.DateOnly, dob)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, dob); err != nil {
			return nil, common.NewValidationError("dob", "must be a date (YYYY-MM-DD)")
		}
	}
	p.DOB = t
	return p, nil
}

func (a *api) registerPersons(r *mux.Router) {
	collection(r, http.HandlerFunc(a.createPerson), http.MethodPost)
	collection(r, http.HandlerFunc(a.listPersons), http.MethodGet)
	r.HandleFunc("/{id}", a.getPerson).Methods(http.MethodGet)
	r.HandleFunc("/{id}", a.updatePerson).Methods(http.MethodPut)
	r.HandleFunc("/{id}", a.deletePerson).Methods(http.MethodDelete)
}

func (a *api) createPerson(w http.ResponseWriter, r *http.Request) {
	var req personRequest
	if !a.decode(w, r, &req) {
		return
	}
	p, err := req.person()
	if err != nil {
		a.fail(w, r, err)
		return
	}
	created, err := a.Persons.Create(r.Context(), p)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, created)
}

func (a *api) listPersons(w http.ResponseWriter, r *http.Request) {
	limit, skip, err := pagination(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	list, err := a.Persons.List(r.Context(), limit, skip)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (a *api) getPerson(w http.ResponseWriter, r *http.Request) {
	p, err := a.Persons.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (a *api) updatePerson(w http.ResponseWriter, r *http.Request) {
	var req personRequest
	if !a.decode(w, r, &req) {
		return
	}
	p, err := req.person()
	if err != nil {
		a.fail(w, r, err)
		return
	}
	updated, err := a.Persons.Update(r.Context(), mux.Vars(r)["id"], p)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, updated)
}

func (a *api) deletePerson(w http.ResponseWriter, r *http.Request) {
	if err := a.Persons.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, deletedMessage)
}
