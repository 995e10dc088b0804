// Package httpapi exposes the session, CRUD and CMS services over HTTP.
// It is the only layer that turns errors into status codes.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/authcrud/internal/logging"
	"github.com/dmitrijs2005/authcrud/internal/server/httpx"
	"github.com/dmitrijs2005/authcrud/internal/server/middleware"
	"github.com/dmitrijs2005/authcrud/internal/server/models"
	"github.com/dmitrijs2005/authcrud/internal/server/repositories/content"
	"github.com/dmitrijs2005/authcrud/internal/server/services"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type SessionManager interface {
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*services.RefreshResult, error)
	Logout(ctx context.Context, refreshToken string) error
}

type UserCRUD interface {
	Create(ctx context.Context, in services.UserInput) (*models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, limit, skip int) ([]*models.User, error)
	Update(ctx context.Context, id string, in services.UserInput) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

type PersonCRUD interface {
	Create(ctx context.Context, p *models.Person) (*models.Person, error)
	Get(ctx context.Context, id string) (*models.Person, error)
	List(ctx context.Context, limit, skip int) ([]*models.Person, error)
	Update(ctx context.Context, id string, p *models.Person) (*models.Person, error)
	Delete(ctx context.Context, id string) error
}

type ContentManager interface {
	CreateType(ctx context.Context, in services.ContentTypeInput) (*models.ContentType, error)
	GetType(ctx context.Context, id string) (*models.ContentType, error)
	ListTypes(ctx context.Context, limit, skip int) ([]*models.ContentType, error)
	UpdateType(ctx context.Context, id string, in services.ContentTypeInput) (*models.ContentType, error)
	DeleteType(ctx context.Context, id string) error

	CreateItem(ctx context.Context, authorID string, in services.ContentItemInput) (*models.ContentItem, error)
	GetItem(ctx context.Context, id string) (*models.ContentItem, error)
	ListItems(ctx context.Context, limit, skip int) ([]*models.ContentItem, error)
	UpdateItem(ctx context.Context, id string, in services.ContentItemInput) (*models.ContentItem, error)
	DeleteItem(ctx context.Context, id string) error

	ByTypeName(ctx context.Context, name string) ([]*models.ContentItem, error)
	Published(ctx context.Context, f content.PublishedFilter) ([]*models.ContentItem, error)
	AddMedia(ctx context.Context, id, mediaID string, rt models.RelationshipType, sortOrder int) (*models.ContentItem, error)
	RemoveMedia(ctx context.Context, id, mediaID string, rt models.RelationshipType) (*models.ContentItem, error)
	UpdateSettings(ctx context.Context, id string, settings map[string]any) (*models.ContentItem, error)
}

type MediaLibrary interface {
	CreateUpload(ctx context.Context, uploaderID, fileName, contentType string) (*services.MediaUpload, error)
	Download(ctx context.Context, id string) (*services.MediaDownload, error)
	Delete(ctx context.Context, id string) error
}

// Deps are the collaborators of the router. Content, Media, Metrics,
// Limiter and Ready are optional; their routes or middleware are skipped
// when nil.
type Deps struct {
	Log      logging.Logger
	Verifier middleware.AccessTokenVerifier
	Sessions SessionManager
	Users    UserCRUD
	Persons  PersonCRUD
	Content  ContentManager
	Media    MediaLibrary

	Metrics  *middleware.Metrics
	Gatherer prometheus.Gatherer
	Limiter  middleware.Limiter
	Ready    func(ctx context.Context) error

	CORSOrigins  []string
	MaxBodyBytes int64
}

type api struct {
	Deps
}

const readyTimeout = 2 * time.Second

// NewRouter builds the full handler: middleware chain plus routes.
func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = logging.Nop{}
	}
	if d.MaxBodyBytes <= 0 {
		d.MaxBodyBytes = httpx.DefaultMaxBodyBytes
	}
	a := &api{Deps: d}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	if d.Metrics != nil {
		r.Use(d.Metrics.Instrument)
	}

	r.HandleFunc("/healthz", a.healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.readyz).Methods(http.MethodGet)
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	r.HandleFunc("/login", a.login).Methods(http.MethodPost)
	r.HandleFunc("/refresh-token", a.refreshToken).Methods(http.MethodPost)
	r.HandleFunc("/logout", a.logout).Methods(http.MethodPost)

	gate := middleware.Authenticate(d.Verifier)
	r.Handle("/me", gate(http.HandlerFunc(a.me))).Methods(http.MethodGet)

	crud := r.PathPrefix("/crud").Subrouter()
	crud.Use(gate)
	a.registerUsers(crud.PathPrefix("/users").Subrouter())
	a.registerPersons(crud.PathPrefix("/persons").Subrouter())

	if d.Content != nil || d.Media != nil {
		cms := r.PathPrefix("/cms").Subrouter()
		cms.Use(gate)
		if d.Content != nil {
			a.registerContent(cms)
		}
		if d.Media != nil {
			a.registerMedia(cms.PathPrefix("/media").Subrouter())
		}
	}

	var h http.Handler = r
	if d.Limiter != nil {
		h = middleware.RateLimit(d.Limiter, d.Log)(h)
	}
	h = middleware.CORS(d.CORSOrigins)(h)
	h = middleware.SecurityHeaders(h)
	h = middleware.Logging(d.Log)(h)
	h = middleware.Recovery(d.Log)(h)
	h = middleware.RequestID(h)
	return h
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteError(w, http.StatusNotFound, "not_found", "Not Found")
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method Not Allowed")
}

func (a *api) healthz(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *api) readyz(w http.ResponseWriter, r *http.Request) {
	if a.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := a.Ready(ctx); err != nil {
			a.Log.Warn(r.Context(), "http.readyz.fail", "error", err)
			httpx.WriteError(w, http.StatusServiceUnavailable, "not_ready", "Service Unavailable")
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
