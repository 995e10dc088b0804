package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/authcrud/internal/server/httpx"
	"github.com/dmitrijs2005/authcrud/internal/server/models"
	"github.com/dmitrijs2005/authcrud/internal/server/repositories/content"
	"github.com/dmitrijs2005/authcrud/internal/server/services"
	"github.com/gorilla/mux"
)

type contentTypeRequest struct {
	Name             *string `json:"name"`
	Description      *string `json:"description"`
	DefaultTemplate  *string `json:"defaultTemplate"`
	SupportsComments *bool   `json:"supportsComments"`
	SupportsSticky   *bool   `json:"supportsSticky"`
}

func (req contentTypeRequest) input() services.ContentTypeInput {
	return services.ContentTypeInput{
		Name:             req.Name,
		Description:      req.Description,
		DefaultTemplate:  req.DefaultTemplate,
		SupportsComments: req.SupportsComments,
		SupportsSticky:   req.SupportsSticky,
	}
}

type contentItemRequest struct {
	Title          *string                `json:"title"`
	Slug           *string                `json:"slug"`
	Status         *models.ContentStatus  `json:"status"`
	PublishedAt    *time.Time             `json:"publishedAt"`
	ContentType    *string                `json:"contentType"`
	Visibility     *models.Visibility     `json:"visibility"`
	SortOrder      *int                   `json:"sortOrder"`
	Content        *string                `json:"content"`
	Excerpt        *string                `json:"excerpt"`
	Categories     []string               `json:"categories"`
	Tags           []string               `json:"tags"`
	MediaRelations []models.MediaRelation `json:"mediaRelations"`
	Settings       map[string]any         `json:"settings"`
}

func (req contentItemRequest) input() services.ContentItemInput {
	return services.ContentItemInput{
		Title:          req.Title,
		Slug:           req.Slug,
		Status:         req.Status,
		PublishedAt:    req.PublishedAt,
		ContentTypeID:  req.ContentType,
		Visibility:     req.Visibility,
		SortOrder:      req.SortOrder,
		Content:        req.Content,
		Excerpt:        req.Excerpt,
		Categories:     req.Categories,
		Tags:           req.Tags,
		MediaRelations: req.MediaRelations,
		Settings:       req.Settings,
	}
}

type addMediaRequest struct {
	MediaID          string                  `json:"mediaId"`
	RelationshipType models.RelationshipType `json:"relationshipType"`
	SortOrder        int                     `json:"sortOrder"`
}

// registerContent mounts content types and items. The fixed paths under
// /content are registered before /content/{id}.
func (a *api) registerContent(r *mux.Router) {
	types := r.PathPrefix("/types").Subrouter()
	collection(types, http.HandlerFunc(a.createType), http.MethodPost)
	collection(types, http.HandlerFunc(a.listTypes), http.MethodGet)
	types.HandleFunc("/{id}", a.getType).Methods(http.MethodGet)
	types.HandleFunc("/{id}", a.updateType).Methods(http.MethodPut)
	types.HandleFunc("/{id}", a.deleteType).Methods(http.MethodDelete)

	items := r.PathPrefix("/content").Subrouter()
	items.HandleFunc("/type/{typeName}", a.itemsByType).Methods(http.MethodGet)
	items.HandleFunc("/published", a.publishedItems).Methods(http.MethodGet)
	collection(items, http.HandlerFunc(a.createItem), http.MethodPost)
	collection(items, http.HandlerFunc(a.listItems), http.MethodGet)
	items.HandleFunc("/{id}", a.getItem).Methods(http.MethodGet)
	items.HandleFunc("/{id}", a.updateItem).Methods(http.MethodPut)
	items.HandleFunc("/{id}", a.deleteItem).Methods(http.MethodDelete)
	items.HandleFunc("/{id}/media", a.addItemMedia).Methods(http.MethodPost)
	items.HandleFunc("/{id}/media/{mediaId}", a.removeItemMedia).Methods(http.MethodDelete)
	items.HandleFunc("/{id}/settings", a.updateItemSettings).Methods(http.MethodPut)
}

func (a *api) createType(w http.ResponseWriter, r *http.Request) {
	var req contentTypeRequest
	if !a.decode(w, r, &req) {
		return
	}
	t, err := a.Content.CreateType(r.Context(), req.input())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, t)
}

func (a *api) listTypes(w http.ResponseWriter, r *http.Request) {
	limit, skip, err := pagination(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	list, err := a.Content.ListTypes(r.Context(), limit, skip)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (a *api) getType(w http.ResponseWriter, r *http.Request) {
	t, err := a.Content.GetType(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}

func (a *api) updateType(w http.ResponseWriter, r *http.Request) {
	var req contentTypeRequest
	if !a.decode(w, r, &req) {
		return
	}
	t, err := a.Content.UpdateType(r.Context(), mux.Vars(r)["id"], req.input())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}

func (a *api) deleteType(w http.ResponseWriter, r *http.Request) {
	if err := a.Content.DeleteType(r.Context(), mux.Vars(r)["id"]); err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, deletedMessage)
}

// createItem records the caller as author.
func (a *api) createItem(w http.ResponseWriter, r *http.Request) {
	var req contentItemRequest
	if !a.decode(w, r, &req) {
		return
	}
	item, err := a.Content.CreateItem(r.Context(), principal(r).UserID, req.input())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, item)
}

func (a *api) listItems(w http.ResponseWriter, r *http.Request) {
	limit, skip, err := pagination(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	list, err := a.Content.ListItems(r.Context(), limit, skip)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (a *api) getItem(w http.ResponseWriter, r *http.Request) {
	item, err := a.Content.GetItem(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

func (a *api) updateItem(w http.ResponseWriter, r *http.Request) {
	var req contentItemRequest
	if !a.decode(w, r, &req) {
		return
	}
	item, err := a.Content.UpdateItem(r.Context(), mux.Vars(r)["id"], req.input())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

func (a *api) deleteItem(w http.ResponseWriter, r *http.Request) {
	if err := a.Content.DeleteItem(r.Context(), mux.Vars(r)["id"]); err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, deletedMessage)
}

func (a *api) itemsByType(w http.ResponseWriter, r *http.Request) {
	list, err := a.Content.ByTypeName(r.Context(), mux.Vars(r)["typeName"])
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (a *api) publishedItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := a.Content.Published(r.Context(), content.PublishedFilter{
		Tag:      q.Get("tag"),
		Category: q.Get("category"),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (a *api) addItemMedia(w http.ResponseWriter, r *http.Request) {
	var req addMediaRequest
	if !a.decode(w, r, &req) {
		return
	}
	item, err := a.Content.AddMedia(r.Context(), mux.Vars(r)["id"], req.MediaID, req.RelationshipType, req.SortOrder)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

func (a *api) removeItemMedia(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rt := models.RelationshipType(r.URL.Query().Get("relationshipType"))
	item, err := a.Content.RemoveMedia(r.Context(), vars["id"], vars["mediaId"], rt)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

// updateItemSettings takes the settings object itself as the body.
func (a *api) updateItemSettings(w http.ResponseWriter, r *http.Request) {
	settings := map[string]any{}
	if !a.decode(w, r, &settings) {
		return
	}
	item, err := a.Content.UpdateSettings(r.Context(), mux.Vars(r)["id"], settings)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, item)
}

type mediaUploadRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
}

func (a *api) registerMedia(r *mux.Router) {
	collection(r, http.HandlerFunc(a.createMedia), http.MethodPost)
	r.HandleFunc("/{id}", a.getMedia).Methods(http.MethodGet)
	r.HandleFunc("/{id}", a.deleteMedia).Methods(http.MethodDelete)
}

// createMedia registers the file and hands back a presigned upload URL.
func (a *api) createMedia(w http.ResponseWriter, r *http.Request) {
	var req mediaUploadRequest
	if !a.decode(w, r, &req) {
		return
	}
	up, err := a.Media.CreateUpload(r.Context(), principal(r).UserID, req.FileName, req.ContentType)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, up)
}

func (a *api) getMedia(w http.ResponseWriter, r *http.Request) {
	d, err := a.Media.Download(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, d)
}

func (a *api) deleteMedia(w http.ResponseWriter, r *http.Request) {
	if err := a.Media.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		a.fail(w, r, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, deletedMessage)
}
