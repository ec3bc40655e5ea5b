package api

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/erazemk/soseska/internal/imaging"
	"github.com/erazemk/soseska/internal/lending"
	"github.com/erazemk/soseska/internal/metrics"
	"github.com/erazemk/soseska/internal/model"
	"github.com/erazemk/soseska/internal/store"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// ResourcesHandler handles lendable resources and their lifecycle.
type ResourcesHandler struct {
	DB      *sql.DB
	Lending *lending.Manager
}

type createResourceRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

type resourceList struct {
	Resources  []model.Resource `json:"resources"`
	Pagination pagination       `json:"pagination"`
}

// resourceView is a resource with the operations the caller may perform on it.
type resourceView struct {
	*model.Resource
	Actions []lending.Operation `json:"actions"`
}

func view(u *model.User, r *model.Resource) resourceView {
	actions := lending.Allowed(actor(u), r)
	if actions == nil {
		actions = []lending.Operation{}
	}
	return resourceView{Resource: r, Actions: actions}
}

// Create handles POST /api/resources.
func (h *ResourcesHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())
	if user.ApartmentID == nil {
		jsonError(w, http.StatusForbidden, "you must belong to an apartment to share resources")
		return
	}

	var req createResourceRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	draft, err := lending.NewDraft(req.Title, req.Description, req.Category)
	if err != nil {
		lendingError(w, r, err)
		return
	}

	res, err := store.CreateResource(r.Context(), h.DB, draft.Title, draft.Description, draft.Category,
		*user.ApartmentID, user.ID)
	if err != nil {
		internalError(w, r, "creating resource", err)
		return
	}
	jsonResponse(w, http.StatusCreated, view(user, res))
}

// List handles GET /api/resources. Residents see their own apartment; a
// super admin may pick one with ?apartment=.
func (h *ResourcesHandler) List(w http.ResponseWriter, r *http.Request) {
	user := CurrentUser(r.Context())
	q := r.URL.Query()

	filter := store.ResourceFilter{
		Status:   strings.ToLower(strings.TrimSpace(q.Get("status"))),
		Category: strings.ToLower(strings.TrimSpace(q.Get("category"))),
	}
	if filter.Status != "" && !model.ValidResourceStatus(filter.Status) {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}
	if filter.Category != "" && !model.ValidCategory(filter.Category) {
		jsonError(w, http.StatusBadRequest, "invalid category")
		return
	}

	switch {
	case user.Role == model.RoleSuperAdmin:
		if v := q.Get("apartment"); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil || id <= 0 {
				jsonError(w, http.StatusBadRequest, "invalid apartment id")
				return
			}
			filter.ApartmentID = id
		}
	case user.ApartmentID != nil:
		filter.ApartmentID = *user.ApartmentID
	default:
		jsonResponse(w, http.StatusOK, resourceList{Resources: []model.Resource{}, Pagination: pagination{Page: 1, Limit: defaultPageSize}})
		return
	}

	page, err := queryInt(r, "page", 1)
	if err != nil || page < 1 {
		jsonError(w, http.StatusBadRequest, "invalid page")
		return
	}
	limit, err := queryInt(r, "limit", defaultPageSize)
	if err != nil || limit < 1 {
		jsonError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	limit = min(limit, maxPageSize)
	filter.Limit = uint(limit)
	filter.Offset = uint((page - 1) * limit)

	resources, total, err := store.ListResources(r.Context(), h.DB, filter)
	if err != nil {
		internalError(w, r, "listing resources", err)
		return
	}
	if resources == nil {
		resources = []model.Resource{}
	}

	jsonResponse(w, http.StatusOK, resourceList{
		Resources: resources,
		Pagination: pagination{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: (total + limit - 1) / limit,
		},
	})
}

// load fetches the resource named by the id path value. A resource outside
// the caller's apartment is reported as missing.
func (h *ResourcesHandler) load(w http.ResponseWriter, r *http.Request) (*model.Resource, bool) {
	id, ok := pathID(r, "id")
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid resource id")
		return nil, false
	}

	res, err := store.GetResource(r.Context(), h.DB, id)
	if err != nil {
		internalError(w, r, "loading resource", err)
		return nil, false
	}
	if res == nil || !canSeeApartment(CurrentUser(r.Context()), res.ApartmentID) {
		jsonError(w, http.StatusNotFound, "resource not found")
		return nil, false
	}
	return res, true
}

// Get handles GET /api/resources/{id}.
func (h *ResourcesHandler) Get(w http.ResponseWriter, r *http.Request) {
	res, ok := h.load(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, view(CurrentUser(r.Context()), res))
}

// transition returns the handler for PATCH /api/resources/{id}/<op>.
func (h *ResourcesHandler) transition(op lending.Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r.Context())

		id, ok := pathID(r, "id")
		if !ok {
			jsonError(w, http.StatusBadRequest, "invalid resource id")
			return
		}

		before, err := store.GetResource(r.Context(), h.DB, id)
		if err != nil {
			internalError(w, r, "loading resource", err)
			return
		}
		if before != nil && !canSeeApartment(user, before.ApartmentID) {
			metrics.LendingTransitions.WithLabelValues(string(op), "not_found").Inc()
			jsonError(w, http.StatusNotFound, "resource not found")
			return
		}

		res, err := h.Lending.Do(r.Context(), op, id, actor(user))
		metrics.LendingTransitions.WithLabelValues(string(op), lendingOutcome(err)).Inc()
		if err != nil {
			lendingError(w, r, err)
			return
		}

		h.notifyTransition(r, op, user, before, res)
		jsonResponse(w, http.StatusOK, view(user, res))
	}
}

// notifyTransition tells the other party about a completed transition.
func (h *ResourcesHandler) notifyTransition(r *http.Request, op lending.Operation, by *model.User, before, after *model.Resource) {
	var to int64
	var kind, text string

	switch op {
	case lending.OpRequest:
		to, kind = after.OwnerID, model.NotificationResourceRequested
		text = fmt.Sprintf("%s asked to borrow %q", by.Name, after.Title)
	case lending.OpApprove:
		to, kind = *after.BorrowerID, model.NotificationResourceApproved
		text = fmt.Sprintf("Your request for %q was approved", after.Title)
	case lending.OpDecline:
		// The decline cleared the borrower; the requester is in the prior state.
		if before == nil || before.BorrowerID == nil {
			return
		}
		to, kind = *before.BorrowerID, model.NotificationResourceDeclined
		text = fmt.Sprintf("Your request for %q was declined", after.Title)
	case lending.OpReturn:
		to, kind = after.OwnerID, model.NotificationResourceReturned
		text = fmt.Sprintf("%s returned %q", by.Name, after.Title)
	default:
		return
	}

	if to == by.ID {
		return
	}
	notify(r.Context(), h.DB, to, kind, text, &after.ID)
}

// UploadImage handles PUT /api/resources/{id}/image. Only the owner may set
// the photo.
func (h *ResourcesHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	res, ok := h.load(w, r)
	if !ok {
		return
	}
	if res.OwnerID != CurrentUser(r.Context()).ID {
		jsonError(w, http.StatusForbidden, "only the owner can change the photo")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadSize+1<<10)
	if err := r.ParseMultipartForm(imaging.MaxUploadSize); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	photo, err := imaging.ProcessPhoto(file)
	if errors.Is(err, imaging.ErrUnsupportedFormat) || errors.Is(err, imaging.ErrTooLarge) {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		internalError(w, r, "processing image", err)
		return
	}

	if err := store.SetResourceImage(r.Context(), h.DB, res.ID, photo.Data, photo.MIME); err != nil {
		internalError(w, r, "saving image", err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{"message": "image uploaded", "width": photo.Width, "height": photo.Height})
}

// GetImage handles GET /api/resources/{id}/image.
func (h *ResourcesHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	res, ok := h.load(w, r)
	if !ok {
		return
	}

	data, mime, err := store.GetResourceImage(r.Context(), h.DB, res.ID)
	if err != nil {
		internalError(w, r, "loading image", err)
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}
