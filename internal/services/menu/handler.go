package menu

import (
	"net/http"

	"github.com/gorilla/mux"

	"little-lemon/internal/apperror"
	"little-lemon/internal/auth"
	"little-lemon/internal/logger"
	"little-lemon/internal/models"
	"little-lemon/internal/web"
)

// Handler handles HTTP requests for the menu service
type Handler struct {
	service *Service
	resp    *web.Responder
}

// NewHandler creates a new menu handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		resp:    web.NewResponder(log),
	}
}

// Register mounts the menu routes on r
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/menu-items", h.ListItems).Methods(http.MethodGet)
	r.HandleFunc("/menu-items", h.CreateItem).Methods(http.MethodPost)
	r.HandleFunc("/menu-items/{id:[0-9]+}", h.GetItem).Methods(http.MethodGet)
	r.HandleFunc("/menu-items/{id:[0-9]+}", h.UpdateItem).Methods(http.MethodPut, http.MethodPatch)
	r.HandleFunc("/menu-items/{id:[0-9]+}", h.DeleteItem).Methods(http.MethodDelete)
	r.HandleFunc("/categories", h.ListCategories).Methods(http.MethodGet)
	r.HandleFunc("/categories", h.CreateCategory).Methods(http.MethodPost)
	r.HandleFunc("/categories/{id:[0-9]+}", h.GetCategory).Methods(http.MethodGet)
	r.HandleFunc("/categories/{id:[0-9]+}", h.UpdateCategory).Methods(http.MethodPut, http.MethodPatch)
	r.HandleFunc("/categories/{id:[0-9]+}", h.DeleteCategory).Methods(http.MethodDelete)
}

func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListItems(r.Context())
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, r, http.StatusOK, items)
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := web.PathID(r, "id")
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, r, http.StatusOK, item)
}

func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	p, ok := h.manager(w, r)
	if !ok {
		return
	}
	var req models.MenuItemRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	item, err := h.service.CreateItem(r.Context(), p, req)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, r, http.StatusCreated, item)
}

// UpdateItem handles PUT (replace) and PATCH (merge)
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	p, ok := h.manager(w, r)
	if !ok {
		return
	}
	id, err := web.PathID(r, "id")
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	var req models.MenuItemRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	item, err := h.service.UpdateItem(r.Context(), p, id, req, r.Method == http.MethodPatch)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, r, http.StatusOK, item)
}

func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	p, ok := h.manager(w, r)
	if !ok {
		return
	}
	id, err := web.PathID(r, "id")
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	if err := h.service.DeleteItem(r.Context(), p, id); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, r, http.StatusOK, categories)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	p, ok := h.manager(w, r)
	if !ok {
		return
	}
	var req models.CategoryRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	c, err := h.service.CreateCategory(r.Context(), p, req)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, r, http.StatusCreated, c)
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := web.PathID(r, "id")
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	c, err := h.service.GetCategory(r.Context(), id)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, r, http.StatusOK, c)
}

// UpdateCategory handles PUT (replace) and PATCH (merge)
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	p, ok := h.manager(w, r)
	if !ok {
		return
	}
	id, err := web.PathID(r, "id")
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	var req models.CategoryRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	c, err := h.service.UpdateCategory(r.Context(), p, id, req, r.Method == http.MethodPatch)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, r, http.StatusOK, c)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	p, ok := h.manager(w, r)
	if !ok {
		return
	}
	id, err := web.PathID(r, "id")
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	if err := h.service.DeleteCategory(r.Context(), p, id); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// manager resolves the principal and rejects anyone who is not a manager
func (h *Handler) manager(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.resp.Error(w, r, apperror.Unauthorized())
		return models.Principal{}, false
	}
	if !auth.IsManager(p) {
		h.resp.Error(w, r, apperror.Forbidden())
		return models.Principal{}, false
	}
	return p, true
}
