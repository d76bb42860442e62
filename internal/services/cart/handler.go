package cart

import (
	"net/http"

	"github.com/gorilla/mux"

	"little-lemon/internal/apperror"
	"little-lemon/internal/auth"
	"little-lemon/internal/logger"
	"little-lemon/internal/models"
	"little-lemon/internal/web"
)

// ClearResponse is returned after the cart is emptied
type ClearResponse struct {
	Deleted int64 `json:"deleted"`
}

// Handler handles HTTP requests for the cart service
type Handler struct {
	service *Service
	resp    *web.Responder
}

// NewHandler creates a new cart handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		resp:    web.NewResponder(log),
	}
}

// Register mounts the cart routes on r
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/cart/menu-items", h.List).Methods(http.MethodGet)
	r.HandleFunc("/cart/menu-items", h.Add).Methods(http.MethodPost)
	r.HandleFunc("/cart/menu-items", h.Clear).Methods(http.MethodDelete)
}

// List handles GET /cart/menu-items
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.resp.Error(w, r, apperror.Unauthorized())
		return
	}
	lines, err := h.service.List(r.Context(), p)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, r, http.StatusOK, lines)
}

// Add handles POST /cart/menu-items
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.resp.Error(w, r, apperror.Unauthorized())
		return
	}
	if !auth.IsCustomer(p) {
		h.resp.Error(w, r, apperror.Forbidden())
		return
	}

	var req models.AddToCartRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}

	line, err := h.service.Add(r.Context(), p, req)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, r, http.StatusCreated, line)
}

// Clear handles DELETE /cart/menu-items
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.resp.Error(w, r, apperror.Unauthorized())
		return
	}
	n, err := h.service.Clear(r.Context(), p)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, r, http.StatusOK, ClearResponse{Deleted: n})
}
