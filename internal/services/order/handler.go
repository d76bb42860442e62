package order

import (
	"net/http"

	"github.com/gorilla/mux"

	"little-lemon/internal/apperror"
	"little-lemon/internal/auth"
	"little-lemon/internal/logger"
	"little-lemon/internal/models"
	"little-lemon/internal/web"
)

// Handler handles HTTP requests for the order service
type Handler struct {
	service *Service
	resp    *web.Responder
}

// NewHandler creates a new order handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		resp:    web.NewResponder(log),
	}
}

// Register mounts the order routes on r
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/orders", h.ListOrders).Methods(http.MethodGet)
	r.HandleFunc("/orders", h.CreateOrder).Methods(http.MethodPost)
	r.HandleFunc("/orders/{id:[0-9]+}", h.ListOrderItems).Methods(http.MethodGet)
	r.HandleFunc("/orders/{id:[0-9]+}", h.ReplaceOrder).Methods(http.MethodPut)
	r.HandleFunc("/orders/{id:[0-9]+}", h.PatchOrder).Methods(http.MethodPatch)
	r.HandleFunc("/orders/{id:[0-9]+}", h.DeleteOrder).Methods(http.MethodDelete)
	r.HandleFunc("/orders/{id:[0-9]+}/delivery-agent", h.AssignDeliveryAgent).Methods(http.MethodPost)
	r.HandleFunc("/orders/{id:[0-9]+}/items/{itemId:[0-9]+}", h.DeleteOrderItem).Methods(http.MethodDelete)
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		h.resp.Error(w, r, apperror.Unauthorized())
	}
	return p, ok
}

// ListOrders handles GET /orders
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	orders, err := h.service.ListOrders(r.Context(), p)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, r, http.StatusOK, orders)
}

// CreateOrder handles POST /orders
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	order, err := h.service.CreateOrder(r.Context(), p)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, r, http.StatusCreated, order)
}

// ListOrderItems handles GET /orders/{id}. An empty result for a caller with
// no order role is reported as forbidden.
func (h *Handler) ListOrderItems(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, err := web.PathID(r, "id")
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}

	items, err := h.service.ListOrderItems(r.Context(), p, id)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	if _, hasRole := auth.OrderView(p); len(items) == 0 && !hasRole {
		h.resp.Error(w, r, apperror.Forbidden())
		return
	}
	h.resp.JSON(w, r, http.StatusOK, items)
}

// ReplaceOrder handles PUT /orders/{id}
func (h *Handler) ReplaceOrder(w http.ResponseWriter, r *http.Request) {
	h.updateOrder(w, r, true)
}

// PatchOrder handles PATCH /orders/{id}
func (h *Handler) PatchOrder(w http.ResponseWriter, r *http.Request) {
	h.updateOrder(w, r, false)
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request, replace bool) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	// Rejected before the body is read
	if role, ok := auth.OrderView(p); !ok || role == models.RoleCustomer {
		h.resp.Error(w, r, apperror.Forbidden())
		return
	}
	id, err := web.PathID(r, "id")
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}

	var patch models.OrderPatch
	if err := web.DecodeJSON(r, &patch); err != nil {
		h.resp.Error(w, r, err)
		return
	}

	order, err := h.service.UpdateOrder(r.Context(), p, id, patch, replace)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, r, http.StatusOK, order)
}

// DeleteOrder handles DELETE /orders/{id}
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	id, err := web.PathID(r, "id")
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	if err := h.service.DeleteOrder(r.Context(), p, id); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AssignDeliveryAgent handles POST /orders/{id}/delivery-agent
func (h *Handler) AssignDeliveryAgent(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	if !auth.CanAssignDelivery(p) {
		h.resp.Error(w, r, apperror.Forbidden())
		return
	}
	id, err := web.PathID(r, "id")
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}

	var req models.AssignAgentRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		h.resp.Error(w, r, err)
		return
	}

	confirmation, err := h.service.AssignDeliveryAgent(r.Context(), p, id, req.AgentID)
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	h.resp.JSON(w, r, http.StatusOK, confirmation)
}

// DeleteOrderItem handles DELETE /orders/{id}/items/{itemId}
func (h *Handler) DeleteOrderItem(w http.ResponseWriter, r *http.Request) {
	p, ok := h.principal(w, r)
	if !ok {
		return
	}
	orderID, err := web.PathID(r, "id")
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	itemID, err := web.PathID(r, "itemId")
	if err != nil {
		h.resp.Error(w, r, err)
		return
	}
	if err := h.service.DeleteOrderItem(r.Context(), p, orderID, itemID); err != nil {
		h.resp.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
