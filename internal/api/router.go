// Package api assembles the HTTP surface of the ordering backend.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"little-lemon/internal/apperror"
	"little-lemon/internal/auth"
	"little-lemon/internal/logger"
	"little-lemon/internal/services/cart"
	"little-lemon/internal/services/menu"
	"little-lemon/internal/services/order"
	"little-lemon/internal/store"
	"little-lemon/internal/web"
)

// Deps are the collaborators the router wires into the services
type Deps struct {
	Store          store.Store
	Publisher      order.EventPublisher
	Logger         *logger.Logger
	RequestTimeout time.Duration
}

// NewRouter builds the routes for /health and /api
func NewRouter(deps Deps) http.Handler {
	log := deps.Logger
	resp := web.NewResponder(log)

	r := mux.NewRouter()
	r.Use(web.RequestID, web.Recover(log), web.Logging(log))
	r.NotFoundHandler = web.RequestID(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		resp.Error(w, req, apperror.NotFound("Not found."))
	}))
	r.MethodNotAllowedHandler = web.RequestID(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		resp.JSON(w, req, http.StatusMethodNotAllowed, web.ErrorResponse{
			Error:     "Method not allowed",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			RequestID: logger.RequestID(req.Context()),
		})
	}))

	r.HandleFunc("/health", healthCheck(deps.Store, resp)).Methods(http.MethodGet)

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(web.Timeout(deps.RequestTimeout), auth.NewAuthenticator(deps.Store).Middleware(resp.Error))

	menu.NewHandler(menu.NewService(deps.Store, log.With("menu")), log).Register(apiRouter)
	cart.NewHandler(cart.NewService(deps.Store, log.With("cart")), log).Register(apiRouter)
	order.NewHandler(order.NewService(deps.Store, deps.Publisher, log.With("order")), log).Register(apiRouter)

	return r
}

// healthCheck handles GET /health
func healthCheck(st store.Store, resp *web.Responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status, code := "ok", http.StatusOK
		if err := st.Ping(ctx); err != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
		resp.JSON(w, r, code, map[string]interface{}{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"service":   "api-service",
		})
	}
}
