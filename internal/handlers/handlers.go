package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"forumshop/internal/apperr"
	"forumshop/internal/config"
	"forumshop/internal/logger"
	"forumshop/internal/middleware"
	"forumshop/internal/websocket"
)

type Handler struct {
	cfg        config.Config
	categories CategoryService
	items      ItemService
	users      UserService
	purchases  PurchaseService
	inventory  InventoryService
	audit      AuditStore
	uploader   Uploader
	ping       Pinger
	verifier   *middleware.KeyVerifier
	hub        *websocket.Hub
}

type Deps struct {
	Categories CategoryService
	Items      ItemService
	Users      UserService
	Purchases  PurchaseService
	Inventory  InventoryService
	Audit      AuditStore
	Uploader   Uploader
	Ping       Pinger
	Hub        *websocket.Hub
}

func New(cfg config.Config, deps Deps) *Handler {
	return &Handler{
		cfg:        cfg,
		categories: deps.Categories,
		items:      deps.Items,
		users:      deps.Users,
		purchases:  deps.Purchases,
		inventory:  deps.Inventory,
		audit:      deps.Audit,
		uploader:   deps.Uploader,
		ping:       deps.Ping,
		verifier:   middleware.NewKeyVerifier(cfg.APIKey, cfg.APIKeyHash),
		hub:        deps.Hub,
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError maps err to its status. Internal failures are logged and
// answered with a generic message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal || kind == apperr.KindUpstream {
		logger.FromContext(r.Context()).Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
	}
	respondJSON(w, kind.Status(), map[string]string{"error": apperr.PublicMessage(err)})
}
