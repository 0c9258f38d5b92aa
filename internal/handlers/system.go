package handlers

import (
	"log/slog"
	"net/http"

	"forumshop/internal/logger"
	"forumshop/internal/middleware"
	"forumshop/internal/validator"
	"forumshop/internal/websocket"
)

// KeepAlive pings the database so the pool and the host stay warm.
func (h *Handler) KeepAlive(w http.ResponseWriter, r *http.Request) {
	if err := h.ping(r.Context()); err != nil {
		logger.FromContext(r.Context()).Error("database ping failed", slog.Any("error", err))
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Database unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// WSInventory upgrades to a websocket streaming credit and inventory
// changes of ?user_id=.
func (h *Handler) WSInventory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if err := validator.Query(query, "user_id", middleware.APIKeyQuery); err != nil {
		respondError(w, r, err)
		return
	}
	userID, err := validator.ID("user_id", validator.NewValue(query.Get("user_id")))
	if err != nil {
		respondError(w, r, err)
		return
	}
	websocket.ServeWS(w, r, h.hub, userID)
}
