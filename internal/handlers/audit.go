package handlers

import (
	"net/http"

	"forumshop/internal/apperr"
	"forumshop/internal/models"
	"forumshop/internal/services"
	"forumshop/internal/store"
	"forumshop/internal/validator"

	"github.com/go-chi/chi/v5"
)

// AuditHistory lists the audit rows of one category, item, user or
// purchase, newest first.
func (h *Handler) AuditHistory(w http.ResponseWriter, r *http.Request) {
	target, ok := store.LookupAuditTarget(chi.URLParam(r, "entity"))
	if !ok {
		respondError(w, r, apperr.ErrNotFound.WithMessage("Unknown audit entity"))
		return
	}
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	query := r.URL.Query()
	if err := validator.Query(query, "page", "limit"); err != nil {
		respondError(w, r, err)
		return
	}
	page, limit, err := validator.Page(query)
	if err != nil {
		respondError(w, r, err)
		return
	}
	total, err := h.audit.CountByEntity(r.Context(), target, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	pagination := services.NewPagination(total, page, limit)
	records, err := h.audit.ListByEntity(r.Context(), target, id, limit, pagination.Offset())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pageView(services.Page[models.AuditRecord]{
		Items:      records,
		Pagination: pagination,
	}, auditView))
}
