package handlers

import (
	"net/http"

	"forumshop/internal/services"
	"forumshop/internal/validator"
)

// GetItems returns one item with its categories when ?id= is given,
// otherwise a page of items optionally filtered by category.
func (h *Handler) GetItems(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if err := validator.Query(query, "id", "category_id", "page", "limit"); err != nil {
		respondError(w, r, err)
		return
	}
	id, err := validator.OptionalID(query, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if id != nil {
		h.writeItem(w, r, *id)
		return
	}
	categoryID, err := validator.OptionalID(query, "category_id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	page, limit, err := validator.Page(query)
	if err != nil {
		respondError(w, r, err)
		return
	}
	list, err := h.items.ListItems(r.Context(), services.ItemQuery{
		CategoryID: categoryID,
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pageView(list, itemDetailView))
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.writeItem(w, r, id)
}

func (h *Handler) writeItem(w http.ResponseWriter, r *http.Request, id int64) {
	detail, err := h.items.GetItem(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, itemDetailView(detail))
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	body, err := readPayload(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	req := services.AddItemRequest{}
	if req.ActorID, err = actorID(r, body); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Name, err = textField(body, "name", validator.Name); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Description, err = textField(body, "description", validator.Description); err != nil {
		respondError(w, r, err)
		return
	}
	price, err := body.value("price")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if req.Price, err = validator.Amount("price", price); err != nil {
		respondError(w, r, err)
		return
	}
	categories, err := body.list("categories")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if req.CategoryIDs, err = idList("categories", categories); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Image, err = h.imageField(r, body, true); err != nil {
		respondError(w, r, err)
		return
	}
	if req.IsActive, err = boolField(body, "is_active", true); err != nil {
		respondError(w, r, err)
		return
	}
	item, err := h.items.AddItem(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, itemDetailView(item))
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	body, err := readPayload(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	req := services.UpdateItemRequest{ID: id}
	if req.ActorID, err = actorID(r, body); err != nil {
		respondError(w, r, err)
		return
	}
	if body.has("name") {
		name, err := textField(body, "name", validator.Name)
		if err != nil {
			respondError(w, r, err)
			return
		}
		req.Name = &name
	}
	if body.has("description") {
		description, err := textField(body, "description", validator.Description)
		if err != nil {
			respondError(w, r, err)
			return
		}
		req.Description = &description
	}
	if body.has("price") {
		v, err := body.value("price")
		if err != nil {
			respondError(w, r, err)
			return
		}
		price, err := validator.Amount("price", v)
		if err != nil {
			respondError(w, r, err)
			return
		}
		req.Price = &price
	}
	if body.has("categories") {
		categories, err := body.list("categories")
		if err != nil {
			respondError(w, r, err)
			return
		}
		if req.CategoryIDs, err = idList("categories", categories); err != nil {
			respondError(w, r, err)
			return
		}
	}
	if image, err := h.imageField(r, body, false); err != nil {
		respondError(w, r, err)
		return
	} else if image != "" {
		req.Image = &image
	}
	if body.has("is_active") {
		active, err := boolField(body, "is_active", false)
		if err != nil {
			respondError(w, r, err)
			return
		}
		req.IsActive = &active
	}
	item, err := h.items.UpdateItem(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, itemDetailView(item))
}

func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, actor, err := deleteParams(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	item, err := h.items.DeleteItem(r.Context(), id, actor)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Item deleted",
		"item":    itemView(item),
	})
}
