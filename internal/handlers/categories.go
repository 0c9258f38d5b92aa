package handlers

import (
	"net/http"

	"forumshop/internal/services"
	"forumshop/internal/validator"

	"github.com/go-chi/chi/v5"
)

// GetCategories returns one category with its items when ?id= is given,
// otherwise a page of categories.
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if err := validator.Query(query, "id", "page", "limit"); err != nil {
		respondError(w, r, err)
		return
	}
	id, err := validator.OptionalID(query, "id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if id != nil {
		h.writeCategory(w, r, *id)
		return
	}
	page, limit, err := validator.Page(query)
	if err != nil {
		respondError(w, r, err)
		return
	}
	list, err := h.categories.ListCategories(r.Context(), page, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pageView(list, categoryView))
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	h.writeCategory(w, r, id)
}

func (h *Handler) writeCategory(w http.ResponseWriter, r *http.Request, id int64) {
	detail, err := h.categories.GetCategory(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, categoryDetailView(detail))
}

func (h *Handler) AddCategory(w http.ResponseWriter, r *http.Request) {
	body, err := readPayload(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	req := services.AddCategoryRequest{}
	if req.ActorID, err = actorID(r, body); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Name, err = textField(body, "name", validator.Name); err != nil {
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
	category, err := h.categories.AddCategory(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, categoryView(category))
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
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
	req := services.UpdateCategoryRequest{ID: id}
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
	category, err := h.categories.UpdateCategory(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, categoryView(category))
}

// DeleteCategory soft-deletes the category and every item left without a
// category by it.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, actor, err := deleteParams(w, r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	deletion, err := h.categories.DeleteCategory(r.Context(), id, actor)
	if err != nil {
		respondError(w, r, err)
		return
	}
	cascaded := deletion.CascadedItems
	if cascaded == nil {
		cascaded = []int64{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message":        "Category deleted",
		"category":       categoryView(deletion.Category),
		"cascaded_items": cascaded,
	})
}

func pathID(r *http.Request) (int64, error) {
	return validator.ID("id", validator.NewValue(chi.URLParam(r, "id")))
}

// deleteParams reads the path id and the acting user from the query string
// or an optional JSON body.
func deleteParams(w http.ResponseWriter, r *http.Request) (int64, int64, error) {
	id, err := pathID(r)
	if err != nil {
		return 0, 0, err
	}
	if err := validator.Query(r.URL.Query(), "user_id"); err != nil {
		return 0, 0, err
	}
	var body *payload
	if r.URL.Query().Get("user_id") == "" && r.ContentLength != 0 {
		if body, err = readPayload(w, r); err != nil {
			return 0, 0, err
		}
	}
	actor, err := actorID(r, body)
	if err != nil {
		return 0, 0, err
	}
	return id, actor, nil
}

func textField(body *payload, name string, check func(string) (string, error)) (string, error) {
	v, err := body.value(name)
	if err != nil {
		return "", err
	}
	return check(v.String())
}

func boolField(body *payload, name string, fallback bool) (bool, error) {
	v, err := body.value(name)
	if err != nil {
		return false, err
	}
	return validator.Bool(name, v, fallback)
}

// imageField uploads a multipart image file, or falls back to an image URL
// sent as a plain field.
func (h *Handler) imageField(r *http.Request, body *payload, required bool) (string, error) {
	file, ok, err := body.file("image")
	if err != nil {
		return "", validator.InvalidFormat("image", "a readable file")
	}
	if ok {
		defer file.Close()
		return h.uploader.Upload(r.Context(), file)
	}
	v, err := body.value("image")
	if err != nil {
		return "", err
	}
	if v.Missing() {
		if required {
			return "", validator.MissingField("image")
		}
		return "", nil
	}
	return v.String(), nil
}
