package handlers

import (
	"net/http"

	"forumshop/internal/services"
	"forumshop/internal/validator"
)

type stockInput struct {
	ItemID   validator.Value `json:"item_id"`
	Quantity validator.Value `json:"quantity"`
}

type reconcileInput struct {
	UserID    validator.Value `json:"user_id"`
	Inventory []stockInput    `json:"inventory"`
	Bag       []stockInput    `json:"bag"`
}

// GetInventory returns the user's credits, inventory and bag. Unknown users
// are registered with the starting balance.
func (h *Handler) GetInventory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if err := validator.Query(query, "user_id"); err != nil {
		respondError(w, r, err)
		return
	}
	userID, err := validator.ID("user_id", validator.NewValue(query.Get("user_id")))
	if err != nil {
		respondError(w, r, err)
		return
	}
	inventory, err := h.users.GetInventory(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, inventoryView(inventory))
}

// UpdateInventory replaces the user's whole inventory and bag.
func (h *Handler) UpdateInventory(w http.ResponseWriter, r *http.Request) {
	var in reconcileInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	req, err := in.request()
	if err != nil {
		respondError(w, r, err)
		return
	}
	result, err := h.inventory.Reconcile(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Inventory updated",
		"user_id": result.UserID,
		"items":   result.Items,
	})
}

func (in reconcileInput) request() (services.ReconcileRequest, error) {
	userID, err := validator.ID("user_id", in.UserID)
	if err != nil {
		return services.ReconcileRequest{}, err
	}
	inventory, err := stockLines("inventory", in.Inventory)
	if err != nil {
		return services.ReconcileRequest{}, err
	}
	bag, err := stockLines("bag", in.Bag)
	if err != nil {
		return services.ReconcileRequest{}, err
	}
	return services.ReconcileRequest{UserID: userID, Inventory: inventory, Bag: bag}, nil
}

// stockLines keeps a nil input nil so an absent array still reads as missing.
func stockLines(field string, in []stockInput) ([]services.StockLine, error) {
	if in == nil {
		return nil, nil
	}
	lines := make([]services.StockLine, 0, len(in))
	for i, entry := range in {
		itemID, err := validator.ID(validator.Index(field, i, "item_id"), entry.ItemID)
		if err != nil {
			return nil, err
		}
		quantity, err := validator.Quantity(validator.Index(field, i, "quantity"), entry.Quantity)
		if err != nil {
			return nil, err
		}
		lines = append(lines, services.StockLine{ItemID: itemID, Quantity: quantity})
	}
	return lines, nil
}

// GetInventories returns full inventories for ?user_ids=1,2,3.
func (h *Handler) GetInventories(w http.ResponseWriter, r *http.Request) {
	ids, err := userIDs(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	inventories, err := h.users.GetInventories(r.Context(), ids)
	if err != nil {
		respondError(w, r, err)
		return
	}
	views := make([]map[string]any, 0, len(inventories))
	for _, inventory := range inventories {
		views = append(views, inventoryView(inventory))
	}
	respondJSON(w, http.StatusOK, views)
}

// GetBags returns only the bag contents for ?user_ids=1,2,3.
func (h *Handler) GetBags(w http.ResponseWriter, r *http.Request) {
	ids, err := userIDs(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	bags, err := h.users.GetBags(r.Context(), ids)
	if err != nil {
		respondError(w, r, err)
		return
	}
	views := make([]map[string]any, 0, len(bags))
	for _, bag := range bags {
		views = append(views, bagView(bag))
	}
	respondJSON(w, http.StatusOK, views)
}

func userIDs(r *http.Request) ([]int64, error) {
	query := r.URL.Query()
	if err := validator.Query(query, "user_ids"); err != nil {
		return nil, err
	}
	return validator.IDList("user_ids", query.Get("user_ids"))
}
