package handlers

import (
	"net/http"

	"forumshop/internal/money"
	"forumshop/internal/services"
	"forumshop/internal/validator"
)

type purchaseLineInput struct {
	ItemID   validator.Value `json:"item_id"`
	Quantity validator.Value `json:"quantity"`
	Price    validator.Value `json:"price"`
}

type purchaseInput struct {
	UserID validator.Value     `json:"user_id"`
	Items  []purchaseLineInput `json:"items"`
}

func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	var in purchaseInput
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	req, err := in.request()
	if err != nil {
		respondError(w, r, err)
		return
	}
	result, err := h.purchases.Purchase(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, purchaseView(result))
}

func (in purchaseInput) request() (services.PurchaseRequest, error) {
	userID, err := validator.ID("user_id", in.UserID)
	if err != nil {
		return services.PurchaseRequest{}, err
	}
	if err := validator.NonEmpty("items", len(in.Items)); err != nil {
		return services.PurchaseRequest{}, err
	}
	lines := make([]services.PurchaseLineRequest, 0, len(in.Items))
	for i, item := range in.Items {
		itemID, err := validator.ID(validator.Index("items", i, "item_id"), item.ItemID)
		if err != nil {
			return services.PurchaseRequest{}, err
		}
		quantity, err := validator.ID(validator.Index("items", i, "quantity"), item.Quantity)
		if err != nil {
			return services.PurchaseRequest{}, err
		}
		price, err := validator.Amount(validator.Index("items", i, "price"), item.Price)
		if err != nil {
			return services.PurchaseRequest{}, err
		}
		lines = append(lines, services.PurchaseLineRequest{ItemID: itemID, Quantity: quantity, Price: price})
	}
	return services.PurchaseRequest{UserID: userID, Items: lines}, nil
}

// UpdateCredits sets a user's balance to an absolute amount.
func (h *Handler) UpdateCredits(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UserID  validator.Value `json:"user_id"`
		Credits validator.Value `json:"credits"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, r, err)
		return
	}
	userID, err := validator.ID("user_id", in.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	credits, err := validator.Amount("credits", in.Credits)
	if err != nil {
		respondError(w, r, err)
		return
	}
	user, err := h.users.UpdateCredits(r.Context(), services.UpdateCreditsRequest{UserID: userID, Credits: credits})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id": user.UserID,
		"credits": money.Format(user.Credits),
	})
}
