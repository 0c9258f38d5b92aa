package handlers

import (
	"forumshop/internal/models"
	"forumshop/internal/money"
	"forumshop/internal/services"
)

func categoryView(c models.Category) map[string]any {
	return map[string]any{
		"id":         c.ID,
		"name":       c.Name,
		"image":      c.Image,
		"is_active":  c.IsActive,
		"created_at": c.CreatedAt,
		"edited_at":  c.EditedAt,
		"created_by": c.CreatedBy,
		"edited_by":  c.EditedBy,
	}
}

func itemView(i models.Item) map[string]any {
	return map[string]any{
		"id":          i.ID,
		"name":        i.Name,
		"description": i.Description,
		"price":       money.Format(i.Price),
		"image":       i.Image,
		"is_active":   i.IsActive,
		"created_at":  i.CreatedAt,
		"edited_at":   i.EditedAt,
		"created_by":  i.CreatedBy,
		"edited_by":   i.EditedBy,
	}
}

func categoryDetailView(d services.CategoryDetail) map[string]any {
	view := categoryView(d.Category)
	items := make([]map[string]any, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, itemView(item))
	}
	view["items"] = items
	return view
}

func itemDetailView(d services.ItemDetail) map[string]any {
	view := itemView(d.Item)
	categories := make([]map[string]any, 0, len(d.Categories))
	for _, category := range d.Categories {
		categories = append(categories, categoryView(category))
	}
	view["categories"] = categories
	return view
}

func pageView[T any](page services.Page[T], render func(T) map[string]any) map[string]any {
	items := make([]map[string]any, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, render(item))
	}
	return map[string]any{
		"items":      items,
		"pagination": page.Pagination,
	}
}

func inventoryView(inv services.UserInventory) map[string]any {
	entries := make([]map[string]any, 0, len(inv.Inventory))
	for _, entry := range inv.Inventory {
		entries = append(entries, map[string]any{
			"item_id":         entry.ItemID,
			"name":            entry.Name,
			"description":     entry.Description,
			"image":           entry.Image,
			"price":           money.Format(entry.Price),
			"total_quantity":  entry.TotalQuantity,
			"quantity_in_bag": entry.QuantityInBag,
			"last_updated":    entry.LastUpdated,
		})
	}
	bag := inv.Bag
	if bag == nil {
		bag = []services.BagEntry{}
	}
	return map[string]any{
		"user_id":   inv.UserID,
		"credits":   inv.Credits,
		"inventory": entries,
		"bag":       bag,
	}
}

func bagView(b services.UserBag) map[string]any {
	bag := b.Bag
	if bag == nil {
		bag = []services.BagEntry{}
	}
	return map[string]any{"user_id": b.UserID, "bag": bag}
}

func purchaseView(result services.PurchaseResult) map[string]any {
	lines := make([]map[string]any, 0, len(result.ItemsPurchased))
	for _, line := range result.ItemsPurchased {
		lines = append(lines, map[string]any{
			"item_id":  line.ItemID,
			"quantity": line.Quantity,
			"price":    money.Format(line.Price),
		})
	}
	return map[string]any{
		"transaction_id":    result.TransactionID,
		"credits_spent":     money.Format(result.CreditsSpent),
		"credits_remaining": money.Format(result.CreditsRemaining),
		"items_purchased":   lines,
	}
}

func auditView(record models.AuditRecord) map[string]any {
	var oldValues any
	if record.OldValues.Valid {
		oldValues = record.OldValues.JSONText
	}
	return map[string]any{
		"id":          record.ID,
		"entity_id":   record.EntityID,
		"user_id":     record.UserID,
		"action_type": record.ActionType,
		"old_values":  oldValues,
		"new_values":  record.NewValues,
		"timestamp":   record.Timestamp,
	}
}
