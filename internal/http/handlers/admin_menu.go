package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tablewood-catering-services/internal/catalog"
	"tablewood-catering-services/internal/utils"
	"tablewood-catering-services/pkg/response"
)

type menuItemRequest struct {
	CategoryID  *int64   `json:"categoryId"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       string   `json:"price"`
	Available   bool     `json:"available"`
	Published   bool     `json:"published"`
	DietaryTags []string `json:"dietaryTags"`
	SortOrder   int32    `json:"sortOrder"`
}

func (req *menuItemRequest) validate() (decimal.Decimal, map[string]any) {
	details := map[string]any{}
	if strings.TrimSpace(req.Name) == "" {
		details["name"] = "Name is required"
	}
	price, err := decimal.NewFromString(strings.TrimSpace(req.Price))
	if err != nil || price.LessThan(decimal.Zero) {
		details["price"] = "Price must be a non-negative amount"
	}
	if len(details) > 0 {
		return decimal.Zero, details
	}
	if req.DietaryTags == nil {
		req.DietaryTags = []string{}
	}
	return price.Round(2), nil
}

// AdminListMenuItems returns the full catalog for the admin's tenant,
// including unpublished and unavailable items.
func (h *Handler) AdminListMenuItems(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	rows, err := h.DB.Query(r.Context(), `
		select id, category_id, name, description, price, is_available, is_published,
		       dietary_tags, sort_order, image_url
		from menu_items
		where tenant_id = $1
		order by sort_order asc, name asc
	`, authCtx.TenantID)
	if err != nil {
		h.Logger.Error("menu items query failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load menu items")
		return
	}
	defer rows.Close()

	items := make([]catalog.MenuItem, 0)
	for rows.Next() {
		var (
			item       catalog.MenuItem
			categoryID pgtype.Int8
			price      pgtype.Numeric
			imageURL   pgtype.Text
		)
		if err := rows.Scan(&item.ID, &categoryID, &item.Name, &item.Description, &price,
			&item.Available, &item.Published, &item.DietaryTags, &item.SortOrder, &imageURL); err != nil {
			h.Logger.Error("menu item scan failed", zap.Error(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load menu items")
			return
		}
		if categoryID.Valid {
			item.CategoryID = &categoryID.Int64
		}
		if imageURL.Valid {
			item.ImageURL = &imageURL.String
		}
		item.Price = utils.NumericToDecimal(price)
		items = append(items, item)
	}

	response.Success(w, items)
}

func (h *Handler) AdminCreateMenuItem(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	var req menuItemRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	price, details := req.validate()
	if details != nil {
		response.ErrorWithDetails(w, http.StatusBadRequest, "VALIDATION_FAILED", "Menu item is invalid", details)
		return
	}

	var id int64
	err := h.DB.QueryRow(r.Context(), `
		insert into menu_items (tenant_id, category_id, name, description, price,
		                        is_available, is_published, dietary_tags, sort_order)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		returning id
	`, authCtx.TenantID, req.CategoryID, strings.TrimSpace(req.Name), strings.TrimSpace(req.Description),
		utils.DecimalParam(price), req.Available, req.Published, req.DietaryTags, req.SortOrder,
	).Scan(&id)
	if err != nil {
		h.Logger.Error("menu item insert failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create menu item")
		return
	}

	response.Created(w, map[string]any{"id": id}, "Menu item created")
}

func (h *Handler) AdminUpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	itemID, err := urlParamInt64(r, "itemID")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}

	var req menuItemRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	price, details := req.validate()
	if details != nil {
		response.ErrorWithDetails(w, http.StatusBadRequest, "VALIDATION_FAILED", "Menu item is invalid", details)
		return
	}

	tag, err := h.DB.Exec(r.Context(), `
		update menu_items
		set category_id = $1, name = $2, description = $3, price = $4,
		    is_available = $5, is_published = $6, dietary_tags = $7, sort_order = $8,
		    updated_at = now()
		where id = $9 and tenant_id = $10
	`, req.CategoryID, strings.TrimSpace(req.Name), strings.TrimSpace(req.Description), utils.DecimalParam(price),
		req.Available, req.Published, req.DietaryTags, req.SortOrder, itemID, authCtx.TenantID)
	if err != nil {
		h.Logger.Error("menu item update failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update menu item")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusNotFound, "ITEM_NOT_FOUND", "Menu item not found")
		return
	}

	response.Success(w, map[string]any{"id": itemID})
}

// AdminDeleteMenuItem removes the item; historical order lines keep their
// copied name and price (menu_item_id goes null via FK).
func (h *Handler) AdminDeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	itemID, err := urlParamInt64(r, "itemID")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}

	var imageURL pgtype.Text
	err = h.DB.QueryRow(r.Context(), `
		delete from menu_items where id = $1 and tenant_id = $2 returning image_url
	`, itemID, authCtx.TenantID).Scan(&imageURL)
	if errors.Is(err, pgx.ErrNoRows) {
		response.Error(w, http.StatusNotFound, "ITEM_NOT_FOUND", "Menu item not found")
		return
	}
	if err != nil {
		h.Logger.Error("menu item delete failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete menu item")
		return
	}

	if imageURL.Valid && h.Store != nil {
		if err := h.Store.DeleteURL(r.Context(), imageURL.String); err != nil {
			h.Logger.Warn("menu photo cleanup failed", zap.String("url", imageURL.String), zap.Error(err))
		}
	}

	response.Success(w, map[string]any{"id": itemID})
}

type bulkMenuActionRequest struct {
	Action  string  `json:"action"`
	ItemIDs []int64 `json:"itemIds"`
}

// BulkMenuActionUpdate maps a bulk action name to the column change it
// performs. Unknown actions map to nothing; the action set is closed.
func BulkMenuActionUpdate(action string) (column string, value bool, ok bool) {
	switch strings.ToUpper(strings.TrimSpace(action)) {
	case "AVAILABLE":
		return "is_available", true, true
	case "UNAVAILABLE":
		return "is_available", false, true
	case "PUBLISH":
		return "is_published", true, true
	case "UNPUBLISH":
		return "is_published", false, true
	}
	return "", false, false
}

func (h *Handler) AdminBulkMenuAction(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	var req bulkMenuActionRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	column, value, ok := BulkMenuActionUpdate(req.Action)
	if !ok {
		response.Error(w, http.StatusBadRequest, "INVALID_ACTION", "Action must be AVAILABLE, UNAVAILABLE, PUBLISH or UNPUBLISH")
		return
	}
	if len(req.ItemIDs) == 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", "itemIds is required")
		return
	}

	// column comes from the closed action mapping above, never from input.
	tag, err := h.DB.Exec(r.Context(), `
		update menu_items set `+column+` = $1, updated_at = now()
		where tenant_id = $2 and id = any($3)
	`, value, authCtx.TenantID, req.ItemIDs)
	if err != nil {
		h.Logger.Error("bulk menu action failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Bulk action failed")
		return
	}

	response.Success(w, map[string]any{"updated": tag.RowsAffected()})
}
