package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"tablewood-catering-services/internal/catalog"
	"tablewood-catering-services/pkg/response"
)

type categoryRequest struct {
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	SortOrder int32  `json:"sortOrder"`
}

func (h *Handler) AdminListCategories(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	rows, err := h.DB.Query(r.Context(), `
		select id, name, is_active, sort_order
		from menu_categories
		where tenant_id = $1
		order by sort_order asc, name asc
	`, authCtx.TenantID)
	if err != nil {
		h.Logger.Error("categories query failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load categories")
		return
	}
	defer rows.Close()

	categories := make([]catalog.MenuCategory, 0)
	for rows.Next() {
		var c catalog.MenuCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Active, &c.SortOrder); err != nil {
			h.Logger.Error("category scan failed", zap.Error(err))
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load categories")
			return
		}
		categories = append(categories, c)
	}

	response.Success(w, categories)
}

func (h *Handler) AdminCreateCategory(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", "Name is required")
		return
	}

	var id int64
	err := h.DB.QueryRow(r.Context(), `
		insert into menu_categories (tenant_id, name, is_active, sort_order)
		values ($1, $2, $3, $4)
		returning id
	`, authCtx.TenantID, strings.TrimSpace(req.Name), req.Active, req.SortOrder).Scan(&id)
	if err != nil {
		h.Logger.Error("category insert failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create category")
		return
	}

	response.Created(w, map[string]any{"id": id}, "Category created")
}

func (h *Handler) AdminUpdateCategory(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	categoryID, err := urlParamInt64(r, "categoryID")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}

	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", "Name is required")
		return
	}

	tag, err := h.DB.Exec(r.Context(), `
		update menu_categories
		set name = $1, is_active = $2, sort_order = $3, updated_at = now()
		where id = $4 and tenant_id = $5
	`, strings.TrimSpace(req.Name), req.Active, req.SortOrder, categoryID, authCtx.TenantID)
	if err != nil {
		h.Logger.Error("category update failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update category")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Category not found")
		return
	}

	response.Success(w, map[string]any{"id": categoryID})
}

// AdminDeleteCategory deletes a category; its items stay and become
// uncategorized (FK sets category_id null).
func (h *Handler) AdminDeleteCategory(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	categoryID, err := urlParamInt64(r, "categoryID")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}

	tag, err := h.DB.Exec(r.Context(), `
		delete from menu_categories where id = $1 and tenant_id = $2
	`, categoryID, authCtx.TenantID)
	if err != nil {
		h.Logger.Error("category delete failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete category")
		return
	}
	if tag.RowsAffected() == 0 {
		response.Error(w, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Category not found")
		return
	}

	response.Success(w, map[string]any{"id": categoryID})
}
