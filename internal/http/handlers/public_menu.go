package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"tablewood-catering-services/internal/catalog"
	"tablewood-catering-services/pkg/response"
)

type publicTenant struct {
	ID       int64
	Code     string
	Name     string
	Currency string
}

var errTenantNotFound = errors.New("tenant not found")

func (h *Handler) resolveTenant(ctx context.Context, code string) (publicTenant, error) {
	var t publicTenant
	var active bool
	err := h.DB.QueryRow(ctx, `
		select id, code, name, currency, is_active from tenants where code = $1
	`, code).Scan(&t.ID, &t.Code, &t.Name, &t.Currency, &active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return publicTenant{}, errTenantNotFound
		}
		return publicTenant{}, err
	}
	if !active {
		return publicTenant{}, errTenantNotFound
	}
	return t, nil
}

type menuCategoryView struct {
	ID    int64              `json:"id"`
	Name  string             `json:"name"`
	Items []catalog.MenuItem `json:"items"`
}

// PublicMenu returns the orderable catalog grouped by category. Uncategorized
// items land in a trailing pseudo-category.
func (h *Handler) PublicMenu(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.resolveTenant(r.Context(), chi.URLParam(r, "tenantCode"))
	if err != nil {
		h.respondTenantError(w, err)
		return
	}

	cat, err := catalog.Load(r.Context(), h.DB, tenant.ID)
	if err != nil {
		h.Logger.Error("menu load failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load menu")
		return
	}

	byCategory := make(map[int64][]catalog.MenuItem)
	uncategorized := make([]catalog.MenuItem, 0)
	for _, item := range cat.Items {
		if item.CategoryID == nil {
			uncategorized = append(uncategorized, item)
			continue
		}
		byCategory[*item.CategoryID] = append(byCategory[*item.CategoryID], item)
	}

	categories := make([]menuCategoryView, 0, len(cat.Categories)+1)
	for _, c := range cat.Categories {
		items := byCategory[c.ID]
		if len(items) == 0 {
			continue
		}
		sortMenuItems(items)
		categories = append(categories, menuCategoryView{ID: c.ID, Name: c.Name, Items: items})
	}
	if len(uncategorized) > 0 {
		sortMenuItems(uncategorized)
		categories = append(categories, menuCategoryView{ID: 0, Name: "Other", Items: uncategorized})
	}

	response.Success(w, map[string]any{
		"tenant": map[string]any{
			"code":     tenant.Code,
			"name":     tenant.Name,
			"currency": tenant.Currency,
		},
		"categories": categories,
	})
}

func (h *Handler) respondTenantError(w http.ResponseWriter, err error) {
	if errors.Is(err, errTenantNotFound) {
		response.Error(w, http.StatusNotFound, "TENANT_NOT_FOUND", "Unknown tenant")
		return
	}
	h.Logger.Error("tenant lookup failed", zap.Error(err))
	response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal error")
}
