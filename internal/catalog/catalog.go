package catalog

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"tablewood-catering-services/internal/utils"
)

// The catalog is the sole pricing authority: checkout and the payment webhook
// both re-price carts against it and never trust client-supplied amounts.

type MenuItem struct {
	ID          int64           `json:"id"`
	CategoryID  *int64          `json:"categoryId"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Available   bool            `json:"available"`
	Published   bool            `json:"published"`
	DietaryTags []string        `json:"dietaryTags"`
	SortOrder   int32           `json:"sortOrder"`
	ImageURL    *string         `json:"imageUrl"`
}

type MenuCategory struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	SortOrder int32  `json:"sortOrder"`
}

type Catalog struct {
	Items      map[int64]MenuItem
	Categories []MenuCategory
}

// Load returns the orderable catalog for a tenant: published, available items
// and active categories, in sort order.
func Load(ctx context.Context, db *pgxpool.Pool, tenantID int64) (*Catalog, error) {
	cat := &Catalog{Items: make(map[int64]MenuItem)}

	rows, err := db.Query(ctx, `
		select id, category_id, name, description, price, is_available, is_published,
		       dietary_tags, sort_order, image_url
		from menu_items
		where tenant_id = $1 and is_published = true and is_available = true
		order by sort_order asc, name asc
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			item       MenuItem
			categoryID pgtype.Int8
			price      pgtype.Numeric
			imageURL   pgtype.Text
		)
		if err := rows.Scan(&item.ID, &categoryID, &item.Name, &item.Description, &price,
			&item.Available, &item.Published, &item.DietaryTags, &item.SortOrder, &imageURL); err != nil {
			return nil, err
		}
		if categoryID.Valid {
			item.CategoryID = &categoryID.Int64
		}
		if imageURL.Valid {
			item.ImageURL = &imageURL.String
		}
		item.Price = utils.NumericToDecimal(price)
		cat.Items[item.ID] = item
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	catRows, err := db.Query(ctx, `
		select id, name, is_active, sort_order
		from menu_categories
		where tenant_id = $1 and is_active = true
		order by sort_order asc, name asc
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer catRows.Close()
	for catRows.Next() {
		var category MenuCategory
		if err := catRows.Scan(&category.ID, &category.Name, &category.Active, &category.SortOrder); err != nil {
			return nil, err
		}
		cat.Categories = append(cat.Categories, category)
	}
	return cat, catRows.Err()
}

// Item returns the item and whether it is orderable.
func (c *Catalog) Item(id int64) (MenuItem, bool) {
	item, ok := c.Items[id]
	return item, ok
}
