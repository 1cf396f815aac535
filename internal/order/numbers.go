package order

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// NextOrderNumber draws from a per-tenant atomic counter. The upsert takes a
// row lock, so two concurrent webhooks can never observe the same value.
func NextOrderNumber(ctx context.Context, tx pgx.Tx, tenantID int64, tenantCode string) (string, error) {
	var n int64
	err := tx.QueryRow(ctx, `
		insert into order_counters (tenant_id, next_number)
		values ($1, 1)
		on conflict (tenant_id) do update set next_number = order_counters.next_number + 1
		returning next_number
	`, tenantID).Scan(&n)
	if err != nil {
		return "", err
	}
	return FormatOrderNumber(tenantCode, n), nil
}

func FormatOrderNumber(tenantCode string, n int64) string {
	return fmt.Sprintf("%s-%05d", strings.ToUpper(tenantCode), n)
}
