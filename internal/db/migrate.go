package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tenants (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			contact_email TEXT NOT NULL DEFAULT '',
			currency TEXT NOT NULL DEFAULT 'eur',
			timezone TEXT NOT NULL DEFAULT 'Europe/Amsterdam',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,

		`CREATE TABLE IF NOT EXISTS admin_users (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			tenant_id BIGINT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,

		`CREATE TABLE IF NOT EXISTS menu_categories (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			tenant_id BIGINT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			sort_order INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,

		`CREATE TABLE IF NOT EXISTS menu_items (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			tenant_id BIGINT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
			category_id BIGINT NULL REFERENCES menu_categories(id) ON DELETE SET NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price NUMERIC(10,2) NOT NULL,
			is_available BOOLEAN NOT NULL DEFAULT TRUE,
			is_published BOOLEAN NOT NULL DEFAULT FALSE,
			dietary_tags TEXT[] NOT NULL DEFAULT '{}',
			sort_order INT NOT NULL DEFAULT 0,
			image_url TEXT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,

		`CREATE TABLE IF NOT EXISTS business_settings (
			tenant_id BIGINT PRIMARY KEY REFERENCES tenants(id) ON DELETE CASCADE,
			pickup_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			delivery_enabled BOOLEAN NOT NULL DEFAULT TRUE,
			lead_time_minutes INT NOT NULL DEFAULT 120,
			min_order_value NUMERIC(10,2) NOT NULL DEFAULT 0,
			blackout_dates JSONB NOT NULL DEFAULT '[]',
			business_hours JSONB NOT NULL DEFAULT '{}',
			pickup_slot_minutes INT NOT NULL DEFAULT 30,
			delivery_slot_minutes INT NOT NULL DEFAULT 120,
			pickup_slot_cap INT NOT NULL DEFAULT 4,
			delivery_slot_cap INT NOT NULL DEFAULT 2,
			daily_order_cap INT NULL,
			notes_max_length INT NOT NULL DEFAULT 500,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,

		`CREATE TABLE IF NOT EXISTS delivery_zones (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			tenant_id BIGINT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
			name TEXT NOT NULL DEFAULT '',
			postcode_prefix TEXT NOT NULL,
			delivery_fee NUMERIC(10,2) NOT NULL,
			min_order_value NUMERIC(10,2) NULL,
			UNIQUE (tenant_id, postcode_prefix)
		);`,

		`CREATE TABLE IF NOT EXISTS time_slots (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			tenant_id BIGINT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
			fulfillment_type TEXT NOT NULL CHECK (fulfillment_type IN ('PICKUP','DELIVERY')),
			slot_date DATE NOT NULL,
			start_at TIMESTAMPTZ NOT NULL,
			end_at TIMESTAMPTZ NOT NULL,
			max_orders INT NOT NULL,
			current_orders INT NOT NULL DEFAULT 0 CHECK (current_orders >= 0),
			UNIQUE (tenant_id, fulfillment_type, start_at)
		);`,

		`CREATE TABLE IF NOT EXISTS orders (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			tenant_id BIGINT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
			order_number TEXT NOT NULL,
			customer_name TEXT NOT NULL,
			customer_email TEXT NOT NULL,
			customer_phone TEXT NULL,
			fulfillment_type TEXT NOT NULL CHECK (fulfillment_type IN ('PICKUP','DELIVERY')),
			time_slot_id BIGINT NULL REFERENCES time_slots(id),
			scheduled_for TIMESTAMPTZ NULL,
			delivery_address TEXT NULL,
			delivery_postcode TEXT NULL,
			delivery_city TEXT NULL,
			status TEXT NOT NULL DEFAULT 'NEW',
			payment_status TEXT NOT NULL DEFAULT 'UNPAID',
			subtotal NUMERIC(10,2) NOT NULL DEFAULT 0,
			delivery_fee NUMERIC(10,2) NOT NULL DEFAULT 0,
			total_amount NUMERIC(10,2) NOT NULL DEFAULT 0,
			notes TEXT NULL,
			admin_notes TEXT NULL,
			email_status TEXT NOT NULL DEFAULT 'PENDING',
			needs_reschedule BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (tenant_id, order_number)
		);`,

		`CREATE TABLE IF NOT EXISTS order_items (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			menu_item_id BIGINT NULL REFERENCES menu_items(id) ON DELETE SET NULL,
			item_name TEXT NOT NULL,
			unit_price NUMERIC(10,2) NOT NULL,
			quantity INT NOT NULL CHECK (quantity > 0),
			line_total NUMERIC(10,2) NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS payments (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			provider TEXT NOT NULL DEFAULT 'stripe',
			provider_session_id TEXT NOT NULL UNIQUE,
			provider_payment_intent TEXT NULL,
			amount NUMERIC(10,2) NOT NULL,
			currency TEXT NOT NULL DEFAULT 'eur',
			status TEXT NOT NULL DEFAULT 'COMPLETED',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,

		`CREATE TABLE IF NOT EXISTS webhook_events (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			provider_event_id TEXT NOT NULL UNIQUE,
			event_type TEXT NOT NULL,
			payload JSONB NOT NULL,
			processed BOOLEAN NOT NULL DEFAULT FALSE,
			error_message TEXT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			processed_at TIMESTAMPTZ NULL
		);`,

		`CREATE TABLE IF NOT EXISTS order_counters (
			tenant_id BIGINT PRIMARY KEY REFERENCES tenants(id) ON DELETE CASCADE,
			next_number BIGINT NOT NULL DEFAULT 0
		);`,

		`CREATE TABLE IF NOT EXISTS quote_requests (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			tenant_id BIGINT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			phone TEXT NULL,
			event_date DATE NULL,
			guest_count INT NULL,
			message TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'NEW',
			admin_notes TEXT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,

		`CREATE INDEX IF NOT EXISTS idx_menu_items_tenant ON menu_items (tenant_id, is_published, is_available);`,
		`CREATE INDEX IF NOT EXISTS idx_time_slots_tenant_date ON time_slots (tenant_id, fulfillment_type, slot_date);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_tenant_created ON orders (tenant_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_tenant_status ON orders (tenant_id, status);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_slot ON orders (time_slot_id) WHERE time_slot_id IS NOT NULL;`,
		`CREATE INDEX IF NOT EXISTS idx_quote_requests_tenant ON quote_requests (tenant_id, status);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
