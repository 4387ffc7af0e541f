package sqlstore

// Schemas are applied on Migrate. The (user_id, store_id) unique key of
// user_store_stamps is the idempotency anchor of the ledger.

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tenants (
	tenant_id TEXT PRIMARY KEY,
	company_name TEXT NOT NULL,
	config TEXT NOT NULL DEFAULT '{}',
	is_active BOOLEAN NOT NULL DEFAULT 1,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS stores (
	tenant_id TEXT NOT NULL,
	store_id TEXT NOT NULL,
	name TEXT NOT NULL,
	lat TEXT NOT NULL,
	lng TEXT NOT NULL,
	description TEXT,
	image_url TEXT,
	stamp_mark TEXT,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (tenant_id, store_id)
);

CREATE TABLE IF NOT EXISTS user_progress (
	user_id INTEGER PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	stamps INTEGER NOT NULL DEFAULT 0,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS user_store_stamps (
	id TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	store_id TEXT NOT NULL,
	tenant_id TEXT NOT NULL,
	stamped_at TIMESTAMP NOT NULL,
	UNIQUE (user_id, store_id)
);

CREATE INDEX IF NOT EXISTS idx_stamps_tenant_time
	ON user_store_stamps(tenant_id, stamped_at);

CREATE TABLE IF NOT EXISTS reward_rules (
	tenant_id TEXT NOT NULL,
	threshold INTEGER NOT NULL,
	label TEXT NOT NULL,
	icon TEXT,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (tenant_id, threshold)
);

CREATE TABLE IF NOT EXISTS user_coupons (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	coupon_id TEXT NOT NULL,
	tenant_id TEXT NOT NULL,
	threshold INTEGER,
	title TEXT NOT NULL,
	description TEXT,
	used BOOLEAN NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	used_at TIMESTAMP,
	UNIQUE (user_id, coupon_id)
);

CREATE INDEX IF NOT EXISTS idx_coupons_tenant_time
	ON user_coupons(tenant_id, created_at);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS tenants (
	tenant_id TEXT PRIMARY KEY,
	company_name TEXT NOT NULL,
	config JSONB NOT NULL DEFAULT '{}'::jsonb,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS stores (
	tenant_id TEXT NOT NULL,
	store_id TEXT NOT NULL,
	name TEXT NOT NULL,
	lat NUMERIC(9, 6) NOT NULL,
	lng NUMERIC(9, 6) NOT NULL,
	description TEXT,
	image_url TEXT,
	stamp_mark TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (tenant_id, store_id)
);

CREATE TABLE IF NOT EXISTS user_progress (
	user_id BIGINT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	stamps INTEGER NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS user_store_stamps (
	id UUID PRIMARY KEY,
	user_id BIGINT NOT NULL,
	store_id TEXT NOT NULL,
	tenant_id TEXT NOT NULL,
	stamped_at TIMESTAMPTZ NOT NULL,
	UNIQUE (user_id, store_id)
);

CREATE INDEX IF NOT EXISTS idx_stamps_tenant_time
	ON user_store_stamps(tenant_id, stamped_at);

CREATE TABLE IF NOT EXISTS reward_rules (
	tenant_id TEXT NOT NULL,
	threshold INTEGER NOT NULL,
	label TEXT NOT NULL,
	icon TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (tenant_id, threshold)
);

CREATE TABLE IF NOT EXISTS user_coupons (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	coupon_id TEXT NOT NULL,
	tenant_id TEXT NOT NULL,
	threshold INTEGER,
	title TEXT NOT NULL,
	description TEXT,
	used BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	used_at TIMESTAMPTZ,
	UNIQUE (user_id, coupon_id)
);

CREATE INDEX IF NOT EXISTS idx_coupons_tenant_time
	ON user_coupons(tenant_id, created_at);
`
