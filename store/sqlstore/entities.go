package sqlstore

import "github.com/warp/stamp-engine/query"

// Table descriptors. Field order is the column order of inserts.
var (
	tenantsTable = query.Entity{
		Table:       "tenants",
		Fields:      []string{"tenant_id", "company_name", "config", "is_active", "created_at", "updated_at"},
		TenantField: "tenant_id",
	}

	storesTable = query.Entity{
		Table: "stores",
		Fields: []string{
			"tenant_id", "store_id", "name", "lat", "lng",
			"description", "image_url", "stamp_mark", "created_at", "updated_at",
		},
		TenantField: "tenant_id",
	}

	progressTable = query.Entity{
		Table:       "user_progress",
		Fields:      []string{"user_id", "tenant_id", "stamps", "updated_at"},
		TenantField: "tenant_id",
	}

	stampsTable = query.Entity{
		Table:       "user_store_stamps",
		Fields:      []string{"id", "user_id", "store_id", "tenant_id", "stamped_at"},
		TenantField: "tenant_id",
	}

	rulesTable = query.Entity{
		Table:       "reward_rules",
		Fields:      []string{"tenant_id", "threshold", "label", "icon", "created_at", "updated_at"},
		TenantField: "tenant_id",
	}

	couponsTable = query.Entity{
		Table: "user_coupons",
		Fields: []string{
			"user_id", "coupon_id", "tenant_id", "threshold", "title",
			"description", "used", "created_at", "used_at",
		},
		TenantField: "tenant_id",
	}
)
