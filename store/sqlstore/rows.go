package sqlstore

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/stamp-engine/stamp"
	"github.com/warp/stamp-engine/tenant"
)

type tenantRow struct {
	TenantID    string    `db:"tenant_id"`
	CompanyName string    `db:"company_name"`
	Config      []byte    `db:"config"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r tenantRow) tenant() stamp.Tenant {
	return stamp.Tenant{
		ID:          r.TenantID,
		CompanyName: r.CompanyName,
		Config:      tenant.ParseDocument(r.Config),
	}
}

type storeRow struct {
	TenantID    string          `db:"tenant_id"`
	StoreID     string          `db:"store_id"`
	Name        string          `db:"name"`
	Lat         decimal.Decimal `db:"lat"`
	Lng         decimal.Decimal `db:"lng"`
	Description sql.NullString  `db:"description"`
	ImageURL    sql.NullString  `db:"image_url"`
	StampMark   sql.NullString  `db:"stamp_mark"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

func (r storeRow) store() stamp.Store {
	return stamp.Store{
		TenantID:    r.TenantID,
		ID:          r.StoreID,
		Name:        r.Name,
		Lat:         r.Lat,
		Lng:         r.Lng,
		Description: r.Description.String,
		ImageURL:    r.ImageURL.String,
		StampMark:   r.StampMark.String,
	}
}

type progressRow struct {
	UserID    int64     `db:"user_id"`
	TenantID  string    `db:"tenant_id"`
	Stamps    int       `db:"stamps"`
	UpdatedAt time.Time `db:"updated_at"`
}

type stampRow struct {
	ID        uuid.UUID `db:"id"`
	UserID    int64     `db:"user_id"`
	StoreID   string    `db:"store_id"`
	TenantID  string    `db:"tenant_id"`
	StampedAt time.Time `db:"stamped_at"`
}

type ruleRow struct {
	TenantID  string         `db:"tenant_id"`
	Threshold int            `db:"threshold"`
	Label     string         `db:"label"`
	Icon      sql.NullString `db:"icon"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (r ruleRow) rule() stamp.RewardRule {
	return stamp.RewardRule{
		TenantID:  r.TenantID,
		Threshold: r.Threshold,
		Label:     r.Label,
		Icon:      r.Icon.String,
	}
}

type couponRow struct {
	UserID      int64          `db:"user_id"`
	CouponID    string         `db:"coupon_id"`
	TenantID    string         `db:"tenant_id"`
	Threshold   sql.NullInt64  `db:"threshold"`
	Title       string         `db:"title"`
	Description sql.NullString `db:"description"`
	Used        bool           `db:"used"`
	CreatedAt   time.Time      `db:"created_at"`
	UsedAt      sql.NullTime   `db:"used_at"`
}

func (r couponRow) coupon() stamp.Coupon {
	c := stamp.Coupon{
		ID:          r.CouponID,
		UserID:      r.UserID,
		TenantID:    r.TenantID,
		Title:       r.Title,
		Description: r.Description.String,
		Used:        r.Used,
		CreatedAt:   r.CreatedAt,
	}
	if r.Threshold.Valid {
		t := int(r.Threshold.Int64)
		c.Threshold = &t
	}
	if r.UsedAt.Valid {
		t := r.UsedAt.Time
		c.UsedAt = &t
	}
	return c
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
