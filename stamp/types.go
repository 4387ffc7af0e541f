package stamp

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/stamp-engine/tenant"
)

// Identity is an already-authenticated caller.
type Identity struct {
	UserID   int64
	TenantID string
}

// Tenant is a tenant row. The engine only reads it.
type Tenant struct {
	ID          string
	CompanyName string
	Config      tenant.Document
}

// Store is a stampable location.
type Store struct {
	TenantID    string
	ID          string
	Name        string
	Lat         decimal.Decimal
	Lng         decimal.Decimal
	Description string
	ImageURL    string
	StampMark   string
}

// StampEvent is one ledger row. At most one exists per (UserID, StoreID).
type StampEvent struct {
	ID        uuid.UUID
	UserID    int64
	StoreID   string
	TenantID  string
	StampedAt time.Time
}

// Progress is the cached stamp count of a user.
type Progress struct {
	UserID   int64
	TenantID string
	Stamps   int
}

// RewardRule unlocks a coupon when a user's stamps reach Threshold.
type RewardRule struct {
	TenantID  string
	Threshold int
	Label     string
	Icon      string
}

// Coupon is an issued reward. Threshold is set for rule coupons.
type Coupon struct {
	ID          string
	UserID      int64
	TenantID    string
	Threshold   *int
	Title       string
	Description string
	Used        bool
	CreatedAt   time.Time
	UsedAt      *time.Time
}

// =============================================================================
// RESULTS
// =============================================================================

// Status is the outcome of a stamp attempt.
type Status string

const (
	StatusStamped        Status = "stamped"
	StatusAlreadyStamped Status = "already_stamped"
	StatusStoreNotFound  Status = "store_not_found"
)

// CouponView is a coupon as shown to its owner: description and icon are
// computed from the current reward rule.
type CouponView struct {
	ID          string
	TenantID    string
	Title       string
	Description string
	Icon        string
	Used        bool
}

// StampResult is returned by RecordStamp.
type StampResult struct {
	Status          Status
	Stamps          int
	NewCoupons      []CouponView
	StampedStoreIDs []string
}

// ProgressView is returned by GetProgress.
type ProgressView struct {
	TenantID        string
	Stamps          int
	Coupons         []CouponView
	StampedStoreIDs []string
}
