/*
repository.go - Persistence boundary of the stamp engine

PURPOSE:
  Every engine operation runs through Repository.WithTx. The Tx it hands
  out is bound to one tenant: every statement it issues carries that
  tenant's condition, so an operation cannot read or write another tenant's
  rows by construction.

KEY INTERFACES:
  Repository: Opens tenant-bound transactions
  LedgerTx:   Stamp events and the progress counter
  CouponTx:   Reward rules and issued coupons
  AdminTx:    Tenant configuration and store administration
  StatsTx:    Dashboard series

ATOMICITY:
  If fn returns an error the transaction is rolled back, otherwise it is
  committed. A stamp is never half recorded: the ledger insert, the counter
  increment and any coupon inserts share one Tx.

IMPLEMENTATIONS:
  - store/sqlstore: SQLite and PostgreSQL via sqlx

SEE ALSO:
  - engine.go: RecordStamp
  - query/composer.go: Statement composition with the implicit tenant clause
*/
package stamp

import (
	"context"
	"time"

	"github.com/warp/stamp-engine/tenant"
)

// Repository opens tenant-bound transactions.
type Repository interface {
	// WithTx executes fn within a transaction bound to tenantID.
	// If fn returns error, the transaction is rolled back.
	WithTx(ctx context.Context, tenantID string, fn func(Tx) error) error
}

// Tx is the full set of tenant-bound operations.
type Tx interface {
	TenantID() string
	LedgerTx
	CouponTx
	AdminTx
	StatsTx
}

// LedgerTx covers the stamp ledger and the progress counter.
type LedgerTx interface {
	// LoadTenant returns the bound tenant's row, false if absent.
	LoadTenant(ctx context.Context) (Tenant, bool, error)

	// FindStore returns the store, false if it does not exist for the tenant.
	FindStore(ctx context.Context, storeID string) (Store, bool, error)

	// EnsureProgress creates a zero counter when none exists. Safe under
	// concurrent callers.
	EnsureProgress(ctx context.Context, userID int64) error

	// Progress returns the counter, false if the user has none under this tenant.
	Progress(ctx context.Context, userID int64) (Progress, bool, error)

	// IncrementProgress adds one stamp and returns the new count.
	IncrementProgress(ctx context.Context, userID int64) (int, error)

	HasStamp(ctx context.Context, userID int64, storeID string) (bool, error)

	// InsertStamp appends a ledger row. Returns ErrDuplicateStamp when the
	// (user, store) pair already has one.
	InsertStamp(ctx context.Context, ev StampEvent) error

	StampedStoreIDs(ctx context.Context, userID int64) ([]string, error)

	// CountStamps counts ledger rows for the user.
	CountStamps(ctx context.Context, userID int64) (int, error)
}

// CouponTx covers reward rules and coupons.
type CouponTx interface {
	// RewardRules returns the tenant's rules ordered by threshold.
	RewardRules(ctx context.Context) ([]RewardRule, error)

	// CouponIDs returns the ids of coupons the user already holds.
	CouponIDs(ctx context.Context, userID int64) (map[string]bool, error)

	// InsertCoupon inserts c unless the user already holds c.ID.
	// Returns false when it was skipped.
	InsertCoupon(ctx context.Context, c Coupon) (bool, error)

	// Coupons returns the user's coupons in issuance order.
	Coupons(ctx context.Context, userID int64) ([]Coupon, error)

	FindCoupon(ctx context.Context, userID int64, couponID string) (Coupon, bool, error)

	MarkCouponUsed(ctx context.Context, userID int64, couponID string, at time.Time) error
}

// AdminTx covers tenant administration.
type AdminTx interface {
	// CreateTenant registers the bound tenant. Returns ErrConflict when it
	// already exists.
	CreateTenant(ctx context.Context, companyName string, doc tenant.Document) error

	SaveTenantConfig(ctx context.Context, doc tenant.Document) error

	ListStores(ctx context.Context) ([]Store, error)
	UpsertStore(ctx context.Context, s Store) (Store, error)
	DeleteStore(ctx context.Context, storeID string) (bool, error)

	UpsertRewardRule(ctx context.Context, r RewardRule) (RewardRule, error)
	DeleteRewardRule(ctx context.Context, threshold int) (bool, error)
}

// StatsTx feeds the dashboard.
type StatsTx interface {
	// StampEventsSince returns ledger rows stamped at or after since.
	StampEventsSince(ctx context.Context, since time.Time) ([]StampEvent, error)

	// CouponsSince returns coupons created or used at or after since.
	CouponsSince(ctx context.Context, since time.Time) ([]Coupon, error)
}
