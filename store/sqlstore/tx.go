package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/warp/stamp-engine/query"
	"github.com/warp/stamp-engine/stamp"
	"github.com/warp/stamp-engine/tenant"
)

// txStore wraps a transaction. Every statement goes through q, which
// carries the bound tenant.
type txStore struct {
	tx  *sqlx.Tx
	q   *query.Composer
	now func() time.Time
}

// TenantID returns the tenant the transaction is bound to.
func (t *txStore) TenantID() string { return t.q.TenantID() }

// =============================================================================
// HELPERS
// =============================================================================

func (t *txStore) exec(ctx context.Context, e query.Entity, r query.Request) (int64, error) {
	st, err := t.q.Compose(e, r)
	if err != nil {
		return 0, err
	}
	res, err := t.tx.ExecContext(ctx, st.SQL, st.Args...)
	if err != nil {
		return 0, classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// get scans one row into dest. It reports false on sql.ErrNoRows.
func (t *txStore) get(ctx context.Context, dest any, e query.Entity, r query.Request) (bool, error) {
	st, err := t.q.Compose(e, r)
	if err != nil {
		return false, err
	}
	if err := t.tx.GetContext(ctx, dest, st.SQL, st.Args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, classify(err)
	}
	return true, nil
}

func (t *txStore) selectAll(ctx context.Context, dest any, e query.Entity, r query.Request) error {
	st, err := t.q.Compose(e, r)
	if err != nil {
		return err
	}
	if err := t.tx.SelectContext(ctx, dest, st.SQL, st.Args...); err != nil {
		return classify(err)
	}
	return nil
}

func (t *txStore) count(ctx context.Context, e query.Entity, conds query.Conditions) (int, error) {
	var n int
	if _, err := t.get(ctx, &n, e, query.Request{
		Kind:       query.KindSelect,
		Columns:    []string{"COUNT(*)"},
		Conditions: conds,
	}); err != nil {
		return 0, err
	}
	return n, nil
}

// stamp times are bound in UTC so text comparisons on SQLite stay ordered.
func (t *txStore) timestamp() time.Time {
	return t.now().UTC()
}

// =============================================================================
// LEDGER
// =============================================================================

func (t *txStore) LoadTenant(ctx context.Context) (stamp.Tenant, bool, error) {
	var row tenantRow
	found, err := t.get(ctx, &row, tenantsTable, query.Request{
		Kind:       query.KindSelect,
		Conditions: query.Conditions{"is_active": true},
	})
	if err != nil || !found {
		return stamp.Tenant{}, false, err
	}
	return row.tenant(), true, nil
}

func (t *txStore) FindStore(ctx context.Context, storeID string) (stamp.Store, bool, error) {
	var row storeRow
	found, err := t.get(ctx, &row, storesTable, query.Request{
		Kind:       query.KindSelect,
		Conditions: query.Conditions{"store_id": storeID},
	})
	if err != nil || !found {
		return stamp.Store{}, false, err
	}
	return row.store(), true, nil
}

func (t *txStore) EnsureProgress(ctx context.Context, userID int64) error {
	_, err := t.exec(ctx, progressTable, query.Request{
		Kind: query.KindInsert,
		Values: query.Values{
			"user_id":    userID,
			"stamps":     0,
			"updated_at": t.timestamp(),
		},
		OnConflict: &query.OnConflict{Columns: []string{"user_id"}},
	})
	if err != nil {
		return fmt.Errorf("ensure progress: %w", err)
	}
	return nil
}

func (t *txStore) Progress(ctx context.Context, userID int64) (stamp.Progress, bool, error) {
	var row progressRow
	found, err := t.get(ctx, &row, progressTable, query.Request{
		Kind:       query.KindSelect,
		Conditions: query.Conditions{"user_id": userID},
	})
	if err != nil || !found {
		return stamp.Progress{}, false, err
	}
	return stamp.Progress{UserID: row.UserID, TenantID: row.TenantID, Stamps: row.Stamps}, true, nil
}

func (t *txStore) IncrementProgress(ctx context.Context, userID int64) (int, error) {
	var stamps int
	found, err := t.get(ctx, &stamps, progressTable, query.Request{
		Kind:       query.KindUpdate,
		Conditions: query.Conditions{"user_id": userID},
		Values:     query.Values{"updated_at": t.timestamp()},
		SetExpr:    map[string]string{"stamps": "stamps + 1"},
		Returning:  []string{"stamps"},
	})
	if err != nil {
		return 0, fmt.Errorf("increment progress: %w", err)
	}
	if !found {
		return 0, fmt.Errorf("increment progress: no counter for user %d", userID)
	}
	return stamps, nil
}

func (t *txStore) HasStamp(ctx context.Context, userID int64, storeID string) (bool, error) {
	n, err := t.count(ctx, stampsTable, query.Conditions{"user_id": userID, "store_id": storeID})
	return n > 0, err
}

func (t *txStore) InsertStamp(ctx context.Context, ev stamp.StampEvent) error {
	n, err := t.exec(ctx, stampsTable, query.Request{
		Kind: query.KindInsert,
		Values: query.Values{
			"id":         ev.ID,
			"user_id":    ev.UserID,
			"store_id":   ev.StoreID,
			"stamped_at": ev.StampedAt.UTC(),
		},
		OnConflict: &query.OnConflict{Columns: []string{"user_id", "store_id"}},
	})
	if errors.Is(err, stamp.ErrConflict) {
		return stamp.ErrDuplicateStamp
	}
	if err != nil {
		return fmt.Errorf("insert stamp: %w", err)
	}
	if n == 0 {
		return stamp.ErrDuplicateStamp
	}
	return nil
}

func (t *txStore) StampedStoreIDs(ctx context.Context, userID int64) ([]string, error) {
	ids := []string{}
	err := t.selectAll(ctx, &ids, stampsTable, query.Request{
		Kind:       query.KindSelect,
		Columns:    []string{"store_id"},
		Conditions: query.Conditions{"user_id": userID},
		Suffix:     "ORDER BY stamped_at, store_id",
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (t *txStore) CountStamps(ctx context.Context, userID int64) (int, error) {
	return t.count(ctx, stampsTable, query.Conditions{"user_id": userID})
}

// =============================================================================
// COUPONS
// =============================================================================

func (t *txStore) RewardRules(ctx context.Context) ([]stamp.RewardRule, error) {
	var rows []ruleRow
	if err := t.selectAll(ctx, &rows, rulesTable, query.Request{
		Kind:   query.KindSelect,
		Suffix: "ORDER BY threshold",
	}); err != nil {
		return nil, err
	}
	out := make([]stamp.RewardRule, len(rows))
	for i, r := range rows {
		out[i] = r.rule()
	}
	return out, nil
}

func (t *txStore) CouponIDs(ctx context.Context, userID int64) (map[string]bool, error) {
	var ids []string
	if err := t.selectAll(ctx, &ids, couponsTable, query.Request{
		Kind:       query.KindSelect,
		Columns:    []string{"coupon_id"},
		Conditions: query.Conditions{"user_id": userID},
	}); err != nil {
		return nil, err
	}
	held := make(map[string]bool, len(ids))
	for _, id := range ids {
		held[id] = true
	}
	return held, nil
}

func (t *txStore) InsertCoupon(ctx context.Context, c stamp.Coupon) (bool, error) {
	var threshold sql.NullInt64
	if c.Threshold != nil {
		threshold = sql.NullInt64{Int64: int64(*c.Threshold), Valid: true}
	}
	n, err := t.exec(ctx, couponsTable, query.Request{
		Kind: query.KindInsert,
		Values: query.Values{
			"user_id":     c.UserID,
			"coupon_id":   c.ID,
			"threshold":   threshold,
			"title":       c.Title,
			"description": nullString(c.Description),
			"used":        false,
			"created_at":  c.CreatedAt.UTC(),
		},
		OnConflict: &query.OnConflict{Columns: []string{"user_id", "coupon_id"}},
	})
	if err != nil {
		return false, fmt.Errorf("insert coupon: %w", err)
	}
	return n > 0, nil
}

func (t *txStore) Coupons(ctx context.Context, userID int64) ([]stamp.Coupon, error) {
	var rows []couponRow
	if err := t.selectAll(ctx, &rows, couponsTable, query.Request{
		Kind:       query.KindSelect,
		Conditions: query.Conditions{"user_id": userID},
		Suffix:     "ORDER BY created_at, id",
	}); err != nil {
		return nil, err
	}
	return coupons(rows), nil
}

func (t *txStore) FindCoupon(ctx context.Context, userID int64, couponID string) (stamp.Coupon, bool, error) {
	var row couponRow
	found, err := t.get(ctx, &row, couponsTable, query.Request{
		Kind:       query.KindSelect,
		Conditions: query.Conditions{"user_id": userID, "coupon_id": couponID},
	})
	if err != nil || !found {
		return stamp.Coupon{}, false, err
	}
	return row.coupon(), true, nil
}

func (t *txStore) MarkCouponUsed(ctx context.Context, userID int64, couponID string, at time.Time) error {
	n, err := t.exec(ctx, couponsTable, query.Request{
		Kind:       query.KindUpdate,
		Conditions: query.Conditions{"user_id": userID, "coupon_id": couponID},
		Values:     query.Values{"used": true, "used_at": at.UTC()},
	})
	if err != nil {
		return fmt.Errorf("mark coupon used: %w", err)
	}
	if n == 0 {
		return &stamp.NotFoundError{Resource: "coupon", ID: couponID}
	}
	return nil
}

func coupons(rows []couponRow) []stamp.Coupon {
	out := make([]stamp.Coupon, len(rows))
	for i, r := range rows {
		out[i] = r.coupon()
	}
	return out
}

// =============================================================================
// ADMIN
// =============================================================================

func (t *txStore) CreateTenant(ctx context.Context, companyName string, doc tenant.Document) error {
	now := t.timestamp()
	n, err := t.exec(ctx, tenantsTable, query.Request{
		Kind: query.KindInsert,
		Values: query.Values{
			"company_name": companyName,
			"config":       string(doc.Bytes()),
			"is_active":    true,
			"created_at":   now,
			"updated_at":   now,
		},
		OnConflict: &query.OnConflict{Columns: []string{"tenant_id"}},
	})
	if err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: tenant %q already exists", stamp.ErrConflict, t.TenantID())
	}
	return nil
}

func (t *txStore) SaveTenantConfig(ctx context.Context, doc tenant.Document) error {
	n, err := t.exec(ctx, tenantsTable, query.Request{
		Kind: query.KindUpdate,
		Values: query.Values{
			"config":     string(doc.Bytes()),
			"updated_at": t.timestamp(),
		},
	})
	if err != nil {
		return fmt.Errorf("save tenant config: %w", err)
	}
	if n == 0 {
		return &stamp.NotFoundError{Resource: "tenant", ID: t.TenantID()}
	}
	return nil
}

func (t *txStore) ListStores(ctx context.Context) ([]stamp.Store, error) {
	var rows []storeRow
	if err := t.selectAll(ctx, &rows, storesTable, query.Request{
		Kind:   query.KindSelect,
		Suffix: "ORDER BY store_id",
	}); err != nil {
		return nil, err
	}
	out := make([]stamp.Store, len(rows))
	for i, r := range rows {
		out[i] = r.store()
	}
	return out, nil
}

func (t *txStore) UpsertStore(ctx context.Context, s stamp.Store) (stamp.Store, error) {
	now := t.timestamp()
	_, err := t.exec(ctx, storesTable, query.Request{
		Kind: query.KindInsert,
		Values: query.Values{
			"store_id":    s.ID,
			"name":        s.Name,
			"lat":         s.Lat,
			"lng":         s.Lng,
			"description": nullString(s.Description),
			"image_url":   nullString(s.ImageURL),
			"stamp_mark":  nullString(s.StampMark),
			"created_at":  now,
			"updated_at":  now,
		},
		OnConflict: &query.OnConflict{
			Columns: []string{"tenant_id", "store_id"},
			Update:  []string{"name", "lat", "lng", "description", "image_url", "stamp_mark", "updated_at"},
		},
	})
	if err != nil {
		return stamp.Store{}, fmt.Errorf("upsert store: %w", err)
	}
	saved, _, err := t.FindStore(ctx, s.ID)
	return saved, err
}

func (t *txStore) DeleteStore(ctx context.Context, storeID string) (bool, error) {
	n, err := t.exec(ctx, storesTable, query.Request{
		Kind:       query.KindDelete,
		Conditions: query.Conditions{"store_id": storeID},
	})
	if err != nil {
		return false, fmt.Errorf("delete store: %w", err)
	}
	return n > 0, nil
}

func (t *txStore) UpsertRewardRule(ctx context.Context, r stamp.RewardRule) (stamp.RewardRule, error) {
	now := t.timestamp()
	_, err := t.exec(ctx, rulesTable, query.Request{
		Kind: query.KindInsert,
		Values: query.Values{
			"threshold":  r.Threshold,
			"label":      r.Label,
			"icon":       nullString(r.Icon),
			"created_at": now,
			"updated_at": now,
		},
		OnConflict: &query.OnConflict{
			Columns: []string{"tenant_id", "threshold"},
			Update:  []string{"label", "icon", "updated_at"},
		},
	})
	if err != nil {
		return stamp.RewardRule{}, fmt.Errorf("upsert reward rule: %w", err)
	}
	var row ruleRow
	if _, err := t.get(ctx, &row, rulesTable, query.Request{
		Kind:       query.KindSelect,
		Conditions: query.Conditions{"threshold": r.Threshold},
	}); err != nil {
		return stamp.RewardRule{}, err
	}
	return row.rule(), nil
}

func (t *txStore) DeleteRewardRule(ctx context.Context, threshold int) (bool, error) {
	n, err := t.exec(ctx, rulesTable, query.Request{
		Kind:       query.KindDelete,
		Conditions: query.Conditions{"threshold": threshold},
	})
	if err != nil {
		return false, fmt.Errorf("delete reward rule: %w", err)
	}
	return n > 0, nil
}

// =============================================================================
// STATS
// =============================================================================

func (t *txStore) StampEventsSince(ctx context.Context, since time.Time) ([]stamp.StampEvent, error) {
	var rows []stampRow
	if err := t.selectAll(ctx, &rows, stampsTable, query.Request{
		Kind:      query.KindSelect,
		Where:     "stamped_at >= ?",
		WhereArgs: []any{since.UTC()},
		Suffix:    "ORDER BY stamped_at",
	}); err != nil {
		return nil, err
	}
	out := make([]stamp.StampEvent, len(rows))
	for i, r := range rows {
		out[i] = stamp.StampEvent{
			ID:        r.ID,
			UserID:    r.UserID,
			StoreID:   r.StoreID,
			TenantID:  r.TenantID,
			StampedAt: r.StampedAt,
		}
	}
	return out, nil
}

func (t *txStore) CouponsSince(ctx context.Context, since time.Time) ([]stamp.Coupon, error) {
	since = since.UTC()
	var rows []couponRow
	if err := t.selectAll(ctx, &rows, couponsTable, query.Request{
		Kind:      query.KindSelect,
		Where:     "(created_at >= ? OR used_at >= ?)",
		WhereArgs: []any{since, since},
		Suffix:    "ORDER BY created_at, id",
	}); err != nil {
		return nil, err
	}
	return coupons(rows), nil
}
