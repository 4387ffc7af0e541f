package stamp_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/stamp-engine/stamp"
	"github.com/warp/stamp-engine/store/sqlstore"
	"github.com/warp/stamp-engine/tenant"
)

var now = time.Date(2024, 6, 15, 3, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

type fixture struct {
	engine *stamp.Engine
	store  *sqlstore.Store
	clock  time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := sqlstore.Open(context.Background(), "sqlite3", ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	f := &fixture{store: st, clock: now}
	f.engine = stamp.NewEngine(st, tenant.NewResolver(""), nil)
	f.engine.Now = func() time.Time { return f.clock }
	return f
}

// tenantWithStores registers a tenant and its stores.
func (f *fixture) tenantWithStores(t *testing.T, tenantID string, storeIDs ...string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.engine.CreateTenant(ctx, stamp.Registration{TenantID: tenantID, CompanyName: tenantID})
	require.NoError(t, err)
	for _, id := range storeIDs {
		_, err := f.engine.UpsertStore(ctx, tenantID, stamp.Store{ID: id, Name: "Store " + id})
		require.NoError(t, err)
	}
}

func (f *fixture) rule(t *testing.T, tenantID string, threshold int, label, icon string) {
	t.Helper()
	_, err := f.engine.UpsertRewardRule(context.Background(), tenantID, stamp.RewardRule{
		Threshold: threshold, Label: label, Icon: icon,
	})
	require.NoError(t, err)
}

func (f *fixture) countStamps(t *testing.T, id stamp.Identity) int {
	t.Helper()
	var n int
	err := f.store.WithTx(context.Background(), id.TenantID, func(tx stamp.Tx) error {
		var err error
		n, err = tx.CountStamps(context.Background(), id.UserID)
		return err
	})
	require.NoError(t, err)
	return n
}

// =============================================================================
// RECORD STAMP
// =============================================================================

func TestRecordStamp_ThresholdIssuesCouponOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// GIVEN: a rule {threshold: 3, label: "Free coffee"}
	f.tenantWithStores(t, "t1", "A", "B", "C", "D")
	f.rule(t, "t1", 3, "Free coffee", "cup")
	u1 := stamp.Identity{TenantID: "t1", UserID: 1}

	// WHEN: the user stamps A, B, C in sequence
	var res stamp.StampResult
	for i, store := range []string{"A", "B", "C"} {
		var err error
		res, err = f.engine.RecordStamp(ctx, u1, store)
		require.NoError(t, err)
		assert.Equal(t, stamp.StatusStamped, res.Status)
		assert.Equal(t, i+1, res.Stamps)
	}

	// THEN: the third stamp issues the coupon
	require.Len(t, res.NewCoupons, 1)
	assert.Equal(t, "Free coffee", res.NewCoupons[0].Title)
	assert.Equal(t, stamp.CouponID("t1", 3), res.NewCoupons[0].ID)
	assert.Equal(t, "cup", res.NewCoupons[0].Icon)
	assert.Equal(t, []string{"A", "B", "C"}, res.StampedStoreIDs)

	// WHEN: a fourth store is stamped
	res, err := f.engine.RecordStamp(ctx, u1, "D")
	require.NoError(t, err)

	// THEN: nothing new is issued
	assert.Equal(t, 4, res.Stamps)
	assert.NotNil(t, res.NewCoupons)
	assert.Empty(t, res.NewCoupons)
}

func TestRecordStamp_RepeatVisitIsAlreadyStamped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tenantWithStores(t, "t1", "A")
	f.rule(t, "t1", 1, "Welcome", "")
	u1 := stamp.Identity{TenantID: "t1", UserID: 1}

	first, err := f.engine.RecordStamp(ctx, u1, "A")
	require.NoError(t, err)
	require.Len(t, first.NewCoupons, 1)

	again, err := f.engine.RecordStamp(ctx, u1, "A")
	require.NoError(t, err)
	assert.Equal(t, stamp.StatusAlreadyStamped, again.Status)
	assert.Equal(t, 1, again.Stamps)
	assert.Empty(t, again.NewCoupons)
	assert.Equal(t, []string{"A"}, again.StampedStoreIDs)
	assert.Equal(t, 1, f.countStamps(t, u1))
}

// lateCheckRepo hides existing ledger rows from HasStamp, so a repeat visit
// reaches the insert the way a concurrent attempt that lost the race does.
type lateCheckRepo struct{ *sqlstore.Store }

func (r lateCheckRepo) WithTx(ctx context.Context, tenantID string, fn func(stamp.Tx) error) error {
	return r.Store.WithTx(ctx, tenantID, func(tx stamp.Tx) error {
		return fn(lateCheckTx{tx})
	})
}

type lateCheckTx struct{ stamp.Tx }

func (lateCheckTx) HasStamp(context.Context, int64, string) (bool, error) { return false, nil }

func TestRecordStamp_DuplicateInsertAnswersAlreadyStamped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tenantWithStores(t, "t1", "A")
	f.rule(t, "t1", 1, "Welcome", "")
	u1 := stamp.Identity{TenantID: "t1", UserID: 1}

	// GIVEN: the user already holds a stamp for A
	first, err := f.engine.RecordStamp(ctx, u1, "A")
	require.NoError(t, err)
	require.Equal(t, stamp.StatusStamped, first.Status)
	require.Len(t, first.NewCoupons, 1)

	// WHEN: a second attempt passes the existence check and hits the ledger's unique key
	racing := stamp.NewEngine(lateCheckRepo{f.store}, tenant.NewResolver(""), nil)
	racing.Now = func() time.Time { return f.clock }
	res, err := racing.RecordStamp(ctx, u1, "A")

	// THEN: the duplicate is answered as already stamped and nothing changes
	require.NoError(t, err)
	assert.Equal(t, stamp.StatusAlreadyStamped, res.Status)
	assert.Equal(t, 1, res.Stamps)
	assert.Empty(t, res.NewCoupons)
	assert.Equal(t, []string{"A"}, res.StampedStoreIDs)
	assert.Equal(t, 1, f.countStamps(t, u1))

	pv, err := f.engine.GetProgress(ctx, u1)
	require.NoError(t, err)
	assert.Equal(t, 1, pv.Stamps)
	assert.Len(t, pv.Coupons, 1)
}

func TestRecordStamp_UnknownStoreChangesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tenantWithStores(t, "t1", "A")
	u1 := stamp.Identity{TenantID: "t1", UserID: 1}

	res, err := f.engine.RecordStamp(ctx, u1, "nope")
	require.NoError(t, err)
	assert.Equal(t, stamp.StatusStoreNotFound, res.Status)
	assert.Equal(t, 0, res.Stamps)
	assert.Empty(t, res.StampedStoreIDs)
	assert.Equal(t, 0, f.countStamps(t, u1))
}

func TestRecordStamp_StoreOfAnotherTenantIsNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tenantWithStores(t, "t1", "A")
	f.tenantWithStores(t, "t2", "Z")

	res, err := f.engine.RecordStamp(ctx, stamp.Identity{TenantID: "t1", UserID: 1}, "Z")
	require.NoError(t, err)
	assert.Equal(t, stamp.StatusStoreNotFound, res.Status)
}

func TestRecordStamp_CampaignWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tenantWithStores(t, "t1", "A", "B")
	u1 := stamp.Identity{TenantID: "t1", UserID: 1}

	// GIVEN: a campaign from 2024-06-01 to 2024-06-30 in UTC+09:00
	_, err := f.engine.UpdateCampaign(ctx, "t1", tenant.CampaignUpdate{
		CampaignStart: ptr("2024-06-01"),
		CampaignEnd:   ptr("2024-06-30"),
		Timezone:      ptr("UTC+09:00"),
		Language:      ptr("en"),
	})
	require.NoError(t, err)
	jst := time.FixedZone("UTC+09:00", 9*3600)

	// WHEN: the last second of the window
	f.clock = time.Date(2024, 6, 30, 23, 59, 59, 0, jst)
	res, err := f.engine.RecordStamp(ctx, u1, "A")

	// THEN: the stamp is accepted
	require.NoError(t, err)
	assert.Equal(t, stamp.StatusStamped, res.Status)

	// WHEN: midnight after the end date
	f.clock = time.Date(2024, 7, 1, 0, 0, 0, 0, jst)
	_, err = f.engine.RecordStamp(ctx, u1, "B")

	// THEN: rejected as forbidden with no ledger row
	require.Error(t, err)
	assert.ErrorIs(t, err, stamp.ErrForbidden)
	var closed *stamp.CampaignClosedError
	require.True(t, errors.As(err, &closed))
	assert.Equal(t, tenant.WindowEnded, closed.State)
	assert.Equal(t, "The campaign has ended, so stamps can no longer be collected.", closed.Message)
	assert.Equal(t, 1, f.countStamps(t, u1))

	// WHEN: before the start
	f.clock = time.Date(2024, 5, 31, 23, 59, 59, 0, jst)
	_, err = f.engine.RecordStamp(ctx, stamp.Identity{TenantID: "t1", UserID: 2}, "A")
	require.True(t, errors.As(err, &closed))
	assert.Equal(t, tenant.WindowNotStarted, closed.State)
}

func TestRecordStamp_UserOfAnotherTenantIsForbidden(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tenantWithStores(t, "t1", "A")
	f.tenantWithStores(t, "t2", "A")

	_, err := f.engine.RecordStamp(ctx, stamp.Identity{TenantID: "t1", UserID: 1}, "A")
	require.NoError(t, err)

	_, err = f.engine.RecordStamp(ctx, stamp.Identity{TenantID: "t2", UserID: 1}, "A")
	assert.ErrorIs(t, err, stamp.ErrForbidden)
	assert.Equal(t, stamp.ClassForbidden, stamp.Classify(err))
}

func TestRecordStamp_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := map[string]struct {
		id      stamp.Identity
		storeID string
	}{
		"empty tenant":   {stamp.Identity{UserID: 1}, "A"},
		"zero user":      {stamp.Identity{TenantID: "t1"}, "A"},
		"blank store id": {stamp.Identity{TenantID: "t1", UserID: 1}, "  "},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.engine.RecordStamp(ctx, tt.id, tt.storeID)
			assert.ErrorIs(t, err, stamp.ErrValidation)
			assert.True(t, stamp.IsClientError(err))
		})
	}
}

func TestRecordStamp_MissingTenantRowUsesDefaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// a store without a tenant row: the campaign has no window
	_, err := f.engine.UpsertStore(ctx, "ghost", stamp.Store{ID: "A", Name: "A"})
	require.NoError(t, err)

	res, err := f.engine.RecordStamp(ctx, stamp.Identity{TenantID: "ghost", UserID: 1}, "A")
	require.NoError(t, err)
	assert.Equal(t, stamp.StatusStamped, res.Status)
}

func TestRecordStamp_ConcurrentSameStore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tenantWithStores(t, "t1", "A")
	f.rule(t, "t1", 1, "Welcome", "")
	u1 := stamp.Identity{TenantID: "t1", UserID: 1}

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		statuses = map[stamp.Status]int{}
		coupons  int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.engine.RecordStamp(ctx, u1, "A")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			statuses[res.Status]++
			coupons += len(res.NewCoupons)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, statuses[stamp.StatusStamped])
	assert.Equal(t, workers-1, statuses[stamp.StatusAlreadyStamped])
	assert.Equal(t, 1, coupons)

	pv, err := f.engine.GetProgress(ctx, u1)
	require.NoError(t, err)
	assert.Equal(t, 1, pv.Stamps)
	assert.Len(t, pv.Coupons, 1)
}

func TestRecordStamp_ConcurrentStoresKeepCountConsistent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	stores := []string{"A", "B", "C", "D", "E", "F"}
	f.tenantWithStores(t, "t1", stores...)
	f.rule(t, "t1", 3, "Coffee", "")
	f.rule(t, "t1", 6, "Cake", "")
	u1 := stamp.Identity{TenantID: "t1", UserID: 1}

	var wg sync.WaitGroup
	for _, s := range stores {
		wg.Add(1)
		go func(storeID string) {
			defer wg.Done()
			_, err := f.engine.RecordStamp(ctx, u1, storeID)
			assert.NoError(t, err)
		}(s)
	}
	wg.Wait()

	pv, err := f.engine.GetProgress(ctx, u1)
	require.NoError(t, err)
	assert.Equal(t, len(stores), pv.Stamps)
	assert.Equal(t, pv.Stamps, f.countStamps(t, u1))
	assert.ElementsMatch(t, stores, pv.StampedStoreIDs)
	assert.Len(t, pv.Coupons, 2)
}

// =============================================================================
// PROGRESS AND COUPONS
// =============================================================================

func TestGetProgress_NewUserStartsAtZero(t *testing.T) {
	f := newFixture(t)
	f.tenantWithStores(t, "t1")

	pv, err := f.engine.GetProgress(context.Background(), stamp.Identity{TenantID: "t1", UserID: 3})
	require.NoError(t, err)
	assert.Equal(t, "t1", pv.TenantID)
	assert.Equal(t, 0, pv.Stamps)
	assert.Empty(t, pv.Coupons)
	assert.NotNil(t, pv.StampedStoreIDs)
}

func TestGetProgress_CouponFollowsCurrentRule(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tenantWithStores(t, "t1", "A")
	_, err := f.engine.UpdateCampaign(ctx, "t1", tenant.CampaignUpdate{Language: ptr("en")})
	require.NoError(t, err)
	f.rule(t, "t1", 1, "Coffee", "cup")
	u1 := stamp.Identity{TenantID: "t1", UserID: 1}

	res, err := f.engine.RecordStamp(ctx, u1, "A")
	require.NoError(t, err)
	require.Len(t, res.NewCoupons, 1)
	assert.Equal(t, "Coffee (unlocked at 1 stamps)", res.NewCoupons[0].Description)

	// WHEN: the rule is relabelled
	f.rule(t, "t1", 1, "Latte", "mug")
	pv, err := f.engine.GetProgress(ctx, u1)
	require.NoError(t, err)
	require.Len(t, pv.Coupons, 1)

	// THEN: the title stays, description and icon follow the rule
	assert.Equal(t, "Coffee", pv.Coupons[0].Title)
	assert.Equal(t, "Latte (unlocked at 1 stamps)", pv.Coupons[0].Description)
	assert.Equal(t, "mug", pv.Coupons[0].Icon)

	// WHEN: the rule is deleted
	require.NoError(t, f.engine.DeleteRewardRule(ctx, "t1", 1))
	pv, err = f.engine.GetProgress(ctx, u1)
	require.NoError(t, err)

	// THEN: the coupon remains with the threshold text
	require.Len(t, pv.Coupons, 1)
	assert.Equal(t, "Coupon unlocked at 1 stamps", pv.Coupons[0].Description)
	assert.Empty(t, pv.Coupons[0].Icon)
}

func TestMarkCouponUsed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tenantWithStores(t, "t1", "A")
	f.rule(t, "t1", 1, "Coffee", "")
	u1 := stamp.Identity{TenantID: "t1", UserID: 1}
	_, err := f.engine.RecordStamp(ctx, u1, "A")
	require.NoError(t, err)
	couponID := stamp.CouponID("t1", 1)

	cv, err := f.engine.MarkCouponUsed(ctx, u1, couponID)
	require.NoError(t, err)
	assert.True(t, cv.Used)

	// marking twice succeeds
	cv, err = f.engine.MarkCouponUsed(ctx, u1, couponID)
	require.NoError(t, err)
	assert.True(t, cv.Used)

	_, err = f.engine.MarkCouponUsed(ctx, u1, "missing")
	assert.True(t, stamp.IsNotFound(err))

	_, err = f.engine.MarkCouponUsed(ctx, stamp.Identity{TenantID: "t1", UserID: 2}, couponID)
	assert.True(t, stamp.IsNotFound(err))
}

func TestMarkCouponUsed_OutsideUsageWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tenantWithStores(t, "t1", "A")
	f.rule(t, "t1", 1, "Coffee", "")
	u1 := stamp.Identity{TenantID: "t1", UserID: 1}
	_, err := f.engine.RecordStamp(ctx, u1, "A")
	require.NoError(t, err)

	// GIVEN: coupons redeemable only in July
	_, err = f.engine.UpdateCampaign(ctx, "t1", tenant.CampaignUpdate{
		CouponUsageMode:  ptr("custom"),
		CouponUsageStart: ptr("2024-07-01"),
		CouponUsageEnd:   ptr("2024-07-31"),
	})
	require.NoError(t, err)

	_, err = f.engine.MarkCouponUsed(ctx, u1, stamp.CouponID("t1", 1))
	assert.ErrorIs(t, err, stamp.ErrForbidden)

	f.clock = time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC)
	cv, err := f.engine.MarkCouponUsed(ctx, u1, stamp.CouponID("t1", 1))
	require.NoError(t, err)
	assert.True(t, cv.Used)
}

// =============================================================================
// ADMINISTRATION
// =============================================================================

func TestCreateTenant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	cfg, err := f.engine.CreateTenant(ctx, stamp.Registration{CompanyName: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, "acme", cfg.TenantID)
	assert.Equal(t, "Acme", cfg.Name)
	assert.Equal(t, tenant.FallbackTimezone, cfg.TimezoneLabel)
	assert.Equal(t, tenant.DefaultLanguage, cfg.Language)

	_, err = f.engine.CreateTenant(ctx, stamp.Registration{CompanyName: "ACME"})
	assert.ErrorIs(t, err, stamp.ErrConflict)

	_, err = f.engine.CreateTenant(ctx, stamp.Registration{CompanyName: "Bad Name!"})
	assert.ErrorIs(t, err, stamp.ErrValidation)

	seed, err := f.engine.TenantSeed(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", seed.Config.TenantID)
	assert.Empty(t, seed.Rules)

	_, err = f.engine.TenantSeed(ctx, "nobody")
	assert.True(t, stamp.IsNotFound(err))

	_, err = f.engine.ResolveTenantConfig(ctx, "nobody")
	assert.True(t, stamp.IsNotFound(err))
}

func TestUpdateCampaign(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tenantWithStores(t, "t1")

	cfg, err := f.engine.UpdateCampaign(ctx, "t1", tenant.CampaignUpdate{
		Timezone:  ptr("Asia/Kolkata"),
		MaxStamps: ptr(12),
	})
	require.NoError(t, err)
	assert.Equal(t, "UTC+05:30", cfg.TimezoneLabel)
	require.NotNil(t, cfg.MaxStampCount)
	assert.Equal(t, 12, *cfg.MaxStampCount)

	_, err = f.engine.UpdateCampaign(ctx, "t1", tenant.CampaignUpdate{MaxStamps: ptr(0)})
	assert.ErrorIs(t, err, tenant.ErrInvalidConfig)
	assert.Equal(t, stamp.ClassValidation, stamp.Classify(err))

	_, err = f.engine.UpdateCampaign(ctx, "nobody", tenant.CampaignUpdate{})
	assert.True(t, stamp.IsNotFound(err))

	resolved, err := f.engine.ResolveTenantConfig(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "UTC+05:30", resolved.TimezoneLabel)
}

func TestStoreAdministration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tenantWithStores(t, "t1")

	saved, err := f.engine.UpsertStore(ctx, "t1", stamp.Store{
		Name: "Tokyo Station",
		Lat:  decimal.RequireFromString("35.681236"),
		Lng:  decimal.RequireFromString("139.767125"),
	})
	require.NoError(t, err)
	assert.Equal(t, "tokyo-station", saved.ID)

	_, err = f.engine.UpsertStore(ctx, "t1", stamp.Store{Name: "Pole", Lat: decimal.NewFromInt(91)})
	assert.ErrorIs(t, err, stamp.ErrValidation)

	_, err = f.engine.UpsertStore(ctx, "t1", stamp.Store{Name: " "})
	assert.ErrorIs(t, err, stamp.ErrValidation)

	require.NoError(t, f.engine.DeleteStore(ctx, "t1", "tokyo-station"))
	assert.True(t, stamp.IsNotFound(f.engine.DeleteStore(ctx, "t1", "tokyo-station")))
}

func TestRewardRuleAdministration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.engine.UpsertRewardRule(ctx, "t1", stamp.RewardRule{Threshold: 0, Label: "x"})
	assert.ErrorIs(t, err, stamp.ErrValidation)

	_, err = f.engine.UpsertRewardRule(ctx, "t1", stamp.RewardRule{Threshold: 2, Label: ""})
	assert.ErrorIs(t, err, stamp.ErrValidation)

	assert.True(t, stamp.IsNotFound(f.engine.DeleteRewardRule(ctx, "t1", 9)))
}

func TestEarned(t *testing.T) {
	rules := []stamp.RewardRule{{Threshold: 5}, {Threshold: 1}, {Threshold: 3}}

	got := stamp.Earned(rules, 3)

	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Threshold)
	assert.Equal(t, 3, got[1].Threshold)
	assert.Equal(t, 5, rules[0].Threshold, "input is not reordered")
	assert.Empty(t, stamp.Earned(rules, 0))
}

func TestStoreIdentifier(t *testing.T) {
	assert.Equal(t, "explicit", stamp.StoreIdentifier("Name", " explicit "))
	assert.Equal(t, "blue-bottle-cafe", stamp.StoreIdentifier("  Blue Bottle Cafe!", ""))
	assert.Len(t, stamp.StoreIdentifier("喫茶店", ""), 8)
}

// =============================================================================
// DASHBOARD
// =============================================================================

func TestDashboardStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tenantWithStores(t, "t1", "A", "B")
	f.rule(t, "t1", 2, "Coffee", "")

	// GIVEN: stamps on two tenant-local days (UTC+09:00)
	f.clock = time.Date(2024, 6, 14, 12, 0, 0, 0, time.UTC)
	_, err := f.engine.RecordStamp(ctx, stamp.Identity{TenantID: "t1", UserID: 1}, "A")
	require.NoError(t, err)

	f.clock = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	_, err = f.engine.RecordStamp(ctx, stamp.Identity{TenantID: "t1", UserID: 1}, "B")
	require.NoError(t, err)
	_, err = f.engine.RecordStamp(ctx, stamp.Identity{TenantID: "t1", UserID: 2}, "A")
	require.NoError(t, err)
	f.rule(t, "t1", 2, "Free coffee", "")

	// WHEN
	stats, err := f.engine.DashboardStats(ctx, "t1", 2)

	// THEN
	require.NoError(t, err)
	assert.Equal(t, "2024-06-14", stats.RangeStart)
	assert.Equal(t, "2024-06-15", stats.RangeEnd)
	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, 3, stats.TotalStamps)
	assert.Equal(t, []stamp.DailyCount{{Date: "2024-06-14", Count: 1}, {Date: "2024-06-15", Count: 2}}, stats.DailyStamps)
	assert.Equal(t, []stamp.DailyCount{{Date: "2024-06-14", Count: 1}, {Date: "2024-06-15", Count: 2}}, stats.DailyUsers)

	require.Len(t, stats.Coupons, 1)
	assert.Equal(t, "Free coffee", stats.Coupons[0].Title)
	assert.Equal(t, 1, stats.Coupons[0].TotalAcquired)
	assert.Equal(t, 0, stats.Coupons[0].TotalUsed)
}

func TestDashboardStats_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, days := range []int{0, stamp.MaxStatsDays + 1} {
		_, err := f.engine.DashboardStats(ctx, "t1", days)
		assert.ErrorIs(t, err, stamp.ErrValidation)
	}

	_, err := f.engine.DashboardStats(ctx, "nobody", stamp.DefaultStatsDays)
	assert.True(t, stamp.IsNotFound(err))
}
