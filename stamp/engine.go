/*
Package stamp records stamp visits and unlocks coupons.

PURPOSE:
  Engine is the core of the stamp rally. It consumes an authenticated
  Identity, checks eligibility against the tenant configuration, appends to
  the stamp ledger and issues coupons for every reward threshold reached.

STATE MACHINE (RecordStamp):
  1. store_not_found   store unknown for the tenant; nothing is written
  2. campaign closed   *CampaignClosedError; nothing is written
  3. already_stamped   ledger already has (user, store)
  4. stamped           ledger insert + counter increment + coupon issuance,
                       all in one transaction

RACES:
  Two concurrent attempts for the same (user, store) both pass step 3 only
  if neither has committed. The ledger's unique key rejects the second
  insert with ErrDuplicateStamp; the engine rolls back and answers
  already_stamped from a fresh transaction.

CLOCK:
  Now is read once per operation and reused for every check.

SEE ALSO:
  - repository.go: The transactional boundary
  - rewards.go: Threshold evaluation
  - progress.go: Read path and coupon redemption
*/
package stamp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/warp/stamp-engine/lib/sl"
	"github.com/warp/stamp-engine/tenant"
)

// Observer receives engine outcomes, e.g. for metrics.
type Observer interface {
	StampRecorded(tenantID string, status Status)
	StampRejected(tenantID string, reason string)
	CouponsIssued(tenantID string, n int)
}

type nopObserver struct{}

func (nopObserver) StampRecorded(string, Status) {}
func (nopObserver) StampRejected(string, string) {}
func (nopObserver) CouponsIssued(string, int)    {}

// Engine implements the stamp rally operations.
type Engine struct {
	Repo     Repository
	Resolver *tenant.Resolver
	Now      func() time.Time
	Observer Observer
	log      *slog.Logger
}

// NewEngine wires an engine. The resolver carries the default timezone.
func NewEngine(repo Repository, resolver *tenant.Resolver, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		Repo:     repo,
		Resolver: resolver,
		Now:      time.Now,
		Observer: nopObserver{},
		log:      log.With(sl.Module("stamp.engine")),
	}
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Engine) observer() Observer {
	if e.Observer == nil {
		return nopObserver{}
	}
	return e.Observer
}

func validateIdentity(id Identity) error {
	if strings.TrimSpace(id.TenantID) == "" {
		return &ValidationError{Field: "tenant_id", Message: "must not be empty"}
	}
	if id.UserID <= 0 {
		return &ValidationError{Field: "user_id", Message: "must be positive"}
	}
	return nil
}

// =============================================================================
// RECORD STAMP
// =============================================================================

// RecordStamp records a visit of the caller to storeID.
func (e *Engine) RecordStamp(ctx context.Context, id Identity, storeID string) (StampResult, error) {
	if err := validateIdentity(id); err != nil {
		return StampResult{}, err
	}
	storeID = strings.TrimSpace(storeID)
	if storeID == "" {
		return StampResult{}, &ValidationError{Field: "store_id", Message: "must not be empty"}
	}

	now := e.now()
	log := e.log.With(
		slog.String("tenant_id", id.TenantID),
		slog.Int64("user_id", id.UserID),
		slog.String("store_id", storeID),
	)

	var res StampResult
	err := e.Repo.WithTx(ctx, id.TenantID, func(tx Tx) error {
		var err error
		res, err = e.recordStamp(ctx, tx, id, storeID, now)
		return err
	})

	if errors.Is(err, ErrDuplicateStamp) {
		log.Debug("concurrent stamp detected, answering already_stamped")
		err = e.Repo.WithTx(ctx, id.TenantID, func(tx Tx) error {
			var err error
			res, err = e.stampResult(ctx, tx, id, StatusAlreadyStamped)
			return err
		})
	}

	if err != nil {
		var closed *CampaignClosedError
		switch {
		case errors.As(err, &closed):
			log.Info("stamp rejected", slog.String("window", closed.State.String()))
			e.observer().StampRejected(id.TenantID, "campaign_"+closed.State.String())
		case IsClientError(err):
			log.Info("stamp rejected", sl.Err(err))
			e.observer().StampRejected(id.TenantID, "client_error")
		default:
			log.Error("stamp failed", sl.Err(err))
			e.observer().StampRejected(id.TenantID, "error")
		}
		return StampResult{}, err
	}

	e.observer().StampRecorded(id.TenantID, res.Status)
	if n := len(res.NewCoupons); n > 0 {
		e.observer().CouponsIssued(id.TenantID, n)
		log.Info("coupons issued", slog.Int("count", n), slog.Int("stamps", res.Stamps))
	}
	return res, nil
}

func (e *Engine) recordStamp(ctx context.Context, tx Tx, id Identity, storeID string, now time.Time) (StampResult, error) {
	_, found, err := tx.FindStore(ctx, storeID)
	if err != nil {
		return StampResult{}, fmt.Errorf("find store: %w", err)
	}
	if !found {
		return e.stampResult(ctx, tx, id, StatusStoreNotFound)
	}

	cfg, _, err := e.config(ctx, tx, now)
	if err != nil {
		return StampResult{}, err
	}
	if state := cfg.Campaign.Check(now); state != tenant.WindowOpen {
		return StampResult{}, campaignClosed(cfg, state)
	}

	if _, err := e.ensureProgress(ctx, tx, id); err != nil {
		return StampResult{}, err
	}

	stamped, err := tx.HasStamp(ctx, id.UserID, storeID)
	if err != nil {
		return StampResult{}, fmt.Errorf("check stamp: %w", err)
	}
	if stamped {
		return e.stampResult(ctx, tx, id, StatusAlreadyStamped)
	}

	ev := StampEvent{
		ID:        uuid.New(),
		UserID:    id.UserID,
		StoreID:   storeID,
		TenantID:  id.TenantID,
		StampedAt: now,
	}
	if err := tx.InsertStamp(ctx, ev); err != nil {
		return StampResult{}, err
	}

	count, err := tx.IncrementProgress(ctx, id.UserID)
	if err != nil {
		return StampResult{}, fmt.Errorf("increment progress: %w", err)
	}

	issued, err := e.evaluateRewards(ctx, tx, id, count, cfg.Language, now)
	if err != nil {
		return StampResult{}, err
	}

	ids, err := tx.StampedStoreIDs(ctx, id.UserID)
	if err != nil {
		return StampResult{}, fmt.Errorf("stamped stores: %w", err)
	}

	return StampResult{
		Status:          StatusStamped,
		Stamps:          count,
		NewCoupons:      issued,
		StampedStoreIDs: ids,
	}, nil
}

// stampResult answers with the current state and writes nothing.
func (e *Engine) stampResult(ctx context.Context, tx Tx, id Identity, status Status) (StampResult, error) {
	p, _, err := tx.Progress(ctx, id.UserID)
	if err != nil {
		return StampResult{}, fmt.Errorf("load progress: %w", err)
	}
	ids, err := tx.StampedStoreIDs(ctx, id.UserID)
	if err != nil {
		return StampResult{}, fmt.Errorf("stamped stores: %w", err)
	}
	return StampResult{
		Status:          status,
		Stamps:          p.Stamps,
		NewCoupons:      []CouponView{},
		StampedStoreIDs: ids,
	}, nil
}

// ensureProgress lazily creates the counter and checks it belongs to the
// caller's tenant.
func (e *Engine) ensureProgress(ctx context.Context, tx Tx, id Identity) (Progress, error) {
	if err := tx.EnsureProgress(ctx, id.UserID); err != nil {
		return Progress{}, fmt.Errorf("ensure progress: %w", err)
	}
	p, ok, err := tx.Progress(ctx, id.UserID)
	if err != nil {
		return Progress{}, fmt.Errorf("load progress: %w", err)
	}
	if !ok {
		return Progress{}, &ForbiddenError{Reason: "user does not belong to this tenant"}
	}
	return p, nil
}

// =============================================================================
// TENANT CONFIG
// =============================================================================

// config resolves the bound tenant's configuration. A missing tenant row
// yields the defaults; found reports whether the row exists.
func (e *Engine) config(ctx context.Context, tx Tx, now time.Time) (tenant.Config, bool, error) {
	t, found, err := tx.LoadTenant(ctx)
	if err != nil {
		return tenant.Config{}, false, fmt.Errorf("load tenant: %w", err)
	}
	if !found {
		return e.Resolver.Resolve(tx.TenantID(), "", tenant.Document{}, now), false, nil
	}
	if !t.Config.Valid() {
		e.log.Warn("invalid tenant config document", slog.String("tenant_id", t.ID))
	}
	return e.Resolver.Resolve(t.ID, t.CompanyName, t.Config, now), true, nil
}

// ResolveTenantConfig returns the normalized configuration of a tenant.
func (e *Engine) ResolveTenantConfig(ctx context.Context, tenantID string) (tenant.Config, error) {
	if strings.TrimSpace(tenantID) == "" {
		return tenant.Config{}, &ValidationError{Field: "tenant_id", Message: "must not be empty"}
	}
	now := e.now()
	var cfg tenant.Config
	err := e.Repo.WithTx(ctx, tenantID, func(tx Tx) error {
		c, found, err := e.config(ctx, tx, now)
		if err != nil {
			return err
		}
		if !found {
			return &NotFoundError{Resource: "tenant", ID: tenantID}
		}
		cfg = c
		return nil
	})
	return cfg, err
}
