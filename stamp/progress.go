package stamp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/warp/stamp-engine/lib/sl"
	"github.com/warp/stamp-engine/tenant"
)

// GetProgress returns the caller's stamps, coupons and stamped stores. The
// only write is the lazy creation of a zero counter.
func (e *Engine) GetProgress(ctx context.Context, id Identity) (ProgressView, error) {
	if err := validateIdentity(id); err != nil {
		return ProgressView{}, err
	}
	now := e.now()

	var pv ProgressView
	err := e.Repo.WithTx(ctx, id.TenantID, func(tx Tx) error {
		p, err := e.ensureProgress(ctx, tx, id)
		if err != nil {
			return err
		}
		cfg, _, err := e.config(ctx, tx, now)
		if err != nil {
			return err
		}
		coupons, err := e.couponViews(ctx, tx, id.UserID, cfg.Language)
		if err != nil {
			return err
		}
		ids, err := tx.StampedStoreIDs(ctx, id.UserID)
		if err != nil {
			return fmt.Errorf("stamped stores: %w", err)
		}
		pv = ProgressView{
			TenantID:        id.TenantID,
			Stamps:          p.Stamps,
			Coupons:         coupons,
			StampedStoreIDs: ids,
		}
		return nil
	})
	if err != nil && !IsClientError(err) {
		e.log.Error("get progress failed", slog.String("tenant_id", id.TenantID), sl.Err(err))
	}
	return pv, err
}

func (e *Engine) couponViews(ctx context.Context, tx Tx, userID int64, lang tenant.Language) ([]CouponView, error) {
	coupons, err := tx.Coupons(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load coupons: %w", err)
	}
	rules, err := tx.RewardRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reward rules: %w", err)
	}
	current := rulesByThreshold(rules)
	views := make([]CouponView, 0, len(coupons))
	for _, c := range coupons {
		views = append(views, view(c, lang, current))
	}
	return views, nil
}

// MarkCouponUsed redeems a coupon. Redeeming an already used coupon is a
// no-op that still succeeds. The first redemption must fall inside the
// tenant's coupon-usage window.
func (e *Engine) MarkCouponUsed(ctx context.Context, id Identity, couponID string) (CouponView, error) {
	if err := validateIdentity(id); err != nil {
		return CouponView{}, err
	}
	couponID = strings.TrimSpace(couponID)
	if couponID == "" {
		return CouponView{}, &ValidationError{Field: "coupon_id", Message: "must not be empty"}
	}
	now := e.now()

	var cv CouponView
	err := e.Repo.WithTx(ctx, id.TenantID, func(tx Tx) error {
		c, found, err := tx.FindCoupon(ctx, id.UserID, couponID)
		if err != nil {
			return fmt.Errorf("find coupon: %w", err)
		}
		if !found {
			return &NotFoundError{Resource: "coupon", ID: couponID}
		}

		cfg, _, err := e.config(ctx, tx, now)
		if err != nil {
			return err
		}

		if !c.Used {
			if state := cfg.CouponUsage.Check(now); state != tenant.WindowOpen {
				return &ForbiddenError{Reason: "coupon usage window is " + state.String()}
			}
			if err := tx.MarkCouponUsed(ctx, id.UserID, couponID, now); err != nil {
				return fmt.Errorf("mark coupon used: %w", err)
			}
			c.Used = true
			c.UsedAt = &now
		}

		rules, err := tx.RewardRules(ctx)
		if err != nil {
			return fmt.Errorf("load reward rules: %w", err)
		}
		cv = view(c, cfg.Language, rulesByThreshold(rules))
		return nil
	})
	if err != nil {
		if !IsClientError(err) {
			e.log.Error("mark coupon used failed", slog.String("coupon_id", couponID), sl.Err(err))
		}
		return CouponView{}, err
	}
	return cv, nil
}
