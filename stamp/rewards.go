package stamp

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/warp/stamp-engine/tenant"
)

// Earned returns the rules reached by stamps, in ascending threshold order.
func Earned(rules []RewardRule, stamps int) []RewardRule {
	sorted := make([]RewardRule, len(rules))
	copy(sorted, rules)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Threshold < sorted[j].Threshold })

	var earned []RewardRule
	for _, r := range sorted {
		if r.Threshold > stamps {
			break
		}
		earned = append(earned, r)
	}
	return earned
}

// evaluateRewards issues a coupon for every earned rule the user does not
// hold yet and returns the newly issued ones. Inserts skip on conflict, so
// re-running the evaluation never duplicates a coupon.
func (e *Engine) evaluateRewards(ctx context.Context, tx CouponTx, id Identity, stamps int, lang tenant.Language, now time.Time) ([]CouponView, error) {
	rules, err := tx.RewardRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reward rules: %w", err)
	}
	held, err := tx.CouponIDs(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("load coupon ids: %w", err)
	}

	current := rulesByThreshold(rules)
	issued := []CouponView{}
	for _, r := range Earned(rules, stamps) {
		couponID := CouponID(id.TenantID, r.Threshold)
		if held[couponID] {
			continue
		}
		threshold := r.Threshold
		c := Coupon{
			ID:          couponID,
			UserID:      id.UserID,
			TenantID:    id.TenantID,
			Threshold:   &threshold,
			Title:       r.Label,
			Description: thresholdDescription(lang, r.Threshold),
			CreatedAt:   now,
		}
		inserted, err := tx.InsertCoupon(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("issue coupon %s: %w", couponID, err)
		}
		if !inserted {
			continue
		}
		issued = append(issued, view(c, lang, current))
	}
	return issued, nil
}
