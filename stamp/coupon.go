package stamp

import (
	"fmt"
	"strconv"

	"github.com/warp/stamp-engine/tenant"
)

// CouponID is the deterministic id of the coupon for a rule threshold.
// It is a display key only; the threshold is stored in its own column.
func CouponID(tenantID string, threshold int) string {
	return "tenant-" + tenantID + "-rule-" + strconv.Itoa(threshold)
}

// thresholdDescription is the localized text stored at issuance.
func thresholdDescription(lang tenant.Language, threshold int) string {
	switch lang {
	case tenant.English:
		return fmt.Sprintf("Coupon unlocked at %d stamps", threshold)
	case tenant.Chinese:
		return fmt.Sprintf("集滿 %d 個印章獲得的優惠券", threshold)
	default:
		return fmt.Sprintf("%d個達成で獲得したクーポン", threshold)
	}
}

// ruleDescription is the live text shown while the rule exists.
func ruleDescription(lang tenant.Language, r RewardRule) string {
	if r.Label == "" {
		return thresholdDescription(lang, r.Threshold)
	}
	switch lang {
	case tenant.English:
		return fmt.Sprintf("%s (unlocked at %d stamps)", r.Label, r.Threshold)
	case tenant.Chinese:
		return fmt.Sprintf("%s（集滿 %d 個印章獲得）", r.Label, r.Threshold)
	default:
		return fmt.Sprintf("%s（%d個達成で獲得）", r.Label, r.Threshold)
	}
}

// rulesByThreshold indexes rules for view building.
func rulesByThreshold(rules []RewardRule) map[int]RewardRule {
	m := make(map[int]RewardRule, len(rules))
	for _, r := range rules {
		m[r.Threshold] = r
	}
	return m
}

// view renders a coupon for its owner. Rule coupons take description and
// icon from the current rule; the title stays as issued.
func view(c Coupon, lang tenant.Language, rules map[int]RewardRule) CouponView {
	v := CouponView{
		ID:          c.ID,
		TenantID:    c.TenantID,
		Title:       c.Title,
		Description: c.Description,
		Used:        c.Used,
	}
	if c.Threshold == nil {
		return v
	}
	if r, ok := rules[*c.Threshold]; ok {
		v.Description = ruleDescription(lang, r)
		v.Icon = r.Icon
	} else {
		v.Description = thresholdDescription(lang, *c.Threshold)
	}
	return v
}
