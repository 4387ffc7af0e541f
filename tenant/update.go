package tenant

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Bounds on the configurable stamp card size.
const (
	MinMaxStamps = 1
	MaxMaxStamps = 200
)

// CampaignUpdate is an administrative change to a tenant's campaign. Nil
// fields are left untouched.
type CampaignUpdate struct {
	CampaignStart       *string
	CampaignEnd         *string
	CampaignDescription *string
	BackgroundImageURL  *string
	StampImageURL       *string
	ThemeColor          *string
	Timezone            *string
	Language            *string
	CouponUsageMode     *string
	CouponUsageStart    *string
	CouponUsageEnd      *string
	MaxStamps           *int
	ClearMaxStamps      bool
}

// Apply validates u and returns the updated document. The timezone and
// language keys are always rewritten in normalized form.
func (r *Resolver) Apply(doc Document, u CampaignUpdate, now time.Time) (Document, error) {
	cfg := map[string]any{}
	if err := json.Unmarshal(doc.Bytes(), &cfg); err != nil {
		return Document{}, fmt.Errorf("decode tenant config: %w", err)
	}

	setString := func(key string, v *string) {
		if v == nil {
			return
		}
		if s := strings.TrimSpace(*v); s != "" {
			cfg[key] = s
		} else {
			cfg[key] = nil
		}
	}
	setString("campaignStart", u.CampaignStart)
	setString("campaignEnd", u.CampaignEnd)
	setString("campaignDescription", u.CampaignDescription)
	setString("backgroundImageUrl", u.BackgroundImageURL)
	setString("stampImageUrl", u.StampImageURL)

	if u.ThemeColor != nil {
		theme, err := validateTheme(*u.ThemeColor)
		if err != nil {
			return Document{}, err
		}
		cfg["themeColor"] = theme
	}

	if u.Timezone != nil {
		if strings.TrimSpace(*u.Timezone) == "" {
			cfg["campaignTimezone"] = r.defaultLabel
		} else {
			label, err := ValidateTimezone(*u.Timezone, now)
			if err != nil {
				return Document{}, err
			}
			cfg["campaignTimezone"] = label
		}
	}

	if u.Language != nil {
		lang, err := ValidateLanguage(*u.Language)
		if err != nil {
			return Document{}, err
		}
		cfg["language"] = string(lang)
	}

	if u.CouponUsageMode != nil {
		mode, err := validateUsageMode(*u.CouponUsageMode)
		if err != nil {
			return Document{}, err
		}
		cfg["couponUsageMode"] = string(mode)
		if mode != UsageCustom {
			delete(cfg, "couponUsageStart")
			delete(cfg, "couponUsageEnd")
		}
	}
	setString("couponUsageStart", u.CouponUsageStart)
	setString("couponUsageEnd", u.CouponUsageEnd)

	switch {
	case u.ClearMaxStamps:
		delete(cfg, "maxStampCount")
	case u.MaxStamps != nil:
		if *u.MaxStamps < MinMaxStamps || *u.MaxStamps > MaxMaxStamps {
			return Document{}, &ValidationError{
				Field:   "max_stamps",
				Message: fmt.Sprintf("must be between %d and %d", MinMaxStamps, MaxMaxStamps),
			}
		}
		cfg["maxStampCount"] = *u.MaxStamps
	}

	// Normalize what older documents may carry in legacy form.
	tz, _ := cfg["campaignTimezone"].(string)
	if tz == "" {
		tz, _ = cfg["campaign_timezone"].(string)
	}
	cfg["campaignTimezone"] = r.Label(tz, now)
	lang, _ := cfg["language"].(string)
	cfg["language"] = string(NormalizeLanguage(lang))

	out, err := json.Marshal(cfg)
	if err != nil {
		return Document{}, fmt.Errorf("encode tenant config: %w", err)
	}
	next := ParseDocument(out)

	if err := validateWindows(r.Resolve("", "", next, now)); err != nil {
		return Document{}, err
	}
	return next, nil
}

func validateWindows(cfg Config) error {
	check := func(field string, w Window, startRaw, endRaw string) error {
		if startRaw != "" && w.Start == nil {
			return &ValidationError{Field: field + "_start", Message: "unrecognized date or timestamp"}
		}
		if endRaw != "" && w.End == nil {
			return &ValidationError{Field: field + "_end", Message: "unrecognized date or timestamp"}
		}
		if w.Start != nil && w.End != nil && w.End.Before(*w.Start) {
			return &ValidationError{Field: field + "_end", Message: "ends before it starts"}
		}
		return nil
	}
	if err := check("campaign", cfg.Campaign, cfg.CampaignStartRaw, cfg.CampaignEndRaw); err != nil {
		return err
	}
	if cfg.CouponUsageMode == UsageCustom {
		return check("coupon_usage", cfg.CouponUsage, cfg.CouponUsageStartRaw, cfg.CouponUsageEndRaw)
	}
	return nil
}
