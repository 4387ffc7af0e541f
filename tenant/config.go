package tenant

import (
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// =============================================================================
// DOCUMENT
// =============================================================================

// Document is a tenant's raw configuration JSON. Keys are camelCase with
// snake_case accepted as a fallback for older documents.
type Document struct {
	raw []byte
}

// ParseDocument wraps raw JSON. Invalid JSON yields an empty document; use
// Valid to detect it.
func ParseDocument(raw []byte) Document {
	return Document{raw: raw}
}

// Valid reports whether the document is well-formed JSON.
func (d Document) Valid() bool {
	return len(d.raw) == 0 || gjson.ValidBytes(d.raw)
}

// Bytes returns the raw JSON, "{}" when empty or invalid.
func (d Document) Bytes() []byte {
	if len(d.raw) == 0 || !gjson.ValidBytes(d.raw) {
		return []byte("{}")
	}
	return d.raw
}

func (d Document) get(key string) gjson.Result {
	if len(d.raw) == 0 || !gjson.ValidBytes(d.raw) {
		return gjson.Result{}
	}
	return gjson.GetBytes(d.raw, key)
}

// String returns the first non-empty string value among keys.
func (d Document) String(keys ...string) string {
	for _, k := range keys {
		r := d.get(k)
		if r.Type == gjson.String || r.Type == gjson.Number {
			if s := strings.TrimSpace(r.String()); s != "" {
				return s
			}
		}
	}
	return ""
}

// Int returns the first integer value among keys. Numeric strings count.
func (d Document) Int(keys ...string) (int, bool) {
	for _, k := range keys {
		r := d.get(k)
		switch r.Type {
		case gjson.Number:
			return int(r.Int()), true
		case gjson.String:
			if n, err := strconv.Atoi(strings.TrimSpace(r.Str)); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// =============================================================================
// CONFIG
// =============================================================================

// Config is the normalized view of a tenant configuration.
type Config struct {
	TenantID      string
	Name          string
	Location      *time.Location
	TimezoneLabel string
	Language      Language
	Theme         string
	MaxStampCount *int
	InitialStamps int

	Campaign         Window
	CampaignStartRaw string
	CampaignEndRaw   string

	CouponUsageMode     UsageMode
	CouponUsage         Window
	CouponUsageStartRaw string
	CouponUsageEndRaw   string

	Description        string
	StampMark          string
	StampImageURL      string
	BackgroundImageURL string
}

// Resolve normalizes a configuration document. companyName is used when the
// document carries no tenantName. The timezone label is computed at now.
func (r *Resolver) Resolve(tenantID, companyName string, doc Document, now time.Time) Config {
	tz := doc.String("campaignTimezone", "campaign_timezone")

	cfg := Config{
		TenantID:           tenantID,
		Name:               firstNonEmpty(doc.String("tenantName"), companyName),
		Location:           r.Location(tz),
		TimezoneLabel:      r.Label(tz, now),
		Language:           NormalizeLanguage(doc.String("language")),
		Theme:              NormalizeTheme(doc.String("themeColor", "theme_color")),
		CouponUsageMode:    NormalizeUsageMode(doc.String("couponUsageMode", "coupon_usage_mode")),
		CampaignStartRaw:   doc.String("campaignStart", "campaign_start"),
		CampaignEndRaw:     doc.String("campaignEnd", "campaign_end"),
		Description:        doc.String("campaignDescription", "campaign_description"),
		StampMark:          doc.String("stampMark", "stamp_mark"),
		StampImageURL:      doc.String("stampImageUrl", "stamp_image_url"),
		BackgroundImageURL: doc.String("backgroundImageUrl", "background_image_url"),
	}
	if n, ok := doc.Int("maxStampCount", "max_stamp_count"); ok {
		cfg.MaxStampCount = &n
	}
	if n, ok := doc.Int("initialStamps", "initial_stamps"); ok && n > 0 {
		cfg.InitialStamps = n
	}

	cfg.Campaign = Window{
		Start: ParseBoundary(cfg.CampaignStartRaw, false, cfg.Location),
		End:   ParseBoundary(cfg.CampaignEndRaw, true, cfg.Location),
	}

	if cfg.CouponUsageMode == UsageCustom {
		cfg.CouponUsageStartRaw = doc.String("couponUsageStart", "coupon_usage_start")
		cfg.CouponUsageEndRaw = doc.String("couponUsageEnd", "coupon_usage_end")
		cfg.CouponUsage = Window{
			Start: ParseBoundary(cfg.CouponUsageStartRaw, false, cfg.Location),
			End:   ParseBoundary(cfg.CouponUsageEndRaw, true, cfg.Location),
		}
	} else {
		cfg.CouponUsage = cfg.Campaign
	}
	return cfg
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
