package tenant

import "strings"

// Language is a supported tenant display language.
type Language string

const (
	Japanese Language = "ja"
	English  Language = "en"
	Chinese  Language = "zh"
)

// DefaultLanguage applies when a tenant has none or an unsupported one.
const DefaultLanguage = Japanese

// ParseLanguage reports whether value names a supported language.
func ParseLanguage(value string) (Language, bool) {
	switch l := Language(strings.ToLower(strings.TrimSpace(value))); l {
	case Japanese, English, Chinese:
		return l, true
	}
	return "", false
}

// NormalizeLanguage is the lenient read path.
func NormalizeLanguage(value string) Language {
	if l, ok := ParseLanguage(value); ok {
		return l
	}
	return DefaultLanguage
}

// ValidateLanguage is the strict administrative path. Empty selects the default.
func ValidateLanguage(value string) (Language, error) {
	if strings.TrimSpace(value) == "" {
		return DefaultLanguage, nil
	}
	l, ok := ParseLanguage(value)
	if !ok {
		return "", &ValidationError{Field: "language", Message: "must be one of ja, en, zh"}
	}
	return l, nil
}

// =============================================================================
// THEME / USAGE MODE
// =============================================================================

const DefaultTheme = "orange"

var themes = map[string]bool{"orange": true, "teal": true, "green": true, "pink": true}

// NormalizeTheme returns a supported theme color or DefaultTheme.
func NormalizeTheme(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if themes[v] {
		return v
	}
	return DefaultTheme
}

func validateTheme(value string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if !themes[v] {
		return "", &ValidationError{Field: "theme_color", Message: "must be one of orange, teal, green, pink"}
	}
	return v, nil
}

// UsageMode controls when issued coupons may be redeemed.
type UsageMode string

const (
	// UsageCampaign reuses the campaign window for coupon use.
	UsageCampaign UsageMode = "campaign"
	// UsageCustom uses the dedicated coupon-usage window.
	UsageCustom UsageMode = "custom"
)

// NormalizeUsageMode is the lenient read path; unknown values mean campaign.
func NormalizeUsageMode(value string) UsageMode {
	if UsageMode(strings.ToLower(strings.TrimSpace(value))) == UsageCustom {
		return UsageCustom
	}
	return UsageCampaign
}

func validateUsageMode(value string) (UsageMode, error) {
	switch m := UsageMode(strings.ToLower(strings.TrimSpace(value))); m {
	case UsageCampaign, UsageCustom:
		return m, nil
	}
	return "", &ValidationError{Field: "coupon_usage_mode", Message: "must be campaign or custom"}
}
