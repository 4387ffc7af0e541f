/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures of the HTTP contract. Request types carry
  `validate` tags and implement render.Binder, so decoding and validation
  happen in one call. Response types mirror what the tenant front-end
  reads: camelCase keys, except the stamp response's `new_coupons`.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *DTO:     Response types returned to clients
  - *Response: Top-level response wrappers

SEE ALSO:
  - handlers.go: Uses these types
  - lib/validate: Tag validation
*/
package api

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/stamp-engine/lib/validate"
	"github.com/warp/stamp-engine/stamp"
	"github.com/warp/stamp-engine/tenant"
)

// =============================================================================
// REQUESTS
// =============================================================================

// StampRequest records a visit.
type StampRequest struct {
	StoreID string `json:"store_id" validate:"required,max=128"`
}

func (s *StampRequest) Bind(*http.Request) error {
	s.StoreID = strings.TrimSpace(s.StoreID)
	return validate.Struct(s)
}

// CreateTenantRequest registers a tenant. TenantID defaults to the
// lower-cased company name.
type CreateTenantRequest struct {
	TenantID           string `json:"tenant_id,omitempty" validate:"omitempty,max=64"`
	CompanyName        string `json:"company_name" validate:"required,max=200"`
	BackgroundImageURL string `json:"background_image_url,omitempty" validate:"omitempty,url"`
}

func (c *CreateTenantRequest) Bind(*http.Request) error {
	c.CompanyName = strings.TrimSpace(c.CompanyName)
	return validate.Struct(c)
}

// StoreRequest creates or replaces a store. StoreID defaults to a slug of
// the name.
type StoreRequest struct {
	StoreID     string          `json:"store_id,omitempty" validate:"omitempty,max=128"`
	Name        string          `json:"name" validate:"required,max=200"`
	Lat         decimal.Decimal `json:"lat"`
	Lng         decimal.Decimal `json:"lng"`
	Description string          `json:"description,omitempty"`
	ImageURL    string          `json:"image_url,omitempty" validate:"omitempty,url"`
	StampMark   string          `json:"stamp_mark,omitempty" validate:"omitempty,max=16"`
}

func (s *StoreRequest) Bind(*http.Request) error {
	s.Name = strings.TrimSpace(s.Name)
	return validate.Struct(s)
}

func (s *StoreRequest) store() stamp.Store {
	return stamp.Store{
		ID:          strings.TrimSpace(s.StoreID),
		Name:        s.Name,
		Lat:         s.Lat,
		Lng:         s.Lng,
		Description: s.Description,
		ImageURL:    s.ImageURL,
		StampMark:   s.StampMark,
	}
}

// RewardRuleRequest creates or replaces the rule of a threshold.
type RewardRuleRequest struct {
	Threshold int    `json:"threshold" validate:"required,min=1"`
	Label     string `json:"label" validate:"required,max=100"`
	Icon      string `json:"icon,omitempty" validate:"omitempty,max=64"`
}

func (r *RewardRuleRequest) Bind(*http.Request) error {
	r.Label = strings.TrimSpace(r.Label)
	return validate.Struct(r)
}

// CampaignRequest changes campaign settings. Absent fields are unchanged.
type CampaignRequest struct {
	CampaignStart       *string `json:"campaign_start"`
	CampaignEnd         *string `json:"campaign_end"`
	CampaignDescription *string `json:"campaign_description"`
	BackgroundImageURL  *string `json:"background_image_url"`
	StampImageURL       *string `json:"stamp_image_url"`
	ThemeColor          *string `json:"theme_color"`
	CampaignTimezone    *string `json:"campaign_timezone"`
	Language            *string `json:"language"`
	CouponUsageMode     *string `json:"coupon_usage_mode"`
	CouponUsageStart    *string `json:"coupon_usage_start"`
	CouponUsageEnd      *string `json:"coupon_usage_end"`
	MaxStamps           *int    `json:"max_stamps" validate:"omitempty,min=1,max=200"`
	ClearMaxStamps      bool    `json:"clear_max_stamps"`
}

func (c *CampaignRequest) Bind(*http.Request) error {
	return validate.Struct(c)
}

func (c *CampaignRequest) update() tenant.CampaignUpdate {
	return tenant.CampaignUpdate{
		CampaignStart:       c.CampaignStart,
		CampaignEnd:         c.CampaignEnd,
		CampaignDescription: c.CampaignDescription,
		BackgroundImageURL:  c.BackgroundImageURL,
		StampImageURL:       c.StampImageURL,
		ThemeColor:          c.ThemeColor,
		Timezone:            c.CampaignTimezone,
		Language:            c.Language,
		CouponUsageMode:     c.CouponUsageMode,
		CouponUsageStart:    c.CouponUsageStart,
		CouponUsageEnd:      c.CouponUsageEnd,
		MaxStamps:           c.MaxStamps,
		ClearMaxStamps:      c.ClearMaxStamps,
	}
}

// =============================================================================
// RESPONSES
// =============================================================================

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

type CouponDTO struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Used        bool   `json:"used"`
	Icon        string `json:"icon,omitempty"`
}

type StampResponse struct {
	Status          stamp.Status `json:"status"`
	Stamps          int          `json:"stamps"`
	NewCoupons      []CouponDTO  `json:"new_coupons"`
	StampedStoreIDs []string     `json:"stampedStoreIds"`
}

type ProgressResponse struct {
	TenantID        string      `json:"tenantId"`
	Stamps          int         `json:"stamps"`
	Coupons         []CouponDTO `json:"coupons"`
	StampedStoreIDs []string    `json:"stampedStoreIds"`
}

type StoreDTO struct {
	ID          string  `json:"id"`
	TenantID    string  `json:"tenantId"`
	Name        string  `json:"name"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Description string  `json:"description,omitempty"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	StampMark   string  `json:"stampMark,omitempty"`
}

type RewardRuleDTO struct {
	Threshold int    `json:"threshold"`
	Label     string `json:"label"`
	Icon      string `json:"icon,omitempty"`
}

// TenantConfigDTO is the normalized tenant configuration.
type TenantConfigDTO struct {
	ID                  string          `json:"id"`
	TenantName          string          `json:"tenantName"`
	Rules               []RewardRuleDTO `json:"rules"`
	StampMark           string          `json:"stampMark,omitempty"`
	StampImageURL       string          `json:"stampImageUrl,omitempty"`
	BackgroundImageURL  string          `json:"backgroundImageUrl,omitempty"`
	CampaignStart       string          `json:"campaignStart,omitempty"`
	CampaignEnd         string          `json:"campaignEnd,omitempty"`
	CampaignDescription string          `json:"campaignDescription,omitempty"`
	CampaignTimezone    string          `json:"campaignTimezone"`
	CouponUsageMode     string          `json:"couponUsageMode"`
	CouponUsageStart    string          `json:"couponUsageStart,omitempty"`
	CouponUsageEnd      string          `json:"couponUsageEnd,omitempty"`
	ThemeColor          string          `json:"themeColor"`
	MaxStampCount       *int            `json:"maxStampCount,omitempty"`
	Language            string          `json:"language"`
}

type ProgressSeedDTO struct {
	TenantID string      `json:"tenantId"`
	Stamps   int         `json:"stamps"`
	Coupons  []CouponDTO `json:"coupons"`
}

// SeedResponse is what the tenant front-end loads on start.
type SeedResponse struct {
	Tenant          TenantConfigDTO `json:"tenant"`
	Stores          []StoreDTO      `json:"stores"`
	InitialProgress ProgressSeedDTO `json:"initialProgress"`
}

type CreateTenantResponse struct {
	TenantID    string `json:"tenant_id"`
	CompanyName string `json:"company_name"`
}

type DailyCountDTO struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type CouponStatsDTO struct {
	CouponID      string          `json:"couponId"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	Acquired      []DailyCountDTO `json:"acquired"`
	Used          []DailyCountDTO `json:"used"`
	TotalAcquired int             `json:"totalAcquired"`
	TotalUsed     int             `json:"totalUsed"`
}

type DashboardStatsResponse struct {
	RangeStart  string           `json:"rangeStart"`
	RangeEnd    string           `json:"rangeEnd"`
	Days        int              `json:"days"`
	TotalUsers  int              `json:"totalUsers"`
	TotalStamps int              `json:"totalStamps"`
	DailyUsers  []DailyCountDTO  `json:"dailyUsers"`
	DailyStamps []DailyCountDTO  `json:"dailyStamps"`
	Coupons     []CouponStatsDTO `json:"coupons"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toCouponDTOs(views []stamp.CouponView) []CouponDTO {
	out := make([]CouponDTO, len(views))
	for i, v := range views {
		out[i] = toCouponDTO(v)
	}
	return out
}

func toCouponDTO(v stamp.CouponView) CouponDTO {
	return CouponDTO{
		ID:          v.ID,
		TenantID:    v.TenantID,
		Title:       v.Title,
		Description: v.Description,
		Used:        v.Used,
		Icon:        v.Icon,
	}
}

func toStoreDTO(s stamp.Store) StoreDTO {
	return StoreDTO{
		ID:          s.ID,
		TenantID:    s.TenantID,
		Name:        s.Name,
		Lat:         s.Lat.InexactFloat64(),
		Lng:         s.Lng.InexactFloat64(),
		Description: s.Description,
		ImageURL:    s.ImageURL,
		StampMark:   s.StampMark,
	}
}

func toRuleDTO(r stamp.RewardRule) RewardRuleDTO {
	return RewardRuleDTO{Threshold: r.Threshold, Label: r.Label, Icon: r.Icon}
}

func toConfigDTO(cfg tenant.Config, rules []stamp.RewardRule) TenantConfigDTO {
	dto := TenantConfigDTO{
		ID:                  cfg.TenantID,
		TenantName:          cfg.Name,
		Rules:               make([]RewardRuleDTO, len(rules)),
		StampMark:           cfg.StampMark,
		StampImageURL:       cfg.StampImageURL,
		BackgroundImageURL:  cfg.BackgroundImageURL,
		CampaignStart:       cfg.CampaignStartRaw,
		CampaignEnd:         cfg.CampaignEndRaw,
		CampaignDescription: cfg.Description,
		CampaignTimezone:    cfg.TimezoneLabel,
		CouponUsageMode:     string(cfg.CouponUsageMode),
		CouponUsageStart:    cfg.CouponUsageStartRaw,
		CouponUsageEnd:      cfg.CouponUsageEndRaw,
		ThemeColor:          cfg.Theme,
		MaxStampCount:       cfg.MaxStampCount,
		Language:            string(cfg.Language),
	}
	if dto.TenantName == "" {
		dto.TenantName = cfg.TenantID
	}
	for i, r := range rules {
		dto.Rules[i] = toRuleDTO(r)
	}
	return dto
}

func toSeedResponse(seed stamp.Seed) SeedResponse {
	stores := make([]StoreDTO, len(seed.Stores))
	for i, s := range seed.Stores {
		stores[i] = toStoreDTO(s)
	}
	return SeedResponse{
		Tenant: toConfigDTO(seed.Config, seed.Rules),
		Stores: stores,
		InitialProgress: ProgressSeedDTO{
			TenantID: seed.Config.TenantID,
			Stamps:   seed.Config.InitialStamps,
			Coupons:  []CouponDTO{},
		},
	}
}

func toDailyDTOs(counts []stamp.DailyCount) []DailyCountDTO {
	out := make([]DailyCountDTO, len(counts))
	for i, c := range counts {
		out[i] = DailyCountDTO{Date: c.Date, Count: c.Count}
	}
	return out
}

func toStatsResponse(s stamp.DashboardStats) DashboardStatsResponse {
	coupons := make([]CouponStatsDTO, len(s.Coupons))
	for i, c := range s.Coupons {
		coupons[i] = CouponStatsDTO{
			CouponID:      c.CouponID,
			Title:         c.Title,
			Description:   c.Description,
			Acquired:      toDailyDTOs(c.Acquired),
			Used:          toDailyDTOs(c.Used),
			TotalAcquired: c.TotalAcquired,
			TotalUsed:     c.TotalUsed,
		}
	}
	return DashboardStatsResponse{
		RangeStart:  s.RangeStart,
		RangeEnd:    s.RangeEnd,
		Days:        s.Days,
		TotalUsers:  s.TotalUsers,
		TotalStamps: s.TotalStamps,
		DailyUsers:  toDailyDTOs(s.DailyUsers),
		DailyStamps: toDailyDTOs(s.DailyStamps),
		Coupons:     coupons,
	}
}
