/*
scenarios.go - Demo tenants for local development and demos

PURPOSE:
  Provides pre-built stamp rallies that populate the database with a
  realistic tenant: stores, reward rules and campaign settings. Each
  scenario goes through the engine, so the data obeys the same validation
  as the admin API.

AVAILABLE SCENARIOS:
  cafe-rally:      Japanese cafe crawl, coupons at 2 and 4 stamps
  city-walk:       English city walk with a coupon usage window
  night-market:    Traditional Chinese night market, 5 stamp cap

HOW SCENARIOS WORK:
  1. Create the tenant (409 if it already exists)
  2. Apply campaign settings
  3. Upsert stores
  4. Upsert reward rules

USAGE VIA API:
  GET  /api/scenarios
  POST /api/scenarios/load
  {"scenario_id": "cafe-rally"}

NOTE:
  Routes are only mounted when Options.Scenarios is set. Scenarios never
  reset existing data.

SEE ALSO:
  - server.go: Route mounting
  - stamp/admin.go: Admin operations used by the loaders
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/shopspring/decimal"
	"github.com/warp/stamp-engine/lib/sl"
	"github.com/warp/stamp-engine/lib/validate"
	"github.com/warp/stamp-engine/stamp"
	"github.com/warp/stamp-engine/tenant"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes a loadable demo tenant.
type ScenarioDTO struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Language    string `json:"language"`
}

type scenario struct {
	ScenarioDTO
	campaign tenant.CampaignUpdate
	stores   []stamp.Store
	rules    []stamp.RewardRule
}

func str(s string) *string { return &s }

func coord(lat, lng string) (decimal.Decimal, decimal.Decimal) {
	return decimal.RequireFromString(lat), decimal.RequireFromString(lng)
}

func demoStore(id, name, lat, lng, mark string) stamp.Store {
	la, ln := coord(lat, lng)
	return stamp.Store{ID: id, Name: name, Lat: la, Lng: ln, StampMark: mark}
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "cafe-rally",
			TenantID:    "demo-cafe",
			Name:        "Cafe Rally",
			Description: "Cafe crawl around Shibuya, coupons at 2 and 4 stamps",
			Language:    "ja",
		},
		campaign: tenant.CampaignUpdate{
			CampaignDescription: str("渋谷のカフェを巡ってスタンプを集めよう"),
			Timezone:            str("Asia/Tokyo"),
			Language:            str("ja"),
			ThemeColor:          str("orange"),
		},
		stores: []stamp.Store{
			demoStore("shibuya", "Shibuya Roastery", "35.6580", "139.7016", "☕"),
			demoStore("harajuku", "Harajuku Kissa", "35.6702", "139.7027", "🍰"),
			demoStore("ebisu", "Ebisu Stand", "35.6467", "139.7100", "🥐"),
			demoStore("daikanyama", "Daikanyama Bakery", "35.6488", "139.7030", "🍞"),
		},
		rules: []stamp.RewardRule{
			{Threshold: 2, Label: "ドリンク1杯無料", Icon: "coffee"},
			{Threshold: 4, Label: "焼き菓子セット", Icon: "gift"},
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "city-walk",
			TenantID:    "demo-citywalk",
			Name:        "City Walk",
			Description: "Landmark walk with coupons redeemable in July only",
			Language:    "en",
		},
		campaign: tenant.CampaignUpdate{
			CampaignDescription: str("Visit the landmarks of lower Manhattan"),
			Timezone:            str("UTC-05:00"),
			Language:            str("en"),
			ThemeColor:          str("teal"),
			CouponUsageMode:     str("custom"),
			CouponUsageStart:    str("2024-07-01"),
			CouponUsageEnd:      str("2024-07-31"),
		},
		stores: []stamp.Store{
			demoStore("battery-park", "Battery Park", "40.7033", "-74.0170", "🗽"),
			demoStore("wall-street", "Wall Street", "40.7060", "-74.0088", "🐂"),
			demoStore("city-hall", "City Hall Park", "40.7128", "-74.0060", "🏛"),
		},
		rules: []stamp.RewardRule{
			{Threshold: 3, Label: "Free museum entry", Icon: "ticket"},
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "night-market",
			TenantID:    "demo-nightmarket",
			Name:        "Night Market",
			Description: "Taipei night market stalls, capped at 5 stamps",
			Language:    "zh",
		},
		campaign: tenant.CampaignUpdate{
			CampaignDescription: str("逛夜市集印章"),
			Timezone:            str("Asia/Taipei"),
			Language:            str("zh"),
			ThemeColor:          str("pink"),
			MaxStamps:           func() *int { n := 5; return &n }(),
		},
		stores: []stamp.Store{
			demoStore("shilin", "Shilin", "25.0880", "121.5240", "🍢"),
			demoStore("raohe", "Raohe", "25.0510", "121.5775", "🥟"),
			demoStore("ningxia", "Ningxia", "25.0560", "121.5155", "🍜"),
		},
		rules: []stamp.RewardRule{
			{Threshold: 1, Label: "珍珠奶茶折價券", Icon: "cup"},
			{Threshold: 3, Label: "夜市美食套餐", Icon: "bowl"},
		},
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// =============================================================================
// LOADER
// =============================================================================

// LoadScenario creates the demo tenant of scenarioID.
func LoadScenario(ctx context.Context, engine *stamp.Engine, scenarioID string) (ScenarioDTO, error) {
	s, ok := findScenario(scenarioID)
	if !ok {
		return ScenarioDTO{}, &stamp.ValidationError{Field: "scenario_id", Message: fmt.Sprintf("unknown scenario %q", scenarioID)}
	}

	if _, err := engine.CreateTenant(ctx, stamp.Registration{TenantID: s.TenantID, CompanyName: s.Name}); err != nil {
		return ScenarioDTO{}, err
	}
	if _, err := engine.UpdateCampaign(ctx, s.TenantID, s.campaign); err != nil {
		return ScenarioDTO{}, fmt.Errorf("campaign: %w", err)
	}
	for _, st := range s.stores {
		if _, err := engine.UpsertStore(ctx, s.TenantID, st); err != nil {
			return ScenarioDTO{}, fmt.Errorf("store %s: %w", st.ID, err)
		}
	}
	for _, r := range s.rules {
		if _, err := engine.UpsertRewardRule(ctx, s.TenantID, r); err != nil {
			return ScenarioDTO{}, fmt.Errorf("rule %d: %w", r.Threshold, err)
		}
	}
	return s.ScenarioDTO, nil
}

// =============================================================================
// HANDLERS
// =============================================================================

// LoadScenarioRequest selects a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

func (l *LoadScenarioRequest) Bind(*http.Request) error {
	l.ScenarioID = strings.TrimSpace(l.ScenarioID)
	return validate.Struct(l)
}

// ListScenarios handles GET /api/scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	out := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		out[i] = s.ScenarioDTO
	}
	writeJSON(w, r, http.StatusOK, out)
}

// LoadScenario handles POST /api/scenarios/load.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := render.Bind(r, &req); err != nil {
		writeBindError(w, r, err)
		return
	}

	loaded, err := LoadScenario(r.Context(), h.Engine, req.ScenarioID)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	h.log.Info("scenario loaded", sl.Tenant(loaded.TenantID))
	writeJSON(w, r, http.StatusCreated, loaded)
}
