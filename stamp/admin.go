package stamp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/stamp-engine/tenant"
)

// Seed is what a tenant's front-end loads on start.
type Seed struct {
	Config tenant.Config
	Rules  []RewardRule
	Stores []Store
}

// Registration creates a tenant.
type Registration struct {
	TenantID           string
	CompanyName        string
	BackgroundImageURL string
}

var (
	tenantIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
	nonSlug         = regexp.MustCompile(`[^a-z0-9]+`)
)

var (
	latLimit = decimal.NewFromInt(90)
	lngLimit = decimal.NewFromInt(180)
)

// CreateTenant registers a tenant with a default configuration document.
// The id defaults to the lower-cased company name.
func (e *Engine) CreateTenant(ctx context.Context, reg Registration) (tenant.Config, error) {
	name := strings.TrimSpace(reg.CompanyName)
	if name == "" {
		return tenant.Config{}, &ValidationError{Field: "company_name", Message: "must not be empty"}
	}
	tenantID := strings.ToLower(strings.TrimSpace(reg.TenantID))
	if tenantID == "" {
		tenantID = strings.ToLower(name)
	}
	if !tenantIDPattern.MatchString(tenantID) {
		return tenant.Config{}, &ValidationError{Field: "tenant_id", Message: "use lower-case letters, digits, '-' or '_'"}
	}

	var bg any
	if u := strings.TrimSpace(reg.BackgroundImageURL); u != "" {
		bg = u
	}
	raw, err := json.Marshal(map[string]any{
		"tenantName":          name,
		"backgroundImageUrl":  bg,
		"initialStamps":       0,
		"campaignStart":       nil,
		"campaignEnd":         nil,
		"campaignDescription": nil,
		"campaignTimezone":    e.Resolver.DefaultLabel(),
		"couponUsageMode":     string(tenant.UsageCampaign),
		"couponUsageStart":    nil,
		"couponUsageEnd":      nil,
		"themeColor":          tenant.DefaultTheme,
		"language":            string(tenant.DefaultLanguage),
		"maxStampCount":       nil,
	})
	if err != nil {
		return tenant.Config{}, fmt.Errorf("encode tenant config: %w", err)
	}
	doc := tenant.ParseDocument(raw)

	now := e.now()
	err = e.Repo.WithTx(ctx, tenantID, func(tx Tx) error {
		return tx.CreateTenant(ctx, name, doc)
	})
	if err != nil {
		return tenant.Config{}, err
	}
	e.log.Info("tenant created", slog.String("tenant_id", tenantID))
	return e.Resolver.Resolve(tenantID, name, doc, now), nil
}

// TenantSeed returns the normalized config together with rules and stores.
func (e *Engine) TenantSeed(ctx context.Context, tenantID string) (Seed, error) {
	now := e.now()
	var seed Seed
	err := e.Repo.WithTx(ctx, tenantID, func(tx Tx) error {
		cfg, found, err := e.config(ctx, tx, now)
		if err != nil {
			return err
		}
		if !found {
			return &NotFoundError{Resource: "tenant", ID: tenantID}
		}
		rules, err := tx.RewardRules(ctx)
		if err != nil {
			return fmt.Errorf("load reward rules: %w", err)
		}
		stores, err := tx.ListStores(ctx)
		if err != nil {
			return fmt.Errorf("list stores: %w", err)
		}
		seed = Seed{Config: cfg, Rules: rules, Stores: stores}
		return nil
	})
	return seed, err
}

// UpdateCampaign applies an administrative campaign change.
func (e *Engine) UpdateCampaign(ctx context.Context, tenantID string, u tenant.CampaignUpdate) (tenant.Config, error) {
	now := e.now()
	var cfg tenant.Config
	err := e.Repo.WithTx(ctx, tenantID, func(tx Tx) error {
		t, found, err := tx.LoadTenant(ctx)
		if err != nil {
			return fmt.Errorf("load tenant: %w", err)
		}
		if !found {
			return &NotFoundError{Resource: "tenant", ID: tenantID}
		}
		next, err := e.Resolver.Apply(t.Config, u, now)
		if err != nil {
			return err
		}
		if err := tx.SaveTenantConfig(ctx, next); err != nil {
			return fmt.Errorf("save tenant config: %w", err)
		}
		cfg = e.Resolver.Resolve(t.ID, t.CompanyName, next, now)
		return nil
	})
	if err == nil {
		e.log.Info("campaign updated", slog.String("tenant_id", tenantID))
	}
	return cfg, err
}

// StoreIdentifier derives a store id from its name when none is given.
func StoreIdentifier(name, explicit string) string {
	if id := strings.TrimSpace(explicit); id != "" {
		return id
	}
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		slug = strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}
	return slug
}

// UpsertStore creates or replaces a store.
func (e *Engine) UpsertStore(ctx context.Context, tenantID string, s Store) (Store, error) {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return Store{}, &ValidationError{Field: "name", Message: "must not be empty"}
	}
	if s.Lat.Abs().GreaterThan(latLimit) {
		return Store{}, &ValidationError{Field: "lat", Message: "must be within -90 and 90"}
	}
	if s.Lng.Abs().GreaterThan(lngLimit) {
		return Store{}, &ValidationError{Field: "lng", Message: "must be within -180 and 180"}
	}
	s.ID = StoreIdentifier(s.Name, s.ID)
	s.TenantID = tenantID

	var saved Store
	err := e.Repo.WithTx(ctx, tenantID, func(tx Tx) error {
		var err error
		saved, err = tx.UpsertStore(ctx, s)
		return err
	})
	return saved, err
}

// DeleteStore removes a store. Its ledger rows are kept.
func (e *Engine) DeleteStore(ctx context.Context, tenantID, storeID string) error {
	return e.Repo.WithTx(ctx, tenantID, func(tx Tx) error {
		deleted, err := tx.DeleteStore(ctx, storeID)
		if err != nil {
			return fmt.Errorf("delete store: %w", err)
		}
		if !deleted {
			return &NotFoundError{Resource: "store", ID: storeID}
		}
		return nil
	})
}

// UpsertRewardRule creates or replaces the rule for a threshold. Coupons
// already issued for it keep their title and show the new label and icon.
func (e *Engine) UpsertRewardRule(ctx context.Context, tenantID string, r RewardRule) (RewardRule, error) {
	r.Label = strings.TrimSpace(r.Label)
	if r.Threshold < 1 {
		return RewardRule{}, &ValidationError{Field: "threshold", Message: "must be at least 1"}
	}
	if r.Label == "" {
		return RewardRule{}, &ValidationError{Field: "label", Message: "must not be empty"}
	}
	r.TenantID = tenantID

	var saved RewardRule
	err := e.Repo.WithTx(ctx, tenantID, func(tx Tx) error {
		var err error
		saved, err = tx.UpsertRewardRule(ctx, r)
		return err
	})
	return saved, err
}

// DeleteRewardRule removes the rule for a threshold. Issued coupons remain.
func (e *Engine) DeleteRewardRule(ctx context.Context, tenantID string, threshold int) error {
	return e.Repo.WithTx(ctx, tenantID, func(tx Tx) error {
		deleted, err := tx.DeleteRewardRule(ctx, threshold)
		if err != nil {
			return fmt.Errorf("delete reward rule: %w", err)
		}
		if !deleted {
			return &NotFoundError{Resource: "reward rule", ID: fmt.Sprint(threshold)}
		}
		return nil
	})
}
