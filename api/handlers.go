/*
handlers.go - HTTP API handlers for the stamp engine

PURPOSE:
  Exposes the stamp engine via REST API. Handles HTTP request/response,
  JSON binding, and delegates to the engine. Handlers never touch the
  database directly.

ENDPOINTS:
  Users (bearer token):
    POST   /api/users/me/stamps                     Record a store visit
    GET    /api/users/me/progress                   Stamps, coupons, stores
    PATCH  /api/users/me/coupons/{couponID}/use     Redeem a coupon

  Tenants:
    POST   /api/tenants                             Register a tenant
    GET    /api/tenants/{tenantID}                  Front-end seed

  Tenant admin (bearer token, role tenant_admin):
    POST   /api/tenants/{tenantID}/stores           Upsert a store
    DELETE /api/tenants/{tenantID}/stores/{storeID}
    POST   /api/tenants/{tenantID}/reward-rules     Upsert a reward rule
    DELETE /api/tenants/{tenantID}/reward-rules/{threshold}
    PUT    /api/tenants/{tenantID}/campaign         Change campaign settings
    GET    /api/tenants/{tenantID}/dashboard-stats  Daily activity (?days=)

ERROR HANDLING:
  Engine errors are mapped by class:
  - 400: Validation errors, invalid input
  - 403: Campaign closed, tenant mismatch
  - 404: Tenant, store or coupon not found
  - 409: Duplicate tenant
  - 503: Transient database failure, retry
  - 500: Internal errors (detail is logged, never returned)

SEE ALSO:
  - dto.go: Request/response data structures
  - auth.go: Bearer token middleware
  - server.go: Router setup and middleware
*/
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/warp/stamp-engine/lib/sl"
	"github.com/warp/stamp-engine/lib/validate"
	"github.com/warp/stamp-engine/stamp"
	"github.com/warp/stamp-engine/tenant"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	Engine *stamp.Engine
	// Probe, when set, decides the /health status.
	Probe *DatabaseProbe
	log   *slog.Logger
}

// NewHandler creates a handler for engine.
func NewHandler(engine *stamp.Engine, log *slog.Logger) *Handler {
	return &Handler{
		Engine: engine,
		log:    log.With(sl.Module("api")),
	}
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func writeMessage(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, ErrorResponse{Error: msg})
}

// writeBindError answers a body that failed to decode or validate.
func writeBindError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validate.Error
	if errors.As(err, &verr) {
		writeJSON(w, r, http.StatusBadRequest, ErrorResponse{Error: verr.Error(), Field: verr.Field()})
		return
	}
	writeMessage(w, r, http.StatusBadRequest, "invalid request body")
}

// writeEngineError maps an engine error onto a status code.
func (h *Handler) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorResponse{Error: err.Error()}

	var sv *stamp.ValidationError
	var tv *tenant.ValidationError
	switch {
	case errors.As(err, &sv):
		resp.Field = sv.Field
	case errors.As(err, &tv):
		resp.Field = tv.Field
	}

	var status int
	switch stamp.Classify(err) {
	case stamp.ClassValidation:
		status = http.StatusBadRequest
	case stamp.ClassNotFound:
		status = http.StatusNotFound
	case stamp.ClassConflict:
		status = http.StatusConflict
	case stamp.ClassForbidden:
		status = http.StatusForbidden
	case stamp.ClassTransient:
		status = http.StatusServiceUnavailable
		resp = ErrorResponse{Error: "temporarily unavailable, retry"}
	default:
		status = http.StatusInternalServerError
		resp = ErrorResponse{Error: "internal server error"}
	}

	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("path", r.URL.Path),
			sl.Err(err),
		)
	}
	writeJSON(w, r, status, resp)
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// RecordStamp handles POST /api/users/me/stamps.
func (h *Handler) RecordStamp(w http.ResponseWriter, r *http.Request) {
	id, err := identityFrom(r.Context())
	if err != nil {
		writeMessage(w, r, http.StatusUnauthorized, "not authenticated")
		return
	}
	var req StampRequest
	if err := render.Bind(r, &req); err != nil {
		writeBindError(w, r, err)
		return
	}

	res, err := h.Engine.RecordStamp(r.Context(), id, req.StoreID)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	h.log.Debug("stamp recorded",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		sl.Tenant(id.TenantID),
		slog.Int64("user_id", id.UserID),
		slog.String("store_id", req.StoreID),
		slog.String("status", string(res.Status)),
	)
	writeJSON(w, r, http.StatusOK, StampResponse{
		Status:          res.Status,
		Stamps:          res.Stamps,
		NewCoupons:      toCouponDTOs(res.NewCoupons),
		StampedStoreIDs: res.StampedStoreIDs,
	})
}

// GetProgress handles GET /api/users/me/progress.
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	id, err := identityFrom(r.Context())
	if err != nil {
		writeMessage(w, r, http.StatusUnauthorized, "not authenticated")
		return
	}

	p, err := h.Engine.GetProgress(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, ProgressResponse{
		TenantID:        p.TenantID,
		Stamps:          p.Stamps,
		Coupons:         toCouponDTOs(p.Coupons),
		StampedStoreIDs: p.StampedStoreIDs,
	})
}

// MarkCouponUsed handles PATCH /api/users/me/coupons/{couponID}/use.
func (h *Handler) MarkCouponUsed(w http.ResponseWriter, r *http.Request) {
	id, err := identityFrom(r.Context())
	if err != nil {
		writeMessage(w, r, http.StatusUnauthorized, "not authenticated")
		return
	}

	c, err := h.Engine.MarkCouponUsed(r.Context(), id, chi.URLParam(r, "couponID"))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toCouponDTO(c))
}

// =============================================================================
// TENANT HANDLERS
// =============================================================================

// CreateTenant handles POST /api/tenants.
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if err := render.Bind(r, &req); err != nil {
		writeBindError(w, r, err)
		return
	}

	cfg, err := h.Engine.CreateTenant(r.Context(), stamp.Registration{
		TenantID:           req.TenantID,
		CompanyName:        req.CompanyName,
		BackgroundImageURL: req.BackgroundImageURL,
	})
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	h.log.Info("tenant created", sl.Tenant(cfg.TenantID))
	writeJSON(w, r, http.StatusCreated, CreateTenantResponse{TenantID: cfg.TenantID, CompanyName: cfg.Name})
}

// GetTenantSeed handles GET /api/tenants/{tenantID}.
func (h *Handler) GetTenantSeed(w http.ResponseWriter, r *http.Request) {
	seed, err := h.Engine.TenantSeed(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toSeedResponse(seed))
}

// UpsertStore handles POST /api/tenants/{tenantID}/stores.
func (h *Handler) UpsertStore(w http.ResponseWriter, r *http.Request) {
	var req StoreRequest
	if err := render.Bind(r, &req); err != nil {
		writeBindError(w, r, err)
		return
	}

	s, err := h.Engine.UpsertStore(r.Context(), chi.URLParam(r, "tenantID"), req.store())
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toStoreDTO(s))
}

// DeleteStore handles DELETE /api/tenants/{tenantID}/stores/{storeID}.
func (h *Handler) DeleteStore(w http.ResponseWriter, r *http.Request) {
	err := h.Engine.DeleteStore(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "storeID"))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// UpsertRewardRule handles POST /api/tenants/{tenantID}/reward-rules.
func (h *Handler) UpsertRewardRule(w http.ResponseWriter, r *http.Request) {
	var req RewardRuleRequest
	if err := render.Bind(r, &req); err != nil {
		writeBindError(w, r, err)
		return
	}

	rule, err := h.Engine.UpsertRewardRule(r.Context(), chi.URLParam(r, "tenantID"), stamp.RewardRule{
		Threshold: req.Threshold,
		Label:     req.Label,
		Icon:      req.Icon,
	})
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toRuleDTO(rule))
}

// DeleteRewardRule handles DELETE /api/tenants/{tenantID}/reward-rules/{threshold}.
func (h *Handler) DeleteRewardRule(w http.ResponseWriter, r *http.Request) {
	threshold, err := strconv.Atoi(chi.URLParam(r, "threshold"))
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, ErrorResponse{Error: "threshold must be an integer", Field: "threshold"})
		return
	}

	if err := h.Engine.DeleteRewardRule(r.Context(), chi.URLParam(r, "tenantID"), threshold); err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// UpdateCampaign handles PUT /api/tenants/{tenantID}/campaign and answers
// with the normalized configuration.
func (h *Handler) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	var req CampaignRequest
	if err := render.Bind(r, &req); err != nil {
		writeBindError(w, r, err)
		return
	}

	tenantID := chi.URLParam(r, "tenantID")
	if _, err := h.Engine.UpdateCampaign(r.Context(), tenantID, req.update()); err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	seed, err := h.Engine.TenantSeed(r.Context(), tenantID)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	h.log.Info("campaign updated", sl.Tenant(tenantID))
	writeJSON(w, r, http.StatusOK, toConfigDTO(seed.Config, seed.Rules))
}

// DashboardStats handles GET /api/tenants/{tenantID}/dashboard-stats.
func (h *Handler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	days := stamp.DefaultStatsDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, r, http.StatusBadRequest, ErrorResponse{Error: "days must be an integer", Field: "days"})
			return
		}
		days = n
	}

	stats, err := h.Engine.DashboardStats(r.Context(), chi.URLParam(r, "tenantID"), days)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toStatsResponse(stats))
}

// =============================================================================
// MISC
// =============================================================================

// Health handles GET /health. It answers 503 while the database probe
// fails.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if h.Probe != nil && !h.Probe.Healthy() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, map[string]string{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, r, http.StatusNotFound, "not found")
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
