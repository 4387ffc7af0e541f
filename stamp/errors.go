/*
errors.go - Error taxonomy for the stamp engine

PURPOSE:
  Every failure the engine surfaces falls into one class. The transport maps
  classes to status codes; internal failures never leak their detail.

ERROR CLASSES:
  Validation  - malformed input (empty store id, bad admin value)
  NotFound    - tenant, store or coupon absent
  Conflict    - duplicate registration
  Forbidden   - campaign window closed, tenant-identity mismatch
  Transient   - constraint races, connection failures
  Internal    - anything else; the transaction is rolled back

BENIGN RACE:
  ErrDuplicateStamp is transient-class. The engine absorbs it and answers
  already_stamped; callers never see it from RecordStamp.

SEE ALSO:
  - engine.go: Reclassifies ErrDuplicateStamp
  - store/sqlstore/errors.go: Maps driver errors onto these sentinels
*/
package stamp

import (
	"errors"
	"fmt"

	"github.com/warp/stamp-engine/tenant"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrTransient  = errors.New("transient database error")

	// ErrDuplicateStamp is returned by the ledger when (user, store) already
	// has an event. It unwraps to ErrTransient.
	ErrDuplicateStamp = fmt.Errorf("%w: duplicate stamp", ErrTransient)
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError reports malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError reports a missing tenant, store, rule or coupon.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ForbiddenError reports an operation the caller may not perform.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string { return "forbidden: " + e.Reason }

func (e *ForbiddenError) Unwrap() error { return ErrForbidden }

// CampaignClosedError is returned when a stamp is attempted outside the
// campaign window. Message is localized for the tenant's language.
type CampaignClosedError struct {
	TenantID string
	State    tenant.WindowState
	Message  string
}

func (e *CampaignClosedError) Error() string { return e.Message }

func (e *CampaignClosedError) Unwrap() error { return ErrForbidden }

var closedMessages = map[tenant.Language][2]string{
	tenant.Japanese: {
		"キャンペーン開始前のためスタンプを押せません。",
		"キャンペーン終了後のためスタンプを押せません。",
	},
	tenant.English: {
		"The campaign has not started yet, so stamps cannot be collected.",
		"The campaign has ended, so stamps can no longer be collected.",
	},
	tenant.Chinese: {
		"活動尚未開始，無法蓋章。",
		"活動已結束，無法蓋章。",
	},
}

func campaignClosed(cfg tenant.Config, state tenant.WindowState) *CampaignClosedError {
	msgs, ok := closedMessages[cfg.Language]
	if !ok {
		msgs = closedMessages[tenant.DefaultLanguage]
	}
	msg := msgs[0]
	if state == tenant.WindowEnded {
		msg = msgs[1]
	}
	return &CampaignClosedError{TenantID: cfg.TenantID, State: state, Message: msg}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// Class is the caller-facing category of an error.
type Class int

const (
	ClassInternal Class = iota
	ClassValidation
	ClassNotFound
	ClassConflict
	ClassForbidden
	ClassTransient
)

// Classify places err in the taxonomy. Unknown errors are internal.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassInternal
	case errors.Is(err, ErrValidation), errors.Is(err, tenant.ErrInvalidConfig):
		return ClassValidation
	case errors.Is(err, ErrNotFound):
		return ClassNotFound
	case errors.Is(err, ErrConflict):
		return ClassConflict
	case errors.Is(err, ErrForbidden):
		return ClassForbidden
	case errors.Is(err, ErrTransient):
		return ClassTransient
	}
	return ClassInternal
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsClientError returns true if the error is due to the caller's request.
func IsClientError(err error) bool {
	switch Classify(err) {
	case ClassValidation, ClassNotFound, ClassConflict, ClassForbidden:
		return true
	}
	return false
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
