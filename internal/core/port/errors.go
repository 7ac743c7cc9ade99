package port

import "errors"

// Error taxonomy shared across ports. Validation errors surface to the
// bidder unchanged; contention and conflict errors are transient and
// retried internally before surfacing.
var (
	// ErrCampaignNotFound is returned when the campaign id is unknown.
	ErrCampaignNotFound = errors.New("campaign not found")

	// ErrCampaignNotActive rejects bids outside the active window.
	ErrCampaignNotActive = errors.New("campaign not active")

	// ErrPriceTooLow rejects bids below the product minimum price.
	ErrPriceTooLow = errors.New("price below product minimum")

	// ErrInsufficientStock is terminal for a reservation attempt: the
	// product has no remaining units.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrLockContention means the product lease lock is held elsewhere.
	// Transient; retry with backoff.
	ErrLockContention = errors.New("product lock contention")

	// ErrConcurrencyConflict means the optimistic version check failed.
	// Transient; retry from the top of the reservation pipeline.
	ErrConcurrencyConflict = errors.New("concurrent version conflict")

	// ErrSettlementInProgress signals another scheduler instance already
	// claimed the campaign's closure. Not a failure, a no-op.
	ErrSettlementInProgress = errors.New("settlement already in progress")

	// ErrRateLimited rejects a request that exceeded its admission window.
	ErrRateLimited = errors.New("rate limit exceeded")
)
