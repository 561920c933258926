package domain

import "errors"

// Validation errors, rejected at creation with no partial state.
var (
	ErrInvalidAuctionWindow = errors.New("invalid auction window")
	ErrInvalidPriceBounds   = errors.New("invalid price bounds")
)

// State machine violations.
var (
	ErrInvalidEventState = errors.New("invalid event state")
	ErrInvalidBidState   = errors.New("invalid bid state")
	ErrAlreadyRefunded   = errors.New("bid already refunded")
	ErrEventNotFinalized = errors.New("event not finalized")
)

// Timing violations. Callers may retry later.
var (
	ErrAuctionNotActive    = errors.New("auction not active")
	ErrAuctionNotStarted   = errors.New("auction not started")
	ErrAuctionEnded        = errors.New("auction ended")
	ErrAuctionStillRunning = errors.New("auction still running")
)

// ErrBidNotAtCurrentPrice rejects any bid that does not equal the
// instantaneous auction price exactly. Routine under the exact-match
// rule: callers requery the price and resubmit.
var ErrBidNotAtCurrentPrice = errors.New("bid not at current price")

// ErrEventSoldOut is terminal for the bid; route it to refund.
var ErrEventSoldOut = errors.New("event sold out")

// Identity violations. These indicate client bugs.
var (
	ErrDuplicateBid = errors.New("duplicate bid")
	ErrWrongEvent   = errors.New("bid references a different event")
)

// Infrastructure-level errors surfaced by the ledger adapter.
var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInsufficientFunds    = errors.New("insufficient funds")
)
