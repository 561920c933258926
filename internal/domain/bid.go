package domain

import (
	"github.com/google/uuid"
)

// Bid is an escrowed offer by one bidder on one event. The amount is
// fixed at submission and the status only ever moves forward.
type Bid struct {
	ID     uuid.UUID
	Bidder uuid.UUID
	Event  uuid.UUID
	Amount int64
	Status BidStatus
}

type BidStatus int

const (
	BidPending BidStatus = iota
	BidTicketAwarded
	BidRefunded
)

func (s BidStatus) String() string {
	switch s {
	case BidPending:
		return "pending"
	case BidTicketAwarded:
		return "ticket_awarded"
	case BidRefunded:
		return "refunded"
	default:
		return "unknown"
	}
}

// NewBid validates a bid of amount against ev at unix time now and
// returns it in the Pending state. The amount must equal the current
// auction price exactly; anything else is rejected and the caller is
// expected to requery and resubmit.
//
// Duplicate submission by the same bidder is not detected here: the bid
// ID is derived from (event, bidder), so the ledger rejects a second
// insert structurally.
func NewBid(ev *Event, bidder uuid.UUID, amount, now int64) (*Bid, error) {
	if ev.Status != EventActive {
		return nil, ErrAuctionNotActive
	}
	if now < ev.AuctionStartTime {
		return nil, ErrAuctionNotStarted
	}
	if now >= ev.AuctionEndTime {
		return nil, ErrAuctionEnded
	}
	if amount != CurrentPrice(ev, now) {
		return nil, ErrBidNotAtCurrentPrice
	}
	return &Bid{
		ID:     BidID(ev.ID, bidder),
		Bidder: bidder,
		Event:  ev.ID,
		Amount: amount,
		Status: BidPending,
	}, nil
}
