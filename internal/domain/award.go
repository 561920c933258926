package domain

import (
	"github.com/google/uuid"
)

// AwardTicket transitions a Pending bid to TicketAwarded, increments the
// event's awarded counter and returns the resulting Ticket bound to
// assetID from the event's pool.
//
// The two writes plus the ticket creation form one unit: the caller must
// apply them atomically (the ledger adapter runs this inside a single
// serializable transaction). The Pending guard makes a retried award
// idempotent, so a transaction replay can never increment the counter
// twice for the same bid.
func AwardTicket(ev *Event, bid *Bid, assetID uuid.UUID) (*Ticket, error) {
	if bid.Event != ev.ID {
		return nil, ErrWrongEvent
	}
	if bid.Status != BidPending {
		return nil, ErrInvalidBidState
	}
	if ev.SoldOut() {
		return nil, ErrEventSoldOut
	}
	bid.Status = BidTicketAwarded
	ev.TicketsAwarded++
	return &Ticket{
		ID:      TicketID(ev.ID, bid.Bidder),
		Owner:   bid.Bidder,
		Event:   ev.ID,
		AssetID: assetID,
		Status:  TicketOwned,
	}, nil
}
