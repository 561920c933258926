package domain

import (
	"github.com/google/uuid"
)

// Ticket binds an awarded bid to one asset from the event's placeholder
// pool. At most one ticket exists per (event, owner) pair, mirroring the
// one-bid-per-bidder invariant.
type Ticket struct {
	ID          uuid.UUID
	Owner       uuid.UUID
	Event       uuid.UUID
	AssetID     uuid.UUID
	OffchainRef string
	Status      TicketStatus
}

type TicketStatus int

const (
	TicketOwned TicketStatus = iota
	TicketClaimed
)

func (s TicketStatus) String() string {
	switch s {
	case TicketOwned:
		return "owned"
	case TicketClaimed:
		return "claimed"
	default:
		return "unknown"
	}
}

// Claim attaches the off-chain reference for the physical ticket token.
// A ticket is claimed once.
func (t *Ticket) Claim(offchainRef string) error {
	if t.Status != TicketOwned {
		return ErrInvalidBidState
	}
	t.OffchainRef = offchainRef
	t.Status = TicketClaimed
	return nil
}
