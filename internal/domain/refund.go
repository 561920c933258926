package domain

// RefundBid settles the escrow held for bid and transitions it to
// Refunded. It returns the amount to release back to the bidder.
//
// A Pending (losing) bid refunds in full at any time; the bidder may
// withdraw while the auction is still open. A TicketAwarded bid refunds
// only the overpayment above the event's close price, and only once the
// event is Finalized; the remainder is the organizer's sale proceeds.
// The ticket itself is not revoked by a winner refund.
func RefundBid(ev *Event, bid *Bid) (int64, error) {
	if bid.Event != ev.ID {
		return 0, ErrWrongEvent
	}
	switch bid.Status {
	case BidRefunded:
		return 0, ErrAlreadyRefunded
	case BidPending:
		bid.Status = BidRefunded
		return bid.Amount, nil
	case BidTicketAwarded:
		if ev.Status != EventFinalized {
			return 0, ErrEventNotFinalized
		}
		refund := bid.Amount - ev.AuctionClosePrice
		if refund < 0 {
			refund = 0
		}
		bid.Status = BidRefunded
		return refund, nil
	default:
		return 0, ErrInvalidBidState
	}
}
