package domain

import (
	"github.com/google/uuid"
)

// Event is a ticket sale run as a descending-price auction. Prices are in
// the smallest currency unit, times are unix seconds.
type Event struct {
	ID                uuid.UUID
	Organizer         uuid.UUID
	MetadataURL       string
	TicketSupply      int32
	TicketsAwarded    int32
	StartPrice        int64
	EndPrice          int64
	AuctionStartTime  int64
	AuctionEndTime    int64
	AuctionClosePrice int64
	Status            EventStatus
}

type EventStatus int

const (
	EventCreated EventStatus = iota
	EventActive
	EventFinalized
)

func (s EventStatus) String() string {
	switch s {
	case EventCreated:
		return "created"
	case EventActive:
		return "active"
	case EventFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// EventParams carries the organizer-supplied fields for NewEvent.
type EventParams struct {
	Organizer        uuid.UUID
	MetadataURL      string
	TicketSupply     int32
	StartPrice       int64
	EndPrice         int64
	AuctionStartTime int64
	AuctionEndTime   int64
}

// NewEvent validates the auction parameters and returns an Event in the
// Created state. The window must be non-empty and the price curve must
// descend; equal start and end prices degenerate to a flat price.
func NewEvent(p EventParams) (*Event, error) {
	if p.AuctionEndTime <= p.AuctionStartTime {
		return nil, ErrInvalidAuctionWindow
	}
	if p.StartPrice < p.EndPrice {
		return nil, ErrInvalidPriceBounds
	}
	return &Event{
		ID:               EventID(p.Organizer, p.AuctionStartTime, p.MetadataURL),
		Organizer:        p.Organizer,
		MetadataURL:      p.MetadataURL,
		TicketSupply:     p.TicketSupply,
		StartPrice:       p.StartPrice,
		EndPrice:         p.EndPrice,
		AuctionStartTime: p.AuctionStartTime,
		AuctionEndTime:   p.AuctionEndTime,
		Status:           EventCreated,
	}, nil
}

// Activate moves the event from Created to Active. There is no time
// window check here; an organizer may open bidding ahead of the auction
// start, bids are still gated on AuctionStartTime.
func (e *Event) Activate() error {
	if e.Status != EventCreated {
		return ErrInvalidEventState
	}
	e.Status = EventActive
	return nil
}

// Finalize closes an Active auction at closePrice once the auction window
// has elapsed. The close price is fixed permanently and drives partial
// refunds for winning bids.
func (e *Event) Finalize(closePrice, now int64) error {
	if e.Status != EventActive {
		return ErrInvalidEventState
	}
	if now < e.AuctionEndTime {
		return ErrAuctionStillRunning
	}
	e.AuctionClosePrice = closePrice
	e.Status = EventFinalized
	return nil
}

// SoldOut reports whether every ticket has been awarded.
func (e *Event) SoldOut() bool {
	return e.TicketsAwarded >= e.TicketSupply
}
