package domain_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/ticketfair/ticketfair/internal/domain"
)

func activeEvent(t *testing.T) *domain.Event {
	t.Helper()
	ev := testEvent(t)
	if err := ev.Activate(); err != nil {
		t.Fatal(err)
	}
	return ev
}

func TestNewBid_ExactPriceMatch(t *testing.T) {
	ev := activeEvent(t)
	bidder := uuid.New()
	now := testStart + 1800
	price := domain.CurrentPrice(ev, now)

	bid, err := domain.NewBid(ev, bidder, price, now)
	if err != nil {
		t.Fatal(err)
	}
	if bid.Status != domain.BidPending {
		t.Errorf("status = %v, want pending", bid.Status)
	}
	if bid.Amount != price {
		t.Errorf("amount = %d, want %d", bid.Amount, price)
	}
	if bid.ID != domain.BidID(ev.ID, bidder) {
		t.Error("bid ID must derive from (event, bidder)")
	}

	for _, off := range []int64{1, -1, price} {
		if _, err := domain.NewBid(ev, bidder, price+off, now); !errors.Is(err, domain.ErrBidNotAtCurrentPrice) {
			t.Errorf("amount %d: err = %v, want ErrBidNotAtCurrentPrice", price+off, err)
		}
	}
}

func TestNewBid_Gates(t *testing.T) {
	bidder := uuid.New()

	t.Run("not active", func(t *testing.T) {
		ev := testEvent(t)
		_, err := domain.NewBid(ev, bidder, ev.StartPrice, testStart)
		if !errors.Is(err, domain.ErrAuctionNotActive) {
			t.Errorf("err = %v, want ErrAuctionNotActive", err)
		}
	})

	t.Run("before window", func(t *testing.T) {
		ev := activeEvent(t)
		_, err := domain.NewBid(ev, bidder, ev.StartPrice, testStart-1)
		if !errors.Is(err, domain.ErrAuctionNotStarted) {
			t.Errorf("err = %v, want ErrAuctionNotStarted", err)
		}
	})

	t.Run("at end", func(t *testing.T) {
		ev := activeEvent(t)
		_, err := domain.NewBid(ev, bidder, ev.EndPrice, testEnd)
		if !errors.Is(err, domain.ErrAuctionEnded) {
			t.Errorf("err = %v, want ErrAuctionEnded", err)
		}
	})

	t.Run("at open boundary", func(t *testing.T) {
		ev := activeEvent(t)
		if _, err := domain.NewBid(ev, bidder, ev.StartPrice, testStart); err != nil {
			t.Errorf("bid at auction start: %v", err)
		}
	})
}
