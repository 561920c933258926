package domain_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/ticketfair/ticketfair/internal/domain"
)

func TestNewEvent_Validation(t *testing.T) {
	base := domain.EventParams{
		Organizer:        uuid.New(),
		MetadataURL:      "https://example.com/event.json",
		TicketSupply:     10,
		StartPrice:       1000,
		EndPrice:         100,
		AuctionStartTime: testStart,
		AuctionEndTime:   testEnd,
	}

	t.Run("valid", func(t *testing.T) {
		ev, err := domain.NewEvent(base)
		if err != nil {
			t.Fatal(err)
		}
		if ev.Status != domain.EventCreated {
			t.Errorf("status = %v, want created", ev.Status)
		}
		if ev.TicketsAwarded != 0 || ev.AuctionClosePrice != 0 {
			t.Error("counters must start at zero")
		}
	})

	t.Run("empty window", func(t *testing.T) {
		p := base
		p.AuctionEndTime = p.AuctionStartTime
		if _, err := domain.NewEvent(p); !errors.Is(err, domain.ErrInvalidAuctionWindow) {
			t.Errorf("err = %v, want ErrInvalidAuctionWindow", err)
		}
	})

	t.Run("inverted window", func(t *testing.T) {
		p := base
		p.AuctionEndTime = p.AuctionStartTime - 1
		if _, err := domain.NewEvent(p); !errors.Is(err, domain.ErrInvalidAuctionWindow) {
			t.Errorf("err = %v, want ErrInvalidAuctionWindow", err)
		}
	})

	t.Run("ascending prices", func(t *testing.T) {
		p := base
		p.StartPrice, p.EndPrice = 100, 1000
		if _, err := domain.NewEvent(p); !errors.Is(err, domain.ErrInvalidPriceBounds) {
			t.Errorf("err = %v, want ErrInvalidPriceBounds", err)
		}
	})
}

func TestEvent_DeterministicID(t *testing.T) {
	organizer := uuid.New()
	p := domain.EventParams{
		Organizer:        organizer,
		MetadataURL:      "https://example.com/a.json",
		TicketSupply:     1,
		StartPrice:       10,
		EndPrice:         1,
		AuctionStartTime: testStart,
		AuctionEndTime:   testEnd,
	}
	a, err := domain.NewEvent(p)
	if err != nil {
		t.Fatal(err)
	}
	b, err := domain.NewEvent(p)
	if err != nil {
		t.Fatal(err)
	}
	if a.ID != b.ID {
		t.Errorf("same inputs derived different IDs: %s vs %s", a.ID, b.ID)
	}
	p.MetadataURL = "https://example.com/b.json"
	c, err := domain.NewEvent(p)
	if err != nil {
		t.Fatal(err)
	}
	if c.ID == a.ID {
		t.Error("different inputs derived the same ID")
	}
}

func TestEvent_Lifecycle(t *testing.T) {
	ev := testEvent(t)

	if err := ev.Finalize(100, testEnd); !errors.Is(err, domain.ErrInvalidEventState) {
		t.Errorf("finalize from created: err = %v, want ErrInvalidEventState", err)
	}

	if err := ev.Activate(); err != nil {
		t.Fatal(err)
	}
	if ev.Status != domain.EventActive {
		t.Fatalf("status = %v, want active", ev.Status)
	}
	if err := ev.Activate(); !errors.Is(err, domain.ErrInvalidEventState) {
		t.Errorf("double activate: err = %v, want ErrInvalidEventState", err)
	}

	if err := ev.Finalize(500_000_000, testEnd-1); !errors.Is(err, domain.ErrAuctionStillRunning) {
		t.Errorf("early finalize: err = %v, want ErrAuctionStillRunning", err)
	}
	if ev.Status != domain.EventActive {
		t.Fatal("failed finalize must not change status")
	}

	if err := ev.Finalize(500_000_000, testEnd); err != nil {
		t.Fatal(err)
	}
	if ev.Status != domain.EventFinalized || ev.AuctionClosePrice != 500_000_000 {
		t.Errorf("status = %v close = %d, want finalized/500000000", ev.Status, ev.AuctionClosePrice)
	}

	if err := ev.Finalize(1, testEnd); !errors.Is(err, domain.ErrInvalidEventState) {
		t.Errorf("double finalize: err = %v, want ErrInvalidEventState", err)
	}
}
