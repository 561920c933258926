package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/ticketfair/ticketfair/internal/adapters/crdb"
	mongoadapter "github.com/ticketfair/ticketfair/internal/adapters/mongo"
	redisadapter "github.com/ticketfair/ticketfair/internal/adapters/redis"
	"github.com/ticketfair/ticketfair/internal/config"
	"github.com/ticketfair/ticketfair/internal/domain"
	"github.com/ticketfair/ticketfair/internal/observability"
)

// maxTxRetries bounds the serialization-conflict retry loop. Every
// retried operation is idempotent through the forward-only status
// guards, so a replay can never settle the same bid twice.
const maxTxRetries = 3

// Service executes settlement operations against the ledger. Each
// operation is one serializable transaction: the state transition, the
// escrow move and the outbox notification commit together or not at all.
type Service struct {
	cfg   *config.Config
	repo  *crdb.Repository
	cache *redisadapter.Cache
	audit *mongoadapter.AuditLogger
	log   observability.Logger
	nowFn func() int64
}

func NewService(cfg *config.Config, repo *crdb.Repository, cache *redisadapter.Cache, audit *mongoadapter.AuditLogger, log observability.Logger, now func() int64) *Service {
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	return &Service{
		cfg:   cfg,
		repo:  repo,
		cache: cache,
		audit: audit,
		log:   log,
		nowFn: now,
	}
}

// withRetry reruns fn when the ledger reports a serialization conflict.
// The shared awarded counter is the one real contention point, so award
// bursts on a hot event are expected to conflict occasionally.
func (s *Service) withRetry(ctx context.Context, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	defer func() {
		observability.DBTxDuration.Observe(time.Since(start).Seconds())
	}()

	var err error
	for i := 0; i < maxTxRetries; i++ {
		err = s.repo.WithTx(ctx, fn)
		if !errors.Is(err, domain.ErrSerializationFailure) {
			return err
		}
		observability.SerializationRetriesTotal.Inc()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(1<<i) * 10 * time.Millisecond):
		}
	}
	return err
}

func (s *Service) insertOutbox(ctx context.Context, tx pgx.Tx, aggregateType string, aggregateID uuid.UUID, eventType string, payload map[string]interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.repo.InsertOutbox(ctx, tx, crdb.OutboxRecord{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       data,
		DedupeKey:     uuid.New().String(),
	})
}

// CreateEvent validates the auction parameters, mints the placeholder
// asset pool (one asset per ticket) and records the event in Created
// state.
func (s *Service) CreateEvent(ctx context.Context, params domain.EventParams) (*domain.Event, error) {
	ev, err := domain.NewEvent(params)
	if err != nil {
		return nil, err
	}

	assetIDs := make([]uuid.UUID, ev.TicketSupply)
	for i := range assetIDs {
		assetIDs[i] = uuid.New()
	}

	err = s.withRetry(ctx, func(tx pgx.Tx) error {
		if err := s.repo.CreateEvent(ctx, tx, ev, assetIDs); err != nil {
			return err
		}
		return s.insertOutbox(ctx, tx, "event", ev.ID, "event.created", map[string]interface{}{
			"event_id":  ev.ID,
			"organizer": ev.Organizer,
			"supply":    ev.TicketSupply,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("event_id", ev.ID.String()).Info("event created")
	return ev, nil
}

// ActivateEvent opens an event for bidding. Organizer only.
func (s *Service) ActivateEvent(ctx context.Context, caller, eventID uuid.UUID) (*domain.Event, error) {
	var ev *domain.Event
	err := s.withRetry(ctx, func(tx pgx.Tx) error {
		var err error
		ev, err = s.repo.GetEventTx(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if ev.Organizer != caller {
			return domain.ErrUnauthorized
		}
		if err := ev.Activate(); err != nil {
			return err
		}
		if err := s.repo.UpdateEvent(ctx, tx, ev); err != nil {
			return err
		}
		return s.insertOutbox(ctx, tx, "event", ev.ID, "event.activated", map[string]interface{}{
			"event_id": ev.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// CurrentPrice evaluates the price function against the stored auction
// bounds at the server clock. The snapshot lands in the cache for the
// read path; settlement always recomputes inside the transaction.
func (s *Service) CurrentPrice(ctx context.Context, eventID uuid.UUID) (int64, int64, error) {
	now := s.nowFn()
	if price, ok, err := s.cache.GetCachedPrice(ctx, eventID.String(), now); err == nil && ok {
		return price, now, nil
	}
	ev, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		return 0, 0, err
	}
	price := domain.CurrentPrice(ev, now)
	if err := s.cache.CachePrice(ctx, eventID.String(), now, price, s.cfg.PriceCacheTTL); err != nil {
		s.log.Warn("price cache write failed: ", err)
	}
	return price, now, nil
}

// PlaceBid escrows amount for bidder on event. The amount must equal the
// instantaneous auction price exactly; the bidder's funds move into the
// event escrow account in the same transaction that records the bid.
func (s *Service) PlaceBid(ctx context.Context, eventID, bidder uuid.UUID, amount int64) (*domain.Bid, error) {
	ok, err := s.cache.SetBidGuard(ctx, eventID.String(), bidder.String(), s.cfg.BidGuardTTL)
	if err != nil {
		s.log.Warn("bid guard unavailable: ", err)
	} else if !ok {
		observability.BidsRejectedTotal.WithLabelValues("duplicate").Inc()
		return nil, domain.ErrDuplicateBid
	}

	now := s.nowFn()
	var bid *domain.Bid
	err = s.withRetry(ctx, func(tx pgx.Tx) error {
		ev, err := s.repo.GetEventTx(ctx, tx, eventID)
		if err != nil {
			return err
		}
		bid, err = domain.NewBid(ev, bidder, amount, now)
		if err != nil {
			return err
		}
		if err := s.repo.CreateBid(ctx, tx, bid); err != nil {
			return err
		}
		if err := s.repo.Transfer(ctx, tx, bidder, domain.EscrowAccountID(ev.ID), amount); err != nil {
			return err
		}
		return s.insertOutbox(ctx, tx, "bid", bid.ID, "bid.placed", map[string]interface{}{
			"bid_id":   bid.ID,
			"event_id": ev.ID,
			"amount":   amount,
		})
	})
	if err != nil {
		observability.BidsRejectedTotal.WithLabelValues(rejectionReason(err)).Inc()
		if rerr := s.cache.ReleaseBidGuard(ctx, eventID.String(), bidder.String()); rerr != nil {
			s.log.Warn("bid guard release failed: ", rerr)
		}
		return nil, err
	}

	observability.BidsPlacedTotal.Inc()
	if err := s.audit.LogBid(ctx, bid); err != nil {
		s.log.Warn("bid audit failed: ", err)
	}
	return bid, nil
}

// AwardTicket assigns one placeholder asset to a pending bid and turns
// it into a ticket. Organizer only. The counter increment, the bid
// transition and the ticket insert commit as one unit; a replay after a
// serialization conflict is rejected by the Pending guard.
func (s *Service) AwardTicket(ctx context.Context, caller, eventID, bidID, assetRef uuid.UUID) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := s.withRetry(ctx, func(tx pgx.Tx) error {
		ev, err := s.repo.GetEventTx(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if ev.Organizer != caller {
			return domain.ErrUnauthorized
		}
		bid, err := s.repo.GetBidTx(ctx, tx, bidID)
		if err != nil {
			return err
		}
		assetID, err := s.repo.AssignAsset(ctx, tx, ev.ID, assetRef)
		if err != nil {
			return err
		}
		ticket, err = domain.AwardTicket(ev, bid, assetID)
		if err != nil {
			return err
		}
		if err := s.repo.UpdateBidStatus(ctx, tx, bid.ID, domain.BidPending, domain.BidTicketAwarded); err != nil {
			return err
		}
		if err := s.repo.UpdateEvent(ctx, tx, ev); err != nil {
			return err
		}
		if err := s.repo.CreateTicket(ctx, tx, ticket); err != nil {
			return err
		}
		return s.insertOutbox(ctx, tx, "ticket", ticket.ID, "ticket.awarded", map[string]interface{}{
			"ticket_id": ticket.ID,
			"event_id":  ev.ID,
			"owner":     ticket.Owner,
		})
	})
	if err != nil {
		return nil, err
	}

	observability.TicketsAwardedTotal.Inc()
	if err := s.audit.LogAward(ctx, ticket); err != nil {
		s.log.Warn("award audit failed: ", err)
	}
	return ticket, nil
}

// FinalizeAuction closes an Active auction at closePrice once the
// window has elapsed. Organizer only.
func (s *Service) FinalizeAuction(ctx context.Context, caller, eventID uuid.UUID, closePrice int64) (*domain.Event, error) {
	now := s.nowFn()
	var ev *domain.Event
	err := s.withRetry(ctx, func(tx pgx.Tx) error {
		var err error
		ev, err = s.repo.GetEventTx(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if ev.Organizer != caller {
			return domain.ErrUnauthorized
		}
		if err := ev.Finalize(closePrice, now); err != nil {
			return err
		}
		if err := s.repo.UpdateEvent(ctx, tx, ev); err != nil {
			return err
		}
		return s.insertOutbox(ctx, tx, "event", ev.ID, "auction.finalized", map[string]interface{}{
			"event_id":    ev.ID,
			"close_price": closePrice,
		})
	})
	if err != nil {
		return nil, err
	}

	observability.EventsFinalizedTotal.Inc()
	s.log.WithField("event_id", ev.ID.String()).Info("auction finalized")
	return ev, nil
}

// RefundBid settles the escrow held for the caller's bid: the full
// amount for a losing bid, the overpayment above the close price for a
// winner. The organizer's share moves to the proceeds account in the
// same transaction.
func (s *Service) RefundBid(ctx context.Context, caller, bidID uuid.UUID) (int64, error) {
	var refund int64
	var bid *domain.Bid
	err := s.withRetry(ctx, func(tx pgx.Tx) error {
		var err error
		bid, err = s.repo.GetBidTx(ctx, tx, bidID)
		if err != nil {
			return err
		}
		if bid.Bidder != caller {
			return domain.ErrUnauthorized
		}
		ev, err := s.repo.GetEventTx(ctx, tx, bid.Event)
		if err != nil {
			return err
		}
		prev := bid.Status
		refund, err = domain.RefundBid(ev, bid)
		if err != nil {
			return err
		}
		if err := s.repo.UpdateBidStatus(ctx, tx, bid.ID, prev, domain.BidRefunded); err != nil {
			return err
		}
		escrow := domain.EscrowAccountID(ev.ID)
		if err := s.repo.Transfer(ctx, tx, escrow, bid.Bidder, refund); err != nil {
			return err
		}
		if proceeds := bid.Amount - refund; proceeds > 0 {
			if err := s.repo.Transfer(ctx, tx, escrow, domain.ProceedsAccountID(ev.ID), proceeds); err != nil {
				return err
			}
		}
		return s.insertOutbox(ctx, tx, "bid", bid.ID, "bid.refunded", map[string]interface{}{
			"bid_id": bid.ID,
			"refund": refund,
		})
	})
	if err != nil {
		return 0, err
	}

	observability.RefundsTotal.Inc()
	if err := s.audit.LogRefund(ctx, bid, refund); err != nil {
		s.log.Warn("refund audit failed: ", err)
	}
	if err := s.cache.ReleaseBidGuard(ctx, bid.Event.String(), caller.String()); err != nil {
		s.log.Warn("bid guard release failed: ", err)
	}
	return refund, nil
}

// ClaimTicket attaches the off-chain reference for the physical token.
// Ticket owner only.
func (s *Service) ClaimTicket(ctx context.Context, caller, ticketID uuid.UUID, offchainRef string) error {
	ticket, err := s.repo.GetTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.Owner != caller {
		return domain.ErrUnauthorized
	}
	return s.repo.ClaimTicket(ctx, ticketID, offchainRef)
}

// Deposit funds a bidder account. Stands in for the external ledger's
// funding path.
func (s *Service) Deposit(ctx context.Context, account uuid.UUID, amount int64) error {
	return s.withRetry(ctx, func(tx pgx.Tx) error {
		return s.repo.Deposit(ctx, tx, account, amount)
	})
}

// Now exposes the service clock for read paths that evaluate the price
// outside a settlement transaction.
func (s *Service) Now() int64 {
	return s.nowFn()
}

func (s *Service) GetEvent(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	return s.repo.GetEvent(ctx, id)
}

func (s *Service) GetBid(ctx context.Context, id uuid.UUID) (*domain.Bid, error) {
	return s.repo.GetBid(ctx, id)
}

func (s *Service) GetTicket(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	return s.repo.GetTicket(ctx, id)
}

func rejectionReason(err error) string {
	switch err {
	case domain.ErrBidNotAtCurrentPrice:
		return "price_mismatch"
	case domain.ErrAuctionNotActive:
		return "not_active"
	case domain.ErrAuctionNotStarted:
		return "not_started"
	case domain.ErrAuctionEnded:
		return "ended"
	case domain.ErrDuplicateBid:
		return "duplicate"
	case domain.ErrInsufficientFunds:
		return "insufficient_funds"
	default:
		return "other"
	}
}
