package crdb

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ticketfair/ticketfair/internal/domain"
)

const (
	SerializationFailureCode = "40001"
	UniqueViolationCode      = "23505"
)

// Repository is the ledger substrate: every settlement operation runs as
// one SERIALIZABLE transaction, so mutations of the shared awarded
// counter are strictly serialized and escrow moves commit atomically
// with the state transitions they pay for.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		return mapSerializationFailure(err)
	}

	// CockroachDB reports most serialization conflicts at COMMIT, so the
	// commit error needs the same mapping as errors raised inside fn.
	if err := tx.Commit(ctx); err != nil {
		return mapSerializationFailure(err)
	}
	return nil
}

// mapSerializationFailure converts the 40001 retry signal into the
// domain sentinel the service retry loop keys on.
func mapSerializationFailure(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == SerializationFailureCode {
		return domain.ErrSerializationFailure
	}
	return err
}

// CreateEvent inserts the event, mints its placeholder asset pool and
// opens the escrow and proceeds accounts, all inside tx.
func (r *Repository) CreateEvent(ctx context.Context, tx pgx.Tx, ev *domain.Event, assetIDs []uuid.UUID) error {
	result, err := tx.Exec(ctx, `
		INSERT INTO events (id, organizer, metadata_url, ticket_supply, tickets_awarded,
			start_price, end_price, auction_start_time, auction_end_time, auction_close_price, status)
		VALUES ($1, $2, $3, $4, 0, $5, $6, $7, $8, 0, $9)
		ON CONFLICT (id) DO NOTHING
	`, ev.ID, ev.Organizer, ev.MetadataURL, ev.TicketSupply,
		ev.StartPrice, ev.EndPrice, ev.AuctionStartTime, ev.AuctionEndTime, int(ev.Status))
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrConflict
	}

	// One batch on the transaction's connection; a pgx.Tx is not safe
	// for concurrent commands.
	batch := &pgx.Batch{}
	for _, assetID := range assetIDs {
		batch.Queue(`
			INSERT INTO event_assets (event_id, asset_id, assigned)
			VALUES ($1, $2, false)
		`, ev.ID, assetID)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}

	for _, account := range []uuid.UUID{domain.EscrowAccountID(ev.ID), domain.ProceedsAccountID(ev.ID)} {
		if err := r.EnsureAccount(ctx, tx, account); err != nil {
			return err
		}
	}
	return nil
}

const eventColumns = `id, organizer, metadata_url, ticket_supply, tickets_awarded,
	start_price, end_price, auction_start_time, auction_end_time, auction_close_price, status`

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var ev domain.Event
	var status int
	err := row.Scan(&ev.ID, &ev.Organizer, &ev.MetadataURL, &ev.TicketSupply, &ev.TicketsAwarded,
		&ev.StartPrice, &ev.EndPrice, &ev.AuctionStartTime, &ev.AuctionEndTime,
		&ev.AuctionClosePrice, &status)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	ev.Status = domain.EventStatus(status)
	return &ev, nil
}

func (r *Repository) GetEvent(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	return scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

func (r *Repository) GetEventTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Event, error) {
	return scanEvent(tx.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

// UpdateEvent writes back the mutable event fields after a domain
// transition: status, the awarded counter and the close price.
func (r *Repository) UpdateEvent(ctx context.Context, tx pgx.Tx, ev *domain.Event) error {
	result, err := tx.Exec(ctx, `
		UPDATE events SET tickets_awarded = $2, auction_close_price = $3, status = $4
		WHERE id = $1
	`, ev.ID, ev.TicketsAwarded, ev.AuctionClosePrice, int(ev.Status))
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CreateBid inserts a Pending bid. The primary key derives from
// (event, bidder), so a second bid by the same bidder on the same event
// conflicts and is rejected, never replaced.
func (r *Repository) CreateBid(ctx context.Context, tx pgx.Tx, bid *domain.Bid) error {
	result, err := tx.Exec(ctx, `
		INSERT INTO bids (id, bidder, event_id, amount, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, bid.ID, bid.Bidder, bid.Event, bid.Amount, int(bid.Status))
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrDuplicateBid
	}
	return nil
}

func scanBid(row pgx.Row) (*domain.Bid, error) {
	var bid domain.Bid
	var status int
	err := row.Scan(&bid.ID, &bid.Bidder, &bid.Event, &bid.Amount, &status)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	bid.Status = domain.BidStatus(status)
	return &bid, nil
}

func (r *Repository) GetBid(ctx context.Context, id uuid.UUID) (*domain.Bid, error) {
	return scanBid(r.pool.QueryRow(ctx, `SELECT id, bidder, event_id, amount, status FROM bids WHERE id = $1`, id))
}

func (r *Repository) GetBidTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Bid, error) {
	return scanBid(tx.QueryRow(ctx, `SELECT id, bidder, event_id, amount, status FROM bids WHERE id = $1`, id))
}

// UpdateBidStatus applies a forward transition guarded by the current
// status, so a replayed transition affects zero rows instead of moving a
// settled bid twice.
func (r *Repository) UpdateBidStatus(ctx context.Context, tx pgx.Tx, bidID uuid.UUID, from, to domain.BidStatus) error {
	result, err := tx.Exec(ctx, `
		UPDATE bids SET status = $3 WHERE id = $1 AND status = $2
	`, bidID, int(from), int(to))
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrInvalidBidState
	}
	return nil
}

func (r *Repository) CreateTicket(ctx context.Context, tx pgx.Tx, ticket *domain.Ticket) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO tickets (id, owner, event_id, asset_id, offchain_ref, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, ticket.ID, ticket.Owner, ticket.Event, ticket.AssetID, ticket.OffchainRef, int(ticket.Status))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == UniqueViolationCode {
		return domain.ErrInvalidBidState
	}
	return err
}

func (r *Repository) GetTicket(ctx context.Context, id uuid.UUID) (*domain.Ticket, error) {
	var ticket domain.Ticket
	var status int
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner, event_id, asset_id, offchain_ref, status FROM tickets WHERE id = $1
	`, id).Scan(&ticket.ID, &ticket.Owner, &ticket.Event, &ticket.AssetID, &ticket.OffchainRef, &status)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	ticket.Status = domain.TicketStatus(status)
	return &ticket, nil
}

// ClaimTicket attaches the off-chain reference, once.
func (r *Repository) ClaimTicket(ctx context.Context, ticketID uuid.UUID, offchainRef string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE tickets SET offchain_ref = $2, status = $3
		WHERE id = $1 AND status = $4
	`, ticketID, offchainRef, int(domain.TicketClaimed), int(domain.TicketOwned))
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrInvalidBidState
	}
	return nil
}

// AssignAsset takes one unassigned placeholder from the event's pool,
// preferring a caller-supplied asset so the organizer can pin a specific
// placeholder to a winner.
func (r *Repository) AssignAsset(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, preferred uuid.UUID) (uuid.UUID, error) {
	var assetID uuid.UUID
	err := tx.QueryRow(ctx, `
		UPDATE event_assets SET assigned = true
		WHERE (event_id, asset_id) IN (
			SELECT event_id, asset_id FROM event_assets
			WHERE event_id = $1 AND assigned = false
			ORDER BY (asset_id = $2) DESC, asset_id
			LIMIT 1
		)
		RETURNING asset_id
	`, eventID, preferred).Scan(&assetID)
	if err == pgx.ErrNoRows {
		return uuid.Nil, domain.ErrEventSoldOut
	}
	if err != nil {
		return uuid.Nil, err
	}
	return assetID, nil
}

// GetFinalizableEvents lists Active events whose auction window closed
// at or before now. Used by the finalize worker.
func (r *Repository) GetFinalizableEvents(ctx context.Context, now int64) ([]*domain.Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE status = $1 AND auction_end_time <= $2
	`, int(domain.EventActive), now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
