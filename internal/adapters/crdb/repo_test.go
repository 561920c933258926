package crdb_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/ticketfair/ticketfair/internal/adapters/crdb"
	"github.com/ticketfair/ticketfair/internal/domain"
)

const schema = `
	CREATE DATABASE IF NOT EXISTS ticketfair;
	CREATE TABLE IF NOT EXISTS ticketfair.accounts (
		id UUID PRIMARY KEY,
		balance INT8 NOT NULL DEFAULT 0 CHECK (balance >= 0)
	);
	CREATE TABLE IF NOT EXISTS ticketfair.events (
		id UUID PRIMARY KEY,
		organizer UUID NOT NULL,
		metadata_url TEXT NOT NULL,
		ticket_supply INT4 NOT NULL,
		tickets_awarded INT4 NOT NULL DEFAULT 0,
		start_price INT8 NOT NULL,
		end_price INT8 NOT NULL,
		auction_start_time INT8 NOT NULL,
		auction_end_time INT8 NOT NULL,
		auction_close_price INT8 NOT NULL DEFAULT 0,
		status INT4 NOT NULL
	);
	CREATE TABLE IF NOT EXISTS ticketfair.event_assets (
		event_id UUID NOT NULL,
		asset_id UUID NOT NULL,
		assigned BOOL NOT NULL DEFAULT false,
		PRIMARY KEY (event_id, asset_id)
	);
	CREATE TABLE IF NOT EXISTS ticketfair.bids (
		id UUID PRIMARY KEY,
		bidder UUID NOT NULL,
		event_id UUID NOT NULL,
		amount INT8 NOT NULL,
		status INT4 NOT NULL
	);
	CREATE TABLE IF NOT EXISTS ticketfair.tickets (
		id UUID PRIMARY KEY,
		owner UUID NOT NULL,
		event_id UUID NOT NULL,
		asset_id UUID NOT NULL,
		offchain_ref TEXT NOT NULL DEFAULT '',
		status INT4 NOT NULL
	);
	CREATE TABLE IF NOT EXISTS ticketfair.outbox (
		id UUID PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		aggregate_id UUID NOT NULL,
		event_type TEXT NOT NULL,
		payload_json BYTES NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		published_at TIMESTAMPTZ,
		status TEXT NOT NULL CHECK (status IN ('NEW', 'PUBLISHED', 'FAILED')),
		dedupe_key TEXT NOT NULL
	);
`

func setupRepo(t *testing.T) (*crdb.Repository, *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	crdbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "cockroachdb/cockroach:v24.1.1",
			Cmd:          []string{"start-single-node", "--insecure"},
			ExposedPorts: []string{"26257/tcp"},
			WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { crdbContainer.Terminate(ctx) })

	dsn, err := crdbContainer.Endpoint(ctx, "postgresql")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, dsn+"/ticketfair?sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, schema); err != nil {
		t.Fatal(err)
	}

	return crdb.NewRepository(pool), pool
}

func testEvent(t *testing.T) *domain.Event {
	t.Helper()
	ev, err := domain.NewEvent(domain.EventParams{
		Organizer:        uuid.New(),
		MetadataURL:      "https://meta.example/" + uuid.NewString(),
		TicketSupply:     2,
		StartPrice:       1_000,
		EndPrice:         100,
		AuctionStartTime: 1_700_000_000,
		AuctionEndTime:   1_700_003_600,
	})
	if err != nil {
		t.Fatal(err)
	}
	return ev
}

func TestRepository_CreateEvent(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	ev := testEvent(t)
	assets := []uuid.UUID{uuid.New(), uuid.New()}

	err := repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.CreateEvent(ctx, tx, ev, assets)
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.CreateEvent(ctx, tx, ev, nil)
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected conflict error, got %v", err)
	}

	fetched, err := repo.GetEvent(ctx, ev.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Status != domain.EventCreated || fetched.TicketSupply != 2 {
		t.Errorf("unexpected event %+v", fetched)
	}

	// creating the event opens its escrow and proceeds accounts
	for _, acct := range []uuid.UUID{domain.EscrowAccountID(ev.ID), domain.ProceedsAccountID(ev.ID)} {
		balance, err := repo.GetBalance(ctx, acct)
		if err != nil {
			t.Fatal(err)
		}
		if balance != 0 {
			t.Errorf("expected zero opening balance, got %d", balance)
		}
	}
}

func TestRepository_CreateEvent_MintsAssetPool(t *testing.T) {
	repo, pool := setupRepo(t)
	ctx := context.Background()

	ev, err := domain.NewEvent(domain.EventParams{
		Organizer:        uuid.New(),
		MetadataURL:      "https://meta.example/" + uuid.NewString(),
		TicketSupply:     64,
		StartPrice:       1_000,
		EndPrice:         100,
		AuctionStartTime: 1_700_000_000,
		AuctionEndTime:   1_700_003_600,
	})
	if err != nil {
		t.Fatal(err)
	}
	assets := make([]uuid.UUID, ev.TicketSupply)
	for i := range assets {
		assets[i] = uuid.New()
	}

	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.CreateEvent(ctx, tx, ev, assets)
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var minted int
	err = pool.QueryRow(ctx, `SELECT count(*) FROM event_assets WHERE event_id = $1 AND assigned = false`, ev.ID).Scan(&minted)
	if err != nil {
		t.Fatal(err)
	}
	if minted != len(assets) {
		t.Errorf("expected %d pool assets, got %d", len(assets), minted)
	}
}

func TestRepository_BidStatusTransitions(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	ev := testEvent(t)
	err := repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.CreateEvent(ctx, tx, ev, nil)
	})
	if err != nil {
		t.Fatal(err)
	}

	bidder := uuid.New()
	bid := &domain.Bid{
		ID:     domain.BidID(ev.ID, bidder),
		Bidder: bidder,
		Event:  ev.ID,
		Amount: 1_000,
		Status: domain.BidPending,
	}

	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.CreateBid(ctx, tx, bid)
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.CreateBid(ctx, tx, bid)
	})
	if !errors.Is(err, domain.ErrDuplicateBid) {
		t.Errorf("expected duplicate bid error, got %v", err)
	}

	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.UpdateBidStatus(ctx, tx, bid.ID, domain.BidPending, domain.BidTicketAwarded)
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// replaying the same transition affects zero rows
	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.UpdateBidStatus(ctx, tx, bid.ID, domain.BidPending, domain.BidTicketAwarded)
	})
	if !errors.Is(err, domain.ErrInvalidBidState) {
		t.Errorf("expected invalid bid state, got %v", err)
	}

	fetched, err := repo.GetBid(ctx, bid.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Status != domain.BidTicketAwarded {
		t.Errorf("expected awarded, got %v", fetched.Status)
	}
}

func TestRepository_AssignAsset(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	ev := testEvent(t)
	assets := []uuid.UUID{uuid.New(), uuid.New()}
	err := repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.CreateEvent(ctx, tx, ev, assets)
	})
	if err != nil {
		t.Fatal(err)
	}

	var first uuid.UUID
	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		first, err = repo.AssignAsset(ctx, tx, ev.ID, assets[1])
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if first != assets[1] {
		t.Errorf("expected preferred asset %v, got %v", assets[1], first)
	}

	var second uuid.UUID
	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		second, err = repo.AssignAsset(ctx, tx, ev.ID, assets[1])
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if second != assets[0] {
		t.Errorf("expected fallback asset %v, got %v", assets[0], second)
	}

	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := repo.AssignAsset(ctx, tx, ev.ID, uuid.New())
		return err
	})
	if !errors.Is(err, domain.ErrEventSoldOut) {
		t.Errorf("expected sold out, got %v", err)
	}
}

func TestRepository_Transfer(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	from := uuid.New()
	to := uuid.New()

	err := repo.WithTx(ctx, func(tx pgx.Tx) error {
		if err := repo.Deposit(ctx, tx, from, 500); err != nil {
			return err
		}
		return repo.EnsureAccount(ctx, tx, to)
	})
	if err != nil {
		t.Fatal(err)
	}

	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.Transfer(ctx, tx, from, to, 300)
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	err = repo.WithTx(ctx, func(tx pgx.Tx) error {
		return repo.Transfer(ctx, tx, from, to, 300)
	})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Errorf("expected insufficient funds, got %v", err)
	}

	fromBalance, err := repo.GetBalance(ctx, from)
	if err != nil {
		t.Fatal(err)
	}
	toBalance, err := repo.GetBalance(ctx, to)
	if err != nil {
		t.Fatal(err)
	}
	if fromBalance != 200 || toBalance != 300 {
		t.Errorf("expected 200/300, got %d/%d", fromBalance, toBalance)
	}
}

func TestRepository_GetFinalizableEvents(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	ev := testEvent(t)
	if err := ev.Activate(); err != nil {
		t.Fatal(err)
	}
	err := repo.WithTx(ctx, func(tx pgx.Tx) error {
		if err := repo.CreateEvent(ctx, tx, ev, nil); err != nil {
			return err
		}
		return repo.UpdateEvent(ctx, tx, ev)
	})
	if err != nil {
		t.Fatal(err)
	}

	events, err := repo.GetFinalizableEvents(ctx, ev.AuctionEndTime-1)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Errorf("expected no finalizable events before the window ends, got %d", len(events))
	}

	events, err = repo.GetFinalizableEvents(ctx, ev.AuctionEndTime)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].ID != ev.ID {
		t.Errorf("expected the active event, got %v", events)
	}
}
