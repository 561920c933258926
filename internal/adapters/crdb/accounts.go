package crdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/ticketfair/ticketfair/internal/domain"
)

// Account mutations model the ledger's balance substrate. Debits and
// credits always run inside the caller's transaction, so an escrow move
// commits atomically with the bid or refund it belongs to.

func (r *Repository) EnsureAccount(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO accounts (id, balance) VALUES ($1, 0)
		ON CONFLICT (id) DO NOTHING
	`, id)
	return err
}

// Deposit credits an account outside any settlement flow. Used to fund
// bidder accounts.
func (r *Repository) Deposit(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int64) error {
	if err := r.EnsureAccount(ctx, tx, id); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, `UPDATE accounts SET balance = balance + $2 WHERE id = $1`, id, amount)
	return err
}

// Transfer moves amount from one account to another, failing without
// side effects when the source balance is insufficient.
func (r *Repository) Transfer(ctx context.Context, tx pgx.Tx, from, to uuid.UUID, amount int64) error {
	if amount == 0 {
		return nil
	}
	result, err := tx.Exec(ctx, `
		UPDATE accounts SET balance = balance - $2 WHERE id = $1 AND balance >= $2
	`, from, amount)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrInsufficientFunds
	}
	result, err = tx.Exec(ctx, `UPDATE accounts SET balance = balance + $2 WHERE id = $1`, to, amount)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) GetBalance(ctx context.Context, id uuid.UUID) (int64, error) {
	var balance int64
	err := r.pool.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1`, id).Scan(&balance)
	if err == pgx.ErrNoRows {
		return 0, domain.ErrNotFound
	}
	return balance, err
}
