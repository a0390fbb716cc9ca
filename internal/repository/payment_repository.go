package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/amanicare/therapy-booking/internal/model"
)

// ErrPaymentNotFound is returned when no payment matches the given id
// or booking.
var ErrPaymentNotFound = errors.New("payment not found")

// PaymentRepo persists payment records. A booking carries at most one
// payment row (unique booking_id), created pending at booking time and
// completed exactly once by the reconciliation write-back. A completed
// row never transitions backward.
type PaymentRepo struct{ db *sql.DB }

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentCols = "id,booking_id,user_id,status,amount,currency,payment_method,transaction_id,aggregator_response,created_at,updated_at"

func scanPayment(row interface{ Scan(...interface{}) error }) (model.Payment, error) {
	var p model.Payment
	err := row.Scan(&p.ID, &p.BookingID, &p.UserID, &p.Status, &p.Amount, &p.Currency,
		&p.PaymentMethod, &p.TransactionID, &p.AggregatorResponse, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// Create inserts a payment row. A duplicate booking_id surfaces as
// ErrConflict: the booking already has its one active payment.
func (r *PaymentRepo) Create(ctx context.Context, p model.Payment) error {
	return r.exec(ctx, r.db.ExecContext, p)
}

// CreateTx is Create inside an existing transaction, used when the
// pending payment is created together with its booking.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p model.Payment) error {
	return r.exec(ctx, tx.ExecContext, p)
}

type execFn func(ctx context.Context, query string, args ...interface{}) (sql.Result, error)

func (r *PaymentRepo) exec(ctx context.Context, run execFn, p model.Payment) error {
	_, err := run(ctx,
		"INSERT INTO payments (id, booking_id, user_id, status, amount, currency, payment_method) VALUES (?,?,?,?,?,?,?)",
		p.ID, p.BookingID, p.UserID, p.Status, p.Amount, p.Currency, p.PaymentMethod)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
		return ErrConflict
	}
	return err
}

// GetByID fetches a payment by its UUID.
func (r *PaymentRepo) GetByID(ctx context.Context, id string) (model.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx,
		"SELECT "+paymentCols+" FROM payments WHERE id=? LIMIT 1", id))
	if err == sql.ErrNoRows {
		return p, ErrPaymentNotFound
	}
	return p, err
}

// GetByBookingID fetches the payment attached to a booking.
func (r *PaymentRepo) GetByBookingID(ctx context.Context, bookingID string) (model.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx,
		"SELECT "+paymentCols+" FROM payments WHERE booking_id=? LIMIT 1", bookingID))
	if err == sql.ErrNoRows {
		return p, ErrPaymentNotFound
	}
	return p, err
}

// ListByUser returns the user's payments, newest first.
func (r *PaymentRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Payment, error) {
	return r.list(ctx,
		"SELECT "+paymentCols+" FROM payments WHERE user_id=? ORDER BY created_at DESC", userID)
}

// ListAll returns every payment, newest first. Admin only.
func (r *PaymentRepo) ListAll(ctx context.Context) ([]model.Payment, error) {
	return r.list(ctx, "SELECT "+paymentCols+" FROM payments ORDER BY created_at DESC")
}

// UpdateStatus moves a payment to the given status. Completed rows are
// frozen: the guard keeps them from transitioning backward.
func (r *PaymentRepo) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE payments SET status=? WHERE id=? AND status <> 'completed'", status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		p, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if p.Status == model.PaymentCompleted && status != model.PaymentCompleted {
			return ErrConflict
		}
	}
	return nil
}

// Complete applies the terminal reconciliation write-back: status,
// captured amount, transaction reference, method and the raw aggregator
// payload for audit. Re-applying to an already completed row is a no-op
// success so a repeated write-back stays idempotent.
func (r *PaymentRepo) Complete(ctx context.Context, id string, amount int64, transactionID, method, aggregatorResponse string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE payments SET status='completed', amount=?, transaction_id=?, payment_method=?, aggregator_response=? WHERE id=? AND status <> 'completed'",
		amount, transactionID, method, aggregatorResponse, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// SumCompleted returns total revenue from completed payments.
func (r *PaymentRepo) SumCompleted(ctx context.Context) (int64, error) {
	var total sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		"SELECT SUM(amount) FROM payments WHERE status='completed'").Scan(&total)
	return total.Int64, err
}

func (r *PaymentRepo) list(ctx context.Context, query string, args ...interface{}) ([]model.Payment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
