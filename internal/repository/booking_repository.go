package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/amanicare/therapy-booking/internal/model"
)

// ErrBookingNotFound is returned when no booking matches the given id.
var ErrBookingNotFound = errors.New("booking not found")

// BookingRepo persists bookings. The string UUID primary key is
// generated by the handler so it can be reused as the aggregator
// order_id before the row is committed.
type BookingRepo struct{ db *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// spanning bookings and payments.
func (r *BookingRepo) DB() *sql.DB { return r.db }

const bookingCols = "id,user_id,session_type,session_date,session_time,status,created_at,updated_at"

func scanBooking(row interface{ Scan(...interface{}) error }) (model.Booking, error) {
	var b model.Booking
	err := row.Scan(&b.ID, &b.UserID, &b.SessionType, &b.SessionDate, &b.SessionTime, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// CreateTx inserts a booking inside an existing transaction.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b model.Booking) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO bookings (id, user_id, session_type, session_date, session_time, status) VALUES (?,?,?,?,?,?)",
		b.ID, b.UserID, b.SessionType, b.SessionDate, b.SessionTime, b.Status)
	return err
}

// GetByID fetches a booking by its UUID.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx,
		"SELECT "+bookingCols+" FROM bookings WHERE id=? LIMIT 1", id))
	if err == sql.ErrNoRows {
		return b, ErrBookingNotFound
	}
	return b, err
}

// ListByUser returns the user's bookings, newest session first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return r.list(ctx,
		"SELECT "+bookingCols+" FROM bookings WHERE user_id=? ORDER BY session_date DESC, session_time DESC", userID)
}

// ListAll returns every booking, newest session first. Admin only.
func (r *BookingRepo) ListAll(ctx context.Context) ([]model.Booking, error) {
	return r.list(ctx,
		"SELECT "+bookingCols+" FROM bookings ORDER BY session_date DESC, session_time DESC")
}

// ListUpcoming returns non-cancelled bookings from today onward,
// soonest first. Shared by the client dashboard and the admin view.
func (r *BookingRepo) ListUpcoming(ctx context.Context) ([]model.Booking, error) {
	return r.list(ctx,
		"SELECT "+bookingCols+" FROM bookings WHERE session_date >= CURDATE() AND status <> 'cancelled' ORDER BY session_date ASC, session_time ASC")
}

// CountAll returns the total number of bookings.
func (r *BookingRepo) CountAll(ctx context.Context) (uint64, error) {
	var n uint64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bookings").Scan(&n)
	return n, err
}

// CountUpcoming returns the number of upcoming non-cancelled bookings.
func (r *BookingRepo) CountUpcoming(ctx context.Context) (uint64, error) {
	var n uint64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bookings WHERE session_date >= CURDATE() AND status <> 'cancelled'").Scan(&n)
	return n, err
}

// UpdateStatus sets the booking status.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE bookings SET status=? WHERE id=?", status, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// RowsAffected is also 0 when the status did not change, so
		// confirm the row actually exists before reporting not-found.
		var exists int
		if err := r.db.QueryRowContext(ctx, "SELECT 1 FROM bookings WHERE id=? LIMIT 1", id).Scan(&exists); err == sql.ErrNoRows {
			return ErrBookingNotFound
		}
	}
	return nil
}

func (r *BookingRepo) list(ctx context.Context, query string, args ...interface{}) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
