package model

import "time"

// Payment is the durable record of a payment attempt for a booking.
// Each booking has at most one payment row. The row is created in the
// "pending" state at booking time and moves to "completed" only after
// the aggregator has confirmed the charge; it never transitions
// backward from completed. AggregatorResponse keeps the raw provider
// payload for audit and is stored as an opaque JSON blob.
//
// Fields:
//  ID                 – primary key (char(36) UUID).
//  BookingID          – booking this payment belongs to (unique).
//  UserID             – paying client.
//  Status             – pending, completed or failed.
//  Amount             – amount in TZS (the currency has no subunits).
//  Currency           – ISO currency code, always "TZS" today.
//  PaymentMethod      – how the client paid (e.g. mobile_money).
//  TransactionID      – aggregator transaction reference (nullable until completed).
//  AggregatorResponse – raw provider response JSON (nullable).
//  CreatedAt          – creation timestamp.
//  UpdatedAt          – last update timestamp.
type Payment struct {
    ID                 string    // payments.id
    BookingID          string    // payments.booking_id
    UserID             uint64    // payments.user_id
    Status             string    // payments.status
    Amount             int64     // payments.amount
    Currency           string    // payments.currency
    PaymentMethod      string    // payments.payment_method
    TransactionID      *string   // payments.transaction_id (nullable)
    AggregatorResponse *string   // payments.aggregator_response (nullable JSON)
    CreatedAt          time.Time // payments.created_at
    UpdatedAt          time.Time // payments.updated_at
}

// Payment status values.
const (
    PaymentPending   = "pending"
    PaymentCompleted = "completed"
    PaymentFailed    = "failed"
)
