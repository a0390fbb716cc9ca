// Package queue defines message payloads exchanged over the message broker.
package queue

// PaymentCompletedEvent is published after the reconciliation write-back
// marks a payment as completed. It contains enough information for
// downstream consumers to log, notify, or trigger analytics without
// querying the primary database.
type PaymentCompletedEvent struct {
    PaymentID     string `json:"payment_id"`
    BookingID     string `json:"booking_id"`
    UserID        uint64 `json:"user_id"`
    Amount        int64  `json:"amount"`
    Currency      string `json:"currency"`
    PaymentMethod string `json:"payment_method"`
    TransactionID string `json:"transaction_id"`
    SessionType   string `json:"session_type"`
    CompletedAt   string `json:"completed_at"`
}
