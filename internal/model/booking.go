package model

import "time"

// Booking records a client's therapy session request. Its string UUID
// primary key doubles as the order_id sent to the payment aggregator,
// so the identifier must remain stable for the lifetime of the booking.
// PaymentStatus is derived from the associated payment row when the
// booking is read; it is never written directly.
//
// Fields:
//  ID            – primary key (char(36) UUID), also the aggregator order_id.
//  UserID        – client who booked the session.
//  SessionType   – "online" or "in_person".
//  SessionDate   – calendar date of the session.
//  SessionTime   – time slot label (e.g. "14:00").
//  Status        – state of the booking (pending, confirmed, cancelled, completed).
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Booking struct {
    ID          string    // bookings.id
    UserID      uint64    // bookings.user_id
    SessionType string    // bookings.session_type
    SessionDate time.Time // bookings.session_date
    SessionTime string    // bookings.session_time
    Status      string    // bookings.status
    CreatedAt   time.Time // bookings.created_at
    UpdatedAt   time.Time // bookings.updated_at
}

// Booking status values.
const (
    BookingPending   = "pending"
    BookingConfirmed = "confirmed"
    BookingCancelled = "cancelled"
    BookingCompleted = "completed"
)

// Session type values.
const (
    SessionOnline   = "online"
    SessionInPerson = "in_person"
)
