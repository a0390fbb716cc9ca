// Package reconcile implements the payment reconciliation client: the
// state machine that creates a mobile-money charge, polls the
// aggregator until a terminal status and performs the single write-back
// against the local payment record. One Reconciler drives one payment
// attempt on a single logical timeline; the caller must not run two
// instances for the same booking concurrently.
package reconcile

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "sync"
    "time"

    "github.com/google/uuid"

    "github.com/amanicare/therapy-booking/internal/aggregator"
    "github.com/amanicare/therapy-booking/internal/utils"
)

// State names the machine's position. Transitions only ever move
// forward; Cancelled is absorbing and reachable from AwaitingChargeAck
// and Polling.
type State string

const (
    StateIdle              State = "idle"
    StateAwaitingChargeAck State = "awaiting_charge_ack"
    StatePolling           State = "polling"
    StateReconciling       State = "reconciling"
    StateSucceeded         State = "succeeded"
    StateFailed            State = "failed"
    StateCancelled         State = "cancelled"
)

// ErrorKind classifies how an attempt ended so the view layer can pick
// wording without string-matching errors. Kinds are surfaced alongside
// the final state; UserCancelled is deliberately distinct from every
// failure kind so cancelling never reads as a failed charge.
type ErrorKind string

const (
    KindNone                ErrorKind = ""
    KindValidation          ErrorKind = "validation"
    KindConfiguration       ErrorKind = "configuration"
    KindAggregatorRejection ErrorKind = "aggregator_rejection"
    KindPollingExhausted    ErrorKind = "polling_exhausted"
    KindReconciliationWrite ErrorKind = "reconciliation_write"
    KindUserCancelled       ErrorKind = "user_cancelled"
)

// Gateway is the slice of the aggregator client the reconciler needs.
// *aggregator.Client satisfies it.
type Gateway interface {
    CreateCharge(ctx context.Context, req aggregator.ChargeRequest) (*aggregator.CreateResult, error)
    ChargeStatus(ctx context.Context, orderID string) (*aggregator.StatusResult, error)
}

// CompletedPayment is the one terminal write-back sent to the payment
// record after the aggregator confirms the charge.
type CompletedPayment struct {
    PaymentID          string
    Amount             int64
    TransactionID      string
    PaymentMethod      string
    AggregatorResponse json.RawMessage
}

// PaymentRecorder persists the terminal write-back. The application API
// behind it is the source of truth and arbiter of concurrent writes;
// the reconciler issues at most one Complete call per attempt.
type PaymentRecorder interface {
    Complete(ctx context.Context, p CompletedPayment) error
}

// Options tunes the polling loop. Zero values select the production
// cadence: a 2s grace delay before the first status check (so the
// aggregator's push prompt can reach the payer's phone), then a fixed
// 5s inter-poll delay up to 8 attempts. The cadence is a fixed-period
// loop, not backoff: the aggregator's push round trip resolves within a
// bounded window and finer backoff adds nothing here.
type Options struct {
    GraceDelay     time.Duration
    PollInterval   time.Duration
    MaxAttempts    int
    FallbackAmount int64 // amount recorded when the aggregator returns an unparsable one
    OnTransition   func(State)
}

// Attempt identifies the charge to drive. BookingID doubles as the
// aggregator order_id. An empty PaymentID is tolerated: polling still
// runs, but the write-back is skipped and surfaced as a recording
// caveat so the discrepancy is never silent.
type Attempt struct {
    BookingID     string
    PaymentID     string
    Phone         string
    Amount        int64
    PaymentMethod string
    CallbackURL   string
}

// Outcome is the final report of one attempt. State is terminal
// (Succeeded, Failed or Cancelled). Kind is KindNone on a clean
// success; KindReconciliationWrite accompanies StateSucceeded when the
// charge was captured but the local record could not be updated.
type Outcome struct {
    State         State
    Kind          ErrorKind
    Err           error
    Message       string
    TransactionID string
    Amount        int64
    Attempts      int
}

// User-facing wording per error kind. PollingExhausted deliberately
// reads differently from a hard aggregator rejection even though both
// land in StateFailed.
var kindMessages = map[ErrorKind]string{
    KindValidation:          "Please enter a valid phone number (e.g. 255759123123 or 0759123123).",
    KindConfiguration:       "Payment service is currently unavailable. Please try again later.",
    KindAggregatorRejection: "Payment failed. Please try again.",
    KindPollingExhausted:    "Payment is taking longer than expected. Please check your phone and try again if needed.",
    KindReconciliationWrite: "Payment completed, but there was an issue updating the record. Please contact support.",
    KindUserCancelled:       "Payment cancelled.",
}

// Reconciler drives one payment attempt. Construct with New, run with
// Run, cancel from any goroutine with Cancel. The state field is only
// written by the goroutine inside Run; Cancel merely signals, so a
// response racing with cancellation can never transition the machine
// after the cancel took effect.
type Reconciler struct {
    gw   Gateway
    rec  PaymentRecorder
    opts Options

    mu    sync.Mutex
    state State

    cancelCh   chan struct{}
    cancelOnce sync.Once
}

// New builds a Reconciler, filling zero Options with the production
// cadence (2s grace, 5s interval, 8 attempts, 1000 TZS fallback).
func New(gw Gateway, rec PaymentRecorder, opts Options) *Reconciler {
    if opts.GraceDelay <= 0 {
        opts.GraceDelay = 2 * time.Second
    }
    if opts.PollInterval <= 0 {
        opts.PollInterval = 5 * time.Second
    }
    if opts.MaxAttempts <= 0 {
        opts.MaxAttempts = 8
    }
    if opts.FallbackAmount <= 0 {
        opts.FallbackAmount = 1000
    }
    return &Reconciler{
        gw:       gw,
        rec:      rec,
        opts:     opts,
        state:    StateIdle,
        cancelCh: make(chan struct{}),
    }
}

// Cancel aborts the attempt. It is safe to call multiple times and from
// any goroutine. The pending wait (grace delay or inter-poll timer) is
// released immediately and no further status poll is scheduled; a
// network response already in flight is discarded when it returns.
func (r *Reconciler) Cancel() {
    r.cancelOnce.Do(func() { close(r.cancelCh) })
}

// State returns the machine's current position.
func (r *Reconciler) State() State {
    r.mu.Lock()
    defer r.mu.Unlock()
    return r.state
}

func (r *Reconciler) cancelled(ctx context.Context) bool {
    select {
    case <-r.cancelCh:
        return true
    case <-ctx.Done():
        return true
    default:
        return false
    }
}

func (r *Reconciler) transition(s State) {
    r.mu.Lock()
    r.state = s
    r.mu.Unlock()
    if r.opts.OnTransition != nil {
        r.opts.OnTransition(s)
    }
}

// wait blocks for d, returning false if the attempt was cancelled (or
// the context ended) before the timer fired. The timer is stopped on
// the way out so no late fire can outlive the wait.
func (r *Reconciler) wait(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-t.C:
        return true
    case <-r.cancelCh:
        return false
    case <-ctx.Done():
        return false
    }
}

func (r *Reconciler) fail(kind ErrorKind, attempts int, err error) Outcome {
    r.transition(StateFailed)
    return Outcome{State: StateFailed, Kind: kind, Err: err, Message: kindMessages[kind], Attempts: attempts}
}

func (r *Reconciler) cancelOutcome(attempts int) Outcome {
    r.transition(StateCancelled)
    return Outcome{State: StateCancelled, Kind: KindUserCancelled, Message: kindMessages[KindUserCancelled], Attempts: attempts}
}

// Run executes the whole attempt and blocks until a terminal state.
// Attempts are strictly sequential: poll N+1 is scheduled only after
// poll N's response (or error) has been processed, and the attempt
// counter is the sole driver of ceiling enforcement. Transport errors
// while polling are retried on the same fixed cadence and share the
// ceiling with PENDING responses, so a flaky network cannot extend the
// budget of a truly stuck payment.
func (r *Reconciler) Run(ctx context.Context, a Attempt) Outcome {
    if a.BookingID == "" || a.Amount <= 0 {
        return r.fail(KindValidation, 0, errors.New("reconcile: booking id and positive amount are required"))
    }
    phone, ok := utils.NormalizePhone(a.Phone)
    if !ok {
        return r.fail(KindValidation, 0, fmt.Errorf("reconcile: invalid phone number %q", a.Phone))
    }

    r.transition(StateAwaitingChargeAck)
    created, err := r.gw.CreateCharge(ctx, aggregator.ChargeRequest{
        Phone:       phone,
        Amount:      a.Amount,
        OrderID:     a.BookingID,
        CallbackURL: a.CallbackURL,
    })
    if r.cancelled(ctx) {
        return r.cancelOutcome(0)
    }
    if err != nil {
        if errors.Is(err, aggregator.ErrNotConfigured) {
            return r.fail(KindConfiguration, 0, err)
        }
        return r.fail(KindAggregatorRejection, 0, err)
    }
    if !created.OK() {
        msg := created.Message
        if msg == "" {
            msg = "charge rejected"
        }
        return r.fail(KindAggregatorRejection, 0, fmt.Errorf("reconcile: %s", msg))
    }

    r.transition(StatePolling)
    if !r.wait(ctx, r.opts.GraceDelay) {
        return r.cancelOutcome(0)
    }

    attempts := 0
    for {
        attempts++
        status, err := r.gw.ChargeStatus(ctx, a.BookingID)
        if r.cancelled(ctx) {
            // The response raced with cancellation; drop it.
            return r.cancelOutcome(attempts)
        }
        switch {
        case err != nil:
            // Transport errors share the retry ceiling with PENDING.
        case status.Status == aggregator.StatusFailed:
            return r.fail(KindAggregatorRejection, attempts, errors.New("reconcile: aggregator reported FAILED"))
        case status.Status == aggregator.StatusComplete:
            return r.reconcile(ctx, a, status, attempts)
        }
        if attempts >= r.opts.MaxAttempts {
            return r.fail(KindPollingExhausted, attempts, fmt.Errorf("reconcile: still pending after %d polls", attempts))
        }
        if !r.wait(ctx, r.opts.PollInterval) {
            return r.cancelOutcome(attempts)
        }
    }
}

// reconcile performs the single terminal write-back and settles into
// Succeeded. The write-back is best-effort: the aggregator has already
// captured the charge, so a recording failure still succeeds from the
// payer's perspective but carries the KindReconciliationWrite caveat
// directing them to support.
func (r *Reconciler) reconcile(ctx context.Context, a Attempt, status *aggregator.StatusResult, attempts int) Outcome {
    r.transition(StateReconciling)

    amount, ok := status.AmountTZS()
    if !ok {
        amount = r.opts.FallbackAmount
    }
    txn := status.TransactionID
    if txn == "" {
        // The record must never be left without a transaction reference.
        txn = "txn_" + uuid.NewString()
    }

    out := Outcome{State: StateSucceeded, TransactionID: txn, Amount: amount, Attempts: attempts}
    if a.PaymentID == "" {
        out.Kind = KindReconciliationWrite
        out.Err = errors.New("reconcile: no payment record id, charge captured but not recorded")
        out.Message = kindMessages[KindReconciliationWrite]
    } else if err := r.rec.Complete(ctx, CompletedPayment{
        PaymentID:          a.PaymentID,
        Amount:             amount,
        TransactionID:      txn,
        PaymentMethod:      a.PaymentMethod,
        AggregatorResponse: status.Raw,
    }); err != nil {
        out.Kind = KindReconciliationWrite
        out.Err = fmt.Errorf("reconcile: write-back failed: %w", err)
        out.Message = kindMessages[KindReconciliationWrite]
    }

    r.transition(StateSucceeded)
    return out
}
