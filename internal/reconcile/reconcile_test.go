package reconcile

import (
    "context"
    "encoding/json"
    "errors"
    "strings"
    "sync"
    "testing"
    "time"

    "github.com/amanicare/therapy-booking/internal/aggregator"
)

// fakeGateway scripts the aggregator: one CreateCharge result and a
// sequence of ChargeStatus steps consumed in order (the last step
// repeats once the script runs out). It records every call.
type fakeGateway struct {
    mu sync.Mutex

    createResult *aggregator.CreateResult
    createErr    error
    createCalls  []aggregator.ChargeRequest

    steps       []statusStep
    statusCalls int

    onStatus func(call int) // runs before the scripted step is returned
}

type statusStep struct {
    res *aggregator.StatusResult
    err error
}

func pending() statusStep {
    return statusStep{res: &aggregator.StatusResult{Status: aggregator.StatusPending}}
}

func complete(txn string, amount json.RawMessage) statusStep {
    return statusStep{res: &aggregator.StatusResult{
        Status:        aggregator.StatusComplete,
        TransactionID: txn,
        Amount:        amount,
        Raw:           json.RawMessage(`{"payment_status":"COMPLETED"}`),
    }}
}

func (g *fakeGateway) CreateCharge(ctx context.Context, req aggregator.ChargeRequest) (*aggregator.CreateResult, error) {
    g.mu.Lock()
    g.createCalls = append(g.createCalls, req)
    g.mu.Unlock()
    if g.createErr != nil {
        return nil, g.createErr
    }
    if g.createResult != nil {
        return g.createResult, nil
    }
    return &aggregator.CreateResult{Result: "SUCCESS"}, nil
}

func (g *fakeGateway) ChargeStatus(ctx context.Context, orderID string) (*aggregator.StatusResult, error) {
    g.mu.Lock()
    g.statusCalls++
    call := g.statusCalls
    i := call - 1
    if i >= len(g.steps) {
        i = len(g.steps) - 1
    }
    step := g.steps[i]
    hook := g.onStatus
    g.mu.Unlock()
    if hook != nil {
        hook(call)
    }
    return step.res, step.err
}

type fakeRecorder struct {
    mu    sync.Mutex
    calls []CompletedPayment
    err   error
}

func (r *fakeRecorder) Complete(ctx context.Context, p CompletedPayment) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.calls = append(r.calls, p)
    return r.err
}

func fastOptions() Options {
    return Options{
        GraceDelay:     time.Millisecond,
        PollInterval:   time.Millisecond,
        MaxAttempts:    8,
        FallbackAmount: 5000,
    }
}

func attempt() Attempt {
    return Attempt{
        BookingID:     "bk-1",
        PaymentID:     "pay-1",
        Phone:         "255759123123",
        Amount:        1000,
        PaymentMethod: "mobile_money",
    }
}

func TestRunCompletesAfterPendingPolls(t *testing.T) {
    gw := &fakeGateway{steps: []statusStep{pending(), pending(), complete("SEL-99", json.RawMessage(`"1000.00"`))}}
    rec := &fakeRecorder{}

    var seen []State
    opts := fastOptions()
    opts.OnTransition = func(s State) { seen = append(seen, s) }

    out := New(gw, rec, opts).Run(context.Background(), attempt())

    if out.State != StateSucceeded || out.Kind != KindNone {
        t.Fatalf("outcome = %s/%s, want succeeded with no error kind (err=%v)", out.State, out.Kind, out.Err)
    }
    if out.Attempts != 3 || gw.statusCalls != 3 {
        t.Fatalf("attempts = %d (status calls %d), want 3", out.Attempts, gw.statusCalls)
    }
    if out.TransactionID != "SEL-99" || out.Amount != 1000 {
        t.Fatalf("txn/amount = %q/%d, want SEL-99/1000", out.TransactionID, out.Amount)
    }
    if len(rec.calls) != 1 {
        t.Fatalf("recorder called %d times, want exactly 1", len(rec.calls))
    }
    got := rec.calls[0]
    if got.PaymentID != "pay-1" || got.TransactionID != "SEL-99" || got.Amount != 1000 {
        t.Fatalf("recorded %+v", got)
    }
    if len(got.AggregatorResponse) == 0 {
        t.Fatal("raw aggregator payload not passed to the recorder")
    }

    want := []State{StateAwaitingChargeAck, StatePolling, StateReconciling, StateSucceeded}
    if len(seen) != len(want) {
        t.Fatalf("transitions = %v, want %v", seen, want)
    }
    for i := range want {
        if seen[i] != want[i] {
            t.Fatalf("transitions = %v, want %v", seen, want)
        }
    }
}

func TestRunNormalizesLocalPhoneFormat(t *testing.T) {
    gw := &fakeGateway{steps: []statusStep{complete("T1", json.RawMessage(`1000`))}}
    a := attempt()
    a.Phone = "0759123123"

    out := New(gw, &fakeRecorder{}, fastOptions()).Run(context.Background(), a)

    if out.State != StateSucceeded {
        t.Fatalf("outcome = %s (%v)", out.State, out.Err)
    }
    if len(gw.createCalls) != 1 || gw.createCalls[0].Phone != "255759123123" {
        t.Fatalf("charge phone = %q, want 255759123123", gw.createCalls[0].Phone)
    }
    if gw.createCalls[0].OrderID != "bk-1" {
        t.Fatalf("order id = %q, want the booking id", gw.createCalls[0].OrderID)
    }
}

func TestRunRejectsInvalidPhoneWithoutNetworkCalls(t *testing.T) {
    gw := &fakeGateway{steps: []statusStep{pending()}}
    a := attempt()
    a.Phone = "12345"

    out := New(gw, &fakeRecorder{}, fastOptions()).Run(context.Background(), a)

    if out.State != StateFailed || out.Kind != KindValidation {
        t.Fatalf("outcome = %s/%s, want failed/validation", out.State, out.Kind)
    }
    if len(gw.createCalls) != 0 || gw.statusCalls != 0 {
        t.Fatalf("gateway touched (create=%d status=%d), want zero calls", len(gw.createCalls), gw.statusCalls)
    }
    if out.Message == "" {
        t.Fatal("validation outcome carries no user-facing message")
    }
}

func TestRunMapsMissingAPIKeyToConfiguration(t *testing.T) {
    gw := &fakeGateway{createErr: aggregator.ErrNotConfigured, steps: []statusStep{pending()}}

    out := New(gw, &fakeRecorder{}, fastOptions()).Run(context.Background(), attempt())

    if out.State != StateFailed || out.Kind != KindConfiguration {
        t.Fatalf("outcome = %s/%s, want failed/configuration", out.State, out.Kind)
    }
    if gw.statusCalls != 0 {
        t.Fatalf("polled %d times after a configuration failure", gw.statusCalls)
    }
}

func TestRunFailsWhenChargeIsRejected(t *testing.T) {
    gw := &fakeGateway{
        createResult: &aggregator.CreateResult{Result: "FAILED", Message: "insufficient balance"},
        steps:        []statusStep{pending()},
    }

    out := New(gw, &fakeRecorder{}, fastOptions()).Run(context.Background(), attempt())

    if out.State != StateFailed || out.Kind != KindAggregatorRejection {
        t.Fatalf("outcome = %s/%s, want failed/aggregator_rejection", out.State, out.Kind)
    }
    if gw.statusCalls != 0 {
        t.Fatalf("polled %d times after a rejected charge", gw.statusCalls)
    }
}

func TestRunStopsAtPollCeiling(t *testing.T) {
    gw := &fakeGateway{steps: []statusStep{pending()}}

    out := New(gw, &fakeRecorder{}, fastOptions()).Run(context.Background(), attempt())

    if out.State != StateFailed || out.Kind != KindPollingExhausted {
        t.Fatalf("outcome = %s/%s, want failed/polling_exhausted", out.State, out.Kind)
    }
    if out.Attempts != 8 || gw.statusCalls != 8 {
        t.Fatalf("attempts = %d (status calls %d), want exactly 8", out.Attempts, gw.statusCalls)
    }
}

func TestRunTransportErrorsShareTheCeiling(t *testing.T) {
    // Alternate transport errors and PENDING; neither may extend the budget.
    steps := []statusStep{
        {err: errors.New("dial tcp: timeout")},
        pending(),
        {err: errors.New("dial tcp: timeout")},
        pending(),
    }
    gw := &fakeGateway{steps: steps}

    out := New(gw, &fakeRecorder{}, fastOptions()).Run(context.Background(), attempt())

    if out.Kind != KindPollingExhausted {
        t.Fatalf("kind = %s, want polling_exhausted", out.Kind)
    }
    if gw.statusCalls != 8 {
        t.Fatalf("status calls = %d, want exactly 8", gw.statusCalls)
    }
}

func TestRunRecoversAfterTransportError(t *testing.T) {
    gw := &fakeGateway{steps: []statusStep{
        {err: errors.New("connection reset")},
        complete("T2", json.RawMessage(`1000`)),
    }}
    rec := &fakeRecorder{}

    out := New(gw, rec, fastOptions()).Run(context.Background(), attempt())

    if out.State != StateSucceeded || out.Attempts != 2 {
        t.Fatalf("outcome = %s after %d attempts (%v)", out.State, out.Attempts, out.Err)
    }
    if len(rec.calls) != 1 {
        t.Fatalf("recorder called %d times, want 1", len(rec.calls))
    }
}

func TestRunFailsOnAggregatorFailedStatus(t *testing.T) {
    gw := &fakeGateway{steps: []statusStep{
        pending(),
        {res: &aggregator.StatusResult{Status: aggregator.StatusFailed}},
    }}
    rec := &fakeRecorder{}

    out := New(gw, rec, fastOptions()).Run(context.Background(), attempt())

    if out.State != StateFailed || out.Kind != KindAggregatorRejection {
        t.Fatalf("outcome = %s/%s, want failed/aggregator_rejection", out.State, out.Kind)
    }
    if out.Attempts != 2 {
        t.Fatalf("attempts = %d, want 2", out.Attempts)
    }
    if len(rec.calls) != 0 {
        t.Fatal("recorder must not run for a failed charge")
    }
}

func TestRunFallsBackOnUnparsableAmountAndMissingTxn(t *testing.T) {
    gw := &fakeGateway{steps: []statusStep{complete("", json.RawMessage(`"n/a"`))}}
    rec := &fakeRecorder{}

    opts := fastOptions()
    opts.FallbackAmount = 7000
    out := New(gw, rec, opts).Run(context.Background(), attempt())

    if out.State != StateSucceeded {
        t.Fatalf("outcome = %s (%v)", out.State, out.Err)
    }
    if out.Amount != 7000 {
        t.Fatalf("amount = %d, want the 7000 fallback", out.Amount)
    }
    if !strings.HasPrefix(out.TransactionID, "txn_") {
        t.Fatalf("transaction id = %q, want a generated txn_ reference", out.TransactionID)
    }
    if len(rec.calls) != 1 || rec.calls[0].TransactionID != out.TransactionID {
        t.Fatalf("recorded %+v, want the generated reference", rec.calls)
    }
}

func TestRunSucceedsWithCaveatWhenWriteBackFails(t *testing.T) {
    gw := &fakeGateway{steps: []statusStep{complete("T3", json.RawMessage(`1000`))}}
    rec := &fakeRecorder{err: errors.New("mysql is down")}

    out := New(gw, rec, fastOptions()).Run(context.Background(), attempt())

    if out.State != StateSucceeded {
        t.Fatalf("state = %s, want succeeded: the charge was captured", out.State)
    }
    if out.Kind != KindReconciliationWrite || out.Err == nil {
        t.Fatalf("kind = %s (err=%v), want the recording caveat", out.Kind, out.Err)
    }
    if len(rec.calls) != 1 {
        t.Fatalf("recorder called %d times, want exactly 1 (no retry storm)", len(rec.calls))
    }
}

func TestRunSkipsWriteBackWithoutPaymentID(t *testing.T) {
    gw := &fakeGateway{steps: []statusStep{complete("T4", json.RawMessage(`1000`))}}
    rec := &fakeRecorder{}

    a := attempt()
    a.PaymentID = ""
    out := New(gw, rec, fastOptions()).Run(context.Background(), a)

    if out.State != StateSucceeded || out.Kind != KindReconciliationWrite {
        t.Fatalf("outcome = %s/%s, want succeeded with the recording caveat", out.State, out.Kind)
    }
    if len(rec.calls) != 0 {
        t.Fatal("recorder must not be called without a payment record id")
    }
}

func TestCancelDuringWaitStopsPolling(t *testing.T) {
    gw := &fakeGateway{steps: []statusStep{pending()}}
    rec := &fakeRecorder{}

    opts := fastOptions()
    opts.GraceDelay = time.Minute // cancel must release this wait, not outlast it
    r := New(gw, rec, opts)

    done := make(chan Outcome, 1)
    go func() { done <- r.Run(context.Background(), attempt()) }()

    for r.State() != StatePolling {
        time.Sleep(time.Millisecond)
    }
    r.Cancel()

    var out Outcome
    select {
    case out = <-done:
    case <-time.After(5 * time.Second):
        t.Fatal("Run did not return after Cancel")
    }
    if out.State != StateCancelled || out.Kind != KindUserCancelled {
        t.Fatalf("outcome = %s/%s, want cancelled/user_cancelled", out.State, out.Kind)
    }
    if gw.statusCalls != 0 {
        t.Fatalf("polled %d times after cancellation during the grace wait", gw.statusCalls)
    }
    if len(rec.calls) != 0 {
        t.Fatal("recorder called after cancellation")
    }
}

func TestCancelBetweenPollsStopsFurtherAttempts(t *testing.T) {
    gw := &fakeGateway{steps: []statusStep{pending()}}
    rec := &fakeRecorder{}

    opts := fastOptions()
    opts.PollInterval = time.Minute // attempt 3 would only run a minute out
    r := New(gw, rec, opts)

    go func() {
        for {
            gw.mu.Lock()
            n := gw.statusCalls
            gw.mu.Unlock()
            if n >= 2 {
                r.Cancel()
                return
            }
            time.Sleep(time.Millisecond)
        }
    }()

    out := r.Run(context.Background(), attempt())

    if out.State != StateCancelled || out.Kind != KindUserCancelled {
        t.Fatalf("outcome = %s/%s, want cancelled/user_cancelled", out.State, out.Kind)
    }
    if gw.statusCalls != 2 || out.Attempts != 2 {
        t.Fatalf("status calls = %d (attempts %d), want polling to stop after 2", gw.statusCalls, out.Attempts)
    }
    if len(rec.calls) != 0 {
        t.Fatal("recorder called after cancellation")
    }
}

func TestCancelDropsRacingCompleteResponse(t *testing.T) {
    // Cancel lands while the status request is in flight; the COMPLETE
    // response that comes back must be discarded, not reconciled.
    gw := &fakeGateway{steps: []statusStep{complete("T5", json.RawMessage(`1000`))}}
    rec := &fakeRecorder{}
    r := New(gw, rec, fastOptions())
    gw.onStatus = func(int) { r.Cancel() }

    out := r.Run(context.Background(), attempt())

    if out.State != StateCancelled || out.Kind != KindUserCancelled {
        t.Fatalf("outcome = %s/%s, want cancelled/user_cancelled", out.State, out.Kind)
    }
    if len(rec.calls) != 0 {
        t.Fatal("a response racing with cancellation must never reach the recorder")
    }
}

func TestCancelIsIdempotent(t *testing.T) {
    r := New(&fakeGateway{steps: []statusStep{pending()}}, &fakeRecorder{}, fastOptions())
    r.Cancel()
    r.Cancel() // second call must not panic on the closed channel
}

func TestRunHonoursContextCancellation(t *testing.T) {
    gw := &fakeGateway{steps: []statusStep{pending()}}
    opts := fastOptions()
    opts.PollInterval = time.Minute

    ctx, cancel := context.WithCancel(context.Background())
    r := New(gw, &fakeRecorder{}, opts)
    gw.onStatus = func(int) { cancel() }

    out := r.Run(ctx, attempt())

    if out.State != StateCancelled {
        t.Fatalf("state = %s, want cancelled when the context ends", out.State)
    }
}
