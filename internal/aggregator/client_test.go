package aggregator

import (
    "context"
    "encoding/json"
    "errors"
    "net/http"
    "net/http/httptest"
    "testing"
)

func TestCreateChargeSendsKeyAndPayload(t *testing.T) {
    var gotKey, gotPath string
    var gotBody ChargeRequest
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        gotKey = r.Header.Get("X-API-KEY")
        gotPath = r.URL.Path
        _ = json.NewDecoder(r.Body).Decode(&gotBody)
        _ = json.NewEncoder(w).Encode(map[string]string{"result": "SUCCESS", "reference": "REF-1"})
    }))
    defer srv.Close()

    c := NewClient(srv.URL, "secret")
    res, err := c.CreateCharge(context.Background(), ChargeRequest{
        Phone:       "255759123123",
        Amount:      1000,
        OrderID:     "bk-1",
        CallbackURL: "https://example.org/cb",
    })
    if err != nil {
        t.Fatalf("CreateCharge: %v", err)
    }
    if gotKey != "secret" || gotPath != "/payment/create" {
        t.Fatalf("request = %s with key %q", gotPath, gotKey)
    }
    if gotBody.OrderID != "bk-1" || gotBody.Amount != 1000 || gotBody.Phone != "255759123123" {
        t.Fatalf("payload = %+v", gotBody)
    }
    if !res.OK() || res.Reference != "REF-1" {
        t.Fatalf("result = %+v, want SUCCESS/REF-1", res)
    }
}

func TestCreateChargeResultIsCaseInsensitive(t *testing.T) {
    for _, result := range []string{"SUCCESS", "success", "Success"} {
        r := CreateResult{Result: result}
        if !r.OK() {
            t.Fatalf("result %q not accepted", result)
        }
    }
    if (&CreateResult{Result: "FAILED"}).OK() {
        t.Fatal("FAILED accepted as success")
    }
}

func TestCreateChargeMapsVendorError(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(http.StatusUnprocessableEntity)
        _ = json.NewEncoder(w).Encode(map[string]string{"message": "invalid msisdn"})
    }))
    defer srv.Close()

    _, err := NewClient(srv.URL, "secret").CreateCharge(context.Background(), ChargeRequest{OrderID: "bk-1"})
    var apiErr *APIError
    if !errors.As(err, &apiErr) {
        t.Fatalf("err = %v, want *APIError", err)
    }
    if apiErr.StatusCode != http.StatusUnprocessableEntity || apiErr.Message != "invalid msisdn" {
        t.Fatalf("apiErr = %+v", apiErr)
    }
}

func TestClientRequiresAPIKey(t *testing.T) {
    c := NewClient("http://localhost:1", "")
    if _, err := c.CreateCharge(context.Background(), ChargeRequest{}); !errors.Is(err, ErrNotConfigured) {
        t.Fatalf("CreateCharge err = %v, want ErrNotConfigured", err)
    }
    if _, err := c.ChargeStatus(context.Background(), "bk-1"); !errors.Is(err, ErrNotConfigured) {
        t.Fatalf("ChargeStatus err = %v, want ErrNotConfigured", err)
    }
}

func TestChargeStatusNormalizesAndCoalesces(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if r.URL.Path != "/payment/status/bk-1" {
            t.Errorf("path = %s", r.URL.Path)
        }
        _ = json.NewEncoder(w).Encode(map[string]interface{}{
            "order_id":              "bk-1",
            "payment_status":        "COMPLETED",
            "selcom_transaction_id": "SEL-7",
            "amount":                "1000.00",
        })
    }))
    defer srv.Close()

    res, err := NewClient(srv.URL, "secret").ChargeStatus(context.Background(), "bk-1")
    if err != nil {
        t.Fatalf("ChargeStatus: %v", err)
    }
    if res.Status != StatusComplete {
        t.Fatalf("status = %s, want COMPLETE for the COMPLETED spelling", res.Status)
    }
    if res.TransactionID != "SEL-7" {
        t.Fatalf("transaction id = %q, want the selcom fallback", res.TransactionID)
    }
    if amt, ok := res.AmountTZS(); !ok || amt != 1000 {
        t.Fatalf("amount = %d/%v, want 1000 from the string form", amt, ok)
    }
    if len(res.Raw) == 0 {
        t.Fatal("raw payload not retained")
    }
}

func TestChargeStatusPrefersPrimaryTransactionID(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        _ = json.NewEncoder(w).Encode(map[string]interface{}{
            "payment_status":        "PENDING",
            "transaction_id":        "PRIMARY",
            "selcom_transaction_id": "FALLBACK",
        })
    }))
    defer srv.Close()

    res, err := NewClient(srv.URL, "secret").ChargeStatus(context.Background(), "bk-1")
    if err != nil {
        t.Fatalf("ChargeStatus: %v", err)
    }
    if res.TransactionID != "PRIMARY" {
        t.Fatalf("transaction id = %q, want transaction_id to win", res.TransactionID)
    }
}

func TestNormaliseStatus(t *testing.T) {
    cases := map[string]Status{
        "COMPLETE":  StatusComplete,
        "COMPLETED": StatusComplete,
        "completed": StatusComplete,
        "FAILED":    StatusFailed,
        "PENDING":   StatusPending,
        "PROCESSING": StatusPending, // unknown spellings keep the poller going
        "":          StatusPending,
    }
    for in, want := range cases {
        if got := NormaliseStatus(in); got != want {
            t.Errorf("NormaliseStatus(%q) = %s, want %s", in, got, want)
        }
    }
}

func TestAmountTZSForms(t *testing.T) {
    cases := []struct {
        raw  string
        want int64
        ok   bool
    }{
        {`1000`, 1000, true},
        {`"1000"`, 1000, true},
        {`"1000.00"`, 1000, true},
        {`1000.99`, 1000, true},
        {``, 0, false},
        {`null`, 0, false},
        {`"n/a"`, 0, false},
    }
    for _, tc := range cases {
        s := StatusResult{Amount: json.RawMessage(tc.raw)}
        got, ok := s.AmountTZS()
        if got != tc.want || ok != tc.ok {
            t.Errorf("AmountTZS(%s) = %d, %v; want %d, %v", tc.raw, got, ok, tc.want, tc.ok)
        }
    }
}

func TestStatusTerminal(t *testing.T) {
    if StatusPending.Terminal() {
        t.Fatal("PENDING must not be terminal")
    }
    if !StatusComplete.Terminal() || !StatusFailed.Terminal() {
        t.Fatal("COMPLETE and FAILED must be terminal")
    }
}
