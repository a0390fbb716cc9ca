package handler

import (
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/labstack/echo/v4"

    "github.com/amanicare/therapy-booking/internal/aggregator"
    "github.com/amanicare/therapy-booking/internal/config"
)

func newGatewayHandler(upstream *httptest.Server, apiKey string) *GatewayHandler {
    base := ""
    if upstream != nil {
        base = upstream.URL
    }
    cfg := config.Config{PublicBaseURL: "https://app.example.org", SessionPriceTZS: 1000}
    return NewGatewayHandler(cfg, aggregator.NewClient(base, apiKey))
}

func doJSON(t *testing.T, h echo.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
    t.Helper()
    e := echo.New()
    req := httptest.NewRequest(method, target, strings.NewReader(body))
    if body != "" {
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    }
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    if err := h(c); err != nil {
        t.Fatalf("handler returned error: %v", err)
    }
    return rec
}

func TestGatewayStatusRequiresOrderID(t *testing.T) {
    h := newGatewayHandler(nil, "secret")
    rec := doJSON(t, h.Status, http.MethodGet, "/v1/payments/gateway/status", "")

    if rec.Code != http.StatusBadRequest {
        t.Fatalf("status = %d, want 400", rec.Code)
    }
    var body map[string]string
    _ = json.Unmarshal(rec.Body.Bytes(), &body)
    if body["message"] != "order_id is required" {
        t.Fatalf("message = %q", body["message"])
    }
}

func TestGatewayStatusNormalizesUpstream(t *testing.T) {
    upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        _ = json.NewEncoder(w).Encode(map[string]interface{}{
            "order_id":              "bk-1",
            "payment_status":        "COMPLETED",
            "selcom_transaction_id": "SEL-1",
            "amount":                "1000.00",
        })
    }))
    defer upstream.Close()

    h := newGatewayHandler(upstream, "secret")
    rec := doJSON(t, h.Status, http.MethodGet, "/v1/payments/gateway/status?order_id=bk-1", "")

    if rec.Code != http.StatusOK {
        t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
    }
    var body map[string]interface{}
    _ = json.Unmarshal(rec.Body.Bytes(), &body)
    if body["payment_status"] != "COMPLETE" {
        t.Fatalf("payment_status = %v, want COMPLETE", body["payment_status"])
    }
    if body["transaction_id"] != "SEL-1" {
        t.Fatalf("transaction_id = %v, want the coalesced reference", body["transaction_id"])
    }
    if body["amount"] != float64(1000) {
        t.Fatalf("amount = %v, want 1000", body["amount"])
    }
}

func TestGatewayStatusWithoutAPIKey(t *testing.T) {
    h := newGatewayHandler(nil, "")
    rec := doJSON(t, h.Status, http.MethodGet, "/v1/payments/gateway/status?order_id=bk-1", "")

    if rec.Code != http.StatusInternalServerError {
        t.Fatalf("status = %d, want 500", rec.Code)
    }
    var body map[string]string
    _ = json.Unmarshal(rec.Body.Bytes(), &body)
    if body["message"] != "payment gateway not configured" {
        t.Fatalf("message = %q", body["message"])
    }
}

func TestGatewayStatusPassesThroughVendorError(t *testing.T) {
    upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(http.StatusNotFound)
        _ = json.NewEncoder(w).Encode(map[string]string{"message": "order not found"})
    }))
    defer upstream.Close()

    h := newGatewayHandler(upstream, "secret")
    rec := doJSON(t, h.Status, http.MethodGet, "/v1/payments/gateway/status?order_id=missing", "")

    if rec.Code != http.StatusNotFound {
        t.Fatalf("status = %d, want the vendor's 404", rec.Code)
    }
    var body map[string]string
    _ = json.Unmarshal(rec.Body.Bytes(), &body)
    if body["message"] != "order not found" {
        t.Fatalf("message = %q, want the vendor's wording", body["message"])
    }
}

func TestGatewayChargeValidatesInput(t *testing.T) {
    h := newGatewayHandler(nil, "secret")

    cases := []struct {
        name string
        body string
    }{
        {"missing order_id", `{"phone":"0759123123","amount":1000}`},
        {"missing phone", `{"amount":1000,"order_id":"bk-1"}`},
        {"zero amount", `{"phone":"0759123123","amount":0,"order_id":"bk-1"}`},
        {"invalid phone", `{"phone":"12345","amount":1000,"order_id":"bk-1"}`},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            rec := doJSON(t, h.Charge, http.MethodPost, "/v1/payments/gateway/charge", tc.body)
            if rec.Code != http.StatusBadRequest {
                t.Fatalf("status = %d, want 400", rec.Code)
            }
        })
    }
}

func TestGatewayChargeForwardsNormalizedRequest(t *testing.T) {
    var got aggregator.ChargeRequest
    upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        _ = json.NewDecoder(r.Body).Decode(&got)
        _ = json.NewEncoder(w).Encode(map[string]string{"result": "SUCCESS", "reference": "REF-9"})
    }))
    defer upstream.Close()

    h := newGatewayHandler(upstream, "secret")
    rec := doJSON(t, h.Charge, http.MethodPost, "/v1/payments/gateway/charge",
        `{"phone":"0759123123","amount":1000,"order_id":"bk-1"}`)

    if rec.Code != http.StatusOK {
        t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
    }
    if got.Phone != "255759123123" {
        t.Fatalf("upstream phone = %q, want the normalized MSISDN", got.Phone)
    }
    if got.CallbackURL != "https://app.example.org/v1/payments/gateway/callback" {
        t.Fatalf("callback = %q, want the default from the public base URL", got.CallbackURL)
    }
    var body map[string]interface{}
    _ = json.Unmarshal(rec.Body.Bytes(), &body)
    if body["result"] != "SUCCESS" || body["reference"] != "REF-9" {
        t.Fatalf("body = %v", body)
    }
}
