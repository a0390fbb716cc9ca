// Package aggregator implements the HTTP client for the BongoPay
// mobile-money aggregator. It owns the two outbound calls the system
// makes (charge creation and status query) and normalises the vendor's
// response quirks at this boundary so callers never branch on provider
// spellings: "COMPLETED" folds into "COMPLETE" and the transaction
// reference is coalesced from the two key names the vendor uses.
package aggregator

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "strconv"
    "strings"
    "time"
)

// DefaultBaseURL is the production aggregator endpoint, overridable for
// sandboxes and tests.
const DefaultBaseURL = "https://bongopay.vastlabs.co.tz/api/v1"

// ErrNotConfigured is returned when no API key has been configured.
// Handlers translate it into a 500 without leaking configuration detail.
var ErrNotConfigured = errors.New("aggregator: api key not configured")

// APIError carries an explicit non-2xx rejection from the aggregator.
// The message is passed through to the caller verbatim.
type APIError struct {
    StatusCode int
    Message    string
}

func (e *APIError) Error() string {
    return fmt.Sprintf("aggregator: %d %s", e.StatusCode, e.Message)
}

// Status is the canonical charge status after normalisation.
type Status string

const (
    StatusPending  Status = "PENDING"
    StatusComplete Status = "COMPLETE"
    StatusFailed   Status = "FAILED"
)

// Terminal reports whether no further polling is meaningful.
func (s Status) Terminal() bool { return s == StatusComplete || s == StatusFailed }

// ChargeRequest is the payload for charge creation. OrderID equals the
// booking id and acts as the correlation key for later status queries.
type ChargeRequest struct {
    Phone       string `json:"phone"`
    Amount      int64  `json:"amount"`
    OrderID     string `json:"order_id"`
    CallbackURL string `json:"callback_url,omitempty"`
}

// CreateResult is the aggregator's charge-creation response. Result is
// the normalized discriminant ("SUCCESS" or "FAILED"); the remaining
// fields are vendor-specific and kept for audit/pass-through.
type CreateResult struct {
    Result     string `json:"result"`
    Message    string `json:"message,omitempty"`
    Reference  string `json:"reference,omitempty"`
    TransID    string `json:"transid,omitempty"`
    ResultCode string `json:"resultcode,omitempty"`
}

// OK reports whether the aggregator accepted the charge.
func (r *CreateResult) OK() bool { return strings.EqualFold(r.Result, "SUCCESS") }

// StatusResult is the normalized charge status. TransactionID is the
// coalesced reference (transaction_id, falling back to
// selcom_transaction_id) and may be empty while the charge is pending.
// Raw keeps the untouched payload for the audit blob.
type StatusResult struct {
    OrderID       string          `json:"order_id"`
    Status        Status          `json:"payment_status"`
    TransactionID string          `json:"transaction_id,omitempty"`
    Amount        json.RawMessage `json:"amount,omitempty"`
    CreatedAt     string          `json:"created_at,omitempty"`
    UpdatedAt     string          `json:"updated_at,omitempty"`
    Raw           json.RawMessage `json:"-"`
}

// AmountTZS parses the amount, tolerating both JSON numbers and
// string-typed values ("1000", "1000.00"). The bool is false when the
// field is absent or unparsable.
func (s *StatusResult) AmountTZS() (int64, bool) {
    v := strings.Trim(strings.TrimSpace(string(s.Amount)), `"`)
    if v == "" || v == "null" {
        return 0, false
    }
    if n, err := strconv.ParseInt(v, 10, 64); err == nil {
        return n, true
    }
    if f, err := strconv.ParseFloat(v, 64); err == nil {
        return int64(f), true
    }
    return 0, false
}

// statusPayload mirrors the aggregator's wire format before
// normalisation, including both spellings of the transaction reference.
type statusPayload struct {
    OrderID             string          `json:"order_id"`
    PaymentStatus       string          `json:"payment_status"`
    Amount              json.RawMessage `json:"amount"`
    TransactionID       string          `json:"transaction_id"`
    SelcomTransactionID string          `json:"selcom_transaction_id"`
    CreatedAt           string          `json:"created_at"`
    UpdatedAt           string          `json:"updated_at"`
}

// Client talks to the aggregator REST API. The embedded http.Client
// carries an explicit timeout so the polling retry budget stays bounded
// in wall-clock time even when the vendor hangs.
type Client struct {
    BaseURL string
    APIKey  string
    HTTP    *http.Client
}

// NewClient builds a Client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL, apiKey string) *Client {
    if baseURL == "" {
        baseURL = DefaultBaseURL
    }
    return &Client{
        BaseURL: strings.TrimRight(baseURL, "/"),
        APIKey:  apiKey,
        HTTP:    &http.Client{Timeout: 15 * time.Second},
    }
}

// CreateCharge initiates a mobile-money charge. It performs no local
// persistence; the only side effect is the outbound call. A non-2xx
// aggregator response surfaces as *APIError with the vendor's message.
func (c *Client) CreateCharge(ctx context.Context, req ChargeRequest) (*CreateResult, error) {
    if c.APIKey == "" {
        return nil, ErrNotConfigured
    }
    body, err := json.Marshal(req)
    if err != nil {
        return nil, fmt.Errorf("aggregator: marshal charge request: %w", err)
    }
    httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/payment/create", bytes.NewReader(body))
    if err != nil {
        return nil, err
    }
    httpReq.Header.Set("X-API-KEY", c.APIKey)
    httpReq.Header.Set("Content-Type", "application/json")

    resp, err := c.HTTP.Do(httpReq)
    if err != nil {
        return nil, fmt.Errorf("aggregator: create charge: %w", err)
    }
    defer func() { _ = resp.Body.Close() }()

    if resp.StatusCode < 200 || resp.StatusCode > 299 {
        return nil, decodeAPIError(resp)
    }
    var out CreateResult
    if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
        return nil, fmt.Errorf("aggregator: decode create response: %w", err)
    }
    return &out, nil
}

// ChargeStatus queries the current status of a charge by order id and
// returns the normalized result. No retry happens here; the retry
// policy belongs to the reconciliation client, which knows the
// user-facing timeout budget and offers cancellation.
func (c *Client) ChargeStatus(ctx context.Context, orderID string) (*StatusResult, error) {
    if c.APIKey == "" {
        return nil, ErrNotConfigured
    }
    httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/payment/status/"+orderID, nil)
    if err != nil {
        return nil, err
    }
    httpReq.Header.Set("X-API-KEY", c.APIKey)
    httpReq.Header.Set("Content-Type", "application/json")

    resp, err := c.HTTP.Do(httpReq)
    if err != nil {
        return nil, fmt.Errorf("aggregator: charge status: %w", err)
    }
    defer func() { _ = resp.Body.Close() }()

    if resp.StatusCode < 200 || resp.StatusCode > 299 {
        return nil, decodeAPIError(resp)
    }

    var buf bytes.Buffer
    var wire statusPayload
    if err := json.NewDecoder(io.TeeReader(resp.Body, &buf)).Decode(&wire); err != nil {
        return nil, fmt.Errorf("aggregator: decode status response: %w", err)
    }
    return &StatusResult{
        OrderID:       wire.OrderID,
        Status:        NormaliseStatus(wire.PaymentStatus),
        TransactionID: coalesce(wire.TransactionID, wire.SelcomTransactionID),
        Amount:        wire.Amount,
        CreatedAt:     wire.CreatedAt,
        UpdatedAt:     wire.UpdatedAt,
        Raw:           json.RawMessage(buf.Bytes()),
    }, nil
}

// NormaliseStatus maps the vendor's status spellings onto the canonical
// set. Anything unrecognised is treated as still pending, which keeps
// the poller going until its ceiling rather than failing on a vendor
// spelling we have not seen.
func NormaliseStatus(providerStatus string) Status {
    switch strings.ToUpper(strings.TrimSpace(providerStatus)) {
    case "COMPLETE", "COMPLETED":
        return StatusComplete
    case "FAILED":
        return StatusFailed
    default:
        return StatusPending
    }
}

func coalesce(vals ...string) string {
    for _, v := range vals {
        if v != "" {
            return v
        }
    }
    return ""
}

func decodeAPIError(resp *http.Response) error {
    var body struct {
        Message string `json:"message"`
    }
    _ = json.NewDecoder(resp.Body).Decode(&body)
    if body.Message == "" {
        body.Message = http.StatusText(resp.StatusCode)
    }
    return &APIError{StatusCode: resp.StatusCode, Message: body.Message}
}
