// Package chat implements the REST client for the external messaging
// provider. The provider handles message transport, presence and push
// notifications itself; this client only provisions users and mints
// auth tokens. It is constructed once in main and injected where
// needed instead of living as a package-level singleton.
package chat

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "strings"
    "time"
)

// ErrNotConfigured is returned when the provider credentials are
// missing. Chat provisioning is best-effort, so callers typically log
// this and continue.
var ErrNotConfigured = errors.New("chat: provider credentials not configured")

// APIError carries a non-2xx rejection from the provider.
type APIError struct {
    StatusCode int
    Code       string
    Message    string
}

func (e *APIError) Error() string {
    return fmt.Sprintf("chat: %d %s %s", e.StatusCode, e.Code, e.Message)
}

// User is a provisioned chat account on the provider side.
type User struct {
    UID    string `json:"uid"`
    Name   string `json:"name"`
    Avatar string `json:"avatar,omitempty"`
}

// Client talks to the messaging provider's management REST API. The
// region selects the provider's regional cluster ("us", "eu" or "in").
type Client struct {
    AppID  string
    Region string
    APIKey string
    HTTP   *http.Client

    // baseURL override for tests; empty selects the regional endpoint.
    baseURL string
}

// NewClient builds a Client for the given app credentials. An empty
// region defaults to "us".
func NewClient(appID, region, apiKey string) *Client {
    if region == "" {
        region = "us"
    }
    return &Client{
        AppID:  appID,
        Region: region,
        APIKey: apiKey,
        HTTP:   &http.Client{Timeout: 10 * time.Second},
    }
}

// WithBaseURL returns a copy of the client pointed at an explicit base
// URL. Used by tests and self-hosted deployments.
func (c *Client) WithBaseURL(u string) *Client {
    cp := *c
    cp.baseURL = strings.TrimRight(u, "/")
    return &cp
}

func (c *Client) endpoint(path string) string {
    if c.baseURL != "" {
        return c.baseURL + path
    }
    return fmt.Sprintf("https://api-%s.cometchat.io/v3%s", c.Region, path)
}

// SanitizeUID rewrites an application user id into the character set
// the provider accepts (UUID hyphens become underscores). Provisioning
// and token minting must agree on this form.
func SanitizeUID(uid string) string {
    return strings.ReplaceAll(uid, "-", "_")
}

// CreateUser provisions a chat account for an application user. An
// "already exists" rejection counts as success so registration stays
// idempotent.
func (c *Client) CreateUser(ctx context.Context, uid, name, avatar string) (*User, error) {
    if c.AppID == "" || c.APIKey == "" {
        return nil, ErrNotConfigured
    }
    if uid == "" || name == "" {
        return nil, errors.New("chat: uid and name are required")
    }
    sanitized := SanitizeUID(uid)
    payload := map[string]string{"uid": sanitized, "name": name}
    if avatar != "" {
        payload["avatar"] = avatar
    }
    body, _ := json.Marshal(payload)

    resp, err := c.do(ctx, http.MethodPost, "/users", bytes.NewReader(body))
    if err != nil {
        return nil, err
    }
    defer func() { _ = resp.Body.Close() }()

    if resp.StatusCode < 200 || resp.StatusCode > 299 {
        apiErr := decodeAPIError(resp)
        var ae *APIError
        if errors.As(apiErr, &ae) && ae.Code == "ERR_UID_ALREADY_EXISTS" {
            return &User{UID: sanitized, Name: name, Avatar: avatar}, nil
        }
        return nil, apiErr
    }
    var out struct {
        Data User `json:"data"`
    }
    if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
        return nil, fmt.Errorf("chat: decode create user response: %w", err)
    }
    out.Data.UID = sanitized
    return &out.Data, nil
}

// AuthToken mints a login token for an already provisioned chat user.
func (c *Client) AuthToken(ctx context.Context, uid string) (string, error) {
    if c.AppID == "" || c.APIKey == "" {
        return "", ErrNotConfigured
    }
    if uid == "" {
        return "", errors.New("chat: uid is required")
    }
    sanitized := SanitizeUID(uid)

    resp, err := c.do(ctx, http.MethodPost, "/users/"+sanitized+"/auth_tokens", nil)
    if err != nil {
        return "", err
    }
    defer func() { _ = resp.Body.Close() }()

    if resp.StatusCode < 200 || resp.StatusCode > 299 {
        return "", decodeAPIError(resp)
    }
    var out struct {
        Data struct {
            AuthToken string `json:"authToken"`
        } `json:"data"`
    }
    if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
        return "", fmt.Errorf("chat: decode auth token response: %w", err)
    }
    if out.Data.AuthToken == "" {
        return "", errors.New("chat: provider returned no auth token")
    }
    return out.Data.AuthToken, nil
}

func (c *Client) do(ctx context.Context, method, path string, body *bytes.Reader) (*http.Response, error) {
    var req *http.Request
    var err error
    if body != nil {
        req, err = http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
    } else {
        req, err = http.NewRequestWithContext(ctx, method, c.endpoint(path), nil)
    }
    if err != nil {
        return nil, err
    }
    req.Header.Set("Content-Type", "application/json")
    req.Header.Set("appId", c.AppID)
    req.Header.Set("apiKey", c.APIKey)
    resp, err := c.HTTP.Do(req)
    if err != nil {
        return nil, fmt.Errorf("chat: %s %s: %w", method, path, err)
    }
    return resp, nil
}

func decodeAPIError(resp *http.Response) error {
    var body struct {
        Error struct {
            Code    string `json:"code"`
            Message string `json:"message"`
        } `json:"error"`
    }
    _ = json.NewDecoder(resp.Body).Decode(&body)
    msg := body.Error.Message
    if msg == "" {
        msg = http.StatusText(resp.StatusCode)
    }
    return &APIError{StatusCode: resp.StatusCode, Code: body.Error.Code, Message: msg}
}
