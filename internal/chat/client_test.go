package chat

import (
    "context"
    "encoding/json"
    "errors"
    "net/http"
    "net/http/httptest"
    "testing"
)

func TestSanitizeUID(t *testing.T) {
    if got := SanitizeUID("a-b-c"); got != "a_b_c" {
        t.Fatalf("SanitizeUID = %q, want a_b_c", got)
    }
    if got := SanitizeUID("42"); got != "42" {
        t.Fatalf("SanitizeUID = %q, want 42", got)
    }
}

func TestCreateUserSendsCredentials(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if r.Header.Get("appId") != "app-1" || r.Header.Get("apiKey") != "key-1" {
            t.Errorf("credentials = %q/%q", r.Header.Get("appId"), r.Header.Get("apiKey"))
        }
        if r.URL.Path != "/users" {
            t.Errorf("path = %s", r.URL.Path)
        }
        _ = json.NewEncoder(w).Encode(map[string]interface{}{
            "data": map[string]string{"uid": "u_1", "name": "Asha"},
        })
    }))
    defer srv.Close()

    c := NewClient("app-1", "us", "key-1").WithBaseURL(srv.URL)
    u, err := c.CreateUser(context.Background(), "u-1", "Asha", "")
    if err != nil {
        t.Fatalf("CreateUser: %v", err)
    }
    if u.UID != "u_1" || u.Name != "Asha" {
        t.Fatalf("user = %+v", u)
    }
}

func TestCreateUserTreatsExistingAsSuccess(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(http.StatusConflict)
        _ = json.NewEncoder(w).Encode(map[string]interface{}{
            "error": map[string]string{"code": "ERR_UID_ALREADY_EXISTS", "message": "uid taken"},
        })
    }))
    defer srv.Close()

    c := NewClient("app-1", "us", "key-1").WithBaseURL(srv.URL)
    u, err := c.CreateUser(context.Background(), "7", "Asha", "")
    if err != nil {
        t.Fatalf("existing uid must not error, got %v", err)
    }
    if u.UID != "7" {
        t.Fatalf("uid = %q", u.UID)
    }
}

func TestAuthTokenDecodesProviderShape(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if r.URL.Path != "/users/u_1/auth_tokens" {
            t.Errorf("path = %s", r.URL.Path)
        }
        _ = json.NewEncoder(w).Encode(map[string]interface{}{
            "data": map[string]string{"authToken": "tok-123"},
        })
    }))
    defer srv.Close()

    c := NewClient("app-1", "us", "key-1").WithBaseURL(srv.URL)
    tok, err := c.AuthToken(context.Background(), "u-1")
    if err != nil {
        t.Fatalf("AuthToken: %v", err)
    }
    if tok != "tok-123" {
        t.Fatalf("token = %q", tok)
    }
}

func TestClientRequiresCredentials(t *testing.T) {
    c := NewClient("", "us", "")
    if _, err := c.CreateUser(context.Background(), "1", "x", ""); !errors.Is(err, ErrNotConfigured) {
        t.Fatalf("CreateUser err = %v, want ErrNotConfigured", err)
    }
    if _, err := c.AuthToken(context.Background(), "1"); !errors.Is(err, ErrNotConfigured) {
        t.Fatalf("AuthToken err = %v, want ErrNotConfigured", err)
    }
}

func TestProviderErrorSurfacesCodeAndStatus(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(http.StatusUnauthorized)
        _ = json.NewEncoder(w).Encode(map[string]interface{}{
            "error": map[string]string{"code": "ERR_BAD_AUTH", "message": "invalid api key"},
        })
    }))
    defer srv.Close()

    c := NewClient("app-1", "us", "bad-key").WithBaseURL(srv.URL)
    _, err := c.AuthToken(context.Background(), "1")
    var apiErr *APIError
    if !errors.As(err, &apiErr) {
        t.Fatalf("err = %v, want *APIError", err)
    }
    if apiErr.StatusCode != http.StatusUnauthorized || apiErr.Code != "ERR_BAD_AUTH" {
        t.Fatalf("apiErr = %+v", apiErr)
    }
}
