package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	harmonytest "github.com/harmonysync/harmony/internal/testing"
	"github.com/harmonysync/harmony/internal/txstore"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func newFlow(t *testing.T, ttl time.Duration, service *harmonytest.MockOAuthService) (*OAuthFlowHandler, txstore.Store) {
	t.Helper()

	store, err := txstore.NewMemoryStore(ttl)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if service == nil {
		service = &harmonytest.MockOAuthService{}
	}

	return NewOAuthFlowHandler("spotify", service, store, quietLogger()), store
}

// login performs the login leg and returns the state the handler minted.
func login(t *testing.T, handler *OAuthFlowHandler) string {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/api/auth/spotify/login", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected redirect, got status %d", rec.Code)
	}

	location, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("failed to parse redirect location: %v", err)
	}

	state := location.Query().Get("state")
	if state == "" {
		t.Fatal("expected state parameter in redirect")
	}

	return state
}

func TestOAuthFlowHandler(t *testing.T) {
	t.Run("Routes", func(t *testing.T) {
		handler, _ := newFlow(t, 10*time.Minute, nil)

		routes := handler.Routes()
		if len(routes) != 2 {
			t.Fatalf("expected 2 routes, got %d", len(routes))
		}
		for _, route := range routes {
			if !strings.Contains(route, "spotify") {
				t.Errorf("expected provider in route, got %s", route)
			}
		}
	})

	t.Run("Login Creates Pending Transaction", func(t *testing.T) {
		var challengeSeen bool
		service := &harmonytest.MockOAuthService{
			AuthURLFunc: func(state string, opts ...oauth2.AuthCodeOption) string {
				challengeSeen = len(opts) > 0
				return "https://accounts.example.com/authorize?state=" + state
			},
		}

		handler, store := newFlow(t, 10*time.Minute, service)
		state := login(t, handler)

		if !challengeSeen {
			t.Error("expected a PKCE challenge option on the auth URL")
		}

		exists, err := store.Exists(state)
		if err != nil {
			t.Fatalf("failed to check state: %v", err)
		}
		if !exists {
			t.Error("expected a pending transaction for the issued state")
		}
	})

	t.Run("Callback Success", func(t *testing.T) {
		var gotCode string
		var gotOpts int
		service := &harmonytest.MockOAuthService{
			ExchangeFunc: func(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
				gotCode = code
				gotOpts = len(opts)
				return &oauth2.Token{AccessToken: "exchanged_token"}, nil
			},
		}

		handler, store := newFlow(t, 10*time.Minute, service)
		state := login(t, handler)

		var persisted *oauth2.Token
		handler.SetTokenCallback(func(token *oauth2.Token) { persisted = token })

		req := httptest.NewRequest(http.MethodGet, "/api/auth/spotify/callback?state="+state+"&code=auth_code", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotCode != "auth_code" {
			t.Errorf("expected exchange with auth_code, got %q", gotCode)
		}
		if gotOpts != 1 {
			t.Errorf("expected the stored verifier passed to exchange, got %d options", gotOpts)
		}

		result := <-handler.Result()
		if result.Error() != nil {
			t.Fatalf("expected successful result, got %v", result.Error())
		}
		if result.Token.AccessToken != "exchanged_token" {
			t.Errorf("unexpected token %s", result.Token.AccessToken)
		}
		if persisted == nil || persisted.AccessToken != "exchanged_token" {
			t.Error("expected token callback to receive the exchanged token")
		}

		count, err := store.Count()
		if err != nil {
			t.Fatalf("failed to count: %v", err)
		}
		if count != 0 {
			t.Errorf("expected transaction consumed, %d still pending", count)
		}
	})

	t.Run("Replayed Callback Rejected", func(t *testing.T) {
		handler, _ := newFlow(t, 10*time.Minute, nil)
		state := login(t, handler)

		first := httptest.NewRecorder()
		handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/auth/spotify/callback?state="+state+"&code=c1", nil))
		if first.Code != http.StatusOK {
			t.Fatalf("expected first callback to succeed, got %d", first.Code)
		}

		second := httptest.NewRecorder()
		handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/auth/spotify/callback?state="+state+"&code=c2", nil))
		if second.Code != http.StatusBadRequest {
			t.Fatalf("expected replay to be rejected, got %d", second.Code)
		}
		if !strings.Contains(second.Body.String(), "already been used") {
			t.Errorf("expected already-used message, got %q", second.Body.String())
		}

		// The legitimate first result is still the one delivered.
		result := <-handler.Result()
		if result.Error() != nil {
			t.Fatalf("expected first result preserved, got %v", result.Error())
		}
	})

	t.Run("Unknown State Rejected", func(t *testing.T) {
		handler, _ := newFlow(t, 10*time.Minute, nil)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/spotify/callback?state=never-issued&code=c1", nil))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Unknown authorization request") {
			t.Errorf("expected unknown-request message, got %q", rec.Body.String())
		}
	})

	t.Run("Expired State Rejected", func(t *testing.T) {
		handler, _ := newFlow(t, time.Nanosecond, nil)
		state := login(t, handler)

		time.Sleep(time.Millisecond)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/spotify/callback?state="+state+"&code=c1", nil))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "timed out") {
			t.Errorf("expected timeout message, got %q", rec.Body.String())
		}
	})

	t.Run("Missing State Rejected", func(t *testing.T) {
		handler, _ := newFlow(t, 10*time.Minute, nil)

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/spotify/callback?code=c1", nil))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for missing state, got %d", rec.Code)
		}
	})

	t.Run("Provider Error Reported", func(t *testing.T) {
		handler, _ := newFlow(t, 10*time.Minute, nil)
		state := login(t, handler)

		rec := httptest.NewRecorder()
		target := "/api/auth/spotify/callback?state=" + state + "&error=access_denied&error_description=user+denied"
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}

		result := <-handler.Result()
		if result.Error() == nil {
			t.Fatal("expected error result for denied authorization")
		}
		if !strings.Contains(result.Error().Error(), "access_denied") {
			t.Errorf("expected provider error in result, got %v", result.Error())
		}
	})
}
