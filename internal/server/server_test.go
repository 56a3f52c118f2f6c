package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/harmonysync/harmony/internal/txstore"
)

func TestBasicRouter(t *testing.T) {
	t.Run("Method Filtering", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodPost, "/submit", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/submit", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405 for wrong method, got %d", rec.Code)
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/submit", nil))
		if rec.Code != http.StatusCreated {
			t.Errorf("expected 201, got %d", rec.Code)
		}
	})

	t.Run("Middleware Order", func(t *testing.T) {
		var order []string

		router := NewBasicRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, "first")
				next.ServeHTTP(w, r)
			})
		})
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, "second")
				next.ServeHTTP(w, r)
			})
		})

		router.Handle(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

		if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "handler" {
			t.Errorf("unexpected middleware order: %v", order)
		}
	})

	t.Run("Recover Middleware", func(t *testing.T) {
		router := NewBasicRouter()
		router.Use(Recover(quietLogger()))
		router.Handle(http.MethodGet, "/boom", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500 from recovered panic, got %d", rec.Code)
		}
	})
}

func TestHealthHandler(t *testing.T) {
	t.Run("Memory Store", func(t *testing.T) {
		store, err := txstore.NewMemoryStore(10 * time.Minute)
		if err != nil {
			t.Fatalf("failed to create store: %v", err)
		}

		handler := NewHealthHandler(store, quietLogger())

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var payload struct {
			Status     string `json:"status"`
			OAuthStore struct {
				Pending    int `json:"pending"`
				TTLSeconds int `json:"ttl_seconds"`
			} `json:"oauth_store"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("failed to decode health response: %v", err)
		}

		if payload.Status != "ok" {
			t.Errorf("expected ok status, got %s", payload.Status)
		}
		if payload.OAuthStore.TTLSeconds != 600 {
			t.Errorf("expected ttl_seconds 600, got %d", payload.OAuthStore.TTLSeconds)
		}
	})

	t.Run("File Store Runs Check", func(t *testing.T) {
		store, err := txstore.NewFileStore(t.TempDir(), 10*time.Minute, false)
		if err != nil {
			t.Fatalf("failed to create store: %v", err)
		}

		handler := NewHealthHandler(store, quietLogger())

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var payload struct {
			OAuthStore struct {
				Backend map[string]any `json:"backend"`
			} `json:"oauth_store"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("failed to decode health response: %v", err)
		}

		if payload.OAuthStore.Backend["backend"] != "file" {
			t.Errorf("expected file backend details, got %v", payload.OAuthStore.Backend)
		}
	})

	t.Run("Rejects Non-GET", func(t *testing.T) {
		store, err := txstore.NewMemoryStore(time.Minute)
		if err != nil {
			t.Fatalf("failed to create store: %v", err)
		}

		handler := NewHealthHandler(store, quietLogger())

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/health", nil))

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}
