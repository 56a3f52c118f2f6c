package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

// newTestSpotify points a service at a fake Spotify API server.
func newTestSpotify(t *testing.T, handler http.Handler) (*SpotifyService, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	srv, err := NewSpotifyService(map[string]string{
		"client_id":     "test_client_id",
		"client_secret": "test_client_secret",
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	srv.baseURL = server.URL
	srv.token = &oauth2.Token{AccessToken: "test_access_token"}
	srv.httpClient = server.Client()

	return srv, server
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			credentials := map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
				"redirect_uri":  "http://127.0.0.1:3000/api/auth/spotify/callback",
			}

			srv, err := NewSpotifyService(credentials)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv == nil {
				t.Fatal("expected service to be created")
			}

			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			credentials := map[string]string{
				"client_secret": "test_client_secret",
			}

			_, err := NewSpotifyService(credentials)
			if err == nil {
				t.Error("expected error for missing client_id")
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			credentials := map[string]string{
				"client_id": "test_client_id",
			}

			_, err := NewSpotifyService(credentials)
			if err == nil {
				t.Error("expected error for missing client_secret")
			}
		})

		t.Run("Default Redirect URI", func(t *testing.T) {
			credentials := map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
			}

			srv, err := NewSpotifyService(credentials)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if !strings.Contains(srv.config.RedirectURL, "/api/auth/spotify/callback") {
				t.Errorf("expected default redirect URI, got %s", srv.config.RedirectURL)
			}
		})
	})

	t.Run("AuthURL", func(t *testing.T) {
		credentials := map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		}

		srv, err := NewSpotifyService(credentials)
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		authURL := srv.AuthURL("test_state")
		if authURL == "" {
			t.Error("expected auth URL to be generated")
		}

		if !strings.Contains(authURL, "accounts.spotify.com") {
			t.Error("auth URL should contain Spotify domain")
		}
		if !strings.Contains(authURL, "test_client_id") {
			t.Error("auth URL should contain client_id")
		}
		if !strings.Contains(authURL, "test_state") {
			t.Error("auth URL should contain state")
		}

		t.Run("With PKCE Challenge", func(t *testing.T) {
			verifier := oauth2.GenerateVerifier()
			authURL := srv.AuthURL("test_state", oauth2.S256ChallengeOption(verifier))

			if !strings.Contains(authURL, "code_challenge=") {
				t.Error("auth URL should carry the PKCE challenge")
			}
			if !strings.Contains(authURL, "code_challenge_method=S256") {
				t.Error("auth URL should use the S256 challenge method")
			}
		})
	})

	t.Run("Authenticate", func(t *testing.T) {
		credentials := map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		}

		srv, err := NewSpotifyService(credentials)
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		t.Run("WithAccessToken", func(t *testing.T) {
			authCreds := map[string]string{
				"access_token":  "test_access_token",
				"refresh_token": "test_refresh_token",
			}

			err := srv.Authenticate(context.Background(), authCreds)
			if err != nil {
				t.Errorf("expected no error with access token, got %v", err)
			}

			if srv.token == nil {
				t.Fatal("expected token to be set")
			}

			if srv.token.AccessToken != "test_access_token" {
				t.Errorf("expected access token to be 'test_access_token', got %s", srv.token.AccessToken)
			}

			if srv.token.RefreshToken != "test_refresh_token" {
				t.Errorf("expected refresh token to be carried, got %s", srv.token.RefreshToken)
			}
		})

		t.Run("Missing Credentials", func(t *testing.T) {
			authCreds := map[string]string{}

			err := srv.Authenticate(context.Background(), authCreds)
			if err == nil {
				t.Error("expected error for missing credentials")
			}
		})
	})

	t.Run("Service Interface", func(t *testing.T) {
		credentials := map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		}

		srv, err := NewSpotifyService(credentials)
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		var _ Service = srv
		var _ OAuthService = srv
	})

	t.Run("SetTokenRefreshCallback", func(t *testing.T) {
		credentials := map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		}

		srv, err := NewSpotifyService(credentials)
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		t.Run("sets callback successfully", func(t *testing.T) {
			srv.SetTokenRefreshCallback(func(token *oauth2.Token) {
				// Callback set for testing
			})

			if srv.onTokenRefresh == nil {
				t.Error("expected callback to be set")
			}
		})

		t.Run("can set nil callback", func(t *testing.T) {
			srv.SetTokenRefreshCallback(nil)
			if srv.onTokenRefresh != nil {
				t.Error("expected callback to be nil")
			}
		})
	})

	t.Run("refreshableTokenSource", func(t *testing.T) {
		t.Run("calls callback on first token fetch", func(t *testing.T) {
			callbackCalled := false
			var capturedToken *oauth2.Token

			mockSource := &mockTokenSource{
				token: &oauth2.Token{AccessToken: "test_token"},
			}

			source := &refreshableTokenSource{
				source: mockSource,
				callback: func(token *oauth2.Token) {
					callbackCalled = true
					capturedToken = token
				},
			}

			token, err := source.Token()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if !callbackCalled {
				t.Error("expected callback to be called on first fetch")
			}
			if capturedToken == nil || capturedToken.AccessToken != "test_token" {
				t.Error("expected token to be captured")
			}
			if token.AccessToken != "test_token" {
				t.Errorf("expected returned token to be 'test_token', got %s", token.AccessToken)
			}
		})

		t.Run("calls callback when token changes", func(t *testing.T) {
			callCount := 0

			mockSource := &mockTokenSource{
				token: &oauth2.Token{AccessToken: "token1"},
			}

			source := &refreshableTokenSource{
				source: mockSource,
				callback: func(token *oauth2.Token) {
					callCount++
				},
			}

			_, _ = source.Token()
			if callCount != 1 {
				t.Errorf("expected callback called once, got %d", callCount)
			}

			mockSource.token = &oauth2.Token{AccessToken: "token2"}
			token2, _ := source.Token()

			if callCount != 2 {
				t.Errorf("expected callback called twice, got %d", callCount)
			}
			if token2.AccessToken != "token2" {
				t.Errorf("expected new token, got %s", token2.AccessToken)
			}
		})

		t.Run("doesn't call callback when token unchanged", func(t *testing.T) {
			callCount := 0

			mockSource := &mockTokenSource{
				token: &oauth2.Token{AccessToken: "same_token"},
			}

			source := &refreshableTokenSource{
				source: mockSource,
				callback: func(token *oauth2.Token) {
					callCount++
				},
			}

			source.Token()
			source.Token()
			source.Token()

			if callCount != 1 {
				t.Errorf("expected callback called once, got %d", callCount)
			}
		})

		t.Run("handles nil callback gracefully", func(t *testing.T) {
			mockSource := &mockTokenSource{
				token: &oauth2.Token{AccessToken: "test_token"},
			}

			source := &refreshableTokenSource{
				source:   mockSource,
				callback: nil,
			}

			token, err := source.Token()
			if err != nil {
				t.Fatalf("expected no error with nil callback, got %v", err)
			}
			if token.AccessToken != "test_token" {
				t.Error("expected token to be returned despite nil callback")
			}
		})

		t.Run("propagates source errors", func(t *testing.T) {
			mockSource := &mockTokenSource{
				err: errors.New("token source error"),
			}

			source := &refreshableTokenSource{
				source: mockSource,
				callback: func(token *oauth2.Token) {
					t.Error("callback should not be called on error")
				},
			}

			token, err := source.Token()
			if err == nil {
				t.Fatal("expected error from source")
			}
			if !strings.Contains(err.Error(), "token source error") {
				t.Errorf("expected source error, got %v", err)
			}
			if token != nil {
				t.Error("expected nil token on error")
			}
		})

		t.Run("handles callback panic gracefully", func(t *testing.T) {
			mockSource := &mockTokenSource{
				token: &oauth2.Token{AccessToken: "test_token"},
			}

			source := &refreshableTokenSource{
				source: mockSource,
				callback: func(token *oauth2.Token) {
					panic("callback panic")
				},
			}

			token, err := source.Token()
			if err != nil {
				t.Fatalf("expected no error despite callback panic, got %v", err)
			}
			if token.AccessToken != "test_token" {
				t.Error("expected token despite callback panic")
			}
		})
	})
}

func TestSpotifyServiceAPI(t *testing.T) {
	t.Run("GetPlaylists", func(t *testing.T) {
		srv, _ := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/me/playlists" {
				http.NotFound(w, r)
				return
			}
			if got := r.Header.Get("Authorization"); got != "Bearer test_access_token" {
				t.Errorf("unexpected authorization header: %s", got)
			}

			json.NewEncoder(w).Encode(SpotifyPaginatedPlaylists{
				Items: []SpotifySimplePlaylist{
					{ID: "pl1", Name: "Morning Mix", Public: true, Tracks: simplePlaylistTracks{Total: 3}},
					{ID: "pl2", Name: "Evening Mix", Tracks: simplePlaylistTracks{Total: 7}},
				},
			})
		}))

		playlists, err := srv.GetPlaylists(context.Background())
		if err != nil {
			t.Fatalf("failed to get playlists: %v", err)
		}

		if len(playlists) != 2 {
			t.Fatalf("expected 2 playlists, got %d", len(playlists))
		}
		if playlists[0].Name != "Morning Mix" || playlists[0].TrackCount != 3 {
			t.Errorf("unexpected first playlist: %+v", playlists[0])
		}
	})

	t.Run("SearchTrack", func(t *testing.T) {
		srv, _ := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/search" {
				http.NotFound(w, r)
				return
			}

			response := map[string]any{
				"tracks": map[string]any{
					"items": []SpotifyTrack{
						{
							ID:         "sp_other",
							Name:       "Some Other Song",
							Artists:    []SpotifyArtist{{Name: "Someone Else"}},
							DurationMS: 100000,
						},
						{
							ID:          "sp_match",
							Name:        "Karma Police",
							Artists:     []SpotifyArtist{{Name: "Radiohead"}},
							Album:       SpotifyAlbum{Name: "OK Computer"},
							DurationMS:  261000,
							ExternalIDs: externalIDs{ISRC: "GBAYE9700122"},
						},
					},
				},
			}
			json.NewEncoder(w).Encode(response)
		}))

		track, err := srv.SearchTrack(context.Background(), "Karma Police", "Radiohead")
		if err != nil {
			t.Fatalf("failed to search track: %v", err)
		}

		if track.ID != "sp_match" {
			t.Errorf("expected normalized match sp_match, got %s", track.ID)
		}
		if track.ISRC != "GBAYE9700122" {
			t.Errorf("expected ISRC carried through, got %s", track.ISRC)
		}
		if track.Duration != 261 {
			t.Errorf("expected duration in seconds, got %d", track.Duration)
		}
	})

	t.Run("SearchTrack No Results", func(t *testing.T) {
		srv, _ := newTestSpotify(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"tracks": map[string]any{"items": []SpotifyTrack{}}})
		}))

		if _, err := srv.SearchTrack(context.Background(), "Nothing", "Nobody"); err == nil {
			t.Fatal("expected error for empty search results")
		}
	})

	t.Run("Not Authenticated", func(t *testing.T) {
		srv, err := NewSpotifyService(map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		if _, err := srv.GetPlaylists(context.Background()); err == nil {
			t.Fatal("expected error when not authenticated")
		}
	})
}

// mockTokenSource implements [oauth2.TokenSource] for testing
type mockTokenSource struct {
	token *oauth2.Token
	err   error
}

func (m *mockTokenSource) Token() (*oauth2.Token, error) {
	return m.token, m.err
}
