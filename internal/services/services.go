// package services defines interface Service for interacting with HTTP APIs
//
// Spotify, Plex, Soulseek (via slskd)
package services

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/harmonysync/harmony/internal/models"
)

// Service defines the interface for music library providers (Spotify, Plex) that can export and import playlists and tracks.
type Service interface {
	// Authenticate performs OAuth or API key authentication with the service.
	// Returns an error if authentication fails.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// GetPlaylists retrieves all playlists for the authenticated user.
	GetPlaylists(ctx context.Context) ([]models.Playlist, error)

	// GetPlaylist retrieves a specific playlist by ID.
	GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error)

	// ExportPlaylist exports a playlist with all its tracks.
	ExportPlaylist(ctx context.Context, playlistID string) (*models.PlaylistExport, error)

	// ImportPlaylist imports a playlist into the service.
	// Creates a new playlist and populates it with the provided tracks.
	ImportPlaylist(ctx context.Context, playlist *models.PlaylistExport) (*models.Playlist, error)

	// SearchTrack searches for a track by title and artist.
	// Returns the best match or an error if no match is found.
	SearchTrack(ctx context.Context, title, artist string) (*models.Track, error)

	// Name returns the name of the service (e.g., "Spotify", "Plex")
	Name() string
}

// OAuthService extends Service for providers that authenticate through a
// browser-based OAuth authorization code flow.
type OAuthService interface {
	Service

	// AuthURL returns the provider's authorization URL for the given state.
	// PKCE challenges and other provider parameters are passed as options.
	AuthURL(state string, opts ...oauth2.AuthCodeOption) string

	// Exchange trades an authorization code for a token.
	Exchange(ctx context.Context, code string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error)
}
