// Package services defines the [Service] interface for music library providers and implements it for Spotify and Plex, plus a Soulseek download client.
//
// # Service Interface
//
// All library providers implement a common abstraction, enabling playlist operations to work uniformly across providers.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 for authentication with automatic token refresh.
//
// The [oauth2.Client] automatically refreshes expired tokens using the refresh token,
// and [SpotifyService.SetTokenRefreshCallback] lets callers persist refreshed tokens.
//
// # Plex Implementation
//
// [PlexService] talks to a Plex Media Server directly, authenticating every
// request with an X-Plex-Token header and requesting JSON via Accept.
// Library scans use section queries (type=10 for tracks) and playlists use
// the server's rating-key addressed playlist endpoints.
//
// # Soulseek Implementation
//
// [SoulseekService] wraps the slskd daemon's REST API (X-API-Key header) to
// search the peer-to-peer network and enqueue downloads for tracks missing
// from the Plex library. It is not a playlist provider and does not
// implement [Service].
//
// # OAuth Service Extension
//
// The [OAuthService] interface extends Service for OAuth providers.
//
// [SpotifyService] implements this for the server-side OAuth flows used by the CLI and HTTP API.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate() not called
//   - [shared.ErrTokenExpired] : OAuth token expired, reauthorization needed
//   - [shared.ErrAPIRequest] : HTTP request failed
//   - [shared.ErrPlaylistNotFound] : Playlist ID not found
//   - [shared.ErrTrackNotFound] : No match for a track search
//   - [shared.ErrDownloadFailed] : slskd rejected a transfer
//
// # API Mappings
//
// Both providers convert provider-specific JSON responses to models.Playlist and models.Track:
//   - Spotify: Maps [SpotifyPlaylist] → [models.Playlist] with ISRC from external_ids
//   - Plex: Maps [PlexPlaylist] → [models.Playlist] with file paths from Media parts
//
// Track matching uses ISRC when available, falling back to normalized title/artist comparison.
//
// # Rate Limiting
//
// Every client carries a [rate.Limiter] and waits on it before each request.
package services
