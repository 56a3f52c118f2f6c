// Plex Media Server implementation of [Service]
//
// Talks to a Plex server's REST API directly with an X-Plex-Token.
// Response types based on https://plexapi.dev/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/harmonysync/harmony/internal/models"
	"github.com/harmonysync/harmony/internal/shared"
)

// PlexDirectory represents a library section (Music, Movies, ...).
type PlexDirectory struct {
	Key   string `json:"key"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

type plexPart struct {
	File string `json:"file"`
}

type plexMedia struct {
	Parts []plexPart `json:"Part"`
}

// PlexTrack represents an audio item in a Plex library or playlist.
//
// Plex maps track title to title, artist to grandparentTitle and album
// to parentTitle.
type PlexTrack struct {
	RatingKey        string      `json:"ratingKey"`
	Key              string      `json:"key"`
	Type             string      `json:"type"`
	Title            string      `json:"title"`
	GrandparentTitle string      `json:"grandparentTitle"`
	ParentTitle      string      `json:"parentTitle"`
	DurationMS       int         `json:"duration"`
	Media            []plexMedia `json:"Media"`
}

// PlexPlaylist represents a Plex playlist.
type PlexPlaylist struct {
	RatingKey    string `json:"ratingKey"`
	Key          string `json:"key"`
	Title        string `json:"title"`
	Summary      string `json:"summary"`
	PlaylistType string `json:"playlistType"`
	LeafCount    int    `json:"leafCount"`
}

type plexContainer struct {
	MediaContainer struct {
		Size              int               `json:"size"`
		MachineIdentifier string            `json:"machineIdentifier"`
		Directory         []PlexDirectory   `json:"Directory"`
		Metadata          []json.RawMessage `json:"Metadata"`
	} `json:"MediaContainer"`
}

// PlexService implements the Service interface against a Plex Media Server.
type PlexService struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter

	machineID string
}

// NewPlexService creates a Plex client for the given server URL and token.
func NewPlexService(baseURL, token string) (*PlexService, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("missing plex server URL")
	}

	return &PlexService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: http.DefaultClient,
		// Plex is local; the cap just keeps library scans polite.
		limiter: rate.NewLimiter(rate.Every(50*time.Millisecond), 10),
	}, nil
}

func (p *PlexService) Name() string {
	return "Plex"
}

// Authenticate verifies the token by requesting the server identity.
//
// Expects credentials["token"], with an optional credentials["url"] override.
func (p *PlexService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if serverURL, ok := credentials["url"]; ok && serverURL != "" {
		p.baseURL = strings.TrimRight(serverURL, "/")
	}
	if token, ok := credentials["token"]; ok && token != "" {
		p.token = token
	}
	if p.token == "" {
		return fmt.Errorf("%w: missing plex token", shared.ErrNotAuthenticated)
	}

	var container plexContainer
	if err := p.doRequest(ctx, http.MethodGet, "/identity", &container); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	p.machineID = container.MediaContainer.MachineIdentifier
	return nil
}

// doRequest performs an authenticated request against the Plex server.
func (p *PlexService) doRequest(ctx context.Context, method, endpoint string, result *plexContainer) error {
	if p.token == "" {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Plex-Token", p.token)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: plex API status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func decodeMetadata[T any](raw []json.RawMessage) ([]T, error) {
	items := make([]T, 0, len(raw))
	for _, entry := range raw {
		var item T
		if err := json.Unmarshal(entry, &item); err != nil {
			return nil, fmt.Errorf("failed to decode metadata entry: %w", err)
		}
		items = append(items, item)
	}
	return items, nil
}

// MusicSections lists the server's music library sections.
func (p *PlexService) MusicSections(ctx context.Context) ([]PlexDirectory, error) {
	var container plexContainer
	if err := p.doRequest(ctx, http.MethodGet, "/library/sections", &container); err != nil {
		return nil, err
	}

	var sections []PlexDirectory
	for _, dir := range container.MediaContainer.Directory {
		if dir.Type == "artist" {
			sections = append(sections, dir)
		}
	}

	return sections, nil
}

// LibraryTracks retrieves every audio track in a library section.
func (p *PlexService) LibraryTracks(ctx context.Context, sectionKey string) ([]models.Track, error) {
	// type=10 selects track-level metadata.
	endpoint := fmt.Sprintf("/library/sections/%s/all?type=10", url.PathEscape(sectionKey))

	var container plexContainer
	if err := p.doRequest(ctx, http.MethodGet, endpoint, &container); err != nil {
		return nil, err
	}

	items, err := decodeMetadata[PlexTrack](container.MediaContainer.Metadata)
	if err != nil {
		return nil, err
	}

	tracks := make([]models.Track, len(items))
	for i, item := range items {
		tracks[i] = convertPlexTrack(item)
	}

	return tracks, nil
}

// Service interface implementation

// GetPlaylists retrieves all audio playlists on the server.
func (p *PlexService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var container plexContainer
	if err := p.doRequest(ctx, http.MethodGet, "/playlists?playlistType=audio", &container); err != nil {
		return nil, err
	}

	items, err := decodeMetadata[PlexPlaylist](container.MediaContainer.Metadata)
	if err != nil {
		return nil, err
	}

	playlists := make([]models.Playlist, len(items))
	for i, item := range items {
		playlists[i] = models.Playlist{
			ID:          item.RatingKey,
			Name:        item.Title,
			Description: item.Summary,
			TrackCount:  item.LeafCount,
		}
	}

	return playlists, nil
}

// GetPlaylist retrieves a specific playlist by rating key.
func (p *PlexService) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	endpoint := fmt.Sprintf("/playlists/%s", url.PathEscape(playlistID))

	var container plexContainer
	if err := p.doRequest(ctx, http.MethodGet, endpoint, &container); err != nil {
		return nil, err
	}

	items, err := decodeMetadata[PlexPlaylist](container.MediaContainer.Metadata)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}

	item := items[0]
	return &models.Playlist{
		ID:          item.RatingKey,
		Name:        item.Title,
		Description: item.Summary,
		TrackCount:  item.LeafCount,
	}, nil
}

// ExportPlaylist exports a playlist with all its tracks.
func (p *PlexService) ExportPlaylist(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
	playlist, err := p.GetPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/playlists/%s/items", url.PathEscape(playlistID))

	var container plexContainer
	if err := p.doRequest(ctx, http.MethodGet, endpoint, &container); err != nil {
		return nil, err
	}

	items, err := decodeMetadata[PlexTrack](container.MediaContainer.Metadata)
	if err != nil {
		return nil, err
	}

	tracks := make([]models.Track, len(items))
	for i, item := range items {
		tracks[i] = convertPlexTrack(item)
	}

	return &models.PlaylistExport{
		Playlist: *playlist,
		Tracks:   tracks,
	}, nil
}

// ImportPlaylist creates a playlist from tracks already present in the
// library: each exported track's ID must be a Plex rating key.
func (p *PlexService) ImportPlaylist(ctx context.Context, playlist *models.PlaylistExport) (*models.Playlist, error) {
	if p.machineID == "" {
		if err := p.Authenticate(ctx, nil); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(playlist.Tracks))
	for _, track := range playlist.Tracks {
		if track.ID != "" {
			keys = append(keys, track.ID)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no library tracks to add to playlist %q", playlist.Playlist.Name)
	}

	itemURI := fmt.Sprintf("server://%s/com.plexapp.plugins.library/library/metadata/%s",
		p.machineID, strings.Join(keys, ","))
	endpoint := fmt.Sprintf("/playlists?type=audio&smart=0&title=%s&uri=%s",
		url.QueryEscape(playlist.Playlist.Name), url.QueryEscape(itemURI))

	var container plexContainer
	if err := p.doRequest(ctx, http.MethodPost, endpoint, &container); err != nil {
		return nil, err
	}

	items, err := decodeMetadata[PlexPlaylist](container.MediaContainer.Metadata)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: plex returned no playlist metadata", shared.ErrAPIRequest)
	}

	created := items[0]
	return &models.Playlist{
		ID:          created.RatingKey,
		Name:        created.Title,
		Description: created.Summary,
		TrackCount:  created.LeafCount,
	}, nil
}

// SearchTrack searches the server for a track by title and artist.
func (p *PlexService) SearchTrack(ctx context.Context, title, artist string) (*models.Track, error) {
	endpoint := fmt.Sprintf("/search?query=%s", url.QueryEscape(title+" "+artist))

	var container plexContainer
	if err := p.doRequest(ctx, http.MethodGet, endpoint, &container); err != nil {
		return nil, err
	}

	items, err := decodeMetadata[PlexTrack](container.MediaContainer.Metadata)
	if err != nil {
		return nil, err
	}

	want := shared.NormalizeTrackKey(title, artist)
	var fallback *PlexTrack
	for i := range items {
		item := items[i]
		if item.Type != "track" {
			continue
		}
		if shared.NormalizeTrackKey(item.Title, item.GrandparentTitle) == want {
			track := convertPlexTrack(item)
			return &track, nil
		}
		if fallback == nil {
			fallback = &item
		}
	}

	if fallback != nil {
		track := convertPlexTrack(*fallback)
		return &track, nil
	}

	return nil, fmt.Errorf("%w: no results for '%s' by '%s'", shared.ErrTrackNotFound, title, artist)
}

func convertPlexTrack(pt PlexTrack) models.Track {
	track := models.Track{
		ID:       pt.RatingKey,
		Title:    pt.Title,
		Artist:   pt.GrandparentTitle,
		Album:    pt.ParentTitle,
		Duration: pt.DurationMS / 1000,
	}

	if len(pt.Media) > 0 && len(pt.Media[0].Parts) > 0 {
		track.FilePath = pt.Media[0].Parts[0].File
	}

	return track
}
