// Soulseek client backed by the slskd daemon's REST API
//
// https://github.com/slskd/slskd/blob/master/docs/api.md
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/harmonysync/harmony/internal/shared"
)

const slskdAPIPrefix = "/api/v0"

// SoulseekFile is a single file in a peer's search response.
type SoulseekFile struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	BitRate  int    `json:"bitRate"`
	Length   int    `json:"length"` // Duration in seconds
}

// SoulseekResponse is one peer's answer to a search.
type SoulseekResponse struct {
	Username    string         `json:"username"`
	HasFreeSlot bool           `json:"hasFreeUploadSlot"`
	QueueLength int            `json:"queueLength"`
	Files       []SoulseekFile `json:"files"`
}

// SoulseekSearch is the state of a search submitted to slskd.
type SoulseekSearch struct {
	ID            string             `json:"id"`
	SearchText    string             `json:"searchText"`
	State         string             `json:"state"`
	ResponseCount int                `json:"responseCount"`
	FileCount     int                `json:"fileCount"`
	Responses     []SoulseekResponse `json:"responses"`
}

// SoulseekService queues peer-to-peer downloads through a slskd daemon.
//
// It is not a playlist provider, so it does not implement [Service]; the
// sync engine hands it tracks that Plex is missing.
type SoulseekService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter

	// searchWait bounds how long Search polls slskd for peer responses.
	searchWait time.Duration
	pollEvery  time.Duration
}

// NewSoulseekService creates a slskd client for the given daemon URL and API key.
func NewSoulseekService(baseURL, apiKey string) (*SoulseekService, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("missing slskd URL")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("missing slskd API key")
	}

	return &SoulseekService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Every(100*time.Millisecond), 5),
		searchWait: 15 * time.Second,
		pollEvery:  time.Second,
	}, nil
}

func (s *SoulseekService) Name() string {
	return "Soulseek"
}

func (s *SoulseekService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	var reqBody *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+slskdAPIPrefix+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-API-Key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: slskd API status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// Search submits a search to slskd and polls until it completes or the
// polling window elapses, returning whatever responses arrived.
func (s *SoulseekService) Search(ctx context.Context, query string) (*SoulseekSearch, error) {
	submitReq := struct {
		ID         string `json:"id"`
		SearchText string `json:"searchText"`
	}{
		ID:         uuid.New().String(),
		SearchText: query,
	}

	if err := s.doRequest(ctx, http.MethodPost, "/searches", submitReq, nil); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(s.searchWait)
	endpoint := fmt.Sprintf("/searches/%s?includeResponses=true", submitReq.ID)

	for {
		var search SoulseekSearch
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &search); err != nil {
			return nil, err
		}

		if strings.Contains(search.State, "Completed") || !time.Now().Before(deadline) {
			return &search, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.pollEvery):
		}
	}
}

// SearchTrack searches for a track and picks the most promising file:
// peers with a free upload slot first, then higher bitrate.
func (s *SoulseekService) SearchTrack(ctx context.Context, title, artist string) (string, *SoulseekFile, error) {
	search, err := s.Search(ctx, fmt.Sprintf("%s %s", artist, title))
	if err != nil {
		return "", nil, err
	}

	var bestUser string
	var best *SoulseekFile
	for i := range search.Responses {
		resp := search.Responses[i]
		for j := range resp.Files {
			file := resp.Files[j]
			if !isAudioFile(file.Filename) {
				continue
			}
			if best == nil || betterCandidate(resp, file, best) {
				bestUser = resp.Username
				copied := file
				best = &copied
			}
		}
	}

	if best == nil {
		return "", nil, fmt.Errorf("%w: no peer results for '%s' by '%s'", shared.ErrTrackNotFound, title, artist)
	}

	return bestUser, best, nil
}

// Download enqueues a file transfer from a peer.
func (s *SoulseekService) Download(ctx context.Context, username string, file SoulseekFile) error {
	downloadReq := []struct {
		Filename string `json:"filename"`
		Size     int64  `json:"size"`
	}{
		{Filename: file.Filename, Size: file.Size},
	}

	endpoint := fmt.Sprintf("/transfers/downloads/%s", username)
	if err := s.doRequest(ctx, http.MethodPost, endpoint, downloadReq, nil); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrDownloadFailed, err)
	}

	return nil
}

func isAudioFile(filename string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range []string{".flac", ".mp3", ".m4a", ".ogg", ".opus", ".wav"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func betterCandidate(resp SoulseekResponse, file SoulseekFile, current *SoulseekFile) bool {
	if resp.HasFreeSlot && file.BitRate >= current.BitRate {
		return true
	}
	return file.BitRate > current.BitRate
}
