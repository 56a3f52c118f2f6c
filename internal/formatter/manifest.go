package formatter

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/harmonysync/harmony/internal/models"
	"github.com/harmonysync/harmony/internal/shared"
)

// PlaylistExportJob carries one playlist through a bulk export worker pool.
type PlaylistExportJob struct {
	PlaylistID string
	Export     *models.PlaylistExport
}

// PlaylistExportResult records the outcome of exporting a single playlist.
type PlaylistExportResult struct {
	PlaylistID   string
	PlaylistName string
	Success      bool
	Files        []string
	Error        error
}

// BulkExportResult summarizes a bulk playlist export run.
type BulkExportResult struct {
	TotalPlaylists    int
	SuccessfulExports int
	FailedExports     int
	Results           []PlaylistExportResult
	OutputDirectory   string
	ManifestPath      string
}

type manifestEntry struct {
	PlaylistID   string   `json:"playlist_id"`
	PlaylistName string   `json:"playlist_name"`
	Status       string   `json:"status"`
	Files        []string `json:"files,omitempty"`
	Error        string   `json:"error,omitempty"`
}

type manifest struct {
	GeneratedAt       string          `json:"generated_at"`
	Format            string          `json:"format"`
	TotalPlaylists    int             `json:"total_playlists"`
	SuccessfulExports int             `json:"successful_exports"`
	FailedExports     int             `json:"failed_exports"`
	OutputDirectory   string          `json:"output_directory,omitempty"`
	Playlists         []manifestEntry `json:"playlists"`
}

// WriteBulkExportManifest writes a JSON summary of a bulk export run.
func WriteBulkExportManifest(result *BulkExportResult, format, manifestPath string) error {
	if result == nil {
		return fmt.Errorf("no export result to summarize")
	}

	m := manifest{
		GeneratedAt:       time.Now().UTC().Format(time.RFC3339),
		Format:            format,
		TotalPlaylists:    result.TotalPlaylists,
		SuccessfulExports: result.SuccessfulExports,
		FailedExports:     result.FailedExports,
		OutputDirectory:   result.OutputDirectory,
		Playlists:         make([]manifestEntry, 0, len(result.Results)),
	}

	for _, res := range result.Results {
		entry := manifestEntry{
			PlaylistID:   res.PlaylistID,
			PlaylistName: res.PlaylistName,
			Status:       "success",
			Files:        res.Files,
		}
		if !res.Success {
			entry.Status = "failed"
			if res.Error != nil {
				entry.Error = res.Error.Error()
			}
		}
		m.Playlists = append(m.Playlists, entry)
	}

	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to generate manifest: %w", err)
	}

	if err := os.WriteFile(manifestPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return nil
}

// SyncReport summarizes a playlist sync run for export.
type SyncReport struct {
	SourceService   string
	SourcePlaylist  string
	DestService     string
	DestPlaylist    string
	TotalTracks     int
	MatchedTracks   int
	MissingTracks   []models.Track
	QueuedDownloads int
}

// ExportSyncReportMarkdown renders a sync report as Markdown.
func ExportSyncReportMarkdown(report *SyncReport) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("no sync report to render")
	}

	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Sync Report: %s\n\n", report.SourcePlaylist))
	buf.WriteString(fmt.Sprintf("**Source**: %s\n", report.SourceService))
	buf.WriteString(fmt.Sprintf("**Destination**: %s", report.DestService))
	if report.DestPlaylist != "" {
		buf.WriteString(fmt.Sprintf(" (%s)", report.DestPlaylist))
	}
	buf.WriteString("\n\n")

	buf.WriteString(fmt.Sprintf("**Tracks**: %d total, %d matched, %d missing\n",
		report.TotalTracks, report.MatchedTracks, len(report.MissingTracks)))
	if report.QueuedDownloads > 0 {
		buf.WriteString(fmt.Sprintf("**Queued downloads**: %d\n", report.QueuedDownloads))
	}
	buf.WriteString("\n")

	if len(report.MissingTracks) > 0 {
		buf.WriteString("## Missing Tracks\n\n")
		for i, track := range report.MissingTracks {
			buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, track.Artist, track.Title))
		}
	}

	return buf.Bytes(), nil
}

// WriteSyncReport writes a Markdown sync report to the given path.
func WriteSyncReport(report *SyncReport, filepath string) (string, error) {
	if filepath == "" {
		filepath = "sync_report.md"
	}

	data, err := ExportSyncReportMarkdown(report)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write sync report: %w", err)
	}

	return filepath, nil
}
