package formatter

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harmonysync/harmony/internal/models"
	th "github.com/harmonysync/harmony/internal/testing"
)

func sampleExport() *models.PlaylistExport {
	return &models.PlaylistExport{
		Playlist: models.Playlist{
			ID:          "test123",
			Name:        "Test Playlist",
			Description: "A test playlist",
			TrackCount:  2,
			Public:      true,
		},
		Tracks: []models.Track{
			{
				ID:       "track1",
				Title:    "Song One",
				Artist:   "Artist One",
				Album:    "Album One",
				Duration: 180,
				ISRC:     "USRC12345678",
			},
			{
				ID:       "track2",
				Title:    "Song Two",
				Artist:   "Artist Two",
				Album:    "Album Two",
				Duration: 240,
				ISRC:     "USRC87654321",
			},
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleExport())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		content := string(data)
		lines := strings.Split(strings.TrimSpace(content), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header + 2 records, got %d lines", len(lines))
		}
		if lines[0] != "ID,Title,Artist,Album,Duration,ISRC" {
			t.Errorf("unexpected header: %s", lines[0])
		}
		if !strings.Contains(content, "Song One") || !strings.Contains(content, "USRC87654321") {
			t.Error("expected track data in CSV output")
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(sampleExport(), "cover.jpg")
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		content := string(data)
		if !strings.Contains(content, "# Test Playlist") {
			t.Error("expected playlist name as heading")
		}
		if !strings.Contains(content, "![Cover](cover.jpg)") {
			t.Error("expected cover image reference")
		}
		if !strings.Contains(content, "**Visibility**: Public") {
			t.Error("expected visibility line")
		}
		if !strings.Contains(content, "1. Artist One - Song One (Album One) [3:00]") {
			t.Errorf("unexpected track line formatting:\n%s", content)
		}
	})

	t.Run("ExportToMarkdown Without Cover", func(t *testing.T) {
		data, err := ExportToMarkdown(sampleExport(), "")
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}
		if strings.Contains(string(data), "![Cover]") {
			t.Error("expected no cover image reference when filename is empty")
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleExport())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		content := string(data)
		if !strings.Contains(content, "Playlist: Test Playlist") {
			t.Error("expected playlist header")
		}
		if !strings.Contains(content, "2. Artist Two - Song Two") {
			t.Error("expected numbered track lines")
		}
	})
}

func TestWriters(t *testing.T) {
	t.Run("WriteCSVExport", func(t *testing.T) {
		tempDir := t.TempDir()
		base := filepath.Join(tempDir, "test123")

		result, err := WriteCSVExport(sampleExport(), base)
		if err != nil {
			t.Fatalf("WriteCSVExport failed: %v", err)
		}

		th.AssertFileExists(t, result.TracksFile)
		th.AssertFileExists(t, result.MetadataFile)

		metadata := th.MustReadFile(t, result.MetadataFile)
		if !strings.Contains(metadata, "Test Playlist") {
			t.Error("expected playlist name in metadata JSON")
		}
	})

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		tempDir := t.TempDir()
		outDir := filepath.Join(tempDir, "test123")

		result, err := WriteMarkdownExport(sampleExport(), outDir, "")
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}

		th.AssertDirExists(t, result.Directory)
		if len(result.Files) != 1 {
			t.Fatalf("expected 1 file without cover image, got %d", len(result.Files))
		}
		th.AssertFileExists(t, result.Files[0])
	})

	t.Run("WriteTextExport", func(t *testing.T) {
		tempDir := t.TempDir()
		path := filepath.Join(tempDir, "tracks.txt")

		got, err := WriteTextExport(sampleExport(), path)
		if err != nil {
			t.Fatalf("WriteTextExport failed: %v", err)
		}
		if got != path {
			t.Errorf("expected %s, got %s", path, got)
		}
		th.AssertFileExists(t, got)
	})

	t.Run("WriteJSONExport", func(t *testing.T) {
		tempDir := t.TempDir()
		originalDir := th.MustGetwd(t)
		th.MustChdir(t, tempDir)
		defer th.MustChdir(t, originalDir)

		path, err := WriteJSONExport(sampleExport(), "my_export.json")
		if err != nil {
			t.Fatalf("WriteJSONExport failed: %v", err)
		}

		if path != "my_export.json" {
			t.Errorf("expected 'my_export.json', got '%s'", path)
		}
		th.AssertFileExists(t, path)

		content := th.MustReadFile(t, path)
		if !strings.Contains(content, "Song One") {
			t.Error("expected track data in JSON export")
		}
	})

	t.Run("WriteJSONExport Default Filename", func(t *testing.T) {
		tempDir := t.TempDir()
		originalDir := th.MustGetwd(t)
		th.MustChdir(t, tempDir)
		defer th.MustChdir(t, originalDir)

		path, err := WriteJSONExport(sampleExport(), "")
		if err != nil {
			t.Fatalf("WriteJSONExport failed: %v", err)
		}
		if path != "test123.json" {
			t.Errorf("expected playlist ID filename, got %s", path)
		}
	})
}

func TestWriteBulkExportManifest(t *testing.T) {
	t.Run("Successful Export", func(t *testing.T) {
		tempDir := t.TempDir()
		manifestPath := filepath.Join(tempDir, "manifest.json")

		bulkResult := &BulkExportResult{
			TotalPlaylists:    2,
			SuccessfulExports: 2,
			FailedExports:     0,
			OutputDirectory:   "exports",
			Results: []PlaylistExportResult{
				{
					PlaylistID:   "playlist1",
					PlaylistName: "My Playlist 1",
					Success:      true,
					Files:        []string{"playlist1_tracks.csv", "playlist1_metadata.json"},
				},
				{
					PlaylistID:   "playlist2",
					PlaylistName: "My Playlist 2",
					Success:      true,
					Files:        []string{"playlist2/README.md", "playlist2/cover.jpg"},
				},
			},
		}

		if err := WriteBulkExportManifest(bulkResult, "csv", manifestPath); err != nil {
			t.Fatalf("WriteBulkExportManifest failed: %v", err)
		}

		th.AssertFileExists(t, manifestPath)

		content := th.MustReadFile(t, manifestPath)
		if !strings.Contains(content, `"format": "csv"`) {
			t.Error("manifest missing format field")
		}
		if !strings.Contains(content, `"total_playlists": 2`) {
			t.Error("manifest missing total_playlists field")
		}
		if !strings.Contains(content, `"playlist1"`) || !strings.Contains(content, `"My Playlist 1"`) {
			t.Error("manifest missing playlist entries")
		}
		if !strings.Contains(content, `"status": "success"`) {
			t.Error("manifest missing success status")
		}
	})

	t.Run("With Failed Exports", func(t *testing.T) {
		tempDir := t.TempDir()
		manifestPath := filepath.Join(tempDir, "manifest_with_failures.json")

		bulkResult := &BulkExportResult{
			TotalPlaylists:    2,
			SuccessfulExports: 1,
			FailedExports:     1,
			Results: []PlaylistExportResult{
				{
					PlaylistID:   "playlist1",
					PlaylistName: "Success Playlist",
					Success:      true,
					Files:        []string{"playlist1.json"},
				},
				{
					PlaylistID:   "playlist2",
					PlaylistName: "Failed Playlist",
					Success:      false,
					Error:        errors.New("authentication failed"),
				},
			},
		}

		if err := WriteBulkExportManifest(bulkResult, "markdown", manifestPath); err != nil {
			t.Fatalf("WriteBulkExportManifest failed: %v", err)
		}

		content := th.MustReadFile(t, manifestPath)
		if !strings.Contains(content, `"failed_exports": 1`) {
			t.Error("manifest missing failed_exports count")
		}
		if !strings.Contains(content, `"status": "failed"`) {
			t.Error("manifest missing failed status")
		}
		if !strings.Contains(content, "authentication failed") {
			t.Error("manifest missing failure reason")
		}
	})

	t.Run("Nil Result", func(t *testing.T) {
		if err := WriteBulkExportManifest(nil, "csv", "manifest.json"); err == nil {
			t.Error("expected error for nil result")
		}
	})
}

func TestSyncReport(t *testing.T) {
	report := &SyncReport{
		SourceService:   "Spotify",
		SourcePlaylist:  "Morning Mix",
		DestService:     "Plex",
		DestPlaylist:    "Morning Mix",
		TotalTracks:     10,
		MatchedTracks:   8,
		QueuedDownloads: 2,
		MissingTracks: []models.Track{
			{Title: "Rare B-Side", Artist: "Obscure Band"},
			{Title: "Live Cut", Artist: "Another Band"},
		},
	}

	t.Run("Markdown", func(t *testing.T) {
		data, err := ExportSyncReportMarkdown(report)
		if err != nil {
			t.Fatalf("ExportSyncReportMarkdown failed: %v", err)
		}

		content := string(data)
		if !strings.Contains(content, "# Sync Report: Morning Mix") {
			t.Error("expected report heading")
		}
		if !strings.Contains(content, "10 total, 8 matched, 2 missing") {
			t.Error("expected track summary line")
		}
		if !strings.Contains(content, "**Queued downloads**: 2") {
			t.Error("expected queued downloads line")
		}
		if !strings.Contains(content, "1. Obscure Band - Rare B-Side") {
			t.Error("expected missing track listing")
		}
	})

	t.Run("Write", func(t *testing.T) {
		tempDir := t.TempDir()
		path := filepath.Join(tempDir, "report.md")

		got, err := WriteSyncReport(report, path)
		if err != nil {
			t.Fatalf("WriteSyncReport failed: %v", err)
		}
		th.AssertFileExists(t, got)
	})

	t.Run("Nil Report", func(t *testing.T) {
		if _, err := ExportSyncReportMarkdown(nil); err == nil {
			t.Error("expected error for nil report")
		}
	})
}
