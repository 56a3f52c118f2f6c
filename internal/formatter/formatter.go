// package formatter renders playlist exports and sync reports to CSV,
// Markdown, plain text and JSON, both as bytes and as files on disk.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/harmonysync/harmony/internal/models"
	"github.com/harmonysync/harmony/internal/shared"
)

// imageClient bounds cover-image downloads; playlist art is small, so a
// stalled server should fail the export step rather than hang it.
var imageClient = &http.Client{Timeout: 30 * time.Second}

// ExportToCSV renders the track list as CSV with a fixed header row:
// ID, Title, Artist, Album, Duration, ISRC.
func ExportToCSV(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"ID", "Title", "Artist", "Album", "Duration", "ISRC"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range export.Tracks {
		row := []string{track.ID, track.Title, track.Artist, track.Album, strconv.Itoa(track.Duration), track.ISRC}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders the playlist as a Markdown document. When
// imageFilename is non-empty a cover image reference is emitted below the
// title.
func ExportToMarkdown(export *models.PlaylistExport, imageFilename string) ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", export.Playlist.Name)
	if imageFilename != "" {
		fmt.Fprintf(&b, "![Cover](%s)\n\n", imageFilename)
	}
	if export.Playlist.Description != "" {
		fmt.Fprintf(&b, "**Description**: %s\n\n", export.Playlist.Description)
	}
	fmt.Fprintf(&b, "**Tracks**: %d\n", len(export.Tracks))
	fmt.Fprintf(&b, "**Visibility**: %s\n\n", shared.VisibilityString(export.Playlist.Public))

	b.WriteString("## Tracks\n\n")
	for i, track := range export.Tracks {
		album := ""
		if track.Album != "" {
			album = fmt.Sprintf(" (%s)", track.Album)
		}
		fmt.Fprintf(&b, "%d. %s - %s%s [%s]\n", i+1, track.Artist, track.Title, album, shared.FormatDuration(track.Duration))
	}

	return []byte(b.String()), nil
}

// ExportToText renders the playlist as a numbered plain-text list.
func ExportToText(export *models.PlaylistExport) ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "Playlist: %s\n", export.Playlist.Name)
	if export.Playlist.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", export.Playlist.Description)
	}
	fmt.Fprintf(&b, "Tracks: %d\n\n", len(export.Tracks))

	for i, track := range export.Tracks {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, track.Artist, track.Title)
	}

	return []byte(b.String()), nil
}

// DownloadImage fetches cover art from the given URL.
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	resp, err := imageClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return data, nil
}

// ToMetadataJSON renders playlist metadata (without tracks) as indented JSON.
func ToMetadataJSON(playlist models.Playlist) ([]byte, error) {
	return shared.MarshalJSON(playlist, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport writes {base}_tracks.csv plus {base}_metadata.json, with the
// playlist ID as the default base path.
func WriteCSVExport(export *models.PlaylistExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.Playlist.ID
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export.Playlist)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{TracksFile: tracksFile, MetadataFile: metadataFile}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport writes {dir}/README.md, defaulting the directory to the
// playlist ID. When imageURL is set the cover is fetched to {dir}/cover.jpg;
// art failures degrade to a coverless document rather than failing the export.
func WriteMarkdownExport(export *models.PlaylistExport, outputDir string, imageURL string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = export.Playlist.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverName string
	if imageURL != "" {
		imageData, err := DownloadImage(imageURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to download cover image: %v\n", err)
		} else {
			coverName = "cover.jpg"
			coverPath := filepath.Join(outputDir, coverName)
			if err := os.WriteFile(coverPath, imageData, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save cover image: %v\n", err)
				coverName = ""
			} else {
				result.CoverImage = coverPath
				result.Files = append(result.Files, coverPath)
			}
		}
	}

	mdData, err := ExportToMarkdown(export, coverName)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport writes the plain-text rendering, defaulting to
// {playlist.ID}_tracks.txt.
func WriteTextExport(export *models.PlaylistExport, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s_tracks.txt", export.Playlist.ID)
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(filepath, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return filepath, nil
}

// WriteJSONExport writes the playlist with tracks as indented JSON,
// defaulting to {playlist.ID}.json.
func WriteJSONExport(export *models.PlaylistExport, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s.json", export.Playlist.ID)
	}

	data, err := shared.MarshalJSON(export, true)
	if err != nil {
		return "", fmt.Errorf("failed to generate JSON: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON file: %w", err)
	}

	return filepath, nil
}
