package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harmonysync/harmony/internal/formatter"
	"github.com/harmonysync/harmony/internal/services"
	"github.com/harmonysync/harmony/internal/shared"
	"golang.org/x/time/rate"
)

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format        string                                               // Export format: json, csv, markdown, txt
	OutputDir     string                                               // Base output directory (default: {service}_export_{epoch})
	NumWorkers    int                                                  // Concurrent workers (default: 5, capped at 10)
	RateLimit     float64                                              // API requests per second (default: 5)
	GetCoverImage func(ctx context.Context, id string) (string, error) // Fetcher function
}

// normalize fills in defaults and caps the worker count. The cap keeps a
// careless caller from hammering the source API with dozens of goroutines.
func (o *BulkExportOpts) normalize(serviceName string) {
	if o.OutputDir == "" {
		o.OutputDir = fmt.Sprintf("%s_export_%d", strings.ToLower(serviceName), time.Now().Unix())
	}
	if o.NumWorkers <= 0 {
		o.NumWorkers = 5
	}
	if o.NumWorkers > 10 {
		o.NumWorkers = 10
	}
	if o.RateLimit <= 0 {
		o.RateLimit = 5.0
	}
}

// BulkExport exports multiple playlists concurrently with rate limiting and
// progress tracking.
//
// Playlist fetches run on a single rate-limited producer loop while a pool of
// workers writes the fetched exports to disk. Fetch failures become failed
// results rather than aborting the run, and a manifest summarizing the whole
// export is written last.
func (e *PlaylistEngine) BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	srv services.Service,
	ids []string,
	opts BulkExportOpts,
) (*formatter.BulkExportResult, error) {
	if srv == nil {
		return nil, fmt.Errorf("%w: service not initialized", shared.ErrServiceUnavailable)
	}

	opts.normalize(srv.Name())

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &formatter.BulkExportResult{
		TotalPlaylists:  len(ids),
		OutputDirectory: opts.OutputDir,
		Results:         make([]formatter.PlaylistExportResult, 0, len(ids)),
	}

	jobs := make(chan formatter.PlaylistExportJob, len(ids))
	results := make(chan formatter.PlaylistExportResult, len(ids))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				results <- e.writePlaylistExport(ctx, job, opts)
			}
		}()
	}

	go e.fetchExports(ctx, prog, srv, ids, opts, jobs, results)

	go func() {
		wg.Wait()
		close(results)
	}()

	done := 0
	for res := range results {
		done++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(done, len(ids), res.PlaylistName, len(res.Files)))
		} else {
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(done, len(ids), res.PlaylistName, res.Error))
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteBulkExportManifest(result, opts.Format, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// fetchExports is the producer loop: it pulls each playlist from the source
// service under the rate limiter and hands the export to the worker pool.
// Fetch errors short-circuit straight onto the results channel so the
// playlist still counts as a failed export.
func (e *PlaylistEngine) fetchExports(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	srv services.Service,
	ids []string,
	opts BulkExportOpts,
	jobs chan<- formatter.PlaylistExportJob,
	results chan<- formatter.PlaylistExportResult,
) {
	defer close(jobs)

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	e.sendProgress(prog, fetchingSourceUpdate(1, len(ids), srv.Name()))
	for i, playlistID := range ids {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := limiter.Wait(ctx); err != nil {
			return
		}

		export, err := srv.ExportPlaylist(ctx, playlistID)
		if err != nil {
			results <- formatter.PlaylistExportResult{
				PlaylistID:   playlistID,
				PlaylistName: fmt.Sprintf("Unknown (%s)", playlistID),
				Success:      false,
				Error:        fmt.Errorf("failed to fetch playlist: %w", err),
			}
			continue
		}

		jobs <- formatter.PlaylistExportJob{PlaylistID: playlistID, Export: export}
		e.sendProgress(prog, exportingPlaylistUpdate(i+1, len(ids), export.Playlist.Name))
	}
}

// writePlaylistExport writes a single fetched playlist to disk in the
// requested format. Unknown formats fall back to JSON.
func (e *PlaylistEngine) writePlaylistExport(
	ctx context.Context,
	job formatter.PlaylistExportJob,
	opts BulkExportOpts,
) formatter.PlaylistExportResult {
	result := formatter.PlaylistExportResult{
		PlaylistID:   job.PlaylistID,
		PlaylistName: job.Export.Playlist.Name,
		Files:        []string{},
	}

	files, err := e.renderExport(ctx, job, opts)
	if err != nil {
		result.Error = err
		return result
	}

	result.Files = files
	result.Success = true
	return result
}

func (e *PlaylistEngine) renderExport(
	ctx context.Context,
	job formatter.PlaylistExportJob,
	opts BulkExportOpts,
) ([]string, error) {
	base := filepath.Join(opts.OutputDir, job.Export.Playlist.ID)

	switch opts.Format {
	case "csv":
		res, err := formatter.WriteCSVExport(job.Export, base)
		if err != nil {
			return nil, fmt.Errorf("CSV export failed: %w", err)
		}
		return []string{res.TracksFile, res.MetadataFile}, nil

	case "markdown":
		var imageURL string
		if opts.GetCoverImage != nil {
			if url, err := opts.GetCoverImage(ctx, job.PlaylistID); err == nil {
				imageURL = url
			}
		}
		res, err := formatter.WriteMarkdownExport(job.Export, base, imageURL)
		if err != nil {
			return nil, fmt.Errorf("markdown export failed: %w", err)
		}
		return res.Files, nil

	case "txt":
		path, err := formatter.WriteTextExport(job.Export, base+"_tracks.txt")
		if err != nil {
			return nil, fmt.Errorf("text export failed: %w", err)
		}
		return []string{path}, nil

	default: // json
		data, err := shared.MarshalJSON(job.Export, true)
		if err != nil {
			return nil, fmt.Errorf("JSON marshal failed: %w", err)
		}
		path := base + ".json"
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("JSON write failed: %w", err)
		}
		return []string{path}, nil
	}
}
