package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/harmonysync/harmony/internal/services"
	"github.com/harmonysync/harmony/internal/shared"
	"github.com/harmonysync/harmony/internal/tasks"
	"github.com/harmonysync/harmony/internal/ui"
)

// SyncRun runs a full Spotify → Plex sync for one playlist.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	sourceIDOrName := cmd.String("source")

	r.logger.Info("starting sync", "source", sourceIDOrName)
	r.writePlain("Starting playlist sync...\n")
	r.writePlain("Source: %s\n\n", sourceIDOrName)

	// Create progress channel and goroutine to handle updates
	progressCh := make(chan tasks.ProgressUpdate, 50)
	go func() {
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchSource:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.SearchTracks:
				if update.Step == 0 {
					r.writePlain("\n🔍 %s\n", update.Message)
				} else {
					r.writePlain("   %s\n", update.Message)
				}
			case tasks.CreatePlaylist:
				r.writePlain("\n📝 %s\n", update.Message)
			case tasks.QueueDownloads:
				r.writePlain("\n⬇ %s\n", update.Message)
			}
		}
	}()

	result, err := r.engine.Run(ctx, sourceIDOrName, progressCh)
	close(progressCh)

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Sync Complete!")
	r.writePlain("Source: %s (%d tracks)\n", result.SourcePlaylist.Playlist.Name, result.TotalTracks)
	r.writePlain("Destination: %s (%d tracks)\n", result.DestPlaylist.Name, result.DestPlaylist.TrackCount)
	r.writePlain("Match rate: %d/%d (%.1f%%)\n", result.SuccessCount, result.TotalTracks, result.MatchPercentage)

	if len(result.MissingTracks) > 0 {
		r.writePlain("\nMissing from library (%d tracks, %d queued for download):\n",
			len(result.MissingTracks), result.QueuedDownloads)
		for _, track := range result.MissingTracks {
			r.writePlain("  - %s - %s\n", track.Artist, track.Title)
		}
	}

	return nil
}

// SyncDiff compares and shows missing tracks between two playlists.
func (r *Runner) SyncDiff(ctx context.Context, cmd *cli.Command) error {
	sourceID := cmd.String("source-id")
	destID := cmd.String("dest-id")
	sourceService := cmd.String("source-service")
	destService := cmd.String("dest-service")

	r.logger.Info("sync diff requested", "source", sourceID, "dest", destID)
	r.writePlain("Comparing playlists...\n\n")

	// Determine which services to use
	sourceSvc, err := r.resolveService(sourceService)
	if err != nil {
		return err
	}
	destSvc, err := r.resolveService(destService)
	if err != nil {
		return err
	}

	// Create progress channel and goroutine to handle updates
	progressCh := make(chan tasks.ProgressUpdate, 10)
	go func() {
		for update := range progressCh {
			r.writePlain("📥 %s\n", update.Message)
		}
	}()

	result, err := r.engine.Diff(ctx, sourceSvc, destSvc, sourceID, destID, progressCh)
	close(progressCh)

	if err != nil {
		return err
	}

	r.writePlain("\n✓ Source: %s (%d tracks)\n", result.Comparison.SourcePlaylist.Playlist.Name, len(result.Comparison.SourcePlaylist.Tracks))
	r.writePlain("✓ Destination: %s (%d tracks)\n\n", result.Comparison.DestPlaylist.Playlist.Name, len(result.Comparison.DestPlaylist.Tracks))

	r.writePlainHeader("Comparison Results")
	r.writePlain("Matched: %d tracks\n", result.Comparison.MatchedCount)
	r.writePlain("Missing from destination: %d tracks\n", len(result.Comparison.MissingInDest))
	r.writePlain("Extra in destination: %d tracks\n\n", len(result.Comparison.ExtraInDest))

	if len(result.Comparison.MissingInDest) > 0 {
		r.writePlain("Missing from destination:\n")
		for i, track := range result.Comparison.MissingInDest {
			r.writePlain("  %d. %s - %s", i+1, track.Artist, track.Title)
			if track.Album != "" {
				r.writePlain(" (%s)", track.Album)
			}
			r.writePlain("\n")
		}
		r.writePlain("\n")
	}

	if len(result.Comparison.ExtraInDest) > 0 {
		r.writePlain("Extra in destination (not in source):\n")
		for i, track := range result.Comparison.ExtraInDest {
			r.writePlain("  %d. %s - %s", i+1, track.Artist, track.Title)
			if track.Album != "" {
				r.writePlain(" (%s)", track.Album)
			}
			r.writePlain("\n")
		}
	}

	return nil
}

// SyncUI launches the interactive terminal UI for playlist syncing.
func (r *Runner) SyncUI(ctx context.Context, cmd *cli.Command) error {
	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}
	if r.plex == nil {
		return fmt.Errorf("%w: Plex service not initialized", shared.ErrServiceUnavailable)
	}
	if r.engine == nil {
		return fmt.Errorf("%w: sync engine not initialized", shared.ErrServiceUnavailable)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/harmony-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, r.spotify, r.plex.Name(), r.engine)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

// resolveService resolves a service name to its corresponding Service instance.
func (r *Runner) resolveService(serviceName string) (services.Service, error) {
	switch serviceName {
	case "spotify":
		if r.spotify == nil {
			return nil, fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
		}
		return r.spotify, nil
	case "plex":
		if r.plex == nil {
			return nil, fmt.Errorf("%w: Plex service not initialized", shared.ErrServiceUnavailable)
		}
		return r.plex, nil
	default:
		return nil, fmt.Errorf("%w: invalid service '%s' (must be 'spotify' or 'plex')", shared.ErrInvalidArgument, serviceName)
	}
}

// syncCommand handles playlist sync operations
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Sync playlists from Spotify into Plex",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a full Spotify → Plex sync for one playlist",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "source",
						Usage:    "Source playlist name or ID",
						Required: true,
					},
				},
				Action: r.SyncRun,
			},
			{
				Name:  "diff",
				Usage: "Compare and show missing tracks between two playlists",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "source-id",
						Usage:    "Source playlist ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "dest-id",
						Usage:    "Destination playlist ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "source-service",
						Usage:    "Source service (spotify or plex)",
						Value:    "spotify",
						Required: false,
					},
					&cli.StringFlag{
						Name:     "dest-service",
						Usage:    "Destination service (spotify or plex)",
						Value:    "plex",
						Required: false,
					},
				},
				Action: r.SyncDiff,
			},
			{
				Name:   "ui",
				Usage:  "Launch the interactive sync TUI",
				Action: r.SyncUI,
			},
		},
	}
}
