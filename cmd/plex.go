package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/harmonysync/harmony/internal/shared"
	"github.com/harmonysync/harmony/internal/tasks"
)

// PlexScan walks the Plex music library and caches every track locally so
// sync runs can diff against it without hammering the server.
func (r *Runner) PlexScan(ctx context.Context, cmd *cli.Command) error {
	if r.plex == nil {
		return fmt.Errorf("%w: Plex service not initialized", shared.ErrServiceUnavailable)
	}

	r.logger.Info("scanning plex library")
	r.writePlain("Scanning Plex music library...\n\n")

	progressCh := make(chan tasks.ProgressUpdate, 50)
	go func() {
		for update := range progressCh {
			r.writePlain("📀 %s\n", update.Message)
		}
	}()

	result, err := r.engine.Scan(ctx, progressCh)
	close(progressCh)

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Scan Complete")
	r.writePlain("Sections: %d\n", result.Sections)
	for _, title := range result.SectionTitles {
		r.writePlain("  - %s\n", title)
	}
	r.writePlain("Tracks scanned: %d\n", result.TracksScanned)
	r.writePlain("Tracks cached: %d\n", result.TracksCached)

	if len(result.Errors) > 0 {
		r.writePlain("\n⚠ %d tracks failed to cache:\n", len(result.Errors))
		for _, scanErr := range result.Errors {
			r.writePlain("  - %v\n", scanErr)
		}
	}

	return nil
}

// PlexPlaylists lists playlists on the Plex server.
func (r *Runner) PlexPlaylists(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	if r.plex == nil {
		return fmt.Errorf("%w: Plex service not initialized", shared.ErrServiceUnavailable)
	}

	r.logger.Infof("listing plex playlists with limit %v", limit)

	playlists, err := r.plex.GetPlaylists(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}

	if useJSON {
		return r.writeJSON(playlists, pretty)
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n", p.TrackCount)
		r.writePlain("\n")
	}

	return nil
}

// plexCommand handles Plex library access
func plexCommand(r *Runner) *cli.Command {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}

	return &cli.Command{
		Name:  "plex",
		Usage: "Plex library access and scanning",
		Commands: []*cli.Command{
			{
				Name:   "scan",
				Usage:  "Scan the Plex music library into the local track cache",
				Flags:  []cli.Flag{configFlag},
				Action: r.PlexScan,
			},
			{
				Name:  "playlists",
				Usage: "List Plex playlists",
				Flags: []cli.Flag{
					configFlag,
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"l"},
						Usage:   "Maximum number of playlists to show",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output as JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
					},
				},
				Action: r.PlexPlaylists,
			},
		},
	}
}
