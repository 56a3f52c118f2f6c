package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/harmonysync/harmony/internal/shared"
)

// SoulseekSearch runs a raw search against the slskd daemon and prints the
// peers and files that responded.
func (r *Runner) SoulseekSearch(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	if query == "" {
		return fmt.Errorf("%w: search query is required", shared.ErrMissingArgument)
	}

	if r.soulseek == nil {
		return fmt.Errorf("%w: Soulseek service not initialized", shared.ErrServiceUnavailable)
	}

	r.logger.Infof("searching soulseek for %q", query)

	search, err := r.soulseek.Search(ctx, query)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if useJSON {
		return r.writeJSON(search, pretty)
	}

	r.writePlain("Search %q: %d peers, %d files\n\n", search.SearchText, search.ResponseCount, search.FileCount)
	for _, resp := range search.Responses {
		r.writePlain("Peer: %s", resp.Username)
		if resp.HasFreeSlot {
			r.writePlain(" (free slot)")
		} else {
			r.writePlain(" (queue: %d)", resp.QueueLength)
		}
		r.writePlain("\n")
		for _, file := range resp.Files {
			r.writePlain("  %s\n", file.Filename)
			r.writePlain("    Size: %d bytes", file.Size)
			if file.BitRate > 0 {
				r.writePlain(", Bitrate: %d kbps", file.BitRate)
			}
			if file.Length > 0 {
				r.writePlain(", Length: %s", shared.FormatDuration(file.Length))
			}
			r.writePlain("\n")
		}
		r.writePlain("\n")
	}

	return nil
}

// SoulseekDownload finds the best candidate file for a track and queues it
// for download through slskd.
func (r *Runner) SoulseekDownload(ctx context.Context, cmd *cli.Command) error {
	title := cmd.String("title")
	artist := cmd.String("artist")

	if title == "" || artist == "" {
		return fmt.Errorf("%w: --title and --artist are required", shared.ErrMissingArgument)
	}

	if r.soulseek == nil {
		return fmt.Errorf("%w: Soulseek service not initialized", shared.ErrServiceUnavailable)
	}

	r.logger.Infof("searching for download candidate: %s - %s", artist, title)
	r.writePlain("Searching peers for: %s - %s\n", artist, title)

	username, file, err := r.soulseek.SearchTrack(ctx, title, artist)
	if err != nil {
		return fmt.Errorf("%w: %s - %s: %v", shared.ErrTrackNotFound, artist, title, err)
	}

	r.writePlain("Found candidate from %s:\n", username)
	r.writePlain("  %s (%d bytes)\n\n", file.Filename, file.Size)

	if err := r.soulseek.Download(ctx, username, *file); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrDownloadFailed, err)
	}

	r.writePlain("✓ Download queued\n")
	r.writePlain("Check your slskd web UI for transfer progress.\n")

	return nil
}

// soulseekCommand handles peer-to-peer search and downloads via slskd
func soulseekCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "soulseek",
		Aliases: []string{"slsk"},
		Usage:   "Search and download tracks through slskd",
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Search the Soulseek network",
				ArgsUsage: "<query>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "query"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output as JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
					},
				},
				Action: r.SoulseekSearch,
			},
			{
				Name:  "download",
				Usage: "Queue a track download from the best available peer",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "title",
						Usage:    "Track title",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "artist",
						Usage:    "Track artist",
						Required: true,
					},
				},
				Action: r.SoulseekDownload,
			},
		},
	}
}
