package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/harmonysync/harmony/internal/shared"
	"github.com/harmonysync/harmony/internal/txstore"
)

// StoreCheck exercises the OAuth transaction store end to end and reports
// backend details.
func (r *Runner) StoreCheck(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	if r.store == nil {
		return fmt.Errorf("%w: oauth transaction store not initialized", shared.ErrServiceUnavailable)
	}

	checker, ok := r.store.(txstore.Checker)
	if !ok {
		return fmt.Errorf("%w: store backend does not support startup checks", shared.ErrServiceUnavailable)
	}

	r.logger.Info("running transaction store startup check")

	details, err := checker.StartupCheck()
	if err != nil {
		if useJSON && details != nil {
			r.writeJSON(details, pretty)
		}
		return fmt.Errorf("store check failed: %w", err)
	}

	if useJSON {
		return r.writeJSON(details, pretty)
	}

	r.writePlain("✓ Transaction store is healthy\n")
	for key, value := range details {
		r.writePlain("  %s: %v\n", key, value)
	}

	return nil
}

// StorePurge retires every expired pending transaction.
func (r *Runner) StorePurge(ctx context.Context, cmd *cli.Command) error {
	if r.store == nil {
		return fmt.Errorf("%w: oauth transaction store not initialized", shared.ErrServiceUnavailable)
	}

	purged, err := r.store.PurgeExpired(time.Now())
	if err != nil {
		return fmt.Errorf("failed to purge expired transactions: %w", err)
	}

	r.logger.Info("purged expired transactions", "count", purged)
	r.writePlain("✓ Purged %d expired transactions\n", purged)

	return nil
}

// StoreCount reports the number of pending transactions.
func (r *Runner) StoreCount(ctx context.Context, cmd *cli.Command) error {
	if r.store == nil {
		return fmt.Errorf("%w: oauth transaction store not initialized", shared.ErrServiceUnavailable)
	}

	count, err := r.store.Count()
	if err != nil {
		return fmt.Errorf("failed to count transactions: %w", err)
	}

	r.writePlain("Pending transactions: %d\n", count)
	r.writePlain("Transaction TTL: %s\n", r.store.TTL())

	return nil
}

// storeCommand handles operational access to the OAuth transaction store
func storeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "store",
		Usage: "Inspect and maintain the OAuth transaction store",
		Commands: []*cli.Command{
			{
				Name:  "check",
				Usage: "Run a startup check against the store backend",
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
				Action: r.StoreCheck,
			},
			{
				Name:   "purge",
				Usage:  "Remove expired pending transactions",
				Action: r.StorePurge,
			},
			{
				Name:   "count",
				Usage:  "Count pending transactions",
				Action: r.StoreCount,
			},
		},
	}
}
