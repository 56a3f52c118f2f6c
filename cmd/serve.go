package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/harmonysync/harmony/internal/server"
	"github.com/harmonysync/harmony/internal/services"
	"github.com/harmonysync/harmony/internal/shared"
)

// Serve runs the long-lived HTTP server: health checks plus the Spotify
// OAuth login and callback routes backed by the transaction store.
//
// In split mode the same binary can run twice against a shared state
// directory, with one instance serving logins and the other callbacks.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	host := cmd.String("host")
	port := cmd.Int("port")
	if host == "" {
		host = r.config.Server.Host
	}
	if port == 0 {
		port = r.config.Server.Port
	}

	if r.store == nil {
		return fmt.Errorf("%w: oauth transaction store not initialized", shared.ErrServiceUnavailable)
	}

	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger), server.Recover(r.logger))
	router.Handler(server.NewHealthHandler(r.store, r.logger))

	if oauthSrv, ok := r.spotify.(services.OAuthService); ok {
		flow := server.NewOAuthFlowHandler("spotify", oauthSrv, r.store, r.logger)
		flow.SetTokenCallback(func(token *oauth2.Token) {
			if err := r.saveTokens(token); err != nil {
				r.logger.Error("failed to persist spotify tokens", "error", err)
			}
		})
		router.Handler(flow)
	} else {
		r.logger.Warn("spotify credentials missing, oauth routes disabled")
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("server listening", "addr", addr, "split_mode", r.config.OAuth.SplitMode)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		r.logger.Info("shutting down", "signal", sig)
	case <-ctx.Done():
		r.logger.Info("shutting down", "reason", ctx.Err())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	return nil
}

// serveCommand runs the HTTP server
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server (health + OAuth routes)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind (defaults to config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to bind (defaults to config)",
			},
		},
		Action: r.Serve,
	}
}
