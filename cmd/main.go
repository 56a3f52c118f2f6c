package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/harmonysync/harmony/internal/services"
	"github.com/harmonysync/harmony/internal/shared"
	"github.com/harmonysync/harmony/internal/txstore"
)

const defaultConfigPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	configPath := defaultConfigPath
	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		}
	}

	store, err := txstore.New(txstore.Config{
		SplitMode:      config.OAuth.SplitMode,
		StateDir:       config.OAuth.StateDir,
		TTLSeconds:     config.OAuth.TTLSeconds,
		SessionMinutes: config.OAuth.SessionMinutes,
		HashVerifier:   config.OAuth.HashVerifier,
	}, logger)
	if err != nil {
		logger.Fatalf("failed to create oauth transaction store: %v", err)
	}

	var spotifyService services.Service
	if config.Credentials.Spotify.ClientID != "" && config.Credentials.Spotify.ClientSecret != "" {
		if svc, err := services.NewSpotifyService(config.Credentials.Spotify.Map()); err == nil {
			spotifyService = svc
		} else {
			logger.Warn("spotify service unavailable", "error", err)
		}
	}

	var plexService services.Service
	if config.Credentials.Plex.URL != "" && config.Credentials.Plex.Token != "" {
		if svc, err := services.NewPlexService(config.Credentials.Plex.URL, config.Credentials.Plex.Token); err == nil {
			plexService = svc
		} else {
			logger.Warn("plex service unavailable", "error", err)
		}
	}

	var soulseekService *services.SoulseekService
	if config.Credentials.Soulseek.URL != "" && config.Credentials.Soulseek.APIKey != "" {
		if svc, err := services.NewSoulseekService(config.Credentials.Soulseek.URL, config.Credentials.Soulseek.APIKey); err == nil {
			soulseekService = svc
		} else {
			logger.Warn("soulseek service unavailable", "error", err)
		}
	}

	opts := RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Spotify:    spotifyService,
		Plex:       plexService,
		Soulseek:   soulseekService,
		Store:      store,
		Logger:     logger,
	}

	// The sync journal and track cache need the database, but commands that
	// never touch it should still work before `harmony setup database` runs.
	if _, err := os.Stat(config.Database.Path); err == nil {
		if db, err := shared.NewDatabase(config.Database.Path); err == nil {
			defer db.Close()
			shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
			opts.DB = db
		} else {
			logger.Warn("database unavailable", "path", config.Database.Path, "error", err)
		}
	}

	runner := NewRunner(opts)

	app := &cli.Command{
		Name:     "harmony",
		Usage:    "Sync Spotify playlists into a Plex music library",
		Version:  "0.6.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		err_ := errors.Unwrap(err)
		if errors.Is(err_, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
