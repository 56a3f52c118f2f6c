package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/harmonysync/harmony/internal/models"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = trackItem{}
)

// playlistItem adapts [models.Playlist] for the bubbles list component.
type playlistItem struct {
	playlist models.Playlist
}

func (i playlistItem) Title() string       { return i.playlist.Name }
func (i playlistItem) FilterValue() string { return i.playlist.Name }

func (i playlistItem) Description() string {
	if i.playlist.Description == "" {
		return fmt.Sprintf("%d tracks", i.playlist.TrackCount)
	}
	return fmt.Sprintf("%d tracks • %s", i.playlist.TrackCount, i.playlist.Description)
}

// trackItem adapts [models.Track] for the bubbles list component.
type trackItem struct {
	track models.Track
}

func (i trackItem) Title() string       { return i.track.Title }
func (i trackItem) FilterValue() string { return i.track.Title }

func (i trackItem) Description() string {
	if i.track.Album == "" {
		return i.track.Artist
	}
	return fmt.Sprintf("%s • %s", i.track.Artist, i.track.Album)
}
