package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/harmonysync/harmony/internal/models"
	"github.com/harmonysync/harmony/internal/services"
	"github.com/harmonysync/harmony/internal/tasks"
)

// screen identifies which view the model is currently showing.
type screen int

const (
	screenPlaylists screen = iota
	screenTracks
	screenConfirm
	screenSync
	screenDone
)

// Model holds the TUI state and implements [tea.Model].
type Model struct {
	ctx      context.Context
	screen   screen
	source   services.Service
	destName string
	engine   *tasks.PlaylistEngine

	width  int
	height int

	playlistList list.Model
	trackList    list.Model
	selected     *models.PlaylistExport

	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	result       *tasks.TransferRunResult
	err          error

	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
// destName is displayed in confirmation and progress views.
func NewModel(ctx context.Context, source services.Service, destName string, engine *tasks.PlaylistEngine) *Model {
	return &Model{
		ctx:      ctx,
		screen:   screenPlaylists,
		source:   source,
		destName: destName,
		engine:   engine,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init kicks off the initial playlist fetch.
func (m *Model) Init() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.source.GetPlaylists(m.ctx)
		return playlistsFetchedMsg{playlists: playlists, err: err}
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if m.playlistList.Width() == 0 {
			m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.trackList.Width() == 0 {
			m.trackList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case playlistsFetchedMsg:
		return m.onPlaylistsFetched(msg)

	case tracksFetchedMsg:
		return m.onTracksFetched(msg)

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.nextProgress()

	case transferCompleteMsg:
		m.result, m.err = msg.result, msg.err
		m.screen = screenDone
		m.progressChan = nil
		return m, nil
	}

	return m.forwardToList(msg)
}

// View renders the UI for the current screen.
func (m *Model) View() string {
	if m.err != nil && m.screen != screenDone {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.screen {
	case screenPlaylists:
		return m.viewPlaylists()
	case screenTracks:
		return m.viewTracks()
	case screenConfirm:
		return m.viewConfirm()
	case screenSync:
		return m.viewSync()
	case screenDone:
		return m.viewDone()
	default:
		return ""
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.screen {
	case screenPlaylists:
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.enter):
			if item, ok := m.playlistList.SelectedItem().(playlistItem); ok {
				return m, m.fetchTracks(item.playlist.ID)
			}
		}

	case screenTracks:
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.back):
			m.screen = screenPlaylists
			return m, nil
		case key.Matches(msg, m.keys.enter):
			m.screen = screenConfirm
			return m, nil
		}

	case screenConfirm:
		switch {
		case key.Matches(msg, m.keys.quit), key.Matches(msg, m.keys.no):
			m.screen = screenTracks
		case key.Matches(msg, m.keys.yes):
			m.screen = screenSync
			return m, m.startSync()
		}
		return m, nil

	case screenDone:
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.restart):
			m.screen = screenPlaylists
			m.selected = nil
			m.result = nil
			m.err = nil
		}
		return m, nil
	}

	return m.forwardToList(msg)
}

// forwardToList hands unhandled messages to whichever list is visible so
// filtering and scrolling keep working.
func (m *Model) forwardToList(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.screen {
	case screenPlaylists:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case screenTracks:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

func (m *Model) onPlaylistsFetched(msg playlistsFetchedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.err = msg.err
		return m, tea.Quit
	}

	items := make([]list.Item, len(msg.playlists))
	for i, pl := range msg.playlists {
		items[i] = playlistItem{playlist: pl}
	}
	m.playlistList = list.New(items, list.NewDefaultDelegate(), m.width-4, m.height-8)
	m.playlistList.Title = fmt.Sprintf("%s Playlists", m.source.Name())
	return m, nil
}

func (m *Model) onTracksFetched(msg tracksFetchedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.err = msg.err
		m.screen = screenPlaylists
		return m, nil
	}

	m.selected = msg.playlist
	items := make([]list.Item, len(msg.playlist.Tracks))
	for i, track := range msg.playlist.Tracks {
		items[i] = trackItem{track: track}
	}
	m.trackList = list.New(items, list.NewDefaultDelegate(), m.width-4, m.height-8)
	m.trackList.Title = fmt.Sprintf("Tracks in '%s'", msg.playlist.Playlist.Name)
	m.screen = screenTracks
	return m, nil
}

func (m *Model) fetchTracks(playlistID string) tea.Cmd {
	return func() tea.Msg {
		playlist, err := m.source.ExportPlaylist(m.ctx, playlistID)
		return tracksFetchedMsg{playlist: playlist, err: err}
	}
}

// startSync runs the engine in its own goroutine and begins draining
// progress updates into the event loop.
func (m *Model) startSync() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)

	go func() {
		result, err := m.engine.Run(m.ctx, m.selected.Playlist.ID, m.progressChan)
		m.result = result
		m.err = err
		close(m.progressChan)
	}()

	return m.nextProgress()
}

func (m *Model) nextProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return transferCompleteMsg{result: m.result, err: m.err}
		}
		update, ok := <-m.progressChan
		if !ok {
			return transferCompleteMsg{result: m.result, err: m.err}
		}
		return progressUpdateMsg(update)
	}
}

// withHelp appends a contextual help line below the body.
func (m *Model) withHelp(body string, keys ...key.Binding) string {
	return fmt.Sprintf("%s\n\n%s", body, m.help.ShortHelpView(keys))
}

func (m *Model) viewPlaylists() string {
	return m.withHelp(m.playlistList.View(), m.keys.enter, m.keys.quit)
}

func (m *Model) viewTracks() string {
	syncKey := bind("enter", "sync", "enter")
	return m.withHelp(m.trackList.View(), syncKey, m.keys.back, m.keys.quit)
}

func (m *Model) viewConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Sync '%s' to %s?", m.selected.Playlist.Name, m.destName))
	info := fmt.Sprintf("Playlist: %s\nTracks: %d", m.selected.Playlist.Name, len(m.selected.Tracks))
	return m.withHelp(fmt.Sprintf("%s\n%s", title, info), m.keys.yes, m.keys.no, m.keys.quit)
}

func (m *Model) viewSync() string {
	title := styles.title.Render("Syncing Playlist")

	var phase string
	switch m.progress.Phase {
	case tasks.FetchSource:
		phase = "Fetching source playlist..."
	case tasks.SearchTracks:
		phase = fmt.Sprintf("Matching tracks (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.QueueDownloads:
		phase = fmt.Sprintf("Queueing downloads (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.CreatePlaylist:
		phase = fmt.Sprintf("Creating playlist on %s...", m.destName)
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) viewDone() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Sync failed: %v\n\nPress r to retry, q to quit", m.err))
	}
	if m.result == nil {
		return styles.err.Render("No result available\n\nPress r to retry, q to quit")
	}

	title := styles.ok.Render("✓ Sync Complete!")
	info := fmt.Sprintf(
		"\nSource: %s (%d tracks)\nDestination: %s\nMatched: %d/%d (%.1f%%)",
		m.result.SourcePlaylist.Playlist.Name,
		m.result.TotalTracks,
		m.result.DestPlaylist.Name,
		m.result.SuccessCount,
		m.result.TotalTracks,
		m.result.MatchPercentage,
	)

	var missing string
	if m.result.FailedCount > 0 {
		header := fmt.Sprintf("Missing from library (%d tracks, %d queued for download):",
			m.result.FailedCount, m.result.QueuedDownloads)
		missing = "\n\n" + styles.warn.Render(header)
		for _, match := range m.result.TrackMatches {
			if match.Error != nil {
				missing += fmt.Sprintf("\n  • %s - %s", match.Original.Artist, match.Original.Title)
			}
		}
	}

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, missing,
		m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit}))
}
