// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// History operations
	OpHistoryRecord Op = "record play"
	OpHistorySkip   Op = "record skip"
	OpHistoryLoad   Op = "load history"
	OpHistoryTrim   Op = "trim history"

	// Artists view
	OpArtistsLoad Op = "load artists"
	OpPhotoFetch  Op = "fetch artist photos"

	// Suggestions
	OpSuggest Op = "build suggestions"

	// Import operations
	OpImportPlaylist Op = "import playlist"

	// Playlist operations
	OpPlaylistList   Op = "list playlists"
	OpPlaylistShow   Op = "show playlist"
	OpPlaylistRename Op = "rename playlist"
	OpPlaylistDelete Op = "delete playlist"

	// Library operations
	OpLibraryScan Op = "scan library"

	// Download operations
	OpDownloadQueue Op = "queue download"
	OpDownloadList  Op = "list downloads"
	OpDownloadRun   Op = "run downloads"
	OpDownloadClear Op = "clear completed downloads"

	// Tagging
	OpEmbedTags Op = "embed tags"

	// Last.fm
	OpScrobbleFlush Op = "flush scrobbles"

	// Stats
	OpStatsLoad Op = "load statistics"

	// Daemon and lifecycle
	OpMaintain   Op = "run maintenance"
	OpDaemonRun  Op = "run daemon"
	OpInitialize Op = "initialize application"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}

// Wrap returns err prefixed with the operation, ready for display.
// The cause stays reachable through errors.Is and errors.As.
func Wrap(op Op, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("Failed to %s: %w", op, err)
}
