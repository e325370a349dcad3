// Package waybar renders ym-bridge's player state as the JSON object the
// waybar status bar's custom/exec module expects: {text, class, tooltip}.
// Long track titles are marquee-scrolled across successive invocations using
// a small cursor persisted to a state file, since each invocation is a fresh
// process with no in-memory state of its own.
package waybar

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mehroj-r/ym-bridge/internal/models"
)

// DefaultStateFilePath is where the marquee cursor is persisted between
// successive waybar invocations.
const DefaultStateFilePath = "/tmp/ym-bridge-waybar-state.json"

const marqueeSpacer = "   "
const minMarqueeWidth = 10

// timeNow is overridden in tests for deterministic state-file timestamps.
var timeNow = time.Now

// Output is the JSON object waybar's custom module expects.
type Output struct {
	Text    string   `json:"text"`
	Class   []string `json:"class"`
	Tooltip string   `json:"tooltip"`
}

// Offline is emitted when the daemon's control socket cannot be reached.
func Offline() Output {
	return Output{
		Text:    "YM offline",
		Class:   []string{"offline"},
		Tooltip: "ym-bridge daemon not running",
	}
}

// Format renders a player-state snapshot and the active rotor seeds into a
// waybar Output. stateFilePath drives the marquee cursor and is exposed (not
// hardcoded to DefaultStateFilePath) so tests can isolate it.
func Format(state models.PlayerState, seeds []string, maxLength int, scroll bool, stateFilePath string) Output {
	artist := strings.TrimSpace(state.Track.Artist)
	title := strings.TrimSpace(state.Track.Title)
	if title == "" {
		title = "No track"
	}
	likedIcon := ""
	if state.Track.Liked {
		likedIcon = " ♥"
	}

	var fullText string
	if artist != "" {
		fullText = fmt.Sprintf("%s %s - %s%s", statusIcon(state.Status), artist, title, likedIcon)
	} else {
		fullText = fmt.Sprintf("%s %s%s", statusIcon(state.Status), title, likedIcon)
	}

	likedWord := "Not liked"
	if state.Track.Liked {
		likedWord = "Liked"
	}
	var tooltip string
	if artist != "" {
		tooltip = artist + "\n" + title + "\n" + likedWord
	} else {
		tooltip = title + "\n" + likedWord
	}
	if vibeLine := strings.Join(seeds, ", "); vibeLine != "" {
		tooltip += "\nVibe: " + vibeLine
	}

	likedClass := "unliked"
	if state.Track.Liked {
		likedClass = "liked"
	}

	return Output{
		Text:    compactText(fullText, maxLength, scroll, stateFilePath),
		Class:   []string{strings.ToLower(string(state.Status)), likedClass},
		Tooltip: tooltip,
	}
}

func statusIcon(status models.PlaybackStatus) string {
	switch status {
	case models.StatusPlaying:
		return "▶"
	case models.StatusPaused:
		return "⏸"
	default:
		return "■"
	}
}

func compactText(text string, maxLength int, scroll bool, stateFilePath string) string {
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}
	if !scroll {
		return string(runes[:maxLength-1]) + "…"
	}

	marquee := []rune(text + marqueeSpacer)
	width := maxLength
	if width < minMarqueeWidth {
		width = minMarqueeWidth
	}

	start := nextCursor(text, len(marquee), stateFilePath)
	looped := append(append([]rune{}, marquee...), marquee...)
	end := start + width
	if end > len(looped) {
		end = len(looped)
	}
	return string(looped[start:end])
}

type cursorState struct {
	Key       string `json:"key"`
	Cursor    int    `json:"cursor"`
	UpdatedAt int64  `json:"updated_at"`
}

// nextCursor advances the marquee position by one slot when key matches the
// previously persisted key, or resets to 0 for a new key. Best-effort:
// persistence failures are silently ignored, matching the source's
// behavior of never letting status-bar rendering fail on a write error.
func nextCursor(key string, span int, stateFilePath string) int {
	var previous cursorState
	if data, err := os.ReadFile(stateFilePath); err == nil {
		_ = json.Unmarshal(data, &previous)
	}

	cursor := 0
	if previous.Key == key {
		if span < 1 {
			span = 1
		}
		cursor = (previous.Cursor + 1) % span
	}

	next := cursorState{Key: key, Cursor: cursor, UpdatedAt: timeNow().Unix()}
	if data, err := json.Marshal(next); err == nil {
		_ = os.WriteFile(stateFilePath, data, 0o644)
	}
	return cursor
}
