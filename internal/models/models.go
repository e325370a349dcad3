// Package models defines the data structures shared across ym-bridge.
// Types here carry small helpers for their own fields (index wrap-around,
// appending feedback items, the liked flag, seed trimming); when to apply
// them is decided in internal/orchestrator.
package models

import (
	"errors"
	"strings"
)

// ErrInvalidSeeds is returned by NewSeedSet when every candidate seed is
// blank after trimming.
var ErrInvalidSeeds = errors.New("models: seed set must contain at least one non-empty seed")

// PlaybackStatus is the coarse playback state exposed on the MPRIS surface.
type PlaybackStatus string

const (
	StatusPlaying PlaybackStatus = "Playing"
	StatusPaused  PlaybackStatus = "Paused"
	StatusStopped PlaybackStatus = "Stopped"
)

// Track is the immutable-per-slot view of a radio track. Liked is the one
// field that mutates in place after a successful like/unlike.
type Track struct {
	ID       string
	Title    string
	Artist   string // primary artists joined by ", "
	Album    string
	Duration int64 // milliseconds
	ArtURL   string
	Liked    bool
}

// SequenceItem is the opaque per-step envelope the rotor endpoint returns.
// The nested track payload is kept as a raw map because the cloud service's
// JSON shape is permissive and under-documented: indexing into it and
// tolerating missing fields beats a brittle struct tag mapping.
type SequenceItem struct {
	Raw   map[string]any
	Liked bool
}

// Track extracts the nested track payload, or the zero Track if the item is
// malformed (missing or non-object "track" field).
func (s SequenceItem) Track() Track {
	trackData, _ := s.Raw["track"].(map[string]any)
	if trackData == nil {
		return Track{}
	}
	return trackFromRaw(trackData, s.Liked)
}

// QueueRef returns the "{trackId}:{albumId}" composite required by the like
// and feedback endpoints, or "" if either half is missing.
func (s SequenceItem) QueueRef() string {
	trackData, _ := s.Raw["track"].(map[string]any)
	if trackData == nil {
		return ""
	}
	return queueRefFromRaw(trackData)
}

// AlbumID returns the id of the track's first listed album, or "" if
// absent — the value the /plays report's albumId field carries.
func (s SequenceItem) AlbumID() string {
	trackData, _ := s.Raw["track"].(map[string]any)
	if trackData == nil {
		return ""
	}
	albums, ok := trackData["albums"].([]any)
	if !ok || len(albums) == 0 {
		return ""
	}
	first, ok := albums[0].(map[string]any)
	if !ok {
		return ""
	}
	return stringField(first, "id")
}

func trackFromRaw(trackData map[string]any, liked bool) Track {
	id := stringField(trackData, "id")
	title := stringField(trackData, "title")

	var artistNames []string
	if artists, ok := trackData["artists"].([]any); ok {
		for _, a := range artists {
			am, ok := a.(map[string]any)
			if !ok {
				continue
			}
			if name := stringField(am, "name"); name != "" {
				artistNames = append(artistNames, name)
			}
		}
	}

	albumTitle := ""
	if albums, ok := trackData["albums"].([]any); ok && len(albums) > 0 {
		if first, ok := albums[0].(map[string]any); ok {
			albumTitle = stringField(first, "title")
		}
	}

	artURL := stringField(trackData, "coverUri")
	if artURL != "" {
		artURL = "https://" + strings.ReplaceAll(artURL, "%%", "400x400")
	}

	var durationMs int64
	if v, ok := trackData["durationMs"]; ok {
		durationMs = int64(toFloat(v))
	}

	return Track{
		ID:       id,
		Title:    title,
		Artist:   strings.Join(artistNames, ", "),
		Album:    albumTitle,
		Duration: durationMs,
		ArtURL:   artURL,
		Liked:    liked,
	}
}

func queueRefFromRaw(trackData map[string]any) string {
	id := stringField(trackData, "id")
	albums, ok := trackData["albums"].([]any)
	if id == "" || !ok || len(albums) == 0 {
		return ""
	}
	first, ok := albums[0].(map[string]any)
	if !ok {
		return ""
	}
	albumID := stringField(first, "id")
	if albumID == "" {
		return ""
	}
	return id + ":" + albumID
}

func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		return ""
	}
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	default:
		return 0
	}
}

// RadioSession is the server-side personalization context and rolling queue.
type RadioSession struct {
	SessionID    string
	BatchID      string
	FeedbackFrom string
	Sequence     []SequenceItem
	Index        int
}

// Empty reports whether no session has been opened yet.
func (r *RadioSession) Empty() bool {
	return len(r.Sequence) == 0
}

// Current returns the sequence item at the current index, or false if the
// sequence is empty.
func (r *RadioSession) Current() (SequenceItem, bool) {
	if len(r.Sequence) == 0 {
		return SequenceItem{}, false
	}
	return r.Sequence[r.Index], true
}

// Peek returns the sequence item delta slots ahead of the current index
// (wrapping), or false if the sequence is empty.
func (r *RadioSession) Peek(delta int) (SequenceItem, bool) {
	if len(r.Sequence) == 0 {
		return SequenceItem{}, false
	}
	n := len(r.Sequence)
	idx := ((r.Index+delta)%n + n) % n
	return r.Sequence[idx], true
}

// QueueRefs returns up to limit queue references starting startOffset slots
// past the current index, in sequence order.
func (r *RadioSession) QueueRefs(limit, startOffset int) []string {
	if len(r.Sequence) == 0 {
		return nil
	}
	n := len(r.Sequence)
	if limit > n {
		limit = n
	}
	refs := make([]string, 0, limit)
	for offset := 0; offset < limit; offset++ {
		idx := ((r.Index+startOffset+offset)%n + n) % n
		if ref := r.Sequence[idx].QueueRef(); ref != "" {
			refs = append(refs, ref)
		}
	}
	return refs
}

// SetCurrentLiked mutates the liked flag of the current sequence item.
func (r *RadioSession) SetCurrentLiked(liked bool) {
	if len(r.Sequence) == 0 {
		return
	}
	r.Sequence[r.Index].Liked = liked
}

// Advance moves the index by delta slots, wrapping modulo the sequence
// length. No-op on an empty sequence.
func (r *RadioSession) Advance(delta int) {
	if len(r.Sequence) == 0 {
		return
	}
	n := len(r.Sequence)
	r.Index = ((r.Index+delta)%n + n) % n
}

// AppendFromFeedback appends the map-typed items of a feedback response's
// "sequence" field, in order, and updates BatchID if the response carries a
// non-empty string "batchId". Called for every feedback response so the
// queue keeps extending.
func (r *RadioSession) AppendFromFeedback(result map[string]any) {
	if result == nil {
		return
	}
	if batchID, ok := result["batchId"].(string); ok && batchID != "" {
		r.BatchID = batchID
	}
	seq, ok := result["sequence"].([]any)
	if !ok {
		return
	}
	for _, raw := range seq {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		r.Sequence = append(r.Sequence, SequenceItem{Raw: item})
	}
}

// PlayReportContext holds identifiers bound to the currently-playing slot.
type PlayReportContext struct {
	PlayID               string
	PlayStartTimestamp   string
	ReportedFinishPlayID string
}

// Clear resets all three fields, used when a slot stops owning a play.
func (p *PlayReportContext) Clear() {
	p.PlayID = ""
	p.PlayStartTimestamp = ""
	p.ReportedFinishPlayID = ""
}

// NeedsFinishReport reports whether the current PlayID has not yet had a
// finish play-report sent for it.
func (p *PlayReportContext) NeedsFinishReport() bool {
	return p.PlayID != "" && p.PlayID != p.ReportedFinishPlayID
}

// PlayerState is the derived, not-stored view handed to adapters.
type PlayerState struct {
	Status         PlaybackStatus
	PositionUS     int64
	Volume         float64
	CanControl     bool
	CanSeek        bool
	CanGoNext      bool
	CanGoPrevious  bool
	CanPlay        bool
	CanPause       bool
	Track          Track
}

// SeedSet is a non-empty, trimmed, ordered list of rotor seed strings.
type SeedSet []string

// NewSeedSet trims and filters the given seeds, rejecting an empty result.
func NewSeedSet(seeds []string) (SeedSet, error) {
	out := make(SeedSet, 0, len(seeds))
	for _, s := range seeds {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil, ErrInvalidSeeds
	}
	return out, nil
}
