package main

import (
	"reflect"
	"testing"

	"github.com/mehroj-r/ym-bridge/internal/models"
)

func TestParseWaybarState_FullPayload(t *testing.T) {
	resp := map[string]any{
		"ok": true,
		"state": map[string]any{
			"status":      "Playing",
			"position_us": float64(45_000_000),
			"volume":      float64(0.7),
			"track": map[string]any{
				"id":     "t1",
				"title":  "Song",
				"artist": "Band",
				"album":  "LP",
				"liked":  true,
			},
			"vibe": map[string]any{
				"seeds": []any{"mood:calm", "activity:work"},
			},
		},
	}

	state, seeds := parseWaybarState(resp)

	want := models.PlayerState{
		Status:     models.StatusPlaying,
		PositionUS: 45_000_000,
		Volume:     0.7,
		Track: models.Track{
			ID:     "t1",
			Title:  "Song",
			Artist: "Band",
			Album:  "LP",
			Liked:  true,
		},
	}
	if state != want {
		t.Fatalf("parseWaybarState state = %+v, want %+v", state, want)
	}
	if wantSeeds := []string{"mood:calm", "activity:work"}; !reflect.DeepEqual(seeds, wantSeeds) {
		t.Fatalf("parseWaybarState seeds = %v, want %v", seeds, wantSeeds)
	}
}

func TestParseWaybarState_MissingFieldsDoNotPanic(t *testing.T) {
	state, seeds := parseWaybarState(map[string]any{"ok": true})
	if state.Track.Title != "" || state.Status != "" {
		t.Fatalf("expected zero-value state, got %+v", state)
	}
	if seeds != nil {
		t.Fatalf("expected nil seeds, got %v", seeds)
	}
}
