package main

import (
	"reflect"
	"testing"
)

func TestBuildVibeSeeds_MapsKnownActivity(t *testing.T) {
	vibeActivity, vibeDiversity, vibeMood, vibeLanguage, vibeExtraSeed = "workout", "", "", "", nil
	defer resetVibeFlags()

	got := buildVibeSeeds()
	want := []string{"activity:workout"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("buildVibeSeeds() = %v, want %v", got, want)
	}
}

func TestBuildVibeSeeds_UnknownActivityPassesThrough(t *testing.T) {
	vibeActivity, vibeDiversity, vibeMood, vibeLanguage, vibeExtraSeed = "marathon", "", "", "", nil
	defer resetVibeFlags()

	got := buildVibeSeeds()
	want := []string{"activity:marathon"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("buildVibeSeeds() = %v, want %v", got, want)
	}
}

func TestBuildVibeSeeds_CombinesAllFieldsAndExtras(t *testing.T) {
	vibeActivity = "road-trip"
	vibeDiversity = "discover"
	vibeMood = "calm"
	vibeLanguage = "any"
	vibeExtraSeed = []string{"genre:rock"}
	defer resetVibeFlags()

	got := buildVibeSeeds()
	want := []string{
		"activity:road-trip",
		"settingDiversity:discover",
		"settingMoodEnergy:calm",
		"settingLanguage:any",
		"genre:rock",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("buildVibeSeeds() = %v, want %v", got, want)
	}
}

func TestBuildVibeSeeds_EmptyWhenNoFlagsSet(t *testing.T) {
	resetVibeFlags()
	if got := buildVibeSeeds(); len(got) != 0 {
		t.Fatalf("expected no seeds, got %v", got)
	}
}

func resetVibeFlags() {
	vibeActivity, vibeDiversity, vibeMood, vibeLanguage, vibeExtraSeed = "", "", "", "", nil
}
