package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mehroj-r/ym-bridge/internal/config"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.PollIntervalSeconds != 2.0 {
		t.Errorf("PollIntervalSeconds = %v, want 2.0", cfg.App.PollIntervalSeconds)
	}
	if cfg.App.MPRISName != "ymbridge" {
		t.Errorf("MPRISName = %q, want ymbridge", cfg.App.MPRISName)
	}
	if cfg.Yandex.BaseURL != "https://api.music.yandex.net" {
		t.Errorf("BaseURL = %q", cfg.Yandex.BaseURL)
	}
	if len(cfg.Yandex.RotorSeeds) != 2 {
		t.Errorf("RotorSeeds = %v, want 2 defaults", cfg.Yandex.RotorSeeds)
	}
	if cfg.Yandex.Endpoints.RotorSessionNew != "/rotor/session/new" {
		t.Errorf("Endpoints.RotorSessionNew = %q", cfg.Yandex.Endpoints.RotorSessionNew)
	}
	if cfg.Yandex.DeviceID == "" {
		t.Error("expected a defaulted DeviceID")
	}
	if cfg.Yandex.DeviceHeader == "" {
		t.Error("expected a defaulted DeviceHeader")
	}
}

func TestLoad_ReadsFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
[app]
poll_interval_seconds = 5.5
mpris_name = "custom"
autoplay_on_start = true

[yandex]
base_url = "https://example.test"
rotor_seeds = ["seed-a", "seed-b", "seed-c"]

[yandex.endpoints]
plays = "/custom/plays"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.PollIntervalSeconds != 5.5 {
		t.Errorf("PollIntervalSeconds = %v, want 5.5", cfg.App.PollIntervalSeconds)
	}
	if cfg.App.MPRISName != "custom" {
		t.Errorf("MPRISName = %q, want custom", cfg.App.MPRISName)
	}
	if !cfg.App.AutoplayOnStart {
		t.Error("expected AutoplayOnStart = true")
	}
	if cfg.Yandex.BaseURL != "https://example.test" {
		t.Errorf("BaseURL = %q", cfg.Yandex.BaseURL)
	}
	if len(cfg.Yandex.RotorSeeds) != 3 {
		t.Errorf("RotorSeeds = %v, want 3 entries", cfg.Yandex.RotorSeeds)
	}
	if cfg.Yandex.Endpoints.Plays != "/custom/plays" {
		t.Errorf("Endpoints.Plays = %q, want /custom/plays", cfg.Yandex.Endpoints.Plays)
	}
	// Endpoints not overridden in the file still fall back to defaults.
	if cfg.Yandex.Endpoints.AccountAbout != "/account/about" {
		t.Errorf("Endpoints.AccountAbout = %q, want default", cfg.Yandex.Endpoints.AccountAbout)
	}
}

func TestLoad_EnvOverridesOAuthTokenAndDeviceID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
[yandex]
oauth_token = "file-token"
device_id = "file-device-id"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("YM_OAUTH_TOKEN", "env-token")
	t.Setenv("YM_DEVICE_ID", "env-device-id")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Yandex.OAuthToken != "env-token" {
		t.Errorf("OAuthToken = %q, want env override", cfg.Yandex.OAuthToken)
	}
	if cfg.Yandex.DeviceID != "env-device-id" {
		t.Errorf("DeviceID = %q, want env override", cfg.Yandex.DeviceID)
	}
}

func TestLoad_DeviceHeaderDerivedFromDeviceID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
[yandex]
device_id = "aa-bb-cc"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := "os=Linux; os_version=unknown; manufacturer=Custom; model=ym-bridge; " +
		"clid=desktop; uuid=aabbcc; display_size=0; dpi=96; " +
		"mcc=000; mnc=00; device_id=aabbcc"
	if cfg.Yandex.DeviceHeader != want {
		t.Errorf("DeviceHeader = %q, want %q", cfg.Yandex.DeviceHeader, want)
	}
}

func TestDefaultPath_IncludesConfigDir(t *testing.T) {
	got := config.DefaultPath()
	if got == "" {
		t.Fatal("expected a non-empty default path")
	}
}
