// Package config loads ym-bridge's TOML configuration file with Viper,
// mirroring the defaulting and environment-override rules of the original
// Python config loader (config.py's load_config), plus device-identity
// defaulting via internal/identity.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/mehroj-r/ym-bridge/internal/identity"
)

// Endpoints holds the cloud API path templates. Any key absent from the
// config file takes the default Load sets for it; every endpoint the
// orchestrator uses (account_about, rotor_session_new, rotor_session_tracks,
// likes_tracks_add, likes_tracks_remove, plays) has one, so a bare config
// file still works end to end. A key present but set to "" stays empty.
type Endpoints struct {
	AccountAbout        string `mapstructure:"account_about"`
	RotorSessionNew     string `mapstructure:"rotor_session_new"`
	RotorSessionTracks  string `mapstructure:"rotor_session_tracks"`
	LikesTracksAdd      string `mapstructure:"likes_tracks_add"`
	LikesTracksRemove   string `mapstructure:"likes_tracks_remove"`
	Plays               string `mapstructure:"plays"`
}

// Yandex holds cloud-transport configuration.
type Yandex struct {
	BaseURL        string    `mapstructure:"base_url"`
	OAuthToken     string    `mapstructure:"oauth_token"`
	DeviceID       string    `mapstructure:"device_id"`
	DeviceHeader   string    `mapstructure:"device_header"`
	RotorSeeds     []string  `mapstructure:"rotor_seeds"`
	AcceptLanguage string    `mapstructure:"accept_language"`
	MusicClient    string    `mapstructure:"music_client"`
	ContentType    string    `mapstructure:"content_type"`
	Endpoints      Endpoints `mapstructure:"endpoints"`
}

// App holds daemon and adapter configuration.
type App struct {
	PollIntervalSeconds float64 `mapstructure:"poll_interval_seconds"`
	MPRISName           string  `mapstructure:"mpris_name"`
	ControlSocketPath   string  `mapstructure:"control_socket_path"`
	AutoplayOnStart     bool    `mapstructure:"autoplay_on_start"`
	UserAgent           string  `mapstructure:"user_agent"`
	WaybarMaxLength     int     `mapstructure:"waybar_max_length"`
	WaybarScroll        bool    `mapstructure:"waybar_scroll"`
}

// Recon holds the (unimplemented, per SPEC_FULL §9) reconnaissance utility's
// output directory setting — kept so a config file written against the
// original tool's schema still parses cleanly.
type Recon struct {
	OutputDir string `mapstructure:"output_dir"`
}

// Config is the fully resolved, post-defaulting, post-env-override
// configuration.
type Config struct {
	App    App    `mapstructure:"app"`
	Yandex Yandex `mapstructure:"yandex"`
	Recon  Recon  `mapstructure:"recon"`
}

// DefaultPath is ~/.config/ym-bridge/config.toml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "ym-bridge", "config.toml")
}

// Load reads path (or DefaultPath if path is empty) via Viper, applying
// defaults, environment overrides, and device-identity defaulting. A
// missing config file is not an error — an all-defaults Config is returned,
// matching load_config's behavior when DEFAULT_CONFIG_PATH doesn't exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("app.poll_interval_seconds", 2.0)
	v.SetDefault("app.mpris_name", "ymbridge")
	v.SetDefault("app.control_socket_path", "/tmp/ym-bridge.sock")
	v.SetDefault("app.autoplay_on_start", false)
	v.SetDefault("app.user_agent", "ym-bridge/0.1")
	v.SetDefault("app.waybar_max_length", 40)
	v.SetDefault("app.waybar_scroll", true)

	v.SetDefault("yandex.base_url", "https://api.music.yandex.net")
	v.SetDefault("yandex.rotor_seeds", []string{"user:onyourwave", "settingDiversity:discover"})
	v.SetDefault("yandex.accept_language", "en")
	v.SetDefault("yandex.music_client", "YandexMusicAndroid/24026072")
	v.SetDefault("yandex.content_type", "adult")
	v.SetDefault("yandex.endpoints.account_about", "/account/about")
	v.SetDefault("yandex.endpoints.rotor_session_new", "/rotor/session/new")
	v.SetDefault("yandex.endpoints.rotor_session_tracks", "/rotor/session/{session_id}/tracks")
	v.SetDefault("yandex.endpoints.likes_tracks_add", "/users/{user_id}/likes/tracks/actions/add")
	v.SetDefault("yandex.endpoints.likes_tracks_remove", "/users/{user_id}/likes/tracks/actions/remove")
	v.SetDefault("yandex.endpoints.plays", "/plays")

	v.SetDefault("recon.output_dir", "./artifacts/recon")

	resolved := path
	if resolved == "" {
		resolved = DefaultPath()
	}
	v.SetConfigFile(resolved)
	v.SetConfigType("toml")

	if _, err := os.Stat(resolved); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", resolved, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: stat %s: %w", resolved, err)
	}

	if err := v.BindEnv("yandex.oauth_token", "YM_OAUTH_TOKEN"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("yandex.device_id", "YM_DEVICE_ID"); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding into struct: %w", err)
	}

	cfg.Yandex.DeviceID = strings.TrimSpace(cfg.Yandex.DeviceID)
	if cfg.Yandex.DeviceID == "" {
		cfg.Yandex.DeviceID = identity.DeviceID()
	}
	cfg.Yandex.DeviceHeader = strings.TrimSpace(cfg.Yandex.DeviceHeader)
	if cfg.Yandex.DeviceHeader == "" {
		cfg.Yandex.DeviceHeader = identity.DeviceHeader(cfg.Yandex.DeviceID)
	}

	return &cfg, nil
}
