// Command ymbridge is the ym-bridge daemon and its one-shot companion
// commands: a Cobra CLI wiring the cloud transport, the mpv-backed media
// engine, and the radio session orchestrator into the daemon (run) or a
// single verb (account, like, dislike, doctor, ctl, waybar, vibe).
package main

import (
	"fmt"
	"os"

	"github.com/mehroj-r/ym-bridge/internal/config"
	"github.com/mehroj-r/ym-bridge/internal/media"
	"github.com/mehroj-r/ym-bridge/internal/models"
	"github.com/mehroj-r/ym-bridge/internal/orchestrator"
	"github.com/mehroj-r/ym-bridge/internal/stream"
	"github.com/mehroj-r/ym-bridge/internal/transport"
)

// loadConfig resolves the --config flag (falling back to config.DefaultPath)
// and loads it through internal/config.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// buildOrchestrator wires the cloud transport, stream resolver, and mpv
// media engine into an Orchestrator, the same assembly the daemon's run
// subcommand uses. The like and dislike one-shot commands reuse it rather
// than talking to the cloud service directly, so session-opening
// logic never has to be duplicated; the cost is that a one-shot like or
// dislike may briefly start mpv to begin playing the current track, same
// as the daemon would.
func buildOrchestrator(cfg *config.Config) (*orchestrator.Orchestrator, error) {
	seeds, err := models.NewSeedSet(cfg.Yandex.RotorSeeds)
	if err != nil {
		return nil, fmt.Errorf("rotor seeds: %w", err)
	}

	client := transport.New(transport.Config{
		BaseURL:        cfg.Yandex.BaseURL,
		OAuthToken:     cfg.Yandex.OAuthToken,
		DeviceID:       cfg.Yandex.DeviceID,
		DeviceHeader:   cfg.Yandex.DeviceHeader,
		UserAgent:      cfg.App.UserAgent,
		AcceptLanguage: cfg.Yandex.AcceptLanguage,
		MusicClient:    cfg.Yandex.MusicClient,
		ContentType:    cfg.Yandex.ContentType,
	})
	resolver := stream.NewResolver(client)
	engine := media.NewEngine("")

	orchCfg := orchestrator.Config{
		OAuthTokenConfigured:       cfg.Yandex.OAuthToken != "",
		AutoplayOnStart:            cfg.App.AutoplayOnStart,
		RotorSeeds:                 cfg.Yandex.RotorSeeds,
		EndpointRotorSessionNew:    cfg.Yandex.Endpoints.RotorSessionNew,
		EndpointRotorSessionTracks: cfg.Yandex.Endpoints.RotorSessionTracks,
		EndpointLikesAdd:           cfg.Yandex.Endpoints.LikesTracksAdd,
		EndpointLikesRemove:        cfg.Yandex.Endpoints.LikesTracksRemove,
		EndpointAccountAbout:       cfg.Yandex.Endpoints.AccountAbout,
		EndpointPlays:              cfg.Yandex.Endpoints.Plays,
	}

	return orchestrator.New(orchCfg, client, resolver, engine, transport.Result, seeds), nil
}

// fatalf prints to stderr and exits 1, matching the original's SystemExit
// behavior for one-shot command failures.
func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
