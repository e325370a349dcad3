package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(likeCmd)
	rootCmd.AddCommand(dislikeCmd)
}

var likeCmd = &cobra.Command{
	Use:   "like",
	Short: "Like the currently playing track",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTrackAction("like")
	},
}

var dislikeCmd = &cobra.Command{
	Use:   "dislike",
	Short: "Dislike the currently playing track",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTrackAction("dislike")
	},
}

func runTrackAction(action string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	orch, err := buildOrchestrator(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = orch.Close() }()

	ctx := context.Background()
	state, err := orch.FetchState(ctx)
	if err != nil {
		fatalf("%s command failed: %v", action, err)
	}

	var payload map[string]any
	if action == "like" {
		if err := orch.LikeCurrent(ctx); err != nil {
			fatalf("%s command failed: %v", action, err)
		}
		payload = map[string]any{"liked_track": state.Track.Title, "track_id": state.Track.ID}
	} else {
		if err := orch.DislikeCurrent(ctx); err != nil {
			fatalf("%s command failed: %v", action, err)
		}
		payload = map[string]any{"disliked_track": state.Track.Title, "track_id": state.Track.ID}
	}

	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
