package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mehroj-r/ym-bridge/internal/localsocket"
	"github.com/mehroj-r/ym-bridge/internal/models"
	"github.com/mehroj-r/ym-bridge/internal/waybar"
)

func init() {
	rootCmd.AddCommand(waybarCmd)
}

var waybarCmd = &cobra.Command{
	Use:   "waybar",
	Short: "Emit waybar custom-module JSON for the running daemon's state",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		resp, err := localsocket.Send(context.Background(), cfg.App.ControlSocketPath, "status", nil)
		if err != nil {
			return err
		}

		var out waybar.Output
		if ok, _ := resp["ok"].(bool); !ok {
			out = waybar.Offline()
		} else {
			state, seeds := parseWaybarState(resp)
			out = waybar.Format(state, seeds, cfg.App.WaybarMaxLength, cfg.App.WaybarScroll, waybar.DefaultStateFilePath)
		}

		encoded, err := json.Marshal(out)
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	},
}

// parseWaybarState decodes the loosely-typed status response map back into
// a models.PlayerState and the active vibe seeds.
func parseWaybarState(resp map[string]any) (models.PlayerState, []string) {
	stateMap, _ := resp["state"].(map[string]any)
	status, _ := stateMap["status"].(string)
	positionUS, _ := stateMap["position_us"].(float64)
	volume, _ := stateMap["volume"].(float64)

	trackMap, _ := stateMap["track"].(map[string]any)
	id, _ := trackMap["id"].(string)
	title, _ := trackMap["title"].(string)
	artist, _ := trackMap["artist"].(string)
	album, _ := trackMap["album"].(string)
	liked, _ := trackMap["liked"].(bool)

	var seeds []string
	if vibeMap, ok := stateMap["vibe"].(map[string]any); ok {
		if rawSeeds, ok := vibeMap["seeds"].([]any); ok {
			for _, s := range rawSeeds {
				if str, ok := s.(string); ok {
					seeds = append(seeds, str)
				}
			}
		}
	}

	state := models.PlayerState{
		Status:     models.PlaybackStatus(status),
		PositionUS: int64(positionUS),
		Volume:     volume,
		Track: models.Track{
			ID:     id,
			Title:  title,
			Artist: artist,
			Album:  album,
			Liked:  liked,
		},
	}
	return state, seeds
}
