package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mehroj-r/ym-bridge/internal/localsocket"
)

// activityMap mirrors the original's ACTIVITY_MAP, translating a friendly
// activity name into its rotor seed string. An activity outside this map is
// still accepted verbatim as "activity:<value>".
var activityMap = map[string]string{
	"wake-up":         "activity:wake-up",
	"road-trip":       "activity:road-trip",
	"work-background": "activity:work-background",
	"workout":         "activity:workout",
	"fall-asleep":     "activity:fall-asleep",
}

var (
	vibeActivity  string
	vibeDiversity string
	vibeMood      string
	vibeLanguage  string
	vibeExtraSeed []string
)

func init() {
	vibeCmd.Flags().StringVar(&vibeActivity, "activity", "", "activity seed (wake-up, road-trip, work-background, workout, fall-asleep, or a custom value)")
	vibeCmd.Flags().StringVar(&vibeDiversity, "diversity", "", "settingDiversity seed (favorite, discover, popular, default)")
	vibeCmd.Flags().StringVar(&vibeMood, "mood", "", "settingMoodEnergy seed (active, fun, calm, sad, all)")
	vibeCmd.Flags().StringVar(&vibeLanguage, "language", "", "settingLanguage seed (russian, not-russian, any, without-words)")
	vibeCmd.Flags().StringArrayVar(&vibeExtraSeed, "seed", nil, "extra raw seed string, repeatable")
	rootCmd.AddCommand(vibeCmd)
}

var vibeCmd = &cobra.Command{
	Use:   "vibe",
	Short: "Print or replace the active rotor seeds (the \"vibe\")",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		seeds := buildVibeSeeds()
		ctx := context.Background()

		if len(seeds) == 0 {
			resp, err := localsocket.Send(ctx, cfg.App.ControlSocketPath, "get_vibe", nil)
			if err != nil {
				return err
			}
			return printJSON(resp)
		}

		resp, err := localsocket.Send(ctx, cfg.App.ControlSocketPath, "set_vibe", seeds)
		if err != nil {
			return err
		}
		if ok, _ := resp["ok"].(bool); !ok {
			fatalf("vibe command failed: %v", resp["error"])
		}
		return printJSON(resp)
	},
}

func buildVibeSeeds() []string {
	var seeds []string
	if vibeActivity != "" {
		if mapped, ok := activityMap[vibeActivity]; ok {
			seeds = append(seeds, mapped)
		} else {
			seeds = append(seeds, "activity:"+vibeActivity)
		}
	}
	if vibeDiversity != "" {
		seeds = append(seeds, "settingDiversity:"+vibeDiversity)
	}
	if vibeMood != "" {
		seeds = append(seeds, "settingMoodEnergy:"+vibeMood)
	}
	if vibeLanguage != "" {
		seeds = append(seeds, "settingLanguage:"+vibeLanguage)
	}
	seeds = append(seeds, vibeExtraSeed...)
	return seeds
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
