package main

import (
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Report whether mpv, config, and the OAuth token are usable",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		_, mpvErr := exec.LookPath("mpv")
		checks := map[string]any{
			"mpv_found":           mpvErr == nil,
			"oauth_token_present": cfg.Yandex.OAuthToken != "",
			"control_socket_path": cfg.App.ControlSocketPath,
			"autoplay_on_start":   cfg.App.AutoplayOnStart,
			"waybar_max_length":   cfg.App.WaybarMaxLength,
			"waybar_scroll":       cfg.App.WaybarScroll,
			"mpris_name":          cfg.App.MPRISName,
			"base_url":            cfg.Yandex.BaseURL,
		}

		out, err := json.MarshalIndent(checks, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}
