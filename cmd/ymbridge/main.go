package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// configPath backs the persistent --config flag shared by every subcommand.
var configPath string

var rootCmd = &cobra.Command{
	Use:   "ymbridge",
	Short: "Bridges Yandex Music's personal radio to MPRIS and waybar",
	Long: "ymbridge drives a local mpv player off Yandex Music's personal-radio " +
		"API and exposes it over MPRIS, a local control socket, and waybar.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: ~/.config/ym-bridge/config.toml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
