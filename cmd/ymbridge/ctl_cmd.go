package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mehroj-r/ym-bridge/internal/localsocket"
)

func init() {
	rootCmd.AddCommand(ctlCmd)
}

var ctlCmd = &cobra.Command{
	Use:   "ctl <action>",
	Short: "Send a one-shot action to the running daemon's control socket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		resp, err := localsocket.Send(context.Background(), cfg.App.ControlSocketPath, args[0], nil)
		if err != nil {
			return err
		}
		if ok, _ := resp["ok"].(bool); !ok {
			fatalf("ctl command failed: %v", resp["error"])
		}

		out, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}
