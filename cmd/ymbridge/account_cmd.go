package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/mehroj-r/ym-bridge/internal/transport"
)

func init() {
	rootCmd.AddCommand(accountCmd)
}

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Fetch and print a sanitized account/about summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
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

		payload, err := client.RequestJSON(context.Background(), http.MethodGet, cfg.Yandex.Endpoints.AccountAbout, nil, nil)
		if err != nil {
			fatalf("account probe failed: %v", err)
		}
		about := transport.Result(payload)

		sanitized := map[string]any{
			"login":                about["login"],
			"publicName":           about["publicName"],
			"publicId":             about["publicId"],
			"uid":                  about["uid"],
			"hasPlus":              about["hasPlus"],
			"hasMusicSubscription": about["hasMusicSubscription"],
			"serviceAvailable":     about["serviceAvailable"],
			"geoRegionIso":         about["geoRegionIso"],
		}
		out, err := json.MarshalIndent(sanitized, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}
