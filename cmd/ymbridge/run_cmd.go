package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mehroj-r/ym-bridge/internal/events"
	"github.com/mehroj-r/ym-bridge/internal/facade"
	"github.com/mehroj-r/ym-bridge/internal/localsocket"
	"github.com/mehroj-r/ym-bridge/internal/mpris"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ym-bridge daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		orch, err := buildOrchestrator(cfg)
		if err != nil {
			return err
		}

		bus := events.NewBus()
		pollInterval := time.Duration(cfg.App.PollIntervalSeconds * float64(time.Second))
		f := facade.New(orch, bus, pollInterval)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		f.Start(ctx)

		mprisSvc := mpris.New(f, cfg.App.MPRISName)
		if err := mprisSvc.Start(); err != nil {
			slog.Warn("mpris: failed to start", "err", err)
		}

		sock := localsocket.New(f, cfg.App.ControlSocketPath)
		if err := sock.Start(); err != nil {
			slog.Warn("localsocket: failed to start", "err", err)
		}

		slog.Info("ym-bridge started", "mpris_name", "org.mpris.MediaPlayer2."+cfg.App.MPRISName,
			"control_socket", cfg.App.ControlSocketPath)

		<-ctx.Done()
		slog.Info("shutting down")

		mprisSvc.Stop()
		if err := sock.Stop(); err != nil {
			slog.Warn("localsocket: stop error", "err", err)
		}
		if err := f.Stop(); err != nil {
			slog.Warn("facade: stop error", "err", err)
		}
		return nil
	},
}
