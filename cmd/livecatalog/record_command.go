package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"livecatalog/internal/capture"
	"livecatalog/internal/config"
	"livecatalog/internal/logging"
	"livecatalog/internal/recording"
	"livecatalog/internal/store"
)

const (
	statusRefresh  = time.Second
	policyRefresh  = 30 * time.Second
	recordShutdown = 10 * time.Second
)

type recordOptions struct {
	device   string
	name     string
	vendor   string
	duration time.Duration
}

func newRecordCommand(ctx *commandContext) *cobra.Command {
	var opts recordOptions
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a session, capturing a frame every interval",
		Long: `Record a session from a camera.

Interactive keys: p pauses, r resumes, q stops. With --duration the session
stops on its own and no keys are read.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				return runRecord(cmd, ctx, cfg, st, opts)
			})
		},
	}
	cmd.Flags().StringVarP(&opts.device, "device", "d", "", "Capture device (defaults to capture.device, then the first camera)")
	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "Session name")
	cmd.Flags().StringVar(&opts.vendor, "vendor", "", "Vendor id recorded on the session")
	cmd.Flags().DurationVar(&opts.duration, "duration", 0, "Stop after this long instead of waiting for q")
	return cmd
}

func runRecord(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, st *store.Store, opts recordOptions) error {
	logger := ctx.loggerValue()
	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	power := capture.PowerReader{Dir: cfg.Capture.PowerSupplyDir}
	ctrl := capture.NewController(sourceFactory(cfg, logger), captureSettings(cfg, power),
		capture.WithLogger(logger),
		capture.WithBattery(power.Level),
	)
	rec := recording.New(cfg, st, ctrl, recording.WithLogger(logger))
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), recordShutdown)
		defer cancel()
		if err := rec.Close(closeCtx); err != nil {
			logger.Warn("recorder close failed", logging.Error(err))
		}
	}()

	device := opts.device
	if device == "" {
		device = cfg.Capture.Device
	}
	if err := rec.Prepare(runCtx, device); err != nil {
		return fmt.Errorf("prepare recording: %w", err)
	}

	if cfg.Capture.Hotplug {
		monitor := capture.NewHotplugMonitor(logger, ctrl.DeviceLost)
		if err := monitor.Start(runCtx); err != nil {
			logger.Warn("hotplug monitor unavailable", logging.Error(err))
		}
		defer monitor.Stop()
	}

	if err := rec.Start(runCtx, recording.StartOptions{Name: opts.name, VendorID: opts.vendor}); err != nil {
		return fmt.Errorf("start recording: %w", err)
	}

	out := cmd.OutOrStdout()
	keys, restore := readKeys(cmd, opts.duration)
	defer restore()
	interactive := keys != nil
	colorize := interactive && isTerminal(out)
	if interactive {
		fmt.Fprint(out, "Recording. Keys: p pause, r resume, q stop\r\n")
	}

	var deadline <-chan time.Time
	if opts.duration > 0 {
		timer := time.NewTimer(opts.duration)
		defer timer.Stop()
		deadline = timer.C
	}
	status := time.NewTicker(statusRefresh)
	defer status.Stop()
	policy := time.NewTicker(policyRefresh)
	defer policy.Stop()

	printStatus := func() {
		if interactive {
			fmt.Fprintf(out, "\r\x1b[2K%s", renderRecordingStatus(rec.Snapshot(), colorize))
		}
	}

loop:
	for {
		select {
		case <-runCtx.Done():
			break loop
		case <-deadline:
			break loop
		case <-status.C:
			printStatus()
			if rec.Snapshot().State == recording.StateError {
				break loop
			}
		case <-policy.C:
			if cfg.Capture.Adaptive {
				ctrl.SetSettings(captureSettings(cfg, power))
			}
		case key, ok := <-keys:
			if !ok {
				keys = nil
				continue
			}
			var err error
			switch key {
			case 'p', 'P':
				err = rec.Pause(runCtx)
			case 'r', 'R':
				err = rec.Resume(runCtx)
			case 'q', 'Q', 3:
				break loop
			}
			if err != nil && !errors.Is(err, recording.ErrInvalidTransition) {
				return err
			}
			printStatus()
		}
	}
	if interactive {
		fmt.Fprint(out, "\r\n")
	}

	snap := rec.Snapshot()
	if snap.State == recording.StateError {
		return fmt.Errorf("recording failed: %s", snap.Cause)
	}
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), recordShutdown)
	defer cancel()
	session, err := rec.Stop(stopCtx)
	if err != nil {
		return fmt.Errorf("stop recording: %w", err)
	}
	return ctx.emitSession(cmd, session)
}

// readKeys puts a terminal stdin into raw mode and streams key presses.
// It returns a nil channel when keys are not read.
func readKeys(cmd *cobra.Command, duration time.Duration) (<-chan byte, func()) {
	noop := func() {}
	if duration > 0 {
		return nil, noop
	}
	in, ok := cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(in.Fd())) {
		return nil, noop
	}
	state, err := term.MakeRaw(int(in.Fd()))
	if err != nil {
		return nil, noop
	}
	keys := make(chan byte, 8)
	go func() {
		defer close(keys)
		buf := make([]byte, 1)
		for {
			n, err := in.Read(buf)
			if err != nil {
				return
			}
			if n == 1 {
				select {
				case keys <- buf[0]:
				default:
				}
			}
		}
	}()
	return keys, func() { _ = term.Restore(int(in.Fd()), state) }
}
