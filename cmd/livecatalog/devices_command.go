package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"livecatalog/internal/capture"
	"livecatalog/internal/deps"
)

type deviceView struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	Default bool    `json:"default"`
	Battery float64 `json:"battery"`
}

func newDevicesCommand(ctx *commandContext) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List capture devices and the settings the adaptive policy would pick",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if check {
				return runElementCheck(cmd, ctx, cfg.Capture.Audio)
			}
			source := sourceFactory(cfg, ctx.loggerValue())
			devices, err := source.Devices(cmd.Context())
			if err != nil {
				return fmt.Errorf("list devices: %w", err)
			}

			power := capture.PowerReader{Dir: cfg.Capture.PowerSupplyDir}
			settings := captureSettings(cfg, power)
			battery := -1.0
			if level, ok := power.Level(); ok {
				battery = level
			}

			views := make([]deviceView, 0, len(devices))
			for i, d := range devices {
				isDefault := d.ID == cfg.Capture.Device || (cfg.Capture.Device == "" && i == 0)
				views = append(views, deviceView{ID: d.ID, Label: d.Label, Default: isDefault, Battery: battery})
			}

			payload := map[string]any{"devices": views, "settings": settings}
			return ctx.emit(cmd, payload, func() string {
				rows := make([][]string, 0, len(views))
				for _, v := range views {
					rows = append(rows, []string{v.ID, v.Label, yesNo(v.Default)})
				}
				out := renderTable([]string{"Device", "Label", "Default"}, rows, nil)
				if len(rows) == 0 {
					out = "No video4linux capture devices found"
				}
				batteryLabel := "unknown"
				if battery >= 0 {
					batteryLabel = strconv.FormatFloat(battery, 'f', 0, 64) + "%"
				}
				return out + "\n" + renderKeyValues("Capture settings", [][2]string{
					{"Interval", settings.Interval.String()},
					{"Quality", strconv.FormatFloat(settings.Quality, 'f', 2, 64)},
					{"Resolution", fmt.Sprintf("%dx%d", settings.Width, settings.Height)},
					{"Frame rate", strconv.Itoa(settings.FrameRate)},
					{"Battery", batteryLabel},
					{"Adaptive", yesNo(cfg.Capture.Adaptive)},
				})
			})
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Check that the GStreamer elements used for capture are installed")
	return cmd
}

func runElementCheck(cmd *cobra.Command, ctx *commandContext, audio bool) error {
	statuses := deps.Check(deps.CaptureRequirements(audio), elementLookup)
	err := ctx.emit(cmd, statuses, func() string {
		rows := make([][]string, 0, len(statuses))
		for _, s := range statuses {
			state := "ok"
			switch {
			case !s.Available && s.Optional:
				state = "missing (optional)"
			case !s.Available:
				state = "missing"
			}
			rows = append(rows, []string{s.Name, s.Element, state, s.Description})
		}
		return renderTable([]string{"Requirement", "Element", "Status", "Provided by"}, rows, nil)
	})
	if err != nil {
		return err
	}
	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		return fmt.Errorf("%d required GStreamer elements missing", len(missing))
	}
	return nil
}
