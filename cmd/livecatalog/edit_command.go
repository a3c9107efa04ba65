package main

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"livecatalog/internal/editor"
	"livecatalog/internal/logging"
	"livecatalog/internal/store"
)

type editOptions struct {
	rotate     int
	crop       string
	zoom       float64
	brightness int
	contrast   int
	saturation int
	reset      bool
	dryRun     bool
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	var opts editOptions
	cmd := &cobra.Command{
		Use:   "edit <frame-id>",
		Short: "Rotate, crop, zoom, and colour-correct a frame",
		Long: `Edit a frame and save the result as its edited image.

Steps run in a fixed order: rotate, zoom and colour, then crop. The
crop rectangle is in pixels of the canvas after rotation and zoom.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var crop image.Rectangle
			if opts.crop != "" {
				if crop, err = parseCrop(opts.crop); err != nil {
					return err
				}
			}
			if opts.rotate%90 != 0 {
				return fmt.Errorf("rotation must be a multiple of 90, got %d", opts.rotate)
			}
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				frame, err := lookupFrame(cmd, st, args[0])
				if err != nil {
					return err
				}
				if opts.reset {
					frame.IsEdited = false
					frame.EditedImageURL = ""
					frame.CropArea = nil
				}
				logger := ctx.loggerValue()
				ed, err := editor.Load(*frame, st,
					editor.WithQuality(cfg.Editor.Quality),
					editor.WithLogger(logger),
				)
				if err != nil {
					return err
				}
				if err := applyEdits(cmd, ed, opts, crop); err != nil {
					return err
				}
				w, h := ed.Size()
				if opts.dryRun {
					fmt.Fprintf(cmd.OutOrStdout(), "Edited canvas would be %dx%d; nothing saved\n", w, h)
					return nil
				}
				saved, err := ed.Save(cmd.Context())
				if err != nil {
					return err
				}
				logger.Debug("frame saved from cli", logging.String(logging.FieldFrameID, saved.ID))
				view := frameViews([]store.CapturedFrame{saved})[0]
				return ctx.emit(cmd, view, func() string {
					return fmt.Sprintf("Saved %s (%dx%d, %s)", saved.ID, w, h, formatBytes(int64(len(saved.EditedImageURL))))
				})
			})
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&opts.rotate, "rotate", 0, "Rotate clockwise by this many degrees (multiple of 90)")
	flags.StringVar(&opts.crop, "crop", "", "Crop to x,y,width,height")
	flags.Float64Var(&opts.zoom, "zoom", 1, "Zoom factor (0.5 to 3.0)")
	flags.IntVar(&opts.brightness, "brightness", 100, "Brightness percent (50 to 150)")
	flags.IntVar(&opts.contrast, "contrast", 100, "Contrast percent (50 to 150)")
	flags.IntVar(&opts.saturation, "saturation", 100, "Saturation percent (0 to 200)")
	flags.BoolVar(&opts.reset, "reset", false, "Start from the original capture instead of the last edit")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Apply the edits without saving")
	return cmd
}

func applyEdits(cmd *cobra.Command, ed *editor.Editor, opts editOptions, crop image.Rectangle) error {
	turns := ((opts.rotate/90)%4 + 4) % 4
	for range turns {
		ed.Rotate()
	}
	if cmd.Flags().Changed("zoom") {
		ed.SetZoom(opts.zoom)
	}
	ed.SetBrightness(opts.brightness)
	ed.SetContrast(opts.contrast)
	ed.SetSaturation(opts.saturation)
	ed.Commit()
	if !crop.Empty() {
		ed.BeginCrop(crop.Min)
		ed.EndCrop(crop.Max)
		if err := ed.ApplyCrop(); err != nil {
			if errors.Is(err, editor.ErrNoSelection) {
				return fmt.Errorf("crop %v lies outside the %v canvas", crop, canvasRect(ed))
			}
			return err
		}
	}
	return nil
}

func canvasRect(ed *editor.Editor) image.Rectangle {
	w, h := ed.Size()
	return image.Rect(0, 0, w, h)
}

// parseCrop reads "x,y,width,height".
func parseCrop(value string) (image.Rectangle, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("crop %q: want x,y,width,height", value)
	}
	nums := make([]int, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("crop %q: %w", value, err)
		}
		nums[i] = n
	}
	if nums[2] <= 0 || nums[3] <= 0 {
		return image.Rectangle{}, fmt.Errorf("crop %q: width and height must be positive", value)
	}
	return image.Rect(nums[0], nums[1], nums[0]+nums[2], nums[1]+nums[3]), nil
}
