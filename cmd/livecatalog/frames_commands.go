package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"livecatalog/internal/capture"
	"livecatalog/internal/store"
)

func newFramesCommand(ctx *commandContext) *cobra.Command {
	framesCmd := &cobra.Command{
		Use:     "frames",
		Aliases: []string{"frame"},
		Short:   "Inspect captured frames",
	}
	framesCmd.AddCommand(newFramesListCommand(ctx))
	framesCmd.AddCommand(newFramesShowCommand(ctx))
	framesCmd.AddCommand(newFramesExtractCommand(ctx))
	framesCmd.AddCommand(newFramesDeleteCommand(ctx))
	return framesCmd
}

func newFramesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <session-id>",
		Short: "List a session's frames in capture order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				frames, err := st.FramesForSession(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				views := frameViews(frames)
				return ctx.emit(cmd, views, func() string {
					if len(frames) == 0 {
						return "No frames"
					}
					return framesTable(frames)
				})
			})
		},
	}
}

func framesTable(frames []store.CapturedFrame) string {
	rows := make([][]string, 0, len(frames))
	for _, f := range frames {
		rows = append(rows, []string{
			f.ID,
			formatTime(f.Timestamp),
			fmt.Sprintf("%dx%d", f.Metadata.Width, f.Metadata.Height),
			formatBytes(int64(len(f.BestImageURL()))),
			yesNo(f.IsEdited),
			shortID(f.ProductDetected),
		})
	}
	return renderTable(
		[]string{"Frame", "Captured", "Size", "Bytes", "Edited", "Product"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
	)
}

func newFramesShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <frame-id>",
		Short: "Show one frame's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				frame, err := lookupFrame(cmd, st, args[0])
				if err != nil {
					return err
				}
				view := frameViews([]store.CapturedFrame{*frame})[0]
				return ctx.emit(cmd, view, func() string {
					pairs := [][2]string{
						{"ID", frame.ID},
						{"Session", frame.SessionID},
						{"Captured", formatTime(frame.Timestamp)},
						{"Size", fmt.Sprintf("%dx%d", frame.Metadata.Width, frame.Metadata.Height)},
						{"Image", formatBytes(int64(len(frame.ImageURL)))},
						{"Edited", yesNo(frame.IsEdited)},
					}
					if frame.CropArea != nil {
						c := frame.CropArea
						pairs = append(pairs, [2]string{"Crop", fmt.Sprintf("%dx%d at %d,%d", c.Width, c.Height, c.X, c.Y)})
					}
					if frame.Metadata.DeviceID != "" {
						pairs = append(pairs, [2]string{"Device", frame.Metadata.DeviceID})
					}
					if frame.Metadata.BatteryLevel >= 0 {
						pairs = append(pairs, [2]string{"Battery", fmt.Sprintf("%.0f%%", frame.Metadata.BatteryLevel)})
					}
					if frame.ProductDetected != "" {
						pairs = append(pairs, [2]string{"Product", frame.ProductDetected})
					}
					return renderKeyValues("Frame", pairs)
				})
			})
		},
	}
}

func newFramesExtractCommand(ctx *commandContext) *cobra.Command {
	var outPath string
	var original bool
	var thumbnail bool
	cmd := &cobra.Command{
		Use:   "extract <frame-id>",
		Short: "Write a frame's image to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if original && thumbnail {
				return errors.New("pass --original or --thumbnail, not both")
			}
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				frame, err := lookupFrame(cmd, st, args[0])
				if err != nil {
					return err
				}
				url := frame.BestImageURL()
				switch {
				case original:
					url = frame.ImageURL
				case thumbnail:
					url = frame.ThumbnailURL
				}
				data, err := capture.DataURLBytes(url)
				if err != nil {
					return fmt.Errorf("frame %s image: %w", frame.ID, err)
				}
				target := outPath
				if target == "" {
					target = frame.ID + ".jpg"
				}
				if err := os.WriteFile(target, data, 0o644); err != nil {
					return fmt.Errorf("write image: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", target, formatBytes(int64(len(data))))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&outPath, "file", "f", "", "Destination file (defaults to <frame-id>.jpg)")
	cmd.Flags().BoolVar(&original, "original", false, "Write the unedited capture")
	cmd.Flags().BoolVar(&thumbnail, "thumbnail", false, "Write the thumbnail")
	return cmd
}

func newFramesDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <frame-id>",
		Short: "Delete one frame",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				if _, err := lookupFrame(cmd, st, args[0]); err != nil {
					return err
				}
				if err := st.DeleteFrame(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted frame %s\n", args[0])
				return nil
			})
		},
	}
}

func lookupFrame(cmd *cobra.Command, st *store.Store, id string) (*store.CapturedFrame, error) {
	frame, err := st.GetFrame(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	if frame == nil {
		return nil, fmt.Errorf("frame %s: %w", id, store.ErrNotFound)
	}
	return frame, nil
}
