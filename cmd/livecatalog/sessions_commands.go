package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"livecatalog/internal/store"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "Inspect recorded sessions",
	}
	sessionsCmd.AddCommand(newSessionsListCommand(ctx))
	sessionsCmd.AddCommand(newSessionsShowCommand(ctx))
	sessionsCmd.AddCommand(newSessionsDeleteCommand(ctx))
	return sessionsCmd
}

func newSessionsListCommand(ctx *commandContext) *cobra.Command {
	var vendor string
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				var (
					sessions []store.Session
					err      error
				)
				switch {
				case vendor != "" && status != "":
					return errors.New("filter by --vendor or --status, not both")
				case vendor != "":
					sessions, err = st.SessionsByVendor(cmd.Context(), vendor)
				case status != "":
					sessions, err = st.SessionsByStatus(cmd.Context(), store.SessionStatus(status))
				default:
					sessions, err = st.ListSessions(cmd.Context())
				}
				if err != nil {
					return err
				}
				return ctx.emit(cmd, sessions, func() string {
					if len(sessions) == 0 {
						return "No sessions"
					}
					rows := make([][]string, 0, len(sessions))
					for _, s := range sessions {
						rows = append(rows, []string{
							shortID(s.ID),
							s.Name,
							titleLabel(string(s.Status)),
							formatAgo(s.StartTime),
							sessionDuration(s),
							strconv.Itoa(s.FrameCount),
							formatBytes(s.StorageBytes),
						})
					}
					return renderTable(
						[]string{"ID", "Name", "Status", "Started", "Duration", "Frames", "Storage"},
						rows,
						[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
					)
				})
			})
		},
	}
	cmd.Flags().StringVar(&vendor, "vendor", "", "Only sessions of this vendor")
	cmd.Flags().StringVar(&status, "status", "", "Only sessions in this status (recording, paused, completed, error)")
	return cmd
}

func newSessionsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session with its frames and products",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				session, err := lookupSession(cmd, st, args[0])
				if err != nil {
					return err
				}
				frames, err := st.FramesForSession(cmd.Context(), session.ID)
				if err != nil {
					return err
				}
				products, err := st.SessionProducts(cmd.Context(), session.ID)
				if err != nil {
					return err
				}
				payload := map[string]any{
					"session":  session,
					"frames":   frameViews(frames),
					"products": products,
				}
				return ctx.emit(cmd, payload, func() string {
					out := sessionTable(*session)
					if len(frames) > 0 {
						out += "\n" + framesTable(frames)
					}
					if len(products) > 0 {
						out += "\n" + productsTable(products)
					}
					return out
				})
			})
		},
	}
}

func newSessionsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session and its frames",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				session, err := lookupSession(cmd, st, args[0])
				if err != nil {
					return err
				}
				if session.Status.IsActive() {
					return fmt.Errorf("session %s is still %s", session.ID, session.Status)
				}
				frames, err := st.DeleteSession(cmd.Context(), session.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s and %d frames\n", session.ID, frames)
				return nil
			})
		},
	}
}

func lookupSession(cmd *cobra.Command, st *store.Store, id string) (*store.Session, error) {
	session, err := st.GetSession(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("session %s: %w", id, store.ErrNotFound)
	}
	return session, nil
}

func sessionDuration(s store.Session) string {
	if s.EndTime == nil {
		return "-"
	}
	return formatDuration(s.EndTime.Sub(s.StartTime))
}

func sessionTable(s store.Session) string {
	pairs := [][2]string{
		{"ID", s.ID},
		{"Name", s.Name},
		{"Status", titleLabel(string(s.Status))},
		{"Started", formatTime(s.StartTime)},
	}
	if s.EndTime != nil {
		pairs = append(pairs, [2]string{"Ended", formatTime(*s.EndTime)})
		pairs = append(pairs, [2]string{"Duration", sessionDuration(s)})
	}
	pairs = append(pairs,
		[2]string{"Frames", strconv.Itoa(s.FrameCount)},
		[2]string{"Storage", formatBytes(s.StorageBytes)},
	)
	if s.VendorID != "" {
		pairs = append(pairs, [2]string{"Vendor", s.VendorID})
	}
	if device := s.Metadata["device"]; device != "" {
		pairs = append(pairs, [2]string{"Device", device})
	}
	if s.ErrorMessage != "" {
		pairs = append(pairs, [2]string{"Error", s.ErrorMessage})
	}
	return renderKeyValues("Session", pairs)
}

// emitSession prints a finished session in the selected output format.
func (c *commandContext) emitSession(cmd *cobra.Command, session *store.Session) error {
	return c.emit(cmd, session, func() string { return sessionTable(*session) })
}

// frameView omits image payloads from listings.
type frameView struct {
	ID              string      `json:"id"`
	SessionID       string      `json:"sessionId"`
	Timestamp       time.Time   `json:"timestamp"`
	IsEdited        bool        `json:"isEdited"`
	CropArea        *store.Rect `json:"cropArea,omitempty"`
	ProductDetected string      `json:"productDetected,omitempty"`
	Width           int         `json:"width"`
	Height          int         `json:"height"`
	Bytes           int         `json:"bytes"`
}

func frameViews(frames []store.CapturedFrame) []frameView {
	out := make([]frameView, 0, len(frames))
	for _, f := range frames {
		out = append(out, frameView{
			ID:              f.ID,
			SessionID:       f.SessionID,
			Timestamp:       f.Timestamp,
			IsEdited:        f.IsEdited,
			CropArea:        f.CropArea,
			ProductDetected: f.ProductDetected,
			Width:           f.Metadata.Width,
			Height:          f.Metadata.Height,
			Bytes:           len(f.BestImageURL()),
		})
	}
	return out
}
