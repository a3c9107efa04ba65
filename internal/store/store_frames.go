package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// SaveFrame stores a captured frame, assigning an id when it has none.
// Saving the same frame id twice replaces the earlier copy.
func (s *Store) SaveFrame(ctx context.Context, frame *CapturedFrame) error {
	if frame == nil {
		return fmt.Errorf("%w: nil frame", ErrInvalidRecord)
	}
	if frame.SessionID == "" {
		return fmt.Errorf("%w: frame has no session", ErrInvalidRecord)
	}
	if frame.ID == "" {
		frame.ID = uuid.NewString()
	}
	if frame.Timestamp.IsZero() {
		frame.Timestamp = s.now()
	}
	return s.Update(ctx, CollectionCapturedFrames, frame)
}

// GetFrame returns a frame by id, or nil when absent.
func (s *Store) GetFrame(ctx context.Context, id string) (*CapturedFrame, error) {
	return Get[CapturedFrame](ctx, s, CollectionCapturedFrames, id)
}

// UpdateFrame replaces an existing frame. A missing frame fails with ErrNotFound.
func (s *Store) UpdateFrame(ctx context.Context, frame *CapturedFrame) error {
	if frame == nil {
		return fmt.Errorf("%w: nil frame", ErrInvalidRecord)
	}
	existing, err := s.GetFrame(ctx, frame.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("update frame %s: %w", frame.ID, ErrNotFound)
	}
	return s.Update(ctx, CollectionCapturedFrames, frame)
}

// DeleteFrame removes a frame; a missing frame is not an error.
func (s *Store) DeleteFrame(ctx context.Context, id string) error {
	return s.Delete(ctx, CollectionCapturedFrames, id)
}

// FramesForSession returns a session's frames in capture order.
func (s *Store) FramesForSession(ctx context.Context, sessionID string) ([]CapturedFrame, error) {
	frames, err := Query[CapturedFrame](ctx, s, CollectionCapturedFrames, "sessionId", sessionID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(frames, func(i, j int) bool {
		if frames[i].Timestamp.Equal(frames[j].Timestamp) {
			return frames[i].ID < frames[j].ID
		}
		return frames[i].Timestamp.Before(frames[j].Timestamp)
	})
	return frames, nil
}

// FrameIDsForSession returns the set of frame ids stored for a session.
func (s *Store) FrameIDsForSession(ctx context.Context, sessionID string) (map[string]struct{}, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	ctx = ensureContext(ctx)
	ids := make(map[string]struct{})
	err = retryOnBusy(ctx, func() error {
		clear(ids)
		rows, err := db.QueryContext(ctx,
			"SELECT id FROM captured_frames WHERE json_extract(data, '$.sessionId') = ?", sessionID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids[id] = struct{}{}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("frame ids for session %s: %w", sessionID, err)
	}
	return ids, nil
}

// FrameStorageBytes returns the bytes consumed by a session's stored frames.
func (s *Store) FrameStorageBytes(ctx context.Context, sessionID string) (int64, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	ctx = ensureContext(ctx)
	var total int64
	err = retryOnBusy(ctx, func() error {
		return db.QueryRowContext(ctx,
			"SELECT COALESCE(SUM(length(CAST(data AS BLOB))), 0) FROM captured_frames WHERE json_extract(data, '$.sessionId') = ?",
			sessionID,
		).Scan(&total)
	})
	if err != nil {
		return 0, fmt.Errorf("frame storage for session %s: %w", sessionID, err)
	}
	return total, nil
}
