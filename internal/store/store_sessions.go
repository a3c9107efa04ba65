package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// CreateSession inserts a new session, assigning an id and start time when
// missing.
func (s *Store) CreateSession(ctx context.Context, session *Session) error {
	if session == nil {
		return fmt.Errorf("%w: nil session", ErrInvalidRecord)
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.StartTime.IsZero() {
		session.StartTime = s.now()
	}
	if session.Status == "" {
		session.Status = SessionReady
	}
	return s.Add(ctx, CollectionSessions, session)
}

// GetSession returns a session by id, or nil when absent.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	return Get[Session](ctx, s, CollectionSessions, id)
}

// UpdateSession upserts a session.
func (s *Store) UpdateSession(ctx context.Context, session *Session) error {
	if session == nil {
		return fmt.Errorf("%w: nil session", ErrInvalidRecord)
	}
	return s.Update(ctx, CollectionSessions, session)
}

// ListSessions returns every session, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	sessions, err := GetAll[Session](ctx, s, CollectionSessions)
	if err != nil {
		return nil, err
	}
	sortSessions(sessions)
	return sessions, nil
}

// SessionsByStatus returns sessions in the given status, newest first.
func (s *Store) SessionsByStatus(ctx context.Context, status SessionStatus) ([]Session, error) {
	sessions, err := Query[Session](ctx, s, CollectionSessions, "status", string(status))
	if err != nil {
		return nil, err
	}
	sortSessions(sessions)
	return sessions, nil
}

// SessionsByVendor returns a vendor's sessions, newest first.
func (s *Store) SessionsByVendor(ctx context.Context, vendorID string) ([]Session, error) {
	sessions, err := Query[Session](ctx, s, CollectionSessions, "vendorId", vendorID)
	if err != nil {
		return nil, err
	}
	sortSessions(sessions)
	return sessions, nil
}

func sortSessions(sessions []Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].StartTime.After(sessions[j].StartTime)
	})
}

// DeleteSession removes a session and every frame that references it in
// one transaction. It returns the number of frames removed.
func (s *Store) DeleteSession(ctx context.Context, id string) (int, error) {
	ctx = ensureContext(ctx)
	var removed int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"DELETE FROM captured_frames WHERE json_extract(data, '$.sessionId') = ?", id)
		if err != nil {
			return err
		}
		if removed, err = res.RowsAffected(); err != nil {
			// The count is informational; the delete itself succeeded.
			s.logger.Debug("frame delete count unavailable", "session_id", id, "error", err)
			removed = 0
		}
		_, err = tx.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
		return err
	})
	if err != nil {
		return 0, writeError(fmt.Sprintf("delete session %s", id), err)
	}
	s.logger.Info("session deleted",
		"session_id", id,
		"frames_removed", removed,
	)
	return int(removed), nil
}
