package testsupport

import (
	"context"
	"testing"
	"time"

	"livecatalog/internal/config"
	"livecatalog/internal/store"
)

// MustOpenStore opens and initializes a store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config, opts ...store.Option) *store.Store {
	t.Helper()

	st, err := store.Open(cfg, opts...)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	if err := st.Initialize(context.Background()); err != nil {
		t.Fatalf("store.Initialize: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewSession creates a recording session for tests.
func NewSession(t testing.TB, st *store.Store, name string) *store.Session {
	t.Helper()

	session := &store.Session{Name: name, Status: store.SessionRecording}
	if err := st.CreateSession(context.Background(), session); err != nil {
		t.Fatalf("store.CreateSession: %v", err)
	}
	return session
}

// NewFrame stores a frame for the session captured at the given offset from
// the session start.
func NewFrame(t testing.TB, st *store.Store, session *store.Session, offset time.Duration) *store.CapturedFrame {
	t.Helper()

	frame := &store.CapturedFrame{
		SessionID: session.ID,
		Timestamp: session.StartTime.Add(offset),
		ImageURL:  "data:image/jpeg;base64,AAAA",
		Metadata:  store.FrameMetadata{Width: 4, Height: 4},
	}
	if err := st.SaveFrame(context.Background(), frame); err != nil {
		t.Fatalf("store.SaveFrame: %v", err)
	}
	return frame
}
