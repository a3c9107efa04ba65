package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"livecatalog/internal/store"
	"livecatalog/internal/testsupport"
)

func TestSessionsListAndShow(t *testing.T) {
	env := setupCLITestEnv(t)
	session, frame := env.seedFrame(t, "Market stall")
	testsupport.NewSession(t, env.store, "Live now")

	out, _, err := runCLI(t, []string{"sessions", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("sessions list: %v", err)
	}
	requireContains(t, out, "Market stall")
	requireContains(t, out, "Live now")

	out, _, err = runCLI(t, []string{"sessions", "list", "--status", "completed", "-o", "json"}, env.configPath)
	if err != nil {
		t.Fatalf("sessions list --status: %v", err)
	}
	var sessions []store.Session
	if err := json.Unmarshal([]byte(out), &sessions); err != nil {
		t.Fatalf("decode sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != session.ID {
		t.Fatalf("unexpected sessions %+v", sessions)
	}

	out, _, err = runCLI(t, []string{"sessions", "show", session.ID}, env.configPath)
	if err != nil {
		t.Fatalf("sessions show: %v", err)
	}
	requireContains(t, out, "Market stall")
	requireContains(t, out, frame.ID)
	requireContains(t, out, "20x12")

	out, _, err = runCLI(t, []string{"sessions", "show", session.ID, "-o", "yaml"}, env.configPath)
	if err != nil {
		t.Fatalf("sessions show yaml: %v", err)
	}
	requireContains(t, out, "name: Market stall")

	if _, _, err := runCLI(t, []string{"sessions", "show", "missing"}, env.configPath); err == nil {
		t.Fatal("expected missing session to fail")
	}
}

func TestSessionsDelete(t *testing.T) {
	env := setupCLITestEnv(t)
	session, frame := env.seedFrame(t, "Old")
	active := testsupport.NewSession(t, env.store, "Active")

	if _, _, err := runCLI(t, []string{"sessions", "delete", active.ID}, env.configPath); err == nil {
		t.Fatal("expected deleting an active session to fail")
	}

	out, _, err := runCLI(t, []string{"sessions", "delete", session.ID}, env.configPath)
	if err != nil {
		t.Fatalf("sessions delete: %v", err)
	}
	requireContains(t, out, "and 1 frames")
	if got, _ := env.store.GetFrame(context.Background(), frame.ID); got != nil {
		t.Fatal("expected frame deleted with session")
	}
}

func TestFramesListShowExtract(t *testing.T) {
	env := setupCLITestEnv(t)
	session, frame := env.seedFrame(t, "Frames")

	out, _, err := runCLI(t, []string{"frames", "list", session.ID}, env.configPath)
	if err != nil {
		t.Fatalf("frames list: %v", err)
	}
	requireContains(t, out, frame.ID)

	out, _, err = runCLI(t, []string{"frames", "show", frame.ID}, env.configPath)
	if err != nil {
		t.Fatalf("frames show: %v", err)
	}
	requireContains(t, out, "test-camera")

	target := filepath.Join(env.baseDir, "frame.png")
	out, _, err = runCLI(t, []string{"frames", "extract", frame.ID, "-f", target}, env.configPath)
	if err != nil {
		t.Fatalf("frames extract: %v", err)
	}
	requireContains(t, out, "Wrote "+target)
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read extracted image: %v", err)
	}
	if len(data) < 8 || string(data[1:4]) != "PNG" {
		t.Fatalf("extracted file is not the stored PNG")
	}

	if _, _, err := runCLI(t, []string{"frames", "extract", frame.ID, "--thumbnail"}, env.configPath); err == nil {
		t.Fatal("expected extracting a missing thumbnail to fail")
	}

	if _, _, err := runCLI(t, []string{"frames", "delete", frame.ID}, env.configPath); err != nil {
		t.Fatalf("frames delete: %v", err)
	}
	if got, _ := env.store.GetFrame(context.Background(), frame.ID); got != nil {
		t.Fatal("expected frame deleted")
	}
}
