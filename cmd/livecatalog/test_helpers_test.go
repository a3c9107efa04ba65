package main

import (
	"bytes"
	"context"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"livecatalog/internal/config"
	"livecatalog/internal/store"
	"livecatalog/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *store.Store
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	configPath := filepath.Join(homeDir, ".config", "livecatalog", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		store:      testsupport.MustOpenStore(t, cfg),
		configPath: configPath,
		baseDir:    base,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// seedFrame stores a session with one decodable frame.
func (env *cliTestEnv) seedFrame(t *testing.T, name string) (*store.Session, *store.CapturedFrame) {
	t.Helper()
	ctx := context.Background()
	session := testsupport.NewSession(t, env.store, name)
	session.Status = store.SessionCompleted
	end := session.StartTime.Add(time.Minute)
	session.EndTime = &end
	session.FrameCount = 1
	if err := env.store.UpdateSession(ctx, session); err != nil {
		t.Fatalf("complete session: %v", err)
	}
	frame := testsupport.NewFrame(t, env.store, session, 5*time.Second)
	frame.ImageURL = testsupport.PNGDataURL(t, testsupport.SolidImage(20, 12, color.RGBA{R: 10, G: 200, B: 30, A: 255}))
	frame.Metadata = store.FrameMetadata{Width: 20, Height: 12, DeviceID: "test-camera"}
	if err := env.store.UpdateFrame(ctx, frame); err != nil {
		t.Fatalf("update frame: %v", err)
	}
	return session, frame
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
