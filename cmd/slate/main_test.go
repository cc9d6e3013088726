package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"slate/internal/history"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	tracking   *httptest.Server
	registered *int
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	registered := 0
	tracking := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/publishes":
			registered++
			json.NewEncoder(w).Encode(map[string]int64{"id": int64(1000 + registered)})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(tracking.Close)

	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
state_dir = %q
log_dir = %q
templates_file = %q

[tracking]
url = %q
api_key = "test-key"

[publish]
force_template = false

[logging]
format = "console"
level = "error"
`,
		filepath.Join(base, "state"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "templates.yml"),
		tracking.URL,
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &cliTestEnv{
		baseDir:    base,
		configPath: configPath,
		tracking:   tracking,
		registered: &registered,
	}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCLIVersionCommands(t *testing.T) {
	out, _, err := runCLI(t, "", "version", "next", "/proj/work/shot010.v001.fbx")
	if err != nil {
		t.Fatalf("version next: %v", err)
	}
	if !strings.Contains(out, "shot010.v002.fbx") || !strings.Contains(out, "(v2)") {
		t.Fatalf("unexpected output: %q", out)
	}

	_, _, err = runCLI(t, "", "version", "next", "/proj/work/unversioned.fbx")
	if err == nil || !strings.Contains(err.Error(), "version token") {
		t.Fatalf("expected version token error, got %v", err)
	}

	dir := t.TempDir()
	for _, name := range []string{"take_v001.fbx", "take_v002.fbx"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	out, _, err = runCLI(t, "", "version", "free", filepath.Join(dir, "take_v001.fbx"))
	if err != nil {
		t.Fatalf("version free: %v", err)
	}
	if !strings.Contains(out, "take_v003.fbx") {
		t.Fatalf("expected first free version, got %q", out)
	}
}

func TestCLIPublishSessionFile(t *testing.T) {
	env := setupCLITestEnv(t)

	work := filepath.Join(env.baseDir, "shot010_v001.fbx")
	if err := os.WriteFile(work, []byte("scene"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, env.configPath,
		"publish", "--session", work, "--no-render",
		"--entity-type", "routine", "--entity-id", "10")
	if err != nil {
		t.Fatalf("publish: %v\noutput: %s", err, out)
	}
	if *env.registered != 1 {
		t.Fatalf("expected one tracking registration, got %d", *env.registered)
	}
	if !strings.Contains(out, "finalized") {
		t.Fatalf("expected finalized task in summary: %q", out)
	}
	if _, err := os.Stat(filepath.Join(env.baseDir, "shot010_v002.fbx")); err != nil {
		t.Fatalf("work file not advanced: %v", err)
	}

	out, _, err = runCLI(t, env.configPath, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "shot010_v001.fbx") {
		t.Fatalf("history missing publish: %q", out)
	}
}

func TestCLIPublishDryRun(t *testing.T) {
	env := setupCLITestEnv(t)

	work := filepath.Join(env.baseDir, "shot010_v001.fbx")
	if err := os.WriteFile(work, []byte("scene"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, env.configPath,
		"publish", "--session", work, "--no-render", "--dry-run")
	if err != nil {
		t.Fatalf("publish --dry-run: %v\noutput: %s", err, out)
	}
	if *env.registered != 0 {
		t.Fatal("dry run must not register publishes")
	}
	if !strings.Contains(out, "validated") {
		t.Fatalf("expected validated task in summary: %q", out)
	}
}

func TestCLIPublishUnsavedSessionFails(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env.configPath,
		"publish", "--session", "", "--no-render")
	if err == nil {
		t.Fatal("expected error for unreachable host bridge or unsaved session")
	}
}

func TestCLICollectSessionFile(t *testing.T) {
	env := setupCLITestEnv(t)

	work := filepath.Join(env.baseDir, "shot010_v001.fbx")
	if err := os.WriteFile(work, []byte("scene"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, env.configPath, "collect", "--session", work)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if !strings.Contains(out, "mocap.session") || !strings.Contains(out, "mocap.take") {
		t.Fatalf("unexpected collect output: %q", out)
	}
}

func TestCLIJobsListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "jobs", "list")
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	if !strings.Contains(out, "No render jobs") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestCLIJobsRetryRequeuesFailedJob(t *testing.T) {
	env := setupCLITestEnv(t)
	stateDir := filepath.Join(env.baseDir, "state")
	ctx := context.Background()

	store, err := history.Open(stateDir)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	job, err := store.EnqueueRenderJob(ctx, history.RenderJob{
		ID:         "job-1",
		TrackingID: 42,
		Take:       "shot_010",
		Cameras:    []string{"CameraA"},
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := store.UpdateJobStatus(ctx, job.ID, history.JobStatusSubmitting, ""); err != nil {
		t.Fatalf("mark submitting: %v", err)
	}
	if err := store.UpdateJobStatus(ctx, job.ID, history.JobStatusFailed, "farm down"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	out, _, err := runCLI(t, env.configPath, "jobs", "retry", "job-1")
	if err != nil {
		t.Fatalf("jobs retry: %v", err)
	}
	if !strings.Contains(out, "requeued") {
		t.Fatalf("unexpected output: %q", out)
	}

	store, err = history.Open(stateDir)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()
	requeued, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if requeued.Status != history.JobStatusQueued {
		t.Fatalf("status = %s, want queued", requeued.Status)
	}
}

func TestCLITemplatesListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "templates", "list")
	if err != nil {
		t.Fatalf("templates list: %v", err)
	}
	if !strings.Contains(out, "No templates defined") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestCLITemplatesCheck(t *testing.T) {
	env := setupCLITestEnv(t)
	templatesFile := filepath.Join(env.baseDir, "templates.yml")
	content := `keys:
  version: {type: int, format_spec: "03"}
templates:
  mobu_routine_work: "work/{Routine}/mobu/{name}_v{version}.fbx"
`
	if err := os.WriteFile(templatesFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, env.configPath,
		"templates", "check", "mobu_routine_work", "/proj/work/rt010/mobu/shot010_v001.fbx")
	if err != nil {
		t.Fatalf("templates check: %v", err)
	}
	if !strings.Contains(out, "Match:") || !strings.Contains(out, "version = 1") {
		t.Fatalf("unexpected output: %q", out)
	}

	out, _, err = runCLI(t, env.configPath,
		"templates", "check", "mobu_routine_work", "/elsewhere/shot010.fbx")
	if err != nil {
		t.Fatalf("templates check: %v", err)
	}
	if !strings.Contains(out, "No match") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestCLIConfigInit(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "config.toml")

	out, _, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("unexpected output: %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	if _, _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config already exists")
	}
}
