package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"paceline/internal/config"
	"paceline/internal/testsupport"
)

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
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

func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
extract_dir = %q

[strava]
access_token = %q

[logging]
format = "json"
level = "error"
`, cfg.Paths.DataDir, cfg.Paths.LogDir, cfg.Paths.ExtractDir, cfg.Strava.AccessToken)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, output)
	}
}

func TestConfigInitCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read generated config: %v", err)
	}
	requireContains(t, string(data), "[strava]")

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected second init without --overwrite to fail")
	}
}

func TestStatusCommand(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedActivity(t, st, 42, "Morning Ride")
	if err := st.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	out, _, err := runCLI(t, []string{"status"}, configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Activities: 1")
	requireContains(t, out, "Efforts:    0")
}

func TestImportAndQueryCommands(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	root := t.TempDir()
	docDir := filepath.Join(root, "activities")
	if err := os.MkdirAll(docDir, 0o755); err != nil {
		t.Fatalf("mkdir activities: %v", err)
	}
	doc := `{
		"id": 1234567890,
		"name": "Morning Climb",
		"type": "Ride",
		"start_date": "2023-05-01T07:30:00Z",
		"distance": 42195.0,
		"moving_time": 7200,
		"elapsed_time": 7500,
		"segment_efforts": [
			{
				"id": 9876543210,
				"name": "Col du Test",
				"elapsed_time": 1200,
				"moving_time": 1180,
				"start_date": "2023-05-01T08:00:00Z",
				"distance": 5000.0,
				"segment": {
					"id": 5555555,
					"name": "Col du Test",
					"activity_type": "Ride",
					"distance": 5000.0,
					"average_grade": 7.5
				}
			}
		]
	}`
	if err := os.WriteFile(filepath.Join(docDir, "1234567890.json"), []byte(doc), 0o644); err != nil {
		t.Fatalf("write document: %v", err)
	}

	out, _, err := runCLI(t, []string{"import", root}, configPath)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	requireContains(t, out, "Imported 1 activities, 1 efforts, 1 segments")

	out, _, err = runCLI(t, []string{"activities", "recent"}, configPath)
	if err != nil {
		t.Fatalf("activities recent: %v", err)
	}
	requireContains(t, out, "Morning Climb")
	requireContains(t, out, "2023-05-01")

	out, _, err = runCLI(t, []string{"segments", "top"}, configPath)
	if err != nil {
		t.Fatalf("segments top: %v", err)
	}
	requireContains(t, out, "Col du Test")

	out, _, err = runCLI(t, []string{"segments", "show", "5555555"}, configPath)
	if err != nil {
		t.Fatalf("segments show: %v", err)
	}
	requireContains(t, out, "Col du Test (5555555)")
	requireContains(t, out, "20:00")
}

func TestSyncCommandRequiresToken(t *testing.T) {
	t.Setenv("STRAVA_ACCESS_TOKEN", "")
	cfg := testsupport.NewConfig(t, testsupport.WithAccessToken(""))
	configPath := writeTestConfig(t, cfg)

	_, _, err := runCLI(t, []string{"sync"}, configPath)
	if err == nil || !strings.Contains(err.Error(), "access token") {
		t.Fatalf("expected missing-token error, got %v", err)
	}
}
