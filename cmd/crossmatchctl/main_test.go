package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"crossmatch/internal/blueprint"
	"crossmatch/internal/config"
	"crossmatch/internal/loader"
	"crossmatch/internal/model"
)

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	runErr := fn()
	_ = w.Close()
	os.Stdout = orig
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read stdout: %v", err)
	}
	return string(data), runErr
}

const testConfigYAML = `
blueprint:
  name: pusher
  kind: centralized
  mapper: heterogeneous
  sensors: [bias]
  activation: tanh
teams:
  - dir: push
  - dir: idle
output:
  dir: out
logging:
  level: error
`

func writeFixture(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	configPath := filepath.Join(base, "tournament.yaml")
	if err := os.WriteFile(configPath, []byte(testConfigYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := run(context.Background(), []string{"example", "--out", filepath.Join(base, "idle", "a.gen"), "--blueprint", writeBlueprint(t, base)}); err != nil {
		t.Fatalf("example: %v", err)
	}
	idle, err := loader.ReadGenotypeFile(filepath.Join(base, "idle", "a.gen"))
	if err != nil {
		t.Fatalf("read example: %v", err)
	}
	push := idle.Clone()
	for i := range push {
		push[i] = 2
	}
	if err := loader.WriteGenotypeFile(filepath.Join(base, "push", "a.gen"), push); err != nil {
		t.Fatalf("write push: %v", err)
	}
	return base
}

func writeBlueprint(t *testing.T, base string) string {
	t.Helper()
	desc := blueprint.Description{Name: "pusher", Kind: "centralized", Mapper: "heterogeneous", Sensors: []string{"bias"}, Activation: "tanh"}
	data, err := desc.Marshal()
	if err != nil {
		t.Fatalf("marshal blueprint: %v", err)
	}
	path := filepath.Join(base, "pusher.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write blueprint: %v", err)
	}
	return path
}

func TestRunCommandWritesArtifacts(t *testing.T) {
	base := writeFixture(t)
	ctx := context.Background()

	out, err := captureStdout(t, func() error {
		return run(ctx, []string{"run", "--config", filepath.Join(base, "tournament.yaml"), "--run-id", "cli-run", "--workers", "2"})
	})
	if err != nil {
		t.Fatalf("run command: %v", err)
	}
	if !strings.Contains(out, "run_id=cli-run fixtures=2 matches=2 failures=0 skipped=0") {
		t.Fatalf("unexpected run output:\n%s", out)
	}
	if !strings.Contains(out, "most_home_wins=push (1)") {
		t.Fatalf("expected push to win at home:\n%s", out)
	}

	resultsDir := filepath.Join(base, "out")
	out, err = captureStdout(t, func() error {
		return run(ctx, []string{"summary", "--store", "memory", "--run-id", "cli-run", "--results-dir", resultsDir, "--json"})
	})
	if err != nil {
		t.Fatalf("summary command: %v", err)
	}
	var summary model.Summary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, out)
	}
	if summary.Matches != 2 || summary.MostAwayWins.Team != "push" {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	out, err = captureStdout(t, func() error {
		return run(ctx, []string{"matches", "--store", "memory", "--run-id", "cli-run", "--results-dir", resultsDir})
	})
	if err != nil {
		t.Fatalf("matches command: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "home=push/0 away=idle/0 home_won=true") {
		t.Fatalf("unexpected matches output:\n%s", out)
	}

	if err := run(ctx, []string{"summary", "--store", "memory", "--run-id", "missing", "--results-dir", resultsDir}); err == nil {
		t.Fatal("expected unknown run error")
	}
}

func TestRunCommandRequiresConfig(t *testing.T) {
	if err := run(context.Background(), []string{"run"}); err == nil {
		t.Fatal("expected missing config error")
	}
	if err := run(context.Background(), []string{"run", "--config", filepath.Join(t.TempDir(), "missing.yaml")}); err == nil {
		t.Fatal("expected unreadable config error")
	}
}

func TestExampleCommandUsesDefaultBlueprint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.gen")
	if _, err := captureStdout(t, func() error {
		return run(context.Background(), []string{"example", "--out", path})
	}); err != nil {
		t.Fatalf("example: %v", err)
	}
	genotype, err := loader.ReadGenotypeFile(path)
	if err != nil {
		t.Fatalf("read example: %v", err)
	}
	if len(genotype) == 0 {
		t.Fatal("expected a non-empty example genotype")
	}
	if err := run(context.Background(), []string{"example"}); err == nil {
		t.Fatal("expected missing --out error")
	}
}

func TestDefaultsCommandWritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defaults.yaml")
	if _, err := captureStdout(t, func() error {
		return run(context.Background(), []string{"defaults", "--out", path})
	}); err != nil {
		t.Fatalf("defaults: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load written defaults: %v", err)
	}
	if cfg.Engine.Name != "sumo" || cfg.Schedule.Policy != "full_cross" {
		t.Fatalf("unexpected round-tripped config: %+v", cfg)
	}
}

func TestRunsAndEnginesCommands(t *testing.T) {
	out, err := captureStdout(t, func() error {
		return run(context.Background(), []string{"runs", "--store", "memory"})
	})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if strings.TrimSpace(out) != "no runs found" {
		t.Fatalf("unexpected runs output: %q", out)
	}
	if err := run(context.Background(), []string{"runs", "--store", "memory", "--limit", "0"}); err == nil {
		t.Fatal("expected limit error")
	}

	out, err = captureStdout(t, func() error {
		return run(context.Background(), []string{"engines"})
	})
	if err != nil {
		t.Fatalf("engines: %v", err)
	}
	if !strings.Contains(out, "sumo") {
		t.Fatalf("expected sumo engine, got %q", out)
	}
}

func TestUnknownCommand(t *testing.T) {
	if err := run(context.Background(), nil); err == nil {
		t.Fatal("expected missing command error")
	}
	err := run(context.Background(), []string{"bogus"})
	if err == nil || !strings.Contains(err.Error(), "unknown command: bogus") {
		t.Fatalf("unexpected error: %v", err)
	}
}
