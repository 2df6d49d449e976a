package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/kindflow/errors"
	"github.com/kbukum/kindflow/internal/demo"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestRoot_InvalidFormat(t *testing.T) {
	_, err := execute(t, "version", "--format", "xml")
	if err == nil {
		t.Fatal("expected error")
	}
	if code := ExitCode(err); code != ExitCommandError {
		t.Fatalf("expected exit code %d, got %d", ExitCommandError, code)
	}
}

func TestVersion_JSON(t *testing.T) {
	out, err := execute(t, "version", "--format", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var info map[string]any
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if _, ok := info["version"]; !ok {
		t.Fatalf("expected a version field, got %v", info)
	}
}

func TestGraph_Text(t *testing.T) {
	out, err := execute(t, "graph", demo.EventBasics)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"level 0", "records", "level 3", "event_basics", "depends_on=events,peaks", "save=ALWAYS"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, demo.PeakInfo) {
		t.Errorf("peak_info is not needed for event_basics, got:\n%s", out)
	}
}

func TestGraph_JSONIncludesDeclaredSources(t *testing.T) {
	dir := t.TempDir()
	sources := filepath.Join(dir, "sources.yaml")
	if err := os.WriteFile(sources, []byte("sources:\n  - provides: hits\n    fields: [{name: time, type: int64}]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(cfgPath, []byte("sources: "+sources+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "graph", "--config", cfgPath, "--format", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var info GraphInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	var names []string
	for _, p := range info.Levels[0] {
		names = append(names, p.Provides)
	}
	if strings.Join(names, ",") != "hits,records" {
		t.Fatalf("expected both placeholders on level 0, got %v", names)
	}
	if info.Levels[0][0].Save != "NEVER" {
		t.Fatalf("expected placeholders never to be saved, got %s", info.Levels[0][0].Save)
	}
}

func TestGraph_UnknownTarget(t *testing.T) {
	_, err := execute(t, "graph", "nope")
	if !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if code := ExitCode(err); code != ExitCommandError {
		t.Fatalf("expected exit code %d, got %d", ExitCommandError, code)
	}
}

func TestRun_JSONSummary(t *testing.T) {
	out, err := execute(t, "run", demo.PeakInfo,
		"--records", "200", "--chunk-size", "30", "--batch-size", "64", "--show", "2", "--format", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var s RunSummary
	if err := json.Unmarshal([]byte(out), &s); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if s.Target != demo.PeakInfo || s.Rows != 200 {
		t.Fatalf("expected 200 peak_info rows, got %+v", s)
	}
	if len(s.Sample) != 2 || len(s.Sample[0]) != len(s.Fields) {
		t.Fatalf("expected 2 sample rows of %d fields, got %v", len(s.Fields), s.Sample)
	}
	if s.RunID == "" {
		t.Fatal("expected a run id")
	}
}

func TestRun_DefaultTargetText(t *testing.T) {
	out, err := execute(t, "run", "--records", "50", "--chunk-size", "10", "--show", "0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out, demo.EventBasics+": ") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestRun_PlaceholderTargetFails(t *testing.T) {
	dir := t.TempDir()
	sources := filepath.Join(dir, "sources.yaml")
	if err := os.WriteFile(sources, []byte("sources:\n  - provides: hits\n    fields: [{name: time, type: int64}]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfgPath := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(cfgPath, []byte("sources: "+sources+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := execute(t, "run", "hits", "--config", cfgPath)
	if !errors.HasCode(err, errors.ErrCodeNotRegistered) {
		t.Fatalf("expected not-registered error, got %v", err)
	}
	if code := ExitCode(err); code != ExitFailure {
		t.Fatalf("expected exit code %d, got %d", ExitFailure, code)
	}
}

func TestExitCode(t *testing.T) {
	if ExitCode(nil) != ExitSuccess {
		t.Error("nil error should exit 0")
	}
	if ExitCode(errors.Configuration("bad")) != ExitCommandError {
		t.Error("configuration errors are command errors")
	}
	if ExitCode(errors.NotRegistered("x")) != ExitFailure {
		t.Error("stream errors are failures")
	}
	if ExitCode(WrapExitError(7, "custom", nil)) != 7 {
		t.Error("explicit exit codes win")
	}
}
