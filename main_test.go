package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"blockstream/internal/blocks"
	"blockstream/internal/config"
	"blockstream/internal/transcript"
)

// useTempHome points config lookups at an empty home and loads defaults.
func useTempHome(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	activeProfile, verbose, jsonOutput = "", false, false
	t.Cleanup(func() { jsonOutput = false })
	if err := setup(); err != nil {
		t.Fatalf("setup() error = %v", err)
	}
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	jsonOutput = false
	return out.String(), err
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	want := []string{"parse", "replay", "ask", "watch", "config", "set", "profiles", "version"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	for _, flag := range []string{"profile", "verbose", "json"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("persistent flag --%s missing", flag)
		}
	}
}

func TestParseCommandStdin(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	buf := "Intro\n\n" + `[kpi:{"label":"Users","value":42}]` + "\nOutro"

	out, err := execute(t, buf, "parse")
	if err != nil {
		t.Fatalf("parse error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("want 3 summary lines, got %d:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[1], "KPI") || !strings.Contains(lines[1], "Users = 42") {
		t.Errorf("KPI line = %q", lines[1])
	}
}

func TestParseCommandJSON(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "resp.txt")
	buf := "| A | B |\n|---|---|\n| 1 | 2 |\n"
	if err := os.WriteFile(path, []byte(buf), 0600); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "", "parse", path, "--json")
	if err != nil {
		t.Fatalf("parse error = %v", err)
	}

	var got []struct {
		ID     string `json:"id"`
		Kind   string `json:"kind"`
		Marker struct {
			Payload blocks.Table `json:"payload"`
		} `json:"marker"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(got) != 1 || got[0].Kind != "table" || got[0].ID != "table_0" {
		t.Fatalf("blocks = %+v", got)
	}
	if strings.Join(got[0].Marker.Payload.Headers, ",") != "A,B" {
		t.Errorf("headers = %v", got[0].Marker.Payload.Headers)
	}
}

func TestParseCommandMissingFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	_, err := execute(t, "", "parse", filepath.Join(t.TempDir(), "nope.txt"))
	if err == nil || !strings.Contains(err.Error(), "reading input") {
		t.Errorf("error = %v, want reading input failure", err)
	}
}

func TestVersionCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	out, err := execute(t, "", "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "blockstream ") {
		t.Errorf("version output = %q", out)
	}
}

func TestVersionString(t *testing.T) {
	tests := []struct {
		name       string
		version    string
		commit     string
		date       string
		wantPrefix string
		wantCommit bool
	}{
		{
			name:       "dev build",
			version:    "dev",
			commit:     "none",
			date:       "unknown",
			wantPrefix: "blockstream dev",
			wantCommit: false,
		},
		{
			name:       "release build",
			version:    "v1.2.3",
			commit:     "abc1234",
			date:       "2026-02-25T10:00:00Z",
			wantPrefix: "blockstream v1.2.3",
			wantCommit: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			origVersion, origCommit, origDate := version, commit, date
			defer func() { version, commit, date = origVersion, origCommit, origDate }()

			version, commit, date = tt.version, tt.commit, tt.date
			got := versionString()

			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("versionString() = %q, want prefix %q", got, tt.wantPrefix)
			}
			if hasCommit := strings.Contains(got, "commit:"); hasCommit != tt.wantCommit {
				t.Errorf("versionString() commit present = %v, want %v\noutput: %q", hasCommit, tt.wantCommit, got)
			}
			if tt.wantCommit && (!strings.Contains(got, tt.commit) || !strings.Contains(got, tt.date)) {
				t.Errorf("versionString() = %q, should contain commit and date", got)
			}
		})
	}
}

func TestSetAndConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	if _, err := execute(t, "", "--profile", "work", "set", "model", "gpt-4o-mini"); err != nil {
		t.Fatalf("set error = %v", err)
	}
	if _, err := execute(t, "", "--profile", "work", "set", "api_key", "sk-abcdefghijkl"); err != nil {
		t.Fatalf("set error = %v", err)
	}
	if _, err := execute(t, "", "set", "interval_ms", "soon"); err == nil {
		t.Error("set with a bad value should fail")
	}

	loaded, err := config.Load("work")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q, want gpt-4o-mini", loaded.Model)
	}

	out, err := execute(t, "", "--profile", "work", "config", "--json")
	if err != nil {
		t.Fatalf("config error = %v", err)
	}
	var values map[string]string
	if err := json.Unmarshal([]byte(out), &values); err != nil {
		t.Fatalf("config output is not JSON: %v\n%s", err, out)
	}
	if values["model"] != "gpt-4o-mini" {
		t.Errorf("model = %q", values["model"])
	}
	if values["api_key"] != "sk-abc..." {
		t.Errorf("api_key should be masked, got %q", values["api_key"])
	}
	activeProfile = ""
}

func TestMaskSecret(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"ab", "a..."},
		{"sk-abcdefghijkl", "sk-abc..."},
	}
	for _, tt := range tests {
		if got := maskSecret(tt.in); got != tt.want {
			t.Errorf("maskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadTranscripts(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "rec.yaml")
	txtPath := filepath.Join(dir, "plain.md")
	if err := os.WriteFile(yamlPath, []byte("name: rec\nchunks:\n  - text: hi\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(txtPath, []byte("0123456789"), 0600); err != nil {
		t.Fatal(err)
	}

	ts, err := loadTranscripts([]string{yamlPath, txtPath}, replayOptions{chunk: 4})
	if err != nil {
		t.Fatalf("loadTranscripts() error = %v", err)
	}
	if len(ts) != 2 {
		t.Fatalf("got %d transcripts, want 2", len(ts))
	}
	if ts[0].Name != "rec" || len(ts[1].Chunks) != 3 {
		t.Errorf("transcripts = %q (%d chunks), %q (%d chunks)", ts[0].Name, len(ts[0].Chunks), ts[1].Name, len(ts[1].Chunks))
	}

	demo, err := loadTranscripts(nil, replayOptions{})
	if err != nil || len(demo) != 1 {
		t.Fatalf("demo transcripts = %v, %v", demo, err)
	}
}

func TestReplayAll(t *testing.T) {
	useTempHome(t)

	demo, err := transcript.Load("")
	if err != nil {
		t.Fatal(err)
	}
	plain := transcript.FromText("plain", `Hi [kpi:{"label":"x","value":1}]`, 5, 0)

	results, err := replayAll(context.Background(), []*transcript.Transcript{demo, plain}, replayOptions{speed: 0, progress: true, concurrency: 2})
	if err != nil {
		t.Fatalf("replayAll() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results", len(results))
	}
	for _, r := range results {
		if r.flushes == 0 || len(r.blocks) == 0 {
			t.Errorf("%s: %d flushes, %d blocks", r.name, r.flushes, len(r.blocks))
		}
		for _, b := range r.blocks {
			if c, ok := b.Chain(); ok && c.Loading() {
				t.Errorf("%s: chain still loading after completion", r.name)
			}
		}
	}

	var out bytes.Buffer
	printReplay(&out, results, false)
	for _, want := range []string{"quarterly-review", "plain", "Completed", "KPI"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("replay output missing %q:\n%s", want, out.String())
		}
	}
}

func TestReplayAllCancelled(t *testing.T) {
	useTempHome(t)

	slow := &transcript.Transcript{Name: "slow", Chunks: []transcript.Chunk{{Text: "a"}, {Text: "b", DelayMS: 60_000}}}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	results, err := replayAll(ctx, []*transcript.Transcript{slow}, replayOptions{speed: 1, concurrency: 1})
	if err == nil {
		t.Fatal("cancelled replay should report an error")
	}
	if len(results) != 1 || results[0].err == nil {
		t.Fatalf("results = %+v", results)
	}
}
