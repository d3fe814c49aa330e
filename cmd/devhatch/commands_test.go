package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildRootHasSubcommands(t *testing.T) {
	root := buildRoot()
	want := map[string]bool{
		"serve": false, "start": false, "stop": false,
		"status": false, "url": false, "history": false, "version": false,
	}
	for _, c := range root.Commands() {
		name := strings.Fields(c.Use)[0]
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, ok := range want {
		if !ok {
			t.Fatalf("missing subcommand %q", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	root := buildRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
}

func TestStartUnknownProject(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "devhatch.toml")
	body := `
[[projects]]
name = "web"
path = "/home/me/web"
command = "npm run dev"
`
	if err := os.WriteFile(cfgPath, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	root := buildRoot()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"start", "nonexistent", "--config", cfgPath})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "unknown project") {
		t.Fatalf("expected unknown project error, got %v", err)
	}
}

func TestStartMissingConfig(t *testing.T) {
	root := buildRoot()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"status", "--config", filepath.Join(t.TempDir(), "absent.toml")})
	if err := root.Execute(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestHistoryDisabled(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "devhatch.toml")
	body := `
[[projects]]
name = "web"
path = "/home/me/web"
command = "npm run dev"
`
	if err := os.WriteFile(cfgPath, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	root := buildRoot()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"history", "--config", cfgPath})
	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "history is disabled") {
		t.Fatalf("expected disabled-history error, got %v", err)
	}
}
