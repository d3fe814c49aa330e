package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestWritersDisabledWithoutDir(t *testing.T) {
	var c Config
	out, errw := c.Writers("web")
	if out != nil || errw != nil {
		t.Fatalf("expected nil writers when Dir is empty, got %v %v", out, errw)
	}
}

func TestWritersCreateFiles(t *testing.T) {
	dir := t.TempDir()
	c := Config{Dir: dir}
	out, errw := c.Writers("/home/me/web")
	if out == nil || errw == nil {
		t.Fatal("expected writers")
	}
	if _, err := out.Write([]byte("hello\n")); err != nil {
		t.Fatalf("stdout write: %v", err)
	}
	if _, err := errw.Write([]byte("oops\n")); err != nil {
		t.Fatalf("stderr write: %v", err)
	}
	_ = out.Close()
	_ = errw.Close()
	if _, err := os.Stat(filepath.Join(dir, "home_me_web.stdout.log")); err != nil {
		t.Fatalf("stdout log missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "home_me_web.stderr.log")); err != nil {
		t.Fatalf("stderr log missing: %v", err)
	}
}

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"/home/me/web":     "home_me_web",
		`C:\dev\api`:       "C__dev_api",
		"my project":       "my_project",
		"":                 "session",
		"///":              "session",
	}
	for in, want := range cases {
		if got := sanitize(in); got != want {
			t.Fatalf("sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"Warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
