//go:build !windows

package prober

import "testing"

func TestParsePS(t *testing.T) {
	out := `
  101 /usr/bin/node /home/me/web/node_modules/.bin/vite
  202 node /home/me/other/server.js
  303 /bin/sh -c npm run dev
  404 nginx: worker process
`
	infos, err := parsePS(out, []string{"node"}, "/home/me/web")
	if err != nil {
		t.Fatalf("parsePS: %v", err)
	}
	if len(infos) != 1 || infos[0].PID != 101 {
		t.Fatalf("got %#v", infos)
	}
}

func TestParsePSUnparseable(t *testing.T) {
	if _, err := parsePS("garbage without pids", []string{"node"}, "/p"); err == nil {
		t.Fatalf("expected error for unparseable output")
	}
}

func TestParsePSEmpty(t *testing.T) {
	infos, err := parsePS("", []string{"node"}, "/p")
	if err != nil || len(infos) != 0 {
		t.Fatalf("got %#v err=%v", infos, err)
	}
}
