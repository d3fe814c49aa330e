package urldetect

import (
	"io"
	"regexp"
	"strings"
	"sync"
)

// ANSI escape stripping: CSI sequences (ESC [ ... final byte) and OSC
// sequences (ESC ] ... BEL). Dev servers color their banners heavily.
var (
	csiRe  = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)
	oscRe  = regexp.MustCompile(`\x1b\][^\x07]*\x07`)
	ctrlRe = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
)

// Patterns are tried in priority order; the first pattern with any match
// wins and its first match is used.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`https?://localhost:\d+(?:/[^\s"']*)?`),
	regexp.MustCompile(`https?://127\.0\.0\.1:\d+(?:/[^\s"']*)?`),
	regexp.MustCompile(`https?://\[::1\]:\d+(?:/[^\s"']*)?`),
	regexp.MustCompile(`localhost:\d+`),
	regexp.MustCompile(`127\.0\.0\.1:\d+`),
}

// Extract scans a single output chunk for a local dev-server URL and returns
// it normalized. Chunks are scanned independently; a URL split across two
// chunks is not found (known limitation of per-chunk scanning).
func Extract(chunk string) (string, bool) {
	clean := csiRe.ReplaceAllString(chunk, "")
	clean = oscRe.ReplaceAllString(clean, "")
	clean = ctrlRe.ReplaceAllString(clean, "")
	for _, re := range patterns {
		if m := re.FindString(clean); m != "" {
			return Normalize(m), true
		}
	}
	return "", false
}

// Normalize prepends http:// when the match has no scheme and strips a
// single trailing slash.
func Normalize(raw string) string {
	u := raw
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "http://" + u
	}
	return strings.TrimSuffix(u, "/")
}

// Detector latches the first URL seen across any number of chunks from any
// number of streams. Once a URL is found, all later output is ignored and
// the callback fires exactly once.
type Detector struct {
	mu      sync.Mutex
	found   bool
	url     string
	onFound func(url string)
}

func New(onFound func(url string)) *Detector {
	return &Detector{onFound: onFound}
}

// Feed scans one chunk. It returns true when this chunk produced the first
// (and only) match.
func (d *Detector) Feed(chunk []byte) bool {
	d.mu.Lock()
	if d.found {
		d.mu.Unlock()
		return false
	}
	u, ok := Extract(string(chunk))
	if !ok {
		d.mu.Unlock()
		return false
	}
	d.found = true
	d.url = u
	cb := d.onFound
	d.mu.Unlock()
	if cb != nil {
		cb(u)
	}
	return true
}

// URL returns the latched URL, if any.
func (d *Detector) URL() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url, d.found
}

// Watch reads r in chunks and feeds each to the detector until EOF or a
// read error. It keeps draining after a match so the child process never
// blocks on a full pipe. Intended to run in its own goroutine per stream.
func (d *Detector) Watch(r io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			d.Feed(buf[:n])
		}
		if err != nil {
			return
		}
	}
}
