package session

import "strings"

// SplitCommand tokenizes a configured dev-server command on whitespace.
// Quoting is intentionally not supported: commands like `npm run dev` are
// the norm, and changing the tokenization would change behavior for
// already-configured projects.
func SplitCommand(command string) []string {
	return strings.Fields(command)
}
