package board

import "strings"

// NormalizeContents turns literal backslash-n sequences, as sent by form
// clients, into real newlines.
func NormalizeContents(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}
