package utils

import "strings"

// CanonicalAddress returns an email address in the form used for set
// membership and allow-list comparison:
// - Trimmed of surrounding whitespace
// - Lowercased (local part included, matching how the rule files are keyed)
func CanonicalAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// StripBOM removes a leading UTF-8 byte-order mark, which editors on some
// platforms prepend to the first line of a rule file.
func StripBOM(line string) string {
	return strings.TrimPrefix(line, "\uFEFF")
}
