package parsers

import (
	"io"

	logpkg "github.com/haukened/rr-policy/internal/policy/common/log"
	"github.com/haukened/rr-policy/internal/policy/common/utils"
)

// ParseAddressList parses a newline-delimited list of email addresses, as used
// by the denied-senders and blackhole-recipients sources.
//
// Behavior:
// - Skips blank lines and lines starting with '#'
// - Trims surrounding whitespace and lowercases each address
// - De-duplicates while preserving first-seen order
// - Accepts lines of any length
// - On a read error, returns the addresses collected so far along with the error
func ParseAddressList(r io.Reader, source string, logger logpkg.Logger) ([]string, error) {
	seen := make(map[string]struct{})
	out := make([]string, 0, 64)
	logger.Debug(map[string]any{"source": source}, "parse_address_list_start")

	err := readLines(r, func(lineNum int, raw string) {
		line, isEmpty, isComment := classifyLine(raw)
		if isEmpty {
			logger.Debug(map[string]any{"source": source, "line": lineNum}, "skip_empty")
			return
		}
		if isComment {
			logger.Debug(map[string]any{"source": source, "line": lineNum}, "skip_comment")
			return
		}

		addr := utils.CanonicalAddress(line)
		if _, ok := seen[addr]; ok {
			logger.Debug(map[string]any{"source": source, "line": lineNum, "address": addr}, "skip_duplicate")
			return
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	})
	if err != nil {
		logger.Debug(map[string]any{"source": source, "error": err}, "parse_address_list_read_error")
		return out, err
	}
	logger.Debug(map[string]any{"source": source, "count": len(out)}, "parse_address_list_done")
	return out, nil
}
