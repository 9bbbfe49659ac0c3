package parsers

import (
	"io"
	"strings"

	logpkg "github.com/haukened/rr-policy/internal/policy/common/log"
	"github.com/haukened/rr-policy/internal/policy/domain"
)

// ParseRestrictions parses network restriction lines of the form
//
//	<CIDR> <addr-or-@domain> [<addr-or-@domain> ...]
//
// into rules in file order.
//
// Behavior:
// - Skips blank lines and lines starting with '#'
// - Skips lines with fewer than two whitespace separated tokens
// - Skips lines whose first token is not a network (host bits are allowed)
// - Keeps allow-list tokens verbatim and in order
// - Accepts lines of any length
// - On a read error, returns the rules collected so far along with the error
func ParseRestrictions(r io.Reader, source string, logger logpkg.Logger) (domain.RuleTable, error) {
	out := make(domain.RuleTable, 0, 32)
	logger.Debug(map[string]any{"source": source}, "parse_restrictions_start")

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

		fields := strings.Fields(line)
		if len(fields) < 2 {
			logger.Debug(map[string]any{"source": source, "line": lineNum}, "skip_no_allow_list")
			return
		}

		rule, err := domain.NewNetworkRule(fields[0], fields[1:], source, lineNum)
		if err != nil {
			logger.Debug(map[string]any{"source": source, "line": lineNum, "error": err}, "skip_invalid_network")
			return
		}
		out = append(out, rule)
		logger.Debug(map[string]any{
			"source":  source,
			"line":    lineNum,
			"network": rule.Network.String(),
			"entries": len(rule.AllowList),
		}, "emit_rule")
	})
	if err != nil {
		logger.Debug(map[string]any{"source": source, "error": err}, "parse_restrictions_read_error")
		return out, err
	}
	logger.Debug(map[string]any{"source": source, "count": len(out)}, "parse_restrictions_done")
	return out, nil
}
