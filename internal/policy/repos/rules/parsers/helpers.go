package parsers

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/haukened/rr-policy/internal/policy/common/utils"
)

// readLines calls fn with every line of r and its 1-based number. Lines have no
// length limit, so one oversized line cannot hide the lines after it. The
// returned error is the first read error other than io.EOF.
func readLines(r io.Reader, fn func(lineNum int, raw string)) error {
	br := bufio.NewReader(r)
	lineNum := 0
	for {
		raw, err := br.ReadString('\n')
		if raw != "" {
			lineNum++
			fn(lineNum, raw)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// classifyLine trims a raw line and reports whether it carries content.
// Blank lines and lines whose first non-space character is '#' carry none.
func classifyLine(raw string) (line string, isEmpty, isComment bool) {
	line = strings.TrimSpace(utils.StripBOM(raw))
	if line == "" {
		return "", true, false
	}
	if strings.HasPrefix(line, "#") {
		return line, false, true
	}
	return line, false, false
}
