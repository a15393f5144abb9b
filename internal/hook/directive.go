// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package hook

import (
	"bufio"
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/oops"
)

// orderDirective matches "@order <int>" inside a leading comment line.
var orderDirective = regexp.MustCompile(`^@order\s+(\S+)\s*$`)

// commentPrefixes are the line-comment markers recognized in hook headers.
var commentPrefixes = []string{"--", "#", "//"}

// ParseOrder reads the order hint from the leading comment block of a hook
// source file. Scanning stops at the first line that is neither blank nor a
// comment. found is false when no directive is present.
func ParseOrder(src []byte) (order int, found bool, err error) {
	sc := bufio.NewScanner(bytes.NewReader(src))
	sc.Buffer(nil, max(len(src)+1, bufio.MaxScanTokenSize))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		body, ok := stripComment(line)
		if !ok {
			break
		}
		m := orderDirective.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		n, convErr := strconv.Atoi(m[1])
		if convErr != nil {
			return 0, false, oops.In("hook").
				Code(CodeInvalidDirective).
				With("value", m[1]).
				Wrapf(convErr, "@order must be an integer")
		}
		return n, true, nil
	}
	if err := sc.Err(); err != nil {
		return 0, false, oops.In("hook").Code(CodeInvalidDirective).Wrapf(err, "read header comments")
	}
	return 0, false, nil
}

func stripComment(line string) (string, bool) {
	for _, p := range commentPrefixes {
		if rest, ok := strings.CutPrefix(line, p); ok {
			return strings.TrimSpace(strings.TrimLeft(rest, p[:1])), true
		}
	}
	return "", false
}
