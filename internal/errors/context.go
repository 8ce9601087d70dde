package errors

import (
	"fmt"
	"strings"
)

// FormatSourceContext renders the offending source line with a caret pointer,
// padded line numbers, and one line of context on each side.
//
//	  2 | let x = 1;
//	> 3 | x ++;
//	    |   ^
//	  4 | x;
func FormatSourceContext(source string, loc SourceLocation) string {
	lines := strings.Split(source, "\n")
	if loc.Line == 0 || int(loc.Line) > len(lines) {
		return ""
	}

	first := int(loc.Line) - 1
	if first < 1 {
		first = 1
	}
	last := int(loc.Line) + 1
	if last > len(lines) {
		last = len(lines)
	}

	width := len(fmt.Sprintf("%d", last))
	var b strings.Builder
	for n := first; n <= last; n++ {
		marker := "  "
		if n == int(loc.Line) {
			marker = "> "
		}
		fmt.Fprintf(&b, "%s%*d | %s\n", marker, width, n, lines[n-1])
		if n == int(loc.Line) {
			col := int(loc.Column)
			if col < 1 {
				col = 1
			}
			fmt.Fprintf(&b, "  %s | %s^\n", strings.Repeat(" ", width), strings.Repeat(" ", col-1))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
