package proc

import "strings"

// QuoteWindowsArg quotes a single argument per the Windows command-line
// conventions: backslashes immediately preceding a quote are doubled, and
// the whole argument is wrapped in quotes if it is empty or contains a
// space, tab or double quote.
func QuoteWindowsArg(arg string) string {
	needsQuotes := arg == "" || strings.ContainsAny(arg, " \t")
	if !needsQuotes && !strings.Contains(arg, "\"") {
		return arg
	}

	var b strings.Builder
	b.WriteByte('"')

	backslashes := 0
	for _, r := range arg {
		switch r {
		case '\\':
			backslashes++
			b.WriteByte('\\')
		case '"':
			// Double every backslash that precedes the quote, then escape
			// the quote itself.
			for i := 0; i < backslashes; i++ {
				b.WriteByte('\\')
			}
			b.WriteString(`\"`)
			backslashes = 0
		default:
			backslashes = 0
			b.WriteRune(r)
		}
	}
	// Trailing backslashes must be doubled because they immediately
	// precede the closing quote we are about to write.
	for i := 0; i < backslashes; i++ {
		b.WriteByte('\\')
	}
	b.WriteByte('"')
	return b.String()
}

// QuoteWindowsArgs joins and quotes a full argv per the same conventions.
func QuoteWindowsArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = QuoteWindowsArg(a)
	}
	return strings.Join(quoted, " ")
}
