package format

import "strings"

// baseSpecials are always escaped for MarkdownV2 regardless of mode.
// '*' and '_' are handled separately so paired emphasis can survive.
const baseSpecials = "\\[]()~`>#+-=|{}.!"

// Escape sanitizes text for the Telegram MarkdownV2 renderer by prefixing
// reserved characters with a backslash.
//
// With allowMarkup false every '*' and '_' is escaped too, so no emphasis is
// ever rendered. With allowMarkup true the positions of each marker in the
// already-escaped string are paired left-to-right, (1st,2nd), (3rd,4th), ...;
// paired markers stay literal and an unpaired trailing marker is escaped.
// The two marker streams are paired independently. This is a positional
// heuristic, not a parser: it neither validates nesting nor distinguishes
// opening from closing markers.
func Escape(text string, allowMarkup bool) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, r := range text {
		if r < 128 && strings.ContainsRune(baseSpecials, r) {
			b.WriteByte('\\')
		} else if !allowMarkup && (r == '*' || r == '_') {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	if !allowMarkup {
		return b.String()
	}

	s := preservePairs(b.String(), '*')
	return preservePairs(s, '_')
}

// preservePairs escapes every occurrence of marker that does not belong to a
// left-to-right position pair.
func preservePairs(s string, marker rune) string {
	count := strings.Count(s, string(marker))
	if count == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2)
	seen := 0
	paired := count - count%2
	for _, r := range s {
		if r == marker {
			if seen >= paired {
				b.WriteByte('\\')
			}
			seen++
		}
		b.WriteRune(r)
	}
	return b.String()
}
