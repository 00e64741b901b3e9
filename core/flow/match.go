package flow

import (
	"log/slog"
	"strings"
	"unicode"
)

var (
	// quoteReplacer maps the non-breaking space to an ordinary space and the
	// curly quote variants to their straight forms. It must run before the
	// whitespace collapse.
	quoteReplacer = strings.NewReplacer(
		" ", " ",
		"’", "'",
		"‘", "'",
		"“", `"`,
		"”", `"`,
	)
)

// Normalize canonicalises a label or message for comparison: quote and NBSP
// substitution, whitespace collapse, trim, lower-case. The collapse covers
// the full Unicode space repertoire, not only ASCII; mobile keyboards emit
// thin and narrow no-break spaces in several locales. The function is
// idempotent.
func Normalize(s string) string {
	s = quoteReplacer.Replace(s)
	s = strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
	return strings.ToLower(s)
}

type matchEntry struct {
	label  string
	action Action
}

// AnswerIndex resolves normalized reply text to the declared answer of a
// single step.
type AnswerIndex struct {
	entries map[string]matchEntry
	keys    []string
}

// BuildIndex maps normalize(label) to the original answer. When two labels
// normalize to the same key the later declaration wins; the collision is a
// script-authoring smell and is logged as a warning.
func BuildIndex(answers []Answer, log *slog.Logger) *AnswerIndex {
	ix := &AnswerIndex{entries: make(map[string]matchEntry, len(answers))}
	for _, a := range answers {
		key := Normalize(a.Label)
		if prev, dup := ix.entries[key]; dup {
			if log != nil {
				log.Warn("duplicate answer label, later declaration wins",
					slog.String("normalized", key),
					slog.String("kept", a.Label),
					slog.String("shadowed", prev.label),
				)
			}
		} else {
			ix.keys = append(ix.keys, key)
		}
		ix.entries[key] = matchEntry{label: a.Label, action: a.Action}
	}
	return ix
}

// Match normalizes raw text and looks it up. The second return is false when
// no declared label matches.
func (ix *AnswerIndex) Match(raw string) (Answer, bool) {
	e, ok := ix.entries[Normalize(raw)]
	if !ok {
		return Answer{}, false
	}
	return Answer{Label: e.label, Action: e.action}, true
}

// Labels returns the original labels in declaration order, for diagnostics.
func (ix *AnswerIndex) Labels() []string {
	out := make([]string, 0, len(ix.keys))
	for _, k := range ix.keys {
		out = append(out, ix.entries[k].label)
	}
	return out
}

// Len reports the number of distinct normalized labels.
func (ix *AnswerIndex) Len() int {
	return len(ix.entries)
}
