package agent

import (
	"regexp"
	"strings"
)

// The upstream model occasionally stutters, emitting a token twice in a row
// ("the the") or doubling a contraction suffix ("I'm'm"). CleanStutter masks
// both artifacts. It operates on the entire accumulated transcript and is
// idempotent, so it can be re-applied after every delta.
//
// TODO: the whole-word collapse can eat intentionally repeated words inside
// generated code comments; revisit once the upstream stutter is fixed.
func CleanStutter(s string) string {
	s = collapseDoubledContractions(s)
	return collapseRepeatedWords(s)
}

var wordRE = regexp.MustCompile(`[A-Za-z0-9_']+`)

// collapseRepeatedWords removes a word that immediately repeats the previous
// word with only spaces or tabs between them. Runs collapse to a single
// occurrence in one pass, which keeps the operation idempotent.
func collapseRepeatedWords(s string) string {
	locs := wordRE.FindAllStringIndex(s, -1)
	if len(locs) < 2 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	prevWord := ""
	emitted := 0
	for _, loc := range locs {
		word := s[loc[0]:loc[1]]
		sep := s[emitted:loc[0]]
		if word == prevWord && sep != "" && strings.Trim(sep, " \t") == "" {
			emitted = loc[1]
			continue
		}
		b.WriteString(sep)
		b.WriteString(word)
		emitted = loc[1]
		prevWord = word
	}
	b.WriteString(s[emitted:])
	return b.String()
}

var contractionRE = regexp.MustCompile(`'([A-Za-z]+)'([A-Za-z]+)`)

// collapseDoubledContractions rewrites "I'm'm"-style doubled contraction
// suffixes to the single form. Iterates to a fixpoint so chains of doubled
// suffixes fully collapse in one call.
func collapseDoubledContractions(s string) string {
	for {
		next := collapseDoubledContractionsOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func collapseDoubledContractionsOnce(s string) string {
	matches := contractionRE.FindAllStringSubmatchIndex(s, -1)
	if matches == nil {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	last := 0
	for _, m := range matches {
		if m[0] < last {
			continue
		}
		first := s[m[2]:m[3]]
		second := s[m[4]:m[5]]
		if first != second {
			continue
		}
		b.WriteString(s[last:m[0]])
		b.WriteByte('\'')
		b.WriteString(first)
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String()
}
