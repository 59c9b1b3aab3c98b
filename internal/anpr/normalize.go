package anpr

import "strings"

// confusables maps characters recognizers commonly misread on plates.
// Plates rarely contain these digit/letter pairs ambiguously, so the
// more plate-like letter reading is preferred.
var confusables = map[rune]rune{
	'0': 'O',
	'1': 'I',
	'5': 'S',
	'8': 'B',
}

// NormalizePlate canonicalises recognized plate text: strips
// non-alphanumeric characters, uppercases, and applies the confusable
// substitutions. The mapping is intentionally lossy and idempotent, and
// is applied identically regardless of which engine produced the text
// so results stay comparable.
func NormalizePlate(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z':
			r -= 'a' - 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		default:
			continue
		}
		if sub, ok := confusables[r]; ok {
			r = sub
		}
		b.WriteRune(r)
	}

	return b.String()
}
