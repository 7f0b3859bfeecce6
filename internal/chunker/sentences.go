package chunker

import (
	"strings"
	"unicode"
)

// isTerminator reports whether r ends a sentence. Besides Western marks it
// covers the danda (।), the double danda (॥) and the Bengali currency
// numerator four (৷), which OCR output routinely emits in place of a danda.
func isTerminator(r rune) bool {
	switch r {
	case '.', '!', '?', '।', '॥', '৷':
		return true
	}
	return false
}

// Sentences splits text into whitespace-normalised sentences. A terminator
// only closes a sentence when followed by whitespace or the end of the text,
// so decimals such as "4.5" stay intact. Runs of terminators ("?!", "...")
// stay with the sentence they close.
func Sentences(text string) []string {
	runes := []rune(text)
	var out []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminator(runes[i]) {
			continue
		}
		j := i + 1
		for j < len(runes) && isTerminator(runes[j]) {
			j++
		}
		if j == len(runes) || unicode.IsSpace(runes[j]) {
			out = appendSentence(out, string(runes[start:j]))
			start = j
		}
		i = j - 1
	}
	return appendSentence(out, string(runes[start:]))
}

func appendSentence(out []string, s string) []string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return out
	}
	return append(out, strings.Join(fields, " "))
}
