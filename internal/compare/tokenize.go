package compare

import "strings"

// Strip removes every byte that is not an ASCII letter.
func Strip(word string) string {
	var b strings.Builder
	b.Grow(len(word))
	for i := 0; i < len(word); i++ {
		ch := word[i]
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') {
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// Tokenize splits text on whitespace and keeps the ASCII letters of each word.
// Words with no letters at all produce no token.
func Tokenize(text string) []string {
	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := Strip(f); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}
