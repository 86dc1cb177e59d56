package compare

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// SoundsAlike reports whether two tokens share a Double Metaphone code. A
// flagged pair that sounds alike was more likely misheard by the recognizer
// than misread by the speaker.
func SoundsAlike(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	ap, as := matchr.DoubleMetaphone(a)
	bp, bs := matchr.DoubleMetaphone(b)
	for _, x := range []string{ap, as} {
		if x == "" {
			continue
		}
		if x == bp || x == bs {
			return true
		}
	}
	return false
}
