package memory

import (
	"strings"
	"unicode"
)

// cleanGameboyTitle turns the raw header title into something printable:
// NUL padding becomes spaces, non-printable bytes become '?', and CGB
// manufacturer/flag bytes sharing the field are trimmed away.
func cleanGameboyTitle(titleBytes []byte) string {
	runes := make([]rune, 0, len(titleBytes))

	for i, b := range titleBytes {
		// bytes 15 (CGB flag) and 11-14 (manufacturer code) overlap the
		// title on later carts, stop at the CGB flag when it is set
		if i == 15 && b&0x80 != 0 {
			break
		}
		r := rune(b)
		switch {
		case r == 0:
			r = ' '
		case r > unicode.MaxASCII || !unicode.IsPrint(r):
			r = '?'
		}
		runes = append(runes, r)
	}

	title := strings.TrimSpace(string(runes))
	if title == "" {
		return "(Untitled)"
	}

	return title
}
