package media

import (
	"strings"
)

// unsafeChars are stripped from titles before they become file names. This is
// deliberately aggressive: playlist entries end up on portable players with
// unknown filesystem rules.
const unsafeChars = " &/\\#,+()$~%.'\":*?<>{}|"

// SafeFileName strips characters that are unsafe in file names. The mapping
// must stay stable, cached files are located by the sanitized title.
func SafeFileName(unsafe string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(unsafeChars, r) {
			return -1
		}
		return r
	}, unsafe)
}
