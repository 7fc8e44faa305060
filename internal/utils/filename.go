package utils

import (
	"regexp"
	"strings"
)

var (
	// Characters invalid in filenames on most filesystems, control
	// characters included
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]+`)
	// Multiple spaces to collapse
	multipleSpaces = regexp.MustCompile(`\s+`)
)

// maxFilenameLength leaves room for a LUID prefix and an extension.
const maxFilenameLength = 200

// SanitizeFilename turns a story title into something every filesystem
// accepts. Runs of invalid characters become a single underscore.
func SanitizeFilename(filename string) string {
	filename = invalidFilenameChars.ReplaceAllString(filename, "_")
	filename = multipleSpaces.ReplaceAllString(filename, " ")
	filename = strings.TrimSpace(filename)

	if len(filename) > maxFilenameLength {
		cut := maxFilenameLength
		// do not split a multi-byte rune
		for cut > 0 && !isRuneStart(filename[cut]) {
			cut--
		}
		filename = strings.TrimSpace(filename[:cut])
	}

	if filename == "" {
		filename = "untitled"
	}
	return filename
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
