package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain returns content as text with Windows line endings normalized.
// Invalid UTF-8 sequences become the replacement character.
func extractPlain(content []byte) (string, error) {
	text := string(content)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\ufffd")
	}
	return strings.ReplaceAll(text, "\r\n", "\n"), nil
}
