// ABOUTME: Console output decoding for external diagnostic tools.
// ABOUTME: Valid UTF-8 passes through; everything else falls back to OEM code page 866.

package probe

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// DecodeConsole turns raw console bytes into text. The Windows console tools
// the agent shells out to emit the OEM code page (866 on the Russian
// installs this agent targets), not UTF-8. Decoding never fails: undecodable
// bytes degrade to replacement runes.
func DecodeConsole(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	if utf8.Valid(b) {
		return string(b)
	}

	decoded, err := charmap.CodePage866.NewDecoder().Bytes(b)
	if err != nil {
		return string(bytes.ToValidUTF8(b, []byte("�")))
	}
	return string(decoded)
}
