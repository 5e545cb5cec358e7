// Package export renders ledger and fiscal lines as delimited text.
package export

import (
	"bytes"
	"strings"

	"github.com/iho/ledgerimport/internal/domain"
)

const (
	fieldSeparator = ";"
	lineSeparator  = "\r\n"
)

var fieldSanitizer = strings.NewReplacer(
	";", ",",
	"\r\n", " ",
	"\r", " ",
	"\n", " ",
)

// Serializer writes semicolon-separated UTF-8 text with CRLF line endings.
type Serializer struct{}

// NewSerializer creates a new Serializer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// Encode renders one line per entry, each terminated by CRLF. With no lines
// it renders the placeholder as the only line, or returns nil when there is
// no placeholder.
func (s *Serializer) Encode(lines []domain.Line, placeholder string) []byte {
	if len(lines) == 0 {
		if placeholder == "" {
			return nil
		}
		return []byte(fieldSanitizer.Replace(placeholder) + lineSeparator)
	}

	var buf bytes.Buffer
	for _, line := range lines {
		for i, field := range line.Fields() {
			if i > 0 {
				buf.WriteString(fieldSeparator)
			}
			buf.WriteString(fieldSanitizer.Replace(field))
		}
		buf.WriteString(lineSeparator)
	}
	return buf.Bytes()
}
