package render

import "strings"

const (
	htmlSpecials = "&<>\"'\r"
	attrSpecials = "&<>\"'\n\r\t"
)

// escapeHTML escapes text for inclusion in element content. Carriage returns
// are escaped because parsers fold them into newlines. It returns s itself
// when nothing needs escaping.
func escapeHTML(s string) string {
	if !strings.ContainsAny(s, htmlSpecials) {
		return s
	}
	return string(appendEscaped(make([]byte, 0, len(s)+16), s, false))
}

// escapeAttr escapes text for inclusion in a double-quoted attribute value.
// Whitespace that attribute normalization would fold is escaped too.
func escapeAttr(s string) string {
	if !strings.ContainsAny(s, attrSpecials) {
		return s
	}
	return string(appendEscaped(make([]byte, 0, len(s)+16), s, true))
}

func appendEscaped(dst []byte, s string, attr bool) []byte {
	last := 0
	for i := 0; i < len(s); i++ {
		var esc string
		switch s[i] {
		case '&':
			esc = "&amp;"
		case '<':
			esc = "&lt;"
		case '>':
			esc = "&gt;"
		case '"':
			esc = "&quot;"
		case '\'':
			esc = "&#39;"
		case '\n':
			if attr {
				esc = "&#10;"
			}
		case '\r':
			esc = "&#13;"
		case '\t':
			if attr {
				esc = "&#9;"
			}
		}
		if esc == "" {
			continue
		}
		dst = append(dst, s[last:i]...)
		dst = append(dst, esc...)
		last = i + 1
	}
	return append(dst, s[last:]...)
}
