package keyswap

import (
	"bytes"
	"strings"
)

// line is one line of the merged config with its original terminator.
type line struct {
	text string
	eol  string
}

func splitLines(data []byte) []line {
	var lines []line
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			lines = append(lines, line{text: string(data)})
			break
		}
		text, eol := data[:i], "\n"
		if len(text) > 0 && text[len(text)-1] == '\r' {
			text, eol = text[:len(text)-1], "\r\n"
		}
		lines = append(lines, line{text: string(text), eol: eol})
		data = data[i+1:]
	}
	return lines
}

func joinLines(lines []line) []byte {
	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l.text)
		buf.WriteString(l.eol)
	}
	return buf.Bytes()
}

// newline returns the terminator used by the first terminated line.
func newline(lines []line) string {
	for _, l := range lines {
		if l.eol != "" {
			return l.eol
		}
	}
	return "\n"
}

// ignorable reports blank and comment lines.
func ignorable(text string) bool {
	t := strings.TrimSpace(text)
	return t == "" || strings.HasPrefix(t, ";")
}

// sectionName returns the name of a [header] line.
func sectionName(text string) (string, bool) {
	t := strings.TrimSpace(text)
	if len(t) < 2 || t[0] != '[' || t[len(t)-1] != ']' {
		return "", false
	}
	return strings.TrimSpace(t[1 : len(t)-1]), true
}

// splitPair splits a key = value line at the first '='.
func splitPair(text string) (Pair, bool) {
	i := strings.IndexByte(text, '=')
	if i < 0 {
		return Pair{}, false
	}
	key := strings.TrimSpace(text[:i])
	if key == "" {
		return Pair{}, false
	}
	return Pair{Key: key, Value: strings.TrimSpace(text[i+1:])}, true
}

// isKey reports whether text is a key = value line for key.
func isKey(text, key string) bool {
	p, ok := splitPair(text)
	return ok && strings.EqualFold(p.Key, key)
}

// replaceValue rewrites the value of a key = value line, keeping everything
// up to the value's first character.
func replaceValue(text, value string) string {
	i := strings.IndexByte(text, '=')
	rest := text[i+1:]
	pad := rest[:len(rest)-len(strings.TrimLeft(rest, " \t"))]
	return text[:i+1] + pad + value
}

// indent returns the leading whitespace of text.
func indent(text string) string {
	return text[:len(text)-len(strings.TrimLeft(text, " \t"))]
}
