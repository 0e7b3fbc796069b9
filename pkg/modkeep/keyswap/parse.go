package keyswap

import "strings"

// block is a candidate section being collected.
type block struct {
	name       string
	header     string
	headerLine int
	lines      []string
}

// parse scans lines for key-swap sections. A header opens a block; the
// block closes at the next header, at end of input, or once more than
// lookahead meaningful lines follow the header. Blank and ';' lines are not
// counted. A closed block becomes a section when it holds a non-empty
// forward or backward key.
func parse(lines []line, lookahead int) []Section {
	var (
		sections []Section
		open     *block
	)

	flush := func() {
		if open == nil {
			return
		}
		if s, ok := open.section(); ok {
			sections = append(sections, s)
		}
		open = nil
	}

	for i, l := range lines {
		if ignorable(l.text) {
			continue
		}

		if name, ok := sectionName(l.text); ok {
			flush()
			open = &block{name: name, header: strings.TrimSpace(l.text), headerLine: i}
			continue
		}

		if open == nil {
			continue
		}
		if len(open.lines) >= lookahead {
			flush()
			continue
		}
		open.lines = append(open.lines, l.text)
	}
	flush()

	return sections
}

func (b *block) section() (Section, bool) {
	s := Section{name: b.name, header: b.header, headerLine: b.headerLine}
	usable := false
	for _, text := range b.lines {
		p, ok := splitPair(text)
		if !ok {
			continue
		}
		if p.Value != "" && (strings.EqualFold(p.Key, ForwardKeyName) || strings.EqualFold(p.Key, BackwardKeyName)) {
			usable = true
		}
		s.pairs = append(s.pairs, p)
	}
	return s, usable
}
