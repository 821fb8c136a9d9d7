package main

// Wrap wraps text to width columns, breaking only at spaces, tabs and newlines. Runs of spaces
// inside a line are kept as they are; tokens longer than width are split.
func Wrap(text string, width int) string {
	if width <= 1 || text == "" {
		return text
	}

	var out []rune
	lineLen := 0

	newline := func() {
		out = append(out, '\n')
		lineLen = 0
	}
	appendRunes := func(rs []rune) {
		out = append(out, rs...)
		lineLen += len(rs)
	}

	for _, t := range tokenize(text) {
		if t.newline {
			newline()
			continue
		}

		rs := []rune(t.s)
		if lineLen+len(rs) <= width {
			// no leading spaces
			if !(lineLen == 0 && t.space) {
				appendRunes(rs)
			}
			continue
		}

		if t.space {
			newline()
			continue
		}
		if lineLen > 0 {
			newline()
		}
		for start := 0; start < len(rs); {
			end := min(start+width, len(rs))
			appendRunes(rs[start:end])
			start = end
			if start < len(rs) {
				newline()
			}
		}
	}

	return string(out)
}

type token struct {
	s       string
	space   bool
	newline bool
}

func tokenize(s string) []token {
	var (
		toks []token
		cur  []rune
		// 0 none, 1 space, 2 word
		mode int
	)

	flush := func() {
		if len(cur) > 0 {
			toks = append(toks, token{s: string(cur), space: mode == 1})
			cur = cur[:0]
		}
		mode = 0
	}

	for _, r := range s {
		switch r {
		case '\n':
			flush()
			toks = append(toks, token{s: "\n", newline: true})
		case ' ', '\t':
			if mode != 1 {
				flush()
				mode = 1
			}
			cur = append(cur, r)
		default:
			if mode != 2 {
				flush()
				mode = 2
			}
			cur = append(cur, r)
		}
	}
	flush()
	return toks
}
