package recovery

import "strings"

// The repair pipeline. Each pass is a pure string transform applied in
// order to the extracted block. Order matters: comments must go before
// newline escaping (a comment may hide a quote), and empty-line cleanup
// runs last because earlier passes may leave blank lines behind.
var repairPasses = []struct {
	name string
	fn   func(string) string
}{
	{"strip_line_comments", stripLineComments},
	{"escape_raw_newlines", escapeRawNewlines},
	{"insert_missing_commas", insertMissingCommas},
	{"drop_trailing_commas", dropTrailingCommas},
	{"drop_empty_lines", dropEmptyLines},
}

// repair runs every pass over the block.
func repair(block string) string {
	for _, p := range repairPasses {
		block = p.fn(block)
	}
	return block
}

// isWordByte reports whether b would continue an identifier or URL, the
// contexts where "//" and "#" must not be treated as comment markers.
func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

// stripLineComments removes "//" and "#" comments to end of line. A marker
// only counts when it sits outside a quoted string and is not immediately
// preceded by a quote, colon, or word character, so "https://..." inside a
// value and "#" fragments survive.
func stripLineComments(s string) string {
	var out strings.Builder
	out.Grow(len(s))
	var st scanState

	for i := 0; i < len(s); i++ {
		b := s[i]
		if !st.inString {
			isMarker := b == '#' || (b == '/' && i+1 < len(s) && s[i+1] == '/')
			if isMarker {
				precededOK := true
				if i > 0 {
					p := s[i-1]
					if p == '"' || p == ':' || isWordByte(p) {
						precededOK = false
					}
				}
				if precededOK {
					for i < len(s) && s[i] != '\n' {
						i++
					}
					if i < len(s) {
						out.WriteByte('\n')
					}
					continue
				}
			}
		}
		st.step(b)
		out.WriteByte(b)
	}
	return out.String()
}

// escapeRawNewlines converts literal newlines inside string values to their
// escaped form. The model routinely emits multi-line code as raw text inside
// "content"; structural newlines between keys are left alone so valid
// pretty-printed JSON passes through unchanged.
func escapeRawNewlines(s string) string {
	var out strings.Builder
	out.Grow(len(s))
	var st scanState

	for i := 0; i < len(s); i++ {
		b := s[i]
		if st.inString && !st.escape {
			switch b {
			case '\n':
				out.WriteString(`\n`)
				continue
			case '\r':
				out.WriteString(`\r`)
				continue
			case '\t':
				out.WriteString(`\t`)
				continue
			}
		}
		st.step(b)
		out.WriteByte(b)
	}
	return out.String()
}

// insertMissingCommas adds a comma when a closing quote is followed, across
// nothing but whitespace, by another quoted string. That shape only occurs
// when the model dropped the comma between a value and the next key; in
// valid JSON the gap always holds ',' or ':'.
func insertMissingCommas(s string) string {
	var out strings.Builder
	out.Grow(len(s) + 8)
	var st scanState

	for i := 0; i < len(s); i++ {
		b := s[i]
		closing := st.inString && !st.escape && b == '"'
		st.step(b)
		out.WriteByte(b)

		if !closing {
			continue
		}
		j := i + 1
		for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
			j++
		}
		if j < len(s) && s[j] == '"' && j > i+1 {
			out.WriteByte(',')
		}
	}
	return out.String()
}

// dropTrailingCommas removes a comma that directly precedes a closing
// brace or bracket (whitespace allowed in between).
func dropTrailingCommas(s string) string {
	var out strings.Builder
	out.Grow(len(s))
	var st scanState

	for i := 0; i < len(s); i++ {
		b := s[i]
		if !st.inString && b == ',' {
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		st.step(b)
		out.WriteByte(b)
	}
	return out.String()
}

// dropEmptyLines removes lines the earlier passes emptied out.
func dropEmptyLines(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
