package pyast

import (
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/runenames"
)

// Docstring returns the cleaned text of a leading string-literal statement
// in body, or nil. Bytes and f-string literals never count.
func Docstring(body []Node) *string {
	if len(body) == 0 {
		return nil
	}
	expr, ok := body[0].(*Expr)
	if !ok {
		return nil
	}
	s, ok := expr.Value.(*Str)
	if !ok || s.Kind != StrPlain {
		return nil
	}
	doc := CleanDoc(s.Value)
	return &doc
}

// CleanDoc normalizes docstring indentation: tabs are expanded, the first
// line loses its leading whitespace, the common indentation of the remaining
// lines is removed, and leading and trailing blank lines are dropped.
// Indentation is any Unicode whitespace, counted in characters.
func CleanDoc(doc string) string {
	lines := strings.Split(expandTabs(doc, 8), "\n")

	margin := -1
	for _, line := range lines[1:] {
		content := strings.TrimLeftFunc(line, unicode.IsSpace)
		if content == "" {
			continue
		}
		indent := utf8.RuneCountInString(line[:len(line)-len(content)])
		if margin < 0 || indent < margin {
			margin = indent
		}
	}

	lines[0] = strings.TrimLeftFunc(lines[0], unicode.IsSpace)
	if margin > 0 {
		for i := 1; i < len(lines); i++ {
			lines[i] = dropRunes(lines[i], margin)
		}
	}

	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	return strings.Join(lines, "\n")
}

// dropRunes removes the first n characters of s.
func dropRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[i:]
		}
		n--
	}
	return ""
}

func expandTabs(s string, size int) string {
	if !strings.Contains(s, "\t") {
		return s
	}
	var b strings.Builder
	col := 0
	for _, r := range s {
		switch r {
		case '\t':
			n := size - col%size
			b.WriteString(strings.Repeat(" ", n))
			col += n
		case '\n', '\r':
			b.WriteRune(r)
			col = 0
		default:
			b.WriteRune(r)
			col++
		}
	}
	return b.String()
}

type literal struct {
	kind  StrKind
	value string
}

// decodeLiteral decodes the source text of one string literal, prefix and
// quotes included.
func decodeLiteral(src string) literal {
	var lit literal
	raw := false
	i := 0
	for i < len(src) && src[i] != '"' && src[i] != '\'' {
		switch src[i] {
		case 'r', 'R':
			raw = true
		case 'b', 'B':
			lit.kind = StrBytes
		case 'f', 'F', 't', 'T':
			lit.kind = StrFormatted
		}
		i++
	}
	body := src[i:]

	q := 1
	if len(body) >= 6 && (strings.HasPrefix(body, `"""`) || strings.HasPrefix(body, `'''`)) {
		q = 3
	}
	if len(body) < 2*q {
		return lit
	}
	body = strings.ReplaceAll(body[q:len(body)-q], "\r\n", "\n")

	if raw {
		lit.value = body
	} else {
		lit.value = unescape(body, lit.kind == StrBytes)
	}
	return lit
}

// unescape applies Python's backslash escapes. Unknown escapes, and \N{...}
// names that match no character, are kept verbatim.
func unescape(s string, bytesLit bool) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			i++
			continue
		}
		e := s[i+1]
		i += 2
		switch e {
		case '\n':
		case '\r':
			if i < len(s) && s[i] == '\n' {
				i++
			}
		case '\\', '\'', '"':
			b.WriteByte(e)
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'v':
			b.WriteByte('\v')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i - 1
			for j < len(s) && j < i+2 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			v, _ := strconv.ParseUint(s[i-1:j], 8, 32)
			writeCode(&b, rune(v), bytesLit)
			i = j
		case 'x':
			if v, ok := hexCode(s, i, 2); ok {
				writeCode(&b, rune(v), bytesLit)
				i += 2
			} else {
				b.WriteString(`\x`)
			}
		case 'u', 'U':
			width := 4
			if e == 'U' {
				width = 8
			}
			if v, ok := hexCode(s, i, width); ok && !bytesLit && utf8.ValidRune(rune(v)) {
				b.WriteRune(rune(v))
				i += width
			} else {
				b.WriteByte('\\')
				b.WriteByte(e)
			}
		case 'N':
			if r, n, ok := namedEscape(s[i:]); ok && !bytesLit {
				b.WriteRune(r)
				i += n
			} else {
				b.WriteString(`\N`)
			}
		default:
			b.WriteByte('\\')
			b.WriteByte(e)
		}
	}
	return b.String()
}

// namedEscape decodes the "{NAME}" part of a \N escape at the start of s and
// returns the character and the number of bytes consumed.
func namedEscape(s string) (rune, int, bool) {
	if !strings.HasPrefix(s, "{") {
		return 0, 0, false
	}
	end := strings.IndexByte(s, '}')
	if end < 2 {
		return 0, 0, false
	}
	r, ok := lookupRune(s[1:end])
	return r, end + 1, ok
}

var (
	runeNamesOnce sync.Once
	runeNames     map[string]rune
)

const cjkPrefix = "CJK UNIFIED IDEOGRAPH-"

// lookupRune finds a character by its Unicode name, ignoring case. The
// reverse table is built on first use.
func lookupRune(name string) (rune, bool) {
	name = strings.ToUpper(name)
	if hex, ok := strings.CutPrefix(name, cjkPrefix); ok {
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil || !strings.HasPrefix(runenames.Name(rune(v)), "<CJK Ideograph") {
			return 0, false
		}
		return rune(v), true
	}

	runeNamesOnce.Do(func() {
		runeNames = make(map[string]rune)
		for r := rune(0); r <= unicode.MaxRune; r++ {
			if r >= 0xD800 && r <= 0xDFFF {
				continue
			}
			// Ranges such as "<CJK Ideograph>" share one label.
			if n := runenames.Name(r); n != "" && n[0] != '<' {
				runeNames[n] = r
			}
		}
	})
	r, ok := runeNames[name]
	return r, ok
}

func hexCode(s string, at, width int) (uint64, bool) {
	if at+width > len(s) {
		return 0, false
	}
	v, err := strconv.ParseUint(s[at:at+width], 16, 32)
	return v, err == nil
}

func writeCode(b *strings.Builder, r rune, bytesLit bool) {
	if bytesLit && r < 256 {
		b.WriteByte(byte(r))
		return
	}
	b.WriteRune(r)
}
