package script

import (
	"strings"
)

// Indent is one level of generated-code indentation.
const Indent = "    "

const (
	delayCall   = ".delay_ms("
	asyncPrefix = "Timer::after(Duration::from_millis("
	asyncSuffix = ")).await"
)

// Keywords that may precede '(' or '[' without forming a call or index.
var rustKeywords = map[string]bool{
	"if": true, "else": true, "while": true, "for": true, "in": true,
	"return": true, "let": true, "mut": true, "match": true, "loop": true,
	"break": true, "continue": true,
}

// FormatBody turns transpiled token text into newline-separated statements.
// The first line is unindented; every following line starts with level
// indents, nested blocks one level deeper.
func FormatBody(raw string, level int, async bool) string {
	content := StripOuterBraces(raw)
	content = CleanArtifacts(content)
	if async {
		content = RewriteDelays(content)
	}
	return joinStatements(SplitStatements(content), level)
}

// StripOuterBraces removes enclosing {} pairs for as long as the first
// brace closes at the very end of the text.
func StripOuterBraces(s string) string {
	s = strings.TrimSpace(s)
	for len(s) >= 2 && s[0] == '{' && matchClose(s, 0) == len(s)-1 {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// CleanArtifacts removes the whitespace a space-joined token stream leaves
// around member access, calls, indexing, separators, terminators, macro
// markers and path separators. String literals are left untouched.
func CleanArtifacts(s string) string {
	var out strings.Builder
	out.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] == '"' {
			end := skipString(s, i)
			out.WriteString(s[i:end])
			i = end
			continue
		}
		start := i
		for i < len(s) && s[i] != '"' {
			i++
		}
		cleanCode(s[start:i], &out)
	}
	return out.String()
}

var artifacts = strings.NewReplacer(
	" . ", ".",
	" .. ", "..",
	" :: ", "::",
	"( ", "(",
	"[ ", "[",
	" )", ")",
	" ]", "]",
	" ,", ",",
	" ;", ";",
)

// cleanCode writes one segment found outside string literals to out.
func cleanCode(seg string, out *strings.Builder) {
	seg = artifacts.Replace(seg)
	for i := 0; i < len(seg); i++ {
		if seg[i] == ' ' && i+1 < len(seg) {
			switch next := seg[i+1]; {
			case next == '(' || next == '[':
				if attaches(out.String()) {
					continue
				}
			case next == '!' && strings.HasPrefix(strings.TrimLeft(seg[i+2:], " "), "("):
				if word := lastWord(out.String()); word != "" && !rustKeywords[word] {
					continue
				}
			}
		}
		out.WriteByte(seg[i])
	}
}

// attaches reports whether a following '(' or '[' is a call or index on
// the text before it.
func attaches(before string) bool {
	if before == "" {
		return false
	}
	switch before[len(before)-1] {
	case ')', ']', '"', '!':
		return true
	}
	word := lastWord(before)
	return word != "" && !rustKeywords[word] && !isDigit(word[0])
}

func lastWord(s string) string {
	end := len(s)
	start := end
	for start > 0 && isIdentByte(s[start-1]) {
		start--
	}
	return s[start:end]
}

// RewriteDelays replaces every <recv>.delay_ms(<args>) outside string
// literals with an awaited embassy timer. The argument list is found with a
// balanced-delimiter scan; an unbalanced call is left as written.
func RewriteDelays(s string) string {
	var out strings.Builder
	last := 0
	for i := 0; i < len(s); {
		if s[i] == '"' {
			i = skipString(s, i)
			continue
		}
		if !strings.HasPrefix(s[i:], delayCall) {
			i++
			continue
		}
		recv := receiverStart(s, i)
		open := i + len(delayCall) - 1
		close := matchClose(s, open)
		if recv == i || recv < last || close < 0 {
			i++
			continue
		}
		out.WriteString(s[last:recv])
		out.WriteString(asyncPrefix)
		out.WriteString(RewriteDelays(s[open+1 : close]))
		out.WriteString(asyncSuffix)
		last = close + 1
		i = last
	}
	out.WriteString(s[last:])
	return out.String()
}

// receiverStart walks back over an identifier path ending at end.
func receiverStart(s string, end int) int {
	start := end
	for start > 0 {
		c := s[start-1]
		if isIdentByte(c) || c == '.' || c == ':' {
			start--
			continue
		}
		break
	}
	for start < end && (s[start] == '.' || s[start] == ':') {
		start++
	}
	return start
}

// SplitStatements splits on ';' at nesting depth zero and after a closing
// '}' that returns to depth zero, unless an else branch follows. Every
// statement that does not end in '}' is terminated with ';'.
func SplitStatements(s string) []string {
	var stmts []string
	depth := 0
	start := 0
	emit := func(end int) {
		stmt := strings.TrimSpace(s[start:end])
		start = end
		if stmt == "" || stmt == ";" {
			return
		}
		if !strings.HasSuffix(stmt, ";") && !strings.HasSuffix(stmt, "}") {
			stmt += ";"
		}
		stmts = append(stmts, stmt)
	}
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			i = skipString(s, i) - 1
		case '(', '[', '{':
			depth++
		case ')', ']':
			depth--
		case '}':
			depth--
			if depth == 0 && !strings.HasPrefix(strings.TrimLeft(s[i+1:], " \t\n"), "else") {
				emit(i + 1)
			}
		case ';':
			if depth == 0 {
				emit(i + 1)
			}
		}
	}
	emit(len(s))
	return stmts
}

func joinStatements(stmts []string, level int) string {
	lines := make([]string, len(stmts))
	for i, stmt := range stmts {
		lines[i] = expandBlocks(stmt, level)
	}
	return strings.Join(lines, "\n"+strings.Repeat(Indent, level))
}

// expandBlocks lays out every top-level {...} of stmt on its own lines.
func expandBlocks(stmt string, level int) string {
	var out strings.Builder
	depth := 0
	last := 0
	for i := 0; i < len(stmt); i++ {
		switch stmt[i] {
		case '"':
			i = skipString(stmt, i) - 1
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case '{':
			if depth != 0 {
				continue
			}
			close := matchClose(stmt, i)
			if close < 0 {
				continue
			}
			out.WriteString(strings.TrimRight(stmt[last:i], " "))
			out.WriteString(" {")
			if inner := SplitStatements(stmt[i+1 : close]); len(inner) > 0 {
				out.WriteString("\n" + strings.Repeat(Indent, level+1))
				out.WriteString(joinStatements(inner, level+1))
				out.WriteString("\n" + strings.Repeat(Indent, level))
			}
			out.WriteString("}")
			last = close + 1
			i = close
		}
	}
	out.WriteString(stmt[last:])
	return out.String()
}

// matchClose returns the index of the delimiter closing s[open], or -1.
// Delimiters inside string literals are ignored.
func matchClose(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '"':
			i = skipString(s, i) - 1
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// skipString returns the index just past the string literal opening at i.
func skipString(s string, i int) int {
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '"':
			return j + 1
		}
	}
	return len(s)
}

func isIdentByte(c byte) bool {
	return c == '_' || isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
