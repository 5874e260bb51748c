package script

import (
	"strings"
)

// Statement markers are written as comments, either on the lines directly
// above a top-level statement or trailing its first line.
const (
	MarkerTask     = "@task"
	MarkerDisabled = "@disabled"
)

// TaskPrefix marks a function as a task by name.
const TaskPrefix = "task_"

// commentIndex maps source lines to the comments found on them. Comments
// that fill a whole line are kept apart from those trailing code.
type commentIndex struct {
	whole    map[int32][]string
	trailing map[int32][]string
}

// indexComments scans src for comments, skipping string literals. The
// parser is run without comment retention, so markers are read from the
// source text.
func indexComments(src string) *commentIndex {
	idx := &commentIndex{
		whole:    make(map[int32][]string),
		trailing: make(map[int32][]string),
	}
	var triple string
	for n, line := range strings.Split(src, "\n") {
		lineNo := int32(n + 1)
		code := false
		i := 0
		if triple != "" {
			end := strings.Index(line, triple)
			if end < 0 {
				continue
			}
			i = end + len(triple)
			triple = ""
			code = true
		}
	scan:
		for i < len(line) {
			switch c := line[i]; c {
			case '#':
				text := line[i:]
				if code {
					idx.trailing[lineNo] = append(idx.trailing[lineNo], text)
				} else {
					idx.whole[lineNo] = append(idx.whole[lineNo], text)
				}
				break scan
			case '"', '\'':
				code = true
				q := string(c)
				if strings.HasPrefix(line[i:], q+q+q) {
					end := strings.Index(line[i+3:], q+q+q)
					if end < 0 {
						triple = q + q + q
						break scan
					}
					i += 3 + end + 3
					continue
				}
				i++
				for i < len(line) && line[i] != c {
					if line[i] == '\\' {
						i++
					}
					i++
				}
				i++
			case ' ', '\t':
				i++
			default:
				code = true
				i++
			}
		}
	}
	return idx
}

// markers returns the markers attached to the statement starting at line.
func (idx *commentIndex) markers(line int32) map[string]bool {
	found := make(map[string]bool)
	collect := func(texts []string) {
		for _, text := range texts {
			fields := strings.Fields(strings.TrimLeft(text, "#"))
			if len(fields) > 0 && strings.HasPrefix(fields[0], "@") {
				found[fields[0]] = true
			}
		}
	}
	collect(idx.trailing[line])
	for l := line - 1; l > 0; l-- {
		texts, ok := idx.whole[l]
		if !ok {
			break
		}
		collect(texts)
	}
	return found
}
