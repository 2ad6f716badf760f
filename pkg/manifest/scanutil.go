package manifest

import (
	"bufio"
	"bytes"

	"github.com/packradar/packradar/pkg/descriptor"
)

// sourceLine is one physical line of a manifest document along with the
// byte offset of its first character, so a regex match within the line can
// be translated back into a document-absolute span per spec's span-fidelity
// rule: every descriptor points at the version literal, or the name if no
// version literal is present.
type sourceLine struct {
	text   string
	offset int
}

// scanLines splits src into sourceLines, preserving byte offsets so callers
// can compute absolute spans without re-scanning the whole document per line.
func scanLines(src []byte) []sourceLine {
	var lines []sourceLine
	offset := 0
	scanner := bufio.NewScanner(bytes.NewReader(src))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		text := scanner.Text()
		lines = append(lines, sourceLine{text: text, offset: offset})
		next := offset + len(text)
		if next < len(src) && src[next] == '\r' {
			next++ // the scanner also strips the '\r' of a CRLF line ending
		}
		offset = next + 1 // account for the newline the scanner stripped
	}
	return lines
}

// spanAt turns a regex submatch's [start,end) offsets, relative to one
// line, into a document-absolute span.
func (l sourceLine) spanAt(start, end int) descriptor.Span {
	return descriptor.Span{Start: l.offset + start, End: l.offset + end}
}
