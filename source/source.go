// Package source maps byte offsets in a script back to human-readable
// locations. It scans the whole text on every call, so it belongs on the
// error path only.
package source

import "strings"

// Location is a resolved position in a script.
type Location struct {
	Offset int    // byte offset
	Line   int    // 1-based line number
	Column int    // 1-based column number
	Text   string // the full text of the line, without its newline
}

// Locate resolves offset against text. Offsets past the end resolve to the
// last line; negative offsets resolve to the start.
func Locate(text string, offset int) Location {
	offset = max(0, min(offset, len(text)))

	line := 1 + strings.Count(text[:offset], "\n")
	start := strings.LastIndexByte(text[:offset], '\n') + 1
	end := strings.IndexByte(text[start:], '\n')
	if end < 0 {
		end = len(text)
	} else {
		end += start
	}

	return Location{
		Offset: offset,
		Line:   line,
		Column: offset - start + 1,
		Text:   strings.TrimSuffix(text[start:end], "\r"),
	}
}
