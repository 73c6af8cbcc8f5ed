// Copyright (c) 2024 The Falcon Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package srcmap maps byte offsets into the physical line they fall on and
// renders a caret-underlined snippet for diagnostics. Grounded on
// original_source's shared_context source-map design, translated into Go.
package srcmap

import (
	"fmt"
	"sort"
	"strings"

	"minic/arena"
)

// SourceMap indexes physical line starts in a source buffer so spans (whose
// .Line field may have been remapped by a `#` line directive) can still be
// rendered against the real bytes of the file.
type SourceMap struct {
	FileName   string
	source     []byte
	lineStarts []uint32
}

func New(fileName string, source []byte) *SourceMap {
	sm := &SourceMap{FileName: fileName, source: source, lineStarts: []uint32{0}}
	for i, b := range source {
		if b == '\n' {
			sm.lineStarts = append(sm.lineStarts, uint32(i+1))
		}
	}
	return sm
}

// physicalLine returns the 1-based physical line number containing offset.
func (sm *SourceMap) physicalLine(offset uint32) int {
	i := sort.Search(len(sm.lineStarts), func(i int) bool { return sm.lineStarts[i] > offset })
	return i
}

func (sm *SourceMap) lineText(physicalLine int) string {
	start := sm.lineStarts[physicalLine-1]
	end := uint32(len(sm.source))
	if physicalLine < len(sm.lineStarts) {
		end = sm.lineStarts[physicalLine]
	}
	return strings.TrimRight(string(sm.source[start:end]), "\r\n")
}

// Snippet renders the line containing span.Start with a caret underline
// beneath the span, e.g.:
//
//	int main(void) { return 5 = 3; }
//	                        ^
func (sm *SourceMap) Snippet(span arena.Span) string {
	physLine := sm.physicalLine(span.Start)
	if physLine == 0 || physLine > len(sm.lineStarts) {
		return ""
	}
	lineStart := sm.lineStarts[physLine-1]
	text := sm.lineText(physLine)
	col := int(span.Start - lineStart)
	width := int(span.End - span.Start)
	if width < 1 {
		width = 1
	}
	if col < 0 || col > len(text) {
		col = 0
	}
	caret := strings.Repeat(" ", col) + strings.Repeat("^", width)
	return fmt.Sprintf("%s:%d:%d\n%s\n%s", sm.FileName, span.Line, col+1, text, caret)
}

// Format renders a full diagnostic: the message, its source location, and
// the caret-underlined snippet.
func (sm *SourceMap) Format(kind string, span arena.Span, format string, args ...interface{}) string {
	msg := fmt.Sprintf(format, args...)
	return fmt.Sprintf("%s: %s\n%s", kind, msg, sm.Snippet(span))
}
