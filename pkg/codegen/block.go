// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package codegen

import (
	"fmt"
	"strings"
)

// Block is an ordered buffer of source lines with indentation tracking.
//
// Lines are stored with their indentation relative to the block: appending a Block into another
// re-indents it at the destination's current level.
type Block struct {
	unit  string
	level int
	lines []string
}

// NewBlock creates an empty block, indenting nested levels with unit (e.g. 4 spaces).
func NewBlock(unit string) *Block {
	return &Block{unit: unit}
}

func (b *Block) add(line string) {
	if line == "" {
		b.lines = append(b.lines, "")
		return
	}
	b.lines = append(b.lines, strings.Repeat(b.unit, b.level)+line)
}

// Line appends one line at the current indentation.
func (b *Block) Line(line string) *Block {
	b.add(line)
	return b
}

// Linef appends one formatted line at the current indentation.
func (b *Block) Linef(format string, args ...any) *Block {
	b.add(fmt.Sprintf(format, args...))
	return b
}

// Lines appends each of the given lines. Lines containing new-line characters are split.
func (b *Block) Lines(lines ...string) *Block {
	for _, line := range lines {
		for _, part := range strings.Split(line, "\n") {
			b.add(part)
		}
	}
	return b
}

// Blank appends an empty line.
func (b *Block) Blank() *Block {
	b.lines = append(b.lines, "")
	return b
}

// Indent runs fn with the indentation increased by one level.
func (b *Block) Indent(fn func()) *Block {
	b.level++
	defer func() { b.level-- }()
	fn()
	return b
}

// Splice appends a multi-line text, after removing the leading and trailing empty lines and the
// indentation common to all its non-empty lines. It is used for templates written inline.
func (b *Block) Splice(text string) *Block {
	lines := strings.Split(text, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	prefix := commonIndentation(lines)
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			b.add("")
			continue
		}
		b.add(strings.TrimRight(line[len(prefix):], " \t"))
	}
	return b
}

func commonIndentation(lines []string) string {
	var prefix string
	first := true
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if first {
			prefix, first = indent, false
			continue
		}
		for !strings.HasPrefix(indent, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	return prefix
}

// Append appends all lines of other, indented at the current level of b.
func (b *Block) Append(other *Block) *Block {
	if other == nil {
		return b
	}
	for _, line := range other.lines {
		b.add(line)
	}
	return b
}

// Len returns the number of lines.
func (b *Block) Len() int { return len(b.lines) }

// IsEmpty returns whether no line was added.
func (b *Block) IsEmpty() bool { return len(b.lines) == 0 }

// String returns the text of the block, each line terminated by a new-line.
func (b *Block) String() string {
	if len(b.lines) == 0 {
		return ""
	}
	return strings.Join(b.lines, "\n") + "\n"
}
