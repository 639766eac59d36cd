package align

import (
	"strings"
	"unicode/utf16"

	"github.com/pkg/errors"
)

// OffsetUnit is the unit annotation offsets are counted in.
type OffsetUnit string

const (
	// UnitRunes counts Unicode code points. This is what Python-based annotation tools emit.
	UnitRunes OffsetUnit = "runes"

	// UnitUTF16 counts UTF-16 code units, as JavaScript-based annotation front-ends do.
	UnitUTF16 OffsetUnit = "utf16"

	// UnitBytes counts UTF-8 bytes.
	UnitBytes OffsetUnit = "bytes"

	// DefaultOffsetUnit is used when no unit is configured.
	DefaultOffsetUnit = UnitRunes
)

// ParseOffsetUnit returns the OffsetUnit named by s (case-insensitive). An empty s returns
// DefaultOffsetUnit.
func ParseOffsetUnit(s string) (OffsetUnit, error) {
	if s == "" {
		return DefaultOffsetUnit, nil
	}
	switch unit := OffsetUnit(strings.ToLower(s)); unit {
	case UnitRunes, UnitUTF16, UnitBytes:
		return unit, nil
	}
	return "", errors.Errorf("unknown offset unit %q: valid values are %q, %q and %q", s, UnitRunes, UnitUTF16, UnitBytes)
}

// offsetTable maps offsets counted in some unit to byte offsets of a text.
// A nil table is the identity (UnitBytes).
type offsetTable struct {
	byteOffsets []int // byteOffsets[i] is the byte offset of unit offset i, -1 if it splits a character.
	textLen     int
}

// newOffsetTable builds the table for text. Its length is the number of units in text plus one,
// so the end of the text is addressable.
func newOffsetTable(text string, unit OffsetUnit) offsetTable {
	table := offsetTable{textLen: len(text)}
	switch unit {
	case UnitBytes:
		return table
	case UnitUTF16:
		table.byteOffsets = make([]int, 0, len(text)+1)
		for pos, r := range text {
			table.byteOffsets = append(table.byteOffsets, pos)
			if utf16.RuneLen(r) == 2 {
				// Low surrogate: not a character boundary.
				table.byteOffsets = append(table.byteOffsets, -1)
			}
		}
	default:
		table.byteOffsets = make([]int, 0, len(text)+1)
		for pos := range text {
			table.byteOffsets = append(table.byteOffsets, pos)
		}
	}
	table.byteOffsets = append(table.byteOffsets, len(text))
	return table
}

// toByte converts offset to a byte offset. It returns false if offset is out of range or
// falls inside a character.
func (t offsetTable) toByte(offset int) (int, bool) {
	if offset < 0 {
		return 0, false
	}
	if t.byteOffsets == nil {
		return offset, offset <= t.textLen
	}
	if offset >= len(t.byteOffsets) {
		return 0, false
	}
	pos := t.byteOffsets[offset]
	return pos, pos >= 0
}
