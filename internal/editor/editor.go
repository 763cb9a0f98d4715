// Package editor implements the bounded single-line input buffer.
package editor

import (
	"unicode"

	"github.com/mattn/go-runewidth"
)

// DefaultCapacity is the maximum number of runes a line may hold.
const DefaultCapacity = 128

// Buffer is an append-only line editor with backspace. The zero value is not
// usable; call New.
type Buffer struct {
	runes    []rune
	capacity int
}

// New returns an empty buffer holding at most capacity runes.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{runes: make([]rune, 0, capacity), capacity: capacity}
}

func (b *Buffer) Len() int       { return len(b.runes) }
func (b *Buffer) Cap() int       { return b.capacity }
func (b *Buffer) Empty() bool    { return len(b.runes) == 0 }
func (b *Buffer) String() string { return string(b.runes) }

// Insert appends r if it is printable and the buffer has room.
func (b *Buffer) Insert(r rune) bool {
	if !unicode.IsPrint(r) || len(b.runes) >= b.capacity {
		return false
	}
	b.runes = append(b.runes, r)
	return true
}

// Backspace removes the last rune. It reports false on an empty buffer.
func (b *Buffer) Backspace() bool {
	if len(b.runes) == 0 {
		return false
	}
	b.runes = b.runes[:len(b.runes)-1]
	return true
}

// Commit returns the line with its terminator and clears the buffer.
func (b *Buffer) Commit() (string, bool) {
	if len(b.runes) == 0 {
		return "", false
	}
	line := string(b.runes) + "\n"
	b.Reset()
	return line, true
}

// Reset discards the contents.
func (b *Buffer) Reset() {
	b.runes = b.runes[:0]
}

// Window returns the longest tail of the buffer whose display width fits in
// cols cells.
func (b *Buffer) Window(cols int) string {
	if cols <= 0 {
		return ""
	}
	w := 0
	i := len(b.runes)
	for i > 0 {
		rw := runewidth.RuneWidth(b.runes[i-1])
		if w+rw > cols {
			break
		}
		w += rw
		i--
	}
	return string(b.runes[i:])
}
