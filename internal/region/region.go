// Package region models the bordered, fixed-size chat area.
//
// A Region tracks the next free row (the row cursor), hard-wraps placed lines
// into the rows they span, and applies the scroll policy once the region is
// full: content shifts up, the bottom row is cleared and the cursor stays on
// the last row. Nothing beyond the visible rows is retained.
package region

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const (
	DefaultWidth  = 74
	DefaultHeight = 30

	MinWidth  = 16
	MinHeight = 2
)

// ErrGeometry is returned for a region too small to draw.
var ErrGeometry = errors.New("region: invalid geometry")

// Region is a width x height block of text cells. It is not safe for
// concurrent use; one goroutine owns it.
type Region struct {
	width   int
	height  int
	rows    []string // rows[0] is row 1
	cursor  int
	scrolls int

	style lipgloss.Style
}

// Placement describes where a line ended up.
type Placement struct {
	Row      int // first row of the line after any scroll
	Span     int
	Scrolled bool
	Shift    int // rows the content moved up
}

// New creates an empty region with the cursor on row 1.
func New(width, height int) (*Region, error) {
	if width < MinWidth || height < MinHeight {
		return nil, fmt.Errorf("%w: %dx%d (minimum %dx%d)", ErrGeometry, width, height, MinWidth, MinHeight)
	}
	return &Region{
		width:  width,
		height: height,
		rows:   make([]string, height),
		cursor: 1,
		style:  lipgloss.NewStyle(),
	}, nil
}

// Span returns how many rows a line of the given display width occupies.
func Span(cells, width int) int {
	if cells <= 0 || width <= 0 {
		return 1
	}
	return (cells + width - 1) / width
}

func (r *Region) Width() int   { return r.width }
func (r *Region) Height() int  { return r.height }
func (r *Region) Cursor() int  { return r.cursor }
func (r *Region) Scrolls() int { return r.scrolls }

// SetBorderStyle sets the style applied to border glyphs.
func (r *Region) SetBorderStyle(s lipgloss.Style) {
	r.style = s
}

// Rows returns a copy of the body rows, top first.
func (r *Region) Rows() []string {
	out := make([]string, len(r.rows))
	copy(out, r.rows)
	return out
}

// Row returns body row n (1-based) with styling removed.
func (r *Region) Row(n int) string {
	if n < 1 || n > r.height {
		return ""
	}
	return ansi.Strip(r.rows[n-1])
}

// Place writes line at the cursor and advances it. When the advanced cursor
// would pass the last row the region scrolls up by the overflow in a single
// step, leaving the bottom row blank and the cursor on it.
func (r *Region) Place(line string) Placement {
	chunks := r.wrap(line)
	span := max(Span(ansi.StringWidth(line), r.width), len(chunks))

	// A line taller than the region keeps its tail; the bottom row stays free.
	if span > r.height-1 {
		chunks = chunks[len(chunks)-(r.height-1):]
		span = r.height - 1
	}
	for len(chunks) < span {
		chunks = append(chunks, "")
	}

	start := r.cursor
	next := start + span
	p := Placement{Span: span}

	if next > r.height {
		shift := next - r.height
		r.scroll(shift)
		start -= shift
		p.Scrolled = true
		p.Shift = shift
		next = r.height
	}

	for i, c := range chunks {
		r.rows[start-1+i] = c
	}
	r.cursor = next
	p.Row = start
	return p
}

// scroll moves every row up by n and clears the exposed rows.
func (r *Region) scroll(n int) {
	if n >= r.height {
		clear(r.rows)
	} else {
		copy(r.rows, r.rows[n:])
		clear(r.rows[r.height-n:])
	}
	r.scrolls++
}

// Reset clears every row and returns the cursor to row 1.
func (r *Region) Reset() {
	clear(r.rows)
	r.cursor = 1
}

func (r *Region) wrap(line string) []string {
	if line == "" {
		return []string{""}
	}
	return carryStyle(strings.Split(ansi.Hardwrap(line, r.width, true), "\n"))
}

// carryStyle closes every row that ends inside a styled run and reopens the
// run on the next row, so colour stops at the right border.
func carryStyle(rows []string) []string {
	var active string
	for i, row := range rows {
		open := active
		var state byte
		for rest := row; len(rest) > 0; {
			seq, _, n, next := ansi.DecodeSequence(rest, state, nil)
			if ansi.HasCsiPrefix(seq) && strings.HasSuffix(seq, "m") {
				if seq == ansi.ResetStyle || seq == "\x1b[0m" {
					active = ""
				} else {
					active += seq
				}
			}
			state, rest = next, rest[n:]
		}
		row = open + row
		if active != "" {
			row += ansi.ResetStyle
		}
		rows[i] = row
	}
	return rows
}

// Frame renders the region with its border. The title is embedded in the
// top border; every body row is padded to the right border.
func (r *Region) Frame(title string) string {
	return Box(r.style, title, r.width, r.rows)
}

// Box draws rows inside a thick border with a one-cell gutter on each side,
// width text columns wide. Border glyphs are rendered with style.
func Box(style lipgloss.Style, title string, width int, rows []string) string {
	b := lipgloss.ThickBorder()
	inner := width + 2

	var sb strings.Builder
	sb.WriteString(topBorder(b, style, title, inner))
	sb.WriteByte('\n')
	for _, row := range rows {
		sb.WriteString(style.Render(b.Left))
		sb.WriteByte(' ')
		sb.WriteString(pad(row, width))
		sb.WriteByte(' ')
		sb.WriteString(style.Render(b.Right))
		sb.WriteByte('\n')
	}
	sb.WriteString(style.Render(b.BottomLeft + strings.Repeat(b.Bottom, inner) + b.BottomRight))
	return sb.String()
}

// topBorder draws a top border of inner cells with the title inset by two
// glyphs. A title that does not fit is truncated.
func topBorder(b lipgloss.Border, style lipgloss.Style, title string, inner int) string {
	lead := strings.Repeat(b.Top, 2)
	if title == "" {
		lead = ""
	}
	title = ansi.Truncate(title, max(0, inner-2), "")
	fill := max(0, inner-ansi.StringWidth(lead)-ansi.StringWidth(title))
	return style.Render(b.TopLeft+lead) + title + style.Render(strings.Repeat(b.Top, fill)+b.TopRight)
}

func pad(s string, width int) string {
	w := ansi.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}
