// Package hexdump renders memory and key-state bitmaps for terminal output.
package hexdump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/Moonlight-Companies/gologger/coloransi"

	"gokbd/process"
)

// Options controls Dump output.
type Options struct {
	BytesPerLine int
	Base         process.ProcessMemoryAddress // address of data[0]
	MaxLines     int                          // 0 for no limit

	// Highlight marks every masked match of the pattern.
	Highlight process.AOB

	// KernelPointers annotates lines whose leading qwords point into kernel space.
	KernelPointers bool

	// Color enables the ANSI colors below.
	Color bool

	AddressColor             coloransi.ColorCode
	HexColor                 coloransi.ColorCode
	ASCIIColor               coloransi.ColorCode
	NonPrintableColor        coloransi.ColorCode
	ZeroColor                coloransi.ColorCode
	PointerColor             coloransi.ColorCode
	HighlightColor           coloransi.ColorCode
	HighlightBackgroundColor coloransi.ColorCode
}

func DefaultOptions() Options {
	return Options{
		BytesPerLine:             16,
		Color:                    true,
		AddressColor:             coloransi.Cyan,
		HexColor:                 coloransi.Green,
		ASCIIColor:               coloransi.White,
		NonPrintableColor:        coloransi.Red,
		ZeroColor:                coloransi.BrightBlack,
		PointerColor:             coloransi.Yellow,
		HighlightColor:           coloransi.Yellow,
		HighlightBackgroundColor: coloransi.ColorPurple,
	}
}

// paint colors text when on is set.
func paint(on bool, c coloransi.ColorCode, text string) string {
	if !on {
		return text
	}
	return coloransi.Foreground(c, text)
}

func (o Options) paint(c coloransi.ColorCode, text string) string {
	return paint(o.Color, c, text)
}

func (o Options) highlight(text string) string {
	if !o.Color {
		return text
	}
	return coloransi.Color(o.HighlightColor, o.HighlightBackgroundColor, text)
}

// Dump returns the formatted dump of data.
func Dump(data []byte, o Options) string {
	var buf bytes.Buffer
	DumpToWriter(&buf, data, o)
	return buf.String()
}

// DumpToWriter writes one line per BytesPerLine bytes:
//
//	FFFFF96000000000  48 8b 05 00 00 00 00 48 | 8b 04 c8 00 00 00 00 00  H......H ........
func DumpToWriter(w io.Writer, data []byte, o Options) {
	if o.BytesPerLine <= 0 {
		o.BytesPerLine = 16
	}
	marked := highlighted(data, o.Highlight)

	lines := 0
	for off := 0; off < len(data); off += o.BytesPerLine {
		if o.MaxLines > 0 && lines >= o.MaxLines {
			fmt.Fprintf(w, "... %d more bytes\n", len(data)-off)
			return
		}
		end := min(off+o.BytesPerLine, len(data))
		writeLine(w, data, off, end, marked, o)
		lines++
	}
}

func writeLine(w io.Writer, data []byte, off, end int, marked []bool, o Options) {
	addr := uint64(o.Base) + uint64(off)
	fmt.Fprint(w, o.paint(o.AddressColor, fmt.Sprintf("%016X", addr)), "  ")

	half := o.BytesPerLine / 2
	for i := off; i < off+o.BytesPerLine; i++ {
		if i > off {
			if o.BytesPerLine >= 8 && i-off == half {
				fmt.Fprint(w, " | ")
			} else {
				fmt.Fprint(w, " ")
			}
		}
		if i >= end {
			fmt.Fprint(w, "  ")
			continue
		}
		fmt.Fprint(w, byteHex(o, data[i], marked[i]))
	}

	fmt.Fprint(w, "  ")
	for i := off; i < end; i++ {
		if o.BytesPerLine >= 8 && i-off == half {
			fmt.Fprint(w, " ")
		}
		fmt.Fprint(w, byteChar(o, data[i], marked[i]))
	}

	if o.KernelPointers {
		for q := off; q+8 <= end && q < off+16; q += 8 {
			ptr := process.ProcessMemoryAddress(binary.LittleEndian.Uint64(data[q:]))
			if process.IsKernelPointer(ptr) {
				fmt.Fprint(w, " ", o.paint(o.PointerColor, "->"+ptr.ToString()))
			}
		}
	}
	fmt.Fprintln(w)
}

func byteHex(o Options, b byte, marked bool) string {
	text := fmt.Sprintf("%02x", b)
	switch {
	case marked:
		return o.highlight(text)
	case b == 0:
		return o.paint(o.ZeroColor, text)
	default:
		return o.paint(o.HexColor, text)
	}
}

func byteChar(o Options, b byte, marked bool) string {
	ch := "."
	if b >= 0x20 && b < 0x7F {
		ch = string(rune(b))
	}
	switch {
	case marked:
		return o.highlight(ch)
	case b == 0:
		return o.paint(o.ZeroColor, ch)
	case ch == ".":
		return o.paint(o.NonPrintableColor, ch)
	default:
		return o.paint(o.ASCIIColor, ch)
	}
}

// highlighted flags every byte covered by a match of aob.
func highlighted(data []byte, aob process.AOB) []bool {
	marked := make([]bool, len(data))
	if !aob.IsValid() {
		return marked
	}
	for i := 0; i+aob.Len() <= len(data); i++ {
		if aob.MatchAt(data, i) {
			for j := i; j < i+aob.Len(); j++ {
				marked[j] = true
			}
		}
	}
	return marked
}

// Matches dumps lines of context around each match address within data.
func Matches(w io.Writer, data []byte, o Options, matches []process.ProcessMemoryAddress, context int) {
	if o.BytesPerLine <= 0 {
		o.BytesPerLine = 16
	}
	for _, m := range matches {
		if m < o.Base || uint64(m-o.Base) >= uint64(len(data)) {
			continue
		}
		rel := int(m - o.Base)
		start := max(0, rel/o.BytesPerLine*o.BytesPerLine-context*o.BytesPerLine)
		end := min(len(data), rel+o.Highlight.Len()+context*o.BytesPerLine)

		sub := o
		sub.Base = o.Base + process.ProcessMemoryAddress(start)
		sub.MaxLines = 0
		fmt.Fprintln(w, o.paint(coloransi.ColorOrange, "match at "+m.ToString()))
		DumpToWriter(w, data[start:end], sub)
		fmt.Fprintln(w, strings.Repeat("-", 16))
	}
}
