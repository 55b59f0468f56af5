package hexdump

import (
	"fmt"
	"io"

	"github.com/Moonlight-Companies/gologger/coloransi"

	"gokbd/keystate"
)

// Bitmap draws the 256 virtual keys as a 16x16 grid. Held keys are '#', keys that
// went down since the previous read are '+', released keys are '-'.
func Bitmap(w io.Writer, b keystate.Bitmap, colored bool) {
	cur, prev := b.Current(), b.Previous()

	fmt.Fprint(w, "    ")
	for col := 0; col < 16; col++ {
		fmt.Fprintf(w, "%X", col)
	}
	fmt.Fprintln(w)

	for row := 0; row < 16; row++ {
		fmt.Fprintf(w, "%02X  ", row*16)
		for col := 0; col < 16; col++ {
			vk := row*16 + col
			now, was := keystate.Decode(cur[:], vk), keystate.Decode(prev[:], vk)
			switch {
			case now && !was:
				fmt.Fprint(w, paint(colored, coloransi.ColorOrange, "+"))
			case now:
				fmt.Fprint(w, paint(colored, coloransi.Green, "#"))
			case was:
				fmt.Fprint(w, paint(colored, coloransi.Red, "-"))
			default:
				fmt.Fprint(w, paint(colored, coloransi.BrightBlack, "."))
			}
		}
		fmt.Fprintln(w)
	}
}
