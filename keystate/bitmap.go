// Package keystate mirrors the kernel async key-state array and decodes it.
//
// The array stores two bits per virtual key: the low bit is "down", the high bit is
// "toggled since last query". Only the down bit is decoded.
package keystate

// BitmapSize is the size of the kernel array: 256 keys, 2 bits each.
const BitmapSize = 64

// Decode reports whether vk's down bit is set in buf. Keys outside buf are up.
func Decode(buf []byte, vk int) bool {
	if vk < 0 || vk >= len(buf)*4 {
		return false
	}
	index := vk * 2 / 8
	shift := (vk % 4) * 2
	return buf[index]&(1<<shift) != 0
}

// Bitmap is the current snapshot of the kernel array plus the one before it.
type Bitmap struct {
	current  [BitmapSize]byte
	previous [BitmapSize]byte
}

// NewBitmap returns a bitmap whose current snapshot is a copy of data.
func NewBitmap(data []byte) Bitmap {
	var b Bitmap
	copy(b.current[:], data)
	return b
}

func (b *Bitmap) IsDown(vk int) bool {
	return Decode(b.current[:], vk)
}

// Push makes data the current snapshot and keeps the old one as previous.
func (b *Bitmap) Push(data []byte) {
	b.previous = b.current
	b.current = [BitmapSize]byte{}
	copy(b.current[:], data)
}

func (b *Bitmap) Current() [BitmapSize]byte {
	return b.current
}

// Previous is the snapshot replaced by the last Push.
func (b *Bitmap) Previous() [BitmapSize]byte {
	return b.previous
}
