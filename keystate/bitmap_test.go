package keystate

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecode_LowestField(t *testing.T) {
	buf := make([]byte, BitmapSize)
	buf[0] = 0b00000001

	assert.True(t, Decode(buf, 0))
	assert.False(t, Decode(buf, 1))
	assert.False(t, Decode(buf, 2))
	assert.False(t, Decode(buf, 3))
}

func TestDecode_IgnoresToggleBit(t *testing.T) {
	buf := make([]byte, BitmapSize)
	buf[1] = 0b10101010 // toggle bits of keys 4..7

	for vk := 4; vk < 8; vk++ {
		assert.False(t, Decode(buf, vk), "vk %d", vk)
	}
}

func TestDecode_DependsOnlyOnOwnBit(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	base := make([]byte, BitmapSize)
	rng.Read(base)

	for vk := 0; vk < 256; vk++ {
		want := Decode(base, vk)
		ownByte, ownBit := vk/4, (vk%4)*2
		for i := 0; i < BitmapSize; i++ {
			for bit := 0; bit < 8; bit++ {
				if i == ownByte && bit == ownBit {
					continue
				}
				flipped := append([]byte(nil), base...)
				flipped[i] ^= 1 << bit
				if Decode(flipped, vk) != want {
					t.Fatalf("vk %d changed when flipping byte %d bit %d", vk, i, bit)
				}
			}
		}
		flipped := append([]byte(nil), base...)
		flipped[ownByte] ^= 1 << ownBit
		assert.NotEqual(t, want, Decode(flipped, vk), "vk %d", vk)
	}
}

func TestDecode_OutOfRange(t *testing.T) {
	buf := make([]byte, BitmapSize)
	for i := range buf {
		buf[i] = 0xFF
	}
	assert.False(t, Decode(buf, -1))
	assert.False(t, Decode(buf, 256))
	assert.False(t, Decode(buf, 1<<20))
	assert.False(t, Decode(buf, math.MaxInt/2+1))
	assert.False(t, Decode(buf, math.MaxInt))
	assert.False(t, Decode(nil, 0))

	b := NewBitmap(buf)
	assert.False(t, b.IsDown(math.MaxInt))
	assert.True(t, Decode(buf, 255))
}

func TestBitmap_PushKeepsPrevious(t *testing.T) {
	b := NewBitmap([]byte{0x01})
	b.Push([]byte{0x04})

	assert.True(t, b.IsDown(1))
	assert.False(t, b.IsDown(0))
	prev := b.Previous()
	assert.Equal(t, byte(0x01), prev[0])
	cur := b.Current()
	assert.Equal(t, byte(0x04), cur[0])
}
