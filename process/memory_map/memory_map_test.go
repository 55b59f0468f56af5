package memory_map

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	mm := []MemoryMapItem{
		{Address: 0x3000, Size: 0x1000, Perms: "r--"},
		{Address: 0x1000, Size: 0x1000, Perms: "---"},
	}
	Sort(mm)
	assert.Equal(t, uint64(0x1000), mm[0].Address)
	assert.False(t, Overlaps(mm))

	assert.Equal(t, 0, Lookup(0x1000, mm))
	assert.Equal(t, 0, Lookup(0x1FFF, mm))
	assert.Equal(t, -1, Lookup(0x2000, mm))
	assert.Equal(t, 1, Lookup(0x3800, mm))
	assert.Equal(t, -1, Lookup(0x4000, mm))
	assert.Equal(t, -1, Lookup(0x0, mm))

	assert.False(t, mm[Lookup(0x1800, mm)].IsReadable())
	assert.True(t, mm[Lookup(0x3800, mm)].IsReadable())
}

func TestContainsAndOverlaps(t *testing.T) {
	item := MemoryMapItem{Address: 0x1000, Size: 0x100}
	assert.True(t, item.Contains(0x1000, 0x100))
	assert.False(t, item.Contains(0x10F8, 0x10))
	assert.False(t, item.Contains(0xFFFFFFFFFFFFFFF8, 0x10), "wraparound")

	mm := []MemoryMapItem{{Address: 0x1000, Size: 0x100}, {Address: 0x10F0, Size: 0x10}}
	assert.True(t, Overlaps(mm))
}

func TestParseMaps(t *testing.T) {
	input := `55d0c8a00000-55d0c8a02000 r--p 00000000 08:01 131 /usr/bin/csrss exe
55d0c8a02000-55d0c8a08000 r-xp 00002000 08:01 131 /usr/bin/csrss exe
garbage line
7ffd1e000000-7ffd1e021000 rw-p 00000000 00:00 0 [stack]
7ffd1e100000-7ffd1e101000 ---p 00000000 00:00 0
ffffffffff600000-ffffffffff601000 --xp 00000000 00:00 0 [vsyscall]
`
	mm, err := ParseMaps(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, mm, 5)

	assert.Equal(t, MemoryMapItem{Address: 0x55d0c8a00000, Size: 0x2000, Perms: "r--p", Path: "/usr/bin/csrss exe"}, mm[0])
	assert.Equal(t, "[stack]", mm[2].Path)
	assert.Empty(t, mm[3].Path)
	assert.False(t, mm[3].IsReadable())
	assert.Equal(t, uint64(0xffffffffff601000), mm[4].End())
}
