package process_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gokbd/process"
	"gokbd/process_blob"
)

func TestProcessContext(t *testing.T) {
	k := process.Kernel(612)
	assert.EqualValues(t, 0x80000264, k)
	assert.True(t, k.IsKernel())
	assert.Equal(t, process.ProcessID(612), k.PID())
	assert.Equal(t, "612|kernel", k.String())

	u := process.User(612)
	assert.False(t, u.IsKernel())
	assert.Equal(t, u, process.User(k.PID()))
	assert.Equal(t, "612", u.String())
}

func TestIsKernelPointer(t *testing.T) {
	assert.False(t, process.IsKernelPointer(0))
	assert.False(t, process.IsKernelPointer(0x7FFFFFFFFFFF))
	assert.True(t, process.IsKernelPointer(0x800000000000))
	assert.True(t, process.IsKernelPointer(0xFFFFF80000000000))
}

func TestParseAOB(t *testing.T) {
	aob, err := process.ParseAOB("48 8b 05 ?? ? ,FF")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x48, 0x8B, 0x05, 0, 0, 0xFF}, aob.Pattern)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0, 0, 0xFF}, aob.Mask)
	assert.Equal(t, "48 8B 05 ?? ?? FF", aob.String())

	for _, bad := range []string{"", "  ", "4G", "100"} {
		_, err := process.ParseAOB(bad)
		assert.Error(t, err, bad)
	}
}

func TestAOB_MatchAt(t *testing.T) {
	aob := process.MustAOBFromMask([]byte{0x48, 0x00, 0xC8}, "x?x")
	assert.True(t, aob.MatchAt([]byte{0x48, 0x99, 0xC8}, 0))
	assert.True(t, aob.MatchAt([]byte{0x00, 0x48, 0x11, 0xC8}, 1))
	assert.False(t, aob.MatchAt([]byte{0x48, 0x99, 0xC9}, 0))
	assert.False(t, aob.MatchAt([]byte{0x48, 0x99}, 0), "pattern past end")
	assert.False(t, aob.MatchAt([]byte{0x48, 0x99, 0xC8}, -1))

	_, err := process.NewAOBFromMask([]byte{1, 2}, "x")
	assert.Error(t, err)
	assert.False(t, process.AOB{Pattern: []byte{1}}.IsValid())
}

const base = process.ProcessMemoryAddress(0xFFFFF96000000000)

func qword(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func TestResolveRelative_SignedDisplacement(t *testing.T) {
	mem := process_blob.NewMemory()
	insn := make([]byte, 16)
	copy(insn, []byte{0x48, 0x8B, 0x05})
	binary.LittleEndian.PutUint32(insn[3:], uint32(0x100))
	binary.LittleEndian.PutUint32(insn[10:], 0xFFFFFF00) // -0x100
	require.NoError(t, mem.MapKernel(base, insn))
	ctx := process.Kernel(4)

	fwd, err := process.ResolveRelative(mem, ctx, base, 3, 7)
	require.NoError(t, err)
	assert.Equal(t, base+7+0x100, fwd)

	back, err := process.ResolveRelative(mem, ctx, base+7, 3, 7)
	require.NoError(t, err)
	assert.Equal(t, base+14-0x100, back)

	_, err = process.ResolveRelative(mem, ctx, 0x1000, 3, 7)
	assert.ErrorIs(t, err, process.ErrAddressNotMapped)
}

func TestReadPointerChain(t *testing.T) {
	mem := process_blob.NewMemory()
	ctx := process.Kernel(4)

	// base -> [base+0x100] at +8 -> [base+0x200] -> 0xFFFFA00000200000
	table := make([]byte, 0x300)
	copy(table[8:], qword(uint64(base+0x100)))
	copy(table[0x100:], qword(uint64(base+0x200)))
	copy(table[0x200:], qword(0xFFFFA00000200000))
	require.NoError(t, mem.MapKernel(base, table))

	got, err := process.ReadPointerChain(mem, ctx, base, 8, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, process.ProcessMemoryAddress(0xFFFFA00000200000), got)

	_, err = process.ReadPointerChain(mem, ctx, base, 0x10)
	assert.ErrorIs(t, err, process.ErrInvalidPointer, "NULL entry")

	_, err = process.ReadPointerChain(mem, ctx, 0x1000, 0)
	assert.ErrorIs(t, err, process.ErrAddressNotMapped)

	_, err = process.ReadPOINTER(mem, ctx, 0)
	assert.ErrorIs(t, err, process.ErrInvalidPointer)
}

func TestReadTyped(t *testing.T) {
	mem := process_blob.NewMemory()
	ctx := process.Kernel(4)
	data := append(qword(0x1122334455667788), 0xFE, 0xFF, 0xFF, 0xFF)
	require.NoError(t, mem.MapKernel(base, data))

	u64, err := process.ReadUINT64(mem, ctx, base)
	require.NoError(t, err)
	assert.EqualValues(t, 0x1122334455667788, u64)

	u32, err := process.ReadUINT32(mem, ctx, base)
	require.NoError(t, err)
	assert.EqualValues(t, 0x55667788, u32)

	i32, err := process.ReadINT32(mem, ctx, base+8)
	require.NoError(t, err)
	assert.EqualValues(t, -2, i32)

	_, err = process.ReadUINT64(mem, ctx, base+8)
	assert.ErrorIs(t, err, process.ErrAddressNotMapped, "read crosses region end")
}
