//go:build linux

package process_linux

import (
	"os"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gokbd/process"
)

var probe = [8]byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02, 0x03, 0x04}

func TestTransport_ReadsOwnMemory(t *testing.T) {
	tr := New()
	ctx := process.User(process.ProcessID(os.Getpid()))
	addr := process.ProcessMemoryAddress(uintptr(unsafe.Pointer(&probe[0])))

	data, err := tr.ReadMemory(ctx, addr, 8)
	require.NoError(t, err)
	assert.Equal(t, probe[:], data)

	v, err := process.ReadUINT32(tr, ctx, addr)
	require.NoError(t, err)
	assert.EqualValues(t, 0xEFBEADDE, v)
}

func TestTransport_RejectsKernel(t *testing.T) {
	tr := New()
	pid := process.ProcessID(os.Getpid())

	_, err := tr.ReadMemory(process.Kernel(pid), 0x1000, 8)
	assert.ErrorIs(t, err, process.ErrAddressNotMapped)
	_, err = tr.ReadMemory(process.User(pid), 0xFFFFF80000000000, 8)
	assert.ErrorIs(t, err, process.ErrAddressNotMapped)

	_, err = tr.FindModuleByName(process.Kernel(pid), "win32kbase.sys")
	assert.ErrorIs(t, err, process.ErrModuleNotFound)
	_, err = tr.LookupSymbol("win32kbase", "gafAsyncKeyState")
	assert.ErrorIs(t, err, process.ErrSymbolNotFound)
}

func TestTransport_ModulesOfSelf(t *testing.T) {
	tr := New()
	pid := process.ProcessID(os.Getpid())

	exe, err := os.Executable()
	require.NoError(t, err)
	mm, err := tr.MemoryMap(pid)
	require.NoError(t, err)
	require.NotEmpty(t, mm)

	var name string
	for _, mod := range Modules(mm) {
		if mod.Size > 0 {
			name = mod.Name
			break
		}
	}
	require.NotEmpty(t, name, "test binary %s maps no files", exe)

	mod, err := tr.FindModuleByName(process.User(pid), name)
	require.NoError(t, err)
	assert.NotZero(t, mod.Base)

	_, err = tr.FindModuleByName(process.User(pid), "win32k.sys")
	assert.ErrorIs(t, err, process.ErrModuleNotFound)
}

func TestTransport_FindProcessesByNameMissing(t *testing.T) {
	_, err := New().FindProcessesByName("csrss.exe-not-here")
	assert.ErrorIs(t, err, process.ErrProcessNotFound)
}
