//go:build linux

package process_linux

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"gokbd/process"
)

// process_vm_readv reads size bytes at remoteAddr in pid. Short reads are errors.
func process_vm_readv(pid process.ProcessID, remoteAddr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	localBuf := make([]byte, size)

	localIov := unix.Iovec{Base: &localBuf[0]}
	localIov.SetLen(int(size))

	remoteIov := unix.RemoteIovec{
		Base: uintptr(remoteAddr),
		Len:  int(size),
	}

	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_READV,
		uintptr(pid),
		uintptr(unsafe.Pointer(&localIov)),
		1,
		uintptr(unsafe.Pointer(&remoteIov)),
		1,
		0,
	)
	if errno != 0 {
		return nil, fmt.Errorf("%s: %w", remoteAddr.ToString(), errno)
	}
	if int(n) != int(size) {
		return nil, fmt.Errorf("partial read at %s: %d of %d bytes: %w", remoteAddr.ToString(), n, size, process.ErrAddressNotMapped)
	}
	return localBuf, nil
}
