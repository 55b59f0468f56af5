// Package process provides the types shared by every layer that reads remote memory:
// addresses, process contexts, module descriptors, byte patterns and the Transport
// that the memory-access backend implements.
package process

import "errors"

var (
	// ErrAddressNotMapped is returned when a memory address is not found within any mapped region of a process.
	ErrAddressNotMapped = errors.New("address not mapped")

	// ErrProcessNotFound is returned when no process matches a name or id.
	ErrProcessNotFound = errors.New("process not found")

	// ErrModuleNotFound is returned when a module is not loaded in the given process context.
	ErrModuleNotFound = errors.New("module not found")

	// ErrSymbolNotFound is returned when the debug symbol lookup has no entry for a symbol.
	ErrSymbolNotFound = errors.New("symbol not found")

	ErrInvalidPointer = errors.New("invalid pointer read")
)

// KernelFloor is the highest user-mode address on x64 Windows. Anything above it is
// treated as a plausible kernel-space pointer.
const KernelFloor = ProcessMemoryAddress(0x7FFFFFFFFFFF)

// IsKernelPointer reports whether addr lies above KernelFloor.
func IsKernelPointer(addr ProcessMemoryAddress) bool {
	return addr > KernelFloor
}
