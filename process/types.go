package process

import "fmt"

// ProcessID represents a unique identifier for a process
type ProcessID uint32

// KernelMemoryFlag is or'ed into a pid to ask the transport for reads that can reach
// kernel address space through that process.
const KernelMemoryFlag = 0x80000000

// ProcessContext is the id a transport read is issued against: a pid, optionally
// combined with KernelMemoryFlag.
type ProcessContext uint32

// User returns a plain context for pid.
func User(pid ProcessID) ProcessContext {
	return ProcessContext(uint32(pid) &^ KernelMemoryFlag)
}

// Kernel returns a kernel-memory context for pid.
func Kernel(pid ProcessID) ProcessContext {
	return ProcessContext(uint32(pid) | KernelMemoryFlag)
}

// PID strips the kernel flag.
func (c ProcessContext) PID() ProcessID {
	return ProcessID(uint32(c) &^ KernelMemoryFlag)
}

func (c ProcessContext) IsKernel() bool {
	return uint32(c)&KernelMemoryFlag != 0
}

func (c ProcessContext) String() string {
	if c.IsKernel() {
		return fmt.Sprintf("%d|kernel", c.PID())
	}
	return fmt.Sprintf("%d", c.PID())
}

// ModuleInfo describes a loaded module (driver or image) as seen from a process context.
type ModuleInfo struct {
	Name string
	Base ProcessMemoryAddress
	Size ProcessMemorySize
}

// End returns the first address past the module image.
func (m ModuleInfo) End() ProcessMemoryAddress {
	return m.Base + ProcessMemoryAddress(m.Size)
}

func (m ModuleInfo) String() string {
	return fmt.Sprintf("%s [%s, %s)", m.Name, m.Base.ToString(), m.End().ToString())
}
