package process

// MemoryReader is the read half of a Transport. The pattern scanner and the state
// poller only need this.
type MemoryReader interface {
	// ReadMemory reads exactly size bytes at addr in the given context
	ReadMemory(ctx ProcessContext, addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error)
}

// Transport is the remote memory-access backend (DMA device, hypervisor bridge,
// snapshot file). Implementations own their own timeouts; every call either returns
// or fails.
type Transport interface {
	MemoryReader

	// FindProcessesByName returns the ids of every process with the given image name,
	// in enumeration order
	FindProcessesByName(name string) ([]ProcessID, error)

	// FindModuleByName returns base and image size of a module loaded in ctx
	FindModuleByName(ctx ProcessContext, name string) (ModuleInfo, error)

	// LookupSymbol resolves a debug symbol address by module short name (no extension)
	LookupSymbol(module, symbol string) (ProcessMemoryAddress, error)
}
