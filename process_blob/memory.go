// Package process_blob implements process.Transport over byte blobs held in memory.
// It backs the snapshot tools and every resolver test.
package process_blob

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"gokbd/process"
	"gokbd/process/memory_map"
)

// kernelSpace is the region table key for memory visible to any kernel-flagged context.
const kernelSpace = process.ProcessID(0)

// ReadHook is consulted before every read; a non-nil error fails the read.
type ReadHook func(ctx process.ProcessContext, addr process.ProcessMemoryAddress, size process.ProcessMemorySize) error

type namedProcess struct {
	Name string
	PID  process.ProcessID
}

// Memory is an in-memory process.Transport.
type Memory struct {
	mu        sync.RWMutex
	processes []namedProcess
	mm        map[process.ProcessID][]memory_map.MemoryMapItem
	blobs     map[process.ProcessID]map[uint64][]byte
	modules   map[process.ProcessID]map[string]process.ModuleInfo
	symbols   map[string]process.ProcessMemoryAddress
	hook      ReadHook

	reads atomic.Int64
}

var _ process.Transport = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		mm:      make(map[process.ProcessID][]memory_map.MemoryMapItem),
		blobs:   make(map[process.ProcessID]map[uint64][]byte),
		modules: make(map[process.ProcessID]map[string]process.ModuleInfo),
		symbols: make(map[string]process.ProcessMemoryAddress),
	}
}

// AddProcess registers a process name for FindProcessesByName.
func (m *Memory) AddProcess(name string, pid process.ProcessID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processes = append(m.processes, namedProcess{Name: name, PID: pid})
}

// AddModule registers a module as loaded in pid. Kernel-flagged lookups of that pid
// see it as well.
func (m *Memory) AddModule(pid process.ProcessID, module process.ModuleInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mods, ok := m.modules[pid]
	if !ok {
		mods = make(map[string]process.ModuleInfo)
		m.modules[pid] = mods
	}
	mods[strings.ToLower(module.Name)] = module
}

// AddSymbol registers a debug symbol.
func (m *Memory) AddSymbol(module, symbol string, addr process.ProcessMemoryAddress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.symbols[symbolKey(module, symbol)] = addr
}

// Map backs [addr, addr+len(data)) in pid with a copy of data.
func (m *Memory) Map(pid process.ProcessID, addr process.ProcessMemoryAddress, data []byte) error {
	return m.mapRegion(pid, addr, data)
}

// MapKernel backs a kernel-space region readable from any kernel-flagged context.
func (m *Memory) MapKernel(addr process.ProcessMemoryAddress, data []byte) error {
	return m.mapRegion(kernelSpace, addr, data)
}

func (m *Memory) mapRegion(pid process.ProcessID, addr process.ProcessMemoryAddress, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty region at %s", addr.ToString())
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	item := memory_map.MemoryMapItem{Address: uint64(addr), Size: uint(len(data)), Perms: "r--"}
	regions := append(append([]memory_map.MemoryMapItem(nil), m.mm[pid]...), item)
	memory_map.Sort(regions)
	if memory_map.Overlaps(regions) {
		return fmt.Errorf("region %s overlaps an existing region of pid %d", item.String(), pid)
	}

	blobs, ok := m.blobs[pid]
	if !ok {
		blobs = make(map[uint64][]byte)
		m.blobs[pid] = blobs
	}
	blobs[item.Address] = append([]byte(nil), data...)
	m.mm[pid] = regions
	return nil
}

// Write overwrites bytes inside an already mapped region.
func (m *Memory) Write(ctx process.ProcessContext, addr process.ProcessMemoryAddress, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, offset, err := m.locate(ctx, addr, process.ProcessMemorySize(len(data)))
	if err != nil {
		return err
	}
	copy(blob[offset:], data)
	return nil
}

// SetReadHook installs a hook used to inject read failures.
func (m *Memory) SetReadHook(hook ReadHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hook = hook
}

// Reads returns the number of ReadMemory calls served so far, failed ones included.
func (m *Memory) Reads() int64 {
	return m.reads.Load()
}

func (m *Memory) ReadMemory(ctx process.ProcessContext, addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	m.reads.Add(1)
	if size == 0 {
		return []byte{}, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.hook != nil {
		if err := m.hook(ctx, addr, size); err != nil {
			return nil, err
		}
	}

	blob, offset, err := m.locate(ctx, addr, size)
	if err != nil {
		return nil, err
	}
	result := make([]byte, size)
	copy(result, blob[offset:offset+uint64(size)])
	return result, nil
}

// locate finds the blob backing the whole range. Process regions win over kernel space.
func (m *Memory) locate(ctx process.ProcessContext, addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, uint64, error) {
	spaces := []process.ProcessID{ctx.PID()}
	if ctx.IsKernel() {
		spaces = append(spaces, kernelSpace)
	}
	for _, pid := range spaces {
		regions := m.mm[pid]
		i := memory_map.Lookup(uint64(addr), regions)
		if i < 0 {
			continue
		}
		if !regions[i].Contains(uint64(addr), uint64(size)) {
			return nil, 0, fmt.Errorf("read of %d bytes at %s crosses region end: %w", size, addr.ToString(), process.ErrAddressNotMapped)
		}
		return m.blobs[pid][regions[i].Address], uint64(addr) - regions[i].Address, nil
	}
	return nil, 0, fmt.Errorf("%s in context %s: %w", addr.ToString(), ctx, process.ErrAddressNotMapped)
}

func (m *Memory) FindProcessesByName(name string) ([]process.ProcessID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var pids []process.ProcessID
	for _, p := range m.processes {
		if strings.EqualFold(p.Name, name) {
			pids = append(pids, p.PID)
		}
	}
	if len(pids) == 0 {
		return nil, fmt.Errorf("%s: %w", name, process.ErrProcessNotFound)
	}
	return pids, nil
}

func (m *Memory) FindModuleByName(ctx process.ProcessContext, name string) (process.ModuleInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if mod, ok := m.modules[ctx.PID()][strings.ToLower(name)]; ok {
		return mod, nil
	}
	return process.ModuleInfo{}, fmt.Errorf("%s in context %s: %w", name, ctx, process.ErrModuleNotFound)
}

func (m *Memory) LookupSymbol(module, symbol string) (process.ProcessMemoryAddress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if addr, ok := m.symbols[symbolKey(module, symbol)]; ok {
		return addr, nil
	}
	return 0, fmt.Errorf("%s!%s: %w", module, symbol, process.ErrSymbolNotFound)
}

func symbolKey(module, symbol string) string {
	return strings.ToLower(module) + "!" + symbol
}
