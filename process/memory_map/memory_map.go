package memory_map

import (
	"fmt"
	"sort"
)

// MemoryMapItem represents a memory region in a process's address space
type MemoryMapItem struct {
	Address uint64 `yaml:"address"` // The starting address of the memory region
	Size    uint   `yaml:"size"`    // The size of the memory region in bytes
	Perms   string `yaml:"perms"`   // Permissions (e.g., "r-x")
	Path    string `yaml:"path,omitempty"`
}

// String returns a string representation of the memory map item
func (mmItem MemoryMapItem) String() string {
	return fmt.Sprintf("Address: %x, Size: %d, Perms: %s", mmItem.Address, mmItem.Size, mmItem.Perms)
}

// End returns the first address past the region.
func (mmItem MemoryMapItem) End() uint64 {
	return mmItem.Address + uint64(mmItem.Size)
}

func (mmItem MemoryMapItem) IsReadable() bool {
	return mmItem.Perms == "" || mmItem.Perms[0] == 'r'
}

// Contains reports whether [addr, addr+size) lies entirely inside the region.
func (mmItem MemoryMapItem) Contains(addr uint64, size uint64) bool {
	return addr >= mmItem.Address && addr+size <= mmItem.End() && addr+size >= addr
}

// Sort orders a memory map by address so Lookup can binary search it.
func Sort(memoryMap []MemoryMapItem) {
	sort.Slice(memoryMap, func(i, j int) bool {
		return memoryMap[i].Address < memoryMap[j].Address
	})
}

// Overlaps reports whether any two regions of a sorted map intersect.
func Overlaps(memoryMap []MemoryMapItem) bool {
	for i := 1; i < len(memoryMap); i++ {
		if memoryMap[i].Address < memoryMap[i-1].End() {
			return true
		}
	}
	return false
}

// Lookup returns the index of the region containing addr in a sorted map, or -1.
func Lookup(addr uint64, memoryMap []MemoryMapItem) int {
	i := sort.Search(len(memoryMap), func(i int) bool {
		return memoryMap[i].End() > addr
	})
	if i < len(memoryMap) && memoryMap[i].Address <= addr {
		return i
	}
	return -1
}
