package process_linux

import (
	"path/filepath"
	"sort"

	"gokbd/process"
	"gokbd/process/memory_map"
)

// Modules folds the file-backed mappings of a memory map into one ModuleInfo per
// file, spanning from its lowest to its highest mapped address.
func Modules(mm []memory_map.MemoryMapItem) []process.ModuleInfo {
	byPath := make(map[string]*process.ModuleInfo)
	var order []string
	for _, item := range mm {
		if item.Path == "" || item.Path[0] == '[' {
			continue
		}
		start := process.ProcessMemoryAddress(item.Address)
		end := process.ProcessMemoryAddress(item.End())

		mod, ok := byPath[item.Path]
		if !ok {
			byPath[item.Path] = &process.ModuleInfo{Name: filepath.Base(item.Path), Base: start, Size: process.ProcessMemorySize(end - start)}
			order = append(order, item.Path)
			continue
		}
		if start < mod.Base {
			mod.Size += process.ProcessMemorySize(mod.Base - start)
			mod.Base = start
		}
		if end > mod.End() {
			mod.Size = process.ProcessMemorySize(end - mod.Base)
		}
	}

	modules := make([]process.ModuleInfo, 0, len(order))
	for _, path := range order {
		modules = append(modules, *byPath[path])
	}
	sort.Slice(modules, func(i, j int) bool { return modules[i].Base < modules[j].Base })
	return modules
}
