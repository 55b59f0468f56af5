package process_blob

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"go.yaml.in/yaml/v3"

	"gokbd/process"
)

// ManifestName is the file describing a snapshot directory.
const ManifestName = "manifest.yaml"

// Manifest is the on-disk description of a captured machine: process table, module
// table, symbols and the raw regions stored next to it as .bin files. Addresses are
// strings so 64-bit kernel pointers survive any YAML integer handling ("0xFFFF...").
type Manifest struct {
	Processes []ManifestProcess `yaml:"processes"`
	Modules   []ManifestModule  `yaml:"modules"`
	Symbols   []ManifestSymbol  `yaml:"symbols,omitempty"`
	Regions   []ManifestRegion  `yaml:"regions"`
}

type ManifestProcess struct {
	Name string            `yaml:"name"`
	PID  process.ProcessID `yaml:"pid"`
}

type ManifestModule struct {
	PID  process.ProcessID `yaml:"pid"`
	Name string            `yaml:"name"`
	Base string            `yaml:"base"`
	Size string            `yaml:"size"`
}

type ManifestSymbol struct {
	Module  string `yaml:"module"`
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

// ManifestRegion is a region of pid's address space; Kernel regions ignore PID.
type ManifestRegion struct {
	PID     process.ProcessID `yaml:"pid,omitempty"`
	Kernel  bool              `yaml:"kernel,omitempty"`
	Address string            `yaml:"address"`
	File    string            `yaml:"file"`
}

func parseAddress(s string) (process.ProcessMemoryAddress, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return process.ProcessMemoryAddress(v), nil
}

// Load reads a snapshot directory into a new Memory.
func Load(dirname string) (*Memory, error) {
	raw, err := os.ReadFile(filepath.Join(dirname, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var manifest Manifest
	if err := yaml.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}

	m := NewMemory()
	for _, p := range manifest.Processes {
		m.AddProcess(p.Name, p.PID)
	}
	for _, mod := range manifest.Modules {
		base, err := parseAddress(mod.Base)
		if err != nil {
			return nil, fmt.Errorf("module %s: %w", mod.Name, err)
		}
		size, err := strconv.ParseUint(mod.Size, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("module %s: invalid size %q: %w", mod.Name, mod.Size, err)
		}
		m.AddModule(mod.PID, process.ModuleInfo{Name: mod.Name, Base: base, Size: process.ProcessMemorySize(size)})
	}
	for _, sym := range manifest.Symbols {
		addr, err := parseAddress(sym.Address)
		if err != nil {
			return nil, fmt.Errorf("symbol %s!%s: %w", sym.Module, sym.Name, err)
		}
		m.AddSymbol(sym.Module, sym.Name, addr)
	}
	for _, region := range manifest.Regions {
		addr, err := parseAddress(region.Address)
		if err != nil {
			return nil, fmt.Errorf("region %s: %w", region.File, err)
		}
		data, err := os.ReadFile(filepath.Join(dirname, region.File))
		if err != nil {
			return nil, fmt.Errorf("failed to read blob %s: %w", region.File, err)
		}
		if region.Kernel {
			err = m.MapKernel(addr, data)
		} else {
			err = m.Map(region.PID, addr, data)
		}
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Save writes the Memory as a snapshot directory that Load can read back.
func (m *Memory) Save(dirname string) error {
	if err := os.MkdirAll(dirname, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var manifest Manifest
	for _, p := range m.processes {
		manifest.Processes = append(manifest.Processes, ManifestProcess{Name: p.Name, PID: p.PID})
	}

	pids := make([]process.ProcessID, 0, len(m.modules))
	for pid := range m.modules {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	for _, pid := range pids {
		names := make([]string, 0, len(m.modules[pid]))
		for name := range m.modules[pid] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			mod := m.modules[pid][name]
			manifest.Modules = append(manifest.Modules, ManifestModule{
				PID:  pid,
				Name: mod.Name,
				Base: mod.Base.ToString(),
				Size: fmt.Sprintf("0x%X", uint64(mod.Size)),
			})
		}
	}

	keys := make([]string, 0, len(m.symbols))
	for key := range m.symbols {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		module, name := splitSymbolKey(key)
		manifest.Symbols = append(manifest.Symbols, ManifestSymbol{Module: module, Name: name, Address: m.symbols[key].ToString()})
	}

	pids = pids[:0]
	for pid := range m.mm {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
	for _, pid := range pids {
		for _, item := range m.mm[pid] {
			filename := fmt.Sprintf("blob_%d_0x%x_%d.bin", pid, item.Address, item.Size)
			if err := os.WriteFile(filepath.Join(dirname, filename), m.blobs[pid][item.Address], 0644); err != nil {
				return fmt.Errorf("failed to write blob %s: %w", filename, err)
			}
			region := ManifestRegion{Address: fmt.Sprintf("0x%X", item.Address), File: filename}
			if pid == kernelSpace {
				region.Kernel = true
			} else {
				region.PID = pid
			}
			manifest.Regions = append(manifest.Regions, region)
		}
	}

	out, err := yaml.Marshal(&manifest)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dirname, ManifestName), out, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

func splitSymbolKey(key string) (string, string) {
	for i := 0; i < len(key); i++ {
		if key[i] == '!' {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}
