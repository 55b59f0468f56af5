//go:build linux

// Package process_linux is a live process.Transport over /proc and process_vm_readv.
// It only serves user contexts: kernel-flagged reads and debug symbols are not
// available from user space.
package process_linux

import (
	"fmt"
	"os"
	"strings"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"

	"gokbd/process"
	"gokbd/process/memory_map"
)

type Transport struct {
	log *logger.Logger
}

var _ process.Transport = (*Transport)(nil)

func New() *Transport {
	return &Transport{
		log: logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "process-linux")),
	}
}

func (t *Transport) FindProcessesByName(name string) ([]process.ProcessID, error) {
	procs, err := listByName(name)
	if err != nil {
		return nil, err
	}
	if len(procs) == 0 {
		return nil, fmt.Errorf("%s: %w", name, process.ErrProcessNotFound)
	}
	pids := make([]process.ProcessID, len(procs))
	for i, p := range procs {
		pids[i] = process.ProcessID(p.PID)
	}
	return pids, nil
}

// MemoryMap reads /proc/[pid]/maps.
func (t *Transport) MemoryMap(pid process.ProcessID) ([]memory_map.MemoryMapItem, error) {
	file, err := os.Open(fmt.Sprintf("/proc/%d/maps", pid))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	mm, err := memory_map.ParseMaps(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read memory map of %d: %w", pid, err)
	}
	memory_map.Sort(mm)
	return mm, nil
}

func (t *Transport) FindModuleByName(ctx process.ProcessContext, name string) (process.ModuleInfo, error) {
	if ctx.IsKernel() {
		return process.ModuleInfo{}, fmt.Errorf("%s in context %s: kernel modules unavailable: %w", name, ctx, process.ErrModuleNotFound)
	}
	mm, err := t.MemoryMap(ctx.PID())
	if err != nil {
		return process.ModuleInfo{}, err
	}
	for _, mod := range Modules(mm) {
		if strings.EqualFold(mod.Name, name) {
			return mod, nil
		}
	}
	return process.ModuleInfo{}, fmt.Errorf("%s in context %s: %w", name, ctx, process.ErrModuleNotFound)
}

func (t *Transport) LookupSymbol(module, symbol string) (process.ProcessMemoryAddress, error) {
	return 0, fmt.Errorf("%s!%s: no symbol server: %w", module, symbol, process.ErrSymbolNotFound)
}

func (t *Transport) ReadMemory(ctx process.ProcessContext, addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if ctx.IsKernel() || process.IsKernelPointer(addr) {
		return nil, fmt.Errorf("%s in context %s: %w", addr.ToString(), ctx, process.ErrAddressNotMapped)
	}
	if size == 0 {
		return []byte{}, nil
	}
	data, err := process_vm_readv(ctx.PID(), addr, size)
	if err != nil {
		t.log.Debugln("read failed", ctx, addr.ToString(), err)
		return nil, fmt.Errorf("process_vm_readv: failed to read process memory: %w", err)
	}
	return data, nil
}
