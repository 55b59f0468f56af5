//go:build windows

// Package process_windows is a live process.Transport over the Win32 debugging API.
// Like process_linux it serves user contexts only.
package process_windows

import (
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/windows"

	"gokbd/process"
	"gokbd/process/memory_map"
)

const processAccess = windows.PROCESS_VM_READ | windows.PROCESS_QUERY_INFORMATION

// Transport keeps one handle per opened pid until Close.
type Transport struct {
	mu      sync.Mutex
	handles map[process.ProcessID]windows.Handle
	log     *logger.Logger
}

var _ process.Transport = (*Transport)(nil)

func New() *Transport {
	return &Transport{
		handles: make(map[process.ProcessID]windows.Handle),
		log:     logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "process-windows")),
	}
}

func (t *Transport) open(pid process.ProcessID) (windows.Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if h, ok := t.handles[pid]; ok {
		return h, nil
	}
	h, err := windows.OpenProcess(processAccess, false, uint32(pid))
	if err != nil {
		return 0, fmt.Errorf("OpenProcess %d failed: %w", pid, err)
	}
	t.handles[pid] = h
	t.log.Infoln("Process opened", pid)
	return h, nil
}

// Close releases every process handle.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var first error
	for pid, h := range t.handles {
		if err := windows.CloseHandle(h); err != nil && first == nil {
			first = fmt.Errorf("CloseHandle %d failed: %w", pid, err)
		}
		delete(t.handles, pid)
	}
	return first
}

func (t *Transport) FindProcessesByName(name string) ([]process.ProcessID, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, fmt.Errorf("CreateToolhelp32Snapshot failed: %w", err)
	}
	defer windows.CloseHandle(snap)

	var pids []process.ProcessID
	entry := windows.ProcessEntry32{Size: uint32(unsafe.Sizeof(windows.ProcessEntry32{}))}
	for err = windows.Process32First(snap, &entry); err == nil; err = windows.Process32Next(snap, &entry) {
		if strings.EqualFold(windows.UTF16ToString(entry.ExeFile[:]), name) {
			pids = append(pids, process.ProcessID(entry.ProcessID))
		}
	}
	if len(pids) == 0 {
		return nil, fmt.Errorf("%s: %w", name, process.ErrProcessNotFound)
	}
	return pids, nil
}

func (t *Transport) FindModuleByName(ctx process.ProcessContext, name string) (process.ModuleInfo, error) {
	if ctx.IsKernel() {
		return process.ModuleInfo{}, fmt.Errorf("%s in context %s: kernel modules unavailable: %w", name, ctx, process.ErrModuleNotFound)
	}
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPMODULE|windows.TH32CS_SNAPMODULE32, uint32(ctx.PID()))
	if err != nil {
		return process.ModuleInfo{}, fmt.Errorf("CreateToolhelp32Snapshot %d failed: %w", ctx.PID(), err)
	}
	defer windows.CloseHandle(snap)

	entry := windows.ModuleEntry32{Size: uint32(unsafe.Sizeof(windows.ModuleEntry32{}))}
	for err = windows.Module32First(snap, &entry); err == nil; err = windows.Module32Next(snap, &entry) {
		modName := windows.UTF16ToString(entry.Module[:])
		if strings.EqualFold(modName, name) {
			return process.ModuleInfo{
				Name: modName,
				Base: process.ProcessMemoryAddress(entry.ModBaseAddr),
				Size: process.ProcessMemorySize(entry.ModBaseSize),
			}, nil
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
	h, err := t.open(ctx.PID())
	if err != nil {
		return nil, err
	}

	buf := make([]byte, size)
	var n uintptr
	if err := windows.ReadProcessMemory(h, uintptr(addr), &buf[0], uintptr(size), &n); err != nil {
		return nil, fmt.Errorf("ReadProcessMemory at %s failed: %w", addr.ToString(), err)
	}
	if n != uintptr(size) {
		return nil, fmt.Errorf("read incomplete at %s: expected %d, got %d: %w", addr.ToString(), size, n, process.ErrAddressNotMapped)
	}
	return buf, nil
}

// MemoryMap walks the committed regions of pid with VirtualQueryEx.
func (t *Transport) MemoryMap(pid process.ProcessID) ([]memory_map.MemoryMapItem, error) {
	h, err := t.open(pid)
	if err != nil {
		return nil, err
	}

	var mm []memory_map.MemoryMapItem
	var mbi windows.MemoryBasicInformation
	for addr := uintptr(0); ; {
		if err := windows.VirtualQueryEx(h, addr, &mbi, unsafe.Sizeof(mbi)); err != nil || mbi.RegionSize == 0 {
			break
		}
		if mbi.State == windows.MEM_COMMIT {
			mm = append(mm, memory_map.MemoryMapItem{
				Address: uint64(mbi.BaseAddress),
				Size:    uint(mbi.RegionSize),
				Perms:   perms(mbi.Protect),
			})
		}
		next := mbi.BaseAddress + mbi.RegionSize
		if next <= addr {
			break
		}
		addr = next
	}
	return mm, nil
}

func perms(protect uint32) string {
	if protect&(windows.PAGE_GUARD|windows.PAGE_NOACCESS) != 0 {
		return "---"
	}
	switch protect & 0xFF {
	case windows.PAGE_READONLY:
		return "r--"
	case windows.PAGE_READWRITE, windows.PAGE_WRITECOPY:
		return "rw-"
	case windows.PAGE_EXECUTE_READ:
		return "r-x"
	case windows.PAGE_EXECUTE_READWRITE, windows.PAGE_EXECUTE_WRITECOPY:
		return "rwx"
	case windows.PAGE_EXECUTE:
		return "--x"
	}
	return "---"
}
