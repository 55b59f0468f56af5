package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"gokbd/process"
	"gokbd/process/memory_map"
	"gokbd/process_blob"
)

// source is a live transport that can also list mappings.
type source interface {
	process.Transport
	MemoryMap(pid process.ProcessID) ([]memory_map.MemoryMapItem, error)
}

func main() {
	pidFlag := flag.Int("pid", 0, "Process ID to capture")
	nameFlag := flag.String("name", "", "Process name to capture (first match) when --pid is not given")
	modulesFlag := flag.String("modules", "", "Comma separated modules to capture")
	outputFlag := flag.String("output", "", "Output directory for the snapshot")
	flag.Parse()

	if *outputFlag == "" || *modulesFlag == "" {
		fmt.Println("Error: --output and --modules are required")
		flag.Usage()
		os.Exit(1)
	}

	src, err := newSource()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	pid := process.ProcessID(*pidFlag)
	name := *nameFlag
	if pid == 0 {
		if name == "" {
			fmt.Println("Error: one of --pid or --name is required")
			os.Exit(1)
		}
		pids, err := src.FindProcessesByName(name)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		pid = pids[0]
	}
	if name == "" {
		name = fmt.Sprintf("pid-%d", pid)
	}

	mem, err := capture(src, pid, name, strings.Split(*modulesFlag, ","))
	if err != nil {
		fmt.Printf("Error capturing %d: %v\n", pid, err)
		os.Exit(1)
	}

	fmt.Printf("Saving snapshot to %s...\n", *outputFlag)
	if err := mem.Save(*outputFlag); err != nil {
		fmt.Printf("Error saving snapshot: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Snapshot saved successfully.")
}

// capture copies every readable mapping of the named modules into a new Memory.
func capture(src source, pid process.ProcessID, name string, modules []string) (*process_blob.Memory, error) {
	mm, err := src.MemoryMap(pid)
	if err != nil {
		return nil, err
	}

	mem := process_blob.NewMemory()
	mem.AddProcess(name, pid)
	ctx := process.User(pid)

	for _, modName := range modules {
		modName = strings.TrimSpace(modName)
		if modName == "" {
			continue
		}
		mod, err := src.FindModuleByName(ctx, modName)
		if err != nil {
			return nil, err
		}
		mem.AddModule(pid, mod)

		saved := 0
		for _, item := range mm {
			addr := process.ProcessMemoryAddress(item.Address)
			if !item.IsReadable() || addr < mod.Base || addr >= mod.End() {
				continue
			}
			data, err := src.ReadMemory(ctx, addr, process.ProcessMemorySize(item.Size))
			if err != nil {
				fmt.Printf("  skipping %s: %v\n", item.String(), err)
				continue
			}
			if err := mem.Map(pid, addr, data); err != nil {
				return nil, err
			}
			saved++
		}
		fmt.Printf("Captured %s: %d region(s)\n", mod, saved)
	}
	return mem, nil
}
