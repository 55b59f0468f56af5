package main

import (
	"flag"
	"fmt"
	"os"

	"gokbd/config"
	"gokbd/hexdump"
	"gokbd/process"
	"gokbd/process_blob"
	"gokbd/search"
)

func main() {
	fromFlag := flag.String("from", "", "Snapshot directory")
	pidFlag := flag.Int("pid", 0, "Process ID whose view of memory is scanned")
	kernelFlag := flag.Bool("kernel", false, "Read through the kernel context of --pid")
	moduleFlag := flag.String("module", "", "Module to scan")
	aobFlag := flag.String("aob", "", "Array of bytes to scan for (e.g., '48 8B 05 ?? ?? ?? ??')")
	sigFlag := flag.String("sig", "", "Configured signature to scan for: session_slots, session_slots_alternate or key_state_offset")
	configFlag := flag.String("config", "keyprobe.toml", "Configuration file for --sig")
	contextFlag := flag.Int("context", 1, "Lines of context around each match")
	noColorFlag := flag.Bool("no-color", false, "Disable colored output")
	flag.Parse()

	if *fromFlag == "" || *moduleFlag == "" {
		fmt.Println("Error: --from and --module are required")
		flag.Usage()
		os.Exit(1)
	}

	aob, err := pattern(*aobFlag, *sigFlag, *configFlag)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	mem, err := process_blob.Load(*fromFlag)
	if err != nil {
		fmt.Printf("Error loading snapshot from %s: %v\n", *fromFlag, err)
		os.Exit(1)
	}

	ctx := process.User(process.ProcessID(*pidFlag))
	if *kernelFlag {
		ctx = process.Kernel(process.ProcessID(*pidFlag))
	}

	module, err := mem.FindModuleByName(ctx, *moduleFlag)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Scanning %s in %s for: %s\n", module, ctx, aob)
	matches, err := search.New().ScanAll(mem, ctx, module.Base, module.Size, aob)
	if err != nil {
		fmt.Printf("Scan error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Found %d matches\n", len(matches))

	options := hexdump.DefaultOptions()
	options.Color = !*noColorFlag
	options.Highlight = aob
	options.KernelPointers = true

	span := process.ProcessMemoryAddress(*contextFlag * options.BytesPerLine)
	for _, match := range matches {
		start := module.Base
		if match-module.Base > span {
			start = match - span
		}
		end := min(module.End(), match+process.ProcessMemoryAddress(aob.Len())+span)

		data, err := mem.ReadMemory(ctx, start, process.ProcessMemorySize(end-start))
		if err != nil {
			fmt.Printf("Match at %s (unreadable: %v)\n", match.ToString(), err)
			continue
		}
		options.Base = start
		hexdump.Matches(os.Stdout, data, options, []process.ProcessMemoryAddress{match}, *contextFlag)
	}
}

func pattern(aobText, sig, configPath string) (process.AOB, error) {
	if aobText != "" {
		return process.ParseAOB(aobText)
	}
	if sig == "" {
		return process.AOB{}, fmt.Errorf("one of --aob or --sig is required")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return process.AOB{}, err
	}
	rc, err := cfg.ResolverConfig()
	if err != nil {
		return process.AOB{}, err
	}
	switch sig {
	case "session_slots":
		return rc.Signatures.SessionSlots, nil
	case "session_slots_alternate":
		return rc.Signatures.SessionSlotsAlternate, nil
	case "key_state_offset":
		return rc.Signatures.KeyStateOffset, nil
	}
	return process.AOB{}, fmt.Errorf("unknown signature %q", sig)
}
