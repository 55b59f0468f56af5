package resolver

import (
	"fmt"

	"gokbd/process"
)

const (
	// mov rax, [rip+rel32]: displacement at +3, instruction length 7
	slotsDispOffset = 3
	slotsInsnLen    = 7

	// lea rdx, [rax+imm32]: immediate at +3
	keyStateImmOffset = 3

	pointerSize = 8
)

// extractSignature walks session-space host processes and returns the first one
// whose signature chain yields a kernel address.
func (r *Resolver) extractSignature(_ process.ProcessContext) (Symbol, Outcome) {
	candidates := r.Candidates()
	if len(candidates) == 0 {
		r.log.Debugln("no", r.cfg.ServiceProcess, "candidates")
		return Symbol{}, Miss
	}
	r.log.Debugln("Found", len(candidates), r.cfg.ServiceProcess, "candidate(s)")

	for _, pid := range candidates {
		addr, err := r.resolveInSession(process.User(pid))
		if err != nil {
			r.log.Debugln("candidate", pid, err)
			continue
		}
		return Symbol{Address: addr, Source: SourceSignature}, Found
	}
	return Symbol{}, Miss
}

// resolveInSession runs the full chain in one process. Everything it reads stays
// local until the final address is returned.
func (r *Resolver) resolveInSession(ctx process.ProcessContext) (addr process.ProcessMemoryAddress, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			addr, err = 0, fmt.Errorf("panic: %v", rec)
		}
	}()

	session, err := r.findModule(ctx, r.cfg.SessionModules...)
	if err != nil {
		return 0, err
	}

	sigs := r.cfg.Signatures
	match, ok := r.scanner.ScanModule(r.transport, ctx, session, sigs.SessionSlots)
	if !ok {
		match, ok = r.scanner.ScanModule(r.transport, ctx, session, sigs.SessionSlotsAlternate)
	}
	if !ok {
		return 0, fmt.Errorf("session slot signature not found in %s", session.Name)
	}

	slots, err := process.ResolveRelative(r.transport, ctx, match, slotsDispOffset, slotsInsnLen)
	if err != nil {
		return 0, err
	}
	table, err := process.ReadPOINTER(r.transport, ctx, slots)
	if err != nil {
		return 0, fmt.Errorf("read slot table at %s: %w", slots.ToString(), err)
	}

	state, ok := r.sessionState(ctx, table)
	if !ok {
		return 0, fmt.Errorf("no session state in slot table %s", table.ToString())
	}

	base, err := r.transport.FindModuleByName(ctx, r.cfg.KernelModule)
	if err != nil {
		return 0, err
	}
	insn, ok := r.scanner.ScanModule(r.transport, ctx, base, sigs.KeyStateOffset)
	if !ok {
		return 0, fmt.Errorf("key state offset signature not found in %s", base.Name)
	}
	offset, err := process.ReadUINT32(r.transport, ctx, insn+keyStateImmOffset)
	if err != nil {
		return 0, fmt.Errorf("read key state offset at %s: %w", insn.ToString(), err)
	}

	addr = state + process.ProcessMemoryAddress(offset)
	if !process.IsKernelPointer(addr) {
		return 0, fmt.Errorf("resolved %s is not a kernel address", addr.ToString())
	}
	return addr, nil
}

// sessionState returns the first slot whose double dereference is a kernel pointer.
func (r *Resolver) sessionState(ctx process.ProcessContext, table process.ProcessMemoryAddress) (process.ProcessMemoryAddress, bool) {
	for i := 0; i < r.cfg.SlotCount; i++ {
		state, err := process.ReadPointerChain(r.transport, ctx, table, process.ProcessMemorySize(i*pointerSize), 0)
		if err != nil {
			continue
		}
		if process.IsKernelPointer(state) {
			return state, true
		}
	}
	return 0, false
}

// findModule returns the first of names loaded in ctx.
func (r *Resolver) findModule(ctx process.ProcessContext, names ...string) (process.ModuleInfo, error) {
	for _, name := range names {
		if mod, err := r.transport.FindModuleByName(ctx, name); err == nil {
			return mod, nil
		}
	}
	return process.ModuleInfo{}, fmt.Errorf("none of %v in %s: %w", names, ctx, process.ErrModuleNotFound)
}
