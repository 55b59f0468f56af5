package resolver

import "gokbd/process"

// extractSymbol asks the transport's debug symbol service for the key-state array.
// A missing kernel module aborts resolution; a failed lookup lets the signature
// strategy run.
func (r *Resolver) extractSymbol(kernel process.ProcessContext) (Symbol, Outcome) {
	if _, err := r.transport.FindModuleByName(kernel, r.cfg.KernelModule); err != nil {
		r.log.Warn("failed to get ", r.cfg.KernelModule, " module: ", err)
		return Symbol{}, Abort
	}

	addr, err := r.transport.LookupSymbol(r.cfg.SymbolModule, r.cfg.SymbolName)
	if err != nil {
		r.log.Debugln("symbol lookup failed:", err)
		return Symbol{}, Miss
	}

	sym := Symbol{Address: addr, Source: SourceSymbol}
	if !sym.Valid() {
		r.log.Debugln("symbol lookup returned non-kernel address", addr.ToString())
		return Symbol{}, Miss
	}
	return sym, Found
}
