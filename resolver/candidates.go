package resolver

import "gokbd/process"

// Candidates lists the processes that may map session space, in discovery order.
// Name lookup is preferred; when it finds nothing, pids in the probe range are
// tested for a loaded session module.
func (r *Resolver) Candidates() []process.ProcessID {
	var pids []process.ProcessID
	seen := make(map[process.ProcessID]bool)

	found, err := r.transport.FindProcessesByName(r.cfg.ServiceProcess)
	if err == nil {
		for _, pid := range found {
			if !seen[pid] {
				seen[pid] = true
				pids = append(pids, pid)
			}
		}
	}
	if len(pids) > 0 {
		return pids
	}

	r.log.Debugln("Could not find", r.cfg.ServiceProcess, "by name, probing pid range")
	if r.cfg.ProbeStep == 0 {
		return nil
	}
	for pid := uint64(r.cfg.ProbeStart); pid < uint64(r.cfg.ProbeEnd); pid += uint64(r.cfg.ProbeStep) {
		if r.hostsAny(process.User(process.ProcessID(pid)), r.cfg.ProbeModules) {
			pids = append(pids, process.ProcessID(pid))
			if r.cfg.ProbeLimit > 0 && len(pids) >= r.cfg.ProbeLimit {
				break
			}
		}
	}
	return pids
}

func (r *Resolver) hostsAny(ctx process.ProcessContext, modules []string) bool {
	for _, name := range modules {
		if _, err := r.transport.FindModuleByName(ctx, name); err == nil {
			return true
		}
	}
	return false
}
