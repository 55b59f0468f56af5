//go:build linux

package process_linux

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type procEntry struct {
	PID  int
	Name string // comm or exe basename
}

// listByName returns processes whose comm or exe basename equals name, ignoring case.
func listByName(name string) ([]procEntry, error) {
	if name == "" {
		return nil, errors.New("empty name")
	}

	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, fmt.Errorf("read /proc: %w", err)
	}

	selfPID := os.Getpid()
	var out []procEntry
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil || pid <= 0 || pid == selfPID {
			continue
		}

		comm, _ := os.ReadFile(filepath.Join("/proc", e.Name(), "comm"))
		if c := strings.TrimSpace(string(comm)); strings.EqualFold(c, name) {
			out = append(out, procEntry{PID: pid, Name: c})
			continue
		}

		// comm is truncated to 15 bytes, so fall back to the exe link
		exe, _ := os.Readlink(filepath.Join("/proc", e.Name(), "exe"))
		if exe != "" && strings.EqualFold(filepath.Base(exe), name) {
			out = append(out, procEntry{PID: pid, Name: filepath.Base(exe)})
		}
	}
	return out, nil
}
