package memory_map

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// ParseMaps parses the /proc/[pid]/maps format. Malformed lines are skipped.
//
//	7f3a1c000000-7f3a1c021000 r-xp 00000000 08:01 1234  /usr/lib/libc.so.6
func ParseMaps(r io.Reader) ([]MemoryMapItem, error) {
	var memoryMap []MemoryMapItem
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		start, end, ok := strings.Cut(fields[0], "-")
		if !ok {
			continue
		}
		startAddr, err := strconv.ParseUint(start, 16, 64)
		if err != nil {
			continue
		}
		endAddr, err := strconv.ParseUint(end, 16, 64)
		if err != nil || endAddr <= startAddr {
			continue
		}

		item := MemoryMapItem{
			Address: startAddr,
			Size:    uint(endAddr - startAddr),
			Perms:   fields[1],
		}
		if len(fields) >= 6 {
			item.Path = strings.Join(fields[5:], " ")
		}
		memoryMap = append(memoryMap, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return memoryMap, nil
}
