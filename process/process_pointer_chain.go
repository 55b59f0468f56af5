package process

import "fmt"

// ReadPointerChain starts at base and, for each offset, dereferences the pointer
// stored at current+offset. It returns the last pointer read.
//
// Example:
//
//	// table -> [ +16 ]entry -> [ +0 ]state
//	state, err := process.ReadPointerChain(r, ctx, table, 16, 0)
//
// A zero pointer at any step is an error; validity of non-zero values is left to
// the caller, since user-mode contexts may legitimately hold kernel pointers.
func ReadPointerChain(r MemoryReader, ctx ProcessContext, base ProcessMemoryAddress, offsets ...ProcessMemorySize) (ProcessMemoryAddress, error) {
	current := base
	for i, off := range offsets {
		addr := current + ProcessMemoryAddress(off)
		ptr, err := ReadPOINTER(r, ctx, addr)
		if err != nil {
			return 0, fmt.Errorf("ReadPointerChain: step %d (addr=%#x + off=%#x): %w", i, uint64(current), uint64(off), err)
		}
		if ptr == 0 {
			return 0, fmt.Errorf("ReadPointerChain: NULL pointer at step %d (addr=%#x + off=%#x): %w", i, uint64(current), uint64(off), ErrInvalidPointer)
		}
		current = ptr
	}
	return current, nil
}
