package process

import (
	"encoding/binary"
	"fmt"
)

// ReadUINT32 reads an unsigned 32-bit little-endian integer
func ReadUINT32(r MemoryReader, ctx ProcessContext, addr ProcessMemoryAddress) (uint32, error) {
	data, err := r.ReadMemory(ctx, addr, 4)
	if err != nil {
		return 0, err
	}
	if len(data) < 4 {
		return 0, fmt.Errorf("short read at %s: %d bytes", addr.ToString(), len(data))
	}
	return binary.LittleEndian.Uint32(data), nil
}

// ReadINT32 reads a signed 32-bit little-endian integer
func ReadINT32(r MemoryReader, ctx ProcessContext, addr ProcessMemoryAddress) (int32, error) {
	v, err := ReadUINT32(r, ctx, addr)
	return int32(v), err
}

// ReadUINT64 reads an unsigned 64-bit little-endian integer
func ReadUINT64(r MemoryReader, ctx ProcessContext, addr ProcessMemoryAddress) (uint64, error) {
	data, err := r.ReadMemory(ctx, addr, 8)
	if err != nil {
		return 0, err
	}
	if len(data) < 8 {
		return 0, fmt.Errorf("short read at %s: %d bytes", addr.ToString(), len(data))
	}
	return binary.LittleEndian.Uint64(data), nil
}

// ReadPOINTER reads a 64-bit pointer value from the specified address
func ReadPOINTER(r MemoryReader, ctx ProcessContext, addr ProcessMemoryAddress) (ProcessMemoryAddress, error) {
	if addr == 0 {
		return 0, fmt.Errorf("%w: 0x0", ErrInvalidPointer)
	}
	v, err := ReadUINT64(r, ctx, addr)
	if err != nil {
		return 0, err
	}
	return ProcessMemoryAddress(v), nil
}

// ResolveRelative decodes a RIP-relative operand: the int32 displacement at
// insn+dispOffset is added to the address of the next instruction (insn+insnLen).
func ResolveRelative(r MemoryReader, ctx ProcessContext, insn ProcessMemoryAddress, dispOffset, insnLen int) (ProcessMemoryAddress, error) {
	rel, err := ReadINT32(r, ctx, insn+ProcessMemoryAddress(dispOffset))
	if err != nil {
		return 0, fmt.Errorf("read displacement at %s: %w", insn.ToString(), err)
	}
	return ProcessMemoryAddress(int64(insn) + int64(insnLen) + int64(rel)), nil
}
