package process

import (
	"fmt"
	"strconv"
	"strings"
)

// ProcessMemoryAddress represents a memory address within a process
type ProcessMemoryAddress uint64

func (pma ProcessMemoryAddress) ToString() string {
	return fmt.Sprintf("0x%X", uint64(pma))
}

// ProcessMemorySize represents a size of memory region
type ProcessMemorySize uint

func (pms ProcessMemorySize) ToString() string {
	return fmt.Sprintf("%d bytes", uint(pms))
}

// AOB (Array of Bytes) represents a pattern to search for in memory
type AOB struct {
	Pattern []byte // The byte pattern to search for
	Mask    []byte // 0xFF means exact match and 0x00 means wildcard
}

// IsValid checks if the AOB pattern is valid
func (aob AOB) IsValid() bool {
	return len(aob.Pattern) > 0 && len(aob.Pattern) == len(aob.Mask)
}

// Len returns the pattern length in bytes.
func (aob AOB) Len() int {
	return len(aob.Pattern)
}

// MatchAt reports whether data starting at offset i matches the pattern.
// The comparison stops at the first mismatching non-wildcard byte.
func (aob AOB) MatchAt(data []byte, i int) bool {
	if i < 0 || i+len(aob.Pattern) > len(data) {
		return false
	}
	for j := 0; j < len(aob.Pattern); j++ {
		if aob.Mask[j] == 0 {
			continue
		}
		if data[i+j]&aob.Mask[j] != aob.Pattern[j]&aob.Mask[j] {
			return false
		}
	}
	return true
}

func (aob AOB) String() string {
	var sb strings.Builder
	for i, b := range aob.Pattern {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if i < len(aob.Mask) && aob.Mask[i] == 0 {
			sb.WriteString("??")
			continue
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}

// NewAOBFromMask builds an AOB from a code-style mask string where 'x' is an exact
// byte and any other character ('?') is a wildcard.
func NewAOBFromMask(pattern []byte, mask string) (AOB, error) {
	if len(pattern) != len(mask) {
		return AOB{}, fmt.Errorf("mask length (%d) doesn't match pattern length (%d)", len(mask), len(pattern))
	}
	m := make([]byte, len(mask))
	for i := 0; i < len(mask); i++ {
		if mask[i] == 'x' {
			m[i] = 0xFF
		}
	}
	p := make([]byte, len(pattern))
	copy(p, pattern)
	return AOB{Pattern: p, Mask: m}, nil
}

// MustAOBFromMask is NewAOBFromMask for package-level pattern tables.
func MustAOBFromMask(pattern []byte, mask string) AOB {
	aob, err := NewAOBFromMask(pattern, mask)
	if err != nil {
		panic(err)
	}
	return aob
}

// ParseAOB parses the text form "48 8B 05 ?? ?? ?? ??" (comma or space separated,
// "?" or "??" for wildcards).
func ParseAOB(text string) (AOB, error) {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(parts) == 0 {
		return AOB{}, fmt.Errorf("empty pattern")
	}

	aob := AOB{
		Pattern: make([]byte, 0, len(parts)),
		Mask:    make([]byte, 0, len(parts)),
	}
	for _, part := range parts {
		if part == "??" || part == "?" {
			aob.Pattern = append(aob.Pattern, 0)
			aob.Mask = append(aob.Mask, 0)
			continue
		}
		val, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return AOB{}, fmt.Errorf("invalid hex byte: %s", part)
		}
		aob.Pattern = append(aob.Pattern, byte(val))
		aob.Mask = append(aob.Mask, 0xFF)
	}
	return aob, nil
}
