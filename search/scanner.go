// Package search finds masked byte patterns in a remote address range.
package search

import (
	"fmt"

	"gokbd/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// DefaultChunkSize is how much of the range is read per transport call.
const DefaultChunkSize = 0x10000

// Scanner holds configuration for the search
type Scanner struct {
	ChunkSize uint
	log       *logger.Logger
}

// Option is a function that configures a Scanner
type Option func(*Scanner)

func WithChunkSize(size uint) Option {
	return func(s *Scanner) {
		s.ChunkSize = size
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(s *Scanner) {
		s.log = log
	}
}

func New(options ...Option) *Scanner {
	s := &Scanner{
		ChunkSize: DefaultChunkSize,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "search"))
	}
	return s
}

// window returns the chunk size and the stride between chunk starts. Consecutive
// chunks overlap by len(pattern)-1 bytes so a match straddling a boundary is seen
// whole by the later chunk.
func (s *Scanner) window(patternLen int) (chunk, step uint64) {
	chunk = uint64(s.ChunkSize)
	if chunk < uint64(patternLen) {
		chunk = uint64(patternLen)
	}
	return chunk, chunk - uint64(patternLen-1)
}

// ScanFirst searches [start, start+size) in ctx and returns the address of the first
// match. Unreadable chunks are skipped. Any panic from the reader ends the scan as
// not found.
func (s *Scanner) ScanFirst(r process.MemoryReader, ctx process.ProcessContext, start process.ProcessMemoryAddress, size process.ProcessMemorySize, aob process.AOB) (addr process.ProcessMemoryAddress, found bool) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Debugln("scan aborted at", start.ToString(), fmt.Sprint(rec))
			addr, found = 0, false
		}
	}()

	if !aob.IsValid() {
		s.log.Debugln("invalid pattern, pattern/mask length", len(aob.Pattern), len(aob.Mask))
		return 0, false
	}

	plen := aob.Len()
	chunk, step := s.window(plen)
	total := uint64(size)

	for offset := uint64(0); offset < total; offset += step {
		readSize := min(chunk, total-offset)
		if readSize < uint64(plen) {
			break
		}

		current := start + process.ProcessMemoryAddress(offset)
		data, err := r.ReadMemory(ctx, current, process.ProcessMemorySize(readSize))
		if err == nil {
			for i := 0; i+plen <= len(data); i++ {
				if aob.MatchAt(data, i) {
					return current + process.ProcessMemoryAddress(i), true
				}
			}
		}

		if offset+readSize >= total {
			break
		}
	}
	return 0, false
}

// ScanModule scans a whole module image.
func (s *Scanner) ScanModule(r process.MemoryReader, ctx process.ProcessContext, module process.ModuleInfo, aob process.AOB) (process.ProcessMemoryAddress, bool) {
	return s.ScanFirst(r, ctx, module.Base, module.Size, aob)
}

// ScanAll returns every match in [start, start+size) in ascending order.
func (s *Scanner) ScanAll(r process.MemoryReader, ctx process.ProcessContext, start process.ProcessMemoryAddress, size process.ProcessMemorySize, aob process.AOB) (results []process.ProcessMemoryAddress, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("scan aborted at %s: %v", start.ToString(), rec)
		}
	}()

	if !aob.IsValid() {
		return nil, fmt.Errorf("mask length (%d) doesn't match pattern length (%d)", len(aob.Mask), len(aob.Pattern))
	}

	plen := aob.Len()
	chunk, step := s.window(plen)
	total := uint64(size)

	for offset := uint64(0); offset < total; offset += step {
		readSize := min(chunk, total-offset)
		if readSize < uint64(plen) {
			break
		}
		last := offset+readSize >= total

		current := start + process.ProcessMemoryAddress(offset)
		data, err := r.ReadMemory(ctx, current, process.ProcessMemorySize(readSize))
		if err != nil {
			s.log.Debugln("Failed to read chunk at", current.ToString(), err)
		} else {
			for i := 0; i+plen <= len(data); i++ {
				// matches starting inside the overlap are reported by the next chunk
				if !last && uint64(i) >= step {
					break
				}
				if aob.MatchAt(data, i) {
					results = append(results, current+process.ProcessMemoryAddress(i))
				}
			}
		}

		if last {
			break
		}
	}
	return results, nil
}
