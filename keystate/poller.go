package keystate

import (
	"fmt"
	"sync"
	"time"

	"gokbd/pod"
	"gokbd/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// DefaultInterval is the minimum time between two bulk reads of the kernel array.
const DefaultInterval = 100 * time.Millisecond

// Poller keeps a Bitmap in sync with the kernel array at a resolved address.
// It is safe for concurrent use.
type Poller struct {
	mu       sync.Mutex
	reader   process.MemoryReader
	ctx      process.ProcessContext
	addr     process.ProcessMemoryAddress
	interval time.Duration
	now      func() time.Time
	log      *logger.Logger

	bitmap  Bitmap
	last    time.Time
	reads   int
	success int
}

// Option is a function that configures a Poller
type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		p.interval = d
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		p.now = now
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(p *Poller) {
		p.log = log
	}
}

func NewPoller(reader process.MemoryReader, ctx process.ProcessContext, addr process.ProcessMemoryAddress, options ...Option) *Poller {
	p := &Poller{
		reader:   reader,
		ctx:      ctx,
		addr:     addr,
		interval: DefaultInterval,
		now:      time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "keystate"))
	}
	return p
}

// Refresh reads the kernel array now. On failure the bitmap keeps its last good
// contents. The refresh time is recorded either way.
func (p *Poller) Refresh() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refreshLocked()
}

func (p *Poller) refreshLocked() (err error) {
	p.last = p.now()
	p.reads++

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("read %s: %v", p.addr.ToString(), rec)
		}
		if err != nil {
			p.log.Debugln("key state refresh failed:", err)
		}
	}()

	data, err := pod.ReadT[[BitmapSize]byte](p.reader, p.ctx, p.addr)
	if err != nil {
		return fmt.Errorf("read %s: %w", p.addr.ToString(), err)
	}
	p.bitmap.Push(data[:])
	p.success++
	return nil
}

// MaybeRefresh refreshes if at least the interval has passed since the last
// attempt. It reports whether a read was attempted.
func (p *Poller) MaybeRefresh() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maybeRefreshLocked()
}

func (p *Poller) maybeRefreshLocked() bool {
	if !p.last.IsZero() && p.now().Sub(p.last) < p.interval {
		return false
	}
	_ = p.refreshLocked()
	return true
}

// IsKeyDown refreshes when stale and decodes vk.
func (p *Poller) IsKeyDown(vk int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maybeRefreshLocked()
	return p.bitmap.IsDown(vk)
}

// Bitmap returns a copy of the current state.
func (p *Poller) Bitmap() Bitmap {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bitmap
}

// Stats returns the number of read attempts and successful reads.
func (p *Poller) Stats() (attempts, succeeded int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reads, p.success
}

// LastRefresh is the time of the last read attempt.
func (p *Poller) LastRefresh() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}
