// Package input answers "is this key held" for the hotkey loop, combining the
// remote kernel key-state array with local fallbacks.
package input

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gokbd/keystate"
	"gokbd/process"
	"gokbd/resolver"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// DefaultTickPeriod is the hotkey loop period.
const DefaultTickPeriod = 12 * time.Millisecond

var ErrNoTransport = errors.New("nil memory transport")

// Manager resolves the kernel key-state array once and runs the hotkey loop.
type Manager struct {
	log *logger.Logger

	resolverOptions []resolver.Option
	pollerOptions   []keystate.Option
	tickPeriod      time.Duration
	hotkeys         HotkeyProvider
	osKeys          KeySource
	device          KeySource

	// written once in New, read-only afterwards
	result   resolver.Result
	resolved bool
	poller   *keystate.Poller

	worker    *worker
	closeOnce sync.Once
}

// Option is a function that configures a Manager
type Option func(*Manager)

func WithResolverOptions(options ...resolver.Option) Option {
	return func(m *Manager) {
		m.resolverOptions = append(m.resolverOptions, options...)
	}
}

func WithPollerOptions(options ...keystate.Option) Option {
	return func(m *Manager) {
		m.pollerOptions = append(m.pollerOptions, options...)
	}
}

func WithTickPeriod(d time.Duration) Option {
	return func(m *Manager) {
		m.tickPeriod = d
	}
}

func WithHotkeys(provider HotkeyProvider) Option {
	return func(m *Manager) {
		m.hotkeys = provider
	}
}

// WithOSKeys replaces the local async key state used for mouse buttons.
func WithOSKeys(src KeySource) Option {
	return func(m *Manager) {
		m.osKeys = src
	}
}

func WithDevice(d Device) Option {
	return func(m *Manager) {
		m.device = DeviceSource(d)
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// New resolves the key-state array through transport and starts the hotkey loop.
// Resolution failure is not an error: the manager then runs on fallbacks only.
func New(transport process.Transport, options ...Option) (*Manager, error) {
	if transport == nil {
		return nil, ErrNoTransport
	}

	m := &Manager{
		tickPeriod: DefaultTickPeriod,
		osKeys:     LocalAsyncKeys(),
		device:     noKeys,
	}
	for _, opt := range options {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "input"))
	}
	if m.osKeys == nil {
		m.osKeys = noKeys
	}
	if m.device == nil {
		m.device = noKeys
	}
	m.osKeys = MouseOnly(m.osKeys)

	res, ok := resolver.New(transport, append([]resolver.Option{resolver.WithLogger(m.log)}, m.resolverOptions...)...).Resolve()
	if ok && res.Symbol.Valid() {
		m.result = res
		m.resolved = true
		m.poller = keystate.NewPoller(transport, res.Context, res.Symbol.Address,
			append([]keystate.Option{keystate.WithLogger(m.log)}, m.pollerOptions...)...)
		m.log.Infoln("Kernel input initialized, key state at", res.Symbol.String())
	} else {
		m.log.Warn("Failed to initialize kernel input, using fallback key sources")
	}

	m.worker = startWorker("input", m.tickPeriod, m.log, m.tick)
	return m, nil
}

// IsBackendAvailable reports whether the kernel key-state array was resolved.
func (m *Manager) IsBackendAvailable() bool {
	return m.resolved && m.result.Symbol.Valid()
}

// Resolution returns the resolved address and how it was found.
func (m *Manager) Resolution() (resolver.Result, bool) {
	return m.result, m.resolved
}

// IsKeyDown reports whether any source sees vk held. It never panics.
func (m *Manager) IsKeyDown(vk VirtualKey) bool {
	kernel := m.kernelDown(vk)
	fallback := safeIsDown(m.osKeys, vk)
	device := safeIsDown(m.device, vk)
	return kernel || fallback || device
}

func (m *Manager) kernelDown(vk VirtualKey) (down bool) {
	if !m.IsBackendAvailable() {
		return false
	}
	defer func() {
		if rec := recover(); rec != nil {
			m.log.Debugln("kernel key state failed:", fmt.Sprint(rec))
			down = false
		}
	}()
	return m.poller.IsKeyDown(int(vk))
}

func safeIsDown(src KeySource, vk VirtualKey) (down bool) {
	defer func() {
		if recover() != nil {
			down = false
		}
	}()
	return src.IsKeyDown(vk)
}

// tick evaluates every registered hotkey once.
func (m *Manager) tick() {
	if m.hotkeys == nil {
		return
	}
	for _, hk := range m.hotkeys() {
		if hk.Action == nil {
			continue
		}
		hk.Action.Execute(m.IsKeyDown(hk.Key))
	}
}

// Poller exposes the kernel poller, nil when unresolved.
func (m *Manager) Poller() *keystate.Poller {
	return m.poller
}

// Close stops the hotkey loop. An in-flight read is allowed to finish.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.worker.stop()
		m.log.Infoln("Input manager stopped")
	})
	return nil
}
