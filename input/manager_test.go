package input

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gokbd/keystate"
	"gokbd/process"
	"gokbd/process_blob"
	"gokbd/resolver"
	"gokbd/winver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	winlogon = process.ProcessID(612)
	keyState = process.ProcessMemoryAddress(0xFFFFA00000203690)
)

// fixedAddress resolves straight to keyState.
var fixedAddress = resolver.Strategy{
	Name: "fixed",
	Extract: func(*resolver.Resolver, process.ProcessContext) (resolver.Symbol, resolver.Outcome) {
		return resolver.Symbol{Address: keyState, Source: "fixed"}, resolver.Found
	},
}

func newKernel(t *testing.T, state []byte) *process_blob.Memory {
	t.Helper()
	m := process_blob.NewMemory()
	m.AddProcess("winlogon.exe", winlogon)
	buf := make([]byte, keystate.BitmapSize)
	copy(buf, state)
	require.NoError(t, m.MapKernel(keyState, buf))
	return m
}

func newManager(t *testing.T, transport process.Transport, build int, options ...Option) *Manager {
	t.Helper()
	base := []Option{
		WithResolverOptions(
			resolver.WithBuildSource(winver.Static(build)),
			resolver.WithStrategies(fixedAddress),
		),
		WithOSKeys(KeySourceFunc(func(VirtualKey) bool { return false })),
		WithTickPeriod(time.Millisecond),
	}
	m, err := New(transport, append(base, options...)...)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func setKey(t *testing.T, mem *process_blob.Memory, vk VirtualKey, down bool) {
	t.Helper()
	data, err := mem.ReadMemory(process.Kernel(winlogon), keyState, keystate.BitmapSize)
	require.NoError(t, err)
	bit := byte(1) << ((int(vk) % 4) * 2)
	if down {
		data[int(vk)/4] |= bit
	} else {
		data[int(vk)/4] &^= bit
	}
	require.NoError(t, mem.Write(process.Kernel(winlogon), keyState, data))
}

func TestNew_NilTransport(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNoTransport)
}

func TestManager_KernelDecode(t *testing.T) {
	mem := newKernel(t, []byte{0b00000001})
	m := newManager(t, mem, 22631)

	require.True(t, m.IsBackendAvailable())
	assert.True(t, m.IsKeyDown(0))
	assert.False(t, m.IsKeyDown(1))
	assert.False(t, m.IsKeyDown(2))
	assert.False(t, m.IsKeyDown(3))

	res, ok := m.Resolution()
	require.True(t, ok)
	assert.Equal(t, keyState, res.Symbol.Address)
	assert.Equal(t, process.Kernel(winlogon), res.Context)
}

func TestManager_UnresolvedUsesFallbacksOnly(t *testing.T) {
	mem := newKernel(t, []byte{0xFF, 0xFF, 0xFF, 0xFF})
	device := &fakeDevice{connected: true, state: true, pressed: map[DeviceButton]bool{DeviceMouse4: true}}
	os := KeySourceFunc(func(vk VirtualKey) bool { return vk == VK_RBUTTON || vk == VK_SPACE })

	m := newManager(t, mem, 0, WithOSKeys(os), WithDevice(device))
	require.False(t, m.IsBackendAvailable())
	assert.Nil(t, m.Poller())

	for vk := VirtualKey(0); vk <= MaxVirtualKey; vk++ {
		want := vk == VK_RBUTTON || vk == VK_XBUTTON1
		assert.Equal(t, want, m.IsKeyDown(vk), "vk %s", vk)
	}
	assert.Zero(t, mem.Reads(), "kernel array must not be read when unresolved")
}

func TestManager_OSKeysOnlyForMouseButtons(t *testing.T) {
	mem := newKernel(t, nil)
	os := KeySourceFunc(func(VirtualKey) bool { return true })
	m := newManager(t, mem, 22631, WithOSKeys(os))

	assert.True(t, m.IsKeyDown(VK_LBUTTON))
	assert.True(t, m.IsKeyDown(VK_XBUTTON2))
	assert.False(t, m.IsKeyDown(VK_SPACE))
	assert.False(t, m.IsKeyDown(VK_CANCEL))
}

type fakeDevice struct {
	connected bool
	state     bool
	pressed   map[DeviceButton]bool
	queried   atomic.Int32
}

func (d *fakeDevice) Connected() bool { return d.connected }
func (d *fakeDevice) HasState() bool  { return d.state }
func (d *fakeDevice) ButtonPressed(b DeviceButton) bool {
	d.queried.Add(1)
	return d.pressed[b]
}

func TestManager_DeviceRequiresConnectedState(t *testing.T) {
	tests := []struct {
		name      string
		connected bool
		state     bool
		want      bool
	}{
		{"connected with state", true, true, true},
		{"disconnected", false, true, false},
		{"no state", true, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDevice{connected: tt.connected, state: tt.state, pressed: map[DeviceButton]bool{DeviceLeft: true}}
			m := newManager(t, newKernel(t, nil), 0, WithDevice(d))
			assert.Equal(t, tt.want, m.IsKeyDown(VK_LBUTTON))
			if !tt.want {
				assert.Zero(t, d.queried.Load())
			}
		})
	}
}

type panicReader struct {
	*process_blob.Memory
}

func (panicReader) ReadMemory(process.ProcessContext, process.ProcessMemoryAddress, process.ProcessMemorySize) ([]byte, error) {
	panic("device unplugged")
}

func TestManager_KernelPanicDoesNotSuppressFallbacks(t *testing.T) {
	mem := newKernel(t, nil)
	os := KeySourceFunc(func(vk VirtualKey) bool { return vk == VK_LBUTTON })
	m := newManager(t, panicReader{mem}, 22631, WithOSKeys(os))
	require.True(t, m.IsBackendAvailable())

	assert.NotPanics(t, func() {
		assert.True(t, m.IsKeyDown(VK_LBUTTON))
		assert.False(t, m.IsKeyDown(VK_SPACE))
	})
}

func TestManager_PanickingFallbackIsIsolated(t *testing.T) {
	mem := newKernel(t, nil)
	os := KeySourceFunc(func(VirtualKey) bool { panic("user32 missing") })
	m := newManager(t, mem, 22631, WithOSKeys(os))
	setKey(t, mem, VK_LBUTTON, true)

	assert.NotPanics(t, func() {
		assert.True(t, m.IsKeyDown(VK_LBUTTON))
	})
}

func TestManager_RateLimitedRefresh(t *testing.T) {
	mem := newKernel(t, nil)
	var mu sync.Mutex
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	m := newManager(t, mem, 22631, WithPollerOptions(keystate.WithClock(clock)))

	m.IsKeyDown(VK_SPACE)
	m.IsKeyDown(VK_SPACE)
	m.IsKeyDown(VK_F1)
	assert.EqualValues(t, 1, mem.Reads())

	setKey(t, mem, VK_SPACE, true)
	assert.False(t, m.IsKeyDown(VK_SPACE))

	mu.Lock()
	now = now.Add(keystate.DefaultInterval)
	mu.Unlock()
	assert.True(t, m.IsKeyDown(VK_SPACE))
	assert.EqualValues(t, 3, mem.Reads()) // setKey read included
}

type recorder struct {
	mu     sync.Mutex
	states []bool
}

func (r *recorder) Execute(isDown bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, isDown)
}

func (r *recorder) last() (bool, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return false, 0
	}
	return r.states[len(r.states)-1], len(r.states)
}

func TestManager_LoopDispatchesHotkeys(t *testing.T) {
	mem := newKernel(t, nil)
	space := &recorder{}
	table := NewHotkeyTable(Hotkey{Name: "toggle", Key: VK_SPACE, Action: space})
	newManager(t, mem, 22631,
		WithHotkeys(table.Snapshot),
		WithPollerOptions(keystate.WithInterval(time.Millisecond)),
	)

	require.Eventually(t, func() bool {
		_, n := space.last()
		return n > 0
	}, time.Second, time.Millisecond)
	down, _ := space.last()
	assert.False(t, down)

	setKey(t, mem, VK_SPACE, true)
	require.Eventually(t, func() bool {
		down, _ := space.last()
		return down
	}, time.Second, time.Millisecond)

	// swap the table while the loop runs
	f1 := &recorder{}
	table.Replace([]Hotkey{{Name: "other", Key: VK_F1, Action: f1}})
	require.Eventually(t, func() bool {
		_, n := f1.last()
		return n > 0
	}, time.Second, time.Millisecond)
}

func TestManager_EmptyAndNilHotkeys(t *testing.T) {
	mem := newKernel(t, nil)
	var calls atomic.Int32
	provider := func() []Hotkey {
		calls.Add(1)
		if calls.Load()%2 == 0 {
			return nil
		}
		return []Hotkey{{Key: VK_SPACE}} // nil action is skipped
	}
	newManager(t, mem, 22631, WithHotkeys(provider))

	require.Eventually(t, func() bool { return calls.Load() > 4 }, time.Second, time.Millisecond)
}

func TestManager_CloseStopsLoop(t *testing.T) {
	mem := newKernel(t, nil)
	rec := &recorder{}
	table := NewHotkeyTable(Hotkey{Key: VK_SPACE, Action: rec})
	m := newManager(t, mem, 22631, WithHotkeys(table.Snapshot))

	require.Eventually(t, func() bool {
		_, n := rec.last()
		return n > 0
	}, time.Second, time.Millisecond)

	require.NoError(t, m.Close())
	_, n := rec.last()
	time.Sleep(20 * time.Millisecond)
	_, after := rec.last()
	assert.Equal(t, n, after)

	assert.NoError(t, m.Close())
}

func TestManager_ActionPanicKeepsLoopAlive(t *testing.T) {
	mem := newKernel(t, nil)
	var calls atomic.Int32
	boom := ActionFunc(func(bool) {
		calls.Add(1)
		panic("bad action")
	})
	newManager(t, mem, 22631, WithHotkeys(NewHotkeyTable(Hotkey{Key: VK_F1, Action: boom}).Snapshot))

	require.Eventually(t, func() bool { return calls.Load() > 2 }, time.Second, time.Millisecond)
}
