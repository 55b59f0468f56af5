package input

import "sync/atomic"

// Action receives the held state of its hotkey on every tick.
type Action interface {
	Execute(isDown bool)
}

// ActionFunc adapts a function to Action.
type ActionFunc func(isDown bool)

func (f ActionFunc) Execute(isDown bool) { f(isDown) }

// Hotkey binds a virtual key to an action.
type Hotkey struct {
	Name   string
	Key    VirtualKey
	Action Action
}

// HotkeyProvider returns the hotkeys to evaluate this tick. The returned slice must
// not be modified afterwards.
type HotkeyProvider func() []Hotkey

// HotkeyTable is a hotkey collection that can be swapped while the loop runs. Each
// tick sees one complete snapshot.
type HotkeyTable struct {
	p atomic.Pointer[[]Hotkey]
}

func NewHotkeyTable(hotkeys ...Hotkey) *HotkeyTable {
	t := &HotkeyTable{}
	t.Replace(hotkeys)
	return t
}

// Replace installs a copy of hotkeys.
func (t *HotkeyTable) Replace(hotkeys []Hotkey) {
	snapshot := append([]Hotkey(nil), hotkeys...)
	t.p.Store(&snapshot)
}

// Snapshot is a HotkeyProvider.
func (t *HotkeyTable) Snapshot() []Hotkey {
	if p := t.p.Load(); p != nil {
		return *p
	}
	return nil
}
