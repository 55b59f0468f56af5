//go:build windows

package input

import "golang.org/x/sys/windows"

var (
	moduser32            = windows.NewLazySystemDLL("user32.dll")
	procGetAsyncKeyState = moduser32.NewProc("GetAsyncKeyState")
)

// LocalAsyncKeys reads the local machine's async key state.
func LocalAsyncKeys() KeySource {
	return KeySourceFunc(func(vk VirtualKey) bool {
		if procGetAsyncKeyState.Find() != nil {
			return false
		}
		state, _, _ := procGetAsyncKeyState.Call(uintptr(vk))
		return asyncStateDown(state)
	})
}
