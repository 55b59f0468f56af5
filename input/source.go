package input

// KeySource is an independent signal saying a key is held.
type KeySource interface {
	IsKeyDown(vk VirtualKey) bool
}

// KeySourceFunc adapts a function to KeySource.
type KeySourceFunc func(vk VirtualKey) bool

func (f KeySourceFunc) IsKeyDown(vk VirtualKey) bool { return f(vk) }

// DeviceButton is a button of an external input device.
type DeviceButton int

const (
	DeviceLeft DeviceButton = iota
	DeviceRight
	DeviceMiddle
	DeviceMouse4
	DeviceMouse5
)

// Device is an external hardware device that reports mouse button state.
type Device interface {
	Connected() bool
	HasState() bool
	ButtonPressed(button DeviceButton) bool
}

// DeviceButtonFor maps a mouse virtual key to the device button.
func DeviceButtonFor(vk VirtualKey) (DeviceButton, bool) {
	switch vk {
	case VK_LBUTTON:
		return DeviceLeft, true
	case VK_RBUTTON:
		return DeviceRight, true
	case VK_MBUTTON:
		return DeviceMiddle, true
	case VK_XBUTTON1:
		return DeviceMouse4, true
	case VK_XBUTTON2:
		return DeviceMouse5, true
	}
	return 0, false
}

// DeviceSource reads mouse buttons from d, only while it is connected and has
// valid state.
func DeviceSource(d Device) KeySource {
	return KeySourceFunc(func(vk VirtualKey) bool {
		if d == nil || !d.Connected() || !d.HasState() {
			return false
		}
		button, ok := DeviceButtonFor(vk)
		if !ok {
			return false
		}
		return d.ButtonPressed(button)
	})
}

// MouseOnly restricts src to mouse buttons.
func MouseOnly(src KeySource) KeySource {
	return KeySourceFunc(func(vk VirtualKey) bool {
		return vk.IsMouse() && src.IsKeyDown(vk)
	})
}

var noKeys = KeySourceFunc(func(VirtualKey) bool { return false })
