package input

import "fmt"

// VirtualKey is a Windows virtual-key code.
type VirtualKey int

const (
	VK_LBUTTON  VirtualKey = 0x01
	VK_RBUTTON  VirtualKey = 0x02
	VK_CANCEL   VirtualKey = 0x03
	VK_MBUTTON  VirtualKey = 0x04
	VK_XBUTTON1 VirtualKey = 0x05
	VK_XBUTTON2 VirtualKey = 0x06
	VK_SHIFT    VirtualKey = 0x10
	VK_CONTROL  VirtualKey = 0x11
	VK_MENU     VirtualKey = 0x12
	VK_SPACE    VirtualKey = 0x20
	VK_F1       VirtualKey = 0x70
)

// MaxVirtualKey is the last code tracked by the kernel array.
const MaxVirtualKey VirtualKey = 0xFF

// IsMouse reports whether vk is one of the five mouse buttons.
func (vk VirtualKey) IsMouse() bool {
	switch vk {
	case VK_LBUTTON, VK_RBUTTON, VK_MBUTTON, VK_XBUTTON1, VK_XBUTTON2:
		return true
	}
	return false
}

func (vk VirtualKey) String() string {
	switch vk {
	case VK_LBUTTON:
		return "LBUTTON"
	case VK_RBUTTON:
		return "RBUTTON"
	case VK_MBUTTON:
		return "MBUTTON"
	case VK_XBUTTON1:
		return "XBUTTON1"
	case VK_XBUTTON2:
		return "XBUTTON2"
	}
	return fmt.Sprintf("VK_0x%02X", int(vk))
}
