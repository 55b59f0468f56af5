package input

// asyncKeyDown is the most significant bit of a GetAsyncKeyState result.
const asyncKeyDown = 0x8000

func asyncStateDown(state uintptr) bool {
	return uint16(state)&asyncKeyDown != 0
}
