package resolver

import "gokbd/process"

// Signatures are the byte patterns used by the signature strategy.
type Signatures struct {
	// SessionSlots matches `mov rax, [rip+rel32]` loading the session global slot
	// table inside win32k. Alternate is tried when it is absent.
	SessionSlots          process.AOB
	SessionSlotsAlternate process.AOB

	// KeyStateOffset matches `lea rdx, [rax+imm32]; call ...; xorps xmm0, xmm0` in
	// win32kbase, whose imm32 is the key-state offset inside the session state.
	KeyStateOffset process.AOB
}

// Config names every process, module and constant the strategies depend on.
type Config struct {
	PrivilegedProcess string // kernel memory is read through this process
	ServiceProcess    string // session-space host process for the signature strategy

	KernelModule   string // module holding the key-state symbol
	SymbolModule   string // module short name for debug symbol lookup
	SymbolName     string
	SessionModules []string // tried in order
	ProbeModules   []string // presence marks a pid as a session-space candidate

	// Brute-force pid probe used when ServiceProcess is not found by name.
	ProbeStart uint32
	ProbeEnd   uint32
	ProbeStep  uint32
	ProbeLimit int

	// SlotCount is how many session slot entries are walked.
	SlotCount int

	Signatures Signatures
}

func DefaultSignatures() Signatures {
	return Signatures{
		SessionSlots: process.MustAOBFromMask(
			[]byte{0x48, 0x8B, 0x05, 0x00, 0x00, 0x00, 0x00, 0x48, 0x8B, 0x04, 0xC8},
			"xxx????xxxx",
		),
		SessionSlotsAlternate: process.MustAOBFromMask(
			[]byte{0x48, 0x8B, 0x05, 0x00, 0x00, 0x00, 0x00, 0xFF, 0xC9},
			"xxx????xx",
		),
		KeyStateOffset: process.MustAOBFromMask(
			[]byte{0x48, 0x8D, 0x90, 0x00, 0x00, 0x00, 0x00, 0xE8, 0x00, 0x00, 0x00, 0x00, 0x0F, 0x57, 0xC0},
			"xxx????x????xxx",
		),
	}
}

func DefaultConfig() Config {
	return Config{
		PrivilegedProcess: "winlogon.exe",
		ServiceProcess:    "csrss.exe",
		KernelModule:      "win32kbase.sys",
		SymbolModule:      "win32kbase",
		SymbolName:        "gafAsyncKeyState",
		SessionModules:    []string{"win32ksgd.sys", "win32k.sys"},
		ProbeModules:      []string{"win32k.sys", "win32ksgd.sys"},
		ProbeStart:        100,
		ProbeEnd:          1000,
		ProbeStep:         4,
		ProbeLimit:        3,
		SlotCount:         4,
		Signatures:        DefaultSignatures(),
	}
}
