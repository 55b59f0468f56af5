// Package config loads the TOML configuration for the key-state tools.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"gokbd/input"
	"gokbd/keystate"
	"gokbd/process"
	"gokbd/resolver"
	"gokbd/winver"
)

// Config is the full configuration file.
type Config struct {
	Resolver   ResolverConfig  `toml:"resolver"`
	Signatures SignatureConfig `toml:"signatures"`
	Poller     PollerConfig    `toml:"poller"`
	Hotkeys    []HotkeyConfig  `toml:"hotkeys"`
}

// ResolverConfig names the processes and modules used during resolution.
type ResolverConfig struct {
	// BuildOverride skips build detection when non-zero.
	BuildOverride int `toml:"build_override"`

	PrivilegedProcess string   `toml:"privileged_process"`
	ServiceProcess    string   `toml:"service_process"`
	KernelModule      string   `toml:"kernel_module"`
	SymbolModule      string   `toml:"symbol_module"`
	SymbolName        string   `toml:"symbol_name"`
	SessionModules    []string `toml:"session_modules"`
	ProbeModules      []string `toml:"probe_modules"`

	ProbeStart uint32 `toml:"probe_start"`
	ProbeEnd   uint32 `toml:"probe_end"`
	ProbeStep  uint32 `toml:"probe_step"`
	ProbeLimit int    `toml:"probe_limit"`
	SlotCount  int    `toml:"slot_count"`
}

// SignatureConfig holds patterns in text form, e.g. "48 8B 05 ?? ?? ?? ??".
type SignatureConfig struct {
	SessionSlots          string `toml:"session_slots"`
	SessionSlotsAlternate string `toml:"session_slots_alternate"`
	KeyStateOffset        string `toml:"key_state_offset"`
}

type PollerConfig struct {
	RefreshInterval time.Duration `toml:"refresh_interval"`
	TickPeriod      time.Duration `toml:"tick_period"`
}

type HotkeyConfig struct {
	Name string `toml:"name"`
	Key  int    `toml:"key"`
}

// Default returns the built-in configuration.
func Default() *Config {
	rc := resolver.DefaultConfig()
	return &Config{
		Resolver: ResolverConfig{
			PrivilegedProcess: rc.PrivilegedProcess,
			ServiceProcess:    rc.ServiceProcess,
			KernelModule:      rc.KernelModule,
			SymbolModule:      rc.SymbolModule,
			SymbolName:        rc.SymbolName,
			SessionModules:    rc.SessionModules,
			ProbeModules:      rc.ProbeModules,
			ProbeStart:        rc.ProbeStart,
			ProbeEnd:          rc.ProbeEnd,
			ProbeStep:         rc.ProbeStep,
			ProbeLimit:        rc.ProbeLimit,
			SlotCount:         rc.SlotCount,
		},
		Signatures: SignatureConfig{
			SessionSlots:          rc.Signatures.SessionSlots.String(),
			SessionSlotsAlternate: rc.Signatures.SessionSlotsAlternate.String(),
			KeyStateOffset:        rc.Signatures.KeyStateOffset.String(),
		},
		Poller: PollerConfig{
			RefreshInterval: keystate.DefaultInterval,
			TickPeriod:      input.DefaultTickPeriod,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks patterns, ranges and hotkeys.
func (c *Config) Validate() error {
	if _, err := c.ResolverConfig(); err != nil {
		return err
	}
	r := c.Resolver
	if r.PrivilegedProcess == "" || r.ServiceProcess == "" {
		return errors.New("resolver: privileged_process and service_process are required")
	}
	if r.KernelModule == "" || r.SymbolName == "" {
		return errors.New("resolver: kernel_module and symbol_name are required")
	}
	if len(r.SessionModules) == 0 {
		return errors.New("resolver: session_modules is empty")
	}
	if r.ProbeStep == 0 || r.ProbeEnd < r.ProbeStart {
		return fmt.Errorf("resolver: invalid probe range [%d, %d) step %d", r.ProbeStart, r.ProbeEnd, r.ProbeStep)
	}
	// pids share their top bit with the kernel context flag
	if r.ProbeEnd > process.KernelMemoryFlag {
		return fmt.Errorf("resolver: probe_end %d exceeds the pid space (%#x)", r.ProbeEnd, process.KernelMemoryFlag)
	}
	if r.SlotCount <= 0 {
		return fmt.Errorf("resolver: slot_count must be positive, got %d", r.SlotCount)
	}
	if c.Poller.RefreshInterval < 0 || c.Poller.TickPeriod <= 0 {
		return fmt.Errorf("poller: invalid refresh_interval %s or tick_period %s", c.Poller.RefreshInterval, c.Poller.TickPeriod)
	}
	for i, hk := range c.Hotkeys {
		if hk.Key < 0 || hk.Key > int(input.MaxVirtualKey) {
			return fmt.Errorf("hotkeys[%d] %q: key %#x out of range", i, hk.Name, hk.Key)
		}
	}
	return nil
}

// ResolverConfig converts the file form into resolver.Config.
func (c *Config) ResolverConfig() (resolver.Config, error) {
	slots, err := process.ParseAOB(c.Signatures.SessionSlots)
	if err != nil {
		return resolver.Config{}, fmt.Errorf("signatures.session_slots: %w", err)
	}
	alternate, err := process.ParseAOB(c.Signatures.SessionSlotsAlternate)
	if err != nil {
		return resolver.Config{}, fmt.Errorf("signatures.session_slots_alternate: %w", err)
	}
	offset, err := process.ParseAOB(c.Signatures.KeyStateOffset)
	if err != nil {
		return resolver.Config{}, fmt.Errorf("signatures.key_state_offset: %w", err)
	}

	r := c.Resolver
	return resolver.Config{
		PrivilegedProcess: r.PrivilegedProcess,
		ServiceProcess:    r.ServiceProcess,
		KernelModule:      r.KernelModule,
		SymbolModule:      r.SymbolModule,
		SymbolName:        r.SymbolName,
		SessionModules:    r.SessionModules,
		ProbeModules:      r.ProbeModules,
		ProbeStart:        r.ProbeStart,
		ProbeEnd:          r.ProbeEnd,
		ProbeStep:         r.ProbeStep,
		ProbeLimit:        r.ProbeLimit,
		SlotCount:         r.SlotCount,
		Signatures: resolver.Signatures{
			SessionSlots:          slots,
			SessionSlotsAlternate: alternate,
			KeyStateOffset:        offset,
		},
	}, nil
}

// BuildSource prefers the override, then the registry, then host info.
func (c *Config) BuildSource() winver.BuildSource {
	return winver.Chain(winver.Static(c.Resolver.BuildOverride), winver.Registry(), winver.HostInfo())
}

// ManagerOptions returns the input.Manager options described by the file.
func (c *Config) ManagerOptions() ([]input.Option, error) {
	rc, err := c.ResolverConfig()
	if err != nil {
		return nil, err
	}
	return []input.Option{
		input.WithResolverOptions(
			resolver.WithConfig(rc),
			resolver.WithBuildSource(c.BuildSource()),
		),
		input.WithPollerOptions(keystate.WithInterval(c.Poller.RefreshInterval)),
		input.WithTickPeriod(c.Poller.TickPeriod),
	}, nil
}

// BindHotkeys builds hotkeys bound through bind, which maps a configured name to
// its action. Entries bind returns nil for are dropped.
func (c *Config) BindHotkeys(bind func(name string, key input.VirtualKey) input.Action) []input.Hotkey {
	hotkeys := make([]input.Hotkey, 0, len(c.Hotkeys))
	for _, hk := range c.Hotkeys {
		key := input.VirtualKey(hk.Key)
		action := bind(hk.Name, key)
		if action == nil {
			continue
		}
		hotkeys = append(hotkeys, input.Hotkey{Name: hk.Name, Key: key, Action: action})
	}
	return hotkeys
}
