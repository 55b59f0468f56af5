// Package winver determines which Windows kernel generation the resolver targets.
package winver

import (
	"regexp"
	"strconv"
	"strings"
)

// ModernThreshold is the last build handled by the legacy strategy.
const ModernThreshold = 22000

// Generation selects a resolution strategy.
type Generation int

const (
	Unknown Generation = iota
	Legacy
	Modern
)

func (g Generation) String() string {
	switch g {
	case Legacy:
		return "legacy"
	case Modern:
		return "modern"
	default:
		return "unknown"
	}
}

// Classify maps a build number to a Generation. Zero means the build could not be
// determined.
func Classify(build int) Generation {
	switch {
	case build <= 0:
		return Unknown
	case build > ModernThreshold:
		return Modern
	default:
		return Legacy
	}
}

// BuildSource reports a Windows build number, 0 if unknown.
type BuildSource interface {
	BuildNumber() int
}

// BuildSourceFunc adapts a function to BuildSource.
type BuildSourceFunc func() int

func (f BuildSourceFunc) BuildNumber() int { return f() }

// Static always reports n. Used for configuration overrides.
func Static(n int) BuildSource {
	return BuildSourceFunc(func() int { return n })
}

// Chain returns the first non-zero build number of its sources, in order.
func Chain(sources ...BuildSource) BuildSource {
	return BuildSourceFunc(func() int {
		for _, src := range sources {
			if src == nil {
				continue
			}
			if n := src.BuildNumber(); n > 0 {
				return n
			}
		}
		return 0
	})
}

var buildRe = regexp.MustCompile(`(?i)build\s+(\d+)`)

// ParseBuild extracts a build number from version strings such as
// "10.0.22631 Build 22631", "10.0.19045" or "22631".
func ParseBuild(version string) int {
	version = strings.TrimSpace(version)
	if m := buildRe.FindStringSubmatch(version); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	fields := strings.Fields(version)
	if len(fields) == 0 {
		return 0
	}
	parts := strings.Split(fields[0], ".")
	candidate := parts[0]
	if len(parts) >= 3 {
		candidate = parts[2]
	}
	n, err := strconv.Atoi(candidate)
	if err != nil || n < 0 {
		return 0
	}
	if len(parts) == 1 || len(parts) >= 3 {
		return n
	}
	return 0
}
