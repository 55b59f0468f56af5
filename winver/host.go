package winver

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/host"
)

// HostInfo reads the platform version reported by gopsutil. It only yields a value
// on Windows hosts.
func HostInfo() BuildSource {
	return BuildSourceFunc(func() int {
		if runtime.GOOS != "windows" {
			return 0
		}
		_, _, version, err := host.PlatformInformation()
		if err != nil {
			return 0
		}
		return ParseBuild(version)
	})
}
