//go:build windows

package winver

import (
	"strconv"

	"golang.org/x/sys/windows/registry"
)

const currentVersionKey = `SOFTWARE\Microsoft\Windows NT\CurrentVersion`

// Registry reads CurrentBuild from the local registry.
func Registry() BuildSource {
	return BuildSourceFunc(func() int {
		key, err := registry.OpenKey(registry.LOCAL_MACHINE, currentVersionKey, registry.QUERY_VALUE)
		if err != nil {
			return 0
		}
		defer key.Close()

		build, _, err := key.GetStringValue("CurrentBuild")
		if err != nil {
			return 0
		}
		n, err := strconv.Atoi(build)
		if err != nil {
			return 0
		}
		return n
	})
}
