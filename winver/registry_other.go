//go:build !windows

package winver

// Registry has no registry to read outside Windows.
func Registry() BuildSource {
	return BuildSourceFunc(func() int { return 0 })
}
