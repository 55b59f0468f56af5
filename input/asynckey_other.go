//go:build !windows

package input

// LocalAsyncKeys has no local key state outside Windows.
func LocalAsyncKeys() KeySource {
	return noKeys
}
