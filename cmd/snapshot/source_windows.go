//go:build windows

package main

import "gokbd/process_windows"

func newSource() (source, error) {
	return process_windows.New(), nil
}
