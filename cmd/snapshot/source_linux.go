//go:build linux

package main

import "gokbd/process_linux"

func newSource() (source, error) {
	return process_linux.New(), nil
}
