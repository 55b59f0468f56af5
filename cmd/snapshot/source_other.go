//go:build !linux && !windows

package main

import "errors"

func newSource() (source, error) {
	return nil, errors.New("live capture is only supported on linux and windows")
}
