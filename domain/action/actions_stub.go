//go:build !windows

package action

import "errors"

var errUnsupported = errors.New("key injection requires Windows")

// PressKey is a stub on non-Windows platforms.
func PressKey(vk byte) error {
	return errUnsupported
}

// ForegroundWindowTitle is a stub on non-Windows platforms.
func ForegroundWindowTitle() (string, error) {
	return "", errUnsupported
}
