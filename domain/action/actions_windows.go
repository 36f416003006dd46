//go:build windows

package action

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf16"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	inputKeyboard  = 1
	keyeventfKeyup = 0x0002
)

// keybdInput matches KEYBDINPUT.
type keybdInput struct {
	Vk        uint16
	Scan      uint16
	Flags     uint32
	Time      uint32
	ExtraInfo uintptr
}

// input matches INPUT with a keyboard payload; the trailing pad fills the
// union out to the size of MOUSEINPUT, which SendInput expects.
type input struct {
	Type uint32
	Ki   keybdInput
	_    [8]byte
}

// PressKey sends a key down followed by a key up for the provided
// virtual-key code. Uses SendInput so a blocked input queue (UIPI, secure
// desktop) surfaces as an error instead of a silent no-op.
func PressKey(vk byte) error {
	user32 := windows.NewLazySystemDLL("user32.dll")
	sendInput := user32.NewProc("SendInput")
	if err := sendInput.Find(); err != nil {
		return err
	}
	down := input{Type: inputKeyboard, Ki: keybdInput{Vk: uint16(vk)}}
	if err := sendOne(sendInput, &down); err != nil {
		return fmt.Errorf("key down: %w", err)
	}
	// small sleep to emulate human press duration
	time.Sleep(40 * time.Millisecond)
	up := input{Type: inputKeyboard, Ki: keybdInput{Vk: uint16(vk), Flags: keyeventfKeyup}}
	if err := sendOne(sendInput, &up); err != nil {
		return fmt.Errorf("key up: %w", err)
	}
	return nil
}

func sendOne(sendInput *windows.LazyProc, in *input) error {
	n, _, callErr := sendInput.Call(1, uintptr(unsafe.Pointer(in)), unsafe.Sizeof(*in))
	if n == 0 {
		return callErr
	}
	return nil
}

// ForegroundWindowTitle returns the title of the current foreground window.
// If no foreground window is available an error is returned.
func ForegroundWindowTitle() (string, error) {
	user32 := windows.NewLazySystemDLL("user32.dll")
	getForegroundWindow := user32.NewProc("GetForegroundWindow")
	getWindowTextW := user32.NewProc("GetWindowTextW")
	hwnd, _, _ := getForegroundWindow.Call()
	if hwnd == 0 {
		return "", errors.New("no foreground window")
	}
	const maxChars = 256
	buf := make([]uint16, maxChars)
	r, _, _ := getWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if r == 0 {
		return "", nil
	}
	var end int
	for i, v := range buf {
		if v == 0 {
			end = i
			break
		}
	}
	if end == 0 {
		end = int(r)
	}
	s := utf16.Decode(buf[:end])
	return strings.TrimSpace(string(s)), nil
}
