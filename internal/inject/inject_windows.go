//go:build windows

package inject

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32        = windows.NewLazySystemDLL("user32.dll")
	procSendInput = user32.NewProc("SendInput")
)

const (
	inputKeyboard     = 1
	keyeventfExtended = 0x0001
	keyeventfKeyUp    = 0x0002
)

type keyboardInput struct {
	WVK         uint16
	WScan       uint16
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

// input mirrors the Win32 INPUT struct with the keyboard union member.
type input struct {
	Type  uint32
	_pad1 uint32
	Ki    keyboardInput
	_pad2 uint64
}

func sendKeyEvents(events []keyEvent) error {
	if len(events) == 0 {
		return nil
	}
	if err := procSendInput.Find(); err != nil {
		return fmt.Errorf("SendInput unavailable: %w", err)
	}

	ins := make([]input, len(events))
	for n, ev := range events {
		var flags uint32
		if ev.up {
			flags |= keyeventfKeyUp
		}
		if ev.extended {
			flags |= keyeventfExtended
		}
		ins[n] = input{Type: inputKeyboard, Ki: keyboardInput{WVK: ev.vk, DwFlags: flags}}
	}

	ret, _, err := procSendInput.Call(
		uintptr(len(ins)),
		uintptr(unsafe.Pointer(&ins[0])),
		unsafe.Sizeof(input{}),
	)
	if int(ret) != len(ins) {
		return fmt.Errorf("SendInput injected %d of %d events: %w", ret, len(ins), err)
	}
	return nil
}
