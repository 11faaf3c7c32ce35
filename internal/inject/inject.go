// Package inject types keys into and fills the clipboard for the
// application that has keyboard focus.
package inject

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
)

// ErrUnsupported is returned by key injection on platforms without an
// input backend.
var ErrUnsupported = errors.New("key injection is not supported on this platform")

const (
	vkBack    = 0x08
	vkTab     = 0x09
	vkReturn  = 0x0D
	vkShift   = 0x10
	vkControl = 0x11
	vkMenu    = 0x12
	vkEscape  = 0x1B
	vkSpace   = 0x20
	vkPrior   = 0x21
	vkNext    = 0x22
	vkEnd     = 0x23
	vkHome    = 0x24
	vkLeft    = 0x25
	vkUp      = 0x26
	vkRight   = 0x27
	vkDown    = 0x28
	vkInsert  = 0x2D
	vkDelete  = 0x2E
	vkLWin    = 0x5B
	vkF1      = 0x70
	vkOem2    = 0xBF // "/?" on US layouts
	vkOem3    = 0xC0 // "`~" on US layouts
)

var vkByName = map[string]uint16{
	"backspace": vkBack,
	"tab":       vkTab,
	"enter":     vkReturn,
	"return":    vkReturn,
	"shift":     vkShift,
	"ctrl":      vkControl,
	"control":   vkControl,
	"alt":       vkMenu,
	"esc":       vkEscape,
	"escape":    vkEscape,
	"space":     vkSpace,
	"pageup":    vkPrior,
	"pagedown":  vkNext,
	"end":       vkEnd,
	"home":      vkHome,
	"left":      vkLeft,
	"up":        vkUp,
	"right":     vkRight,
	"down":      vkDown,
	"insert":    vkInsert,
	"delete":    vkDelete,
	"win":       vkLWin,
	"super":     vkLWin,
	"/":         vkOem2,
	"slash":     vkOem2,
	"`":         vkOem3,
}

// extendedVK lists keys that need KEYEVENTF_EXTENDEDKEY.
var extendedVK = map[uint16]bool{
	vkPrior: true, vkNext: true, vkEnd: true, vkHome: true,
	vkLeft: true, vkUp: true, vkRight: true, vkDown: true,
	vkInsert: true, vkDelete: true, vkLWin: true,
}

type keyEvent struct {
	vk       uint16
	up       bool
	extended bool
}

// Injector sends input through the OS.
type Injector struct {
	sendKeys       func([]keyEvent) error
	writeClipboard func(string) error
	sleep          func(time.Duration)
}

// New returns an Injector backed by the platform input API and the system
// clipboard.
func New() *Injector {
	return &Injector{
		sendKeys:       sendKeyEvents,
		writeClipboard: clipboard.WriteAll,
		sleep:          time.Sleep,
	}
}

// InjectKeystroke presses and releases key.
func (i *Injector) InjectKeystroke(key string) error {
	vk, err := resolveKey(key)
	if err != nil {
		return err
	}
	ext := extendedVK[vk]
	return i.sendKeys([]keyEvent{{vk: vk, extended: ext}, {vk: vk, up: true, extended: ext}})
}

// InjectCombo presses keys in order and releases them in reverse, so
// InjectCombo("ctrl", "v") is a paste.
func (i *Injector) InjectCombo(keys ...string) error {
	if len(keys) == 0 {
		return errors.New("empty key combo")
	}
	vks := make([]uint16, len(keys))
	for n, k := range keys {
		vk, err := resolveKey(k)
		if err != nil {
			return err
		}
		vks[n] = vk
	}

	events := make([]keyEvent, 0, 2*len(vks))
	for _, vk := range vks {
		events = append(events, keyEvent{vk: vk, extended: extendedVK[vk]})
	}
	for n := len(vks) - 1; n >= 0; n-- {
		events = append(events, keyEvent{vk: vks[n], up: true, extended: extendedVK[vks[n]]})
	}
	return i.sendKeys(events)
}

// SetClipboard replaces the clipboard text.
func (i *Injector) SetClipboard(text string) error {
	if err := i.writeClipboard(text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	return nil
}

// Sleep pauses between steps.
func (i *Injector) Sleep(d time.Duration) { i.sleep(d) }

func resolveKey(name string) (uint16, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if vk, ok := vkByName[key]; ok {
		return vk, nil
	}
	if len(key) == 1 {
		ch := key[0]
		switch {
		case ch >= 'a' && ch <= 'z':
			return uint16(ch - 'a' + 'A'), nil
		case ch >= '0' && ch <= '9':
			return uint16(ch), nil
		}
	}
	if len(key) >= 2 && key[0] == 'f' {
		if n, err := strconv.Atoi(key[1:]); err == nil && n >= 1 && n <= 24 {
			return uint16(vkF1 + n - 1), nil
		}
	}
	return 0, fmt.Errorf("unknown key %q", name)
}
