//go:build windows

package hotkeys

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32DLL = windows.NewLazySystemDLL("user32.dll")

	procRegisterHotKey     = user32DLL.NewProc("RegisterHotKey")
	procUnregisterHotKey   = user32DLL.NewProc("UnregisterHotKey")
	procGetMessageW        = user32DLL.NewProc("GetMessageW")
	procTranslateMessage   = user32DLL.NewProc("TranslateMessage")
	procDispatchMessageW   = user32DLL.NewProc("DispatchMessageW")
	procPostThreadMessageW = user32DLL.NewProc("PostThreadMessageW")
	procPeekMessageW       = user32DLL.NewProc("PeekMessageW")
)

const (
	wmHotkey    = 0x0312
	wmQuit      = 0x0012
	pmNoRemove  = 0x0000
	modNoRepeat = 0x4000

	// maxHotkeyID is the upper bound for application-defined hotkey IDs (Win32).
	maxHotkeyID int32 = 0xBFFF

	loopStopTimeout = 2 * time.Second
)

var nextHotkeyID int32 = 0x4000

// registration is one running message loop owning one RegisterHotKey id.
type registration struct {
	hotkeyID int32
	threadID uint32
	doneCh   chan struct{}
	binding  string
}

// point mirrors the Win32 POINT struct.
type point struct {
	x int32
	y int32
}

// winMsg mirrors the Win32 MSG struct (tagMSG from winuser.h).
// Field order and types must match the Win32 binary layout on both 32-bit
// and 64-bit Windows.
type winMsg struct {
	hWnd     uintptr
	message  uint32
	wParam   uintptr
	lParam   uintptr
	time     uint32
	pt       point
	lPrivate uint32
}

type loopReady struct {
	threadID uint32
	err      error
}

type winHook struct {
	mu     sync.Mutex
	nextID Handle
	active map[Handle]*registration
}

// NewOSHook returns the RegisterHotKey-backed hook.
func NewOSHook() Hook {
	return &winHook{active: make(map[Handle]*registration)}
}

func (h *winHook) Bind(b Binding, onTrigger func()) (Handle, error) {
	if onTrigger == nil {
		return 0, errors.New("onTrigger callback is required")
	}
	if err := user32DLL.Load(); err != nil {
		return 0, fmt.Errorf("user32.dll is unavailable: %w", err)
	}

	hotkeyID := atomic.AddInt32(&nextHotkeyID, 1)
	if hotkeyID < 0 || hotkeyID > maxHotkeyID {
		return 0, fmt.Errorf("hotkey ID range exhausted (ID=%d)", hotkeyID)
	}

	readyCh := make(chan loopReady, 1)
	doneCh := make(chan struct{})
	go runHotkeyLoop(hotkeyID, b, onTrigger, readyCh, doneCh)

	ready := <-readyCh
	if ready.err != nil {
		return 0, fmt.Errorf("register hotkey %q failed: %w", b.Normalized(), ready.err)
	}
	if ready.threadID == 0 {
		return 0, errors.New("hotkey loop started but returned invalid thread ID 0")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	handle := h.nextID
	h.active[handle] = &registration{
		hotkeyID: hotkeyID,
		threadID: ready.threadID,
		doneCh:   doneCh,
		binding:  b.Normalized(),
	}
	return handle, nil
}

func (h *winHook) Unbind(handle Handle) error {
	h.mu.Lock()
	reg, ok := h.active[handle]
	delete(h.active, handle)
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown hotkey handle %d", handle)
	}

	stopErr := postQuit(reg.threadID)
	if stopErr != nil {
		if unregErr := unregisterHotKey(reg.hotkeyID); unregErr != nil {
			slog.Warn("[DEBUG-hotkey] unregisterHotKey fallback failed (cross-thread; may be expected)",
				"error", unregErr, "hotkeyID", reg.hotkeyID)
		}
	}

	timer := time.NewTimer(loopStopTimeout)
	defer timer.Stop()

	select {
	case <-reg.doneCh:
	case <-timer.C:
		slog.Warn("[DEBUG-hotkey] message loop stop timed out, goroutine/thread may leak",
			"hotkeyID", reg.hotkeyID, "binding", reg.binding)
		stopErr = errors.Join(stopErr, fmt.Errorf("hotkey message loop stop timed out (hotkeyID=%d)", reg.hotkeyID))
	}
	return stopErr
}

func runHotkeyLoop(hotkeyID int32, binding Binding, onTrigger func(), readyCh chan<- loopReady, doneCh chan struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(doneCh)

	threadID := windows.GetCurrentThreadId()

	// PeekMessageW creates the thread message queue so that PostThreadMessageW
	// in Unbind can deliver WM_QUIT. It returns 0 when the queue is empty.
	var qmsg winMsg
	ret, _, peekErr := procPeekMessageW.Call(uintptr(unsafe.Pointer(&qmsg)), 0, 0, 0, pmNoRemove)
	if ret == 0 && peekErr != syscall.Errno(0) {
		slog.Warn("[DEBUG-hotkey] PeekMessageW for queue init returned error",
			"error", peekErr, "hotkeyID", hotkeyID)
	}

	if err := registerHotKey(hotkeyID, uint32(binding.Modifiers())|modNoRepeat, uint32(binding.Key())); err != nil {
		readyCh <- loopReady{err: err}
		return
	}
	defer func() {
		if err := unregisterHotKey(hotkeyID); err != nil {
			slog.Error("[DEBUG-hotkey] unregisterHotKey on loop exit failed (resource leak)",
				"error", err, "hotkeyID", hotkeyID)
		}
	}()

	readyCh <- loopReady{threadID: threadID}

	for {
		var msg winMsg
		ret, _, lastErr := procGetMessageW.Call(uintptr(unsafe.Pointer(&msg)), 0, 0, 0)
		switch int32(ret) {
		case -1:
			slog.Warn("[DEBUG-hotkey] GetMessageW returned error, exiting loop", "error", lastErr, "hotkeyID", hotkeyID)
			return
		case 0:
			slog.Debug("[DEBUG-hotkey] message loop received WM_QUIT", "hotkeyID", hotkeyID)
			return
		}

		if msg.message == wmHotkey && int32(msg.wParam) == hotkeyID {
			go onTrigger()
			continue
		}

		procTranslateMessage.Call(uintptr(unsafe.Pointer(&msg)))
		procDispatchMessageW.Call(uintptr(unsafe.Pointer(&msg)))
	}
}

func registerHotKey(hotkeyID int32, modifiers uint32, key uint32) error {
	res, _, err := procRegisterHotKey.Call(0, uintptr(hotkeyID), uintptr(modifiers), uintptr(key))
	if res != 0 {
		return nil
	}
	if err == syscall.Errno(0) {
		return errors.New("RegisterHotKey failed")
	}
	return err
}

func unregisterHotKey(hotkeyID int32) error {
	res, _, err := procUnregisterHotKey.Call(0, uintptr(hotkeyID))
	if res != 0 {
		return nil
	}
	if err == syscall.Errno(0) {
		return errors.New("UnregisterHotKey failed")
	}
	return err
}

func postQuit(threadID uint32) error {
	if threadID == 0 {
		return errors.New("cannot post WM_QUIT: threadID is 0")
	}
	res, _, err := procPostThreadMessageW.Call(uintptr(threadID), wmQuit, 0, 0)
	if res != 0 {
		return nil
	}
	if err == syscall.Errno(0) {
		return errors.New("PostThreadMessageW failed")
	}
	return err
}
