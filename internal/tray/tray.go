// Package tray owns the notification-area icon and its menu.
package tray

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"
	"sync"

	"fyne.io/systray"

	"quickcmd/internal/workerutil"
)

//go:embed icon.ico
var iconBytes []byte

// Action is a tray menu selection.
type Action int

const (
	ActionShow Action = iota
	ActionSettings
	ActionExit
)

func (a Action) String() string {
	switch a {
	case ActionShow:
		return "show"
	case ActionSettings:
		return "settings"
	case ActionExit:
		return "exit"
	default:
		return "unknown"
	}
}

// MenuItem describes one entry in the tray menu.
type MenuItem struct {
	Label   string
	Tooltip string
	Action  Action
	// Separator inserts a divider before this item.
	Separator bool
}

// Menu returns the tray menu, top to bottom.
func Menu() []MenuItem {
	return []MenuItem{
		{Label: "Show QuickCmd", Tooltip: "Bring the launcher window forward", Action: ActionShow},
		{Label: "Settings...", Tooltip: "Edit hotkey and layout settings", Action: ActionSettings},
		{Label: "Exit", Tooltip: "Quit QuickCmd", Action: ActionExit, Separator: true},
	}
}

var (
	runExternalLoopFn = systray.RunWithExternalLoop
	setIconFn         = systray.SetIcon
	setTooltipFn      = systray.SetTooltip
	addSeparatorFn    = systray.AddSeparator
	addMenuItemFn     = func(label, tooltip string) <-chan struct{} {
		return systray.AddMenuItem(label, tooltip).ClickedCh
	}
)

// ErrStarted is returned by Start on a running Service.
var ErrStarted = errors.New("tray already started")

// Service runs the tray loop. Menu clicks are read on background workers
// and handed to onAction; onAction must not block for long.
type Service struct {
	onAction func(Action)

	mu      sync.Mutex
	started bool
	end     func()
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New returns a Service that reports menu clicks to onAction.
func New(onAction func(Action)) *Service {
	return &Service{onAction: onAction}
}

// Start shows the icon and begins reading menu clicks.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	start, end := runExternalLoopFn(func() { s.onReady(ctx) }, func() {
		slog.Debug("[DEBUG-TRAY] tray loop exited")
	})
	s.started = true
	s.end = end
	s.cancel = cancel
	start()
	return nil
}

func (s *Service) onReady(ctx context.Context) {
	setIconFn(iconBytes)
	setTooltipFn("QuickCmd")
	for _, item := range Menu() {
		if item.Separator {
			addSeparatorFn()
		}
		clicks := addMenuItemFn(item.Label, item.Tooltip)
		action := item.Action
		workerutil.RunWithPanicRecovery(ctx, "tray-"+action.String(), &s.wg, func(ctx context.Context) {
			s.readClicks(ctx, clicks, action)
		}, workerutil.RecoveryOptions{MaxRetries: 3})
	}
	slog.Debug("[DEBUG-TRAY] tray ready")
}

func (s *Service) readClicks(ctx context.Context, clicks <-chan struct{}, action Action) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-clicks:
			if !ok {
				return
			}
			slog.Debug("[DEBUG-TRAY] menu clicked", "action", action)
			if s.onAction != nil {
				s.onAction(action)
			}
		}
	}
}

// Stop removes the icon, ends the loop and waits for the click readers.
// Stop is idempotent.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel, end := s.cancel, s.end
	s.cancel, s.end = nil, nil
	s.mu.Unlock()

	cancel()
	if end != nil {
		end()
	}
	s.wg.Wait()
}
