package hotkeys

// Handle identifies one live OS registration made through a Hook.
type Handle uint64

// Hook is the process-wide global keyboard hook.
//
// onTrigger runs on a hook-owned goroutine. It must not touch UI state
// directly; callers hand off into their UI loop.
type Hook interface {
	Bind(b Binding, onTrigger func()) (Handle, error)
	Unbind(h Handle) error
}
