//go:build !windows

package inject

func sendKeyEvents([]keyEvent) error {
	return ErrUnsupported
}
