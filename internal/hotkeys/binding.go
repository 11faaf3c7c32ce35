package hotkeys

import (
	"fmt"
	"strconv"
	"strings"
)

// Modifier represents a Win32 hotkey modifier bitmask.
type Modifier uint32

// VKey represents a Win32 virtual-key code.
type VKey uint32

const (
	modAlt     Modifier = 0x0001
	modControl Modifier = 0x0002
	modShift   Modifier = 0x0004
	modWin     Modifier = 0x0008
)

// modifierOrder is the canonical order of modifiers in a normalized chord.
var modifierOrder = []Modifier{modControl, modAlt, modShift, modWin}

const (
	vkTab    VKey = 0x09
	vkReturn VKey = 0x0D
	vkEscape VKey = 0x1B
	vkSpace  VKey = 0x20
	vkPrior  VKey = 0x21
	vkNext   VKey = 0x22
	vkEnd    VKey = 0x23
	vkHome   VKey = 0x24
	vkLeft   VKey = 0x25
	vkUp     VKey = 0x26
	vkRight  VKey = 0x27
	vkDown   VKey = 0x28
	vkInsert VKey = 0x2D
	vkDelete VKey = 0x2E
	vkF1     VKey = 0x70
	vkF12    VKey = 0x7B
	vkF20    VKey = 0x83
	vkOem2   VKey = 0xBF
	vkOem3   VKey = 0xC0
)

var modifierByName = map[string]Modifier{
	"ctrl":    modControl,
	"control": modControl,
	"shift":   modShift,
	"alt":     modAlt,
	"win":     modWin,
	"super":   modWin,
}

var keyByName = map[string]VKey{
	"space":    vkSpace,
	"tab":      vkTab,
	"enter":    vkReturn,
	"return":   vkReturn,
	"esc":      vkEscape,
	"escape":   vkEscape,
	"delete":   vkDelete,
	"insert":   vkInsert,
	"home":     vkHome,
	"end":      vkEnd,
	"pageup":   vkPrior,
	"pagedown": vkNext,
	"left":     vkLeft,
	"right":    vkRight,
	"up":       vkUp,
	"down":     vkDown,
}

// canonicalKeyName folds aliases so that "return" and "enter" normalize the same.
var canonicalKeyName = map[string]string{
	"return": "enter",
	"escape": "esc",
}

// Binding describes a parsed global hotkey.
// Construct only via ParseBinding to guarantee invariant consistency.
type Binding struct {
	modifiers  Modifier
	key        VKey
	normalized string
}

// Modifiers returns the modifier bitmask.
func (b Binding) Modifiers() Modifier { return b.modifiers }

// Key returns the virtual-key code.
func (b Binding) Key() VKey { return b.key }

// Normalized returns the canonical chord: lower-case, modifiers in
// ctrl+alt+shift+win order, then the key.
func (b Binding) Normalized() string { return b.normalized }

// NormalizeChord trims and lower-cases a chord for comparison.
func NormalizeChord(spec string) string {
	return strings.ToLower(strings.TrimSpace(spec))
}

// ParseBinding parses a chord like "ctrl+shift+f12".
func ParseBinding(spec string) (Binding, error) {
	raw := NormalizeChord(spec)
	if raw == "" {
		return Binding{}, fmt.Errorf("hotkey spec is empty")
	}

	parts := strings.Split(raw, "+")
	if len(parts) < 2 {
		return Binding{}, fmt.Errorf("hotkey must include modifiers and key: %s", raw)
	}

	var modifiers Modifier
	for _, token := range parts[:len(parts)-1] {
		name := strings.TrimSpace(token)
		mod, ok := modifierByName[name]
		if !ok {
			return Binding{}, fmt.Errorf("unknown modifier %q in hotkey %q", token, raw)
		}
		modifiers |= mod
	}

	key, normalizedKey, err := parseKey(parts[len(parts)-1])
	if err != nil {
		return Binding{}, err
	}

	normalized := make([]string, 0, len(modifierOrder)+1)
	for _, mod := range modifierOrder {
		if modifiers&mod != 0 {
			normalized = append(normalized, modifierName(mod))
		}
	}
	normalized = append(normalized, normalizedKey)

	return Binding{
		modifiers:  modifiers,
		key:        key,
		normalized: strings.Join(normalized, "+"),
	}, nil
}

func parseKey(raw string) (VKey, string, error) {
	token := strings.TrimSpace(raw)
	if token == "" {
		return 0, "", fmt.Errorf("missing hotkey key token")
	}

	if n, ok := functionKeyNumber(token); ok {
		return vkF1 + VKey(n-1), "f" + strconv.Itoa(n), nil
	}
	if key, ok := keyByName[token]; ok {
		if canonical, alias := canonicalKeyName[token]; alias {
			token = canonical
		}
		return key, token, nil
	}

	if len(token) == 1 {
		ch := token[0]
		switch {
		case ch >= 'a' && ch <= 'z':
			return VKey(ch - 'a' + 'A'), token, nil
		case ch >= '0' && ch <= '9':
			return VKey(ch), token, nil
		case ch == '`':
			return vkOem3, "`", nil
		case ch == '/':
			return vkOem2, "/", nil
		}
	}

	switch token {
	case "backquote", "grave":
		return vkOem3, "`", nil
	case "slash":
		return vkOem2, "/", nil
	}

	if strings.HasPrefix(token, "0x") {
		value, err := strconv.ParseUint(token[2:], 16, 16)
		if err != nil {
			return 0, "", fmt.Errorf("invalid hex key %q", raw)
		}
		if value == 0 {
			return 0, "", fmt.Errorf("key code 0x0000 is not a valid virtual key")
		}
		return VKey(value), token, nil
	}

	return 0, "", fmt.Errorf("unknown key %q in hotkey spec", raw)
}

// functionKeyNumber recognizes f1..f20.
func functionKeyNumber(token string) (int, bool) {
	if len(token) < 2 || token[0] != 'f' {
		return 0, false
	}
	n, err := strconv.Atoi(token[1:])
	if err != nil || n < 1 || n > int(vkF20-vkF1)+1 {
		return 0, false
	}
	return n, true
}

func modifierName(mod Modifier) string {
	switch mod {
	case modControl:
		return "ctrl"
	case modShift:
		return "shift"
	case modAlt:
		return "alt"
	case modWin:
		return "win"
	default:
		return "mod"
	}
}
