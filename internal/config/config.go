package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.yaml.in/yaml/v3"

	"quickcmd/internal/fsutil"
)

const (
	maxConfigFileBytes int64 = 1 << 20 // 1MB

	appDirName       = "QuickCmd"
	settingsFileName = "settings.yaml"

	defaultButtonsFile = "button_config.json"
	defaultHotkeyFile  = "hotkey_config.json"
	defaultHistoryFile = "history.db"

	minCellWidth   = 40
	maxCellWidth   = 1000
	maxRowGap      = 100
	minDwellMS     = 50
	maxDwellMS     = 5000
	maxKeyDelayMS  = 5000
	maxHistorySize = 100000
)

// defaultConfigDirFn is a test seam for the directory Save is confined to.
var defaultConfigDirFn = defaultConfigDir
var userHomeDirFn = os.UserHomeDir
var atomicWriteFn = fsutil.AtomicWrite

var defaultPathWarningState struct {
	mu       sync.Mutex
	messages []string
}

func recordDefaultPathWarning(message string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return
	}
	defaultPathWarningState.mu.Lock()
	defaultPathWarningState.messages = append(defaultPathWarningState.messages, trimmed)
	defaultPathWarningState.mu.Unlock()
}

// ConsumeDefaultPathWarnings returns and clears path-resolution warnings
// accumulated during DefaultPath() calls.
func ConsumeDefaultPathWarnings() []string {
	defaultPathWarningState.mu.Lock()
	defer defaultPathWarningState.mu.Unlock()
	if len(defaultPathWarningState.messages) == 0 {
		return nil
	}
	out := append([]string(nil), defaultPathWarningState.messages...)
	defaultPathWarningState.messages = nil
	return out
}

// LayoutConfig tunes the button grid and drag gesture.
type LayoutConfig struct {
	CellWidth int `yaml:"cell_width" json:"cell_width"`
	RowGap    int `yaml:"row_gap" json:"row_gap"`
	DwellMS   int `yaml:"dwell_ms" json:"dwell_ms"`

	// DragMode is the initial state of drag reordering. Off means every
	// press is a click.
	DragMode bool `yaml:"drag_mode" json:"drag_mode"`
}

// Dwell returns DwellMS as a duration.
func (l LayoutConfig) Dwell() time.Duration { return time.Duration(l.DwellMS) * time.Millisecond }

// DispatchConfig names the keys sent around a paste.
type DispatchConfig struct {
	InterruptKey      string   `yaml:"interrupt_key" json:"interrupt_key"`
	AffordanceKey     string   `yaml:"affordance_key" json:"affordance_key"`
	PasteCombo        []string `yaml:"paste_combo" json:"paste_combo"`
	ActivationKey     string   `yaml:"activation_key" json:"activation_key"`
	InterruptDelayMS  int      `yaml:"interrupt_delay_ms" json:"interrupt_delay_ms"`
	AffordanceDelayMS int      `yaml:"affordance_delay_ms" json:"affordance_delay_ms"`
}

// HistoryConfig controls the dispatch log.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	Limit   int  `yaml:"limit" json:"limit"`
}

// Config is the settings.yaml document. Relative file paths resolve
// against the settings directory.
type Config struct {
	ButtonsFile      string         `yaml:"buttons_file" json:"buttons_file"`
	HotkeyFile       string         `yaml:"hotkey_file" json:"hotkey_file"`
	HistoryFile      string         `yaml:"history_file" json:"history_file"`
	WatchButtonsFile bool           `yaml:"watch_buttons_file" json:"watch_buttons_file"`
	Layout           LayoutConfig   `yaml:"layout" json:"layout"`
	Dispatch         DispatchConfig `yaml:"dispatch" json:"dispatch"`
	History          HistoryConfig  `yaml:"history" json:"history"`
}

// DefaultConfig returns the settings used when no file exists.
func DefaultConfig() Config {
	return Config{
		ButtonsFile:      defaultButtonsFile,
		HotkeyFile:       defaultHotkeyFile,
		HistoryFile:      defaultHistoryFile,
		WatchButtonsFile: true,
		Layout: LayoutConfig{
			CellWidth: 100,
			RowGap:    4,
			DwellMS:   200,
		},
		Dispatch: DispatchConfig{
			InterruptKey:      "esc",
			AffordanceKey:     "/",
			PasteCombo:        []string{"ctrl", "v"},
			ActivationKey:     "enter",
			InterruptDelayMS:  50,
			AffordanceDelayMS: 100,
		},
		History: HistoryConfig{
			Enabled: true,
			Limit:   200,
		},
	}
}

// DefaultPath returns <LOCALAPPDATA|APPDATA|~/.config>/QuickCmd/settings.yaml.
func DefaultPath() string {
	base := strings.TrimSpace(os.Getenv("LOCALAPPDATA"))
	if base == "" {
		base = strings.TrimSpace(os.Getenv("APPDATA"))
	}
	if base == "" {
		home, err := userHomeDirFn()
		if err != nil {
			slog.Warn("[WARN-CONFIG] using temp dir as config path fallback", "error", err)
			recordDefaultPathWarning(
				"Settings path fallback: failed to resolve LOCALAPPDATA/APPDATA/home directory. Using temp directory; buttons may not persist.",
			)
			base = os.TempDir()
		} else {
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, appDirName, settingsFileName)
}

// Load reads the settings file. A missing or empty file yields defaults.
// Out-of-range values are reset to defaults with a warning; only an
// unparseable file returns an error, together with defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, errors.New("config path required")
	}

	raw, err := fsutil.ReadLimited(path, maxConfigFileBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		slog.Warn("[WARN-CONFIG] failed to parse settings, using defaults", "path", path, "error", err)
		return DefaultConfig(), fmt.Errorf("parse settings: %w", err)
	}
	applyDefaultsAndValidate(&cfg)
	return cfg, nil
}

// EnsureFile writes default settings if missing and returns the loaded config.
func EnsureFile(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if _, err := Save(path, cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// Clone returns a deep copy of cfg.
func Clone(src Config) Config {
	dst := src
	if src.Dispatch.PasteCombo != nil {
		dst.Dispatch.PasteCombo = append([]string(nil), src.Dispatch.PasteCombo...)
	}
	return dst
}

// Save normalizes cfg and atomically writes it to path, which must lie
// inside the settings directory. It returns what was written.
func Save(path string, cfg Config) (Config, error) {
	normalizedPath, err := validateConfigPath(path)
	if err != nil {
		return cfg, err
	}
	cfg = Clone(cfg)
	applyDefaultsAndValidate(&cfg)

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return cfg, fmt.Errorf("save config: marshal: %w", err)
	}
	if err := atomicWriteFn(normalizedPath, raw, 0o600); err != nil {
		return cfg, fmt.Errorf("save config: %w", err)
	}
	slog.Debug("[DEBUG-CONFIG] config saved", "path", path)
	return cfg, nil
}

// ResolvePath returns p as an absolute path: "~" expands to the home
// directory and relative paths join onto the directory holding settingsPath.
func ResolvePath(settingsPath, p string) string {
	p = strings.TrimSpace(p)
	if strings.HasPrefix(p, "~") {
		home, err := userHomeDirFn()
		if err == nil {
			p = filepath.Join(home, p[1:])
		} else {
			slog.Warn("[WARN-CONFIG] failed to expand ~, resolving relative to settings dir", "path", p, "error", err)
			p = strings.TrimLeft(p[1:], `/\`)
		}
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(filepath.Dir(settingsPath), p)
}

// validateConfigPath normalizes path and enforces that settings writes stay
// inside the default settings directory.
func validateConfigPath(path string) (string, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return "", errors.New("config path required")
	}
	absolutePath, err := filepath.Abs(trimmedPath)
	if err != nil {
		return "", fmt.Errorf("save config: resolve path: %w", err)
	}
	expectedDir, err := defaultConfigDirFn()
	if err != nil {
		return "", fmt.Errorf("save config: resolve config dir: %w", err)
	}
	absoluteExpectedDir, err := filepath.Abs(expectedDir)
	if err != nil {
		return "", fmt.Errorf("save config: resolve config dir: %w", err)
	}
	if !fsutil.PathWithinDir(absolutePath, absoluteExpectedDir) {
		return "", fmt.Errorf("save config: path outside config directory: %q", absolutePath)
	}
	return absolutePath, nil
}

func defaultConfigDir() (string, error) {
	return filepath.Dir(DefaultPath()), nil
}

// applyDefaultsAndValidate resets every invalid field to its default.
// MUTATES: cfg is directly modified. Never fails: a bad settings file must
// not prevent startup.
func applyDefaultsAndValidate(cfg *Config) {
	defaults := DefaultConfig()

	cfg.ButtonsFile = defaultIfBlank(cfg.ButtonsFile, defaults.ButtonsFile, "buttons_file")
	cfg.HotkeyFile = defaultIfBlank(cfg.HotkeyFile, defaults.HotkeyFile, "hotkey_file")
	cfg.HistoryFile = defaultIfBlank(cfg.HistoryFile, defaults.HistoryFile, "history_file")

	cfg.Layout.CellWidth = clampOrDefault(cfg.Layout.CellWidth, minCellWidth, maxCellWidth, defaults.Layout.CellWidth, "layout.cell_width")
	cfg.Layout.RowGap = clampOrDefault(cfg.Layout.RowGap, 0, maxRowGap, defaults.Layout.RowGap, "layout.row_gap")
	cfg.Layout.DwellMS = clampOrDefault(cfg.Layout.DwellMS, minDwellMS, maxDwellMS, defaults.Layout.DwellMS, "layout.dwell_ms")

	d := &cfg.Dispatch
	d.InterruptKey = normalizeKey(d.InterruptKey)
	d.AffordanceKey = normalizeKey(d.AffordanceKey)
	d.ActivationKey = normalizeKey(d.ActivationKey)
	combo := make([]string, 0, len(d.PasteCombo))
	for _, k := range d.PasteCombo {
		if k = normalizeKey(k); k != "" {
			combo = append(combo, k)
		}
	}
	if len(combo) == 0 {
		slog.Warn("[WARN-CONFIG] dispatch.paste_combo is empty, using default", "default", defaults.Dispatch.PasteCombo)
		combo = append([]string(nil), defaults.Dispatch.PasteCombo...)
	}
	d.PasteCombo = combo
	d.InterruptDelayMS = clampOrDefault(d.InterruptDelayMS, 0, maxKeyDelayMS, defaults.Dispatch.InterruptDelayMS, "dispatch.interrupt_delay_ms")
	d.AffordanceDelayMS = clampOrDefault(d.AffordanceDelayMS, 0, maxKeyDelayMS, defaults.Dispatch.AffordanceDelayMS, "dispatch.affordance_delay_ms")

	cfg.History.Limit = clampOrDefault(cfg.History.Limit, 1, maxHistorySize, defaults.History.Limit, "history.limit")
}

func defaultIfBlank(value, def, field string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		slog.Debug("[DEBUG-CONFIG] empty value, using default", "field", field, "default", def)
		return def
	}
	return value
}

func clampOrDefault(value, lo, hi, def int, field string) int {
	if value < lo || value > hi {
		slog.Warn("[WARN-CONFIG] value out of range, using default",
			"field", field, "value", value, "min", lo, "max", hi, "default", def)
		return def
	}
	return value
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}
