// Package config loads, validates, and hot-reloads the TOML configuration
// file at ~/.config/dome/config.toml (or an explicit --config path).
package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/dome-wm/dome/internal/command"
	"github.com/dome-wm/dome/internal/geometry"
)

// RuleSpec is one entry of a [[<platform>.ignore]] or [[<platform>.on_open]]
// table. Run is only meaningful on on_open entries.
type RuleSpec struct {
	App      string   `toml:"app"`
	BundleID string   `toml:"bundle_id"`
	Process  string   `toml:"process"`
	Title    string   `toml:"title"`
	Run      []string `toml:"run"`
}

// PlatformRules groups the ignore/on_open tables for one platform.
type PlatformRules struct {
	Ignore []RuleSpec `toml:"ignore"`
	OnOpen []RuleSpec `toml:"on_open"`
}

// Gaps describes the inner and outer gaps applied during layout planning.
type Gaps struct {
	Inner float64 `toml:"inner"`
	Outer float64 `toml:"outer"`
}

// Config is the decoded TOML document plus, after Load runs applyDefaults
// and Validate, the resolved values a running server reads.
type Config struct {
	BorderSize         float64 `toml:"border_size"`
	AutomaticTilingPtr *bool   `toml:"automatic_tiling"`
	TabBarHeight       float64 `toml:"tab_bar_height"`
	Gaps               Gaps    `toml:"gaps"`

	MinWidthRaw  string `toml:"min_width"`
	MinHeightRaw string `toml:"min_height"`
	MaxWidthRaw  string `toml:"max_width"`
	MaxHeightRaw string `toml:"max_height"`

	FocusedColor             string `toml:"focused_color"`
	BorderColor              string `toml:"border_color"`
	TabBarBackgroundColor    string `toml:"tab_bar_background_color"`
	ActiveTabBackgroundColor string `toml:"active_tab_background_color"`

	Keymaps map[string][]string `toml:"keymaps"`

	MacOS   PlatformRules `toml:"macos"`
	Windows PlatformRules `toml:"windows"`

	// LegacyWindowRules is the deprecated, unified window_rules form,
	// accepted for one release cycle and migrated by applyDefaults into
	// the per-platform on_open tables.
	LegacyWindowRules []RuleSpec `toml:"window_rules"`

	// Resolved fields, populated by applyDefaults/Validate. Not part of
	// the TOML document.
	AutomaticTiling bool          `toml:"-"`
	MinWidth        geometry.Size `toml:"-"`
	MinHeight       geometry.Size `toml:"-"`
	MaxWidth        geometry.Size `toml:"-"`
	MaxHeight       geometry.Size `toml:"-"`
	Chords          []Chord       `toml:"-"`
	Warnings        []string      `toml:"-"`
}

const (
	defaultBorderSize               = 2.0
	defaultTabBarHeight             = 24.0
	defaultFocusedColor             = "#88C0D0"
	defaultBorderColor              = "#4C566A"
	defaultTabBarBackgroundColor    = "#2E3440"
	defaultActiveTabBackgroundColor = "#434C5E"
)

var hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// DefaultPath returns the default config location for the current user.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/dome/config.toml"
	}
	return home + "/.config/dome/config.toml"
}

// Load reads, parses, defaults, and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.BorderSize == 0 {
		cfg.BorderSize = defaultBorderSize
	}
	if cfg.TabBarHeight == 0 {
		cfg.TabBarHeight = defaultTabBarHeight
	}
	if cfg.AutomaticTilingPtr == nil {
		cfg.AutomaticTiling = true
	} else {
		cfg.AutomaticTiling = *cfg.AutomaticTilingPtr
	}
	if cfg.MinWidthRaw == "" {
		cfg.MinWidthRaw = "0"
	}
	if cfg.MinHeightRaw == "" {
		cfg.MinHeightRaw = "0"
	}
	if cfg.MaxWidthRaw == "" {
		cfg.MaxWidthRaw = "0"
	}
	if cfg.MaxHeightRaw == "" {
		cfg.MaxHeightRaw = "0"
	}
	if cfg.FocusedColor == "" {
		cfg.FocusedColor = defaultFocusedColor
	}
	if cfg.BorderColor == "" {
		cfg.BorderColor = defaultBorderColor
	}
	if cfg.TabBarBackgroundColor == "" {
		cfg.TabBarBackgroundColor = defaultTabBarBackgroundColor
	}
	if cfg.ActiveTabBackgroundColor == "" {
		cfg.ActiveTabBackgroundColor = defaultActiveTabBackgroundColor
	}
	if len(cfg.LegacyWindowRules) > 0 {
		cfg.Windows.OnOpen = append(cfg.Windows.OnOpen, cfg.LegacyWindowRules...)
		cfg.MacOS.OnOpen = append(cfg.MacOS.OnOpen, cfg.LegacyWindowRules...)
		cfg.Warnings = append(cfg.Warnings, "window_rules is deprecated; split entries into [[macos.on_open]]/[[windows.on_open]]")
	}
}

// Validate resolves size/color/chord fields and reports the first
// malformed one. Safe to call more than once.
func (cfg *Config) Validate() error {
	var err error
	if cfg.MinWidth, err = geometry.ParseSize(cfg.MinWidthRaw); err != nil {
		return fmt.Errorf("min_width: %w", err)
	}
	if cfg.MinHeight, err = geometry.ParseSize(cfg.MinHeightRaw); err != nil {
		return fmt.Errorf("min_height: %w", err)
	}
	if cfg.MaxWidth, err = geometry.ParseSize(cfg.MaxWidthRaw); err != nil {
		return fmt.Errorf("max_width: %w", err)
	}
	if cfg.MaxHeight, err = geometry.ParseSize(cfg.MaxHeightRaw); err != nil {
		return fmt.Errorf("max_height: %w", err)
	}
	if cfg.BorderSize < 0 {
		return fmt.Errorf("border_size cannot be negative")
	}
	if cfg.TabBarHeight < 0 {
		return fmt.Errorf("tab_bar_height cannot be negative")
	}
	if cfg.Gaps.Inner < 0 {
		return fmt.Errorf("gaps.inner cannot be negative")
	}
	if cfg.Gaps.Outer < 0 {
		return fmt.Errorf("gaps.outer cannot be negative")
	}

	for _, pair := range []struct{ name, hex string }{
		{"focused_color", cfg.FocusedColor},
		{"border_color", cfg.BorderColor},
		{"tab_bar_background_color", cfg.TabBarBackgroundColor},
		{"active_tab_background_color", cfg.ActiveTabBackgroundColor},
	} {
		if !hexColorPattern.MatchString(pair.hex) {
			return fmt.Errorf("%s: %q is not a #RRGGBB color", pair.name, pair.hex)
		}
	}

	raws := make([]string, 0, len(cfg.Keymaps))
	for raw := range cfg.Keymaps {
		raws = append(raws, raw)
	}
	sort.Strings(raws)

	chords := make([]Chord, 0, len(raws))
	for _, raw := range raws {
		chord, err := ParseChord(raw)
		if err != nil {
			return fmt.Errorf("keymaps: %w", err)
		}
		for _, line := range cfg.Keymaps[raw] {
			if _, err := command.Parse(line); err != nil {
				return fmt.Errorf("keymaps[%q]: %w", raw, err)
			}
		}
		chord.Commands = cfg.Keymaps[raw]
		chords = append(chords, chord)
	}
	cfg.Chords = chords
	return nil
}
