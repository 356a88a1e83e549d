package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"ghosttype/internal/session"
)

type Config struct {
	Typing    TypingConfig    `toml:"typing"`
	Injection InjectionConfig `toml:"injection"`
}

// Durations are stored as millisecond integers so the file stays plain toml.
type TypingConfig struct {
	CharDelayMs   int `toml:"char_delay_ms"`
	PreDelayMs    int `toml:"pre_delay_ms"`
	SettleDelayMs int `toml:"settle_delay_ms"`
	ProgressEvery int `toml:"progress_every"`
}

type InjectionConfig struct {
	Backends         []string `toml:"backends"`
	UinputTimeoutMs  int      `toml:"uinput_timeout_ms"`
	YdotoolTimeoutMs int      `toml:"ydotool_timeout_ms"`
	WtypeTimeoutMs   int      `toml:"wtype_timeout_ms"`
}

func (t TypingConfig) CharDelay() time.Duration {
	return time.Duration(t.CharDelayMs) * time.Millisecond
}

func (t TypingConfig) PreDelay() time.Duration {
	return time.Duration(t.PreDelayMs) * time.Millisecond
}

func (t TypingConfig) SettleDelay() time.Duration {
	return time.Duration(t.SettleDelayMs) * time.Millisecond
}

func Default() *Config {
	return &Config{
		Typing: TypingConfig{
			CharDelayMs:   100,
			PreDelayMs:    500,
			SettleDelayMs: 200,
			ProgressEvery: 10,
		},
		Injection: InjectionConfig{
			Backends:         []string{"uinput", "ydotool", "wtype"},
			UinputTimeoutMs:  2000,
			YdotoolTimeoutMs: 5000,
			WtypeTimeoutMs:   5000,
		},
	}
}

func (c *Config) ToSessionConfig() session.Config {
	return session.Config{
		Backends:       c.Injection.Backends,
		UinputTimeout:  time.Duration(c.Injection.UinputTimeoutMs) * time.Millisecond,
		YdotoolTimeout: time.Duration(c.Injection.YdotoolTimeoutMs) * time.Millisecond,
		WtypeTimeout:   time.Duration(c.Injection.WtypeTimeoutMs) * time.Millisecond,
	}
}

func (c *Config) Validate() error {
	// Typing
	if c.Typing.CharDelayMs < 0 {
		return fmt.Errorf("invalid typing.char_delay_ms: %d (must be >= 0)", c.Typing.CharDelayMs)
	}
	if c.Typing.PreDelayMs < 0 {
		return fmt.Errorf("invalid typing.pre_delay_ms: %d (must be >= 0)", c.Typing.PreDelayMs)
	}
	if c.Typing.SettleDelayMs < 0 {
		return fmt.Errorf("invalid typing.settle_delay_ms: %d (must be >= 0)", c.Typing.SettleDelayMs)
	}
	if c.Typing.ProgressEvery < 1 {
		return fmt.Errorf("invalid typing.progress_every: %d (must be >= 1)", c.Typing.ProgressEvery)
	}

	// Injection
	if len(c.Injection.Backends) == 0 {
		return fmt.Errorf("invalid injection.backends: empty (must have at least one backend)")
	}
	validBackends := map[string]bool{"uinput": true, "ydotool": true, "wtype": true}
	for _, backend := range c.Injection.Backends {
		if !validBackends[backend] {
			return fmt.Errorf("invalid injection.backends: unknown backend %q (must be uinput, ydotool, or wtype)", backend)
		}
	}
	if c.Injection.UinputTimeoutMs <= 0 {
		return fmt.Errorf("invalid injection.uinput_timeout_ms: %d", c.Injection.UinputTimeoutMs)
	}
	if c.Injection.YdotoolTimeoutMs <= 0 {
		return fmt.Errorf("invalid injection.ydotool_timeout_ms: %d", c.Injection.YdotoolTimeoutMs)
	}
	if c.Injection.WtypeTimeoutMs <= 0 {
		return fmt.Errorf("invalid injection.wtype_timeout_ms: %d", c.Injection.WtypeTimeoutMs)
	}

	return nil
}

func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	ghosttypeDir := filepath.Join(configDir, "ghosttype")
	if err := os.MkdirAll(ghosttypeDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(ghosttypeDir, "config.toml"), nil
}

func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	// If config file doesn't exist, create it with defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Printf("Config: no config file found at %s, creating with defaults", configPath)
		if err := SaveDefaultConfig(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return Load() // Recursively load the config, now file will exist
	}

	var config Config
	if _, err := toml.DecodeFile(configPath, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	config.applyDefaults()

	return &config, nil
}

// applyDefaults fills fields a hand-edited config file may omit. Zero is a
// meaningful value for the delays, so only the remaining fields get defaults.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Typing.ProgressEvery == 0 {
		c.Typing.ProgressEvery = def.Typing.ProgressEvery
	}
	if len(c.Injection.Backends) == 0 {
		c.Injection.Backends = def.Injection.Backends
	}
	if c.Injection.UinputTimeoutMs == 0 {
		c.Injection.UinputTimeoutMs = def.Injection.UinputTimeoutMs
	}
	if c.Injection.YdotoolTimeoutMs == 0 {
		c.Injection.YdotoolTimeoutMs = def.Injection.YdotoolTimeoutMs
	}
	if c.Injection.WtypeTimeoutMs == 0 {
		c.Injection.WtypeTimeoutMs = def.Injection.WtypeTimeoutMs
	}
}

func SaveDefaultConfig() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	configContent := `# Ghosttype Configuration
# This file is automatically generated with defaults.
# Edit values as needed.

# Typing Pace Configuration
[typing]
  char_delay_ms = 100        # Pause between characters, milliseconds
  pre_delay_ms = 500         # Wait before the first character (time to focus the target window)
  settle_delay_ms = 200      # Wait after the last character before reporting success
  progress_every = 10        # Emit a progress log line every N characters

# Key Injection Configuration
[injection]
  backends = ["uinput", "ydotool", "wtype"]  # Ordered chain (first one that acquires wins)
  uinput_timeout_ms = 2000   # Timeout for virtual device creation
  ydotool_timeout_ms = 5000  # Timeout for ydotool commands
  wtype_timeout_ms = 5000    # Timeout for wtype commands

# Backend explanations:
# - "uinput":  Creates a kernel-level virtual keyboard via /dev/uinput. Events are
#              indistinguishable from real hardware at the input stack. Requires
#              write access to /dev/uinput.
# - "ydotool": Uses ydotool (requires ydotoold daemon running). Works on Wayland and X11.
# - "wtype":   Uses wtype. Native Wayland typing, no daemon needed.
#
# The backends are tried in order. The first one that acquires a session wins.
# Example configurations:
#   backends = ["wtype"]                # wtype only
#   backends = ["ydotool", "wtype"]     # skip uinput on systems without device access
`

	if _, err := file.WriteString(configContent); err != nil {
		return fmt.Errorf("failed to write config content: %w", err)
	}

	return nil
}
