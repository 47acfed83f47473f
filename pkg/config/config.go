package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	evdev "github.com/holoplot/go-evdev"
	"gopkg.in/yaml.v3"

	"github.com/Gnarus-G/mcro/pkg/remap"
)

// DefaultFileName is read from the working directory when no --config is given.
const DefaultFileName = "mcro.yaml"

// maxDeviceName mirrors UINPUT_MAX_NAME_SIZE minus the terminator.
const maxDeviceName = 79

// Config captures the user-adjustable knobs for the remapper.
type Config struct {
	Devices       []string            `yaml:"devices"`
	VirtualDevice VirtualDeviceConfig `yaml:"virtual_device"`
	Rules         RulesConfig         `yaml:"rules"`
	Logging       LoggingConfig       `yaml:"logging"`

	// Source indicates where the configuration originated (defaults or a file path).
	Source string `yaml:"-"`
}

// VirtualDeviceConfig names the uinput device remapped events are written to.
type VirtualDeviceConfig struct {
	Name    string `yaml:"name"`
	Vendor  uint16 `yaml:"vendor"`
	Product uint16 `yaml:"product"`
}

// RulesConfig binds key names to the fixed remapping rules. Names are evdev
// code names (KEY_A, BTN_WEST) or numeric codes.
type RulesConfig struct {
	ChordTriggers []string `yaml:"chord_triggers"`
	ChordKeys     []string `yaml:"chord_keys"`
	RemapTrigger  string   `yaml:"remap_trigger"`
	RemapOutput   string   `yaml:"remap_output"`
}

// LoggingConfig defines log verbosity and formatting.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// lookupEnv is declared for swapping in tests.
var lookupEnv = os.LookupEnv

// Default returns the baseline configuration used when no overrides are supplied.
func Default() Config {
	return Config{
		Devices: []string{"Controller", "PCsensor FootSwitch Keyboard"},
		VirtualDevice: VirtualDeviceConfig{
			Name:    "mcro_kbd",
			Vendor:  0x1234,
			Product: 0x5678,
		},
		Rules: RulesConfig{
			ChordTriggers: []string{"KEY_A", "BTN_WEST"},
			ChordKeys:     []string{"KEY_LEFTSHIFT", "KEY_LEFTALT", "KEY_RIGHTCTRL"},
			RemapTrigger:  "KEY_B",
			RemapOutput:   "KEY_SPACE",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Source: "<defaults>",
	}
}

// Load reads configuration from disk if present, otherwise returning defaults.
// When path is empty, the loader attempts to read ./mcro.yaml but tolerates a
// missing file. Environment overrides (MCRO_DEVICES, MCRO_LOG_LEVEL,
// MCRO_LOG_FORMAT) are applied last.
func Load(path string) (Config, error) {
	cfg := Default()

	candidate := strings.TrimSpace(path)
	explicit := candidate != ""
	if !explicit {
		candidate = DefaultFileName
	}

	data, err := os.ReadFile(candidate)
	switch {
	case err == nil:
		if err := decodeYAML(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %q: %w", candidate, err)
		}
		cfg.Source = candidate
	case errors.Is(err, os.ErrNotExist):
		if explicit {
			return cfg, fmt.Errorf("config file %q not found", candidate)
		}
	default:
		return cfg, fmt.Errorf("read config file %q: %w", candidate, err)
	}

	cfg.applyEnv()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// decodeYAML expands ${VAR} references before decoding and rejects unknown keys.
func decodeYAML(data []byte, cfg *Config) error {
	expanded := os.ExpandEnv(string(data))
	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv() {
	if v, ok := lookupEnv("MCRO_DEVICES"); ok {
		if devices := parseList(v); len(devices) > 0 {
			c.Devices = devices
		}
	}
	if v, ok := lookupEnv("MCRO_LOG_LEVEL"); ok && strings.TrimSpace(v) != "" {
		c.Logging.Level = v
	}
	if v, ok := lookupEnv("MCRO_LOG_FORMAT"); ok && strings.TrimSpace(v) != "" {
		c.Logging.Format = v
	}
}

// Validate ensures essential configuration values are present and sensible.
func (c Config) Validate() error {
	if len(c.Devices) == 0 {
		return errors.New("devices must list at least one device name")
	}
	seen := make(map[string]bool, len(c.Devices))
	for _, name := range c.Devices {
		if strings.TrimSpace(name) == "" {
			return errors.New("devices must not contain empty names")
		}
		if seen[name] {
			return fmt.Errorf("device %q listed more than once", name)
		}
		seen[name] = true
	}

	if strings.TrimSpace(c.VirtualDevice.Name) == "" {
		return errors.New("virtual_device.name must not be empty")
	}
	if len(c.VirtualDevice.Name) > maxDeviceName {
		return fmt.Errorf("virtual_device.name must be at most %d bytes", maxDeviceName)
	}

	if _, err := c.Rules.Resolve(); err != nil {
		return err
	}

	if _, err := NormalizeLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if _, err := NormalizeFormat(c.Logging.Format); err != nil {
		return err
	}

	return nil
}

// Resolve turns key names into a validated rule table.
func (r RulesConfig) Resolve() (remap.Rules, error) {
	triggers, err := parseKeys("rules.chord_triggers", r.ChordTriggers)
	if err != nil {
		return remap.Rules{}, err
	}
	chord, err := parseKeys("rules.chord_keys", r.ChordKeys)
	if err != nil {
		return remap.Rules{}, err
	}
	trigger, err := ParseKey(r.RemapTrigger)
	if err != nil {
		return remap.Rules{}, fmt.Errorf("rules.remap_trigger: %w", err)
	}
	output, err := ParseKey(r.RemapOutput)
	if err != nil {
		return remap.Rules{}, fmt.Errorf("rules.remap_output: %w", err)
	}

	rules := remap.Rules{
		ChordTriggers: triggers,
		ChordKeys:     chord,
		RemapTrigger:  trigger,
		RemapOutput:   output,
	}
	if err := rules.Validate(); err != nil {
		return remap.Rules{}, err
	}
	return rules, nil
}

func parseKeys(field string, names []string) ([]remap.KeyCode, error) {
	out := make([]remap.KeyCode, 0, len(names))
	for _, name := range names {
		code, err := ParseKey(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		out = append(out, code)
	}
	return out, nil
}

// ParseKey resolves an evdev key or button name, case-insensitively, to its
// code. Bare names ("space") get the KEY_ prefix; numbers are taken as codes.
func ParseKey(name string) (remap.KeyCode, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(name))
	if trimmed == "" {
		return 0, errors.New("empty key name")
	}

	if n, err := strconv.ParseUint(trimmed, 0, 16); err == nil {
		if n > uint64(evdev.KEY_MAX) {
			return 0, fmt.Errorf("key code %d outside the keycode space", n)
		}
		return remap.KeyCode(n), nil
	}

	if code, ok := evdev.KEYFromString[trimmed]; ok {
		return code, nil
	}
	if !strings.HasPrefix(trimmed, "KEY_") && !strings.HasPrefix(trimmed, "BTN_") {
		if code, ok := evdev.KEYFromString["KEY_"+trimmed]; ok {
			return code, nil
		}
	}
	return 0, fmt.Errorf("unknown key %q", name)
}

func parseList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (c *Config) normalize() {
	defaults := Default()

	devices := make([]string, 0, len(c.Devices))
	for _, name := range c.Devices {
		devices = append(devices, strings.TrimSpace(name))
	}
	c.Devices = devices

	c.VirtualDevice.Name = strings.TrimSpace(c.VirtualDevice.Name)
	if c.VirtualDevice.Name == "" {
		c.VirtualDevice.Name = defaults.VirtualDevice.Name
	}

	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaults.Logging.Format
	}
	if lvl, err := NormalizeLogLevel(c.Logging.Level); err == nil {
		c.Logging.Level = lvl
	}
	if format, err := NormalizeFormat(c.Logging.Format); err == nil {
		c.Logging.Format = format
	}
}

// NormalizeLogLevel validates and lowercases known logging levels.
func NormalizeLogLevel(level string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return "info", nil
	case "trace":
		return "trace", nil
	case "debug":
		return "debug", nil
	case "warn", "warning":
		return "warn", nil
	case "error":
		return "error", nil
	default:
		return "", fmt.Errorf("unsupported log level %q", level)
	}
}

// NormalizeFormat validates and canonicalizes logging format identifiers.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return "json", nil
	case "console", "text":
		return "console", nil
	default:
		return "", fmt.Errorf("unsupported log format %q", format)
	}
}
