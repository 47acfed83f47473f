package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	evdev "github.com/holoplot/go-evdev"

	"github.com/Gnarus-G/mcro/pkg/remap"
)

func noEnv(t *testing.T, values map[string]string) {
	t.Helper()
	orig := lookupEnv
	lookupEnv = func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
	t.Cleanup(func() { lookupEnv = orig })
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	noEnv(t, nil)
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	defer os.Chdir(cwd)

	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir temp dir: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Source != "<defaults>" {
		t.Fatalf("expected default source marker, got %q", cfg.Source)
	}
	if len(cfg.Devices) != 2 || cfg.Devices[0] != "Controller" || cfg.Devices[1] != "PCsensor FootSwitch Keyboard" {
		t.Fatalf("unexpected default devices: %v", cfg.Devices)
	}
	if cfg.VirtualDevice.Name != "mcro_kbd" {
		t.Fatalf("unexpected virtual device name: %q", cfg.VirtualDevice.Name)
	}

	rules, err := cfg.Rules.Resolve()
	if err != nil {
		t.Fatalf("resolve default rules: %v", err)
	}
	def := remap.DefaultRules()
	if len(rules.ChordTriggers) != len(def.ChordTriggers) || rules.ChordTriggers[1] != def.ChordTriggers[1] {
		t.Fatalf("default chord triggers differ: %v", rules.ChordTriggers)
	}
	for i, code := range def.ChordKeys {
		if rules.ChordKeys[i] != code {
			t.Fatalf("chord key %d: expected %d, got %d", i, code, rules.ChordKeys[i])
		}
	}
	if rules.RemapTrigger != def.RemapTrigger || rules.RemapOutput != def.RemapOutput {
		t.Fatalf("default remap binding differs: %+v", rules)
	}
}

func TestLoadReadsDefaultFileFromWorkingDir(t *testing.T) {
	noEnv(t, nil)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, DefaultFileName), []byte("devices: [\"Kinesis Foot Pedal\"]\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Chdir(dir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Source != DefaultFileName {
		t.Fatalf("expected source %q, got %q", DefaultFileName, cfg.Source)
	}
	if len(cfg.Devices) != 1 || cfg.Devices[0] != "Kinesis Foot Pedal" {
		t.Fatalf("unexpected devices %v", cfg.Devices)
	}
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	noEnv(t, nil)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "mcro.yaml")
	content := `devices:
  - "  8BitDo Micro gamepad Keyboard  "
virtual_device:
  name: pedal_kbd
  vendor: 0x1d6b
  product: 0x0104
rules:
  chord_triggers: [key_f13]
  chord_keys: [KEY_LEFTMETA, l]
  remap_trigger: BTN_SOUTH
  remap_output: "28"
logging:
  level: DEBUG
  format: json
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if len(cfg.Devices) != 1 || cfg.Devices[0] != "8BitDo Micro gamepad Keyboard" {
		t.Fatalf("unexpected devices: %q", cfg.Devices)
	}
	if cfg.VirtualDevice.Name != "pedal_kbd" {
		t.Fatalf("unexpected virtual device name: %q", cfg.VirtualDevice.Name)
	}
	if cfg.VirtualDevice.Vendor != 0x1d6b || cfg.VirtualDevice.Product != 0x0104 {
		t.Fatalf("unexpected virtual device id: %04x:%04x", cfg.VirtualDevice.Vendor, cfg.VirtualDevice.Product)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected log level: %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
	if cfg.Source != cfgPath {
		t.Fatalf("expected source to equal path, got %q", cfg.Source)
	}

	rules, err := cfg.Rules.Resolve()
	if err != nil {
		t.Fatalf("resolve rules: %v", err)
	}
	if len(rules.ChordTriggers) != 1 || rules.ChordTriggers[0] != evdev.KEY_F13 {
		t.Fatalf("unexpected chord triggers: %v", rules.ChordTriggers)
	}
	if len(rules.ChordKeys) != 2 || rules.ChordKeys[0] != evdev.KEY_LEFTMETA || rules.ChordKeys[1] != evdev.KEY_L {
		t.Fatalf("unexpected chord keys: %v", rules.ChordKeys)
	}
	if rules.RemapTrigger != evdev.BTN_SOUTH {
		t.Fatalf("unexpected remap trigger: %d", rules.RemapTrigger)
	}
	if rules.RemapOutput != evdev.KEY_ENTER {
		t.Fatalf("unexpected remap output: %d", rules.RemapOutput)
	}
}

func TestLoadExpandsEnvAndAppliesOverrides(t *testing.T) {
	t.Setenv("MCRO_TEST_PEDAL", "Foot Pedal")
	noEnv(t, map[string]string{
		"MCRO_LOG_LEVEL": "trace",
	})

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "mcro.yaml")
	if err := os.WriteFile(cfgPath, []byte("devices: [\"${MCRO_TEST_PEDAL}\"]\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(cfg.Devices) != 1 || cfg.Devices[0] != "Foot Pedal" {
		t.Fatalf("expected env expansion, got %q", cfg.Devices)
	}
	if cfg.Logging.Level != "trace" {
		t.Fatalf("expected env log level override, got %q", cfg.Logging.Level)
	}

	noEnv(t, map[string]string{"MCRO_DEVICES": "Controller, ,Keypad"})
	cfg, err = Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(cfg.Devices) != 2 || cfg.Devices[1] != "Keypad" {
		t.Fatalf("expected MCRO_DEVICES override, got %q", cfg.Devices)
	}
}

func TestLoadEmptyFileKeepsDefaults(t *testing.T) {
	noEnv(t, nil)
	cfgPath := filepath.Join(t.TempDir(), "mcro.yaml")
	if err := os.WriteFile(cfgPath, nil, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.VirtualDevice.Name != "mcro_kbd" || len(cfg.Devices) != 2 {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	noEnv(t, nil)
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for explicit missing file")
	}

	cases := map[string]string{
		"unknown key":      "capture:\n  unsupported: true\n",
		"unknown key name": "rules:\n  remap_output: KEY_NOPE\n",
		"code too large":   "rules:\n  remap_output: 0x300\n",
		"no chord keys":    "rules:\n  chord_keys: []\n",
		"duplicate device": "devices: [Controller, Controller]\n",
		"no devices":       "devices: []\n",
		"bad level":        "logging:\n  level: loud\n",
		"long name":        "virtual_device:\n  name: " + strings.Repeat("a", 80) + "\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			cfgPath := filepath.Join(dir, "bad.yaml")
			if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := Load(cfgPath); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestParseKey(t *testing.T) {
	cases := map[string]remap.KeyCode{
		"KEY_A":     evdev.KEY_A,
		" key_a ":   evdev.KEY_A,
		"space":     evdev.KEY_SPACE,
		"BTN_WEST":  evdev.BTN_WEST,
		"30":        evdev.KEY_A,
		"0x1e":      evdev.KEY_A,
		"RIGHTCTRL": evdev.KEY_RIGHTCTRL,
	}
	for in, want := range cases {
		got, err := ParseKey(in)
		if err != nil {
			t.Fatalf("ParseKey(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseKey(%q) = %d, want %d", in, got, want)
		}
	}

	for _, bad := range []string{"", "KEY_NOPE", "BTN_", "99999"} {
		if _, err := ParseKey(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
