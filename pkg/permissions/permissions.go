package permissions

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Status enumerates coarse permission results for device access checks.
type Status string

const (
	// StatusUnknown indicates no explicit signal about permission state.
	StatusUnknown Status = "unknown"
	// StatusGranted signals that the process can use the device.
	StatusGranted Status = "granted"
	// StatusDenied indicates the device exists but the process may not use it.
	StatusDenied Status = "denied"
	// StatusUnavailable reports that the device node does not exist.
	StatusUnavailable Status = "unavailable"
)

// ProbeResult represents the coarse state for a permission surface.
type ProbeResult struct {
	Status   Status
	Message  string
	Guidance string
}

// LookupEnvFunc exposes environment probing for testability.
type LookupEnvFunc func(string) (string, bool)

// DefaultLookupEnv is the standard environment resolver.
func DefaultLookupEnv(key string) (string, bool) {
	return lookupEnv(key)
}

// lookupEnv is declared for swapping in tests.
var lookupEnv = func(key string) (string, bool) {
	return os.LookupEnv(key)
}

// access is declared for swapping in tests.
var access = unix.Access

// glob is declared for swapping in tests.
var glob = filepath.Glob

// ProbeUinput checks that the uinput node at path can be opened for writing.
func ProbeUinput(lookup LookupEnvFunc, path string) ProbeResult {
	if lookup == nil {
		lookup = lookupEnv
	}
	if value, ok := lookup("MCRO_UINPUT"); ok {
		return interpretPermissionFlag("uinput", value)
	}

	err := access(path, unix.W_OK)
	switch {
	case err == nil:
		return ProbeResult{Status: StatusGranted, Message: path + " is writable"}
	case errors.Is(err, unix.ENOENT):
		return ProbeResult{Status: StatusUnavailable, Message: path + " does not exist", Guidance: "load the uinput kernel module: modprobe uinput"}
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return ProbeResult{Status: StatusDenied, Message: path + " is not writable", Guidance: "run as root or add a udev rule granting your user write access to " + path}
	default:
		return ProbeResult{Status: StatusUnknown, Message: "probe " + path + ": " + err.Error()}
	}
}

// ProbeInputDevices checks that at least one evdev node under dir can be read.
func ProbeInputDevices(lookup LookupEnvFunc, dir string) ProbeResult {
	if lookup == nil {
		lookup = lookupEnv
	}
	if value, ok := lookup("MCRO_INPUT"); ok {
		return interpretPermissionFlag("input devices", value)
	}

	nodes, err := glob(filepath.Join(dir, "event*"))
	if err != nil {
		return ProbeResult{Status: StatusUnknown, Message: "list " + dir + ": " + err.Error()}
	}
	if len(nodes) == 0 {
		return ProbeResult{Status: StatusUnavailable, Message: "no event nodes under " + dir}
	}

	readable := 0
	for _, node := range nodes {
		if access(node, unix.R_OK) == nil {
			readable++
		}
	}
	if readable == 0 {
		return ProbeResult{Status: StatusDenied, Message: "none of the event nodes under " + dir + " are readable", Guidance: "run as root or add your user to the input group"}
	}
	return ProbeResult{Status: StatusGranted, Message: fmt.Sprintf("%d of %d event nodes readable", readable, len(nodes))}
}

func interpretPermissionFlag(name, value string) ProbeResult {
	normalised := strings.ToLower(strings.TrimSpace(value))
	switch normalised {
	case "granted", "allow", "allowed", "yes", "true":
		return ProbeResult{Status: StatusGranted, Message: name + " permission pre-authorised via env override"}
	case "denied", "no", "false", "blocked":
		return ProbeResult{Status: StatusDenied, Message: name + " permission denied via env override", Guidance: "unset MCRO_* env overrides to probe the real device nodes"}
	case "unavailable", "unsupported":
		return ProbeResult{Status: StatusUnavailable, Message: name + " unavailable via env override"}
	default:
		return ProbeResult{Status: StatusUnknown, Message: name + " permission state unknown"}
	}
}

// StatusString returns the string representation for reports.
func (p ProbeResult) StatusString() string {
	if p.Status == "" {
		return string(StatusUnknown)
	}
	return string(p.Status)
}
