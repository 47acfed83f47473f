package device

import (
	"github.com/Gnarus-G/mcro/pkg/permissions"
)

// DefaultInputDir holds the evdev nodes.
const DefaultInputDir = "/dev/input"

// Environment summarises whether the host lets mcro grab devices and create
// virtual ones.
type Environment struct {
	Available bool
	Input     permissions.ProbeResult
	Uinput    permissions.ProbeResult
	Message   string
}

// DetectEnvironment probes the evdev directory and the uinput node.
func DetectEnvironment(lookup permissions.LookupEnvFunc, inputDir, uinputPath string) Environment {
	env := Environment{
		Input:  permissions.ProbeInputDevices(lookup, inputDir),
		Uinput: permissions.ProbeUinput(lookup, uinputPath),
	}
	env.Available = env.Input.Status == permissions.StatusGranted && env.Uinput.Status == permissions.StatusGranted

	switch {
	case env.Available:
		env.Message = "input devices readable and uinput writable"
	case env.Input.Status != permissions.StatusGranted && env.Uinput.Status != permissions.StatusGranted:
		env.Message = "cannot read input devices or create virtual devices"
	case env.Input.Status != permissions.StatusGranted:
		env.Message = "cannot read input devices"
	default:
		env.Message = "cannot create virtual devices"
	}
	return env
}
