// Package device wraps evdev input devices: finding one by name, grabbing it
// exclusively and reading its events one report at a time.
package device

import (
	"errors"
	"fmt"
	"sync"

	evdev "github.com/holoplot/go-evdev"
)

// ErrNotFound is returned by Finder.Find when no enumerated device has the
// requested name.
var ErrNotFound = errors.New("device not found")

type handle interface {
	ReadOne() (*evdev.InputEvent, error)
	Grab() error
	Ungrab() error
	Close() error
}

// Device is an opened evdev node.
type Device struct {
	path string
	name string
	id   evdev.InputID
	h    handle

	mu      sync.Mutex
	grabbed bool
}

// Open opens the evdev node at path and reads its identity.
func Open(path string) (*Device, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	name, err := dev.Name()
	if err != nil {
		_ = dev.Close()
		return nil, fmt.Errorf("read name of %s: %w", path, err)
	}
	id, err := dev.InputID()
	if err != nil {
		_ = dev.Close()
		return nil, fmt.Errorf("read id of %s: %w", path, err)
	}
	return &Device{path: path, name: name, id: id, h: dev}, nil
}

// Path is the /dev/input node the device was opened from.
func (d *Device) Path() string { return d.path }

// Name is the kernel-reported device name.
func (d *Device) Name() string { return d.name }

// ID carries the bus, vendor and product identifiers.
func (d *Device) ID() evdev.InputID { return d.id }

// Grab takes exclusive ownership of the device: while grabbed, no other
// reader (including the desktop input stack) receives its events.
func (d *Device) Grab() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.grabbed {
		return nil
	}
	if err := d.h.Grab(); err != nil {
		return fmt.Errorf("grab %s: %w", d.path, err)
	}
	d.grabbed = true
	return nil
}

// Release gives up a grab taken with Grab.
func (d *Device) Release() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.grabbed {
		return nil
	}
	if err := d.h.Ungrab(); err != nil {
		return fmt.Errorf("release %s: %w", d.path, err)
	}
	d.grabbed = false
	return nil
}

// FetchEvents blocks until the device reports a complete frame and returns
// it, synchronization event included.
func (d *Device) FetchEvents() ([]evdev.InputEvent, error) {
	var batch []evdev.InputEvent
	for {
		ev, err := d.h.ReadOne()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", d.path, err)
		}
		batch = append(batch, *ev)
		if ev.Type == evdev.EV_SYN {
			return batch, nil
		}
	}
}

// Close releases any grab and closes the node.
func (d *Device) Close() error {
	return errors.Join(d.Release(), d.h.Close())
}

func (d *Device) String() string {
	return fmt.Sprintf("%s (%s, %04x:%04x)", d.name, d.path, d.id.Vendor, d.id.Product)
}
