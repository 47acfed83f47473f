// Package uinput creates virtual input devices through /dev/uinput and writes
// event batches to them. Each call to Emit is a single write(2), so the
// kernel sees the whole batch before any other writer's events.
package uinput

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"unsafe"

	evdev "github.com/holoplot/go-evdev"
	"golang.org/x/sys/unix"
)

// DefaultPath is the uinput control node.
const DefaultPath = "/dev/uinput"

// BusUSB is the bus type reported for virtual devices by default.
const BusUSB = 0x03

// Request numbers from linux/uinput.h.
const (
	uiDevCreate  = 0x5501
	uiDevDestroy = 0x5502
	uiDevSetup   = 0x405c5503
	uiSetEvBit   = 0x40045564
	uiSetKeyBit  = 0x40045565

	maxNameSize = 80
)

// ErrClosed is returned by Emit after Close.
var ErrClosed = errors.New("uinput: device closed")

// Options describe the device to create.
type Options struct {
	// Path overrides DefaultPath.
	Path string
	Name string
	ID   evdev.InputID
	// Keys lists the key codes the device advertises. Codes outside this
	// set are silently discarded by the kernel.
	Keys []evdev.EvCode
}

// Device is a virtual keyboard backed by a uinput file descriptor.
type Device struct {
	name string

	mu     sync.Mutex
	w      io.Writer
	close  func() error
	closed bool
}

// struct uinput_setup
type setup struct {
	ID           evdev.InputID
	Name         [maxNameSize]byte
	FFEffectsMax uint32
}

// struct input_event
type rawEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

// AllKeys returns every code in the key space, KEY_RESERVED through KEY_MAX.
func AllKeys() []evdev.EvCode {
	keys := make([]evdev.EvCode, 0, evdev.KEY_MAX+1)
	for code := evdev.EvCode(0); code <= evdev.KEY_MAX; code++ {
		keys = append(keys, code)
	}
	return keys
}

// New creates the virtual device. The device disappears when Close is called
// or the process exits.
func New(opts Options) (*Device, error) {
	if opts.Name == "" {
		return nil, errors.New("uinput: device name must not be empty")
	}
	if len(opts.Name) >= maxNameSize {
		return nil, fmt.Errorf("uinput: device name %q longer than %d bytes", opts.Name, maxNameSize-1)
	}
	path := opts.Path
	if path == "" {
		path = DefaultPath
	}

	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if err := create(fd, opts); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	return &Device{
		name: opts.Name,
		w:    fdWriter(fd),
		close: func() error {
			destroyErr := unix.IoctlSetInt(fd, uiDevDestroy, 0)
			closeErr := unix.Close(fd)
			return errors.Join(destroyErr, closeErr)
		},
	}, nil
}

func create(fd int, opts Options) error {
	for _, evType := range []evdev.EvType{evdev.EV_SYN, evdev.EV_KEY} {
		if err := unix.IoctlSetInt(fd, uiSetEvBit, int(evType)); err != nil {
			return fmt.Errorf("enable event type %s: %w", evdev.TypeName(evType), err)
		}
	}
	for _, code := range opts.Keys {
		if err := unix.IoctlSetInt(fd, uiSetKeyBit, int(code)); err != nil {
			return fmt.Errorf("enable key %s: %w", evdev.CodeName(evdev.EV_KEY, code), err)
		}
	}

	s := setup{ID: opts.ID}
	copy(s.Name[:], opts.Name)
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uiDevSetup, uintptr(unsafe.Pointer(&s))); errno != 0 {
		return fmt.Errorf("setup device %q: %w", opts.Name, errno)
	}
	if err := unix.IoctlSetInt(fd, uiDevCreate, 0); err != nil {
		return fmt.Errorf("create device %q: %w", opts.Name, err)
	}
	return nil
}

// Name reports the name the device was created with.
func (d *Device) Name() string {
	return d.name
}

// Emit writes events as one batch. A batch that does not already end with a
// synchronization event gets a SYN_REPORT appended so that readers see it as
// one frame.
func (d *Device) Emit(events []evdev.InputEvent) error {
	if len(events) == 0 {
		return nil
	}
	buf, err := encode(events)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	n, err := d.w.Write(buf)
	if err != nil {
		return fmt.Errorf("write %d events to %s: %w", len(events), d.name, err)
	}
	if n != len(buf) {
		return fmt.Errorf("write %d events to %s: %w", len(events), d.name, io.ErrShortWrite)
	}
	return nil
}

// Close destroys the virtual device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if d.close == nil {
		return nil
	}
	return d.close()
}

func encode(events []evdev.InputEvent) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow((len(events) + 1) * binary.Size(rawEvent{}))

	for _, ev := range events {
		raw := rawEvent{
			Time:  unix.Timeval{Sec: ev.Time.Sec, Usec: ev.Time.Usec},
			Type:  uint16(ev.Type),
			Code:  uint16(ev.Code),
			Value: ev.Value,
		}
		if err := binary.Write(&buf, binary.NativeEndian, raw); err != nil {
			return nil, fmt.Errorf("encode event: %w", err)
		}
	}
	if events[len(events)-1].Type != evdev.EV_SYN {
		report := rawEvent{Type: uint16(evdev.EV_SYN), Code: uint16(evdev.SYN_REPORT)}
		if err := binary.Write(&buf, binary.NativeEndian, report); err != nil {
			return nil, fmt.Errorf("encode sync: %w", err)
		}
	}
	return buf.Bytes(), nil
}

type fdWriter int

func (fd fdWriter) Write(p []byte) (int, error) {
	return unix.Write(int(fd), p)
}
