package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Gnarus-G/mcro/pkg/device"
	"github.com/Gnarus-G/mcro/pkg/logging"
	"github.com/Gnarus-G/mcro/pkg/remap"
)

// Device is a physical device that has been found but not yet grabbed.
type Device interface {
	Source
	Grab() error
	Close() error
}

// Finder locates a device by its kernel-reported name. When nothing matches
// it returns an error wrapping device.ErrNotFound.
type Finder interface {
	Find(name string) (Device, error)
}

// FinderFunc adapts a function literal to the Finder interface.
type FinderFunc func(name string) (Device, error)

// Find calls the underlying function.
func (f FinderFunc) Find(name string) (Device, error) {
	return f(name)
}

// VirtualDevice is a sink the supervisor created and must close.
type VirtualDevice interface {
	Sink
	Close() error
}

// SinkFactory builds the virtual device for one session.
type SinkFactory func() (VirtualDevice, error)

// Options configures a Supervisor.
type Options struct {
	Devices []string
	Rules   remap.Rules
	Finder  Finder
	NewSink SinkFactory
	Logger  *slog.Logger
}

// Result reports how the session for one configured device ended.
type Result struct {
	Device string
	// Skipped is set when no device with this name was present.
	Skipped bool
	Err     error
}

// Supervisor runs one Session per configured device.
type Supervisor struct {
	devices []string
	rules   remap.Rules
	finder  Finder
	newSink SinkFactory
	logger  *slog.Logger
}

// NewSupervisor validates options and constructs a supervisor.
func NewSupervisor(opts Options) (*Supervisor, error) {
	if opts.Finder == nil {
		return nil, errors.New("finder must be provided")
	}
	if opts.NewSink == nil {
		return nil, errors.New("sink factory must be provided")
	}
	if err := opts.Rules.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Supervisor{
		devices: append([]string(nil), opts.Devices...),
		rules:   opts.Rules,
		finder:  opts.Finder,
		newSink: opts.NewSink,
		logger:  logger,
	}, nil
}

type started struct {
	session *Session
	source  Device
	sink    VirtualDevice
}

// Run starts a session for every configured device that is present, waits
// for all of them to end and returns one Result per configured name, in
// configuration order. A failing session never stops its siblings.
func (s *Supervisor) Run() []Result {
	results := make([]Result, len(s.devices))

	var wg sync.WaitGroup
	running := 0
	for i, name := range s.devices {
		results[i].Device = name

		st, err := s.start(name)
		if errors.Is(err, device.ErrNotFound) {
			s.logger.Warn("unknown device by name", "device", name)
			results[i].Skipped = true
			continue
		}
		if err != nil {
			s.logger.Error("session failed to start", "device", name, "error", err)
			results[i].Err = err
			continue
		}

		running++
		wg.Add(1)
		go func(res *Result, st started) {
			defer wg.Done()
			res.Err = st.session.Run()
			s.logger.Error("session ended", "device", res.Device, "error", res.Err)
			s.teardown(res.Device, st)
		}(&results[i], st)
	}

	s.logger.Debug("started a session for each present device", "sessions", running, "configured", len(s.devices))
	wg.Wait()
	return results
}

func (s *Supervisor) start(name string) (started, error) {
	s.logger.Info("looking for device", "device", name)
	dev, err := s.finder.Find(name)
	if err != nil {
		return started{}, err
	}

	if err := dev.Grab(); err != nil {
		closeQuietly(dev)
		return started{}, fmt.Errorf("%s: %w", name, err)
	}
	s.logger.Debug("grabbed device", "device", name)

	sink, err := s.newSink()
	if err != nil {
		closeQuietly(dev)
		return started{}, fmt.Errorf("%s: build virtual device: %w", name, err)
	}

	return started{
		session: New(name, dev, sink, s.rules, s.logger),
		source:  dev,
		sink:    sink,
	}, nil
}

func (s *Supervisor) teardown(name string, st started) {
	if err := errors.Join(st.sink.Close(), st.source.Close()); err != nil {
		s.logger.Debug("closing devices", "device", name, "error", err)
	}
}

func closeQuietly(dev Device) {
	_ = dev.Close()
}
