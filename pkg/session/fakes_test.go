package session

import (
	"io"
	"sync"

	evdev "github.com/holoplot/go-evdev"
)

type fakeDevice struct {
	name    string
	id      evdev.InputID
	batches chan []evdev.InputEvent
	// err is returned once batches is closed and drained.
	err     error
	grabErr error

	mu       sync.Mutex
	grabbed  bool
	closed   bool
	closedCh chan struct{}
}

func newFakeDevice(name string, batches ...[]evdev.InputEvent) *fakeDevice {
	d := &fakeDevice{
		name:     name,
		id:       evdev.InputID{BusType: 0x03, Vendor: 0x3553, Product: 0xb001},
		batches:  make(chan []evdev.InputEvent, len(batches)+8),
		err:      io.EOF,
		closedCh: make(chan struct{}),
	}
	for _, b := range batches {
		d.batches <- b
	}
	return d
}

// script queues batches and makes the device fail after them.
func script(batches ...[]evdev.InputEvent) *fakeDevice {
	d := newFakeDevice("Controller", batches...)
	close(d.batches)
	return d
}

func (d *fakeDevice) Name() string      { return d.name }
func (d *fakeDevice) ID() evdev.InputID { return d.id }

func (d *fakeDevice) FetchEvents() ([]evdev.InputEvent, error) {
	batch, ok := <-d.batches
	if !ok {
		return nil, d.err
	}
	return batch, nil
}

func (d *fakeDevice) Grab() error {
	if d.grabErr != nil {
		return d.grabErr
	}
	d.mu.Lock()
	d.grabbed = true
	d.mu.Unlock()
	return nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.closedCh)
	}
	return nil
}

func (d *fakeDevice) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

type recordingSink struct {
	err error

	mu      sync.Mutex
	batches [][]evdev.InputEvent
	closed  bool
	emitted chan []evdev.InputEvent
}

func newRecordingSink() *recordingSink {
	return &recordingSink{emitted: make(chan []evdev.InputEvent, 64)}
}

func (s *recordingSink) Emit(events []evdev.InputEvent) error {
	if s.err != nil {
		return s.err
	}
	batch := append([]evdev.InputEvent(nil), events...)
	s.mu.Lock()
	s.batches = append(s.batches, batch)
	s.mu.Unlock()
	select {
	case s.emitted <- batch:
	default:
	}
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) recorded() [][]evdev.InputEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]evdev.InputEvent(nil), s.batches...)
}

func (s *recordingSink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func key(code evdev.EvCode, value int32) evdev.InputEvent {
	return evdev.InputEvent{Type: evdev.EV_KEY, Code: code, Value: value}
}

func report() evdev.InputEvent {
	return evdev.InputEvent{Type: evdev.EV_SYN, Code: evdev.SYN_REPORT}
}

func scan(value int32) evdev.InputEvent {
	return evdev.InputEvent{Type: evdev.EV_MSC, Code: evdev.MSC_SCAN, Value: value}
}
