package session

import (
	"context"
	"fmt"
	"log/slog"

	evdev "github.com/holoplot/go-evdev"

	"github.com/Gnarus-G/mcro/pkg/logging"
	"github.com/Gnarus-G/mcro/pkg/remap"
)

// Source is a physical device already grabbed for this process.
type Source interface {
	Name() string
	ID() evdev.InputID
	// FetchEvents blocks until the device has events and returns them in
	// the order the kernel reported them.
	FetchEvents() ([]evdev.InputEvent, error)
}

// Sink is a virtual device. Emit must make the whole slice visible to
// readers as one batch.
type Sink interface {
	Emit(events []evdev.InputEvent) error
}

// Session forwards events from one source to one sink.
type Session struct {
	name   string
	source Source
	sink   Sink
	rules  remap.Rules
	logger *slog.Logger
}

// New builds a session. name is the configured device name and is used to
// label errors and log records.
func New(name string, source Source, sink Sink, rules remap.Rules, logger *slog.Logger) *Session {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Session{
		name:   name,
		source: source,
		sink:   sink,
		rules:  rules,
		logger: logger.With("device", name),
	}
}

// Normalize reduces a raw event to the vocabulary the rules understand.
// Events that are neither key changes nor synchronization are dropped.
func Normalize(ev evdev.InputEvent) (remap.Event, bool) {
	switch ev.Type {
	case evdev.EV_KEY:
		return remap.KeyEvent(ev.Code, ev.Value), true
	case evdev.EV_SYN:
		return remap.SyncEvent(), true
	default:
		return remap.Event{}, false
	}
}

// Run reads, translates and emits until reading the source or writing the
// sink fails, and returns that error. It never returns nil.
func (s *Session) Run() error {
	id := s.source.ID()
	s.logger.Info("listening to events",
		"name", s.source.Name(),
		"id", fmt.Sprintf("%04x:%04x", id.Vendor, id.Product),
	)

	for {
		batch, err := s.source.FetchEvents()
		if err != nil {
			return fmt.Errorf("%s: fetch events: %w", s.name, err)
		}
		for _, raw := range batch {
			if err := s.forward(raw); err != nil {
				return fmt.Errorf("%s: emit: %w", s.name, err)
			}
		}
	}
}

func (s *Session) forward(raw evdev.InputEvent) error {
	if s.logger.Enabled(context.Background(), logging.LevelTrace) {
		logging.Trace(s.logger, "event",
			"type", evdev.TypeName(raw.Type),
			"code", evdev.CodeName(raw.Type, raw.Code),
			"value", raw.Value,
		)
	}

	ev, ok := Normalize(raw)
	if !ok {
		return nil
	}
	action, ok := s.rules.Transform(ev)
	if !ok {
		return nil
	}

	switch action.Kind {
	case remap.ActionEmitKeys:
		return s.sink.Emit(keyEvents(action.Keys))
	case remap.ActionEmitSync:
		// The sync marker is passed on as read, timestamp included.
		return s.sink.Emit([]evdev.InputEvent{raw})
	default:
		return fmt.Errorf("unknown action kind %d", action.Kind)
	}
}

func keyEvents(keys []remap.KeyState) []evdev.InputEvent {
	out := make([]evdev.InputEvent, len(keys))
	for i, k := range keys {
		out[i] = evdev.InputEvent{Type: evdev.EV_KEY, Code: k.Code, Value: k.Value}
	}
	return out
}
