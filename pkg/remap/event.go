package remap

import (
	"fmt"

	evdev "github.com/holoplot/go-evdev"
)

// KeyCode identifies a key or button in the kernel keycode space.
type KeyCode = evdev.EvCode

// EventKind discriminates Event.
type EventKind int

const (
	// EventKey is a key or button state change.
	EventKey EventKind = iota + 1
	// EventSync terminates a group of events reported together.
	EventSync
)

// Event is a raw device event reduced to what the rules look at.
type Event struct {
	Kind  EventKind
	Code  KeyCode
	Value int32
}

// KeyEvent builds a key state change event.
func KeyEvent(code KeyCode, value int32) Event {
	return Event{Kind: EventKey, Code: code, Value: value}
}

// SyncEvent builds a synchronization marker.
func SyncEvent() Event {
	return Event{Kind: EventSync}
}

func (e Event) String() string {
	switch e.Kind {
	case EventKey:
		return fmt.Sprintf("key(%s, %d)", evdev.CodeName(evdev.EV_KEY, e.Code), e.Value)
	case EventSync:
		return "sync"
	default:
		return "invalid"
	}
}

// ActionKind discriminates Action.
type ActionKind int

const (
	// ActionEmitKeys writes Keys to the sink as one batch.
	ActionEmitKeys ActionKind = iota + 1
	// ActionEmitSync forwards the original sync event untouched.
	ActionEmitSync
)

// KeyState is one key set to one value.
type KeyState struct {
	Code  KeyCode
	Value int32
}

// Action is what the sink should receive for one input event.
type Action struct {
	Kind ActionKind
	Keys []KeyState
}

// EmitKeys builds an ActionEmitKeys action.
func EmitKeys(keys ...KeyState) Action {
	return Action{Kind: ActionEmitKeys, Keys: keys}
}

// EmitSync builds an ActionEmitSync action.
func EmitSync() Action {
	return Action{Kind: ActionEmitSync}
}

// Clamp caps a key value at 1 so kernel repeat reports (2 and above) read as
// a plain press. Release (0) and press (1) are returned unchanged.
func Clamp(v int32) int32 {
	if v > 1 {
		return 1
	}
	return v
}
