package remap

import (
	"errors"
	"fmt"
	"slices"

	evdev "github.com/holoplot/go-evdev"
)

// Rules binds key codes to the fixed rule table:
//
//  1. a key in ChordTriggers presses or releases every key in ChordKeys,
//     with the value clamped;
//  2. RemapTrigger is replaced by RemapOutput, value untouched;
//  3. sync events are forwarded as they came.
//
// Everything else is dropped.
type Rules struct {
	ChordTriggers []KeyCode
	ChordKeys     []KeyCode
	RemapTrigger  KeyCode
	RemapOutput   KeyCode
}

// DefaultRules returns the built-in bindings: A on a keyboard or the west
// face button on a controller becomes LeftShift+LeftAlt+RightCtrl, and B
// becomes Space.
func DefaultRules() Rules {
	return Rules{
		ChordTriggers: []KeyCode{evdev.KEY_A, evdev.BTN_WEST},
		ChordKeys:     []KeyCode{evdev.KEY_LEFTSHIFT, evdev.KEY_LEFTALT, evdev.KEY_RIGHTCTRL},
		RemapTrigger:  evdev.KEY_B,
		RemapOutput:   evdev.KEY_SPACE,
	}
}

// Validate rejects bindings the transform cannot honour.
func (r Rules) Validate() error {
	if len(r.ChordTriggers) == 0 {
		return errors.New("rules: at least one chord trigger is required")
	}
	if len(r.ChordKeys) == 0 {
		return errors.New("rules: at least one chord key is required")
	}
	codes := append(append([]KeyCode{r.RemapTrigger, r.RemapOutput}, r.ChordTriggers...), r.ChordKeys...)
	for _, code := range codes {
		if code > evdev.KEY_MAX {
			return fmt.Errorf("rules: key code %d outside the keycode space", code)
		}
	}
	if slices.Contains(r.ChordTriggers, r.RemapTrigger) {
		return fmt.Errorf("rules: %s is bound as both chord and remap trigger", evdev.CodeName(evdev.EV_KEY, r.RemapTrigger))
	}
	return nil
}

// Transform maps one event to at most one action. The rules are checked in
// order and the first match wins.
func (r Rules) Transform(ev Event) (Action, bool) {
	switch {
	case ev.Kind == EventKey && slices.Contains(r.ChordTriggers, ev.Code):
		v := Clamp(ev.Value)
		keys := make([]KeyState, len(r.ChordKeys))
		for i, code := range r.ChordKeys {
			keys[i] = KeyState{Code: code, Value: v}
		}
		return EmitKeys(keys...), true
	case ev.Kind == EventKey && ev.Code == r.RemapTrigger:
		// Repeat values pass through here so the output key auto-repeats.
		return EmitKeys(KeyState{Code: r.RemapOutput, Value: ev.Value}), true
	case ev.Kind == EventSync:
		return EmitSync(), true
	default:
		return Action{}, false
	}
}
