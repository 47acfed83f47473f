package device

import (
	"fmt"
	"sort"

	evdev "github.com/holoplot/go-evdev"
)

// Info describes an enumerated input device.
type Info struct {
	Path string
	Name string
}

// Finder enumerates /dev/input event nodes.
type Finder struct {
	list func() ([]evdev.InputPath, error)
	open func(path string) (*Device, error)
}

// NewFinder returns a Finder over the host's evdev nodes.
func NewFinder() *Finder {
	return &Finder{list: evdev.ListDevicePaths, open: Open}
}

// List reports every device the process can enumerate, ordered by path.
func (f *Finder) List() ([]Info, error) {
	paths, err := f.list()
	if err != nil {
		return nil, fmt.Errorf("list input devices: %w", err)
	}
	out := make([]Info, 0, len(paths))
	for _, p := range paths {
		out = append(out, Info{Path: p.Path, Name: p.Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Find opens the first device, in path order, whose name equals name. It
// returns ErrNotFound when there is none.
func (f *Finder) Find(name string) (*Device, error) {
	infos, err := f.List()
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if info.Name != name {
			continue
		}
		return f.open(info.Path)
	}
	return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
}
