// Package testbackend is an in-memory PlatformBackend/Decorator pair with
// no OS dependencies, used by dispatcher/engine tests and by domed when no
// real platform integration is wired in.
package testbackend

import (
	"fmt"
	"sync"

	"github.com/dome-wm/dome/internal/dome"
	"github.com/dome-wm/dome/internal/geometry"
	"github.com/dome-wm/dome/internal/rules"
	"github.com/dome-wm/dome/internal/tree"
)

// Backend is a fake PlatformBackend. Every outbound call just records its
// arguments; Emit lets the caller (or a test) push inbound events on its
// behalf.
type Backend struct {
	mu sync.Mutex

	events  chan dome.BackendEvent
	closed  bool
	monitor []dome.MonitorInfo
	meta    map[tree.WindowId]rules.WindowMeta

	Geometry map[tree.WindowId]geometry.Rect
	Visible  map[tree.WindowId]bool
	Raised   []tree.WindowId
	Focused  tree.WindowId
	Chords   map[string]bool

	// FailApplyGeometry, when set, makes ApplyGeometry return this error
	// for every window id in the set, simulating a backend that cannot
	// currently place a given window.
	FailApplyGeometry map[tree.WindowId]error
}

// New returns a Backend that reports monitors as its initial
// EnumerateMonitors snapshot.
func New(monitors []dome.MonitorInfo) *Backend {
	b := &Backend{
		events:   make(chan dome.BackendEvent, 64),
		monitor:  monitors,
		meta:     make(map[tree.WindowId]rules.WindowMeta),
		Geometry: make(map[tree.WindowId]geometry.Rect),
		Visible:  make(map[tree.WindowId]bool),
		Chords:   make(map[string]bool),
	}
	return b
}

// Emit pushes ev onto the backend's event stream as though the platform
// had produced it. Blocks if the channel is full.
func (b *Backend) Emit(ev dome.BackendEvent) {
	b.events <- ev
}

// SetMeta records the metadata QueryMeta should return for id, and is
// also useful for pre-seeding WindowCreated events via Emit.
func (b *Backend) SetMeta(id tree.WindowId, meta rules.WindowMeta) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.meta[id] = meta
}

func (b *Backend) Events() <-chan dome.BackendEvent {
	return b.events
}

func (b *Backend) ApplyGeometry(id tree.WindowId, rect geometry.Rect, visible bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err, fail := b.FailApplyGeometry[id]; fail {
		return err
	}
	b.Geometry[id] = rect
	b.Visible[id] = visible
	return nil
}

func (b *Backend) Raise(id tree.WindowId) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Raised = append(b.Raised, id)
	return nil
}

func (b *Backend) Focus(id tree.WindowId) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Focused = id
	return nil
}

func (b *Backend) RegisterKeyChord(chordString string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Chords[chordString] = true
	return nil
}

func (b *Backend) UnregisterKeyChord(chordString string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.Chords, chordString)
	return nil
}

func (b *Backend) EnumerateMonitors() ([]dome.MonitorInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]dome.MonitorInfo, len(b.monitor))
	copy(out, b.monitor)
	return out, nil
}

func (b *Backend) QueryMeta(id tree.WindowId) (rules.WindowMeta, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	meta, ok := b.meta[id]
	if !ok {
		return rules.WindowMeta{}, fmt.Errorf("testbackend: no metadata recorded for %s", id)
	}
	return meta, nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	close(b.events)
	return nil
}

// Decorator is a fake Decorator that just records the last plan applied
// per workspace key.
type Decorator struct {
	mu     sync.Mutex
	Plans  map[string]dome.DecorationPlan
	closed bool
}

// NewDecorator returns an empty fake Decorator.
func NewDecorator() *Decorator {
	return &Decorator{Plans: make(map[string]dome.DecorationPlan)}
}

func (d *Decorator) Apply(workspaceKey string, plan dome.DecorationPlan) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Plans[workspaceKey] = plan
	return nil
}

func (d *Decorator) Clear(workspaceKey string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.Plans, workspaceKey)
	return nil
}

func (d *Decorator) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}
