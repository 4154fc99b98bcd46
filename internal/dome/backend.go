package dome

import (
	"github.com/dome-wm/dome/internal/geometry"
	"github.com/dome-wm/dome/internal/rules"
	"github.com/dome-wm/dome/internal/tree"
)

// MonitorInfo is one entry of a MonitorsChanged event or an
// EnumerateMonitors reply: a physical display's stable id and current
// work area.
type MonitorInfo struct {
	ID       string
	WorkArea geometry.Rect
}

// BackendEvent is the tagged union of everything a PlatformBackend can
// push at the dispatcher. Every traversal over it is an exhaustive type
// switch; there is no shared base type beyond the empty interface.
type BackendEvent interface{}

// WindowCreated reports a newly discovered window and its metadata for
// rule matching. The dispatcher either admits it into the World or, if a
// rule marks it ignored, records the id and drops the event.
type WindowCreated struct {
	ID   tree.WindowId
	Meta rules.WindowMeta
}

// WindowDestroyed reports that id's underlying OS window is gone. The
// World removes it from whichever workspace holds it, tiled or floating.
type WindowDestroyed struct {
	ID tree.WindowId
}

// WindowFocused reports that the platform gave id input focus outside of
// a command the dispatcher itself issued (e.g. the user alt-tabbed, or
// clicked a window directly).
type WindowFocused struct {
	ID tree.WindowId
}

// WindowMoved reports that id's on-screen rect changed outside of a
// geometry write the dispatcher issued — typically a user-initiated drag
// of a floating window. Tiled windows normally only move via
// ApplyGeometry, but a backend may still report WindowMoved for them;
// the dispatcher treats that as informational and does not fight it.
type WindowMoved struct {
	ID   tree.WindowId
	Rect geometry.Rect
}

// MonitorsChanged reports the full current monitor set after the
// platform added or removed a display. The dispatcher diffs it against
// World.Monitors and runs monitor creation/removal migration as needed.
type MonitorsChanged struct {
	Monitors []MonitorInfo
}

// KeyChord reports that a registered chord fired. ChordString matches the
// Raw field of the config.Chord that was registered for it.
type KeyChord struct {
	ChordString string
}

// PlatformBackend is the abstract seam to the OS: window discovery,
// geometry application, keyboard hooks, and monitor enumeration. Every
// platform (macOS, Windows, a test double) implements this one interface;
// the dispatcher never imports a platform package directly.
//
// Outbound calls must be non-blocking-bounded: the dispatcher is a
// single-threaded loop and a slow ApplyGeometry stalls every other
// source. Implementations that must cross into a slower OS API should
// queue the write and return immediately.
type PlatformBackend interface {
	// Events returns the channel the backend delivers BackendEvents on.
	// Closed when the backend can no longer produce events.
	Events() <-chan BackendEvent

	// ApplyGeometry moves/resizes/shows/hides id. visible=false typically
	// means "keep the window's last rect but stop compositing it",
	// matching how Tabbed inactive children are reported by Compute.
	ApplyGeometry(id tree.WindowId, rect geometry.Rect, visible bool) error
	// Raise brings id to the top of the platform's window stack.
	Raise(id tree.WindowId) error
	// Focus gives id input focus.
	Focus(id tree.WindowId) error
	// RegisterKeyChord asks the platform to deliver a KeyChord event for
	// this chord string going forward.
	RegisterKeyChord(chordString string) error
	// UnregisterKeyChord undoes a prior RegisterKeyChord.
	UnregisterKeyChord(chordString string) error
	// EnumerateMonitors returns the current monitor set, for the initial
	// snapshot the dispatcher takes before its first reconcile.
	EnumerateMonitors() ([]MonitorInfo, error)
	// QueryMeta re-reads id's metadata, used when a WindowCreated event
	// arrives with incomplete fields and a rule match needs more.
	QueryMeta(id tree.WindowId) (rules.WindowMeta, error)

	// Close releases any OS resources (hooks, sockets) the backend holds.
	Close() error
}
