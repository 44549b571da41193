// Package capture models the avatar capture flow as one reducer.
//
// Export signals arrive from several sources at once: the embed message
// stream, the background poller, and the manual URL form. All of them feed
// the same reducer so duplicates collapse no matter which source fired
// first.
package capture

import "strings"

// Phase is the capture progress for one user session.
type Phase string

const (
	// PhaseWaiting means no export has been seen yet.
	PhaseWaiting Phase = "waiting"
	// PhaseCaptured means an export arrived and awaits confirmation.
	PhaseCaptured Phase = "captured"
	// PhaseConfirmed means the user accepted the captured avatar.
	PhaseConfirmed Phase = "confirmed"
)

// Signal sources feeding the reducer.
const (
	SourceEmbed  = "embed"
	SourcePoller = "poller"
	SourceManual = "manual"
)

// State is the reducer's full state for one capture session.
type State struct {
	Phase  Phase
	URL    string
	Source string
}

// NewState returns the initial waiting state.
func NewState() State {
	return State{Phase: PhaseWaiting}
}

// Event is one input to the reducer.
type Event interface {
	isEvent()
}

// Exported signals a model export from any source.
type Exported struct {
	URL    string
	Source string
}

// Confirm signals the user accepted the captured avatar.
type Confirm struct{}

// Reset discards capture progress and returns to waiting.
type Reset struct{}

func (Exported) isEvent() {}
func (Confirm) isEvent()  {}
func (Reset) isEvent()    {}

// Reduce applies one event and reports whether the state changed.
//
// Repeat exports of the URL already held are suppressed, and a confirmed
// session ignores late duplicates of the confirmed URL.
func Reduce(state State, event Event) (State, bool) {
	switch e := event.(type) {
	case Exported:
		url := strings.TrimSpace(e.URL)
		if url == "" {
			return state, false
		}
		if state.URL == url && state.Phase != PhaseWaiting {
			return state, false
		}
		return State{Phase: PhaseCaptured, URL: url, Source: e.Source}, true
	case Confirm:
		if state.Phase != PhaseCaptured {
			return state, false
		}
		state.Phase = PhaseConfirmed
		return state, true
	case Reset:
		if state.Phase == PhaseWaiting && state.URL == "" {
			return state, false
		}
		return NewState(), true
	default:
		return state, false
	}
}
