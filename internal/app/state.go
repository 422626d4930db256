package app

// State is the single "what is happening right now" value owned by the
// orchestrator. It is written exclusively on the home loop; every other
// goroutine that wants to know it asks via a marshaled snapshot.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateTranscribing
	StateSending
	StateSent
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateTranscribing:
		return "transcribing"
	case StateSending:
		return "sending"
	case StateSent:
		return "sent"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
