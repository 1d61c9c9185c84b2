package dialog

// EventKind is the kind of a streaming transition
type EventKind int

const (
	EventStart EventKind = iota
	EventDelta
	EventDone
	EventAbort
	EventError
)

// Phase is where an in-flight assistant message is in its lifecycle
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseStreaming
	PhaseDone
	PhaseAborted
	PhaseFailed
)

// StreamEvent drives Reduce. Text is the delta for EventDelta, the final
// resolved text for EventDone, and the failure message for EventError.
type StreamEvent struct {
	Kind      EventKind
	MessageID string
	Text      string
}

// InFlight is the assistant message being produced by one submit.
type InFlight struct {
	MessageID string
	Content   string
	Phase     Phase
}

// Reduce applies one event. Deltas only apply while streaming; an abort keeps
// whatever content was already shown.
func Reduce(s InFlight, ev StreamEvent) InFlight {
	switch ev.Kind {
	case EventStart:
		return InFlight{MessageID: ev.MessageID, Phase: PhaseStreaming}
	case EventDelta:
		if s.Phase != PhaseStreaming {
			return s
		}
		s.Content += ev.Text
	case EventDone:
		if s.Phase != PhaseStreaming {
			return s
		}
		s.Content = ev.Text
		s.Phase = PhaseDone
	case EventAbort:
		if s.Phase != PhaseStreaming {
			return s
		}
		s.Phase = PhaseAborted
	case EventError:
		if s.Phase != PhaseStreaming {
			return s
		}
		s.Content = "Error: " + ev.Text
		s.Phase = PhaseFailed
	}
	return s
}
