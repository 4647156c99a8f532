package transcribe

// State is a step of one pipeline run.
//
//	Received -> Probed -> Direct | Chunked -> Assembling -> Done
//
// Any step may move to Failed.
type State int

// Pipeline states.
const (
	StateReceived State = iota
	StateProbed
	StateDirect
	StateChunked
	StateAssembling
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateReceived:   "received",
	StateProbed:     "probed",
	StateDirect:     "direct",
	StateChunked:    "chunked",
	StateAssembling: "assembling",
	StateDone:       "done",
	StateFailed:     "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// StateHook observes state transitions of a run, identified by job ID.
// It is called synchronously from the run's goroutine.
type StateHook func(jobID string, s State)
