package verifier

// State is a step of one verification. Terminal states are Done, Invalid,
// SubmitFailed, RetrieveFailed and Errored.
type State string

const (
	StateIdle           State = "idle"
	StateSubmitting     State = "submitting"
	StateWaiting        State = "waiting"
	StateRetrieving     State = "retrieving"
	StateClassified     State = "classified"
	StateDone           State = "done"
	StateInvalid        State = "invalid"
	StateSubmitFailed   State = "submit_failed"
	StateRetrieveFailed State = "retrieve_failed"
	StateErrored        State = "errored"
)

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	switch s {
	case StateDone, StateInvalid, StateSubmitFailed, StateRetrieveFailed, StateErrored:
		return true
	}
	return false
}

// Observer receives state transitions in order. It is called synchronously on
// the verifying goroutine and must not block. A panicking observer turns the
// verification into an error result.
type Observer func(State)

func (o Observer) emit(s State) {
	if o != nil {
		o(s)
	}
}

// emitQuiet emits from a recovery path where a second panic must not escape.
func (o Observer) emitQuiet(s State) {
	defer func() { _ = recover() }()
	o.emit(s)
}

// failed emits s unless err is unexpected; those end in StateErrored.
func (o Observer) failed(err error, s State) {
	if KindOf(err) != KindUnexpected {
		o.emit(s)
	}
}
