package assemble

import (
	"errors"
	"fmt"
)

// State is the lifecycle position of one report-generation request.
type State int

const (
	Assembling State = iota
	Paginating
	Finalized
)

// ErrInvalidTransition is returned when a request would move backwards or
// skip a state.
var ErrInvalidTransition = errors.New("invalid state transition")

func (s State) String() string {
	switch s {
	case Assembling:
		return "assembling"
	case Paginating:
		return "paginating"
	case Finalized:
		return "finalized"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type stateMachine struct {
	state State
}

func newStateMachine() *stateMachine {
	return &stateMachine{state: Assembling}
}

// advance moves to next, which must directly follow the current state.
func (m *stateMachine) advance(next State) error {
	if next != m.state+1 || next > Finalized {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.state, next)
	}
	m.state = next
	return nil
}
