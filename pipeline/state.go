package pipeline

import (
	"fmt"
	"sync"

	"github.com/YuminosukeSato/svmgrid/pkg/errors"
)

// State is the lifecycle position of an Orchestrator run.
type State int

const (
	StateUntrained State = iota
	StateLoaded
	StateTraining
	StateTrained
	StateEvaluating
	StateEvaluated
	StateSearched
)

func (s State) String() string {
	switch s {
	case StateUntrained:
		return "untrained"
	case StateLoaded:
		return "loaded"
	case StateTraining:
		return "training"
	case StateTrained:
		return "trained"
	case StateEvaluating:
		return "evaluating"
	case StateEvaluated:
		return "evaluated"
	case StateSearched:
		return "searched"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var transitions = map[State][]State{
	StateUntrained:  {StateLoaded, StateTraining, StateSearched},
	StateLoaded:     {StateEvaluating},
	StateTraining:   {StateTrained},
	StateTrained:    {StateEvaluating},
	StateEvaluating: {StateEvaluated},
}

// stateManager guards the run state and the dimensions of the training
// problem.
type stateManager struct {
	mu        sync.RWMutex
	state     State
	nFeatures int
	nSamples  int
}

func (s *stateManager) get() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// moveTo performs a transition, rejecting any not listed in transitions.
func (s *stateManager) moveTo(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, allowed := range transitions[s.state] {
		if allowed == to {
			s.state = to
			return nil
		}
	}
	return errors.Newf("invalid state transition %s -> %s", s.state, to)
}

func (s *stateManager) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateUntrained
	s.nFeatures = 0
	s.nSamples = 0
}

func (s *stateManager) setDimensions(nFeatures, nSamples int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nFeatures = nFeatures
	s.nSamples = nSamples
}

func (s *stateManager) dimensions() (nFeatures, nSamples int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nFeatures, s.nSamples
}
