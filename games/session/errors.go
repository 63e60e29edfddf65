package session

import (
	"errors"
	"fmt"
)

var (
	ErrIllegalStep        = errors.New("action not allowed in this step")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrRoundComplete      = errors.New("every player has guessed this round")
	ErrNoPlayers          = errors.New("game has no players")
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrUnknownStep        = errors.New("unknown step")
	ErrInvalidPatch       = errors.New("invalid patch")
)

// IllegalStepError is returned when an action arrives in a step that does
// not accept it.
type IllegalStepError struct {
	Step Step
	Kind ActionKind
}

func (e *IllegalStepError) Error() string {
	return fmt.Sprintf("%s not allowed during %s", e.Kind, e.Step)
}

func (e *IllegalStepError) Unwrap() error {
	return ErrIllegalStep
}

// InvalidTransitionError is returned when an action cannot be applied to the
// shape of the current state, regardless of step.
type InvalidTransitionError struct {
	Kind   ActionKind
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}
