package session

// Step is the phase a game is in.
type Step string

const (
	NotStarted          Step = "NOT_STARTED"
	WaitingForResponses Step = "WAITING_FOR_RESPONSES"
	WaitingForGuess     Step = "WAITING_FOR_GUESS"
	GameOver            Step = "GAME_OVER"
)

// legalActions lists the gameplay actions accepted in each step.
// UpdateStep and Reconcile are administrative and accepted everywhere.
var legalActions = map[Step]map[ActionKind]bool{
	NotStarted: {
		KindStartGame:  true,
		KindStartRound: true,
		KindScorePoint: true,
	},
	WaitingForResponses: {
		KindAddResponse:    true,
		KindRevealResponse: true,
		KindStartGuessing:  true,
		KindScorePoint:     true,
		KindStartRound:     true,
	},
	WaitingForGuess: {
		KindRevealResponse: true,
		KindPlayerOut:      true,
		KindNextPlayer:     true,
		KindScorePoint:     true,
		KindStartRound:     true,
	},
	GameOver: {},
}

func (s Step) String() string {
	return string(s)
}

// Valid reports whether s is one of the known steps.
func (s Step) Valid() bool {
	_, ok := legalActions[s]
	return ok
}

// Allows reports whether an action of the given kind may be applied while a
// game is in step s.
func (s Step) Allows(kind ActionKind) bool {
	switch kind {
	case KindUpdateStep, KindReconcile:
		return true
	}

	return legalActions[s][kind]
}
