package session

import (
	"cmp"
	"fmt"
	"slices"
)

// RandSource picks an integer uniformly from [0, n). *math/rand/v2.Rand
// satisfies it.
type RandSource interface {
	IntN(n int) int
}

// Engine applies actions to game states. The zero value is not usable; build
// one with NewEngine.
type Engine struct {
	rand RandSource
}

// NewEngine returns an Engine drawing prompts from r.
func NewEngine(r RandSource) *Engine {
	return &Engine{rand: r}
}

// Apply returns the state that results from applying a to s. s is left
// untouched. On error the returned state equals s.
func (e *Engine) Apply(s State, a Action) (State, error) {
	if a == nil {
		return s, nil
	}

	kind := a.Kind()

	if !known(kind) {
		return s, nil
	}

	if !s.Step.Allows(kind) {
		return s, &IllegalStepError{Step: s.Step, Kind: kind}
	}

	switch act := a.(type) {
	case StartGame:
		return startGame(s, act)
	case StartRound:
		return e.startRound(s)
	case AddResponse:
		return addResponse(s, act)
	case RevealResponse:
		return revealResponse(s, act), nil
	case StartGuessing:
		return startGuessing(s)
	case PlayerOut:
		return playerOut(s, act)
	case NextPlayer:
		return nextPlayer(s)
	case ScorePoint:
		return scorePoint(s, act)
	case UpdateStep:
		return updateStep(s, act)
	case Reconcile:
		return reconcile(s, act.Patch)
	}

	// A foreign type reporting a known kind.
	return s, nil
}

func known(kind ActionKind) bool {
	switch kind {
	case KindStartGame, KindStartRound, KindAddResponse, KindRevealResponse,
		KindStartGuessing, KindPlayerOut, KindNextPlayer, KindScorePoint,
		KindUpdateStep, KindReconcile:
		return true
	}

	return false
}

func startGame(s State, a StartGame) (State, error) {
	if len(a.Participants) == 0 {
		return s, ErrNoPlayers
	}

	next := s.Clone()
	next.Players = make([]Player, 0, len(a.Participants))

	for _, p := range a.Participants {
		if next.playerIndex(p.ID) >= 0 {
			continue
		}
		next.Players = append(next.Players, Player{Participant: p})
	}

	next.Prompts = slices.Clone(a.Prompts)
	if next.Prompts == nil {
		next.Prompts = []Prompt{}
	}

	return next, nil
}

func (e *Engine) startRound(s State) (State, error) {
	if len(s.Players) == 0 {
		return s, ErrNoPlayers
	}

	next := s.Clone()
	next.Responses = []Response{}
	next.CurrentTurn = nil

	if len(next.Prompts) == 0 {
		next.CurrentPrompt = nil
		next.Step = GameOver

		return next, nil
	}

	i := e.rand.IntN(len(next.Prompts))
	if i < 0 || i >= len(next.Prompts) {
		return s, &InvalidTransitionError{
			Kind:   KindStartRound,
			Reason: fmt.Sprintf("random index %d outside pool of %d", i, len(next.Prompts)),
		}
	}

	prompt := next.Prompts[i]
	next.CurrentPrompt = &prompt
	next.Prompts = slices.Delete(next.Prompts, i, i+1)
	next.Step = WaitingForResponses

	return next, nil
}

func addResponse(s State, a AddResponse) (State, error) {
	if s.playerIndex(a.Response.Author.ID) < 0 {
		return s, fmt.Errorf("response from %q: %w", a.Response.Author.ID, ErrUnknownParticipant)
	}

	next := s.Clone()
	next.Responses = slices.DeleteFunc(next.Responses, func(r Response) bool {
		return r.Author.ID == a.Response.Author.ID
	})

	r := a.Response
	r.Revealed = false
	next.Responses = append(next.Responses, r)

	return next, nil
}

func revealResponse(s State, a RevealResponse) State {
	i := s.responseIndex(a.Author.ID)
	if i < 0 {
		return s
	}

	next := s.Clone()
	next.Responses[i].Revealed = true

	return next
}

func startGuessing(s State) (State, error) {
	if len(s.Players) == 0 {
		return s, ErrNoPlayers
	}

	next := s.Clone()
	slices.SortStableFunc(next.Players, func(a, b Player) int {
		return cmp.Compare(a.Score, b.Score)
	})

	for i := range next.Players {
		next.Players[i].HasGuessed = false
	}

	first := next.Players[0].Participant
	next.CurrentTurn = &first
	next.Step = WaitingForGuess

	return next, nil
}

func playerOut(s State, a PlayerOut) (State, error) {
	i := s.playerIndex(a.Participant.ID)
	if i < 0 {
		return s, fmt.Errorf("player out %q: %w", a.Participant.ID, ErrUnknownParticipant)
	}

	next := s.Clone()
	next.Players[i].HasGuessed = true

	return next, nil
}

func scorePoint(s State, a ScorePoint) (State, error) {
	i := s.playerIndex(a.Participant.ID)
	if i < 0 {
		return s, fmt.Errorf("score %q: %w", a.Participant.ID, ErrUnknownParticipant)
	}

	next := s.Clone()
	next.Players[i].Score++

	return next, nil
}

func updateStep(s State, a UpdateStep) (State, error) {
	if !a.Step.Valid() {
		return s, fmt.Errorf("%q: %w", a.Step, ErrUnknownStep)
	}

	next := s.Clone()
	next.Step = a.Step

	return next, nil
}
