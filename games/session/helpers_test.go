package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fixedRand returns the queued indexes in order, then falls back to 0.
type fixedRand struct {
	picks []int
}

func (r *fixedRand) IntN(n int) int {
	if len(r.picks) == 0 {
		return 0
	}

	i := r.picks[0]
	r.picks = r.picks[1:]

	return i % n
}

var (
	alice = Participant{ID: "a", Name: "Alice"}
	bob   = Participant{ID: "b", Name: "Bob"}
	carol = Participant{ID: "c", Name: "Carol"}
)

func mustApply(t *testing.T, e *Engine, s State, actions ...Action) State {
	t.Helper()

	for _, a := range actions {
		var err error
		s, err = e.Apply(s, a)
		require.NoError(t, err, "applying %s", a.Kind())
	}

	return s
}

// guessingGame returns a game with three players in the guessing phase.
func guessingGame(t *testing.T, e *Engine) State {
	t.Helper()

	return mustApply(t, e, New(),
		StartGame{Participants: []Participant{alice, bob, carol}, Prompts: []Prompt{"P1", "P2"}},
		StartRound{},
		AddResponse{Response: Response{Author: alice, Content: "a1"}},
		AddResponse{Response: Response{Author: bob, Content: "b1"}},
		AddResponse{Response: Response{Author: carol, Content: "c1"}},
		StartGuessing{},
	)
}

func ids(ps []Participant) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}
