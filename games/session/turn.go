package session

// nextPlayer hands the turn to the first player after the current one who
// has not guessed yet, wrapping around the roster. The current player is
// considered last.
func nextPlayer(s State) (State, error) {
	if s.CurrentTurn == nil {
		return s, &InvalidTransitionError{Kind: KindNextPlayer, Reason: "no current turn"}
	}

	i := s.playerIndex(s.CurrentTurn.ID)
	if i < 0 {
		return s, &InvalidTransitionError{
			Kind:   KindNextPlayer,
			Reason: "current turn " + s.CurrentTurn.ID + " is not a player",
		}
	}

	j, ok := nextTurn(s.Players, i)
	if !ok {
		return s, ErrRoundComplete
	}

	next := s.Clone()
	p := next.Players[j].Participant
	next.CurrentTurn = &p

	return next, nil
}

// nextTurn scans players[i+1:], then players[:i], then players[i] and
// returns the index of the first one who has not guessed.
func nextTurn(players []Player, i int) (int, bool) {
	n := len(players)

	for k := 1; k <= n; k++ {
		j := (i + k) % n
		if !players[j].HasGuessed {
			return j, true
		}
	}

	return -1, false
}

// TurnOrder returns the participants in the order NextPlayer would visit
// them starting from the current turn, ignoring who has already guessed.
func (s State) TurnOrder() []Participant {
	if s.CurrentTurn == nil {
		return nil
	}

	i := s.playerIndex(s.CurrentTurn.ID)
	if i < 0 {
		return nil
	}

	n := len(s.Players)
	order := make([]Participant, 0, n)

	for k := 0; k < n; k++ {
		order = append(order, s.Players[(i+k)%n].Participant)
	}

	return order
}
