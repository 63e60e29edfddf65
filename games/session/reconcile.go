package session

import "fmt"

// Patch carries the fields an external authority may overwrite. Nil fields
// are left alone. ClearPrompt and ClearTurn unset the matching pointer.
type Patch struct {
	Players       *[]Player    `json:"players,omitempty"`
	Prompts       *[]Prompt    `json:"prompts,omitempty"`
	CurrentPrompt *Prompt      `json:"current_prompt,omitempty"`
	ClearPrompt   bool         `json:"clear_prompt,omitempty"`
	Responses     *[]Response  `json:"responses,omitempty"`
	Step          *Step        `json:"step,omitempty"`
	CurrentTurn   *Participant `json:"current_turn,omitempty"`
	ClearTurn     bool         `json:"clear_turn,omitempty"`
}

func reconcile(s State, p Patch) (State, error) {
	next := s.Clone()

	if p.Players != nil {
		next.Players = append([]Player{}, *p.Players...)
	}
	if p.Prompts != nil {
		next.Prompts = append([]Prompt{}, *p.Prompts...)
	}
	if p.Responses != nil {
		next.Responses = append([]Response{}, *p.Responses...)
	}
	if p.Step != nil {
		next.Step = *p.Step
	}

	switch {
	case p.ClearPrompt:
		next.CurrentPrompt = nil
	case p.CurrentPrompt != nil:
		prompt := *p.CurrentPrompt
		next.CurrentPrompt = &prompt
	}

	switch {
	case p.ClearTurn:
		next.CurrentTurn = nil
	case p.CurrentTurn != nil:
		turn := *p.CurrentTurn
		next.CurrentTurn = &turn
	}

	if err := validate(next); err != nil {
		return s, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}

	return next, nil
}

// validate checks the invariants a merged state must still satisfy.
func validate(s State) error {
	if !s.Step.Valid() {
		return fmt.Errorf("unknown step %q", s.Step)
	}

	players := make(map[string]Player, len(s.Players))
	for _, p := range s.Players {
		if _, ok := players[p.Participant.ID]; ok {
			return fmt.Errorf("duplicate player %q", p.Participant.ID)
		}
		if p.Score < 0 {
			return fmt.Errorf("negative score for %q", p.Participant.ID)
		}
		players[p.Participant.ID] = p
	}

	authors := make(map[string]bool, len(s.Responses))
	for _, r := range s.Responses {
		if authors[r.Author.ID] {
			return fmt.Errorf("duplicate response from %q", r.Author.ID)
		}
		if _, ok := players[r.Author.ID]; !ok {
			return fmt.Errorf("response from %q who is not a player", r.Author.ID)
		}
		authors[r.Author.ID] = true
	}

	if s.CurrentTurn != nil {
		p, ok := players[s.CurrentTurn.ID]
		if !ok {
			return fmt.Errorf("current turn %q is not a player", s.CurrentTurn.ID)
		}
		if p.HasGuessed {
			return fmt.Errorf("current turn %q has already guessed", s.CurrentTurn.ID)
		}
	}

	return nil
}
