/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package session holds the state machine for a single game of whosaid.
//
// Each player answers a shared prompt, the moderator reveals the answers, and
// players then take turns guessing who wrote what. Every change to a game
// goes through Engine.Apply, which never mutates the State it is given and
// performs no I/O.
package session

import "slices"

// Participant identifies a person taking part in a session.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Player is a participant together with their standing in the current game.
type Player struct {
	Participant Participant `json:"participant"`
	Score       int         `json:"score"`
	HasGuessed  bool        `json:"has_guessed"`
}

// Response is one participant's answer to the current prompt.
type Response struct {
	Author   Participant `json:"author"`
	Content  string      `json:"content"`
	Revealed bool        `json:"revealed"`
}

type Prompt string

// State is a snapshot of one game in progress.
type State struct {
	Players       []Player     `json:"players"`
	Prompts       []Prompt     `json:"prompts"`
	CurrentPrompt *Prompt      `json:"current_prompt"`
	Responses     []Response   `json:"responses"`
	Step          Step         `json:"step"`
	CurrentTurn   *Participant `json:"current_turn,omitempty"`
}

// New returns the state of a game nobody has started yet.
func New() State {
	return State{
		Players:   []Player{},
		Prompts:   []Prompt{},
		Responses: []Response{},
		Step:      NotStarted,
	}
}

// Clone returns a copy of s that shares no memory with it.
func (s State) Clone() State {
	c := s
	c.Players = slices.Clone(s.Players)
	c.Prompts = slices.Clone(s.Prompts)
	c.Responses = slices.Clone(s.Responses)

	if s.CurrentPrompt != nil {
		p := *s.CurrentPrompt
		c.CurrentPrompt = &p
	}

	if s.CurrentTurn != nil {
		t := *s.CurrentTurn
		c.CurrentTurn = &t
	}

	return c
}

// Player returns the player with the given participant id.
func (s State) Player(id string) (Player, bool) {
	i := s.playerIndex(id)
	if i < 0 {
		return Player{}, false
	}

	return s.Players[i], true
}

// Done reports whether every player has finished guessing this round.
func (s State) Done() bool {
	for _, p := range s.Players {
		if !p.HasGuessed {
			return false
		}
	}

	return len(s.Players) > 0
}

func (s State) playerIndex(id string) int {
	return slices.IndexFunc(s.Players, func(p Player) bool {
		return p.Participant.ID == id
	})
}

func (s State) responseIndex(authorID string) int {
	return slices.IndexFunc(s.Responses, func(r Response) bool {
		return r.Author.ID == authorID
	})
}
