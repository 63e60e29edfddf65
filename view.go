package main

import (
	"github.com/Seednode/whosaid/games/session"
)

// View is the slice of a game a single client is allowed to see.
type View struct {
	session.State
	PromptsLeft int                   `json:"prompts_left"`
	TurnOrder   []session.Participant `json:"turn_order"`
	Moderator   bool                  `json:"moderator"`
}

// viewFor returns the state as seen by viewerID. The moderator sees
// everything. Players never learn who wrote someone else's response, and
// only see its content once it has been revealed.
func viewFor(s session.State, viewerID string, moderator bool) View {
	v := View{
		State:       s.Clone(),
		PromptsLeft: len(s.Prompts),
		TurnOrder:   s.TurnOrder(),
		Moderator:   moderator,
	}

	if moderator {
		return v
	}

	v.Prompts = []session.Prompt{}

	for i, r := range v.Responses {
		if r.Author.ID == viewerID {
			continue
		}

		v.Responses[i].Author = session.Participant{}
		if !r.Revealed {
			v.Responses[i].Content = ""
		}
	}

	return v
}
