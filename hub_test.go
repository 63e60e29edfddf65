package main

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/whosaid/games/session"
)

func testConfig() *Config {
	return &Config{
		minPlayers:     2,
		playerTimeout:  time.Minute,
		sessionTimeout: 10 * time.Minute,
		port:           8080,
	}
}

func startHub(t *testing.T, cfg *Config, clock quartz.Clock, prompts ...session.Prompt) *Hub {
	t.Helper()

	h := newHub(cfg, "game1", clock, prompts, rand.New(rand.NewPCG(1, 2)))
	go h.run()
	t.Cleanup(h.close)

	return h
}

// connect registers a client without a socket behind it.
func connect(t *testing.T, h *Hub, playerID string) *Client {
	t.Helper()

	c := &Client{send: make(chan any, 64), playerID: playerID}
	h.register <- c

	return c
}

func say(h *Hub, c *Client, msg ClientMessage) {
	h.commands <- command{client: c, msg: msg}
}

// expect reads messages sent to c until one of type T arrives.
func expect[T any](t *testing.T, c *Client) T {
	t.Helper()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg, ok := <-c.send:
			require.True(t, ok, "client was disconnected")
			if m, ok := msg.(T); ok {
				return m
			}
		case <-timeout:
			var zero T
			require.FailNow(t, "timed out waiting for message", "%T", zero)
			return zero
		}
	}
}

// expectState reads state messages until one satisfies ok.
func expectState(t *testing.T, c *Client, ok func(View) bool) View {
	t.Helper()

	for {
		m := expect[StateMessage](t, c)
		if ok(m.State) {
			return m.State
		}
	}
}

func stepIs(step session.Step) func(View) bool {
	return func(v View) bool { return v.Step == step }
}

// lobbyWith reads lobby messages until one lists n players.
func lobbyWith(t *testing.T, c *Client, n int) LobbyMessage {
	t.Helper()

	for {
		m := expect[LobbyMessage](t, c)
		if len(m.Players) == n {
			return m
		}
	}
}

func intPtr(i int) *int { return &i }

func TestHubRoles(t *testing.T) {
	h := startHub(t, testConfig(), quartz.NewReal(), "P1")

	mod := connect(t, h, "mod")
	info := expect[SessionInfoMessage](t, mod)
	assert.True(t, info.IsModerator)
	assert.Equal(t, "game1", info.GameID)

	ann := connect(t, h, "ann")
	info = expect[SessionInfoMessage](t, ann)
	assert.False(t, info.IsModerator)
	assert.False(t, info.IsExisting)

	say(h, ann, ClientMessage{Type: "start_game"})
	assert.Equal(t, errNotModerator.Error(), expect[SimpleMessage](t, ann).Message)

	say(h, mod, ClientMessage{Type: "join", Name: "Mod"})
	assert.Equal(t, errModeratorJoin.Error(), expect[SimpleMessage](t, mod).Message)
}

func TestHubLobby(t *testing.T) {
	h := startHub(t, testConfig(), quartz.NewReal(), "P1")

	mod := connect(t, h, "mod")
	ann := connect(t, h, "ann")
	bob := connect(t, h, "bob")

	say(h, ann, ClientMessage{Type: "join", Name: "Ann"})
	lobby := lobbyWith(t, mod, 1)
	assert.Equal(t, []session.Participant{{ID: "ann", Name: "Ann"}}, lobby.Players)
	assert.True(t, lobby.Open)

	t.Run("names are unique", func(t *testing.T) {
		say(h, bob, ClientMessage{Type: "join", Name: "ann"})
		collision := expect[CollisionMessage](t, bob)
		assert.Equal(t, "name", collision.Field)
	})

	t.Run("rejoining keeps the seat", func(t *testing.T) {
		say(h, ann, ClientMessage{Type: "join", Name: "Annie"})
		lobby := lobbyWith(t, mod, 1)
		assert.Equal(t, "Annie", lobby.Players[0].Name)

		again := connect(t, h, "ann")
		info := expect[SessionInfoMessage](t, again)
		assert.True(t, info.IsExisting)
		assert.Equal(t, "Annie", info.Name)
	})

	t.Run("needs enough players", func(t *testing.T) {
		say(h, mod, ClientMessage{Type: "start_game"})
		assert.Contains(t, expect[SimpleMessage](t, mod).Message, errNotEnoughPlayers.Error())
	})

	t.Run("moderator can kick", func(t *testing.T) {
		say(h, bob, ClientMessage{Type: "join", Name: "Bob"})
		lobbyWith(t, mod, 2)

		say(h, mod, ClientMessage{Type: "kick", TargetID: "bob"})
		kicked := expect[SimpleMessage](t, bob)
		assert.Equal(t, "kicked", kicked.Type)

		lobby := lobbyWith(t, mod, 1)
		assert.Equal(t, "ann", lobby.Players[0].ID)
	})
}

func TestHubRemovesIdlePlayers(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mock := quartz.NewMock(t)
	cfg := testConfig()
	h := startHub(t, cfg, mock, "P1")

	mod := connect(t, h, "mod")
	ann := connect(t, h, "ann")
	bob := connect(t, h, "bob")
	say(h, ann, ClientMessage{Type: "join", Name: "Ann"})
	say(h, bob, ClientMessage{Type: "join", Name: "Bob"})
	lobbyWith(t, mod, 2)

	h.unreg <- ann
	h.unreg <- bob

	// bob comes back before the timeout
	connect(t, h, "bob")

	mock.Advance(cfg.playerTimeout).MustWait(ctx)

	lobby := lobbyWith(t, mod, 1)
	assert.Equal(t, "bob", lobby.Players[0].ID)
}

func TestHubPlaysARound(t *testing.T) {
	h := startHub(t, testConfig(), quartz.NewReal(), "What is your favourite colour?")

	mod := connect(t, h, "mod")
	ann := connect(t, h, "ann")
	bob := connect(t, h, "bob")

	say(h, ann, ClientMessage{Type: "join", Name: "Ann"})
	say(h, bob, ClientMessage{Type: "join", Name: "Bob"})
	lobbyWith(t, mod, 2)

	say(h, mod, ClientMessage{Type: "start_game"})
	v := expectState(t, mod, stepIs(session.WaitingForResponses))
	require.NotNil(t, v.CurrentPrompt)
	assert.Equal(t, session.Prompt("What is your favourite colour?"), *v.CurrentPrompt)
	assert.Len(t, v.Players, 2)

	say(h, ann, ClientMessage{Type: "join", Name: "Late"})
	say(h, ann, ClientMessage{Type: "respond", Content: "blue"})
	say(h, bob, ClientMessage{Type: "respond", Content: "green"})

	v = expectState(t, ann, func(v View) bool { return len(v.Responses) == 2 })
	assert.Equal(t, "ann", v.Responses[0].Author.ID, "own response keeps its author")
	assert.Equal(t, "blue", v.Responses[0].Content)
	assert.Empty(t, v.Responses[1].Author.ID)
	assert.Empty(t, v.Responses[1].Content, "unrevealed content is hidden")

	say(h, mod, ClientMessage{Type: "reveal", TargetID: "bob"})
	v = expectState(t, ann, func(v View) bool { return len(v.Responses) == 2 && v.Responses[1].Revealed })
	assert.Equal(t, "green", v.Responses[1].Content)
	assert.Empty(t, v.Responses[1].Author.ID, "authors stay hidden after reveal")

	say(h, mod, ClientMessage{Type: "start_guessing"})
	v = expectState(t, mod, stepIs(session.WaitingForGuess))
	require.NotNil(t, v.CurrentTurn)
	assert.Equal(t, "ann", v.CurrentTurn.ID)

	say(h, bob, ClientMessage{Type: "guess", ResponseIndex: intPtr(0), TargetID: "ann"})
	assert.Equal(t, "not_your_turn", expect[SimpleMessage](t, bob).Type)

	say(h, ann, ClientMessage{Type: "guess", ResponseIndex: intPtr(7), TargetID: "bob"})
	assert.Equal(t, errBadGuess.Error(), expect[SimpleMessage](t, ann).Message)

	say(h, ann, ClientMessage{Type: "guess", ResponseIndex: intPtr(0), TargetID: "ann"})
	assert.Equal(t, errNotRevealed.Error(), expect[SimpleMessage](t, ann).Message)

	say(h, ann, ClientMessage{Type: "guess", ResponseIndex: intPtr(1), TargetID: "bob"})
	result := expect[GuessResultMessage](t, mod)
	assert.True(t, result.Correct)
	assert.Equal(t, "Ann", result.Guesser)
	assert.Equal(t, "Bob", result.Target)
	assert.Contains(t, result.Message, "green")

	v = expectState(t, mod, func(v View) bool { return v.CurrentTurn != nil && v.CurrentTurn.ID == "bob" })
	p, ok := v.Player("ann")
	require.True(t, ok)
	assert.Equal(t, 1, p.Score)
	assert.True(t, p.HasGuessed)
	assert.Equal(t, []session.Participant{{ID: "bob", Name: "Bob"}, {ID: "ann", Name: "Ann"}}, v.TurnOrder)

	say(h, mod, ClientMessage{Type: "reveal", TargetID: "ann"})
	say(h, bob, ClientMessage{Type: "guess", ResponseIndex: intPtr(0), TargetID: "bob"})
	result = expect[GuessResultMessage](t, mod)
	assert.False(t, result.Correct, "guessing yourself never scores")
	assert.Contains(t, result.Message, "blue")

	// Everyone has guessed and the pool is empty, so the game ends.
	v = expectState(t, mod, stepIs(session.GameOver))
	assert.Nil(t, v.CurrentPrompt)
	p, _ = v.Player("bob")
	assert.Zero(t, p.Score)

	say(h, mod, ClientMessage{Type: "new_round"})
	assert.Contains(t, expect[SimpleMessage](t, mod).Message, "not allowed")
}

func TestHubIdentifiedResponsesCannotBeGuessedAgain(t *testing.T) {
	h := startHub(t, testConfig(), quartz.NewReal(), "P1", "P2")

	mod := connect(t, h, "mod")
	ann := connect(t, h, "ann")
	bob := connect(t, h, "bob")
	cat := connect(t, h, "cat")
	say(h, ann, ClientMessage{Type: "join", Name: "Ann"})
	say(h, bob, ClientMessage{Type: "join", Name: "Bob"})
	say(h, cat, ClientMessage{Type: "join", Name: "Cat"})
	lobbyWith(t, mod, 3)

	say(h, mod, ClientMessage{Type: "start_game"})
	say(h, ann, ClientMessage{Type: "respond", Content: "red"})
	say(h, bob, ClientMessage{Type: "respond", Content: "green"})
	say(h, cat, ClientMessage{Type: "respond", Content: "blue"})
	for _, id := range []string{"ann", "bob", "cat"} {
		say(h, mod, ClientMessage{Type: "reveal", TargetID: id})
	}
	say(h, mod, ClientMessage{Type: "start_guessing"})
	v := expectState(t, mod, stepIs(session.WaitingForGuess))
	require.NotNil(t, v.CurrentTurn)
	require.Equal(t, "ann", v.CurrentTurn.ID)

	say(h, ann, ClientMessage{Type: "guess", ResponseIndex: intPtr(1), TargetID: "bob"})
	assert.True(t, expect[GuessResultMessage](t, mod).Correct)

	say(h, bob, ClientMessage{Type: "guess", ResponseIndex: intPtr(1), TargetID: "bob"})
	assert.Equal(t, errAlreadyIdentified.Error(), expect[SimpleMessage](t, bob).Message)

	say(h, bob, ClientMessage{Type: "guess", ResponseIndex: intPtr(0), TargetID: "cat"})
	assert.False(t, expect[GuessResultMessage](t, mod).Correct)

	t.Run("repeating a correct guess does not score", func(t *testing.T) {
		say(h, cat, ClientMessage{Type: "guess", ResponseIndex: intPtr(1), TargetID: "bob"})
		assert.Equal(t, errAlreadyIdentified.Error(), expect[SimpleMessage](t, cat).Message)

		snap := h.snapshot("mod")
		p, ok := snap.Player("cat")
		require.True(t, ok)
		assert.Zero(t, p.Score)
		assert.False(t, p.HasGuessed, "a rejected guess keeps the turn")
		require.NotNil(t, snap.CurrentTurn)
		assert.Equal(t, "cat", snap.CurrentTurn.ID)
	})

	say(h, cat, ClientMessage{Type: "guess", ResponseIndex: intPtr(0), TargetID: "ann"})
	assert.True(t, expect[GuessResultMessage](t, mod).Correct)

	v = expectState(t, mod, func(v View) bool {
		return v.Step == session.WaitingForResponses && v.PromptsLeft == 0
	})
	assert.Empty(t, v.Responses)

	t.Run("a new round forgets identified authors", func(t *testing.T) {
		say(h, ann, ClientMessage{Type: "respond", Content: "orange"})
		say(h, bob, ClientMessage{Type: "respond", Content: "purple"})
		say(h, cat, ClientMessage{Type: "respond", Content: "yellow"})
		say(h, mod, ClientMessage{Type: "reveal", TargetID: "ann"})
		say(h, mod, ClientMessage{Type: "start_guessing"})

		v := expectState(t, mod, stepIs(session.WaitingForGuess))
		require.NotNil(t, v.CurrentTurn)
		require.Equal(t, "bob", v.CurrentTurn.ID, "lowest score goes first")

		say(h, bob, ClientMessage{Type: "guess", ResponseIndex: intPtr(0), TargetID: "ann"})
		assert.True(t, expect[GuessResultMessage](t, mod).Correct)
	})
}

func TestHubModeratorOverrides(t *testing.T) {
	h := startHub(t, testConfig(), quartz.NewReal(), "P1", "P2")

	mod := connect(t, h, "mod")
	ann := connect(t, h, "ann")
	bob := connect(t, h, "bob")
	say(h, ann, ClientMessage{Type: "join", Name: "Ann"})
	say(h, bob, ClientMessage{Type: "join", Name: "Bob"})
	lobbyWith(t, mod, 2)

	say(h, mod, ClientMessage{Type: "start_game"})
	v := expectState(t, mod, stepIs(session.WaitingForResponses))
	assert.Equal(t, 1, v.PromptsLeft)

	say(h, mod, ClientMessage{Type: "score", TargetID: "bob"})
	v = expectState(t, mod, func(v View) bool {
		p, _ := v.Player("bob")
		return p.Score == 1
	})

	say(h, mod, ClientMessage{Type: "score", TargetID: "nobody"})
	assert.Contains(t, expect[SimpleMessage](t, mod).Message, session.ErrUnknownParticipant.Error())

	say(h, mod, ClientMessage{Type: "update_step", Step: "INTERMISSION"})
	assert.Contains(t, expect[SimpleMessage](t, mod).Message, session.ErrUnknownStep.Error())

	say(h, mod, ClientMessage{Type: "start_guessing"})
	v = expectState(t, mod, stepIs(session.WaitingForGuess))
	assert.Equal(t, "ann", v.CurrentTurn.ID, "lowest score goes first")

	say(h, mod, ClientMessage{Type: "player_out", TargetID: "ann"})
	say(h, mod, ClientMessage{Type: "next_player"})
	v = expectState(t, mod, func(v View) bool { return v.CurrentTurn != nil && v.CurrentTurn.ID == "bob" })

	say(h, mod, ClientMessage{Type: "player_out", TargetID: "bob"})
	say(h, mod, ClientMessage{Type: "next_player"})
	v = expectState(t, mod, stepIs(session.WaitingForResponses))
	assert.Equal(t, 0, v.PromptsLeft)
	assert.Empty(t, v.Responses)

	say(h, mod, ClientMessage{Type: "update_step", Step: string(session.GameOver)})
	expectState(t, mod, stepIs(session.GameOver))
}

func TestHubSnapshot(t *testing.T) {
	h := startHub(t, testConfig(), quartz.NewReal(), "P1")

	mod := connect(t, h, "mod")
	expect[SessionInfoMessage](t, mod)

	assert.True(t, h.snapshot("mod").Moderator)
	assert.False(t, h.snapshot("someone").Moderator)
	assert.False(t, h.snapshot("").Moderator)
	assert.Equal(t, session.NotStarted, h.snapshot("").Step)
}

func TestHubClose(t *testing.T) {
	h := startHub(t, testConfig(), quartz.NewReal(), "P1")

	mod := connect(t, h, "mod")
	expect[SessionInfoMessage](t, mod)

	h.close()
	h.close()

	assert.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-mod.send:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, 2*time.Second, 10*time.Millisecond)
}
