package main

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/Seednode/whosaid/games/session"
)

// Messages coming from clients
type ClientMessage struct {
	Type          string `json:"type"`                     // see handleCommand
	Name          string `json:"name,omitempty"`           // join
	Content       string `json:"content,omitempty"`        // respond
	TargetID      string `json:"target_id,omitempty"`      // kick / reveal / score / player_out / guess
	ResponseIndex *int   `json:"response_index,omitempty"` // guess
	Step          string `json:"step,omitempty"`           // update_step
}

// SessionInfoMessage is sent immediately on connect so the client knows
// what role this cookie has.
type SessionInfoMessage struct {
	Type        string `json:"type"` // "session_info"
	GameID      string `json:"game_id"`
	PlayerID    string `json:"player_id"`
	IsModerator bool   `json:"is_moderator"`
	IsExisting  bool   `json:"is_existing"`
	Name        string `json:"name,omitempty"`
}

// LobbyMessage lists who has joined so far.
type LobbyMessage struct {
	Type    string                `json:"type"` // "lobby"
	Players []session.Participant `json:"players"`
	Open    bool                  `json:"open"`
}

// StateMessage carries the game as the receiving client may see it.
type StateMessage struct {
	Type  string `json:"type"` // "state"
	State View   `json:"state"`
}

// Sent to a single client when their name is already taken.
type CollisionMessage struct {
	Type    string `json:"type"` // "collision"
	Field   string `json:"field"`
	Message string `json:"message"`
}

// SimpleMessage is for generic notifications ("kicked", "error", etc.)
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// GuessResultMessage informs everyone about a guess outcome.
type GuessResultMessage struct {
	Type    string `json:"type"` // "guess_result"
	Correct bool   `json:"correct"`
	Guesser string `json:"guesser"`
	Target  string `json:"target"`
	Message string `json:"message"`
}

type command struct {
	client *Client
	msg    ClientMessage
}

// Hub owns one game. All changes go through run, which applies them in
// arrival order.
type Hub struct {
	id      string
	cfg     *Config
	clock   quartz.Clock
	log     *log.Logger
	engine  *session.Engine
	prompts []session.Prompt

	clients     map[*Client]bool
	lobby       []session.Participant
	moderatorID string

	// authors already named correctly this round
	identified map[string]bool

	register chan *Client
	unreg    chan *Client
	commands chan command
	removals chan string
	done     chan struct{}
	stop     sync.Once

	// guards the fields read from outside run
	mu         sync.RWMutex
	state      session.State
	lastActive time.Time
}

func newHub(cfg *Config, gameID string, clock quartz.Clock, prompts []session.Prompt, r session.RandSource) *Hub {
	return &Hub{
		id:         gameID,
		cfg:        cfg,
		clock:      clock,
		log:        logger.With("game", gameID),
		engine:     session.NewEngine(r),
		prompts:    prompts,
		clients:    make(map[*Client]bool),
		identified: make(map[string]bool),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		commands:   make(chan command),
		removals:   make(chan string),
		done:       make(chan struct{}),
		state:      session.New(),
		lastActive: clock.Now(),
	}
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.handleRegister(c)

		case c := <-h.unreg:
			h.handleUnregister(c)

		case cmd := <-h.commands:
			h.handleCommand(cmd)

		case playerID := <-h.removals:
			h.handleRemoval(playerID)

		case <-h.done:
			h.disconnectAll()
			return
		}
	}
}

// close stops the hub and disconnects every client. Safe to call more than once.
func (h *Hub) close() {
	h.stop.Do(func() {
		close(h.done)
	})
}

func (h *Hub) idleSince() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.lastActive
}

// snapshot returns the game as a player with the given id would see it.
func (h *Hub) snapshot(viewerID string) View {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return viewFor(h.state, viewerID, viewerID != "" && viewerID == h.moderatorID)
}

func (h *Hub) touchLocked() {
	h.lastActive = h.clock.Now()
}

func (h *Hub) startedLocked() bool {
	return len(h.state.Players) > 0
}

func (h *Hub) handleRegister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.touchLocked()

	// First connection becomes moderator
	if h.moderatorID == "" {
		h.moderatorID = c.playerID
		h.log.Debug("moderator connected", "player", c.playerID)
	}

	h.clients[c] = true

	name, existing := "", false
	if i := h.lobbyIndexLocked(c.playerID); i >= 0 {
		name, existing = h.lobby[i].Name, true
	}

	h.sendLocked(c, SessionInfoMessage{
		Type:        "session_info",
		GameID:      h.id,
		PlayerID:    c.playerID,
		IsModerator: c.playerID == h.moderatorID,
		IsExisting:  existing,
		Name:        name,
	})
	h.sendLocked(c, h.lobbyMessageLocked())
	h.sendLocked(c, h.stateMessageLocked(c))
}

func (h *Hub) handleUnregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.touchLocked()
	h.dropLocked(c)

	playerID := c.playerID

	// Moderator leaving does not erase anything, and once the game has
	// started the roster is fixed.
	if playerID == "" || playerID == h.moderatorID || h.startedLocked() {
		return
	}

	h.clock.AfterFunc(h.cfg.playerTimeout, func() {
		select {
		case h.removals <- playerID:
		case <-h.done:
		}
	}, "removal")
}

// handleRemoval drops a lobby entry whose owner never came back.
func (h *Hub) handleRemoval(playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if c.playerID == playerID {
			return
		}
	}

	if h.startedLocked() || !h.removeFromLobbyLocked(playerID) {
		return
	}

	h.log.Debug("removed idle player", "player", playerID)

	h.touchLocked()
	h.broadcastLocked(h.lobbyMessageLocked())
}

func (h *Hub) handleCommand(cmd command) {
	c, msg := cmd.client, cmd.msg

	h.mu.Lock()
	defer h.mu.Unlock()

	h.touchLocked()

	switch msg.Type {
	case "join":
		h.joinLocked(c, msg)

	case "respond":
		h.respondLocked(c, msg)

	case "guess":
		h.guessLocked(c, msg)

	case "kick", "start_game", "reveal", "start_guessing", "score",
		"player_out", "next_player", "new_round", "update_step":
		if c.playerID != h.moderatorID {
			h.sendErrorLocked(c, errNotModerator)
			return
		}
		h.moderateLocked(c, msg)

	default:
		// ignore unknown types
	}
}

func (h *Hub) joinLocked(c *Client, msg ClientMessage) {
	name := strings.TrimSpace(msg.Name)
	if name == "" || c.playerID == "" {
		return
	}

	if c.playerID == h.moderatorID {
		h.sendErrorLocked(c, errModeratorJoin)
		return
	}

	existing := h.lobbyIndexLocked(c.playerID)

	if h.startedLocked() {
		if existing < 0 {
			h.sendLocked(c, SimpleMessage{Type: "lobby_closed", Message: errGameStarted.Error()})
		}
		return
	}

	for _, p := range h.lobby {
		if p.ID != c.playerID && strings.EqualFold(p.Name, name) {
			h.sendLocked(c, CollisionMessage{
				Type:    "collision",
				Field:   "name",
				Message: "That name is already taken. Please choose a different name.",
			})
			return
		}
	}

	if existing >= 0 {
		h.lobby[existing].Name = name
	} else {
		h.lobby = append(h.lobby, session.Participant{ID: c.playerID, Name: name})
		logf(h.cfg, "GAMES: Player %q joined %s", name, h.id)
	}

	h.broadcastLocked(h.lobbyMessageLocked())
}

func (h *Hub) moderateLocked(c *Client, msg ClientMessage) {
	var err error

	switch msg.Type {
	case "kick":
		err = h.kickLocked(msg.TargetID)

	case "start_game":
		err = h.startGameLocked()

	case "reveal":
		err = h.applyLocked(session.RevealResponse{Author: h.participantLocked(msg.TargetID)})

	case "start_guessing":
		err = h.applyLocked(session.StartGuessing{})

	case "score":
		err = h.applyLocked(session.ScorePoint{Participant: h.participantLocked(msg.TargetID)})

	case "player_out":
		err = h.applyLocked(session.PlayerOut{Participant: h.participantLocked(msg.TargetID)})

	case "next_player":
		err = h.advanceLocked()

	case "new_round":
		err = h.applyLocked(session.StartRound{})

	case "update_step":
		err = h.applyLocked(session.UpdateStep{Step: session.Step(msg.Step)})
	}

	if err != nil {
		h.sendErrorLocked(c, err)
		return
	}

	h.broadcastStateLocked()
}

func (h *Hub) kickLocked(targetID string) error {
	if h.startedLocked() {
		return errGameStarted
	}

	if !h.removeFromLobbyLocked(targetID) {
		return fmt.Errorf("kick %q: %w", targetID, session.ErrUnknownParticipant)
	}

	for c := range h.clients {
		if c.playerID == targetID {
			h.sendLocked(c, SimpleMessage{
				Type:    "kicked",
				Message: "You have been removed by the moderator.",
			})
			h.dropLocked(c)
		}
	}

	h.broadcastLocked(h.lobbyMessageLocked())

	return nil
}

func (h *Hub) startGameLocked() error {
	if h.startedLocked() {
		return errGameStarted
	}

	if len(h.lobby) < h.cfg.minPlayers {
		return fmt.Errorf("%w: need %d, have %d", errNotEnoughPlayers, h.cfg.minPlayers, len(h.lobby))
	}

	err := h.applyLocked(session.StartGame{
		Participants: slices.Clone(h.lobby),
		Prompts:      h.prompts,
	})
	if err != nil {
		return err
	}

	logf(h.cfg, "GAMES: Started %s with %d players", h.id, len(h.lobby))

	h.broadcastLocked(h.lobbyMessageLocked())

	return h.applyLocked(session.StartRound{})
}

func (h *Hub) respondLocked(c *Client, msg ClientMessage) {
	p, ok := h.state.Player(c.playerID)
	if !ok {
		h.sendErrorLocked(c, errNotPlaying)
		return
	}

	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return
	}

	err := h.applyLocked(session.AddResponse{Response: session.Response{
		Author:  p.Participant,
		Content: content,
	}})
	if err != nil {
		h.sendErrorLocked(c, err)
		return
	}

	h.broadcastStateLocked()
}

// guessLocked judges a guess by the player holding the turn. Only revealed
// responses that nobody has identified yet can be guessed. A correct guess
// scores a point. Either way the guesser is done for the round and the turn
// moves on.
func (h *Hub) guessLocked(c *Client, msg ClientMessage) {
	guesser, ok := h.state.Player(c.playerID)
	if !ok {
		h.sendErrorLocked(c, errNotPlaying)
		return
	}

	turn := h.state.CurrentTurn
	if h.state.Step != session.WaitingForGuess || turn == nil || turn.ID != c.playerID {
		h.sendLocked(c, SimpleMessage{Type: "not_your_turn", Message: errNotYourTurn.Error()})
		return
	}

	if msg.ResponseIndex == nil || *msg.ResponseIndex < 0 || *msg.ResponseIndex >= len(h.state.Responses) {
		h.sendErrorLocked(c, errBadGuess)
		return
	}

	response := h.state.Responses[*msg.ResponseIndex]
	if !response.Revealed {
		h.sendErrorLocked(c, errNotRevealed)
		return
	}

	if h.identified[response.Author.ID] {
		h.sendErrorLocked(c, errAlreadyIdentified)
		return
	}

	target := h.participantLocked(msg.TargetID)
	correct := response.Author.ID == target.ID && target.ID != c.playerID

	actions := []session.Action{session.PlayerOut{Participant: guesser.Participant}}
	if correct {
		actions = append([]session.Action{session.ScorePoint{Participant: guesser.Participant}}, actions...)
	}

	for _, a := range actions {
		if err := h.applyLocked(a); err != nil {
			h.sendErrorLocked(c, err)
			return
		}
	}

	var text string
	if correct {
		h.identified[response.Author.ID] = true
		text = guesser.Participant.Name + " correctly guessed that \"" + response.Content + "\" was written by " + target.Name + "."
	} else {
		text = guesser.Participant.Name + " incorrectly guessed that \"" + response.Content + "\" was written by " + target.Name + "."
	}
	h.log.Debug("guess", "guesser", guesser.Participant.ID, "target", target.ID, "correct", correct)

	h.broadcastLocked(GuessResultMessage{
		Type:    "guess_result",
		Correct: correct,
		Guesser: guesser.Participant.Name,
		Target:  target.Name,
		Message: text,
	})

	if err := h.advanceLocked(); err != nil {
		h.sendErrorLocked(c, err)
	}

	h.broadcastStateLocked()
}

// advanceLocked passes the turn on, starting the next round once everyone
// has guessed.
func (h *Hub) advanceLocked() error {
	if h.state.Step == session.WaitingForGuess && h.state.Done() {
		h.log.Debug("round complete")
		return h.applyLocked(session.StartRound{})
	}

	return h.applyLocked(session.NextPlayer{})
}

func (h *Hub) applyLocked(a session.Action) error {
	next, err := h.engine.Apply(h.state, a)
	if err != nil {
		return err
	}

	if next.Step != h.state.Step {
		h.log.Debug("step changed", "from", h.state.Step, "to", next.Step, "action", a.Kind())
		if next.Step == session.GameOver {
			logf(h.cfg, "GAMES: %s is over", h.id)
		}
	}

	h.state = next

	if a.Kind() == session.KindStartRound {
		clear(h.identified)
	}

	return nil
}

// participantLocked resolves an id against the roster, falling back to the
// lobby. Unknown ids are passed through so the engine can reject them.
func (h *Hub) participantLocked(id string) session.Participant {
	if p, ok := h.state.Player(id); ok {
		return p.Participant
	}

	if i := h.lobbyIndexLocked(id); i >= 0 {
		return h.lobby[i]
	}

	return session.Participant{ID: id}
}

func (h *Hub) lobbyIndexLocked(id string) int {
	return slices.IndexFunc(h.lobby, func(p session.Participant) bool {
		return p.ID == id
	})
}

func (h *Hub) removeFromLobbyLocked(id string) bool {
	n := len(h.lobby)
	h.lobby = slices.DeleteFunc(h.lobby, func(p session.Participant) bool {
		return p.ID == id
	})

	return len(h.lobby) != n
}

func (h *Hub) lobbyMessageLocked() LobbyMessage {
	players := slices.Clone(h.lobby)
	if players == nil {
		players = []session.Participant{}
	}

	return LobbyMessage{
		Type:    "lobby",
		Players: players,
		Open:    !h.startedLocked(),
	}
}

func (h *Hub) stateMessageLocked(c *Client) StateMessage {
	return StateMessage{
		Type:  "state",
		State: viewFor(h.state, c.playerID, c.playerID == h.moderatorID),
	}
}

func (h *Hub) broadcastStateLocked() {
	for c := range h.clients {
		h.sendLocked(c, h.stateMessageLocked(c))
	}
}

func (h *Hub) broadcastLocked(msg any) {
	for c := range h.clients {
		h.sendLocked(c, msg)
	}
}

func (h *Hub) sendErrorLocked(c *Client, err error) {
	h.log.Debug("rejected command", "player", c.playerID, "err", err)

	h.sendLocked(c, SimpleMessage{Type: "error", Message: err.Error()})
}

// sendLocked never blocks. A client that cannot keep up is dropped.
func (h *Hub) sendLocked(c *Client, msg any) {
	if !h.clients[c] {
		return
	}

	select {
	case c.send <- msg:
	default:
		h.dropLocked(c)
	}
}

func (h *Hub) dropLocked(c *Client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) disconnectAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		h.dropLocked(c)
	}
}
