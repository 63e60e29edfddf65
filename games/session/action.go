package session

// ActionKind names an action.
type ActionKind string

const (
	KindStartGame      ActionKind = "start_game"
	KindStartRound     ActionKind = "start_round"
	KindAddResponse    ActionKind = "add_response"
	KindRevealResponse ActionKind = "reveal_response"
	KindStartGuessing  ActionKind = "start_guessing"
	KindPlayerOut      ActionKind = "player_out"
	KindNextPlayer     ActionKind = "next_player"
	KindScorePoint     ActionKind = "score_point"
	KindUpdateStep     ActionKind = "update_step"
	KindReconcile      ActionKind = "reconcile"
)

// Action is anything that can be applied to a State. Kinds the engine does
// not know about are accepted and ignored.
type Action interface {
	Kind() ActionKind
}

// StartGame seats the given participants and loads the prompt pool.
type StartGame struct {
	Participants []Participant
	Prompts      []Prompt
}

// StartRound draws the next prompt, or ends the game when none are left.
type StartRound struct{}

// AddResponse records an answer, replacing any earlier answer by the same author.
type AddResponse struct {
	Response Response
}

// RevealResponse shows the answer written by Author.
type RevealResponse struct {
	Author Participant
}

// StartGuessing orders players by score and hands the first turn out.
type StartGuessing struct{}

// PlayerOut marks a player as having finished guessing this round.
type PlayerOut struct {
	Participant Participant
}

// NextPlayer passes the turn to the next player who has not guessed yet.
type NextPlayer struct{}

// ScorePoint awards one point.
type ScorePoint struct {
	Participant Participant
}

// UpdateStep forces the game into a step. Used by the moderator to override
// the normal flow.
type UpdateStep struct {
	Step Step
}

// Reconcile merges state received from an external authority.
type Reconcile struct {
	Patch Patch
}

func (StartGame) Kind() ActionKind      { return KindStartGame }
func (StartRound) Kind() ActionKind     { return KindStartRound }
func (AddResponse) Kind() ActionKind    { return KindAddResponse }
func (RevealResponse) Kind() ActionKind { return KindRevealResponse }
func (StartGuessing) Kind() ActionKind  { return KindStartGuessing }
func (PlayerOut) Kind() ActionKind      { return KindPlayerOut }
func (NextPlayer) Kind() ActionKind     { return KindNextPlayer }
func (ScorePoint) Kind() ActionKind     { return KindScorePoint }
func (UpdateStep) Kind() ActionKind     { return KindUpdateStep }
func (Reconcile) Kind() ActionKind      { return KindReconcile }
