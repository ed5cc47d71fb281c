package game

import "time"

// Court geometry and match rules. These values are shared with the browser
// client and must not drift.
const (
	CourtWidth   = 1000.0
	CourtHeight  = 600.0
	PaddleWidth  = 10.0
	PaddleHeight = 90.0
	Border       = 5.0
	BallRadius   = 5.0

	InitialBallSpeed = 7.0
	PaddleStep       = 10.0
	WinScore         = 5

	TickInterval = 16 * time.Millisecond

	invitationTTL  = 5 * time.Minute
	sweepInterval  = 5 * time.Minute
	roomNameLength = 8
)

type Ball struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	DX    float64 `json:"dx"`
	DY    float64 `json:"dy"`
	Speed float64 `json:"speed"`
}

type Paddle struct {
	Y float64 `json:"y"`
}

// State is the full simulation snapshot for one room. It is broadcast to
// both participants on every tick.
type State struct {
	Ball        Ball   `json:"ball"`
	LeftPaddle  Paddle `json:"leftPaddle"`
	RightPaddle Paddle `json:"rightPaddle"`
	Score       [2]int `json:"score"`
	GameStarted bool   `json:"gameStarted"`
	GameEnded   bool   `json:"gameEnded"`
	Winner      string `json:"winner,omitempty"`
	LastUpdate  int64  `json:"lastUpdate"`
	Player1     string `json:"player1"`
	Player2     string `json:"player2"`
}

// PaddleInput is the buffered key state for one player's paddle. Which
// paddle it drives is decided by the player's side in the room, not by key
// names.
type PaddleInput struct {
	Up   bool
	Down bool
}

// roomInputs holds both players' buffered inputs, read once per tick.
type roomInputs struct {
	Left  PaddleInput
	Right PaddleInput
}

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
	InvitationExpired  InvitationStatus = "expired"
)

// Invitation is orchestrator-owned, never persisted.
type Invitation struct {
	ID        string           `json:"id"`
	From      string           `json:"from"`
	To        string           `json:"to"`
	RoomName  string           `json:"roomName"`
	Status    InvitationStatus `json:"status"`
	CreatedAt time.Time        `json:"createdAt"`
}
