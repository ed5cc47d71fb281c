package models

import "time"

type TournamentMatchState string

const (
	TournamentMatchPending   TournamentMatchState = "PENDING"
	TournamentMatchCompleted TournamentMatchState = "COMPLETED"
)

// TournamentMatch is one slot in a single-elimination bracket.
// Player2ID is nil for a bye; bye matches are created already COMPLETED
// with the present player as winner.
type TournamentMatch struct {
	ID           int                  `json:"id" db:"id"`
	TournamentID int                  `json:"tournament_id" db:"tournament_id"`
	Round        int                  `json:"round_number" db:"round_number"`
	MatchNumber  int                  `json:"match_number_in_round" db:"match_number_in_round"`
	Player1ID    int                  `json:"player1_id" db:"player1_id"`
	Player2ID    *int                 `json:"player2_id,omitempty" db:"player2_id"`
	WinnerID     *int                 `json:"winner_id,omitempty" db:"winner_id"`
	Score        *string              `json:"score,omitempty" db:"score"`
	State        TournamentMatchState `json:"state" db:"state"`
	CreatedAt    time.Time            `json:"created_at" db:"created_at"`
}

// IsBye reports whether the match has no second player.
func (m *TournamentMatch) IsBye() bool {
	return m.Player2ID == nil
}

type CasualMatchState string

const (
	CasualMatchPending    CasualMatchState = "PENDING"
	CasualMatchInProgress CasualMatchState = "IN_PROGRESS"
	CasualMatchCompleted  CasualMatchState = "COMPLETED"
	CasualMatchCancelled  CasualMatchState = "CANCELLED"
)

// CasualMatch is a non-bracket 1v1 match, optionally back-referencing the
// tournament it was played for.
type CasualMatch struct {
	ID           int              `json:"id" db:"id"`
	Player1ID    int              `json:"player1_id" db:"player1_id"`
	Player2ID    int              `json:"player2_id" db:"player2_id"`
	State        CasualMatchState `json:"state" db:"state"`
	WinnerID     *int             `json:"winner_id,omitempty" db:"winner_id"`
	Score        *string          `json:"score,omitempty" db:"score"`
	TournamentID *int             `json:"tournament_id,omitempty" db:"tournament_id"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
}
