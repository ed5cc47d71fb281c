package models

import "time"

// TournamentStatus mirrors the ENUM in the database.
type TournamentStatus string

const (
	TournamentStatusCreated   TournamentStatus = "CREATED"
	TournamentStatusActive    TournamentStatus = "ACTIVE"
	TournamentStatusCompleted TournamentStatus = "COMPLETED"
)

type Tournament struct {
	ID        int              `json:"id" db:"id"`
	Name      string           `json:"name" db:"name"`
	Status    TournamentStatus `json:"status" db:"status"`
	WinnerID  *int             `json:"winner_id,omitempty" db:"winner_id"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

// PlayerTournamentEntry registers one player into one tournament.
// The (tournament_id, player_id) pair is unique.
type PlayerTournamentEntry struct {
	ID           int       `json:"id" db:"id"`
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	PlayerID     int       `json:"player_id" db:"player_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
