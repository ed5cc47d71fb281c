package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/pong-platform/models"
	"github.com/lib/pq"
)

var (
	ErrEntryNotFound = errors.New("tournament entry not found")
	ErrEntryConflict = errors.New("player is already registered for this tournament")
	ErrEntryInvalid  = errors.New("tournament entry references a missing tournament")
)

type EntryRepository interface {
	Create(ctx context.Context, entry *models.PlayerTournamentEntry) error
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.PlayerTournamentEntry, error)
	Delete(ctx context.Context, tournamentID, playerID int) error
}

type postgresEntryRepository struct {
	db *sql.DB
}

func NewPostgresEntryRepository(db *sql.DB) EntryRepository {
	return &postgresEntryRepository{db: db}
}

func (r *postgresEntryRepository) Create(ctx context.Context, entry *models.PlayerTournamentEntry) error {
	query := `
		INSERT INTO player_tournaments (tournament_id, player_id)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		entry.TournamentID,
		entry.PlayerID,
	).Scan(&entry.ID, &entry.CreatedAt)

	return r.handleEntryError(err)
}

func (r *postgresEntryRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.PlayerTournamentEntry, error) {
	query := `
		SELECT id, tournament_id, player_id, created_at
		FROM player_tournaments
		WHERE tournament_id = $1
		ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	entries := make([]*models.PlayerTournamentEntry, 0)
	for rows.Next() {
		var entry models.PlayerTournamentEntry
		if scanErr := rows.Scan(&entry.ID, &entry.TournamentID, &entry.PlayerID, &entry.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", scanErr)
		}
		entries = append(entries, &entry)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during entry rows iteration: %w", err)
	}
	return entries, nil
}

func (r *postgresEntryRepository) Delete(ctx context.Context, tournamentID, playerID int) error {
	query := `DELETE FROM player_tournaments WHERE tournament_id = $1 AND player_id = $2`

	result, err := r.db.ExecContext(ctx, query, tournamentID, playerID)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return checkAffectedRows(result, ErrEntryNotFound)
}

func (r *postgresEntryRepository) handleEntryError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "player_tournaments_tournament_id_player_id_key":
			return ErrEntryConflict
		case "player_tournaments_tournament_id_fkey":
			return ErrEntryInvalid
		}
	}
	return err
}
