package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/pong-platform/models"
)

var ErrCasualMatchNotFound = errors.New("casual match not found")

type CasualMatchRepository interface {
	Create(ctx context.Context, match *models.CasualMatch) error
	GetByID(ctx context.Context, id int) (*models.CasualMatch, error)
	UpdateResult(ctx context.Context, id int, state models.CasualMatchState, winnerID *int, score *string) error
	ListByPlayer(ctx context.Context, playerID int) ([]*models.CasualMatch, error)
}

type postgresCasualMatchRepository struct {
	db *sql.DB
}

func NewPostgresCasualMatchRepository(db *sql.DB) CasualMatchRepository {
	return &postgresCasualMatchRepository{db: db}
}

const casualMatchColumns = `id, player1_id, player2_id, state, winner_id, score, tournament_id, created_at`

func (r *postgresCasualMatchRepository) Create(ctx context.Context, match *models.CasualMatch) error {
	query := `
		INSERT INTO casual_matches (player1_id, player2_id, state, tournament_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		match.Player1ID,
		match.Player2ID,
		match.State,
		match.TournamentID,
	).Scan(&match.ID, &match.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert casual match: %w", err)
	}
	return nil
}

func (r *postgresCasualMatchRepository) GetByID(ctx context.Context, id int) (*models.CasualMatch, error) {
	query := `SELECT ` + casualMatchColumns + ` FROM casual_matches WHERE id = $1`

	match := &models.CasualMatch{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&match.ID,
		&match.Player1ID,
		&match.Player2ID,
		&match.State,
		&match.WinnerID,
		&match.Score,
		&match.TournamentID,
		&match.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCasualMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan casual match by id %d: %w", id, err)
	}
	return match, nil
}

func (r *postgresCasualMatchRepository) UpdateResult(ctx context.Context, id int, state models.CasualMatchState, winnerID *int, score *string) error {
	query := `UPDATE casual_matches SET state = $1, winner_id = $2, score = $3 WHERE id = $4`

	result, err := r.db.ExecContext(ctx, query, state, winnerID, score, id)
	if err != nil {
		return fmt.Errorf("failed to update casual match %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrCasualMatchNotFound)
}

func (r *postgresCasualMatchRepository) ListByPlayer(ctx context.Context, playerID int) ([]*models.CasualMatch, error) {
	query := `SELECT ` + casualMatchColumns + `
		FROM casual_matches
		WHERE player1_id = $1 OR player2_id = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query casual matches for player %d: %w", playerID, err)
	}
	defer rows.Close()

	matches := make([]*models.CasualMatch, 0)
	for rows.Next() {
		var match models.CasualMatch
		if scanErr := rows.Scan(
			&match.ID,
			&match.Player1ID,
			&match.Player2ID,
			&match.State,
			&match.WinnerID,
			&match.Score,
			&match.TournamentID,
			&match.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan casual match row: %w", scanErr)
		}
		matches = append(matches, &match)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during casual match rows iteration: %w", err)
	}
	return matches, nil
}
