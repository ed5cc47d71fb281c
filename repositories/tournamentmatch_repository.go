package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Dosada05/pong-platform/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentMatchNotFound   = errors.New("tournament match not found")
	ErrTournamentMatchSlotTaken  = errors.New("a match already exists for this round and slot")
	ErrTournamentMatchNotPending = errors.New("tournament match is not pending")
)

type TournamentMatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.TournamentMatch) error
	GetByID(ctx context.Context, id int) (*models.TournamentMatch, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.TournamentMatch, error)
	ListByRound(ctx context.Context, exec SQLExecutor, tournamentID, round int, state *models.TournamentMatchState) ([]*models.TournamentMatch, error)
	UpdateResult(ctx context.Context, exec SQLExecutor, id int, winnerID int, score string) error
	CountByRound(ctx context.Context, exec SQLExecutor, tournamentID, round int) (int, error)
}

type postgresTournamentMatchRepository struct {
	db *sql.DB
}

func NewPostgresTournamentMatchRepository(db *sql.DB) TournamentMatchRepository {
	return &postgresTournamentMatchRepository{db: db}
}

const tournamentMatchColumns = `id, tournament_id, round_number, match_number_in_round,
	player1_id, player2_id, winner_id, score, state, created_at`

func (r *postgresTournamentMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.TournamentMatch) error {
	if exec == nil {
		exec = r.db
	}
	query := `
		INSERT INTO tournament_matches
			(tournament_id, round_number, match_number_in_round, player1_id, player2_id, winner_id, score, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		match.TournamentID,
		match.Round,
		match.MatchNumber,
		match.Player1ID,
		match.Player2ID,
		match.WinnerID,
		match.Score,
		match.State,
	).Scan(&match.ID, &match.CreatedAt)

	return r.handleMatchError(err)
}

func (r *postgresTournamentMatchRepository) GetByID(ctx context.Context, id int) (*models.TournamentMatch, error) {
	query := `SELECT ` + tournamentMatchColumns + ` FROM tournament_matches WHERE id = $1`

	match := &models.TournamentMatch{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&match.ID,
		&match.TournamentID,
		&match.Round,
		&match.MatchNumber,
		&match.Player1ID,
		&match.Player2ID,
		&match.WinnerID,
		&match.Score,
		&match.State,
		&match.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament match by id %d: %w", id, err)
	}
	return match, nil
}

func (r *postgresTournamentMatchRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.TournamentMatch, error) {
	query := `SELECT ` + tournamentMatchColumns + `
		FROM tournament_matches
		WHERE tournament_id = $1
		ORDER BY round_number ASC, match_number_in_round ASC`

	return r.queryMatches(ctx, r.db, query, tournamentID)
}

func (r *postgresTournamentMatchRepository) ListByRound(ctx context.Context, exec SQLExecutor, tournamentID, round int, state *models.TournamentMatchState) ([]*models.TournamentMatch, error) {
	if exec == nil {
		exec = r.db
	}

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + tournamentMatchColumns + `
		FROM tournament_matches
		WHERE tournament_id = $1 AND round_number = $2`)

	args := []interface{}{tournamentID, round}
	if state != nil {
		queryBuilder.WriteString(" AND state = $")
		queryBuilder.WriteString(strconv.Itoa(len(args) + 1))
		args = append(args, *state)
	}
	queryBuilder.WriteString(" ORDER BY match_number_in_round ASC")

	return r.queryMatches(ctx, exec, queryBuilder.String(), args...)
}

// UpdateResult completes a PENDING match. The state guard in the WHERE
// clause means an already-completed match reports zero affected rows, so a
// match can never be re-opened or double-submitted.
func (r *postgresTournamentMatchRepository) UpdateResult(ctx context.Context, exec SQLExecutor, id int, winnerID int, score string) error {
	if exec == nil {
		exec = r.db
	}
	query := `
		UPDATE tournament_matches
		SET winner_id = $1, score = $2, state = $3
		WHERE id = $4 AND state = $5`

	result, err := exec.ExecContext(ctx, query, winnerID, score, models.TournamentMatchCompleted, id, models.TournamentMatchPending)
	if err != nil {
		return r.handleMatchError(err)
	}
	return checkAffectedRows(result, ErrTournamentMatchNotPending)
}

func (r *postgresTournamentMatchRepository) CountByRound(ctx context.Context, exec SQLExecutor, tournamentID, round int) (int, error) {
	if exec == nil {
		exec = r.db
	}
	query := `SELECT COUNT(*) FROM tournament_matches WHERE tournament_id = $1 AND round_number = $2`

	var count int
	if err := exec.QueryRowContext(ctx, query, tournamentID, round).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count matches for tournament %d round %d: %w", tournamentID, round, err)
	}
	return count, nil
}

func (r *postgresTournamentMatchRepository) queryMatches(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.TournamentMatch, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournament matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.TournamentMatch, 0)
	for rows.Next() {
		var match models.TournamentMatch
		if scanErr := rows.Scan(
			&match.ID,
			&match.TournamentID,
			&match.Round,
			&match.MatchNumber,
			&match.Player1ID,
			&match.Player2ID,
			&match.WinnerID,
			&match.Score,
			&match.State,
			&match.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament match row: %w", scanErr)
		}
		matches = append(matches, &match)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresTournamentMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "tournament_matches_tournament_id_round_slot_key":
			return ErrTournamentMatchSlotTaken
		case "tournament_matches_tournament_id_fkey":
			return ErrTournamentNotFound
		}
	}
	return err
}
