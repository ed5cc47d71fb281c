package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/pong-platform/models"
	"github.com/Dosada05/pong-platform/repositories"
)

type CreateChallengeInput struct {
	Player1ID    int  `json:"player1_id"`
	Player2ID    int  `json:"player2_id"`
	TournamentID *int `json:"tournament_id,omitempty"`
}

type CasualMatchService interface {
	CreateChallenge(ctx context.Context, input CreateChallengeInput) (*models.CasualMatch, error)
	SubmitResult(ctx context.Context, matchID int, input SubmitResultInput) (*models.CasualMatch, error)
	ListByPlayer(ctx context.Context, playerID int) ([]*models.CasualMatch, error)
}

type casualMatchService struct {
	matchRepo repositories.CasualMatchRepository
}

func NewCasualMatchService(matchRepo repositories.CasualMatchRepository) CasualMatchService {
	return &casualMatchService{matchRepo: matchRepo}
}

func (s *casualMatchService) CreateChallenge(ctx context.Context, input CreateChallengeInput) (*models.CasualMatch, error) {
	if input.Player1ID == 0 || input.Player2ID == 0 {
		return nil, ErrPlayerRequired
	}

	match := &models.CasualMatch{
		Player1ID:    input.Player1ID,
		Player2ID:    input.Player2ID,
		State:        models.CasualMatchPending,
		TournamentID: input.TournamentID,
	}
	if err := s.matchRepo.Create(ctx, match); err != nil {
		return nil, fmt.Errorf("failed to create casual match: %w", err)
	}
	return match, nil
}

func (s *casualMatchService) SubmitResult(ctx context.Context, matchID int, input SubmitResultInput) (*models.CasualMatch, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrCasualMatchNotFound) {
			return nil, ErrCasualMatchNotFound
		}
		return nil, err
	}
	if match.State == models.CasualMatchCompleted || match.State == models.CasualMatchCancelled {
		return nil, ErrMatchAlreadyCompleted
	}
	if !models.ValidScore(input.Score) {
		return nil, ErrScoreFormatInvalid
	}

	winnerID := input.WinnerID
	score := input.Score
	if err := s.matchRepo.UpdateResult(ctx, matchID, models.CasualMatchCompleted, &winnerID, &score); err != nil {
		return nil, fmt.Errorf("failed to update casual match %d: %w", matchID, err)
	}

	updated, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload casual match %d: %w", matchID, err)
	}
	return updated, nil
}

func (s *casualMatchService) ListByPlayer(ctx context.Context, playerID int) ([]*models.CasualMatch, error) {
	matches, err := s.matchRepo.ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list casual matches for player %d: %w", playerID, err)
	}
	if matches == nil {
		return []*models.CasualMatch{}, nil
	}
	return matches, nil
}
