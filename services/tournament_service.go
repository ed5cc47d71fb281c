package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/Dosada05/pong-platform/models"
	"github.com/Dosada05/pong-platform/repositories"
	"golang.org/x/sync/errgroup"
)

// BracketRound is one round of the bracket view, matches sorted by
// match_number_in_round.
type BracketRound struct {
	Round   int                       `json:"round"`
	Matches []*models.TournamentMatch `json:"matches"`
}

type SubmitResultInput struct {
	WinnerID int    `json:"winner_id"`
	Score    string `json:"score"`
}

type TournamentService interface {
	CreateTournament(ctx context.Context, name string) (*models.Tournament, error)
	GetTournament(ctx context.Context, tournamentID int) (*models.Tournament, error)
	JoinTournament(ctx context.Context, tournamentID, playerID int) (*models.PlayerTournamentEntry, error)
	StartTournament(ctx context.Context, tournamentID int) ([]*models.TournamentMatch, error)
	SubmitResult(ctx context.Context, matchID int, input SubmitResultInput, token string) (*models.TournamentMatch, error)
	GetBracket(ctx context.Context, tournamentID int) ([]*BracketRound, error)
}

type tournamentService struct {
	tx             repositories.TxRunner
	tournamentRepo repositories.TournamentRepository
	entryRepo      repositories.EntryRepository
	matchRepo      repositories.TournamentMatchRepository
	stats          StatsReporter
	logger         *slog.Logger

	// Per-tournament critical sections: the pending-recheck and the
	// round-advance trigger must not interleave across concurrent result
	// submissions for the same tournament.
	locksMu sync.Mutex
	locks   map[int]*sync.Mutex
}

func NewTournamentService(
	tx repositories.TxRunner,
	tournamentRepo repositories.TournamentRepository,
	entryRepo repositories.EntryRepository,
	matchRepo repositories.TournamentMatchRepository,
	stats StatsReporter,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tx:             tx,
		tournamentRepo: tournamentRepo,
		entryRepo:      entryRepo,
		matchRepo:      matchRepo,
		stats:          stats,
		logger:         logger,
		locks:          make(map[int]*sync.Mutex),
	}
}

func (s *tournamentService) tournamentLock(tournamentID int) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock, ok := s.locks[tournamentID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[tournamentID] = lock
	}
	return lock
}

func (s *tournamentService) CreateTournament(ctx context.Context, name string) (*models.Tournament, error) {
	if name == "" {
		return nil, ErrTournamentNameRequired
	}
	tournament := &models.Tournament{
		Name:   name,
		Status: models.TournamentStatusCreated,
	}
	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	return tournament, nil
}

func (s *tournamentService) GetTournament(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return tournament, nil
}

func (s *tournamentService) JoinTournament(ctx context.Context, tournamentID, playerID int) (*models.PlayerTournamentEntry, error) {
	if _, err := s.GetTournament(ctx, tournamentID); err != nil {
		return nil, err
	}

	entry := &models.PlayerTournamentEntry{
		TournamentID: tournamentID,
		PlayerID:     playerID,
	}
	if err := s.entryRepo.Create(ctx, entry); err != nil {
		switch {
		case errors.Is(err, repositories.ErrEntryConflict):
			return nil, ErrRegistrationConflict
		case errors.Is(err, repositories.ErrEntryInvalid):
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to register player %d: %w", playerID, err)
	}
	return entry, nil
}

// StartTournament shuffles the registered players and seeds round 1. Players
// are paired sequentially after the shuffle; with an odd player count the
// last player receives a bye, which auto-completes at seeding time so round
// advancement never waits on it.
func (s *tournamentService) StartTournament(ctx context.Context, tournamentID int) ([]*models.TournamentMatch, error) {
	lock := s.tournamentLock(tournamentID)
	lock.Lock()
	defer lock.Unlock()

	tournament, err := s.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.TournamentStatusCreated {
		return nil, ErrTournamentAlreadyStarted
	}

	entries, err := s.entryRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries for tournament %d: %w", tournamentID, err)
	}
	if len(entries) < 2 {
		return nil, ErrNotEnoughPlayers
	}

	players := make([]int, len(entries))
	for i, entry := range entries {
		players[i] = entry.PlayerID
	}
	// Fisher-Yates, uniform over orderings.
	rand.Shuffle(len(players), func(i, j int) {
		players[i], players[j] = players[j], players[i]
	})

	var created []*models.TournamentMatch
	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		var seedErr error
		created, seedErr = s.seedRound(ctx, exec, tournamentID, 1, players)
		if seedErr != nil {
			return seedErr
		}
		return s.tournamentRepo.UpdateStatusWinner(ctx, exec, tournamentID, models.TournamentStatusActive, nil)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament started",
		slog.Int("tournament_id", tournamentID),
		slog.Int("players", len(players)),
		slog.Int("matches", len(created)))
	return created, nil
}

func (s *tournamentService) seedRound(ctx context.Context, exec repositories.SQLExecutor, tournamentID, round int, players []int) ([]*models.TournamentMatch, error) {
	matches := make([]*models.TournamentMatch, 0, (len(players)+1)/2)
	for i := 0; i < len(players); i += 2 {
		match := &models.TournamentMatch{
			TournamentID: tournamentID,
			Round:        round,
			MatchNumber:  i/2 + 1,
			Player1ID:    players[i],
			State:        models.TournamentMatchPending,
		}
		if i+1 < len(players) {
			p2 := players[i+1]
			match.Player2ID = &p2
		} else {
			winner := players[i]
			match.WinnerID = &winner
			match.State = models.TournamentMatchCompleted
		}
		if err := s.matchRepo.Create(ctx, exec, match); err != nil {
			return nil, fmt.Errorf("failed to create match %d of round %d: %w", match.MatchNumber, round, err)
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// SubmitResult completes the given match. Submission is only accepted for
// the lowest-numbered pending match of its round; completing the last
// pending match of a round seeds the next one within the same transaction.
// Stats reporting runs after the local update and its failure surfaces as
// ErrStatsReportFailed without undoing anything.
func (s *tournamentService) SubmitResult(ctx context.Context, matchID int, input SubmitResultInput, token string) (*models.TournamentMatch, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	lock := s.tournamentLock(match.TournamentID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock; a concurrent submission may have completed it.
	match, err = s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	if match.State == models.TournamentMatchCompleted {
		return nil, ErrMatchAlreadyCompleted
	}

	pendingState := models.TournamentMatchPending
	pending, err := s.matchRepo.ListByRound(ctx, nil, match.TournamentID, match.Round, &pendingState)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending matches: %w", err)
	}
	if len(pending) > 0 && pending[0].ID != match.ID {
		return nil, fmt.Errorf("%w: wait for match #%d", ErrMatchOutOfOrder, pending[0].MatchNumber)
	}

	if !models.ValidScore(input.Score) {
		return nil, ErrScoreFormatInvalid
	}
	if match.IsBye() {
		return nil, ErrByeMatchNotPlayable
	}

	err = s.tx.RunInTx(ctx, func(exec repositories.SQLExecutor) error {
		if txErr := s.matchRepo.UpdateResult(ctx, exec, match.ID, input.WinnerID, input.Score); txErr != nil {
			if errors.Is(txErr, repositories.ErrTournamentMatchNotPending) {
				return ErrMatchAlreadyCompleted
			}
			return txErr
		}
		remaining, txErr := s.matchRepo.ListByRound(ctx, exec, match.TournamentID, match.Round, &pendingState)
		if txErr != nil {
			return txErr
		}
		if len(remaining) == 0 {
			return s.createNextRound(ctx, exec, match.TournamentID, match.Round)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload match %d: %w", matchID, err)
	}

	report := MatchReport{
		Player1ID: match.Player1ID,
		Player2ID: *match.Player2ID,
		WinnerID:  input.WinnerID,
		Score:     input.Score,
		PlayedAt:  time.Now().UTC(),
	}
	if reportErr := s.stats.ReportMatch(ctx, report, token); reportErr != nil {
		s.logger.Error("stats report failed for tournament match",
			slog.Int("match_id", matchID),
			slog.Any("error", reportErr))
		return updated, fmt.Errorf("%w: %v", ErrStatsReportFailed, reportErr)
	}
	return updated, nil
}

// createNextRound pairs the winners of completedRound into completedRound+1.
// A single remaining winner decides the tournament instead. Re-invocation
// for an already-advanced round is a no-op.
func (s *tournamentService) createNextRound(ctx context.Context, exec repositories.SQLExecutor, tournamentID, completedRound int) error {
	completedState := models.TournamentMatchCompleted
	completed, err := s.matchRepo.ListByRound(ctx, exec, tournamentID, completedRound, &completedState)
	if err != nil {
		return fmt.Errorf("failed to list completed matches of round %d: %w", completedRound, err)
	}

	winners := make([]int, 0, len(completed))
	for _, m := range completed {
		if m.WinnerID != nil {
			winners = append(winners, *m.WinnerID)
		}
	}
	if len(winners) == 0 {
		return nil
	}
	if len(winners) == 1 {
		winner := winners[0]
		s.logger.Info("tournament decided",
			slog.Int("tournament_id", tournamentID),
			slog.Int("winner_id", winner))
		return s.tournamentRepo.UpdateStatusWinner(ctx, exec, tournamentID, models.TournamentStatusCompleted, &winner)
	}

	existing, err := s.matchRepo.CountByRound(ctx, exec, tournamentID, completedRound+1)
	if err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	_, err = s.seedRound(ctx, exec, tournamentID, completedRound+1, winners)
	return err
}

// GetBracket returns the tournament's matches grouped by round. Pure read.
func (s *tournamentService) GetBracket(ctx context.Context, tournamentID int) ([]*BracketRound, error) {
	var matches []*models.TournamentMatch

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.GetTournament(gCtx, tournamentID)
		return err
	})
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.ListByTournament(gCtx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to list matches for tournament %d: %w", tournamentID, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rounds := make([]*BracketRound, 0)
	byRound := make(map[int]*BracketRound)
	for _, match := range matches {
		group, ok := byRound[match.Round]
		if !ok {
			group = &BracketRound{Round: match.Round}
			byRound[match.Round] = group
			rounds = append(rounds, group)
		}
		group.Matches = append(group.Matches, match)
	}
	// ListByTournament orders by round then match number, so groups arrive
	// already sorted.
	return rounds, nil
}
