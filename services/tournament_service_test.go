package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"

	"github.com/Dosada05/pong-platform/models"
	"github.com/Dosada05/pong-platform/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTxRunner struct{}

func (fakeTxRunner) RunInTx(_ context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

type fakeTournamentRepo struct {
	mu          sync.Mutex
	seq         int
	tournaments map[int]*models.Tournament
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{tournaments: make(map[int]*models.Tournament)}
}

func (r *fakeTournamentRepo) Create(_ context.Context, tournament *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	tournament.ID = r.seq
	stored := *tournament
	r.tournaments[tournament.ID] = &stored
	return nil
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, id int) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tournament, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	snapshot := *tournament
	return &snapshot, nil
}

func (r *fakeTournamentRepo) UpdateStatusWinner(_ context.Context, _ repositories.SQLExecutor, id int, status models.TournamentStatus, winnerID *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tournament, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	tournament.Status = status
	tournament.WinnerID = winnerID
	return nil
}

type fakeEntryRepo struct {
	mu      sync.Mutex
	seq     int
	entries []*models.PlayerTournamentEntry
}

func (r *fakeEntryRepo) Create(_ context.Context, entry *models.PlayerTournamentEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.entries {
		if existing.TournamentID == entry.TournamentID && existing.PlayerID == entry.PlayerID {
			return repositories.ErrEntryConflict
		}
	}
	r.seq++
	entry.ID = r.seq
	stored := *entry
	r.entries = append(r.entries, &stored)
	return nil
}

func (r *fakeEntryRepo) ListByTournament(_ context.Context, tournamentID int) ([]*models.PlayerTournamentEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PlayerTournamentEntry
	for _, entry := range r.entries {
		if entry.TournamentID == tournamentID {
			snapshot := *entry
			out = append(out, &snapshot)
		}
	}
	return out, nil
}

func (r *fakeEntryRepo) Delete(_ context.Context, tournamentID, playerID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, entry := range r.entries {
		if entry.TournamentID == tournamentID && entry.PlayerID == playerID {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return nil
		}
	}
	return repositories.ErrEntryNotFound
}

type fakeMatchRepo struct {
	mu      sync.Mutex
	seq     int
	matches map[int]*models.TournamentMatch
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[int]*models.TournamentMatch)}
}

func (r *fakeMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, match *models.TournamentMatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	match.ID = r.seq
	stored := *match
	r.matches[match.ID] = &stored
	return nil
}

func (r *fakeMatchRepo) GetByID(_ context.Context, id int) (*models.TournamentMatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrTournamentMatchNotFound
	}
	snapshot := *match
	return &snapshot, nil
}

func (r *fakeMatchRepo) sorted(filter func(*models.TournamentMatch) bool) []*models.TournamentMatch {
	var out []*models.TournamentMatch
	for _, match := range r.matches {
		if filter(match) {
			snapshot := *match
			out = append(out, &snapshot)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		return out[i].MatchNumber < out[j].MatchNumber
	})
	return out
}

func (r *fakeMatchRepo) ListByTournament(_ context.Context, tournamentID int) ([]*models.TournamentMatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(m *models.TournamentMatch) bool {
		return m.TournamentID == tournamentID
	}), nil
}

func (r *fakeMatchRepo) ListByRound(_ context.Context, _ repositories.SQLExecutor, tournamentID, round int, state *models.TournamentMatchState) ([]*models.TournamentMatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(m *models.TournamentMatch) bool {
		if m.TournamentID != tournamentID || m.Round != round {
			return false
		}
		return state == nil || m.State == *state
	}), nil
}

func (r *fakeMatchRepo) UpdateResult(_ context.Context, _ repositories.SQLExecutor, id int, winnerID int, score string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	match, ok := r.matches[id]
	if !ok {
		return repositories.ErrTournamentMatchNotFound
	}
	if match.State != models.TournamentMatchPending {
		return repositories.ErrTournamentMatchNotPending
	}
	match.WinnerID = &winnerID
	match.Score = &score
	match.State = models.TournamentMatchCompleted
	return nil
}

func (r *fakeMatchRepo) CountByRound(_ context.Context, _ repositories.SQLExecutor, tournamentID, round int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, match := range r.matches {
		if match.TournamentID == tournamentID && match.Round == round {
			count++
		}
	}
	return count, nil
}

type stubStatsReporter struct {
	mu      sync.Mutex
	reports []MatchReport
	tokens  []string
	err     error
}

func (s *stubStatsReporter) ReportMatch(_ context.Context, report MatchReport, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.reports = append(s.reports, report)
	s.tokens = append(s.tokens, token)
	return nil
}

type serviceFixture struct {
	svc         TournamentService
	tournaments *fakeTournamentRepo
	entries     *fakeEntryRepo
	matches     *fakeMatchRepo
	stats       *stubStatsReporter
}

func newFixture() *serviceFixture {
	f := &serviceFixture{
		tournaments: newFakeTournamentRepo(),
		entries:     &fakeEntryRepo{},
		matches:     newFakeMatchRepo(),
		stats:       &stubStatsReporter{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewTournamentService(fakeTxRunner{}, f.tournaments, f.entries, f.matches, f.stats, logger)
	return f
}

// startedTournament registers playerIDs 1..n, starts the tournament and
// returns its id plus the seeded round-1 matches.
func (f *serviceFixture) startedTournament(t *testing.T, n int) (int, []*models.TournamentMatch) {
	t.Helper()
	ctx := context.Background()
	tournament, err := f.svc.CreateTournament(ctx, fmt.Sprintf("cup-%d", n))
	require.NoError(t, err)
	for playerID := 1; playerID <= n; playerID++ {
		_, err = f.svc.JoinTournament(ctx, tournament.ID, playerID)
		require.NoError(t, err)
	}
	matches, err := f.svc.StartTournament(ctx, tournament.ID)
	require.NoError(t, err)
	return tournament.ID, matches
}

func TestCreateTournament(t *testing.T) {
	f := newFixture()

	t.Run("empty name rejected", func(t *testing.T) {
		_, err := f.svc.CreateTournament(context.Background(), "")
		assert.ErrorIs(t, err, ErrTournamentNameRequired)
	})

	t.Run("created in CREATED status", func(t *testing.T) {
		tournament, err := f.svc.CreateTournament(context.Background(), "spring cup")
		require.NoError(t, err)
		assert.NotZero(t, tournament.ID)
		assert.Equal(t, models.TournamentStatusCreated, tournament.Status)
		assert.Nil(t, tournament.WinnerID)
	})
}

func TestJoinTournament(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	tournament, err := f.svc.CreateTournament(ctx, "cup")
	require.NoError(t, err)

	t.Run("unknown tournament", func(t *testing.T) {
		_, err := f.svc.JoinTournament(ctx, 9999, 1)
		assert.ErrorIs(t, err, ErrTournamentNotFound)
	})

	t.Run("registers a player once", func(t *testing.T) {
		entry, err := f.svc.JoinTournament(ctx, tournament.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, entry.PlayerID)

		_, err = f.svc.JoinTournament(ctx, tournament.ID, 1)
		assert.ErrorIs(t, err, ErrRegistrationConflict)
	})
}

func TestStartTournamentSeeding(t *testing.T) {
	for _, n := range []int{2, 3, 4, 5, 6, 7} {
		t.Run(fmt.Sprintf("%d players", n), func(t *testing.T) {
			f := newFixture()
			id, matches := f.startedTournament(t, n)

			require.Len(t, matches, (n+1)/2)

			seen := make(map[int]bool)
			var byes int
			players := make(map[int]bool)
			for _, match := range matches {
				assert.Equal(t, 1, match.Round)
				assert.False(t, seen[match.MatchNumber], "duplicate match number")
				seen[match.MatchNumber] = true

				players[match.Player1ID] = true
				if match.IsBye() {
					byes++
					assert.Equal(t, models.TournamentMatchCompleted, match.State)
					require.NotNil(t, match.WinnerID)
					assert.Equal(t, match.Player1ID, *match.WinnerID)
				} else {
					assert.Equal(t, models.TournamentMatchPending, match.State)
					players[*match.Player2ID] = true
				}
			}
			if n%2 == 0 {
				assert.Zero(t, byes)
			} else {
				assert.Equal(t, 1, byes)
				assert.Equal(t, (n+1)/2, matches[len(matches)-1].MatchNumber, "bye is the last pairing")
			}
			assert.Len(t, players, n, "every registered player is seeded exactly once")

			tournament, err := f.svc.GetTournament(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, models.TournamentStatusActive, tournament.Status)
		})
	}
}

func TestStartTournamentGuards(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	t.Run("needs at least two players", func(t *testing.T) {
		tournament, err := f.svc.CreateTournament(ctx, "solo")
		require.NoError(t, err)
		_, err = f.svc.JoinTournament(ctx, tournament.ID, 1)
		require.NoError(t, err)

		_, err = f.svc.StartTournament(ctx, tournament.ID)
		assert.ErrorIs(t, err, ErrNotEnoughPlayers)
	})

	t.Run("cannot start twice", func(t *testing.T) {
		id, _ := f.startedTournament(t, 2)
		_, err := f.svc.StartTournament(ctx, id)
		assert.ErrorIs(t, err, ErrTournamentAlreadyStarted)
	})
}

func firstPending(t *testing.T, matches []*models.TournamentMatch) *models.TournamentMatch {
	t.Helper()
	for _, match := range matches {
		if match.State == models.TournamentMatchPending {
			return match
		}
	}
	t.Fatal("no pending match")
	return nil
}

func TestSubmitResult(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown match", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.SubmitResult(ctx, 42, SubmitResultInput{WinnerID: 1, Score: "5-0"}, "")
		assert.ErrorIs(t, err, ErrMatchNotFound)
	})

	t.Run("out of order submission rejected", func(t *testing.T) {
		f := newFixture()
		_, matches := f.startedTournament(t, 4)

		second := matches[1]
		_, err := f.svc.SubmitResult(ctx, second.ID, SubmitResultInput{WinnerID: second.Player1ID, Score: "5-3"}, "")
		assert.ErrorIs(t, err, ErrMatchOutOfOrder)
	})

	t.Run("invalid score rejected", func(t *testing.T) {
		f := newFixture()
		_, matches := f.startedTournament(t, 2)

		match := matches[0]
		_, err := f.svc.SubmitResult(ctx, match.ID, SubmitResultInput{WinnerID: match.Player1ID, Score: "5:3"}, "")
		assert.ErrorIs(t, err, ErrScoreFormatInvalid)
	})

	t.Run("tie score is accepted by format", func(t *testing.T) {
		f := newFixture()
		_, matches := f.startedTournament(t, 2)

		match := matches[0]
		updated, err := f.svc.SubmitResult(ctx, match.ID, SubmitResultInput{WinnerID: match.Player1ID, Score: "7-7"}, "")
		require.NoError(t, err)
		assert.Equal(t, "7-7", *updated.Score)
	})

	t.Run("completed match rejected", func(t *testing.T) {
		f := newFixture()
		_, matches := f.startedTournament(t, 2)

		match := matches[0]
		_, err := f.svc.SubmitResult(ctx, match.ID, SubmitResultInput{WinnerID: match.Player1ID, Score: "5-2"}, "")
		require.NoError(t, err)

		_, err = f.svc.SubmitResult(ctx, match.ID, SubmitResultInput{WinnerID: match.Player1ID, Score: "5-2"}, "")
		assert.ErrorIs(t, err, ErrMatchAlreadyCompleted)
	})

	t.Run("auto-completed bye rejected", func(t *testing.T) {
		f := newFixture()
		_, matches := f.startedTournament(t, 3)

		bye := matches[len(matches)-1]
		require.True(t, bye.IsBye())
		_, err := f.svc.SubmitResult(ctx, bye.ID, SubmitResultInput{WinnerID: bye.Player1ID, Score: "5-0"}, "")
		assert.ErrorIs(t, err, ErrMatchAlreadyCompleted)
	})

	t.Run("pending bye is never playable", func(t *testing.T) {
		f := newFixture()
		id, _ := f.startedTournament(t, 2)

		// a pending match without an opponent should not normally exist,
		// the submit path still refuses it
		crafted := &models.TournamentMatch{
			TournamentID: id,
			Round:        1,
			MatchNumber:  0,
			Player1ID:    99,
			State:        models.TournamentMatchPending,
		}
		require.NoError(t, f.matches.Create(ctx, nil, crafted))

		_, err := f.svc.SubmitResult(ctx, crafted.ID, SubmitResultInput{WinnerID: 99, Score: "5-0"}, "")
		assert.ErrorIs(t, err, ErrByeMatchNotPlayable)
	})

	t.Run("forwards the caller token to stats", func(t *testing.T) {
		f := newFixture()
		_, matches := f.startedTournament(t, 2)

		match := matches[0]
		_, err := f.svc.SubmitResult(ctx, match.ID, SubmitResultInput{WinnerID: match.Player1ID, Score: "5-1"}, "caller-token")
		require.NoError(t, err)

		f.stats.mu.Lock()
		defer f.stats.mu.Unlock()
		require.Len(t, f.stats.tokens, 1)
		assert.Equal(t, "caller-token", f.stats.tokens[0])
		assert.Equal(t, "5-1", f.stats.reports[0].Score)
	})
}

func TestRoundAdvancement(t *testing.T) {
	ctx := context.Background()

	t.Run("four players play a full bracket", func(t *testing.T) {
		f := newFixture()
		id, round1 := f.startedTournament(t, 4)

		for _, match := range round1 {
			_, err := f.svc.SubmitResult(ctx, match.ID, SubmitResultInput{WinnerID: match.Player1ID, Score: "5-2"}, "")
			require.NoError(t, err)
		}

		bracket, err := f.svc.GetBracket(ctx, id)
		require.NoError(t, err)
		require.Len(t, bracket, 2)
		require.Len(t, bracket[1].Matches, 1)

		final := bracket[1].Matches[0]
		assert.Equal(t, round1[0].Player1ID, final.Player1ID, "final pairs winners in match order")
		require.NotNil(t, final.Player2ID)
		assert.Equal(t, round1[1].Player1ID, *final.Player2ID)

		_, err = f.svc.SubmitResult(ctx, final.ID, SubmitResultInput{WinnerID: final.Player1ID, Score: "5-4"}, "")
		require.NoError(t, err)

		tournament, err := f.svc.GetTournament(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.TournamentStatusCompleted, tournament.Status)
		require.NotNil(t, tournament.WinnerID)
		assert.Equal(t, final.Player1ID, *tournament.WinnerID)
	})

	t.Run("bye winner advances with the round", func(t *testing.T) {
		f := newFixture()
		id, round1 := f.startedTournament(t, 3)

		playable := firstPending(t, round1)
		byeWinner := *round1[len(round1)-1].WinnerID

		_, err := f.svc.SubmitResult(ctx, playable.ID, SubmitResultInput{WinnerID: playable.Player1ID, Score: "5-0"}, "")
		require.NoError(t, err)

		bracket, err := f.svc.GetBracket(ctx, id)
		require.NoError(t, err)
		require.Len(t, bracket, 2)
		final := bracket[1].Matches[0]
		assert.Equal(t, playable.Player1ID, final.Player1ID)
		require.NotNil(t, final.Player2ID)
		assert.Equal(t, byeWinner, *final.Player2ID)
	})

	t.Run("re-advancing a round is a no-op", func(t *testing.T) {
		f := newFixture()
		id, round1 := f.startedTournament(t, 4)

		for _, match := range round1 {
			_, err := f.svc.SubmitResult(ctx, match.ID, SubmitResultInput{WinnerID: match.Player1ID, Score: "5-2"}, "")
			require.NoError(t, err)
		}

		svc := f.svc.(*tournamentService)
		require.NoError(t, svc.createNextRound(ctx, nil, id, 1))

		count, err := f.matches.CountByRound(ctx, nil, id, 2)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestSubmitResultStatsFailure(t *testing.T) {
	f := newFixture()
	f.stats.err = errors.New("stats service is down")
	ctx := context.Background()

	id, matches := f.startedTournament(t, 2)
	match := matches[0]

	updated, err := f.svc.SubmitResult(ctx, match.ID, SubmitResultInput{WinnerID: match.Player1ID, Score: "5-0"}, "")
	require.ErrorIs(t, err, ErrStatsReportFailed)
	require.NotNil(t, updated, "local result survives the failed report")
	assert.Equal(t, models.TournamentMatchCompleted, updated.State)

	// the bracket advanced before the report was attempted
	tournament, err := f.svc.GetTournament(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.TournamentStatusCompleted, tournament.Status)
}

func TestGetBracket(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	t.Run("unknown tournament", func(t *testing.T) {
		_, err := f.svc.GetBracket(ctx, 404)
		assert.ErrorIs(t, err, ErrTournamentNotFound)
	})

	t.Run("groups matches by round in order", func(t *testing.T) {
		id, _ := f.startedTournament(t, 5)

		bracket, err := f.svc.GetBracket(ctx, id)
		require.NoError(t, err)
		require.Len(t, bracket, 1)
		assert.Equal(t, 1, bracket[0].Round)
		require.Len(t, bracket[0].Matches, 3)
		for i, match := range bracket[0].Matches {
			assert.Equal(t, i+1, match.MatchNumber)
		}
	})
}
