package services

import "errors"

// Sentinel errors shared across services and the HTTP error mapping.
var (
	// Not found
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrMatchNotFound       = errors.New("match not found")
	ErrCasualMatchNotFound = errors.New("casual match not found")

	// Validation and business rules
	ErrTournamentNameRequired = errors.New("tournament name is required")
	ErrNotEnoughPlayers       = errors.New("not enough players to start tournament (minimum 2 needed)")
	ErrScoreFormatInvalid     = errors.New(`invalid score format, expected "X-Y" where X and Y are numbers`)
	ErrMatchOutOfOrder        = errors.New("this match cannot be submitted yet")
	ErrByeMatchNotPlayable    = errors.New("cannot report result: one or both players are missing for this match")
	ErrPlayerRequired         = errors.New("both player ids are required")

	// Conflicts
	ErrRegistrationConflict     = errors.New("player is already registered for this tournament")
	ErrMatchAlreadyCompleted    = errors.New("match already completed")
	ErrTournamentAlreadyStarted = errors.New("tournament has already been started")

	// Downstream collaborators. The local match update is never rolled back
	// when stats reporting fails; the error still surfaces to the caller.
	ErrStatsReportFailed = errors.New("failed to report match result to stats service")
)
