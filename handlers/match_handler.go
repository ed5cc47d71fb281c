package handlers

import (
	"net/http"

	"github.com/Dosada05/pong-platform/middleware"
	"github.com/Dosada05/pong-platform/services"
)

type MatchHandler struct {
	matchService services.CasualMatchService
}

func NewMatchHandler(ms services.CasualMatchService) *MatchHandler {
	return &MatchHandler{matchService: ms}
}

// CreateChallengeHandler handles POST /matches/challenges. The
// authenticated caller is always player 1.
func (h *MatchHandler) CreateChallengeHandler(w http.ResponseWriter, r *http.Request) {
	callerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to create a challenge")
		return
	}

	var input struct {
		OpponentID   int  `json:"opponent_id"`
		TournamentID *int `json:"tournament_id,omitempty"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.CreateChallenge(r.Context(), services.CreateChallengeInput{
		Player1ID:    callerID,
		Player2ID:    input.OpponentID,
		TournamentID: input.TournamentID,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// SubmitResultHandler handles POST /matches/{matchID}/result
func (h *MatchHandler) SubmitResultHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.SubmitResultInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.SubmitResult(r.Context(), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListMineHandler handles GET /matches/mine
func (h *MatchHandler) ListMineHandler(w http.ResponseWriter, r *http.Request) {
	callerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	matches, err := h.matchService.ListByPlayer(r.Context(), callerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
