package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/Dosada05/pong-platform/models"
	"github.com/Dosada05/pong-platform/services"
	"github.com/google/uuid"
)

var (
	ErrInvitationNotFound   = errors.New("invitation not found")
	ErrInvitationNotPending = errors.New("invitation is no longer pending")
	ErrNotInvited           = errors.New("you can only respond to invitations sent to you")
	ErrPlayerOffline        = errors.New("user is not online")
	ErrSenderBusy           = errors.New("you are already in a game, finish your current game before sending new invitations")
	ErrTargetBusy           = errors.New("the target player is already in a game, wait for them to finish")
	ErrDuplicateInvitation  = errors.New("you already have a pending invitation with this user")
)

const roomNameCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Orchestrator is the single in-process authority over live 1v1 sessions:
// invitations, room membership, simulation state and buffered input. All
// maps are owned exclusively by this struct; transport code goes through
// the exported operations only.
type Orchestrator struct {
	registry Registry
	stats    services.StatsReporter
	logger   *slog.Logger

	mu          sync.Mutex
	invitations map[string]*Invitation
	rooms       map[string]map[string]struct{}
	states      map[string]*State
	inputs      map[string]*roomInputs
	stops       map[string]chan struct{}
}

func NewOrchestrator(registry Registry, stats services.StatsReporter, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		registry:    registry,
		stats:       stats,
		logger:      logger,
		invitations: make(map[string]*Invitation),
		rooms:       make(map[string]map[string]struct{}),
		states:      make(map[string]*State),
		inputs:      make(map[string]*roomInputs),
		stops:       make(map[string]chan struct{}),
	}
}

// Run drives the periodic invitation-expiry sweep until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.expireInvitations()
		}
	}
}

func (o *Orchestrator) expireInvitations() {
	cutoff := time.Now().Add(-invitationTTL)
	var expired []Invitation

	o.mu.Lock()
	for _, inv := range o.invitations {
		if inv.Status == InvitationPending && inv.CreatedAt.Before(cutoff) {
			inv.Status = InvitationExpired
			expired = append(expired, *inv)
		}
	}
	o.mu.Unlock()

	for _, inv := range expired {
		o.logger.Info("invitation expired",
			slog.String("invitation_id", inv.ID), slog.String("to", inv.To))
		o.registry.EmitToUser(inv.To, EventInvitationExpired, InvitationExpiredPayload{
			InvitationID: inv.ID,
			Message:      "Game invitation expired",
		})
	}
}

// CreateInvitation validates that the target is online and that neither
// side is busy, then records a pending invitation with a fresh room name.
func (o *Orchestrator) CreateInvitation(from, to string) (*Invitation, error) {
	if !o.registry.IsOnline(to) {
		return nil, ErrPlayerOffline
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.playerBusyLocked(from) {
		return nil, ErrSenderBusy
	}
	if o.playerBusyLocked(to) {
		return nil, ErrTargetBusy
	}
	for _, inv := range o.invitations {
		if inv.From == from && inv.To == to && inv.Status == InvitationPending {
			return nil, ErrDuplicateInvitation
		}
	}

	inv := &Invitation{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		RoomName:  randomRoomName(),
		Status:    InvitationPending,
		CreatedAt: time.Now(),
	}
	o.invitations[inv.ID] = inv

	snapshot := *inv
	return &snapshot, nil
}

// AcceptInvitation flips a pending invitation to accepted and registers
// both players into the room membership set.
func (o *Orchestrator) AcceptInvitation(id, byUser string) (*Invitation, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	inv, ok := o.invitations[id]
	if !ok {
		return nil, ErrInvitationNotFound
	}
	if inv.To != byUser {
		return nil, ErrNotInvited
	}
	if inv.Status != InvitationPending {
		return nil, ErrInvitationNotPending
	}

	inv.Status = InvitationAccepted
	members, ok := o.rooms[inv.RoomName]
	if !ok {
		members = make(map[string]struct{})
		o.rooms[inv.RoomName] = members
	}
	members[inv.From] = struct{}{}
	members[inv.To] = struct{}{}

	snapshot := *inv
	return &snapshot, nil
}

func (o *Orchestrator) DeclineInvitation(id, byUser string) (*Invitation, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	inv, ok := o.invitations[id]
	if !ok {
		return nil, ErrInvitationNotFound
	}
	if inv.To != byUser {
		return nil, ErrNotInvited
	}
	if inv.Status != InvitationPending {
		return nil, ErrInvitationNotPending
	}

	inv.Status = InvitationDeclined
	snapshot := *inv
	return &snapshot, nil
}

func (o *Orchestrator) GetInvitation(id string) (*Invitation, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	inv, ok := o.invitations[id]
	if !ok {
		return nil, false
	}
	snapshot := *inv
	return &snapshot, true
}

func (o *Orchestrator) RemoveInvitation(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.invitations, id)
}

// StartGame initializes the room's simulation state and launches its
// fixed-tick loop. Starting an already-running room is a no-op.
func (o *Orchestrator) StartGame(roomName, player1, player2 string) {
	o.mu.Lock()
	if _, running := o.states[roomName]; running {
		o.mu.Unlock()
		return
	}

	members, ok := o.rooms[roomName]
	if !ok {
		members = make(map[string]struct{})
		o.rooms[roomName] = members
	}
	members[player1] = struct{}{}
	members[player2] = struct{}{}

	o.states[roomName] = newState(player1, player2, time.Now().UnixMilli())
	o.inputs[roomName] = &roomInputs{}
	stop := make(chan struct{})
	o.stops[roomName] = stop
	o.mu.Unlock()

	o.logger.Info("game started",
		slog.String("room", roomName),
		slog.String("player1", player1),
		slog.String("player2", player2))

	go o.runLoop(roomName, stop)
}

func (o *Orchestrator) runLoop(roomName string, stop <-chan struct{}) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			o.tick(roomName)
		}
	}
}

// tick advances the room by one simulation step and broadcasts the
// resulting snapshot. Reaching the win score marks the game ended; the
// result report and teardown then run off the tick path so a slow stats
// call never delays other rooms.
func (o *Orchestrator) tick(roomName string) {
	o.mu.Lock()
	st, ok := o.states[roomName]
	if !ok || st.GameEnded {
		o.mu.Unlock()
		return
	}
	in := o.inputs[roomName]
	if in == nil {
		o.mu.Unlock()
		return
	}

	step(st, in.Left, in.Right)
	st.LastUpdate = time.Now().UnixMilli()

	ended := false
	if st.Score[0] >= WinScore || st.Score[1] >= WinScore {
		st.GameEnded = true
		if st.Score[0] >= WinScore {
			st.Winner = st.Player1
		} else {
			st.Winner = st.Player2
		}
		ended = true
	}
	snapshot := *st
	o.mu.Unlock()

	o.registry.BroadcastToRoom(roomName, EventGameStateUpdate, snapshot)
	if ended {
		go o.reportAndCleanup(roomName, snapshot)
	}
}

// reportAndCleanup pushes the final result to the stats collaborator and
// tears the room down. Teardown is deferred first: it must happen whether
// or not the report succeeds.
func (o *Orchestrator) reportAndCleanup(roomName string, snapshot State) {
	defer o.removeRoom(roomName)

	p1ID, ok1 := o.registry.UserID(snapshot.Player1)
	p2ID, ok2 := o.registry.UserID(snapshot.Player2)
	winnerID, okW := o.registry.UserID(snapshot.Winner)
	if !ok1 || !ok2 || !okW {
		o.logger.Warn("cannot report match result, player id unavailable",
			slog.String("room", roomName), slog.String("winner", snapshot.Winner))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	report := services.MatchReport{
		Player1ID: p1ID,
		Player2ID: p2ID,
		WinnerID:  winnerID,
		Score:     models.FormatScore(snapshot.Score[0], snapshot.Score[1]),
		PlayedAt:  time.Now().UTC(),
	}
	if err := o.stats.ReportMatch(ctx, report, ""); err != nil {
		o.logger.Error("failed to report live match result",
			slog.String("room", roomName), slog.Any("error", err))
		return
	}
	o.logger.Info("live match result reported",
		slog.String("room", roomName), slog.String("score", report.Score))
}

// UpdatePlayerInput buffers a key state change for the player's paddle.
// Input from anyone but the room's two players is dropped. Last write
// before a tick wins.
func (o *Orchestrator) UpdatePlayerInput(roomName, player, key string, pressed bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	st, ok := o.states[roomName]
	if !ok {
		return
	}
	in := o.inputs[roomName]
	if in == nil {
		return
	}

	var paddle *PaddleInput
	switch player {
	case st.Player1:
		paddle = &in.Left
	case st.Player2:
		paddle = &in.Right
	default:
		return
	}

	switch key {
	case "w", "Up", "ArrowUp":
		paddle.Up = pressed
	case "s", "Down", "ArrowDown":
		paddle.Down = pressed
	}
}

// IsPlayerAuthorizedForRoom reports whether the player is one of the two
// participants of the room's running game.
func (o *Orchestrator) IsPlayerAuthorizedForRoom(player, roomName string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	st, ok := o.states[roomName]
	if !ok {
		return false
	}
	return st.Player1 == player || st.Player2 == player
}

// GameState returns a copy of the room's current snapshot.
func (o *Orchestrator) GameState(roomName string) (State, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	st, ok := o.states[roomName]
	if !ok {
		return State{}, false
	}
	return *st, true
}

// IsPlayerInGame reports whether the player occupies an active room or has
// a pending invitation in either direction.
func (o *Orchestrator) IsPlayerInGame(player string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.playerBusyLocked(player)
}

func (o *Orchestrator) playerBusyLocked(player string) bool {
	for _, members := range o.rooms {
		if _, ok := members[player]; ok {
			return true
		}
	}
	for _, inv := range o.invitations {
		if inv.Status == InvitationPending && (inv.From == player || inv.To == player) {
			return true
		}
	}
	return false
}

// RemovePlayerFromRoom handles an explicit leave. An emptied room is torn
// down; a single remaining player wins by forfeit with reason
// "player_left".
func (o *Orchestrator) RemovePlayerFromRoom(roomName, player string) {
	o.mu.Lock()
	members, ok := o.rooms[roomName]
	if !ok {
		o.mu.Unlock()
		return
	}
	delete(members, player)

	if len(members) == 0 {
		o.mu.Unlock()
		o.removeRoom(roomName)
		return
	}

	st := o.states[roomName]
	if st == nil {
		// room was reserved at accept time but the game never started;
		// tear it down so the remaining player does not stay marked busy
		o.mu.Unlock()
		o.removeRoom(roomName)
		return
	}
	if st.GameEnded {
		o.mu.Unlock()
		return
	}

	var remaining string
	for member := range members {
		remaining = member
	}
	st.GameEnded = true
	st.Winner = remaining
	o.mu.Unlock()

	o.logger.Info("game forfeited",
		slog.String("room", roomName),
		slog.String("left", player),
		slog.String("winner", remaining))
	o.registry.BroadcastToRoom(roomName, EventGameEnd, GameEndPayload{
		Winner:  remaining,
		Reason:  ReasonPlayerLeft,
		Message: fmt.Sprintf("%s left the game. %s wins!", player, remaining),
	})
	o.removeRoom(roomName)
}

// HandlePlayerDisconnection applies forfeit semantics on transport-level
// disconnect, with reason "disconnection".
func (o *Orchestrator) HandlePlayerDisconnection(player string) {
	o.mu.Lock()
	var roomName string
	found := false
	for name, members := range o.rooms {
		if _, ok := members[player]; ok {
			roomName = name
			found = true
			break
		}
	}
	if !found {
		o.mu.Unlock()
		return
	}

	st := o.states[roomName]
	if st == nil || st.GameEnded {
		o.mu.Unlock()
		return
	}

	winner := st.Player1
	if winner == player {
		winner = st.Player2
	}
	st.GameEnded = true
	st.Winner = winner
	o.mu.Unlock()

	o.logger.Info("game forfeited by disconnection",
		slog.String("room", roomName),
		slog.String("disconnected", player),
		slog.String("winner", winner))
	o.registry.BroadcastToRoom(roomName, EventGameEnd, GameEndPayload{
		Winner:  winner,
		Reason:  ReasonDisconnection,
		Message: fmt.Sprintf("%s disconnected. %s wins!", player, winner),
	})
	o.removeRoom(roomName)
}

// removeRoom purges the room from all tracking maps, stops its tick loop
// and deletes any invitation referencing it.
func (o *Orchestrator) removeRoom(roomName string) {
	o.mu.Lock()
	delete(o.rooms, roomName)
	delete(o.states, roomName)
	delete(o.inputs, roomName)
	stop, hasLoop := o.stops[roomName]
	delete(o.stops, roomName)
	for id, inv := range o.invitations {
		if inv.RoomName == roomName {
			delete(o.invitations, id)
		}
	}
	o.mu.Unlock()

	if hasLoop {
		close(stop)
	}
	o.logger.Info("room removed", slog.String("room", roomName))
}

func randomRoomName() string {
	name := make([]byte, roomNameLength)
	for i := range name {
		name[i] = roomNameCharset[rand.Intn(len(roomNameCharset))]
	}
	return string(name)
}
