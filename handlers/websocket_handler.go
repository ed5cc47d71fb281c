package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Dosada05/pong-platform/game"
	"github.com/Dosada05/pong-platform/middleware"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect from a separate origin; the bearer token is
	// the access control, not the Origin header.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WebSocketHandler struct {
	hub          *game.Hub
	orchestrator *game.Orchestrator
	jwtSecret    string
	logger       *slog.Logger
}

func NewWebSocketHandler(hub *game.Hub, orchestrator *game.Orchestrator, jwtSecret string, logger *slog.Logger) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:          hub,
		orchestrator: orchestrator,
		jwtSecret:    jwtSecret,
		logger:       logger,
	}
	hub.OnEvent = h.dispatch
	hub.OnDisconnect = orchestrator.HandlePlayerDisconnection
	return h
}

// ServeWS handles GET /ws. Browsers cannot set headers on websocket
// requests, so the token is also accepted as a query parameter.
func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		header := r.Header.Get("Authorization")
		token = strings.TrimPrefix(header, "Bearer ")
	}
	if token == "" {
		unauthorizedResponse(w, r, "missing token")
		return
	}

	claims, err := middleware.ParseToken(token, h.jwtSecret)
	if err != nil {
		unauthorizedResponse(w, r, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := &game.Client{
		Hub:      h.hub,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		Username: claims.Username,
		UserID:   claims.UserID,
	}
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}

func (h *WebSocketHandler) dispatch(client *game.Client, event string, data json.RawMessage) {
	switch event {
	case game.EventChatMessage:
		h.handleChatMessage(client, data)
	case game.EventAcceptInvitation:
		h.handleAcceptInvitation(client, data)
	case game.EventDeclineInvitation:
		h.handleDeclineInvitation(client, data)
	case game.EventJoinRoom:
		h.handleJoinRoom(client, data)
	case game.EventPlayerInput:
		h.handlePlayerInput(client, data)
	case game.EventLeaveRoom:
		h.handleLeaveRoom(client, data)
	case game.EventRequestState:
		h.handleRequestState(client, data)
	default:
		h.logger.Warn("unknown websocket event",
			slog.String("username", client.Username), slog.String("event", event))
	}
}

// handleChatMessage relays a direct message, or turns a "/invite" command
// into a game invitation for the addressee.
func (h *WebSocketHandler) handleChatMessage(client *game.Client, data json.RawMessage) {
	var msg struct {
		To      string `json:"to"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &msg); err != nil || msg.To == "" {
		return
	}

	if strings.HasPrefix(strings.TrimSpace(msg.Message), "/invite") {
		h.invite(client, msg.To)
		return
	}

	payload := game.ChatMessagePayload{
		From:    client.Username,
		To:      msg.To,
		Message: msg.Message,
		SentAt:  time.Now().UnixMilli(),
	}
	h.hub.EmitToUser(msg.To, game.EventGetChatMessage, payload)
	// echo back so the sender's chat log stays in sync
	h.hub.EmitToUser(client.Username, game.EventGetChatMessage, payload)
}

func (h *WebSocketHandler) invite(client *game.Client, target string) {
	inv, err := h.orchestrator.CreateInvitation(client.Username, target)
	if err != nil {
		h.hub.EmitToUser(client.Username, game.EventInvitationError, game.ErrorPayload{Message: err.Error()})
		return
	}

	h.hub.EmitToUser(target, game.EventGameInvitation, game.InvitationPayload{
		From:         client.Username,
		InvitationID: inv.ID,
		RoomName:     inv.RoomName,
		Message:      fmt.Sprintf("%s invited you to play Pong!", client.Username),
	})
}

func (h *WebSocketHandler) handleAcceptInvitation(client *game.Client, data json.RawMessage) {
	var req struct {
		InvitationID string `json:"invitationId"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.InvitationID == "" {
		return
	}

	inv, err := h.orchestrator.AcceptInvitation(req.InvitationID, client.Username)
	if err != nil {
		h.hub.EmitToUser(client.Username, game.EventInvitationError, game.ErrorPayload{Message: err.Error()})
		return
	}

	h.hub.JoinUserToRoom(inv.RoomName, inv.From)
	h.hub.JoinUserToRoom(inv.RoomName, inv.To)

	h.hub.EmitToUser(inv.From, game.EventInvitationResponse, game.InvitationResponsePayload{
		From:         client.Username,
		InvitationID: inv.ID,
		Accepted:     true,
		Message:      fmt.Sprintf("%s accepted your invitation", client.Username),
	})
	h.hub.EmitToUser(inv.From, game.EventGameStart, game.GameStartPayload{
		RoomName: inv.RoomName,
		Opponent: inv.To,
		Message:  "Game is starting!",
	})
	h.hub.EmitToUser(inv.To, game.EventGameStart, game.GameStartPayload{
		RoomName: inv.RoomName,
		Opponent: inv.From,
		Message:  "Game is starting!",
	})

	// inviter plays the left paddle
	h.orchestrator.StartGame(inv.RoomName, inv.From, inv.To)
}

func (h *WebSocketHandler) handleDeclineInvitation(client *game.Client, data json.RawMessage) {
	var req struct {
		InvitationID string `json:"invitationId"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.InvitationID == "" {
		return
	}

	inv, err := h.orchestrator.DeclineInvitation(req.InvitationID, client.Username)
	if err != nil {
		h.hub.EmitToUser(client.Username, game.EventInvitationError, game.ErrorPayload{Message: err.Error()})
		return
	}

	h.hub.EmitToUser(inv.From, game.EventInvitationResponse, game.InvitationResponsePayload{
		From:         client.Username,
		InvitationID: inv.ID,
		Accepted:     false,
		Message:      fmt.Sprintf("%s declined your invitation", client.Username),
	})
}

func (h *WebSocketHandler) handleJoinRoom(client *game.Client, data json.RawMessage) {
	var req struct {
		RoomName string `json:"roomName"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.RoomName == "" {
		return
	}

	if !h.orchestrator.IsPlayerAuthorizedForRoom(client.Username, req.RoomName) {
		h.hub.EmitToUser(client.Username, game.EventAccessDenied, game.ErrorPayload{
			Message: "you are not a participant of this game",
		})
		return
	}

	h.hub.JoinRoom(req.RoomName, client)
	if st, ok := h.orchestrator.GameState(req.RoomName); ok {
		h.hub.EmitToUser(client.Username, game.EventGameStateUpdate, st)
	}
}

func (h *WebSocketHandler) handlePlayerInput(client *game.Client, data json.RawMessage) {
	var req struct {
		RoomName string `json:"roomName"`
		Key      string `json:"key"`
		Pressed  bool   `json:"pressed"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}

	if !h.orchestrator.IsPlayerAuthorizedForRoom(client.Username, req.RoomName) {
		h.logger.Warn("dropping input from non-participant",
			slog.String("username", client.Username), slog.String("room", req.RoomName))
		return
	}

	h.orchestrator.UpdatePlayerInput(req.RoomName, client.Username, req.Key, req.Pressed)
}

func (h *WebSocketHandler) handleLeaveRoom(client *game.Client, data json.RawMessage) {
	var req struct {
		RoomName string `json:"roomName"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.RoomName == "" {
		return
	}

	h.hub.LeaveRoom(req.RoomName, client)
	h.orchestrator.RemovePlayerFromRoom(req.RoomName, client.Username)
}

func (h *WebSocketHandler) handleRequestState(client *game.Client, data json.RawMessage) {
	var req struct {
		RoomName string `json:"roomName"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.RoomName == "" {
		return
	}

	// state requests from non-participants are dropped without a reply,
	// same as paddle input
	if !h.orchestrator.IsPlayerAuthorizedForRoom(client.Username, req.RoomName) {
		h.logger.Warn("dropping state request from non-participant",
			slog.String("username", client.Username), slog.String("room", req.RoomName))
		return
	}
	if st, ok := h.orchestrator.GameState(req.RoomName); ok {
		h.hub.EmitToUser(client.Username, game.EventGameStateUpdate, st)
	}
}
