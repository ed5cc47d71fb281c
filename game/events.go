package game

// Wire event names. Inbound events arrive from the client over the
// websocket channel; outbound events are pushed by the hub.
const (
	// inbound
	EventChatMessage       = "emit-chat-message"
	EventAcceptInvitation  = "accept-game-invitation"
	EventDeclineInvitation = "decline-game-invitation"
	EventJoinRoom          = "join-game-room"
	EventPlayerInput       = "player-input"
	EventLeaveRoom         = "leave-game-room"
	EventRequestState      = "request-game-state"

	// outbound
	EventGetChatMessage     = "get-chat-message"
	EventGameInvitation     = "game-invitation-with-buttons"
	EventInvitationResponse = "game-invitation-response"
	EventInvitationError    = "invitation-error"
	EventInvitationExpired  = "invitation-expired"
	EventGameStart          = "game-start"
	EventGameStateUpdate    = "game-state-update"
	EventGameEnd            = "game-end"
	EventAccessDenied       = "game-access-denied"
)

// Termination reason codes carried by game-end events.
const (
	ReasonPlayerLeft    = "player_left"
	ReasonDisconnection = "disconnection"
)

type GameEndPayload struct {
	Winner  string `json:"winner"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type GameStartPayload struct {
	RoomName string `json:"roomName"`
	Opponent string `json:"opponent"`
	Message  string `json:"message"`
}

type InvitationPayload struct {
	From         string `json:"from"`
	InvitationID string `json:"invitationId"`
	RoomName     string `json:"roomName"`
	Message      string `json:"message"`
}

type InvitationResponsePayload struct {
	From         string `json:"from"`
	InvitationID string `json:"invitationId"`
	Accepted     bool   `json:"accepted"`
	Message      string `json:"message"`
}

type InvitationExpiredPayload struct {
	InvitationID string `json:"invitationId"`
	Message      string `json:"message"`
}

type ChatMessagePayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Message string `json:"message"`
	SentAt  int64  `json:"sentAt"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
