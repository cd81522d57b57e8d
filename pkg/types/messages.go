package types

import "github.com/seangravener/game-button-masher/internal/engine"

// Client -> Server
//
//	create-room:  name, color
//	join-room:    roomCode, name, color
//	toggle-ready: {}
//	button-click: {}
//	reset-game:   {}
//	leave-room:   {}
//
// The room for the last four is the one the session is in.
type ClientMessageType string

const (
	CreateRoom  ClientMessageType = "create-room"
	JoinRoom    ClientMessageType = "join-room"
	ToggleReady ClientMessageType = "toggle-ready"
	ButtonClick ClientMessageType = "button-click"
	ResetGame   ClientMessageType = "reset-game"
	LeaveRoom   ClientMessageType = "leave-room"
)

type ClientMessage struct {
	Type     ClientMessageType `json:"type"`
	RoomCode string            `json:"roomCode,omitempty"`
	Name     string            `json:"name,omitempty"`
	Color    string            `json:"color,omitempty"`
}

func (m ClientMessage) PlayerInfo() engine.PlayerInfo {
	return engine.PlayerInfo{Name: m.Name, Color: m.Color}
}

// Server -> Client. Room events reuse the engine event names
// (room-update, game-starting, countdown-update, game-started,
// timer-update, score-update, game-ended); the two below are replies to
// the sender only.
const (
	RoomJoined = "room-joined"
	RoomLeft   = "room-left"
	Error      = "error"
)

type ServerMessage struct {
	Type     string `json:"type"`
	RoomCode string `json:"roomCode,omitempty"`
	Version  int    `json:"version,omitempty"`
	PlayerID string `json:"playerId,omitempty"`

	State          *engine.Snapshot `json:"state,omitempty"`
	CountdownValue *int             `json:"countdownValue,omitempty"`
	TimeLeft       *int             `json:"timeLeft,omitempty"`
	Scores         map[string]int   `json:"scores,omitempty"`
	Results        []engine.Result  `json:"results,omitempty"`
	Winner         *engine.Result   `json:"winner,omitempty"`

	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}
