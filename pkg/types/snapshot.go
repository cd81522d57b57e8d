package types

import (
	"errors"

	"github.com/seangravener/game-button-masher/internal/engine"
	"github.com/seangravener/game-button-masher/internal/lobby"
)

// FromSnapshot turns a room broadcast into the message its event calls
// for. Ticks carry only the number that changed; everything else carries
// what the client needs to redraw.
func FromSnapshot(snap lobby.Snapshot) ServerMessage {
	st := snap.State
	msg := ServerMessage{
		Type:     string(snap.Event),
		RoomCode: st.Code,
		Version:  snap.Version,
	}

	switch snap.Event {
	case engine.EvtCountdownUpdated:
		msg.CountdownValue = &st.CountdownValue

	case engine.EvtTimerUpdated:
		msg.TimeLeft = &st.TimeLeft

	case engine.EvtScoreUpdated:
		msg.Scores = st.Scores

	case engine.EvtGameEnded:
		msg.Results = st.Results()
		if winner, ok := st.Winner(); ok {
			msg.Winner = &winner
		}

	default:
		msg.State = &st
	}
	return msg
}

func Joined(code, playerID string) ServerMessage {
	return ServerMessage{Type: RoomJoined, RoomCode: code, PlayerID: playerID}
}

var wireErrors = []struct {
	err     error
	code    string
	message string
}{
	{engine.ErrRoomNotFound, "ROOM_NOT_FOUND", "Room not found"},
	{engine.ErrRoomFull, "ROOM_FULL", "Room is full"},
	{engine.ErrGameInProgress, "GAME_IN_PROGRESS", "Game already in progress"},
	{engine.ErrInvalidRoomCode, "INVALID_ROOM_CODE", "Invalid room code"},
	{engine.ErrInvalidPlayerName, "INVALID_PLAYER_NAME", "Player name is required"},
}

// ErrorMessage maps err onto a wire error. Anything unrecognized is
// reported as INTERNAL without leaking its text.
func ErrorMessage(err error) ServerMessage {
	for _, we := range wireErrors {
		if errors.Is(err, we.err) {
			return ServerMessage{Type: Error, Error: we.message, Code: we.code}
		}
	}
	return ServerMessage{Type: Error, Error: "Internal error", Code: "INTERNAL"}
}

func BadRequest(reason string) ServerMessage {
	return ServerMessage{Type: Error, Error: reason, Code: "BAD_REQUEST"}
}
