package types

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seangravener/game-button-masher/internal/engine"
	"github.com/seangravener/game-button-masher/internal/lobby"
)

func finishedRoom() engine.Snapshot {
	return engine.Snapshot{
		Code:  "WXYZ",
		Phase: engine.PhaseFinished,
		Players: []engine.Player{
			{ID: "a", Name: "Ann", Color: "#f00"},
			{ID: "b", Name: "Bo", Color: "#0f0"},
			{ID: "c", Name: "Cy", Color: "#00f"},
		},
		Scores:     map[string]int{"a": 4, "b": 9, "c": 4},
		MaxPlayers: 4,
	}
}

func TestFromSnapshot_PayloadPerEvent(t *testing.T) {
	room := finishedRoom()
	room.CountdownValue = 2
	room.TimeLeft = 7

	tests := []struct {
		event engine.EventType
		check func(t *testing.T, m ServerMessage)
	}{
		{engine.EvtRoomUpdated, func(t *testing.T, m ServerMessage) {
			require.NotNil(t, m.State)
			assert.Equal(t, "WXYZ", m.State.Code)
		}},
		{engine.EvtGameStarting, func(t *testing.T, m ServerMessage) { require.NotNil(t, m.State) }},
		{engine.EvtGameStarted, func(t *testing.T, m ServerMessage) { require.NotNil(t, m.State) }},
		{engine.EvtCountdownUpdated, func(t *testing.T, m ServerMessage) {
			require.NotNil(t, m.CountdownValue)
			assert.Equal(t, 2, *m.CountdownValue)
			assert.Nil(t, m.State)
		}},
		{engine.EvtTimerUpdated, func(t *testing.T, m ServerMessage) {
			require.NotNil(t, m.TimeLeft)
			assert.Equal(t, 7, *m.TimeLeft)
			assert.Nil(t, m.State)
		}},
		{engine.EvtScoreUpdated, func(t *testing.T, m ServerMessage) {
			assert.Equal(t, map[string]int{"a": 4, "b": 9, "c": 4}, m.Scores)
			assert.Nil(t, m.State)
		}},
	}
	for _, tt := range tests {
		t.Run(string(tt.event), func(t *testing.T) {
			m := FromSnapshot(lobby.Snapshot{Version: 5, Event: tt.event, State: room})
			assert.Equal(t, string(tt.event), m.Type)
			assert.Equal(t, "WXYZ", m.RoomCode)
			assert.Equal(t, 5, m.Version)
			tt.check(t, m)
		})
	}
}

func TestFromSnapshot_GameEndedRanksResults(t *testing.T) {
	m := FromSnapshot(lobby.Snapshot{Version: 9, Event: engine.EvtGameEnded, State: finishedRoom()})

	ids := make([]string, 0, len(m.Results))
	for _, r := range m.Results {
		ids = append(ids, r.PlayerID)
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids)
	require.NotNil(t, m.Winner)
	assert.Equal(t, "b", m.Winner.PlayerID)
	assert.Equal(t, 9, m.Winner.Score)
}

func TestFromSnapshot_CountdownZeroIsSent(t *testing.T) {
	m := FromSnapshot(lobby.Snapshot{Event: engine.EvtCountdownUpdated, State: engine.Snapshot{Code: "WXYZ"}})

	raw, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"countdown-update","roomCode":"WXYZ","countdownValue":0}`, string(raw))
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		err  error
		code string
		text string
	}{
		{engine.ErrRoomNotFound, "ROOM_NOT_FOUND", "Room not found"},
		{fmt.Errorf("join ABCD: %w", engine.ErrRoomFull), "ROOM_FULL", "Room is full"},
		{engine.ErrGameInProgress, "GAME_IN_PROGRESS", "Game already in progress"},
		{engine.ErrInvalidRoomCode, "INVALID_ROOM_CODE", "Invalid room code"},
		{engine.ErrInvalidPlayerName, "INVALID_PLAYER_NAME", "Player name is required"},
		{fmt.Errorf("boom"), "INTERNAL", "Internal error"},
	}
	for _, tt := range tests {
		m := ErrorMessage(tt.err)
		assert.Equal(t, Error, m.Type)
		assert.Equal(t, tt.code, m.Code)
		assert.Equal(t, tt.text, m.Error)
	}
}
