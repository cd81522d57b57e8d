package engine

import (
	"errors"
)

var ErrRoomNotFound = errors.New("room not found")
var ErrRoomFull = errors.New("room is full")
var ErrGameInProgress = errors.New("game already in progress")
var ErrInvalidRoomCode = errors.New("invalid room code")
var ErrInvalidPlayerName = errors.New("invalid player name")

var ErrWrongPhase = errors.New("action not allowed in current phase")
var ErrNotAllReady = errors.New("not all players are ready")
var ErrUnknownPlayer = errors.New("player not in room")
var ErrDuplicatePlayer = errors.New("player already in room")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Phase string

const (
	PhaseWaiting   Phase = "waiting"
	PhaseCountdown Phase = "countdown"
	PhasePlaying   Phase = "playing"
	PhaseFinished  Phase = "finished"
)

// MinPlayers is the smallest room that can start a round.
const MinPlayers = 2

type Rules struct {
	MaxPlayers    int `json:"maxPlayers" yaml:"max_players"`
	CountdownFrom int `json:"countdownFrom" yaml:"countdown_from"`
	RoundSeconds  int `json:"roundSeconds" yaml:"round_seconds"`
}

type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Ready bool   `json:"ready"`
}

type PlayerInfo struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// State is a single room. It is not safe for concurrent use; the owning
// lobby serializes every call.
type State struct {
	Code           string
	Phase          Phase
	Players        []Player
	Scores         map[string]int
	CountdownValue int
	TimeLeft       int
	Rules          Rules
}

type CommandType string

const (
	CmdToggleReady    CommandType = "ToggleReady"
	CmdClick          CommandType = "Click"
	CmdResetGame      CommandType = "ResetGame"
	CmdStartCountdown CommandType = "StartCountdown"
	CmdTickCountdown  CommandType = "TickCountdown"
	CmdTickRound      CommandType = "TickRound"
)

/*
	CmdToggleReady    -> EvtRoomUpdated
	CmdResetGame      -> EvtRoomUpdated
	CmdClick          -> EvtScoreUpdated
	CmdStartCountdown -> EvtGameStarting
	CmdTickCountdown  -> EvtCountdownUpdated (-> EvtGameStarted on the last tick)
	CmdTickRound      -> EvtTimerUpdated (-> EvtGameEnded on the last tick)

	Joins and leaves are not commands: they carry player data or need a
	reply, so the lobby calls AddPlayer/RemovePlayer directly and emits
	EvtRoomUpdated itself.
*/

type Command struct {
	Type     CommandType
	PlayerID string
}

type EventType string

// Event names double as the wire event names.
const (
	EvtRoomUpdated      EventType = "room-update"
	EvtGameStarting     EventType = "game-starting"
	EvtCountdownUpdated EventType = "countdown-update"
	EvtGameStarted      EventType = "game-started"
	EvtTimerUpdated     EventType = "timer-update"
	EvtScoreUpdated     EventType = "score-update"
	EvtGameEnded        EventType = "game-ended"
)

type Event struct {
	Type     EventType
	PlayerID string
}

// Apply runs cmd against s. On error s is left untouched.
func Apply(s *State, cmd Command) ([]Event, error) {
	switch cmd.Type {
	case CmdToggleReady:
		if err := s.ToggleReady(cmd.PlayerID); err != nil {
			return nil, err
		}
		return []Event{{Type: EvtRoomUpdated, PlayerID: cmd.PlayerID}}, nil

	case CmdClick:
		if err := s.RegisterClick(cmd.PlayerID); err != nil {
			return nil, err
		}
		return []Event{{Type: EvtScoreUpdated, PlayerID: cmd.PlayerID}}, nil

	case CmdResetGame:
		if !s.HasPlayer(cmd.PlayerID) {
			return nil, ErrUnknownPlayer
		}
		s.Reset()
		return []Event{{Type: EvtRoomUpdated, PlayerID: cmd.PlayerID}}, nil

	case CmdStartCountdown:
		if err := s.StartCountdown(); err != nil {
			return nil, err
		}
		return []Event{{Type: EvtGameStarting}}, nil

	case CmdTickCountdown:
		started, err := s.TickCountdown()
		if err != nil {
			return nil, err
		}
		events := []Event{{Type: EvtCountdownUpdated}}
		if started {
			events = append(events, Event{Type: EvtGameStarted})
		}
		return events, nil

	case CmdTickRound:
		ended, err := s.TickRound()
		if err != nil {
			return nil, err
		}
		events := []Event{{Type: EvtTimerUpdated}}
		if ended {
			events = append(events, Event{Type: EvtGameEnded})
		}
		return events, nil

	default:
		return nil, ErrUnsupportedCommand
	}
}
