package engine

import "strings"

func (s *State) HasPlayer(id string) bool {
	return s.playerIndex(id) >= 0
}

func (s *State) playerIndex(id string) int {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return i
		}
	}
	return -1
}

// AddPlayer appends a player in join order with a zero score.
func (s *State) AddPlayer(id string, info PlayerInfo) error {
	if strings.TrimSpace(info.Name) == "" {
		return ErrInvalidPlayerName
	}
	if len(s.Players) >= s.Rules.MaxPlayers {
		return ErrRoomFull
	}
	if s.Phase != PhaseWaiting {
		return ErrGameInProgress
	}
	if s.HasPlayer(id) {
		return ErrDuplicatePlayer
	}

	s.Players = append(s.Players, Player{
		ID:    id,
		Name:  strings.TrimSpace(info.Name),
		Color: info.Color,
	})
	s.Scores[id] = 0
	return nil
}

// RemovePlayer drops the player and their score. While waiting, every
// remaining player has to ready up again, even if the leaver never did.
func (s *State) RemovePlayer(id string) bool {
	i := s.playerIndex(id)
	if i < 0 {
		return false
	}

	s.Players = append(s.Players[:i], s.Players[i+1:]...)
	delete(s.Scores, id)

	if s.Phase == PhaseWaiting {
		s.clearReady()
	}
	return true
}

func (s *State) ToggleReady(id string) error {
	if s.Phase != PhaseWaiting {
		return ErrWrongPhase
	}
	i := s.playerIndex(id)
	if i < 0 {
		return ErrUnknownPlayer
	}
	s.Players[i].Ready = !s.Players[i].Ready
	return nil
}

func (s *State) AllReady() bool {
	if s.Phase != PhaseWaiting || len(s.Players) < MinPlayers {
		return false
	}
	for _, p := range s.Players {
		if !p.Ready {
			return false
		}
	}
	return true
}

func (s *State) StartCountdown() error {
	if s.Phase != PhaseWaiting {
		return ErrWrongPhase
	}
	if !s.AllReady() {
		return ErrNotAllReady
	}

	s.Phase = PhaseCountdown
	s.CountdownValue = s.Rules.CountdownFrom
	s.zeroScores()
	return nil
}

// TickCountdown reports true on the tick that starts play.
func (s *State) TickCountdown() (bool, error) {
	if s.Phase != PhaseCountdown {
		return false, ErrWrongPhase
	}

	s.CountdownValue--
	if s.CountdownValue > 0 {
		return false, nil
	}
	s.CountdownValue = 0
	s.Phase = PhasePlaying
	s.TimeLeft = s.Rules.RoundSeconds
	return true, nil
}

func (s *State) RegisterClick(id string) error {
	if s.Phase != PhasePlaying {
		return ErrWrongPhase
	}
	if _, ok := s.Scores[id]; !ok {
		return ErrUnknownPlayer
	}
	s.Scores[id]++
	return nil
}

// TickRound reports true on the tick that ends the round.
func (s *State) TickRound() (bool, error) {
	if s.Phase != PhasePlaying {
		return false, ErrWrongPhase
	}

	s.TimeLeft--
	if s.TimeLeft > 0 {
		return false, nil
	}
	s.TimeLeft = 0
	s.Phase = PhaseFinished
	return true, nil
}

// Reset puts the room back in the lobby from any phase. Cancelling the
// room's timers is the caller's job.
func (s *State) Reset() {
	s.Phase = PhaseWaiting
	s.TimeLeft = s.Rules.RoundSeconds
	s.CountdownValue = s.Rules.CountdownFrom
	s.clearReady()
	s.zeroScores()
}

func (s *State) clearReady() {
	for i := range s.Players {
		s.Players[i].Ready = false
	}
}

func (s *State) zeroScores() {
	for id := range s.Scores {
		s.Scores[id] = 0
	}
}
