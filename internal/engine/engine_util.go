package engine

func DefaultRules() Rules {
	return Rules{MaxPlayers: 4, CountdownFrom: 3, RoundSeconds: 10}
}

func NewState(code string, rules Rules) State {
	return State{
		Code:           code,
		Phase:          PhaseWaiting,
		Players:        []Player{},
		Scores:         map[string]int{},
		CountdownValue: rules.CountdownFrom,
		TimeLeft:       rules.RoundSeconds,
		Rules:          rules,
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
