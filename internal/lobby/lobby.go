package lobby

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/seangravener/game-button-masher/internal/engine"
	"github.com/seangravener/game-button-masher/internal/matchclock"
)

const (
	// TickInterval paces both the countdown and the round.
	TickInterval = time.Second
	// SettleDelay is how long everyone must stay ready before the countdown.
	SettleDelay = time.Second
)

type Msg interface{ isLobbyMsg() }

type FromClient struct {
	PlayerID string
	Cmd      engine.Command
}

func (FromClient) isLobbyMsg() {}

type Join struct {
	PlayerID string
	Info     engine.PlayerInfo
	Outbox   chan Snapshot // where this player wants to receive snapshots
	Reply    chan error
}

func (Join) isLobbyMsg() {}

type Leave struct {
	PlayerID string
	Reply    chan LeaveResult
}

func (Leave) isLobbyMsg() {}

type LeaveResult struct {
	Removed bool
	// Empty means the last player left; the lobby no longer accepts joins.
	Empty bool
}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

// Snapshot is what members receive: the event that caused it and the
// room as it stood right after.
type Snapshot struct {
	Version int
	Event   engine.EventType
	State   engine.Snapshot
}

type View struct {
	Version    int
	NumClients int
	State      engine.Snapshot
	Timer      matchclock.Process
	Closed     bool
}

type Options struct {
	Rules  engine.Rules
	Clock  clockwork.Clock
	Logger *zap.Logger
}

type Lobby struct {
	code    string
	inbox   chan Msg
	ticks   chan matchclock.Tick
	state   engine.State
	version int
	clients map[string]chan Snapshot
	timer   *matchclock.Clock
	closed  bool
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewLobby(parent context.Context, code string, opts Options) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	l := &Lobby{
		code:    code,
		inbox:   make(chan Msg, 64), // Small buffer
		ticks:   make(chan matchclock.Tick, 4),
		state:   engine.NewState(code, opts.Rules),
		version: 0,
		clients: make(map[string]chan Snapshot),
		log:     opts.Logger.With(zap.String("room", code)),
		ctx:     ctx,
		cancel:  cancel,
	}
	l.timer = matchclock.New(ctx, opts.Clock, l.ticks)

	go l.loop()
	return l
}

func (l *Lobby) Code() string { return l.code }

// Expose the inbox so tests or the gateway can send raw messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the lobby has shut down.
func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case tick := <-l.ticks:
			l.handleTick(tick)

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				l.handleJoin(msg)

			case Leave:
				l.handleLeave(msg)

			case FromClient:
				cmd := msg.Cmd
				cmd.PlayerID = msg.PlayerID
				l.apply(cmd)

			case GetState:
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					State:      l.state.Snapshot(),
					Timer:      l.timer.Active(),
					Closed:     l.closed,
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) handleJoin(msg Join) {
	if l.closed {
		msg.Reply <- engine.ErrRoomNotFound
		return
	}
	if err := l.state.AddPlayer(msg.PlayerID, msg.Info); err != nil {
		msg.Reply <- err
		return
	}

	l.clients[msg.PlayerID] = msg.Outbox
	msg.Reply <- nil
	l.log.Info("player joined",
		zap.String("player", msg.PlayerID),
		zap.String("name", msg.Info.Name),
		zap.Int("players", len(l.state.Players)))

	l.react(engine.Event{Type: engine.EvtRoomUpdated, PlayerID: msg.PlayerID})
}

func (l *Lobby) handleLeave(msg Leave) {
	delete(l.clients, msg.PlayerID)

	if !l.state.RemovePlayer(msg.PlayerID) {
		msg.Reply <- LeaveResult{}
		return
	}
	l.log.Info("player left", zap.String("player", msg.PlayerID), zap.Int("players", len(l.state.Players)))

	if len(l.state.Players) == 0 {
		// Timers go before the registry hears the room is empty.
		l.timer.Stop()
		l.closed = true
		msg.Reply <- LeaveResult{Removed: true, Empty: true}
		return
	}

	msg.Reply <- LeaveResult{Removed: true}
	l.react(engine.Event{Type: engine.EvtRoomUpdated, PlayerID: msg.PlayerID})
}

func (l *Lobby) handleTick(tick matchclock.Tick) {
	if !l.timer.Accept(tick) {
		l.log.Debug("dropped stale tick", zap.Stringer("process", tick.Process), zap.Uint64("gen", tick.Gen))
		return
	}

	switch tick.Process {
	case matchclock.ProcessSettle:
		l.apply(engine.Command{Type: engine.CmdStartCountdown})
	case matchclock.ProcessCountdown:
		l.apply(engine.Command{Type: engine.CmdTickCountdown})
	case matchclock.ProcessRound:
		l.apply(engine.Command{Type: engine.CmdTickRound})
	}
}

func (l *Lobby) apply(cmd engine.Command) {
	events, err := engine.Apply(&l.state, cmd)
	if err != nil {
		// Phase races are expected (a click landing after the buzzer).
		l.log.Debug("command ignored",
			zap.String("cmd", string(cmd.Type)),
			zap.String("player", cmd.PlayerID),
			zap.String("phase", string(l.state.Phase)),
			zap.Error(err))
		return
	}
	for _, evt := range events {
		l.react(evt)
	}
}

// react keeps the match clock in step with the phase and tells everyone.
func (l *Lobby) react(evt engine.Event) {
	switch evt.Type {
	case engine.EvtRoomUpdated:
		if l.state.Phase == engine.PhaseWaiting {
			// Any membership or readiness change restarts the settle window.
			l.timer.Stop()
			if l.state.AllReady() {
				l.timer.After(matchclock.ProcessSettle, SettleDelay)
			}
		}

	case engine.EvtGameStarting:
		l.log.Info("countdown started")
		l.timer.Every(matchclock.ProcessCountdown, TickInterval)

	case engine.EvtGameStarted:
		l.log.Info("round started", zap.Int("seconds", l.state.TimeLeft))
		l.timer.Every(matchclock.ProcessRound, TickInterval)

	case engine.EvtGameEnded:
		l.timer.Stop()
		if winner, ok := l.state.Snapshot().Winner(); ok {
			l.log.Info("round ended", zap.String("winner", winner.PlayerID), zap.Int("score", winner.Score))
		}
	}

	l.version++
	l.broadcast(Snapshot{Version: l.version, Event: evt.Type, State: l.state.Snapshot()})
}

func (l *Lobby) shutdown() {
	l.timer.Stop()
	for id, ch := range l.clients {
		close(ch) // Tell client no more snapshots
		delete(l.clients, id)
	}
	l.closed = true
	l.cancel()
}

func (l *Lobby) broadcast(snap Snapshot) {
	for id, ch := range l.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Client is slow/full - drop them.
			l.log.Warn("dropping slow client", zap.String("player", id))
			close(ch)
			delete(l.clients, id)
		}
	}
}

// Join adds a player; out receives every snapshot from then on.
func (l *Lobby) Join(ctx context.Context, playerID string, info engine.PlayerInfo, out chan Snapshot) error {
	reply := make(chan error, 1)
	if err := l.send(ctx, Join{PlayerID: playerID, Info: info, Outbox: out, Reply: reply}); err != nil {
		return err
	}
	return await(ctx, l, reply)
}

func (l *Lobby) Leave(ctx context.Context, playerID string) (LeaveResult, error) {
	reply := make(chan LeaveResult, 1)
	if err := l.send(ctx, Leave{PlayerID: playerID, Reply: reply}); err != nil {
		return LeaveResult{}, err
	}
	return awaitValue(ctx, l, reply)
}

// Submit queues a client command; rejections are silent.
func (l *Lobby) Submit(ctx context.Context, playerID string, cmd engine.Command) error {
	return l.send(ctx, FromClient{PlayerID: playerID, Cmd: cmd})
}

func (l *Lobby) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := l.send(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	return awaitValue(ctx, l, reply)
}

// Close stops the lobby goroutine and any running timer.
func (l *Lobby) Close() {
	l.cancel()
}

func (l *Lobby) send(ctx context.Context, m Msg) error {
	select {
	case l.inbox <- m:
		return nil
	case <-l.ctx.Done():
		return engine.ErrRoomNotFound
	case <-ctx.Done():
		return ctx.Err()
	}
}

func await(ctx context.Context, l *Lobby, reply <-chan error) error {
	err, waitErr := awaitValue(ctx, l, reply)
	if waitErr != nil {
		return waitErr
	}
	return err
}

func awaitValue[T any](ctx context.Context, l *Lobby, reply <-chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-l.ctx.Done():
		// The loop may have answered right before shutting down.
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, engine.ErrRoomNotFound
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
