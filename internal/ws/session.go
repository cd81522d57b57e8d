package ws

import (
	"context"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/seangravener/game-button-masher/internal/engine"
	"github.com/seangravener/game-button-masher/internal/hub"
	"github.com/seangravener/game-button-masher/internal/lobby"
	"github.com/seangravener/game-button-masher/pkg/types"
)

// membership ties a session to the one room it is in.
type membership struct {
	lobby *lobby.Lobby
	stop  chan struct{}
}

// session is one websocket connection. Everything except writeLoop and
// forward runs on the reader goroutine.
type session struct {
	id     string
	hub    *hub.Hub
	log    *zap.Logger
	send   chan types.ServerMessage
	ctx    context.Context
	cancel context.CancelFunc
	room   *membership
}

func newSession(ctx context.Context, cancel context.CancelFunc, id string, h *hub.Hub, log *zap.Logger) *session {
	return &session{
		id:     id,
		hub:    h,
		log:    log.With(zap.String("session", id)),
		send:   make(chan types.ServerMessage, 32),
		ctx:    ctx,
		cancel: cancel,
	}
}

type handlerFunc func(*session, types.ClientMessage) error

var handlers = map[types.ClientMessageType]handlerFunc{
	types.CreateRoom:  (*session).createRoom,
	types.JoinRoom:    (*session).joinRoom,
	types.ToggleReady: submit(engine.CmdToggleReady),
	types.ButtonClick: submit(engine.CmdClick),
	types.ResetGame:   submit(engine.CmdResetGame),
	types.LeaveRoom:   (*session).leaveRoom,
}

func (s *session) dispatch(cm types.ClientMessage) {
	handle, ok := handlers[cm.Type]
	if !ok {
		s.reply(types.BadRequest("unknown type"))
		return
	}
	if err := handle(s, cm); err != nil {
		s.log.Debug("request rejected", zap.String("type", string(cm.Type)), zap.Error(err))
		s.reply(types.ErrorMessage(err))
	}
}

func (s *session) createRoom(cm types.ClientMessage) error {
	if strings.TrimSpace(cm.Name) == "" {
		return engine.ErrInvalidPlayerName
	}

	lb, err := s.hub.Create(s.ctx)
	if err != nil {
		return err
	}
	if err := s.join(lb, cm.PlayerInfo()); err != nil {
		// Nobody else can know the code yet.
		_ = s.hub.Remove(s.ctx, lb.Code())
		return err
	}
	return nil
}

func (s *session) joinRoom(cm types.ClientMessage) error {
	lb, err := s.hub.Get(s.ctx, cm.RoomCode)
	if err != nil {
		return err
	}
	if s.room != nil && s.room.lobby == lb {
		s.reply(types.Joined(lb.Code(), s.id))
		return nil
	}
	return s.join(lb, cm.PlayerInfo())
}

// join moves the session into lb. The current room is only left once lb
// has accepted the player, so a rejected join changes nothing.
func (s *session) join(lb *lobby.Lobby, info engine.PlayerInfo) error {
	out := make(chan lobby.Snapshot, 32)
	if err := lb.Join(s.ctx, s.id, info, out); err != nil {
		return err
	}
	s.log.Info("joined room", zap.String("room", lb.Code()))

	s.leave(s.room)

	// room-joined goes out before the room-update waiting in out.
	s.reply(types.Joined(lb.Code(), s.id))
	s.room = &membership{lobby: lb, stop: make(chan struct{})}
	go s.forward(out, s.room.stop)
	return nil
}

func (s *session) leaveRoom(types.ClientMessage) error {
	if s.room == nil {
		return engine.ErrRoomNotFound
	}
	code := s.room.lobby.Code()
	s.leave(s.room)
	s.room = nil
	s.reply(types.ServerMessage{Type: types.RoomLeft, RoomCode: code})
	return nil
}

// leave takes the session out of m's room and drops the room if that
// emptied it. The player may already sit in another room under the same
// id, so this goes to m's lobby directly rather than searching the hub.
func (s *session) leave(m *membership) {
	if m == nil {
		return
	}
	close(m.stop)

	res, err := m.lobby.Leave(s.ctx, s.id)
	if err != nil {
		s.log.Debug("leave failed", zap.String("room", m.lobby.Code()), zap.Error(err))
		return
	}
	if res.Empty {
		if err := s.hub.Remove(s.ctx, m.lobby.Code()); err != nil {
			s.log.Warn("could not remove empty room", zap.String("room", m.lobby.Code()), zap.Error(err))
		}
	}
	s.log.Info("left room", zap.String("room", m.lobby.Code()))
}

func submit(cmd engine.CommandType) handlerFunc {
	return func(s *session, _ types.ClientMessage) error {
		if s.room == nil {
			return engine.ErrRoomNotFound
		}
		return s.room.lobby.Submit(s.ctx, s.id, engine.Command{Type: cmd})
	}
}

func (s *session) disconnect() {
	s.cancel()
	if s.room == nil {
		s.log.Info("client disconnected")
		return
	}
	close(s.room.stop)
	s.room = nil

	// The request context is gone by now.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	code, _ := s.hub.RemovePlayer(ctx, s.id)
	s.log.Info("client disconnected", zap.String("room", code))
}

// forward relays room broadcasts until the session leaves the room. If the
// room stops sending (slow client or shutdown) the connection is closed.
func (s *session) forward(out <-chan lobby.Snapshot, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case snap, ok := <-out:
			if !ok {
				select {
				case <-stop:
				default:
					s.log.Warn("room stopped sending, closing connection")
					s.cancel()
				}
				return
			}
			s.reply(types.FromSnapshot(snap))
		}
	}
}

func (s *session) reply(msg types.ServerMessage) {
	select {
	case s.send <- msg:
	case <-s.ctx.Done():
	}
}

func (s *session) writeLoop(conn *websocket.Conn, timeout time.Duration) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.send:
			ctx, cancel := context.WithTimeout(s.ctx, timeout)
			err := wsjson.Write(ctx, conn, msg)
			cancel()
			if err != nil {
				s.log.Debug("write failed", zap.Error(err))
				s.cancel()
				return
			}
		}
	}
}
