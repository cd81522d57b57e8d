package hub

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/seangravener/game-button-masher/internal/engine"
	"github.com/seangravener/game-button-masher/internal/lobby"
)

var ErrClosed = errors.New("hub is shut down")

type HubMsg interface{ isHubMsg() }

// CreateLobby asks the hub for a fresh room under a code nobody holds.
type CreateLobby struct {
	Reply chan Created
}

type Created struct {
	Lobby *lobby.Lobby
	Err   error
}

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

type RemoveLobby struct {
	Code string
}

type ListLobbies struct {
	Reply chan []*lobby.Lobby
}

type ShutdownHub struct{}

func (CreateLobby) isHubMsg() {}
func (GetLobby) isHubMsg()    {}
func (RemoveLobby) isHubMsg() {}
func (ListLobbies) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

type Options struct {
	Rules  engine.Rules
	Clock  clockwork.Clock
	Logger *zap.Logger
	Codes  CodeGenerator
}

type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	opts    Options
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)

	if opts.Rules == (engine.Rules{}) {
		opts.Rules = engine.DefaultRules()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Codes == nil {
		opts.Codes = GenerateCode
	}

	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		opts:    opts,
		log:     opts.Logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				lb, err := h.create()
				msg.Reply <- Created{Lobby: lb, Err: err}

			case GetLobby:
				msg.Reply <- h.lobbies[msg.Code] // May be nil

			case RemoveLobby:
				if lb := h.lobbies[msg.Code]; lb != nil {
					delete(h.lobbies, msg.Code)
					lb.Close()
					h.log.Info("room removed", zap.String("room", msg.Code), zap.Int("rooms", len(h.lobbies)))
				}

			case ListLobbies:
				out := make([]*lobby.Lobby, 0, len(h.lobbies))
				for _, lb := range h.lobbies {
					out = append(out, lb)
				}
				slices.SortFunc(out, func(a, b *lobby.Lobby) int { return strings.Compare(a.Code(), b.Code()) })
				msg.Reply <- out

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

// create runs on the hub goroutine, so the uniqueness check and the insert
// cannot interleave with another create.
func (h *Hub) create() (*lobby.Lobby, error) {
	var code string
	for {
		c, err := h.opts.Codes()
		if err != nil {
			return nil, fmt.Errorf("generate room code: %w", err)
		}
		if _, taken := h.lobbies[c]; !taken {
			code = c
			break
		}
		h.log.Debug("collision on code, regenerating", zap.String("room", c))
	}

	lb := lobby.NewLobby(h.ctx, code, lobby.Options{
		Rules:  h.opts.Rules,
		Clock:  h.opts.Clock,
		Logger: h.opts.Logger,
	})
	h.lobbies[code] = lb
	h.log.Info("room created", zap.String("room", code), zap.Int("rooms", len(h.lobbies)))
	return lb, nil
}

func (h *Hub) shutdown() {
	for code, lb := range h.lobbies {
		lb.Close()
		delete(h.lobbies, code)
	}
	h.cancel()
}

func (h *Hub) Create(ctx context.Context) (*lobby.Lobby, error) {
	reply := make(chan Created, 1)
	if err := h.send(ctx, CreateLobby{Reply: reply}); err != nil {
		return nil, err
	}
	res, err := awaitValue(ctx, h, reply)
	if err != nil {
		return nil, err
	}
	return res.Lobby, res.Err
}

// Get looks a room up by a user supplied code.
func (h *Hub) Get(ctx context.Context, raw string) (*lobby.Lobby, error) {
	code, ok := NormalizeCode(raw)
	if !ok {
		return nil, engine.ErrInvalidRoomCode
	}

	reply := make(chan *lobby.Lobby, 1)
	if err := h.send(ctx, GetLobby{Code: code, Reply: reply}); err != nil {
		return nil, err
	}
	lb, err := awaitValue(ctx, h, reply)
	if err != nil {
		return nil, err
	}
	if lb == nil {
		return nil, engine.ErrRoomNotFound
	}
	return lb, nil
}

// Remove forgets the room and stops its goroutine. Unknown codes are ignored.
func (h *Hub) Remove(ctx context.Context, code string) error {
	return h.send(ctx, RemoveLobby{Code: code})
}

func (h *Hub) List(ctx context.Context) ([]*lobby.Lobby, error) {
	reply := make(chan []*lobby.Lobby, 1)
	if err := h.send(ctx, ListLobbies{Reply: reply}); err != nil {
		return nil, err
	}
	return awaitValue(ctx, h, reply)
}

// RemovePlayer takes the player out of whichever room holds them and drops
// that room once it is empty. It reports the room code, if any.
func (h *Hub) RemovePlayer(ctx context.Context, playerID string) (string, bool) {
	lobbies, err := h.List(ctx)
	if err != nil {
		return "", false
	}

	for _, lb := range lobbies {
		res, err := lb.Leave(ctx, playerID)
		if err != nil || !res.Removed {
			continue
		}
		if res.Empty {
			if err := h.Remove(ctx, lb.Code()); err != nil {
				h.log.Warn("could not remove empty room", zap.String("room", lb.Code()), zap.Error(err))
			}
		}
		return lb.Code(), true
	}
	return "", false
}

// Shutdown closes every room and stops the hub.
func (h *Hub) Shutdown() {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	select {
	case h.inbox <- m:
		return nil
	case <-h.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func awaitValue[T any](ctx context.Context, h *Hub, reply <-chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-h.ctx.Done():
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, ErrClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
