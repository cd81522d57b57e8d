package hub

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seangravener/game-button-masher/internal/engine"
	"github.com/seangravener/game-button-masher/internal/lobby"
)

func newTestHub(t *testing.T, opts Options) (context.Context, *Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx, NewHub(ctx, opts)
}

// fixedCodes hands out the given codes in order.
func fixedCodes(codes ...string) CodeGenerator {
	return func() (string, error) {
		if len(codes) == 0 {
			return "", errors.New("out of codes")
		}
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}
}

func TestHub_Create_Get_SamePointer(t *testing.T) {
	ctx, h := newTestHub(t, Options{})

	lb1, err := h.Create(ctx)
	require.NoError(t, err)

	lb2, err := h.Get(ctx, strings.ToLower(lb1.Code()))
	require.NoError(t, err)

	if lb1 == nil || lb2 == nil || lb1 != lb2 {
		t.Fatalf("expected same lobby pointer")
	}
}

func TestHub_InboxMessages(t *testing.T) {
	_, h := newTestHub(t, Options{Codes: fixedCodes("QRST")})

	created := make(chan Created, 1)
	h.Inbox() <- CreateLobby{Reply: created}
	res := <-created
	require.NoError(t, res.Err)

	reply := make(chan *lobby.Lobby, 1)
	h.Inbox() <- GetLobby{Code: "QRST", Reply: reply}
	if lb := <-reply; lb != res.Lobby {
		t.Fatalf("expected same lobby pointer")
	}

	h.Inbox() <- RemoveLobby{Code: "QRST"}
	h.Inbox() <- GetLobby{Code: "QRST", Reply: reply}
	if lb := <-reply; lb != nil {
		t.Fatalf("expected lobby to be removed, got %s", lb.Code())
	}
}

func TestHub_CreateStartsWaitingRoom(t *testing.T) {
	ctx, h := newTestHub(t, Options{})

	lb, err := h.Create(ctx)
	require.NoError(t, err)

	v, err := lb.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.PhaseWaiting, v.State.Phase)
	assert.Empty(t, v.State.Players)
	assert.Equal(t, 3, v.State.CountdownValue)
	assert.Equal(t, 10, v.State.TimeLeft)
	assert.Equal(t, 4, v.State.MaxPlayers)
}

func TestHub_CreateRegeneratesOnCollision(t *testing.T) {
	ctx, h := newTestHub(t, Options{Codes: fixedCodes("AAAA", "AAAA", "AAAA", "BBBB")})

	first, err := h.Create(ctx)
	require.NoError(t, err)
	second, err := h.Create(ctx)
	require.NoError(t, err)

	assert.Equal(t, "AAAA", first.Code())
	assert.Equal(t, "BBBB", second.Code())

	all, err := h.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []*lobby.Lobby{first, second}, all)
}

func TestHub_CreateGeneratorError(t *testing.T) {
	ctx, h := newTestHub(t, Options{Codes: fixedCodes()})

	_, err := h.Create(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of codes")
}

func TestHub_GetErrors(t *testing.T) {
	ctx, h := newTestHub(t, Options{})

	tests := []struct {
		name string
		code string
		want error
	}{
		{"empty", "", engine.ErrInvalidRoomCode},
		{"too short", "AB", engine.ErrInvalidRoomCode},
		{"ambiguous letters", "IO01", engine.ErrInvalidRoomCode},
		{"well formed but unknown", "ZZZZ", engine.ErrRoomNotFound},
		{"unknown after normalizing", " zzzz ", engine.ErrRoomNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Get(ctx, tt.code)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestHub_RemovePlayerDeletesEmptyRoom(t *testing.T) {
	ctx, h := newTestHub(t, Options{})

	lb, err := h.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, lb.Join(ctx, "a", engine.PlayerInfo{Name: "Ann"}, make(chan lobby.Snapshot, 8)))

	code, ok := h.RemovePlayer(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, lb.Code(), code)

	_, err = h.Get(ctx, code)
	require.ErrorIs(t, err, engine.ErrRoomNotFound)

	select {
	case <-lb.Done():
	case <-time.After(time.Second):
		t.Fatalf("removed lobby still running")
	}
}

func TestHub_RemovePlayerKeepsOccupiedRoom(t *testing.T) {
	ctx, h := newTestHub(t, Options{})

	lb, err := h.Create(ctx)
	require.NoError(t, err)
	outA := make(chan lobby.Snapshot, 8)
	outB := make(chan lobby.Snapshot, 8)
	require.NoError(t, lb.Join(ctx, "a", engine.PlayerInfo{Name: "Ann"}, outA))
	require.NoError(t, lb.Join(ctx, "b", engine.PlayerInfo{Name: "Bo"}, outB))

	_, ok := h.RemovePlayer(ctx, "a")
	require.True(t, ok)

	got, err := h.Get(ctx, lb.Code())
	require.NoError(t, err)
	assert.Same(t, lb, got)

	v, err := lb.View(ctx)
	require.NoError(t, err)
	require.Len(t, v.State.Players, 1)
	assert.Equal(t, "b", v.State.Players[0].ID)
}

func TestHub_RemovePlayerUnknown(t *testing.T) {
	ctx, h := newTestHub(t, Options{})
	_, err := h.Create(ctx)
	require.NoError(t, err)

	code, ok := h.RemovePlayer(ctx, "ghost")
	assert.False(t, ok)
	assert.Empty(t, code)
}

func TestHub_EmptiedRoomIgnoresLaterTicks(t *testing.T) {
	fake := clockwork.NewFakeClock()
	ctx, h := newTestHub(t, Options{Clock: fake})

	lb, err := h.Create(ctx)
	require.NoError(t, err)
	out := make(chan lobby.Snapshot, 64)
	require.NoError(t, lb.Join(ctx, "a", engine.PlayerInfo{Name: "Ann"}, out))
	require.NoError(t, lb.Join(ctx, "b", engine.PlayerInfo{Name: "Bo"}, make(chan lobby.Snapshot, 64)))
	require.NoError(t, lb.Submit(ctx, "a", engine.Command{Type: engine.CmdToggleReady}))
	require.NoError(t, lb.Submit(ctx, "b", engine.Command{Type: engine.CmdToggleReady}))

	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, fake.BlockUntilContext(waitCtx, 1))
	fake.Advance(lobby.SettleDelay)

	require.Eventually(t, func() bool {
		v, err := lb.View(ctx)
		return err == nil && v.State.Phase == engine.PhaseCountdown
	}, time.Second, 5*time.Millisecond)

	_, ok := h.RemovePlayer(ctx, "a")
	require.True(t, ok)
	_, ok = h.RemovePlayer(ctx, "b")
	require.True(t, ok)

	_, err = h.Get(ctx, lb.Code())
	require.ErrorIs(t, err, engine.ErrRoomNotFound)

	fake.Advance(5 * time.Second)
	rooms, err := h.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

func TestHub_Shutdown(t *testing.T) {
	ctx, h := newTestHub(t, Options{})
	lb, err := h.Create(ctx)
	require.NoError(t, err)

	h.Shutdown()
	<-h.Done()

	select {
	case <-lb.Done():
	case <-time.After(time.Second):
		t.Fatalf("lobby survived hub shutdown")
	}

	_, err = h.Create(ctx)
	require.ErrorIs(t, err, ErrClosed)
}

func TestGenerateCode(t *testing.T) {
	for range 100 {
		code, err := GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, CodeLength)

		normalized, ok := NormalizeCode(code)
		require.True(t, ok, code)
		require.Equal(t, code, normalized)
	}
}

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"ABCD", "ABCD", true},
		{" abcd\n", "ABCD", true},
		{"A2B3", "A2B3", true},
		{"ABC", "ABC", false},
		{"ABCDE", "ABCDE", false},
		{"AB0D", "AB0D", false},
		{"AB-D", "AB-D", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeCode(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}
