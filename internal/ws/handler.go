package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seangravener/game-button-masher/internal/hub"
	"github.com/seangravener/game-button-masher/pkg/types"
)

type Options struct {
	Logger *zap.Logger
	// AllowedOrigins are browser origins such as "https://example.com" or
	// "*". Requests without an Origin header are always accepted.
	AllowedOrigins []string
	WriteTimeout   time.Duration
}

func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 3 * time.Second
	}
	patterns := OriginPatterns(opts.AllowedOrigins)

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: patterns,
		})
		if err != nil {
			opts.Logger.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		s := newSession(ctx, cancel, uuid.NewString(), h, opts.Logger)
		s.log.Info("client connected", zap.String("remote", r.RemoteAddr))
		defer s.disconnect()

		// Writer goroutine
		go s.writeLoop(conn, opts.WriteTimeout)

		// Reader loop
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					if ctx.Err() == nil {
						s.log.Debug("read failed", zap.Error(err))
					}
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				s.reply(types.BadRequest("bad json"))
				continue
			}
			s.dispatch(cm)
		}
	}
}

// OriginPatterns turns configured origins into the host patterns the
// websocket handshake checks against.
func OriginPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, o)
	}
	return patterns
}
