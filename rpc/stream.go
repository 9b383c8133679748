package rpc

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/tolelom/consensusclash/events"
)

const (
	streamBuffer       = 64
	streamWriteTimeout = 5 * time.Second
)

// serveEvents upgrades to a websocket and pushes every committed event as a
// JSON text message. The subscription exists before the handshake completes,
// so a client sees every event committed after its dial returns. A client
// that falls streamBuffer events behind is disconnected.
func (s *Server) serveEvents(w http.ResponseWriter, r *http.Request) {
	ch := make(chan events.Event, streamBuffer)
	overflow := make(chan struct{})
	var once sync.Once
	unsubscribe := s.emitter.SubscribeAll(func(ev events.Event) {
		select {
		case ch <- ev:
		default:
			once.Do(func() { close(overflow) })
		}
	})
	defer unsubscribe()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn("event stream accept", "err", err)
		return
	}
	defer conn.CloseNow()

	// CloseRead discards client frames and cancels ctx when the peer goes away.
	ctx := conn.CloseRead(r.Context())
	remote := r.RemoteAddr
	s.logger.Debug("event stream opened", "remote", remote)

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("event stream closed", "remote", remote)
			return
		case <-overflow:
			s.logger.Warn("event stream overflow", "remote", remote)
			conn.Close(websocket.StatusPolicyViolation, "too slow")
			return
		case ev := <-ch:
			if err := s.writeEvent(ctx, conn, ev); err != nil {
				s.logger.Debug("event stream write", "remote", remote, "err", err)
				return
			}
		}
	}
}

func (s *Server) writeEvent(ctx context.Context, conn *websocket.Conn, ev events.Event) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, ev)
}
