package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// writeWait bounds how long a single frame write may take before the
// connection is dropped, mirroring abdoElHodaky-tradSys's client write pump.
const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleSubscribe implements subscribe over a WebSocket: one BookSnapshot
// frame immediately, then every Trade/BookSnapshot frame published for the
// pair until a frame write fails (for example after the client disconnects).
// A slow client is never disconnected for lagging: the hub drops its oldest
// buffered frames instead.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	pair := chi.URLParam(r, "pair")

	sub, err := s.svc.Subscribe(pair)
	if err != nil {
		writeError(w, err)
		return
	}
	defer sub.Close()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("pair", pair).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	go discardInbound(conn)

	for frame := range sub.C() {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(newFrameView(frame)); err != nil {
			log.Debug().Err(err).Str("pair", pair).Msg("subscriber write failed, closing")
			return
		}
		s.svc.RecordSubscriberLag(pair, sub.Lag())
	}
}

// discardInbound drains (and ignores) anything the client sends, so gorilla's
// close-handshake and ping/pong machinery keeps working; this endpoint is
// publish-only.
func discardInbound(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
