// internal/httpserver/events.go
//
// GET /game/{id}/events upgrades to a WebSocket and pushes snapshots: first the
// current one, then one per engine mutation, including adjudications and level
// advances that happen on timers with no request in flight.
//
// The stream is output only. Input still goes through the POST routes.

package httpserver

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/colormatch/internal/game"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// pending snapshots per stream; a slow client only ever needs the newest
	streamBuffer = 8
)

// upgrader accepts same-origin requests, the configured client origin, and
// non-browser clients that send no Origin.
func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || origin == s.opts.ClientOrigin || origin == "http://"+r.Host
		},
	}
}

// handleEvents streams snapshots until the client leaves or the server stops.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Str("session", sess.ID).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	updates := make(chan game.Snapshot, streamBuffer)
	current, unsubscribe := sess.Engine.Subscribe(func(snap game.Snapshot) {
		// runs inside the engine's turn: never block
		for {
			select {
			case updates <- snap:
				return
			default:
			}
			select {
			case <-updates: // drop the oldest
			default:
			}
		}
	})
	defer unsubscribe()

	// reader: handles pongs and notices the client going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	if err := writeSnapshot(conn, current); err != nil {
		return
	}
	log.Debug().Str("session", sess.ID).Msg("event stream opened")
	for {
		select {
		case snap := <-updates:
			if err := writeSnapshot(conn, snap); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-gone:
			log.Debug().Str("session", sess.ID).Msg("event stream closed by client")
			return
		case <-s.quit:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		}
	}
}

func writeSnapshot(conn *websocket.Conn, snap game.Snapshot) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(snap)
}
