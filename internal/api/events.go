package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bluelume/bluelume-go/internal/services/pubsub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin policy is enforced by the CORS layer; the socket
	// endpoint accepts any origin the browser lets through.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const writeTimeout = 10 * time.Second

// eventFrame is one message on the /events stream.
type eventFrame struct {
	Topic   string      `json:"topic"`
	Payload interface{} `json:"payload"`
}

// handleEvents streams bus events for one device over a WebSocket. Scan
// results carry no device id and are delivered to every stream.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device")
	if deviceID == "" {
		s.respondError(w, http.StatusBadRequest, "device query parameter required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Warn().Err(err).Msg("event stream upgrade failed")
		return
	}
	defer conn.Close()

	buffer := s.EventBufferSize
	if buffer <= 0 {
		buffer = 32
	}

	group := s.Events.NewGroup()
	defer group.Close()

	subs := []*pubsub.Subscriber{
		group.Subscribe(pubsub.TopicLedState, deviceID, buffer),
		group.Subscribe(pubsub.TopicLedScene, deviceID, buffer),
		group.Subscribe(pubsub.TopicLedTimeTasks, deviceID, buffer),
		group.Subscribe(pubsub.TopicNotice, deviceID, buffer),
		group.Subscribe(pubsub.TopicScan, "", buffer),
	}

	// The read pump only notices the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Fan the subscriptions into one channel for the write loop. Closing
	// the group ends every pump.
	merged := make(chan eventFrame, buffer)
	for _, sub := range subs {
		go func(sub *pubsub.Subscriber) {
			for msg := range sub.Channel {
				select {
				case merged <- eventFrame{Topic: string(sub.Topic), Payload: msg}:
				case <-done:
					return
				}
			}
		}(sub)
	}

	for {
		select {
		case <-done:
			return
		case frame := <-merged:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(frame); err != nil {
				s.Log.Debug().Err(err).Str("device", deviceID).Msg("event stream closed")
				return
			}
		}
	}
}
