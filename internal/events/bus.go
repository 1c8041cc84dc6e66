// Package events provides the in-process bus that connects ledger mutations
// to live feeds such as the websocket hub.
package events

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// Event types carried on the bus.
const (
	TypeGameRecorded = "game_recorded"
	TypeGameDeleted  = "game_deleted"
)

// GameEvent describes one mutation of the game ledger.
type GameEvent struct {
	Type   string   `json:"type"`
	GameID string   `json:"game_id"`
	Users  []string `json:"users,omitempty"`
	Winner string   `json:"winner,omitempty"`
	Time   int64    `json:"time"`
}

// Bus wraps an embedded NATS server that listens only in-process, plus one
// client connection used for both publishing and subscribing.
type Bus struct {
	srv     *server.Server
	conn    *nats.Conn
	subject string
}

// NewEmbedded starts the embedded server and connects to it. The subject is
// where all game events are published; empty selects "ronlog.games".
func NewEmbedded(subject string) (*Bus, error) {
	if subject == "" {
		subject = "ronlog.games"
	}

	srv, err := server.NewServer(&server.Options{
		ServerName: "ronlog-events",
		DontListen: true, // in-process only, no TCP listener
	})
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}
	go srv.Start()
	if !srv.ReadyForConnections(5 * time.Second) {
		srv.Shutdown()
		return nil, fmt.Errorf("nats server did not become ready")
	}

	conn, err := nats.Connect("", nats.InProcessServer(srv))
	if err != nil {
		srv.Shutdown()
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}

	return &Bus{srv: srv, conn: conn, subject: subject}, nil
}

// PublishGame sends an event to all subscribers. Safe on a nil bus; errors
// are logged and dropped since live feeds are best-effort.
func (b *Bus) PublishGame(evt GameEvent) {
	if b == nil {
		return
	}
	if evt.Time == 0 {
		evt.Time = time.Now().Unix()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		log.Printf("Error marshaling game event: %v", err)
		return
	}
	if err := b.conn.Publish(b.subject, data); err != nil {
		log.Printf("Error publishing game event: %v", err)
	}
}

// SubscribeGames invokes fn for every game event until the subscription is
// unsubscribed or the bus closes.
func (b *Bus) SubscribeGames(fn func(GameEvent)) (*nats.Subscription, error) {
	return b.conn.Subscribe(b.subject, func(msg *nats.Msg) {
		var evt GameEvent
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			log.Printf("Error decoding game event: %v", err)
			return
		}
		fn(evt)
	})
}

// Close drains the client connection and stops the embedded server.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	if b.conn != nil {
		b.conn.Drain()
	}
	if b.srv != nil {
		b.srv.Shutdown()
		b.srv.WaitForShutdown()
	}
}
