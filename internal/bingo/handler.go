package bingo

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/websocket"
)

// Inbound event names accepted on the socket.
const (
	actionJoinRoom   = "joinRoom"
	actionStartGame  = "startGame"
	actionClaimBingo = "claimBingo"
)

// frame is the JSON envelope exchanged on the socket in both directions.
type frame struct {
	Event   string          `json:"event"`
	Room    string          `json:"room,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// outFrame is the outbound shape; payload is a ready value, not raw JSON.
type outFrame struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// wsPeer serializes writes to one connection so broadcasts from the
// coordinator loop never interleave frames.
type wsPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

// Send implements Sender. Failures are logged and dropped; the read loop
// notices the dead connection and disconnects the player.
func (p *wsPeer) Send(event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.encoder.Encode(outFrame{Event: event, Payload: payload}); err != nil {
		logrus.WithField("event", event).Debugf("bingo send failed: %v", err)
	}
}

// Handler returns the websocket handler serving the bingo socket. Each
// connection gets a fresh player id and lives until the client goes away,
// at which point the player leaves every room.
func Handler(co *Coordinator) websocket.Handler {
	return func(conn *websocket.Conn) {
		playerID := uuid.NewString()
		peer := &wsPeer{encoder: json.NewEncoder(conn)}
		co.Register(playerID, peer)
		defer co.Disconnect(playerID)

		decoder := json.NewDecoder(conn)
		for {
			var f frame
			if err := decoder.Decode(&f); err != nil {
				if err != io.EOF {
					logrus.WithField("player_id", playerID).Debugf("bingo decode failed: %v", err)
				}
				return
			}
			if f.Room == "" {
				continue
			}
			switch f.Event {
			case actionJoinRoom:
				co.Join(playerID, f.Room)
			case actionStartGame:
				co.Start(playerID, f.Room)
			case actionClaimBingo:
				co.Claim(playerID, f.Room)
			}
		}
	}
}
