package bingo

import (
	"context"
	"math/rand"

	"github.com/sirupsen/logrus"
)

// drawCount is the size of the number pool drawn at game start (1..75).
const drawCount = 75

// Outbound event names, one per state-machine transition.
const (
	EventConnected      = "connected"
	EventJoinedRoom     = "joinedRoom"
	EventPlayerJoined   = "playerJoined"
	EventGameStarted    = "gameStarted"
	EventWinnerDeclared = "winnerDeclared"
)

// Sender delivers a named event to a single connected player. Sends are
// fire-and-forget; delivery failures are the transport's problem.
type Sender interface {
	Send(event string, payload any)
}

// Room is the in-memory state of one bingo session. Rooms are ephemeral:
// they live in the coordinator's memory and vanish on process restart.
type Room struct {
	Name    string   `json:"name"`    // Caller-supplied room identifier
	Players []string `json:"players"` // Player ids in join order
	Numbers []int    `json:"numbers"` // Drawn permutation of 1..75, empty until start
	Winner  string   `json:"winner"`  // First claimant, empty until someone wins
}

type eventKind int

const (
	eventRegister eventKind = iota
	eventJoin
	eventStart
	eventClaim
	eventDisconnect
)

type event struct {
	kind     eventKind
	playerID string
	room     string
	sender   Sender // only set for register
}

// Coordinator owns the room table. Every inbound event flows through one
// channel consumed by a single Run goroutine, so room mutations never race
// and first-claim-wins holds without locks.
type Coordinator struct {
	events chan event
	rooms  map[string]*Room
	peers  map[string]Sender
	rng    *rand.Rand
}

// NewCoordinator creates a coordinator with an empty room table. The rng
// drives the game-start shuffle and is injectable for tests.
func NewCoordinator(rng *rand.Rand) *Coordinator {
	return &Coordinator{
		events: make(chan event, 64),
		rooms:  make(map[string]*Room),
		peers:  make(map[string]Sender),
		rng:    rng,
	}
}

// Run consumes events until the context is cancelled. It must be the only
// goroutine touching the room table.
func (co *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-co.events:
			co.dispatch(ev)
		}
	}
}

// Register announces a new connection and its outbound writer.
func (co *Coordinator) Register(playerID string, sender Sender) {
	co.events <- event{kind: eventRegister, playerID: playerID, sender: sender}
}

// Join enqueues a joinRoom event for the player.
func (co *Coordinator) Join(playerID, room string) {
	co.events <- event{kind: eventJoin, playerID: playerID, room: room}
}

// Start enqueues a startGame event for the player's room.
func (co *Coordinator) Start(playerID, room string) {
	co.events <- event{kind: eventStart, playerID: playerID, room: room}
}

// Claim enqueues a claimBingo event for the player.
func (co *Coordinator) Claim(playerID, room string) {
	co.events <- event{kind: eventClaim, playerID: playerID, room: room}
}

// Disconnect enqueues the player's departure from every room.
func (co *Coordinator) Disconnect(playerID string) {
	co.events <- event{kind: eventDisconnect, playerID: playerID}
}

func (co *Coordinator) dispatch(ev event) {
	switch ev.kind {
	case eventRegister:
		co.handleRegister(ev.playerID, ev.sender)
	case eventJoin:
		co.handleJoin(ev.playerID, ev.room)
	case eventStart:
		co.handleStart(ev.playerID, ev.room)
	case eventClaim:
		co.handleClaim(ev.playerID, ev.room)
	case eventDisconnect:
		co.handleDisconnect(ev.playerID)
	}
}

func (co *Coordinator) handleRegister(playerID string, sender Sender) {
	co.peers[playerID] = sender
	sender.Send(EventConnected, map[string]any{"playerId": playerID})
	logrus.WithField("player_id", playerID).Info("Player connected")
}

// handleJoin appends the player to the room, creating the room on first
// join. The joiner gets a snapshot; the whole room gets the new roster.
func (co *Coordinator) handleJoin(playerID, roomName string) {
	room, ok := co.rooms[roomName]
	if !ok {
		room = &Room{Name: roomName}
		co.rooms[roomName] = room
	}
	room.Players = append(room.Players, playerID)

	logrus.WithFields(logrus.Fields{
		"player_id": playerID,
		"room":      roomName,
	}).Info("Player joined room")

	co.sendTo(playerID, EventJoinedRoom, map[string]any{"room": roomName, "players": room.Players})
	co.broadcast(room, EventPlayerJoined, map[string]any{"players": room.Players})
}

// handleStart draws a fresh uniform permutation of 1..75, clears the
// winner and broadcasts the numbers. Unknown rooms are ignored. Any player
// may start; concurrent starts resolve to last-write-wins by queue order.
func (co *Coordinator) handleStart(playerID, roomName string) {
	room, ok := co.rooms[roomName]
	if !ok {
		return
	}
	room.Numbers = co.shuffleNumbers()
	room.Winner = ""

	logrus.WithFields(logrus.Fields{
		"player_id": playerID,
		"room":      roomName,
	}).Info("Game started")

	co.broadcast(room, EventGameStarted, map[string]any{"numbers": room.Numbers})
}

// handleClaim records the first claimant as winner. Later claims in the
// same game are no-ops, as are claims on unknown rooms.
func (co *Coordinator) handleClaim(playerID, roomName string) {
	room, ok := co.rooms[roomName]
	if !ok || room.Winner != "" {
		return
	}
	room.Winner = playerID

	logrus.WithFields(logrus.Fields{
		"player_id": playerID,
		"room":      roomName,
	}).Info("Winner declared")

	co.broadcast(room, EventWinnerDeclared, map[string]any{"winner": playerID})
}

// handleDisconnect removes the player from every room's roster. Rooms are
// never deleted, matching the session semantics: an emptied room keeps its
// numbers and winner until the next start.
func (co *Coordinator) handleDisconnect(playerID string) {
	delete(co.peers, playerID)
	for _, room := range co.rooms {
		for i, id := range room.Players {
			if id == playerID {
				room.Players = append(room.Players[:i], room.Players[i+1:]...)
				break
			}
		}
	}
	logrus.WithField("player_id", playerID).Info("Player disconnected")
}

// shuffleNumbers returns a uniform permutation of 1..75 (Fisher-Yates via
// rand.Perm).
func (co *Coordinator) shuffleNumbers() []int {
	numbers := make([]int, drawCount)
	for i, v := range co.rng.Perm(drawCount) {
		numbers[i] = v + 1
	}
	return numbers
}

func (co *Coordinator) sendTo(playerID, event string, payload any) {
	if peer, ok := co.peers[playerID]; ok {
		peer.Send(event, payload)
	}
}

func (co *Coordinator) broadcast(room *Room, event string, payload any) {
	for _, id := range room.Players {
		co.sendTo(id, event, payload)
	}
}
