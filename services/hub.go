package services

import (
	"encoding/json"
	"log"
	"strings"
	"sync"

	"skyjo/game"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Hub fans session broadcasts out to websocket clients and dispatches
// inbound intents to the services. Ordering is reliable per connection;
// conflicting intents from different connections are serialized by the
// session lock.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	games      *GameService
	lobby      *LobbyService
	kicks      *KickService
}

type Client struct {
	hub        *Hub
	id         string
	socket     *websocket.Conn
	send       chan []byte
	gameCode   string
	playerID   string
	playerName string
}

type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type outMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

func NewHub(games *GameService, lobby *LobbyService, kicks *KickService) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		games:      games,
		lobby:      lobby,
		kicks:      kicks,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			log.Printf("Client registered: %s for game %s (player %s: %s)", client.id, client.gameCode, client.playerID, client.playerName)

			if err := h.lobby.HandleConnect(client.gameCode, client.playerID, h); err != nil {
				log.Printf("Rejecting client %s for game %s: %v", client.id, client.gameCode, err)
				h.closeClient(client)
				continue
			}
			h.SendSessionState(client)

		case client := <-h.unregister:
			h.mutex.Lock()
			_, ok := h.clients[client]
			if ok {
				delete(h.clients, client)
				close(client.send)
			}
			remaining := h.hasClientLocked(client.gameCode, client.playerID)
			h.mutex.Unlock()

			if ok {
				log.Printf("Client unregistered: %s for game %s (player %s: %s)", client.id, client.gameCode, client.playerID, client.playerName)
				if !remaining {
					h.lobby.HandleDisconnect(client.gameCode, client.playerID, h)
				}
			}
		}
	}
}

func (h *Hub) hasClientLocked(gameCode, playerID string) bool {
	for c := range h.clients {
		if strings.EqualFold(c.gameCode, gameCode) && c.playerID == playerID {
			return true
		}
	}
	return false
}

// BroadcastToGame sends one message to every connection of a session.
func (h *Hub) BroadcastToGame(gameCode, messageType string, payload interface{}) {
	data, err := json.Marshal(outMessage{Type: messageType, Payload: payload})
	if err != nil {
		log.Printf("Error marshaling %s message: %v", messageType, err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for client := range h.clients {
		if strings.EqualFold(client.gameCode, gameCode) {
			select {
			case client.send <- data:
			default:
				close(client.send)
				delete(h.clients, client)
			}
		}
	}
}

// SendSessionState sends the full authoritative snapshot to one client,
// e.g. after a reconnect.
func (h *Hub) SendSessionState(client *Client) {
	snap, err := h.games.GetCurrentState(client.gameCode)
	if err != nil {
		log.Printf("Error getting session state for client %s: %v", client.id, err)
		return
	}
	h.sendToClient(client, "game_state", snap)
}

func (h *Hub) sendToClient(client *Client, messageType string, payload interface{}) {
	data, err := json.Marshal(outMessage{Type: messageType, Payload: payload})
	if err != nil {
		log.Printf("Error marshaling %s message: %v", messageType, err)
		return
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if !h.clients[client] {
		return
	}
	select {
	case client.send <- data:
	default:
		close(client.send)
		delete(h.clients, client)
	}
}

// ClosePlayerClients force-closes every connection a player holds on a
// session, used when a kick vote passes.
func (h *Hub) ClosePlayerClients(gameCode, playerID string) {
	h.mutex.RLock()
	var doomed []*Client
	for client := range h.clients {
		if strings.EqualFold(client.gameCode, gameCode) && client.playerID == playerID {
			doomed = append(doomed, client)
		}
	}
	h.mutex.RUnlock()
	for _, client := range doomed {
		client.socket.Close()
	}
}

// IsPlayerConnected reports whether a player has at least one live
// connection to the session.
func (h *Hub) IsPlayerConnected(gameCode, playerID string) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.hasClientLocked(gameCode, playerID)
}

func (h *Hub) RegisterClient(conn *websocket.Conn, gameCode, playerID, playerName string) *Client {
	client := &Client{
		hub:        h,
		id:         uuid.NewString(),
		socket:     conn,
		send:       make(chan []byte, 256),
		gameCode:   strings.ToLower(gameCode),
		playerID:   playerID,
		playerName: playerName,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()

	return client
}

func (h *Hub) closeClient(client *Client) {
	h.mutex.Lock()
	if h.clients[client] {
		delete(h.clients, client)
		close(client.send)
	}
	h.mutex.Unlock()
	client.socket.Close()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.socket.Close()
	}()

	for {
		_, message, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Error unmarshaling message from client %s: %v", c.id, err)
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	defer func() {
		c.socket.Close()
	}()

	for message := range c.send {
		w, err := c.socket.NextWriter(websocket.TextMessage)
		if err != nil {
			return
		}
		w.Write(message)
		if err := w.Close(); err != nil {
			return
		}
	}
	c.socket.WriteMessage(websocket.CloseMessage, []byte{})
}

type positionPayload struct {
	Column int `json:"column"`
	Row    int `json:"row"`
}

type pickPayload struct {
	Source string `json:"source"`
}

type chatPayload struct {
	Text string `json:"text"`
}

type kickInitiatePayload struct {
	TargetID string `json:"targetId"`
}

type kickVotePayload struct {
	Approve bool `json:"approve"`
}

// handleMessage dispatches one inbound intent. Validation failures stay
// between the server and this connection; accepted mutations are
// broadcast by the services.
func (c *Client) handleMessage(msg Message) {
	var err error

	switch msg.Type {
	case "ping":
		c.hub.sendToClient(c, "pong", "pong")
		return

	case "request_game_state":
		c.hub.SendSessionState(c)
		return

	case "change_settings":
		var settings game.Settings
		if err = json.Unmarshal(msg.Payload, &settings); err == nil {
			err = c.hub.lobby.ChangeSettings(c.gameCode, c.playerID, settings, c.hub)
		}

	case "start_game":
		err = c.hub.games.StartGame(c.gameCode, c.playerID, c.hub)

	case "reveal_card":
		var pos positionPayload
		if err = json.Unmarshal(msg.Payload, &pos); err == nil {
			err = c.hub.games.RevealCard(c.gameCode, c.playerID, pos.Column, pos.Row, c.hub)
		}

	case "pick_card":
		var pick pickPayload
		if err = json.Unmarshal(msg.Payload, &pick); err == nil {
			err = c.hub.games.PickCard(c.gameCode, c.playerID, pick.Source, c.hub)
		}

	case "replace_card":
		var pos positionPayload
		if err = json.Unmarshal(msg.Payload, &pos); err == nil {
			err = c.hub.games.ReplaceCard(c.gameCode, c.playerID, pos.Column, pos.Row, c.hub)
		}

	case "discard_selected_card":
		err = c.hub.games.DiscardSelected(c.gameCode, c.playerID, c.hub)

	case "turn_card":
		var pos positionPayload
		if err = json.Unmarshal(msg.Payload, &pos); err == nil {
			err = c.hub.games.TurnCard(c.gameCode, c.playerID, pos.Column, pos.Row, c.hub)
		}

	case "replay":
		err = c.hub.lobby.Replay(c.gameCode, c.playerID, c.hub)

	case "chat_message":
		var chat chatPayload
		if err = json.Unmarshal(msg.Payload, &chat); err == nil {
			err = c.hub.games.Chat(c.gameCode, c.playerID, chat.Text, c.hub)
		}

	case "kick_initiate":
		var kick kickInitiatePayload
		if err = json.Unmarshal(msg.Payload, &kick); err == nil {
			err = c.hub.kicks.Initiate(c.gameCode, c.playerID, kick.TargetID, c.hub)
		}

	case "kick_vote":
		var vote kickVotePayload
		if err = json.Unmarshal(msg.Payload, &vote); err == nil {
			err = c.hub.kicks.Vote(c.gameCode, c.playerID, vote.Approve, c.hub)
		}

	case "leave_game":
		err = c.hub.lobby.Leave(c.gameCode, c.playerID, c.hub)
		if err == nil {
			c.socket.Close()
			return
		}

	default:
		log.Printf("Unknown message type: %s from player %s in game %s", msg.Type, c.playerID, c.gameCode)
		return
	}

	if err != nil {
		log.Printf("Intent %s rejected for player %s in game %s: %v", msg.Type, c.playerID, c.gameCode, err)
		c.hub.sendToClient(c, "error", map[string]interface{}{
			"intent":  msg.Type,
			"message": err.Error(),
		})
	}
}
