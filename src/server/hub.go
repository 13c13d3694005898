package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"fx-agent/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *APIServer) handleWebsockets() {
	for {
		select {
		case <-s.done:
			for client := range s.clients {
				delete(s.clients, client)
				close(client.send)
			}
			s.setConnections(0)
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.setConnections(len(s.clients))

			// Replay the latest decisions on connect
			for _, update := range s.snapshot(nil) {
				select {
				case client.send <- update:
				default:
				}
			}

		case sub := <-s.subscribe:
			if _, ok := s.clients[sub.client]; !ok {
				continue
			}
			sub.client.pairs = sub.pairs
			for _, update := range s.snapshot(sub.pairs) {
				select {
				case sub.client.send <- update:
				default:
				}
			}

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
				s.setConnections(len(s.clients))
			}

		case message := <-s.broadcast:
			for client := range s.clients {
				if !client.wants(message.Decision.Pair) {
					continue
				}
				select {
				case client.send <- message:
				default:
					// Client too slow, disconnect to prevent Hub blocking
					delete(s.clients, client)
					close(client.send)
				}
			}
			s.setConnections(len(s.clients))
		}
	}
}

// -----------------------------------------------------------------------------

func (s *APIServer) setConnections(n int) {
	s.stateMutex.Lock()
	s.connections = n
	s.stateMutex.Unlock()
}

// -----------------------------------------------------------------------------

// Broadcast records d as the latest state of its pair and queues it for every
// subscribed client. It drops the update when the queue is full.
func (s *APIServer) Broadcast(d models.MDecision) {
	update := models.MDecisionUpdate{
		Type:     "UPDATE",
		Decision: d,
	}

	s.stateMutex.Lock()
	s.latestState[strings.ToUpper(d.Pair)] = update
	s.latestAt = time.Now()
	s.stateMutex.Unlock()

	select {
	case s.broadcast <- update:
	default:
		s.Logger.Warning("Broadcast queue full, dropping update for %s", d.Pair)
	}
}

// -----------------------------------------------------------------------------

// snapshot returns the latest update of each requested pair (all when empty)
// marked as INITIAL.
func (s *APIServer) snapshot(pairs []string) []models.MDecisionUpdate {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()

	var out []models.MDecisionUpdate
	for pair, update := range s.latestState {
		if len(pairs) > 0 && !contains(pairs, pair) {
			continue
		}
		update.Type = "INITIAL"
		out = append(out, update)
	}
	return out
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *APIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan models.MDecisionUpdate, 256),
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	go client.deliver()
	go client.listen()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

func (s *APIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}

	select {
	case s.subscribe <- subscription{client: client, pairs: normalizePairs(cmd.Pairs)}:
	case <-s.done:
	}
}
