package server

import (
	"strings"
	"time"

	"fx-agent/src/models"

	"github.com/gorilla/websocket"
)

// Websocket timings. Subscribers only send small subscribe commands, so the
// read limit stays low.
const (
	decisionWriteTimeout = 2 * time.Second
	subscriberIdleLimit  = 60 * time.Second
	pingInterval         = subscriberIdleLimit * 9 / 10
	commandSizeLimit     = 16 * 1024
)

// -----------------------------------------------------------------------------

// Client is one decision subscriber. pairs is owned by the hub goroutine; an
// empty filter receives every pair.
type Client struct {
	hub   *APIServer
	conn  *websocket.Conn
	send  chan models.MDecisionUpdate
	pairs []string
}

type subscription struct {
	client *Client
	pairs  []string
}

// wants reports whether decisions for pair pass the client's filter.
func (c *Client) wants(pair string) bool {
	return len(c.pairs) == 0 || contains(c.pairs, strings.ToUpper(pair))
}

// -----------------------------------------------------------------------------

// extendDeadline pushes the read deadline forward after any sign of life.
func (c *Client) extendDeadline(string) error {
	return c.conn.SetReadDeadline(time.Now().Add(subscriberIdleLimit))
}

// leave hands the client back to the hub, unless the hub is already gone.
func (c *Client) leave() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
	c.conn.Close()
	c.hub.Logger.Info("Decision subscriber %s left", c.conn.RemoteAddr())
}

// listen reads subscribe commands until the peer goes away or stops
// answering pings.
func (c *Client) listen() {
	defer c.leave()

	c.conn.SetReadLimit(commandSizeLimit)
	c.extendDeadline("")
	c.conn.SetPongHandler(c.extendDeadline)

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Warning("Decision subscriber read failed: %v", err)
			}
			return
		}
		c.hub.HandleClientMessage(c, msg)
	}
}

// -----------------------------------------------------------------------------

// push writes one frame under the write timeout.
func (c *Client) push(write func() error) bool {
	c.conn.SetWriteDeadline(time.Now().Add(decisionWriteTimeout))
	return write() == nil
}

// deliver forwards queued decision updates and keeps the connection alive
// with pings. It ends when the hub closes send or a write fails.
func (c *Client) deliver() {
	pings := time.NewTicker(pingInterval)
	defer pings.Stop()
	defer c.conn.Close()

	for {
		select {
		case update, open := <-c.send:
			if !open {
				c.push(func() error { return c.conn.WriteMessage(websocket.CloseMessage, nil) })
				return
			}
			if !c.push(func() error { return c.conn.WriteJSON(update) }) {
				c.hub.Logger.Warning("Dropping subscriber %s after failed write of %s decision",
					c.conn.RemoteAddr(), update.Decision.Pair)
				return
			}

		case <-pings.C:
			if !c.push(func() error { return c.conn.WriteMessage(websocket.PingMessage, nil) }) {
				return
			}
		}
	}
}
