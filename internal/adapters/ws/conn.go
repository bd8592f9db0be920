// Package ws carries stanzas over websocket framing, one XML stanza per
// text frame.
package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Focus/internal/xmpp"
)

var ErrBackpressure = errors.New("backpressure")

// Handler consumes inbound stanzas that are not replies to a pending
// request.
type Handler func(ctx context.Context, st *xmpp.Stanza)

// Conn implements xmpp.Connection over a websocket session. Replies are
// correlated with pending requests by stanza id; everything else goes to
// the handler.
type Conn struct {
	ws      *websocket.Conn
	send    chan []byte
	timeout time.Duration

	mu      sync.Mutex
	closed  bool
	pending map[string]chan *xmpp.Stanza
}

func newConn(ws *websocket.Conn, timeout time.Duration) *Conn {
	return &Conn{
		ws:      ws,
		send:    make(chan []byte, 32),
		timeout: timeout,
		pending: make(map[string]chan *xmpp.Stanza),
	}
}

// Dial connects to an upstream stanza server and starts the read/write
// pumps. Inbound stanzas go to the handler until ctx is done.
func Dial(ctx context.Context, url string, timeout time.Duration, handler Handler) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := newConn(ws, timeout)
	go c.writePump(ctx)
	go c.readPump(ctx, handler)
	return c, nil
}

func (c *Conn) Send(st *xmpp.Stanza) error {
	data, err := xmpp.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal stanza: %w", err)
	}
	return c.trySend(data)
}

func (c *Conn) SendAndAwait(ctx context.Context, st *xmpp.Stanza) (*xmpp.Stanza, error) {
	if st.ID == "" {
		st.ID = xmpp.NextID()
	}

	ch := make(chan *xmpp.Stanza, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errors.New("connection closed")
	}
	c.pending[st.ID] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, st.ID)
		c.mu.Unlock()
	}()

	if err := c.Send(st); err != nil {
		return nil, err
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case reply := <-ch:
		return reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, fmt.Errorf("no reply within %s", c.timeout)
	}
}

func (c *Conn) trySend(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.ws.Close()
	c.mu.Unlock()
}

// deliverReply routes a result or error stanza to the request waiting on
// its id. Returns false when nothing is waiting.
func (c *Conn) deliverReply(st *xmpp.Stanza) bool {
	if st.Kind != xmpp.KindResult && st.Kind != xmpp.KindError {
		return false
	}
	c.mu.Lock()
	ch, ok := c.pending[st.ID]
	if ok {
		delete(c.pending, st.ID)
	}
	c.mu.Unlock()
	if !ok {
		// Late reply of a timed-out request; discard.
		return false
	}
	ch <- st
	return true
}

func (c *Conn) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "ws").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump set deadline")
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "ws").Msg("writePump write error")
				return
			}
		}
	}
}

func (c *Conn) readPump(ctx context.Context, handler Handler) {
	defer c.Close()
	// ReadMessage only unblocks when the socket closes, so closing on
	// context end is what stops the pump. Close is safe to call twice.
	stop := context.AfterFunc(ctx, c.Close)
	defer stop()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			log.Error().Err(err).Str("module", "ws").Msg("readPump read error")
			return
		}
		st, err := xmpp.Decode(data)
		if err != nil {
			log.Error().Err(err).Str("module", "ws").Msg("bad stanza")
			continue
		}
		if c.deliverReply(st) {
			continue
		}
		if handler != nil {
			handler(ctx, st)
		}
	}
}
