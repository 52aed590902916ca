package toolport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WSPort is a tool-invocation port backed by a long-lived WebSocket
// connection, carrying the mcp.v1 JSON-RPC framing (grounded on the
// teacher's IDE agent dialer: handshake timeout, subprotocol, bearer
// header).
type WSPort struct {
	conn    *websocket.Conn
	nextID  int64
	mu      sync.Mutex
	pending map[int64]chan *Message
}

// DialWS opens a WebSocket tool-invocation port against url.
func DialWS(ctx context.Context, url, apiKey string) (*WSPort, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		Subprotocols:     []string{"mcp.v1"},
	}

	headers := http.Header{}
	if apiKey != "" {
		headers.Set("Authorization", "Bearer "+apiKey)
	}

	conn, resp, err := dialer.DialContext(ctx, url, headers)
	if err != nil {
		return nil, fmt.Errorf("toolport: websocket dial failed: %w", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		conn.Close()
		return nil, fmt.Errorf("toolport: unexpected handshake status %d", resp.StatusCode)
	}

	p := &WSPort{
		conn:    conn,
		pending: make(map[int64]chan *Message),
	}
	go p.readLoop()
	return p, nil
}

func (p *WSPort) readLoop() {
	for {
		var msg Message
		if err := p.conn.ReadJSON(&msg); err != nil {
			p.mu.Lock()
			for _, ch := range p.pending {
				close(ch)
			}
			p.pending = nil
			p.mu.Unlock()
			return
		}

		id, ok := messageID(msg.ID)
		if !ok {
			continue
		}

		p.mu.Lock()
		ch, found := p.pending[id]
		if found {
			delete(p.pending, id)
		}
		p.mu.Unlock()

		if found {
			ch <- &msg
			close(ch)
		}
	}
}

func messageID(raw interface{}) (int64, bool) {
	switch v := raw.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}

func (p *WSPort) CallTool(ctx context.Context, server, tool string, args map[string]interface{}) (map[string]interface{}, error) {
	id := atomic.AddInt64(&p.nextID, 1)

	msg, err := newToolCallMessage(id, server+":"+tool, args)
	if err != nil {
		return nil, fmt.Errorf("toolport: encode call: %w", err)
	}

	waiter := make(chan *Message, 1)
	p.mu.Lock()
	if p.pending == nil {
		p.mu.Unlock()
		return nil, fmt.Errorf("toolport: connection closed")
	}
	p.pending[id] = waiter
	p.mu.Unlock()

	if err := p.conn.WriteJSON(msg); err != nil {
		return nil, fmt.Errorf("toolport: write call: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case resp, ok := <-waiter:
		if !ok {
			return nil, fmt.Errorf("toolport: connection closed while waiting for response")
		}
		if resp.Error != nil {
			return nil, resp.Error
		}
		return decodeResult(resp.Result)
	}
}

func (p *WSPort) Close() error {
	return p.conn.Close()
}
