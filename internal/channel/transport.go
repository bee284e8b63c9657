package channel

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"qchat/internal/api"
	"qchat/internal/domain"
)

// Conn is one established channel connection. ReadMessage is called from a
// single goroutine; WriteMessage calls are serialised by the Channel.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(b []byte) error
	Close() error
}

// Dialer opens the connection for a session.
type Dialer interface {
	Dial(ctx context.Context, sessionID domain.SessionID) (Conn, error)
}

// DefaultReadLimit bounds a single inbound frame. Message history can be
// large, so this is generous.
const DefaultReadLimit = 8 << 20

const closeGrace = time.Second

// WebSocketDialer dials /ws/{session_id} on the backend.
type WebSocketDialer struct {
	// APIURL is the backend base URL the websocket URL is derived from when
	// WebSocketURL is empty.
	APIURL       string
	WebSocketURL string

	Dialer    *websocket.Dialer
	Header    http.Header
	ReadLimit int64
}

// Dial implements Dialer.
func (d *WebSocketDialer) Dial(ctx context.Context, sessionID domain.SessionID) (Conn, error) {
	u, err := api.WebSocketURL(d.APIURL, d.WebSocketURL, sessionID)
	if err != nil {
		return nil, err
	}
	wd := d.Dialer
	if wd == nil {
		wd = websocket.DefaultDialer
	}
	ws, resp, err := wd.DialContext(ctx, u, d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %s)", u, err, resp.Status)
		}
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}
	limit := d.ReadLimit
	if limit <= 0 {
		limit = DefaultReadLimit
	}
	ws.SetReadLimit(limit)
	return &wsConn{ws: ws}, nil
}

type wsConn struct {
	ws *websocket.Conn
}

// ReadMessage returns the next data frame, skipping anything else.
func (c *wsConn) ReadMessage() ([]byte, error) {
	for {
		mt, b, err := c.ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		if mt == websocket.TextMessage || mt == websocket.BinaryMessage {
			return b, nil
		}
	}
}

func (c *wsConn) WriteMessage(b []byte) error {
	return c.ws.WriteMessage(websocket.TextMessage, b)
}

// Close sends a normal-closure frame, best effort, then drops the connection.
func (c *wsConn) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
	return c.ws.Close()
}

// describeClose renders a transport error for the user, surfacing the
// server's close code and reason when there is one.
func describeClose(err error) string {
	if ce, ok := err.(*websocket.CloseError); ok {
		if ce.Text != "" {
			return fmt.Sprintf("closed by server (%d %s)", ce.Code, ce.Text)
		}
		return fmt.Sprintf("closed by server (%d)", ce.Code)
	}
	return err.Error()
}
