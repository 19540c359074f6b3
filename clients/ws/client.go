// Package ws provides a WebSocket client for the tfx gateway.
package ws

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/coder/websocket"

	wsprotocol "github.com/teamsfx/tfx/internal/gateway/ws"
)

// Client is a WebSocket client for the tfx gateway.
type Client struct {
	conn   *websocket.Conn
	reqSeq uint64
	ctx    context.Context
	cancel context.CancelFunc
}

// Dial connects to the gateway WebSocket endpoint.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ws dial: %w", err)
	}

	clientCtx, cancel := context.WithCancel(ctx)

	return &Client{
		conn:   conn,
		ctx:    clientCtx,
		cancel: cancel,
	}, nil
}

// SendMessage sends a chat request to the gateway and returns the request id.
func (c *Client) SendMessage(params wsprotocol.SendMessageParams) (string, error) {
	return c.send(wsprotocol.MethodSendMessage, params)
}

// OpenSession asks the gateway for a new session and returns the request id;
// the session id comes back in the matching response frame.
func (c *Client) OpenSession(participant string) (string, error) {
	return c.send(wsprotocol.MethodOpenSession, wsprotocol.OpenSessionParams{Participant: participant})
}

func (c *Client) send(method wsprotocol.Method, params any) (string, error) {
	id := fmt.Sprintf("req-%d", atomic.AddUint64(&c.reqSeq, 1))
	frame, err := wsprotocol.NewRequestFrame(id, method, params)
	if err != nil {
		return "", err
	}
	data, err := wsprotocol.MarshalFrame(frame)
	if err != nil {
		return "", err
	}
	return id, c.conn.Write(c.ctx, websocket.MessageText, data)
}

// ReadFrame reads the next frame from the connection.
func (c *Client) ReadFrame() (wsprotocol.Frame, error) {
	_, data, err := c.conn.Read(c.ctx)
	if err != nil {
		return wsprotocol.Frame{}, err
	}
	return wsprotocol.UnmarshalFrame(data)
}

// ErrRejected is returned by Await when the gateway answers ok=false.
var ErrRejected = errors.New("request rejected")

// Await reads frames until the response to id arrives. Event frames read
// meanwhile are passed to onEvent, which may be nil.
func (c *Client) Await(id string, onEvent func(wsprotocol.Frame)) (wsprotocol.Frame, error) {
	for {
		f, err := c.ReadFrame()
		if err != nil {
			return wsprotocol.Frame{}, err
		}
		switch {
		case f.Type == wsprotocol.FrameTypeResponse && f.ID == id:
			if f.OK == nil || !*f.OK {
				return f, fmt.Errorf("%w: %s", ErrRejected, f.Error)
			}
			return f, nil
		case f.Type == wsprotocol.FrameTypeEvent && onEvent != nil:
			onEvent(f)
		}
	}
}

// Close gracefully closes the connection.
func (c *Client) Close() error {
	c.cancel()
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}
