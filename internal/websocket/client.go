package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"kernel-workspace-be/internal/dto"
	"kernel-workspace-be/internal/pkg/logger"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	sendBuffer     = 64
)

// Frame types sent to the peer.
const (
	FrameStatus = "status"
	FrameRoute  = "route"
	FrameToken  = "token"
	FrameDone   = "done"
	FrameError  = "error"
)

// Request is one inbound message. Type "cancel" stops the answer in flight;
// anything else is treated as a question.
type Request struct {
	Type     string `json:"type"`
	Question string `json:"question"`
	Persona  string `json:"persona"`
}

// Emit queues a frame for the peer. It returns false once the answer has been
// cancelled or the connection is gone.
type Emit func(frame dto.AskFrame) bool

// AskFunc answers one question, emitting frames until it is done.
type AskFunc func(ctx context.Context, req dto.AskRequest, emit Emit)

// Client serves one websocket connection. A new question cancels the one in
// flight, so at most one answer streams at a time.
type Client struct {
	Conn *websocket.Conn

	// Buffered channel of outbound messages.
	Send chan []byte

	ask    AskFunc
	logger logger.ILogger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewClient(conn *websocket.Conn, ask AskFunc, log logger.ILogger) *Client {
	return &Client{
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		ask:    ask,
		logger: log,
	}
}

// Serve blocks until the peer disconnects.
func (c *Client) Serve() {
	ctx, cancel := context.WithCancel(context.Background())
	go c.writePump()
	c.readPump(ctx)

	cancel()
	c.stopCurrent()
	c.wg.Wait()
	close(c.Send)
}

func (c *Client) readPump(ctx context.Context) {
	defer c.Conn.Close()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("WebSocket", "Connection closed unexpectedly", map[string]interface{}{
					"error": err.Error(),
				})
			}
			return
		}
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))

		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			c.tryPush(dto.AskFrame{Type: FrameError, Data: "invalid message: " + err.Error()})
			continue
		}

		c.stopCurrent()
		if req.Type == "cancel" {
			continue
		}
		c.start(ctx, dto.AskRequest{Question: req.Question, Persona: req.Persona})
	}
}

func (c *Client) start(parent context.Context, req dto.AskRequest) {
	ctx, cancel := context.WithCancel(parent)

	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		c.ask(ctx, req, func(frame dto.AskFrame) bool {
			return c.push(ctx, frame)
		})
	}()
}

// stopCurrent cancels the answer in flight and waits for it to wind down.
func (c *Client) stopCurrent() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		c.wg.Wait()
	}
}

func (c *Client) push(ctx context.Context, frame dto.AskFrame) bool {
	payload, err := json.Marshal(frame)
	if err != nil {
		return false
	}
	select {
	case c.Send <- payload:
		return true
	case <-ctx.Done():
		return false
	}
}

// tryPush drops the frame when the send buffer is full.
func (c *Client) tryPush(frame dto.AskFrame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}
	select {
	case c.Send <- payload:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
