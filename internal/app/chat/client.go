/*
Package chat contains the core session and message-fanout engine.

This file defines the Client struct, representing an active WebSocket connection.
It manages the client's lifecycle and message communication loops (ReadPump and
WritePump), and forwards parsed frames to the Hub for serialized processing.
*/
package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
	"relaychat/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxFrameSize = 8192

	// sendQueueBuffer is the per-connection outbound queue depth.
	sendQueueBuffer = 256

	// WsCloseCodeSessionKicked is a custom WebSocket Close Code (4000-4999 range)
	// used to signal the client that the session was replaced by a new connection.
	WsCloseCodeSessionKicked = 4001
)

// Client represents one active WebSocket connection. A Client starts
// unauthenticated; binding it to an identity is the Hub's job.
type Client struct {
	// hub the client submits commands to.
	hub *Hub

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// connID is the opaque transport handle the Registry binds identities to.
	connID string

	// a buffered channel used to queue frames waiting to be sent to the client.
	send chan []byte

	// quit signals WritePump to send a close frame and exit. The send channel
	// itself is never closed, so late writers can never hit a closed channel.
	quit     chan struct{}
	quitOnce sync.Once

	// structured logger with connection context.
	logger zerolog.Logger
}

// NewClient constructs a Client around an upgraded connection and assigns it a
// fresh connection ID.
func NewClient(hub *Hub, wsConn *websocket.Conn) *Client {
	connID := randx.ConnID()

	clientLogger := logx.Logger().With().
		Str("conn_id", connID).
		Logger()

	return &Client{
		hub:    hub,
		conn:   wsConn,
		connID: connID,
		send:   make(chan []byte, sendQueueBuffer),
		quit:   make(chan struct{}),
		logger: clientLogger,
	}
}

// ConnID returns the opaque transport handle for this connection.
func (c *Client) ConnID() string {
	return c.connID
}

// ReadPump handles reading frames from the WebSocket connection.
// It handles heartbeats (Pong), frame parsing, and performs cleanup upon
// connection closure.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxFrameSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frameBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			break
		}

		c.processInboundFrame(frameBytes)
	}
}

// cleanupOnDisconnect handles the necessary cleanup steps when the client's ReadPump terminates.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	c.hub.Disconnect(c)

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// processInboundFrame parses a raw frame and forwards it to the Hub.
func (c *Client) processInboundFrame(frameBytes []byte) {
	var frame Frame
	if err := json.Unmarshal(frameBytes, &frame); err != nil {
		c.logger.Warn().Err(err).
			Bytes("frame_bytes", frameBytes).
			Msg("Client sent invalid JSON")
		c.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	switch frame.Type {
	case FrameAuthenticate:
		var payload AuthenticatePayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			c.logger.Warn().Err(err).Msg("Client sent invalid AUTHENTICATE payload")
			c.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
			return
		}
		c.hub.Authenticate(c, payload)

	case FrameSendMessage:
		var payload SendPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			c.logger.Warn().Err(err).Msg("Client sent invalid SEND_MESSAGE payload")
			c.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
			return
		}
		c.hub.Send(c, payload)

	case FrameTypingStart:
		c.hub.TypingStart(c)

	case FrameTypingStop:
		c.hub.TypingStop(c)

	default:
		c.logger.Warn().Str("frame_type", string(frame.Type)).Msg("Client sent unsupported frame type")
	}
}

// WritePump handles writing frames from the Client.send channel to the WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case <-c.quit:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
				c.logger.Debug().Err(err).Msg("Error writing close message")
			}
			return

		case frame := <-c.send:
			if !c.writeQueuedFrame(frame) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedFrame handles frames pulled from the send channel, writing them to the WebSocket.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (c *Client) writeQueuedFrame(frame []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Error().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

// writePingMessage sends a periodic WebSocket Ping message to maintain the connection heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Debug().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// enqueueFrame queues an already-marshaled frame for delivery. Delivery is
// fire-and-forget: a full queue drops the frame for this connection only and
// never blocks the caller.
func (c *Client) enqueueFrame(frame []byte) error {
	select {
	case c.send <- frame:
		return nil
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send queue full, dropping frame")
		return fmt.Errorf("client send queue full")
	}
}

// SendEvent marshals an event and queues it to the client.
func (c *Client) SendEvent(t EventType, payload any) {
	frame, err := MarshalEvent(t, payload)
	if err != nil {
		c.logger.Error().Err(err).Str("event_type", string(t)).Msg("Error marshaling event for client")
		return
	}

	if err := c.enqueueFrame(frame); err != nil {
		c.logger.Warn().Err(err).Str("event_type", string(t)).Msg("Failed to queue event")
	}
}

// SendError constructs and sends an EventError frame to the client.
func (c *Client) SendError(err error) {
	var code int
	var message string

	var customErr *errs.CustomError
	if errors.As(err, &customErr) {
		code = customErr.Code
		message = customErr.Message
	} else {
		code = errs.ErrUnknown
		message = fmt.Sprintf("Internal server error: %v", err)
	}

	c.SendEvent(EventError, ErrorPayload{Code: code, Message: message})
}

// Kick closes the client's connection by sending a custom WebSocket Close
// Frame (Code 4001) indicating that the session was replaced by a newer login.
func (c *Client) Kick(reason string) {
	c.logger.Warn().
		Int("close_code", WsCloseCodeSessionKicked).
		Str("reason", reason).
		Msg("Sending WS kick message and closing connection.")

	closeMessage := websocket.FormatCloseMessage(WsCloseCodeSessionKicked, reason)

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(websocket.CloseMessage, closeMessage); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to send WS 4001 close message.")
	}

	c.closeSend()
}

// closeSend signals WritePump to finish. Idempotent.
func (c *Client) closeSend() {
	c.quitOnce.Do(func() { close(c.quit) })
}
