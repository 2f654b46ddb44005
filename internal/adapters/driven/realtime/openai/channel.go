// Package openai provides a realtime channel adapter over the OpenAI
// realtime websocket API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/darkcube-team/cuby/internal/core/domain"
	"github.com/darkcube-team/cuby/internal/core/ports/driven"
)

// Ensure Channel implements the interface.
var _ driven.RealtimeChannel = (*Channel)(nil)

// Default configuration values.
const (
	DefaultBaseURL      = "wss://api.openai.com/v1/realtime"
	DefaultModel        = "gpt-4o-realtime-preview"
	DefaultDialTimeout  = 15 * time.Second
	DefaultWriteTimeout = 10 * time.Second

	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second

	// receiveBuffer absorbs bursts of audio deltas while the consumer
	// is busy.
	receiveBuffer = 256
)

// Config holds configuration for the realtime channel.
type Config struct {
	// APIKey is the OpenAI API key. Required.
	APIKey string

	// BaseURL is the websocket endpoint (default: wss://api.openai.com/v1/realtime).
	BaseURL string

	// Model is the realtime model to use (default: gpt-4o-realtime-preview).
	Model string

	// DialTimeout bounds the websocket handshake (default: 15s).
	DialTimeout time.Duration

	// WriteTimeout bounds each outbound write (default: 10s).
	WriteTimeout time.Duration
}

// Channel is a duplex websocket connection to the realtime API. It
// serves exactly one session; construct a new Channel per session.
type Channel struct {
	cfg  Config
	conn *websocket.Conn

	writeMu sync.Mutex
	recv    chan driven.ServerEvent
	done    chan struct{}

	errMu sync.Mutex
	err   error

	closeOnce sync.Once
}

// NewChannel creates a realtime channel. Connect must be called before use.
func NewChannel(cfg Config) (*Channel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: realtime: API key is required", domain.ErrInvalidConfig)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}

	return &Channel{
		cfg:  cfg,
		recv: make(chan driven.ServerEvent, receiveBuffer),
		done: make(chan struct{}),
	}, nil
}

// Connect performs the websocket handshake and starts the read loop.
func (c *Channel) Connect(ctx context.Context) error {
	if c.conn != nil {
		return fmt.Errorf("%w: channel already connected", domain.ErrChannelFailed)
	}

	endpoint, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: parsing endpoint: %v", domain.ErrInvalidConfig, err)
	}
	q := endpoint.Query()
	q.Set("model", c.cfg.Model)
	endpoint.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.DialTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, endpoint.String(), header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("%w: handshake failed (status %d): %v", domain.ErrChannelFailed, resp.StatusCode, err)
		}
		return fmt.Errorf("%w: dial: %v", domain.ErrChannelFailed, err)
	}
	c.conn = conn

	conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.readLoop()
	go c.pingLoop()

	return nil
}

// Send transmits one outbound event. Safe for concurrent use.
func (c *Channel) Send(ctx context.Context, ev driven.ClientEvent) error {
	if c.conn == nil {
		return fmt.Errorf("%w: channel not connected", domain.ErrChannelFailed)
	}
	select {
	case <-c.done:
		return fmt.Errorf("%w: channel closed", domain.ErrChannelFailed)
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data, err := encodeClientEvent(ev)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(c.cfg.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(deadline) //nolint:errcheck
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: write: %v", domain.ErrChannelFailed, err)
	}
	return nil
}

// Receive returns the inbound event stream. Closed when the transport
// terminates.
func (c *Channel) Receive() <-chan driven.ServerEvent {
	return c.recv
}

// Err reports why the receive stream closed, nil for a clean shutdown.
func (c *Channel) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Close initiates a graceful shutdown: a close frame is sent and the
// read loop is given until ctx expires to wind down before the
// underlying connection is torn off.
func (c *Channel) Close(ctx context.Context) error {
	if c.conn == nil {
		return nil
	}

	c.closeOnce.Do(func() {
		deadline := time.Now().Add(c.cfg.WriteTimeout)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}

		c.writeMu.Lock()
		c.conn.SetWriteDeadline(deadline) //nolint:errcheck
		c.conn.WriteMessage( //nolint:errcheck
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		c.writeMu.Unlock()

		select {
		case <-c.done:
		case <-ctx.Done():
		}
		c.conn.Close() //nolint:errcheck
	})
	return nil
}

// readLoop pumps wire messages into the receive channel until the
// connection terminates.
func (c *Channel) readLoop() {
	defer func() {
		close(c.done)
		close(c.recv)
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			clean := websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				errors.Is(err, net.ErrClosed)
			if !clean {
				c.setErr(fmt.Errorf("%w: read: %v", domain.ErrChannelFailed, err))
			}
			return
		}

		ev, ok := decodeServerEvent(data)
		if !ok {
			continue
		}
		c.recv <- ev
	}
}

// pingLoop keeps the connection alive while idle.
func (c *Channel) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)) //nolint:errcheck
			err := c.conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (c *Channel) setErr(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	if c.err == nil {
		c.err = err
	}
}
