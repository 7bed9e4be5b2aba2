package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Ananth-NQI/narasumber-backend/internal/models"
)

// ErrBridgeDisconnected is returned when sending while the bridge is down
var ErrBridgeDisconnected = errors.New("whatsapp bridge not connected")

// Frame types exchanged with the bridge
const (
	frameMessage = "message"
	frameSend    = "send"
)

type bridgeFrame struct {
	Type    string                 `json:"type"`
	To      string                 `json:"to,omitempty"`
	Text    string                 `json:"text,omitempty"`
	Message *models.InboundMessage `json:"message,omitempty"`
}

// BridgeOptions tunes the websocket connection
type BridgeOptions struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	MaxBackoff       time.Duration
}

func (o BridgeOptions) withDefaults() BridgeOptions {
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 30 * time.Second
	}
	return o
}

// MessageHandler consumes inbound messages
type MessageHandler func(ctx context.Context, msg *models.InboundMessage)

// BridgeTransport talks to a WhatsApp Web bridge over a websocket. Unlike
// Twilio it can read and write group chats.
type BridgeTransport struct {
	url   string
	token string
	opts  BridgeOptions
	log   *logrus.Logger

	mu   sync.Mutex // guards conn and serialises writes
	conn *websocket.Conn
}

// NewBridgeTransport creates a bridge client; call Run to connect
func NewBridgeTransport(url, token string, opts BridgeOptions, log *logrus.Logger) *BridgeTransport {
	return &BridgeTransport{
		url:   url,
		token: token,
		opts:  opts.withDefaults(),
		log:   log,
	}
}

// Send writes a send frame to the bridge
func (b *BridgeTransport) Send(ctx context.Context, to string, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return ErrBridgeDisconnected
	}

	deadline := time.Now().Add(b.opts.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = b.conn.SetWriteDeadline(deadline)

	if err := b.conn.WriteJSON(bridgeFrame{Type: frameSend, To: to, Text: text}); err != nil {
		return fmt.Errorf("bridge write: %w", err)
	}
	b.log.WithField("to", to).Debug("📤 Message handed to bridge")
	return nil
}

// Connected reports whether the websocket is up
func (b *BridgeTransport) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

// Run keeps the bridge connected until ctx is cancelled, feeding every
// inbound message to handle in arrival order.
func (b *BridgeTransport) Run(ctx context.Context, handle MessageHandler) error {
	if handle == nil {
		return fmt.Errorf("handler is required")
	}

	backoff := time.Second
	for {
		connected, err := b.runOnce(ctx, handle)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			backoff = time.Second
		}
		b.log.WithError(err).Warnf("⚠️  WhatsApp bridge disconnected, reconnecting in %s", backoff)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > b.opts.MaxBackoff {
			backoff = b.opts.MaxBackoff
		}
	}
}

func (b *BridgeTransport) runOnce(ctx context.Context, handle MessageHandler) (bool, error) {
	header := http.Header{}
	if b.token != "" {
		header.Set("Authorization", "Bearer "+b.token)
	}

	dialer := websocket.Dialer{HandshakeTimeout: b.opts.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, b.url, header)
	if err != nil {
		return false, err
	}

	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()
	b.log.WithField("url", b.url).Info("✅ Connected to WhatsApp bridge")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	defer func() {
		b.mu.Lock()
		b.conn = nil
		b.mu.Unlock()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}

		var frame bridgeFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			b.log.WithError(err).Warn("Ignoring malformed bridge frame")
			continue
		}
		if frame.Type != frameMessage || frame.Message == nil {
			continue
		}
		handle(ctx, frame.Message)
	}
}
