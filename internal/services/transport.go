package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Ananth-NQI/narasumber-backend/internal/models"
	"github.com/Ananth-NQI/narasumber-backend/internal/utils"
)

// ErrGroupUnsupported is returned by transports that cannot reach group chats
var ErrGroupUnsupported = errors.New("transport does not support group chats")

// Transport delivers outbound WhatsApp text
type Transport interface {
	Send(ctx context.Context, to string, text string) error
}

// Clock returns the current time; swapped out in tests
type Clock func() time.Time

// OutboundMessage is a message that would have been sent
type OutboundMessage struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

// ReplyRecorder captures outbound messages instead of sending them.
// Used by the test webhook.
type ReplyRecorder struct {
	mu   sync.Mutex
	sent []OutboundMessage
}

type recorderKey struct{}

// WithReplyRecorder returns a context whose sends are recorded, not delivered
func WithReplyRecorder(ctx context.Context) (context.Context, *ReplyRecorder) {
	rec := &ReplyRecorder{}
	return context.WithValue(ctx, recorderKey{}, rec), rec
}

// Messages returns what was recorded so far
func (r *ReplyRecorder) Messages() []OutboundMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]OutboundMessage, len(r.sent))
	copy(out, r.sent)
	return out
}

func (r *ReplyRecorder) add(to, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, OutboundMessage{To: to, Text: text})
}

func sendTo(ctx context.Context, t Transport, addr string, isGroup bool, text string) error {
	to, err := utils.FormatAddress(addr, isGroup)
	if err != nil {
		return err
	}
	if rec, ok := ctx.Value(recorderKey{}).(*ReplyRecorder); ok {
		rec.add(to, text)
		return nil
	}
	if err := t.Send(ctx, to, text); err != nil {
		return fmt.Errorf("send to %s: %w", to, err)
	}
	return nil
}

func reply(ctx context.Context, t Transport, conv models.Conversation, text string) error {
	return sendTo(ctx, t, conv.ID, conv.IsGroup, text)
}

// LogTransport only logs outbound messages; used when no transport is configured
type LogTransport struct {
	Log *logrus.Logger
}

func (t LogTransport) Send(_ context.Context, to string, text string) error {
	t.Log.Infof("📤 Message (not sent, no transport configured) to %s: %s", to, text)
	return nil
}
