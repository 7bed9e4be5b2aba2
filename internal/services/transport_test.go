package services

import (
	"context"
	"testing"

	"github.com/Ananth-NQI/narasumber-backend/internal/models"
)

func TestReplyRecorder_CapturesInsteadOfSending(t *testing.T) {
	transport := &recordingTransport{}
	ctx, rec := WithReplyRecorder(context.Background())

	if err := reply(ctx, transport, models.Conversation{ID: "081234567890"}, "halo"); err != nil {
		t.Fatalf("reply: %v", err)
	}

	if len(transport.messages()) != 0 {
		t.Error("recorded sends must not reach the transport")
	}
	got := rec.Messages()
	if len(got) != 1 || got[0].To != "6281234567890@c.us" || got[0].Text != "halo" {
		t.Errorf("unexpected recorded messages: %v", got)
	}
}

func TestReply_RejectsMalformedAddresses(t *testing.T) {
	transport := &recordingTransport{}

	if err := reply(context.Background(), transport, models.Conversation{ID: "12345", IsGroup: true}, "x"); err == nil {
		t.Error("expected error for group id without suffix")
	}
	if err := reply(context.Background(), transport, models.Conversation{ID: "12345"}, "x"); err == nil {
		t.Error("expected error for short phone number")
	}
	if len(transport.messages()) != 0 {
		t.Error("nothing should be sent")
	}
}
