package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/Ananth-NQI/narasumber-backend/internal/utils"
)

// TwilioService sends WhatsApp messages through the Twilio API.
// Twilio only reaches individual chats.
type TwilioService struct {
	client *twilio.RestClient
	from   string // Twilio WhatsApp sender, "whatsapp:+14155238886"
	log    *logrus.Logger
}

// NewTwilioService creates a new Twilio service instance
func NewTwilioService(accountSid, authToken, from string, log *logrus.Logger) (*TwilioService, error) {
	if accountSid == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("missing Twilio credentials")
	}
	if !strings.HasPrefix(from, "whatsapp:") {
		from = "whatsapp:" + from
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})

	return &TwilioService{
		client: client,
		from:   from,
		log:    log,
	}, nil
}

// Send sends a WhatsApp text to an individual address ("628...@c.us")
func (t *TwilioService) Send(ctx context.Context, to string, text string) error {
	if utils.IsGroupAddress(to) {
		return ErrGroupUnsupported
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(TwilioAddress(to))
	params.SetBody(text)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		t.log.WithError(err).WithField("to", to).Error("❌ Failed to send WhatsApp message")
		return err
	}

	if resp.ErrorCode != nil && *resp.ErrorCode != 0 {
		msg := ""
		if resp.ErrorMessage != nil {
			msg = *resp.ErrorMessage
		}
		return fmt.Errorf("twilio error %d: %s", *resp.ErrorCode, msg)
	}

	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	t.log.WithFields(logrus.Fields{"to": to, "sid": sid}).Info("✅ WhatsApp message sent")
	return nil
}

// TwilioAddress converts "628...@c.us" into Twilio's "whatsapp:+628..."
func TwilioAddress(addr string) string {
	return "whatsapp:+" + utils.NormalizePhone(addr)
}

// ContactAddress converts Twilio's "whatsapp:+628..." into "628...@c.us"
func ContactAddress(twilioAddr string) string {
	return utils.NormalizePhone(strings.TrimPrefix(twilioAddr, "whatsapp:")) + utils.IndividualSuffix
}
