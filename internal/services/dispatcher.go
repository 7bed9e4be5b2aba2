package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Ananth-NQI/narasumber-backend/internal/models"
	"github.com/Ananth-NQI/narasumber-backend/internal/storage"
	"github.com/Ananth-NQI/narasumber-backend/internal/utils"
)

// Chat commands
const (
	cmdForward          = "!forward"
	cmdCreateLink       = "!buatlink"
	cmdVerify           = "!verifikasi"
	cmdSetRespondent    = "!setNarasumber"
	cmdRemoveRespondent = "!hapusNarasumber"
	cmdSetSession       = "!setSession"
	cmdQuestion         = "!question"
)

// Dispatcher routes every inbound WhatsApp message.
//
// Messages of one conversation are handled one at a time. A pending
// continuation (respondent choice or "lanjut" confirmation) sees the message
// first; bang-commands are then dispatched as usual.
type Dispatcher struct {
	store         storage.Store
	transport     Transport
	sessions      *SessionRegistry
	continuations ContinuationStore
	matcher       *KeywordMatcher
	selection     *SelectionFlow
	admin         *AdminService
	verified      VerifiedSet

	frontendURL string
	pendingTTL  time.Duration
	now         Clock
	log         *logrus.Logger

	locksMu sync.Mutex
	locks   map[string]*conversationLock
}

// conversationLock is dropped from the table once nobody holds or waits on it
type conversationLock struct {
	mu   sync.Mutex
	refs int
}

// DispatcherDeps groups the Dispatcher's collaborators
type DispatcherDeps struct {
	Store         storage.Store
	Transport     Transport
	Sessions      *SessionRegistry
	Continuations ContinuationStore
	Matcher       *KeywordMatcher
	Selection     *SelectionFlow
	Admin         *AdminService
	Verified      VerifiedSet

	FrontendURL string

	// PendingTTL discards continuations older than this; 0 keeps them forever
	PendingTTL time.Duration
	Now        Clock
	Log        *logrus.Logger
}

// NewDispatcher creates a dispatcher
func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Dispatcher{
		store:         deps.Store,
		transport:     deps.Transport,
		sessions:      deps.Sessions,
		continuations: deps.Continuations,
		matcher:       deps.Matcher,
		selection:     deps.Selection,
		admin:         deps.Admin,
		verified:      deps.Verified,
		frontendURL:   deps.FrontendURL,
		pendingTTL:    deps.PendingTTL,
		now:           deps.Now,
		log:           deps.Log,
		locks:         make(map[string]*conversationLock),
	}
}

func (d *Dispatcher) lock(conversationID string) func() {
	d.locksMu.Lock()
	l, ok := d.locks[conversationID]
	if !ok {
		l = &conversationLock{}
		d.locks[conversationID] = l
	}
	l.refs++
	d.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		d.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(d.locks, conversationID)
		}
		d.locksMu.Unlock()
	}
}

func (d *Dispatcher) lockCount() int {
	d.locksMu.Lock()
	defer d.locksMu.Unlock()
	return len(d.locks)
}

// Handle processes one inbound message. It never panics and never returns
// an error: failures become chat replies and log lines.
func (d *Dispatcher) Handle(ctx context.Context, msg *models.InboundMessage) {
	if msg == nil || msg.ConversationID == "" {
		return
	}
	unlock := d.lock(msg.ConversationID)
	defer unlock()

	entry := d.log.WithFields(logrus.Fields{
		"conversation": msg.ConversationID,
		"sender":       msg.SenderPhone(),
		"group":        msg.IsGroup,
	})
	defer func() {
		if r := recover(); r != nil {
			entry.Errorf("🔥 Panic while handling message: %v", r)
			d.report(ctx, msg, fmt.Errorf("panic: %v", r))
		}
	}()

	entry.Debugf("📱 Message received: %s", msg.Body)

	if cont, ok := d.continuations.Take(msg.ConversationID); ok {
		d.report(ctx, msg, d.resume(ctx, msg, cont))
	}

	d.report(ctx, msg, d.dispatch(ctx, msg))
}

func (d *Dispatcher) resume(ctx context.Context, msg *models.InboundMessage, cont models.Continuation) error {
	conv := msg.Conversation()

	if d.pendingTTL > 0 && d.now().Sub(cont.ArmedAt) > d.pendingTTL {
		d.log.WithFields(logrus.Fields{"conversation": conv.ID, "kind": cont.Kind.String()}).Info("Continuation expired")
		if cont.Kind == models.ContinuationSelection {
			return reply(ctx, d.transport, conv, msgSelectionExpired)
		}
		return nil
	}

	switch cont.Kind {
	case models.ContinuationSelection:
		return d.selection.Resolve(ctx, conv, cont.Selection, msg.Body)
	case models.ContinuationConfirmDuplicate:
		if utils.Fold(strings.TrimSpace(msg.Body)) != continueWord {
			return nil
		}
		return d.selection.Propose(ctx, conv, cont.AskerPhone, cont.QuestionText)
	default:
		return nil
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, msg *models.InboundMessage) error {
	body := strings.TrimSpace(msg.Body)
	fields := strings.Fields(body)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "!") {
		return nil
	}

	d.log.WithFields(logrus.Fields{
		"conversation": msg.ConversationID,
		"command":      fields[0],
	}).Info("Processing command")

	switch {
	case fields[0] == cmdForward:
		return d.handleForward(ctx, msg, fields)
	case fields[0] == cmdCreateLink:
		return d.replyWith(ctx, msg)(d.admin.CreateRegistrationLink(ctx, msg))
	case strings.EqualFold(fields[0], cmdVerify) && len(fields) == 1:
		return d.replyWith(ctx, msg)(d.handleVerify(msg), nil)
	case fields[0] == cmdSetRespondent:
		return d.replyWith(ctx, msg)(d.admin.SetRespondents(ctx, msg, true))
	case fields[0] == cmdRemoveRespondent:
		return d.replyWith(ctx, msg)(d.admin.SetRespondents(ctx, msg, false))
	case fields[0] == cmdSetSession:
		return d.replyWith(ctx, msg)(d.admin.SetSession(ctx, msg, fields[1:]))
	case fields[0] == cmdQuestion:
		return d.handleQuestion(ctx, msg, strings.TrimSpace(strings.TrimPrefix(body, cmdQuestion)))
	default:
		return nil
	}
}

// replyWith adapts the (reply, error) handlers to a single error
func (d *Dispatcher) replyWith(ctx context.Context, msg *models.InboundMessage) func(string, error) error {
	return func(text string, err error) error {
		if err != nil {
			return err
		}
		if text == "" {
			return nil
		}
		return reply(ctx, d.transport, msg.Conversation(), text)
	}
}

// report turns a handler error into the single reply the user sees
func (d *Dispatcher) report(ctx context.Context, msg *models.InboundMessage, err error) {
	if err == nil {
		return
	}

	text := msgGenericFailure
	var ce *models.CommandError
	if errors.As(err, &ce) {
		text = ce.Message
		d.log.WithFields(logrus.Fields{"conversation": msg.ConversationID, "kind": ce.Kind}).Info("Command rejected")
	} else {
		d.log.WithError(err).WithField("conversation", msg.ConversationID).Error("❌ Error processing message")
	}

	if sendErr := reply(ctx, d.transport, msg.Conversation(), text); sendErr != nil {
		d.log.WithError(sendErr).WithField("conversation", msg.ConversationID).Error("❌ Failed to send error reply")
	}
}

func (d *Dispatcher) handleVerify(msg *models.InboundMessage) string {
	phone := msg.SenderPhone()
	if d.verified.Add(phone) {
		d.log.WithField("phone", phone).Info("Number verified")
	}
	return msgVerified
}

// handleForward: !forward @6281234567890 question text
func (d *Dispatcher) handleForward(ctx context.Context, msg *models.InboundMessage, fields []string) error {
	sender, err := d.store.GetUserByPhone(ctx, msg.SenderPhone())
	if errors.Is(err, models.ErrUserNotFound) {
		return models.NewPermissionError(msgNoPermission)
	}
	if err != nil {
		return err
	}
	if sender.Role != models.RoleAdminGroup {
		return models.NewPermissionError(msgNoPermission)
	}

	if len(fields) < 3 || !strings.HasPrefix(fields[1], "@") {
		return models.NewUsageError(msgUsageForward)
	}
	mentioned := utils.NormalizePhone(strings.TrimPrefix(fields[1], "@"))
	if mentioned == "" {
		return models.NewUsageError(msgUsageForward)
	}
	question := strings.Join(fields[2:], " ")

	target, err := d.store.GetUserByPhone(ctx, mentioned)
	if errors.Is(err, models.ErrUserNotFound) {
		return models.NewNotFoundError(msgUserNotFound(mentioned))
	}
	if err != nil {
		return err
	}
	if err := canActOnGroup(sender, target.GroupID, models.RoleAdminGroup); err != nil {
		return err
	}

	if _, err := d.store.CreateQuestion(ctx, models.NewQuestion(target.ID, question, nil, target.GroupID)); err != nil {
		return fmt.Errorf("store forwarded question: %w", err)
	}

	conv := msg.Conversation()
	if err := reply(ctx, d.transport, conv, msgForwarded(mentioned)); err != nil {
		return err
	}
	return d.selection.Propose(ctx, conv, target.WhatsAppNumber, question)
}

func (d *Dispatcher) handleQuestion(ctx context.Context, msg *models.InboundMessage, question string) error {
	if question == "" {
		return models.NewUsageError(msgUsageQuestion)
	}

	conv := msg.Conversation()
	asker := msg.SenderPhone()

	if conv.IsGroup {
		if !d.sessions.IsActive(conv.ID) {
			return models.NewUsageError(msgSessionInactive)
		}

		match, err := d.matcher.Check(ctx, conv.ID, question)
		if err != nil {
			return err
		}
		if match.HasSimilar() {
			d.log.WithFields(logrus.Fields{
				"conversation": conv.ID,
				"keywords":     strings.Join(match.Matched, ","),
				"similar":      match.SimilarCount,
			}).Info("Similar questions found")

			link := d.frontendURL + "similar-questions?" + url.Values{
				"group_id": {conv.ID},
				"query":    {question},
			}.Encode()
			if err := reply(ctx, d.transport, conv, msgSimilarFound(match.SimilarCount, link)); err != nil {
				return err
			}
			d.continuations.Arm(conv.ID, models.Continuation{
				Kind:         models.ContinuationConfirmDuplicate,
				ArmedAt:      d.now(),
				AskerPhone:   asker,
				QuestionText: question,
			})
			return nil
		}
		if len(match.Matched) > 0 {
			return d.selection.Propose(ctx, conv, asker, question)
		}
	}

	if err := reply(ctx, d.transport, conv, msgProcessing); err != nil {
		return err
	}
	return d.selection.Propose(ctx, conv, asker, question)
}

// Sessions exposes the registry for monitoring endpoints
func (d *Dispatcher) Sessions() *SessionRegistry {
	return d.sessions
}

// PendingCount returns the number of armed continuations
func (d *Dispatcher) PendingCount() int {
	return d.continuations.Len()
}
