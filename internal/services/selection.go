package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Ananth-NQI/narasumber-backend/internal/models"
	"github.com/Ananth-NQI/narasumber-backend/internal/storage"
)

// SelectionFlow asks who should answer a question and records the choice.
//
// Propose sends a numbered respondent menu and arms a selection continuation
// for the conversation. Resolve consumes the next reply: "0" assigns the
// question to every candidate, 1..n to a single one, anything else is
// rejected. The continuation is never re-armed.
type SelectionFlow struct {
	store         storage.Store
	transport     Transport
	continuations ContinuationStore
	now           Clock
	log           *logrus.Logger
}

// NewSelectionFlow wires the flow to its collaborators
func NewSelectionFlow(store storage.Store, transport Transport, continuations ContinuationStore, now Clock, log *logrus.Logger) *SelectionFlow {
	if now == nil {
		now = time.Now
	}
	return &SelectionFlow{
		store:         store,
		transport:     transport,
		continuations: continuations,
		now:           now,
		log:           log,
	}
}

// Propose starts a selection for askerPhone's question in conv
func (f *SelectionFlow) Propose(ctx context.Context, conv models.Conversation, askerPhone, question string) error {
	asker, err := f.store.GetUserByPhone(ctx, askerPhone)
	if errors.Is(err, models.ErrUserNotFound) {
		return models.NewNotFoundError(msgNotRegistered)
	}
	if err != nil {
		return err
	}

	respondents, err := f.store.GetRespondents(ctx, asker.GroupID)
	if err != nil {
		return err
	}
	if len(respondents) == 0 {
		return models.NewNotFoundError(msgNoRespondents)
	}

	candidates := make([]models.Candidate, 0, len(respondents))
	for _, r := range respondents {
		candidates = append(candidates, models.Candidate{
			UserID:      r.ID,
			DisplayName: r.DisplayName(),
			Contact:     r.WhatsAppNumber,
		})
	}

	if err := reply(ctx, f.transport, conv, msgRespondentMenu(candidates)); err != nil {
		return err
	}

	f.continuations.Arm(conv.ID, models.Continuation{
		Kind:    models.ContinuationSelection,
		ArmedAt: f.now(),
		Selection: &models.PendingSelection{
			AskerUserID:  asker.ID,
			AskerPhone:   asker.WhatsAppNumber,
			QuestionText: question,
			GroupID:      asker.GroupID,
			Candidates:   candidates,
		},
	})

	f.log.WithFields(logrus.Fields{
		"conversation": conv.ID,
		"asker":        asker.WhatsAppNumber,
		"candidates":   len(candidates),
	}).Info("Respondent menu sent")
	return nil
}

// Resolve commits the selection answered by body
func (f *SelectionFlow) Resolve(ctx context.Context, conv models.Conversation, sel *models.PendingSelection, body string) error {
	choice := strings.TrimSpace(body)
	n, err := strconv.Atoi(choice)

	switch {
	case err == nil && choice == "0":
		return f.assignAll(ctx, conv, sel)
	case err == nil && n >= 1 && n <= len(sel.Candidates):
		return f.assignOne(ctx, conv, sel, sel.Candidates[n-1])
	default:
		f.log.WithFields(logrus.Fields{"conversation": conv.ID, "input": choice}).Info("Invalid respondent choice")
		return reply(ctx, f.transport, conv, msgInvalidChoice)
	}
}

func (f *SelectionFlow) assignAll(ctx context.Context, conv models.Conversation, sel *models.PendingSelection) error {
	for _, c := range sel.Candidates {
		if err := f.insert(ctx, sel, c); err != nil {
			return err
		}
		f.notify(ctx, sel, c)
	}
	return reply(ctx, f.transport, conv, msgSentToAll)
}

func (f *SelectionFlow) assignOne(ctx context.Context, conv models.Conversation, sel *models.PendingSelection, c models.Candidate) error {
	if err := f.insert(ctx, sel, c); err != nil {
		return err
	}
	if err := reply(ctx, f.transport, conv, msgQuestionAccept); err != nil {
		f.log.WithError(err).WithField("conversation", conv.ID).Error("❌ Failed to acknowledge asker")
	}
	f.notify(ctx, sel, c)
	return nil
}

func (f *SelectionFlow) insert(ctx context.Context, sel *models.PendingSelection, c models.Candidate) error {
	assigned := c.UserID
	q := models.NewQuestion(sel.AskerUserID, sel.QuestionText, &assigned, sel.GroupID)
	if _, err := f.store.CreateQuestion(ctx, q); err != nil {
		return fmt.Errorf("assign question to %d: %w", c.UserID, err)
	}
	f.log.WithFields(logrus.Fields{
		"question": q.ID,
		"asker":    sel.AskerUserID,
		"assigned": c.UserID,
	}).Info("Question assigned")
	return nil
}

// notify failures are logged only; the question row stays pending
func (f *SelectionFlow) notify(ctx context.Context, sel *models.PendingSelection, c models.Candidate) {
	err := sendTo(ctx, f.transport, c.Contact, false, msgNewQuestion(sel.AskerPhone, sel.QuestionText))
	if err != nil {
		f.log.WithError(err).WithField("respondent", c.UserID).Error("❌ Failed to notify respondent")
	}
}
