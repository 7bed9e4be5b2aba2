package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Ananth-NQI/narasumber-backend/internal/logger"
	"github.com/Ananth-NQI/narasumber-backend/internal/models"
	"github.com/Ananth-NQI/narasumber-backend/internal/storage"
)

const (
	testGroup   = "120363000000000001@g.us"
	otherGroup  = "120363000000000002@g.us"
	testBaseURL = "https://tanya.example.com/"

	adminPhone  = "6281100000001"
	askerPhone  = "6281100000002"
	memberPhone = "6281100000003"
)

func contact(phone string) string {
	return phone + "@c.us"
}

type sentMessage struct {
	To   string
	Text string
}

// recordingTransport remembers every successful send
type recordingTransport struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (t *recordingTransport) Send(_ context.Context, to string, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	t.sent = append(t.sent, sentMessage{To: to, Text: text})
	return nil
}

func (t *recordingTransport) messages() []sentMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]sentMessage, len(t.sent))
	copy(out, t.sent)
	return out
}

func (t *recordingTransport) sentTo(addr string) []string {
	var texts []string
	for _, m := range t.messages() {
		if m.To == addr {
			texts = append(texts, m.Text)
		}
	}
	return texts
}

func (t *recordingTransport) count(substr string) int {
	n := 0
	for _, m := range t.messages() {
		if strings.Contains(m.Text, substr) {
			n++
		}
	}
	return n
}

func (t *recordingTransport) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	store         *storage.MemoryStore
	transport     *recordingTransport
	clock         *fakeClock
	sessions      *SessionRegistry
	continuations *MemoryContinuationStore
	verified      *MemoryVerifiedSet
	dispatcher    *Dispatcher
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithStore(t, storage.NewMemoryStore(), 0)
}

func newHarnessWithStore(t *testing.T, memory *storage.MemoryStore, pendingTTL time.Duration, wrap ...func(storage.Store) storage.Store) *harness {
	t.Helper()

	log := logger.Discard()
	h := &harness{
		store:         memory,
		transport:     &recordingTransport{},
		clock:         newFakeClock(),
		continuations: NewMemoryContinuationStore(),
		verified:      NewMemoryVerifiedSet(),
	}

	var store storage.Store = memory
	for _, w := range wrap {
		store = w(store)
	}

	h.sessions = NewSessionRegistry(NewMemorySessionStore(), h.clock.Now, 30, log)
	selection := NewSelectionFlow(store, h.transport, h.continuations, h.clock.Now, log)
	admin := NewAdminService(store, h.sessions, h.clock.Now, AdminConfig{
		TokenTTL:    24 * time.Hour,
		FrontendURL: testBaseURL,
	}, log)

	h.dispatcher = NewDispatcher(DispatcherDeps{
		Store:         store,
		Transport:     h.transport,
		Sessions:      h.sessions,
		Continuations: h.continuations,
		Matcher:       NewKeywordMatcher(store),
		Selection:     selection,
		Admin:         admin,
		Verified:      h.verified,
		FrontendURL:   testBaseURL,
		PendingTTL:    pendingTTL,
		Now:           h.clock.Now,
		Log:           log,
	})
	return h
}

func (h *harness) addUser(t *testing.T, u models.User) *models.User {
	t.Helper()
	created, err := h.store.CreateUser(&u)
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", u.WhatsAppNumber, err)
	}
	return created
}

func (h *harness) addKeyword(t *testing.T, groupID, keyword string) {
	t.Helper()
	if _, err := h.store.CreateKeyword(context.Background(), &models.GroupKeyword{GroupID: groupID, Keyword: keyword}); err != nil {
		t.Fatalf("CreateKeyword: %v", err)
	}
}

// fromGroup delivers a message written by sender in testGroup
func (h *harness) fromGroup(sender, body string, mentions ...string) {
	h.dispatcher.Handle(context.Background(), &models.InboundMessage{
		ConversationID: testGroup,
		SenderID:       testGroup,
		AuthorID:       contact(sender),
		IsGroup:        true,
		Body:           body,
		MentionedIDs:   mentions,
	})
}

// fromPrivate delivers a one-to-one message
func (h *harness) fromPrivate(sender, body string) {
	h.dispatcher.Handle(context.Background(), &models.InboundMessage{
		ConversationID: contact(sender),
		SenderID:       contact(sender),
		Body:           body,
	})
}

// lastReply returns the most recent text sent to addr
func (h *harness) lastReply(t *testing.T, addr string) string {
	t.Helper()
	texts := h.transport.sentTo(addr)
	if len(texts) == 0 {
		t.Fatalf("no message sent to %s", addr)
	}
	return texts[len(texts)-1]
}

// seedGroup registers an admin, an asker and the given respondents in testGroup
func (h *harness) seedGroup(t *testing.T, respondents ...string) (admin, asker *models.User, rs []*models.User) {
	t.Helper()
	admin = h.addUser(t, models.User{Username: "admin", WhatsAppNumber: adminPhone, Role: models.RoleAdminGroup, GroupID: testGroup})
	asker = h.addUser(t, models.User{Username: "penanya", WhatsAppNumber: askerPhone, GroupID: testGroup})
	for i, name := range respondents {
		phone := "628220000000" + string(rune('1'+i))
		rs = append(rs, h.addUser(t, models.User{Username: name, WhatsAppNumber: phone, IsNarasumber: true, GroupID: testGroup}))
	}
	return admin, asker, rs
}
