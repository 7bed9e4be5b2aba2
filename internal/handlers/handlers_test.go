package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Ananth-NQI/narasumber-backend/internal/logger"
	"github.com/Ananth-NQI/narasumber-backend/internal/middleware"
	"github.com/Ananth-NQI/narasumber-backend/internal/models"
	"github.com/Ananth-NQI/narasumber-backend/internal/services"
	"github.com/Ananth-NQI/narasumber-backend/internal/storage"
)

const (
	testGroup  = "120363000000000001@g.us"
	testSecret = "rahasia"
)

type nopTransport struct {
	sent []string
}

func (t *nopTransport) Send(_ context.Context, to string, text string) error {
	t.sent = append(t.sent, to)
	return nil
}

type testEnv struct {
	app       *fiber.App
	store     *storage.MemoryStore
	verified  *services.MemoryVerifiedSet
	transport *nopTransport
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.Discard()
	store := storage.NewMemoryStore()
	transport := &nopTransport{}
	verified := services.NewMemoryVerifiedSet()
	conts := services.NewMemoryContinuationStore()
	sessions := services.NewSessionRegistry(services.NewMemorySessionStore(), nil, 30, log)
	matcher := services.NewKeywordMatcher(store)

	dispatcher := services.NewDispatcher(services.DispatcherDeps{
		Store:         store,
		Transport:     transport,
		Sessions:      sessions,
		Continuations: conts,
		Matcher:       matcher,
		Selection:     services.NewSelectionFlow(store, transport, conts, nil, log),
		Admin:         services.NewAdminService(store, sessions, nil, services.AdminConfig{FrontendURL: "http://localhost:3000/"}, log),
		Verified:      verified,
		FrontendURL:   "http://localhost:3000/",
		Log:           log,
	})

	app := fiber.New()
	wa := NewWhatsAppHandler(dispatcher, log)
	app.Post("/webhook/whatsapp", wa.HandleWebhook)
	app.Post("/test/whatsapp", wa.HandleTestWebhook)
	app.Get("/health", NewHealthHandler("test", dispatcher).Check)
	tokens := NewGroupTokenHandler(store, nil)
	app.Get("/api/group-tokens/validate", tokens.Validate)
	app.Delete("/api/group-tokens/:token", middleware.RequireJWT(testSecret, models.RoleAdminGroup, models.RoleAdmin), tokens.Revoke)
	app.Get("/api/questions/similar", NewQuestionHandler(store, matcher, log).Similar)
	app.Get("/api/verification/:phone", NewVerificationHandler(verified).Status)

	keywords := NewKeywordHandler(store, log)
	kw := app.Group("/api/group-keywords", middleware.RequireJWT(testSecret, models.RoleAdminGroup, models.RoleAdmin))
	kw.Post("/", keywords.Create)
	kw.Get("/", keywords.List)
	kw.Delete("/:id", keywords.Delete)

	return &testEnv{app: app, store: store, verified: verified, transport: transport}
}

func (e *testEnv) do(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	resp, err := e.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, body
}

func adminToken(t *testing.T, groupID string) string {
	t.Helper()
	token, err := middleware.SignToken(testSecret, &middleware.Claims{UserID: 1, Role: models.RoleAdminGroup, GroupID: groupID})
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	return "Bearer " + token
}

func TestTestWebhook_ReturnsReplies(t *testing.T) {
	env := newTestEnv(t)

	payload, _ := json.Marshal(models.InboundMessage{ConversationID: "6281234567890@c.us", Body: "!verifikasi"})
	req := httptest.NewRequest(http.MethodPost, "/test/whatsapp", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	status, body := env.do(t, req)
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, body %s", status, body)
	}

	var resp struct {
		Success bool                       `json:"success"`
		Replies []services.OutboundMessage `json:"replies"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || len(resp.Replies) != 1 || resp.Replies[0].To != "6281234567890@c.us" {
		t.Errorf("unexpected response: %s", body)
	}
	if len(env.transport.sent) != 0 {
		t.Error("test webhook must not send through the transport")
	}
	if !env.verified.Contains("6281234567890") {
		t.Error("expected the number to be verified")
	}
}

func TestTestWebhook_RejectsEmptyMessage(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/test/whatsapp", strings.NewReader(`{"conversation_id":""}`))
	req.Header.Set("Content-Type", "application/json")
	if status, _ := env.do(t, req); status != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
}

func TestTwilioWebhook_DispatchesAndReplies(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{"From": {"whatsapp:+6281234567890"}, "Body": {"!verifikasi"}}
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if status, _ := env.do(t, req); status != fiber.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if len(env.transport.sent) != 1 || env.transport.sent[0] != "6281234567890@c.us" {
		t.Errorf("expected one reply to the sender, got %v", env.transport.sent)
	}

	// Status callbacks are acknowledged without dispatching
	req = httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", strings.NewReader("MessageSid=SM1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if status, _ := env.do(t, req); status != fiber.StatusOK {
		t.Errorf("status = %d", status)
	}
	if len(env.transport.sent) != 1 {
		t.Error("status callback must not trigger replies")
	}
}

func TestKeywordEndpoints(t *testing.T) {
	env := newTestEnv(t)
	auth := adminToken(t, testGroup)

	req := httptest.NewRequest(http.MethodPost, "/api/group-keywords", strings.NewReader(`{"keyword":" pengiriman "}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", auth)
	status, body := env.do(t, req)
	if status != fiber.StatusCreated {
		t.Fatalf("create status = %d, body %s", status, body)
	}
	var created models.GroupKeyword
	json.Unmarshal(body, &created)
	if created.Keyword != "pengiriman" || created.GroupID != testGroup {
		t.Errorf("unexpected keyword: %+v", created)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/group-keywords", strings.NewReader(`{"keyword":"  "}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", auth)
	if status, _ := env.do(t, req); status != fiber.StatusBadRequest {
		t.Errorf("empty keyword status = %d, want 400", status)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/group-keywords", nil)
	req.Header.Set("Authorization", auth)
	status, body = env.do(t, req)
	var list []models.GroupKeyword
	json.Unmarshal(body, &list)
	if status != fiber.StatusOK || len(list) != 1 {
		t.Errorf("list status = %d, body %s", status, body)
	}

	// Another group's admin cannot delete it
	req = httptest.NewRequest(http.MethodDelete, "/api/group-keywords/1", nil)
	req.Header.Set("Authorization", adminToken(t, "other@g.us"))
	if status, _ := env.do(t, req); status != fiber.StatusNotFound {
		t.Errorf("cross-group delete status = %d, want 404", status)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/group-keywords/1", nil)
	req.Header.Set("Authorization", auth)
	if status, _ := env.do(t, req); status != fiber.StatusOK {
		t.Errorf("delete status = %d", status)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/group-keywords", nil)
	if status, _ := env.do(t, req); status != fiber.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", status)
	}
}

func TestValidateGroupToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.store.UpsertGroupToken(ctx, testGroup, "good", time.Now().Add(time.Hour))
	env.store.UpsertGroupToken(ctx, "old@g.us", "stale", time.Now().Add(-time.Hour))

	tests := []struct {
		query string
		want  int
	}{
		{"", fiber.StatusBadRequest},
		{"?token=missing", fiber.StatusUnauthorized},
		{"?token=stale", fiber.StatusUnauthorized},
		{"?token=good", fiber.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/group-tokens/validate"+tt.query, nil)
		status, body := env.do(t, req)
		if status != tt.want {
			t.Errorf("%q: status = %d, want %d", tt.query, status, tt.want)
		}
		if tt.want == fiber.StatusOK && !strings.Contains(string(body), testGroup) {
			t.Errorf("expected group in body: %s", body)
		}
	}
}

func TestRevokeGroupToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.store.UpsertGroupToken(ctx, testGroup, "mine", time.Now().Add(time.Hour))
	env.store.UpsertGroupToken(ctx, "other@g.us", "theirs", time.Now().Add(time.Hour))

	tests := []struct {
		name  string
		token string
		auth  string
		want  int
	}{
		{"unauthenticated", "mine", "", fiber.StatusUnauthorized},
		{"other group", "theirs", adminToken(t, testGroup), fiber.StatusNotFound},
		{"unknown", "missing", adminToken(t, testGroup), fiber.StatusNotFound},
		{"own group", "mine", adminToken(t, testGroup), fiber.StatusOK},
		{"already revoked", "mine", adminToken(t, testGroup), fiber.StatusNotFound},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodDelete, "/api/group-tokens/"+tt.token, nil)
		if tt.auth != "" {
			req.Header.Set("Authorization", tt.auth)
		}
		if status, body := env.do(t, req); status != tt.want {
			t.Errorf("%s: status = %d, want %d (%s)", tt.name, status, tt.want, body)
		}
	}

	if _, err := env.store.GetValidGroupToken(ctx, "mine", time.Now()); err == nil {
		t.Error("revoked token must no longer validate")
	}
	if _, err := env.store.GetValidGroupToken(ctx, "theirs", time.Now()); err != nil {
		t.Errorf("other group's token must survive: %v", err)
	}
}

func TestSimilarQuestions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.store.CreateKeyword(ctx, &models.GroupKeyword{GroupID: testGroup, Keyword: "pengiriman"})
	env.store.CreateQuestion(ctx, models.NewQuestion(1, "Kapan pengiriman tiba?", nil, testGroup))
	env.store.CreateQuestion(ctx, models.NewQuestion(1, "Berapa harganya?", nil, testGroup))

	req := httptest.NewRequest(http.MethodGet, "/api/questions/similar?group_id="+url.QueryEscape(testGroup)+"&query=status+pengiriman", nil)
	status, body := env.do(t, req)
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, body %s", status, body)
	}

	var resp struct {
		Keywords  []string          `json:"keywords"`
		Questions []models.Question `json:"questions"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Questions) != 1 || resp.Questions[0].QuestionText != "Kapan pengiriman tiba?" {
		t.Errorf("unexpected questions: %s", body)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/questions/similar?query=x", nil)
	if status, _ := env.do(t, req); status != fiber.StatusBadRequest {
		t.Errorf("missing group status = %d, want 400", status)
	}
}

// postTestMessage sends msg through the test webhook and returns the replies
func (e *testEnv) postTestMessage(t *testing.T, msg models.InboundMessage) []services.OutboundMessage {
	t.Helper()
	payload, _ := json.Marshal(msg)
	req := httptest.NewRequest(http.MethodPost, "/test/whatsapp", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	status, body := e.do(t, req)
	if status != fiber.StatusOK {
		t.Fatalf("test webhook status = %d, body %s", status, body)
	}
	var resp struct {
		Replies []services.OutboundMessage `json:"replies"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.Replies
}

func TestSimilarQuestions_LinkFromChat(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.store.CreateUser(&models.User{Username: "admin", WhatsAppNumber: "6281100000001", Role: models.RoleAdminGroup, GroupID: testGroup})
	env.store.CreateKeyword(ctx, &models.GroupKeyword{GroupID: testGroup, Keyword: "pengiriman"})
	env.store.CreateQuestion(ctx, models.NewQuestion(1, "Kapan pengiriman tiba?", nil, testGroup))

	fromGroup := func(body string) models.InboundMessage {
		return models.InboundMessage{
			ConversationID: testGroup,
			SenderID:       testGroup,
			AuthorID:       "6281100000001@c.us",
			IsGroup:        true,
			Body:           body,
		}
	}
	env.postTestMessage(t, fromGroup("!setSession aktif"))
	replies := env.postTestMessage(t, fromGroup("!question pengiriman kapan?"))

	var link string
	for _, r := range replies {
		if i := strings.Index(r.Text, "http://localhost:3000/similar-questions?"); i >= 0 {
			link = strings.Fields(r.Text[i:])[0]
		}
	}
	if link == "" {
		t.Fatalf("expected a similar-questions link, got %+v", replies)
	}
	parsed, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link %q: %v", link, err)
	}
	if got := parsed.Query().Get("group_id"); got != testGroup {
		t.Errorf("link group_id = %q, want %q", got, testGroup)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/questions/similar?"+parsed.RawQuery, nil)
	status, body := env.do(t, req)
	if status != fiber.StatusOK {
		t.Fatalf("status = %d, body %s", status, body)
	}
	if !strings.Contains(string(body), "Kapan pengiriman tiba?") {
		t.Errorf("expected the stored question in %s", body)
	}
}

func TestVerificationAndHealth(t *testing.T) {
	env := newTestEnv(t)
	env.verified.Add("6281234567890")

	status, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/verification/081234567890", nil))
	if status != fiber.StatusOK || !strings.Contains(string(body), `"verified":true`) {
		t.Errorf("verification: status %d, body %s", status, body)
	}

	status, body = env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	if status != fiber.StatusOK || !strings.Contains(string(body), `"active_sessions":0`) {
		t.Errorf("health: status %d, body %s", status, body)
	}
}
